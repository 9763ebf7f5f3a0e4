package middleware

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/splitfriends/internal/auth"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// SessionKey is the context key for storing the authenticated session.
const SessionKey contextKey = "session"

// WithSession returns a copy of ctx carrying sess.
func WithSession(ctx context.Context, sess auth.Session) context.Context {
	return context.WithValue(ctx, SessionKey, sess)
}

// SessionFromContext extracts the session stored by the auth interceptor.
func SessionFromContext(ctx context.Context) (auth.Session, bool) {
	sess, ok := ctx.Value(SessionKey).(auth.Session)
	return sess, ok && sess.Valid()
}

// GetUserID extracts the user ID from the context.
// Returns empty string if not found.
func GetUserID(ctx context.Context) string {
	sess, _ := SessionFromContext(ctx)
	return sess.UserID
}

// AuthInterceptor validates bearer tokens on unary and streaming calls and
// stores the resulting auth.Session in the request context.
type AuthInterceptor struct {
	jwtManager *auth.JWTManager
	public     map[string]bool
}

// NewAuthInterceptor requires a valid token on every procedure except the
// public ones, which get a session only when a valid token is supplied.
func NewAuthInterceptor(jwtManager *auth.JWTManager, publicProcedures ...string) *AuthInterceptor {
	public := make(map[string]bool, len(publicProcedures))
	for _, p := range publicProcedures {
		public[p] = true
	}
	return &AuthInterceptor{jwtManager: jwtManager, public: public}
}

func (i *AuthInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		if req.Spec().IsClient {
			return next(ctx, req)
		}
		ctx, err := i.authenticate(ctx, req.Spec().Procedure, req.Header())
		if err != nil {
			return nil, err
		}
		return next(ctx, req)
	}
}

func (i *AuthInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return next
}

func (i *AuthInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return func(ctx context.Context, conn connect.StreamingHandlerConn) error {
		ctx, err := i.authenticate(ctx, conn.Spec().Procedure, conn.RequestHeader())
		if err != nil {
			return err
		}
		return next(ctx, conn)
	}
}

func (i *AuthInterceptor) authenticate(ctx context.Context, procedure string, header http.Header) (context.Context, error) {
	claims, err := i.claims(header)
	if err != nil {
		if i.public[procedure] {
			return ctx, nil
		}
		return ctx, connect.NewError(connect.CodeUnauthenticated, err)
	}
	return WithSession(ctx, claims.Session()), nil
}

func (i *AuthInterceptor) claims(header http.Header) (*auth.Claims, error) {
	authHeader := header.Get("Authorization")
	if authHeader == "" {
		return nil, auth.ErrMissingToken
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, auth.ErrInvalidToken
	}
	return i.jwtManager.Validate(parts[1])
}

// TokenInterceptor attaches a bearer token to outgoing client calls.
// The token is read on every call so a client can sign in after creation.
type TokenInterceptor struct {
	Token func() string
}

func (t TokenInterceptor) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		if tok := t.Token(); tok != "" && req.Spec().IsClient {
			req.Header().Set("Authorization", "Bearer "+tok)
		}
		return next(ctx, req)
	}
}

func (t TokenInterceptor) WrapStreamingClient(next connect.StreamingClientFunc) connect.StreamingClientFunc {
	return func(ctx context.Context, spec connect.Spec) connect.StreamingClientConn {
		conn := next(ctx, spec)
		if tok := t.Token(); tok != "" {
			conn.RequestHeader().Set("Authorization", "Bearer "+tok)
		}
		return conn
	}
}

func (t TokenInterceptor) WrapStreamingHandler(next connect.StreamingHandlerFunc) connect.StreamingHandlerFunc {
	return next
}
