package service

import (
	"context"
	"errors"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/splitfriends/internal/auth"
	"github.com/mmynk/splitfriends/internal/models"
	"github.com/mmynk/splitfriends/internal/storage"
	"github.com/mmynk/splitfriends/internal/validate"
	"github.com/mmynk/splitfriends/pkg/api"
)

// UserLookup resolves the signed-in user's account.
type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// AccountService implements the AccountService RPC interface.
type AccountService struct {
	authenticator auth.Authenticator
	jwtManager    *auth.JWTManager
	users         UserLookup
	logger        *slog.Logger
}

// NewAccountService creates a new account service.
func NewAccountService(authenticator auth.Authenticator, jwtManager *auth.JWTManager, users UserLookup, logger *slog.Logger) *AccountService {
	return &AccountService{
		authenticator: authenticator,
		jwtManager:    jwtManager,
		users:         users,
		logger:        logger,
	}
}

// SignUp creates a new user account and signs it in.
func (s *AccountService) SignUp(ctx context.Context, req *connect.Request[api.SignUpRequest]) (*connect.Response[api.SignUpResponse], error) {
	s.logger.Info("SignUp request", "email", req.Msg.Email, "username", req.Msg.Username)

	form := validate.SignUp{Email: req.Msg.Email, Password: req.Msg.Password, Username: req.Msg.Username}
	if err := validate.CheckSignUp(form); err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	user, err := s.authenticator.Register(ctx, req.Msg.Email, req.Msg.Username, req.Msg.Password)
	if err != nil {
		s.logger.Error("Registration failed", "email", req.Msg.Email, "error", err)
		switch {
		case errors.Is(err, auth.ErrEmailExists), errors.Is(err, auth.ErrUsernameExists):
			return nil, connect.NewError(connect.CodeAlreadyExists, err)
		case errors.Is(err, auth.ErrWeakPassword):
			return nil, connect.NewError(connect.CodeInvalidArgument, err)
		}
		return nil, connect.NewError(connect.CodeInternal, errors.New("failed to create account"))
	}

	token, err := s.jwtManager.Generate(user)
	if err != nil {
		s.logger.Error("Failed to generate token", "user_id", user.ID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	s.logger.Info("User registered successfully", "user_id", user.ID, "username", user.Username)
	return connect.NewResponse(&api.SignUpResponse{User: userToAPI(user), Token: token}), nil
}

// SignIn authenticates a user and returns a JWT token.
func (s *AccountService) SignIn(ctx context.Context, req *connect.Request[api.SignInRequest]) (*connect.Response[api.SignInResponse], error) {
	s.logger.Info("SignIn request", "email", req.Msg.Email)

	if err := validate.CheckSignIn(req.Msg.Email, req.Msg.Password); err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	user, err := s.authenticator.Authenticate(ctx, req.Msg.Email, req.Msg.Password)
	if err != nil {
		s.logger.Warn("SignIn failed", "email", req.Msg.Email, "error", err)
		return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrInvalidCredentials)
	}

	token, err := s.jwtManager.Generate(user)
	if err != nil {
		s.logger.Error("Failed to generate token", "user_id", user.ID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, errors.New(MsgSignInFailed))
	}

	s.logger.Info("User signed in", "user_id", user.ID)
	return connect.NewResponse(&api.SignInResponse{User: userToAPI(user), Token: token}), nil
}

// SignOut is a no-op on the server: tokens are stateless and the client
// discards its copy.
func (s *AccountService) SignOut(ctx context.Context, req *connect.Request[api.SignOutRequest]) (*connect.Response[api.SignOutResponse], error) {
	s.logger.Info("SignOut request")
	return connect.NewResponse(&api.SignOutResponse{}), nil
}

// GetCurrentUser returns the signed-in user's account.
func (s *AccountService) GetCurrentUser(ctx context.Context, req *connect.Request[api.GetCurrentUserRequest]) (*connect.Response[api.GetCurrentUserResponse], error) {
	sess, err := requireSession(ctx)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetUserByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, connect.NewError(connect.CodeNotFound, errors.New("account no longer exists"))
		}
		s.logger.Error("Failed to load current user", "user_id", sess.UserID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, errors.New("failed to load account"))
	}

	return connect.NewResponse(&api.GetCurrentUserResponse{User: userToAPI(user)}), nil
}
