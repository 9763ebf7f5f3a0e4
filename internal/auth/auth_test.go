package auth

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmynk/splitfriends/internal/storage/sqlite"
)

func newTestAuthenticator(t *testing.T) *PasswordAuthenticator {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "auth.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return NewPasswordAuthenticator(store).WithCost(bcrypt.MinCost)
}

func TestPasswordAuthenticator(t *testing.T) {
	a := newTestAuthenticator(t)
	ctx := context.Background()

	user, err := a.Register(ctx, "alice@example.com", "alice", "secret1")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if user.ID == "" || user.Username != "alice" {
		t.Errorf("unexpected user: %+v", user)
	}
	if user.PasswordHash == "secret1" {
		t.Error("password stored in clear text")
	}

	t.Run("weak password", func(t *testing.T) {
		_, err := a.Register(ctx, "bob@example.com", "bob", "123")
		if !errors.Is(err, ErrWeakPassword) {
			t.Errorf("expected ErrWeakPassword, got %v", err)
		}
	})

	t.Run("duplicate email", func(t *testing.T) {
		_, err := a.Register(ctx, "alice@example.com", "alice2", "secret1")
		if !errors.Is(err, ErrEmailExists) {
			t.Errorf("expected ErrEmailExists, got %v", err)
		}
	})

	t.Run("duplicate username", func(t *testing.T) {
		_, err := a.Register(ctx, "alice2@example.com", "alice", "secret1")
		if !errors.Is(err, ErrUsernameExists) {
			t.Errorf("expected ErrUsernameExists, got %v", err)
		}
	})

	t.Run("authenticate", func(t *testing.T) {
		got, err := a.Authenticate(ctx, "alice@example.com", "secret1")
		if err != nil {
			t.Fatalf("Authenticate failed: %v", err)
		}
		if got.ID != user.ID {
			t.Errorf("ID mismatch: got %s, want %s", got.ID, user.ID)
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := a.Authenticate(ctx, "alice@example.com", "nope-nope")
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("expected ErrInvalidCredentials, got %v", err)
		}
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := a.Authenticate(ctx, "ghost@example.com", "secret1")
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("expected ErrInvalidCredentials, got %v", err)
		}
	})
}

func TestJWTManager(t *testing.T) {
	a := newTestAuthenticator(t)
	user, err := a.Register(context.Background(), "carol@example.com", "carol", "secret1")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	m := NewJWTManager("test-secret", time.Hour)
	token, err := m.Generate(user)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	claims, err := m.Validate(token)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	sess := claims.Session()
	if sess.UserID != user.ID || sess.Username != "carol" || sess.Email != "carol@example.com" {
		t.Errorf("unexpected session: %+v", sess)
	}

	if _, err := NewJWTManager("other-secret", time.Hour).Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for wrong secret, got %v", err)
	}

	expired, err := NewJWTManager("test-secret", -time.Minute).Generate(user)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if _, err := m.Validate(expired); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestJWTManager_RejectsForeignTokens(t *testing.T) {
	m := NewJWTManager("test-secret", time.Hour)
	now := time.Now()
	registered := func(issuer, subject string) jwt.RegisteredClaims {
		return jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		}
	}

	tests := []struct {
		name   string
		method jwt.SigningMethod
		claims *Claims
	}{
		{"other issuer", jwt.SigningMethodHS256, &Claims{RegisteredClaims: registered("someone-else", "u1")}},
		{"other algorithm", jwt.SigningMethodHS512, &Claims{RegisteredClaims: registered(Issuer, "u1")}},
		{"no subject", jwt.SigningMethodHS256, &Claims{RegisteredClaims: registered(Issuer, "")}},
		{"no expiry", jwt.SigningMethodHS256, &Claims{RegisteredClaims: jwt.RegisteredClaims{Issuer: Issuer, Subject: "u1"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := jwt.NewWithClaims(tt.method, tt.claims).SignedString([]byte("test-secret"))
			if err != nil {
				t.Fatalf("sign: %v", err)
			}
			if _, err := m.Validate(token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}
