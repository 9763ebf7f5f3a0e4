// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/splitfriends/internal/models"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrUsernameTaken = errors.New("username already taken")
	ErrEmailTaken    = errors.New("email already registered")
)

// PrefixSentinel is appended to a search term to form the exclusive upper
// bound of a prefix range: every string starting with term sorts inside
// [term, term+PrefixSentinel).
const PrefixSentinel = "\U0010FFFF"

// UserStore defines the user directory and friend-list operations.
type UserStore interface {
	// CreateUser persists a new user.
	// Returns ErrUsernameTaken or ErrEmailTaken on uniqueness violations.
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByID retrieves a user and their friend list.
	// Returns ErrNotFound if the user does not exist.
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// GetUserByEmail retrieves a user by email address.
	// Returns ErrNotFound if no user has that email.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUsersByIDs retrieves multiple users by their IDs.
	// Users that don't exist are omitted from the result.
	GetUsersByIDs(ctx context.Context, ids []string) (map[string]*models.User, error)

	// SearchUsersByUsername returns users whose username falls in
	// [prefix, prefix+PrefixSentinel), ordered by username, never including excludeID.
	SearchUsersByUsername(ctx context.Context, prefix, excludeID string, limit int) ([]*models.User, error)

	// AddFriend appends friendID to userID's friend list unless already present.
	AddFriend(ctx context.Context, userID, friendID string) error

	// ListFriendIDs returns userID's friend list in the order friends were added.
	ListFriendIDs(ctx context.Context, userID string) ([]string, error)
}

// ExpenseStore defines expense persistence operations.
type ExpenseStore interface {
	// CreateExpense persists a new expense.
	// The expense.ID field will be populated by the store if empty.
	CreateExpense(ctx context.Context, expense *models.Expense) error

	// ListExpensesByParticipant returns every expense userID takes part in,
	// newest first.
	ListExpensesByParticipant(ctx context.Context, userID string) ([]*models.Expense, error)
}

// Store defines the full storage surface.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL)
// without changing the service layer.
type Store interface {
	UserStore
	ExpenseStore

	// Close releases any resources held by the store.
	Close() error
}
