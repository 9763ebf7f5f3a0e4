package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered user account.
type User struct {
	// ID is the unique identifier for the user (UUID format).
	ID string

	// Username is the public handle other users search for.
	// Unique across the directory.
	Username string

	// Email is the user's email address (unique).
	// Used for sign-in.
	Email string

	// PasswordHash is the bcrypt hash of the user's password.
	PasswordHash string

	// Friends is the ordered set of user IDs this user has added.
	// Populated by the store on reads; writes go through AddFriend.
	Friends []string

	// CreatedAt is the Unix timestamp when the user account was created.
	CreatedAt int64

	// UpdatedAt is the Unix timestamp of the last change to the account.
	UpdatedAt int64
}

// NewUser creates a user with a fresh ID and timestamps.
func NewUser(username, email, passwordHash string) *User {
	now := time.Now().Unix()
	return &User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Summary returns the public view of the user.
func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Username: u.Username, Email: u.Email}
}

// HasFriend reports whether id is in the user's friend list.
func (u *User) HasFriend(id string) bool {
	for _, f := range u.Friends {
		if f == id {
			return true
		}
	}
	return false
}

// UserSummary is the directory entry shown in search results and friend pickers.
type UserSummary struct {
	ID       string
	Username string
	Email    string
}
