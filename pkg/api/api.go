// Package api defines the request and response messages exchanged by the
// splitfriends.v1 Connect services. Money travels as decimal strings.
package api

import "github.com/shopspring/decimal"

// User is the public view of an account.
type User struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	CreatedAt int64  `json:"createdAt,omitempty"`
}

// Expense is a recorded expense as seen by one of its participants.
type Expense struct {
	ID             string          `json:"id"`
	Description    string          `json:"description"`
	Amount         decimal.Decimal `json:"amount"`
	PaidBy         string          `json:"paidBy"`
	PaidByUsername string          `json:"paidByUsername"`
	Participants   []string        `json:"participants"`
	SplitAmount    decimal.Decimal `json:"splitAmount"`
	PayerShare     decimal.Decimal `json:"payerShare"`
	// Date is in Unix milliseconds.
	Date    int64 `json:"date"`
	Settled bool  `json:"settled"`
}

// Account service

type SignUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
}

type SignUpResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignInResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

type SignOutRequest struct{}

type SignOutResponse struct{}

type GetCurrentUserRequest struct{}

type GetCurrentUserResponse struct {
	User *User `json:"user"`
}

// Friend service

type SearchUsersRequest struct {
	Term string `json:"term"`
	// Limit caps the number of results. Zero means the server default.
	Limit int32 `json:"limit,omitempty"`
}

type UserMatch struct {
	User     *User `json:"user"`
	IsFriend bool  `json:"isFriend"`
}

type SearchUsersResponse struct {
	Users []*UserMatch `json:"users"`
}

type AddFriendRequest struct {
	FriendID string `json:"friendId"`
}

type AddFriendResponse struct {
	// Friends is the caller's full friend list after the update.
	Friends []string `json:"friends"`
}

type ListFriendsRequest struct{}

type ListFriendsResponse struct {
	Friends []*User `json:"friends"`
}

// Expense service

type CreateExpenseRequest struct {
	Description string `json:"description"`
	// Amount is the raw decimal text entered by the payer, e.g. "90" or "12.50".
	Amount    string   `json:"amount"`
	SplitWith []string `json:"splitWith"`
}

type CreateExpenseResponse struct {
	Expense *Expense `json:"expense"`
}

type ListExpensesRequest struct{}

type ListExpensesResponse struct {
	Expenses []*Expense `json:"expenses"`
}

type WatchExpensesRequest struct{}

// WatchExpensesResponse is one full snapshot of the caller's expenses.
type WatchExpensesResponse struct {
	Expenses []*Expense `json:"expenses"`
}

type GetBalancesRequest struct{}

type Balance struct {
	User *User `json:"user"`
	// Net is positive when the user owes the caller.
	Net decimal.Decimal `json:"net"`
}

type GetBalancesResponse struct {
	Paid     decimal.Decimal `json:"paid"`
	Owed     decimal.Decimal `json:"owed"`
	Net      decimal.Decimal `json:"net"`
	Balances []*Balance      `json:"balances"`
}
