package service

import (
	"context"
	"errors"

	"connectrpc.com/connect"

	"github.com/mmynk/splitfriends/internal/auth"
	"github.com/mmynk/splitfriends/internal/calculator"
	"github.com/mmynk/splitfriends/internal/ledger"
	"github.com/mmynk/splitfriends/internal/middleware"
	"github.com/mmynk/splitfriends/internal/models"
	"github.com/mmynk/splitfriends/internal/validate"
	"github.com/mmynk/splitfriends/pkg/api"
)

// User-facing failure messages. Internal details are logged, never returned.
const (
	MsgSearchFailed    = "Failed to search users"
	MsgAddFriendFailed = "Failed to add friend"
	MsgSplitFailed     = "Failed to split bill"
	MsgSignInFailed    = "Failed to sign in"
	MsgLoadFailed      = "Failed to load expenses"
	MsgFriendsFailed   = "Failed to load friends"
)

// requireSession returns the session attached by the auth interceptor.
func requireSession(ctx context.Context) (auth.Session, error) {
	sess, ok := middleware.SessionFromContext(ctx)
	if !ok {
		return auth.Session{}, connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}
	return sess, nil
}

// toConnectError maps ledger and validation errors onto Connect codes.
// Anything unrecognised becomes Internal with the generic message.
func toConnectError(err error, generic string) error {
	if fe, ok := validate.AsErrors(err); ok {
		return connect.NewError(connect.CodeInvalidArgument, fe)
	}
	switch {
	case errors.Is(err, ledger.ErrUnauthenticated):
		return connect.NewError(connect.CodeUnauthenticated, err)
	case errors.Is(err, ledger.ErrEmptySearch), errors.Is(err, ledger.ErrSelfFriend):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, ledger.ErrUserNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	}
	return connect.NewError(connect.CodeInternal, errors.New(generic))
}

func userToAPI(u *models.User) *api.User {
	return &api.User{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}

func summaryToAPI(u models.UserSummary) *api.User {
	return &api.User{ID: u.ID, Username: u.Username, Email: u.Email}
}

func expenseToAPI(e *models.Expense) *api.Expense {
	return &api.Expense{
		ID:             e.ID,
		Description:    e.Description,
		Amount:         calculator.FromCents(e.AmountCents),
		PaidBy:         e.PaidBy,
		PaidByUsername: e.PaidByUsername,
		Participants:   e.Participants,
		SplitAmount:    calculator.FromCents(e.SplitAmountCents),
		PayerShare:     calculator.FromCents(e.PayerShareCents),
		Date:           e.Date,
		Settled:        e.Settled,
	}
}

func expensesToAPI(expenses []*models.Expense) []*api.Expense {
	out := make([]*api.Expense, len(expenses))
	for i, e := range expenses {
		out[i] = expenseToAPI(e)
	}
	return out
}
