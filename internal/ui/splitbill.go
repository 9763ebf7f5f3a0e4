package ui

import (
	"context"
	"slices"

	"connectrpc.com/connect"

	"github.com/mmynk/splitfriends/internal/validate"
	"github.com/mmynk/splitfriends/pkg/api"
	"github.com/mmynk/splitfriends/pkg/api/apiconnect"
)

// SplitBillForm records an expense paid by the signed-in user.
type SplitBillForm struct {
	Description string
	Amount      string
	SplitWith   []string

	// Friends are the selectable participants, loaded by LoadFriends.
	Friends     []*api.User
	FieldErrors validate.Errors

	payerID  string
	friends  apiconnect.FriendServiceClient
	expenses apiconnect.ExpenseServiceClient
	toaster  Toaster
}

func NewSplitBillForm(payerID string, friends apiconnect.FriendServiceClient, expenses apiconnect.ExpenseServiceClient, toaster Toaster) *SplitBillForm {
	return &SplitBillForm{payerID: payerID, friends: friends, expenses: expenses, toaster: toaster}
}

// LoadFriends fetches the friend picker options.
func (f *SplitBillForm) LoadFriends(ctx context.Context) error {
	resp, err := f.friends.ListFriends(ctx, connect.NewRequest(&api.ListFriendsRequest{}))
	if err != nil {
		return err
	}
	f.Friends = resp.Msg.Friends
	return nil
}

// Toggle selects or deselects a friend.
func (f *SplitBillForm) Toggle(id string) {
	if i := slices.Index(f.SplitWith, id); i >= 0 {
		f.SplitWith = slices.Delete(f.SplitWith, i, i+1)
		return
	}
	f.SplitWith = append(f.SplitWith, id)
}

// Select adds ids to the selection as given. Unlike Toggle it never
// deselects, so a repeated id is left for Submit to reject.
func (f *SplitBillForm) Select(ids ...string) {
	f.SplitWith = append(f.SplitWith, ids...)
}

// Submit validates the form and records the expense. Invalid input sets
// FieldErrors and makes no call. A failed call keeps every value and
// shows one toast; success shows a toast and clears the form.
func (f *SplitBillForm) Submit(ctx context.Context) (*api.Expense, error) {
	form := validate.Expense{Description: f.Description, Amount: f.Amount, SplitWith: f.SplitWith}

	var friendIDs []string
	if f.Friends != nil {
		friendIDs = make([]string, len(f.Friends))
		for i, u := range f.Friends {
			friendIDs[i] = u.ID
		}
	}
	if _, err := validate.CheckExpense(form, f.payerID, friendIDs); err != nil {
		f.FieldErrors, _ = validate.AsErrors(err)
		return nil, err
	}
	f.FieldErrors = nil

	resp, err := f.expenses.CreateExpense(ctx, connect.NewRequest(&api.CreateExpenseRequest{
		Description: f.Description,
		Amount:      f.Amount,
		SplitWith:   slices.Clone(f.SplitWith),
	}))
	if err != nil {
		f.toaster.Toast(ToastError, MsgSplitFailed)
		return nil, err
	}

	f.toaster.Toast(ToastSuccess, MsgBillSplit)
	f.Reset()
	return resp.Msg.Expense, nil
}

// Reset clears the entered values, keeping the loaded friends.
func (f *SplitBillForm) Reset() {
	f.Description = ""
	f.Amount = ""
	f.SplitWith = nil
	f.FieldErrors = nil
}
