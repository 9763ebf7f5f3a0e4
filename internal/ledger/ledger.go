// Package ledger implements the friend directory and expense operations.
// Every operation takes the acting auth.Session explicitly.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"time"

	"github.com/mmynk/splitfriends/internal/auth"
	"github.com/mmynk/splitfriends/internal/calculator"
	"github.com/mmynk/splitfriends/internal/feed"
	"github.com/mmynk/splitfriends/internal/models"
	"github.com/mmynk/splitfriends/internal/storage"
	"github.com/mmynk/splitfriends/internal/validate"
)

const (
	DefaultSearchLimit = 50
	MaxSearchLimit     = 100
)

var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrEmptySearch     = errors.New("search term is required")
	ErrSearchFailed    = errors.New("failed to search users")
	ErrSelfFriend      = errors.New("cannot add yourself as a friend")
	ErrUserNotFound    = errors.New("user not found")
	ErrAddFriendFailed = errors.New("failed to add friend")
	ErrSplitFailed     = errors.New("failed to split bill")
	ErrListFailed      = errors.New("failed to load expenses")
)

// Notifier is told about every recorded expense.
type Notifier interface {
	ExpenseRecorded(ctx context.Context, ev feed.Event) error
}

// Subscriber hands out change signals for one user's expenses.
type Subscriber interface {
	Subscribe(userID string) (<-chan struct{}, func())
}

// Match is a directory search result.
type Match struct {
	User     models.UserSummary
	IsFriend bool
}

// Ledger coordinates the store and the change feed.
type Ledger struct {
	store    storage.Store
	notifier Notifier
	feed     Subscriber
	now      func() time.Time
}

// New creates a Ledger. notifier receives expense events; feed provides
// the subscriptions behind WatchExpenses.
func New(store storage.Store, notifier Notifier, feed Subscriber) *Ledger {
	return &Ledger{
		store:    store,
		notifier: notifier,
		feed:     feed,
		now:      time.Now,
	}
}

// SearchUsers returns directory entries whose username starts with term,
// excluding the caller, flagged with membership in the caller's friend list.
func (l *Ledger) SearchUsers(ctx context.Context, sess auth.Session, term string, limit int) ([]Match, error) {
	if !sess.Valid() {
		return nil, ErrUnauthenticated
	}
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, ErrEmptySearch
	}
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	if limit > MaxSearchLimit {
		limit = MaxSearchLimit
	}

	users, err := l.store.SearchUsersByUsername(ctx, term, sess.UserID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}
	friends, err := l.store.ListFriendIDs(ctx, sess.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}
	friendSet := make(map[string]bool, len(friends))
	for _, f := range friends {
		friendSet[f] = true
	}

	matches := make([]Match, 0, len(users))
	for _, u := range users {
		if u.ID == sess.UserID {
			continue
		}
		matches = append(matches, Match{User: u.Summary(), IsFriend: friendSet[u.ID]})
	}
	return matches, nil
}

// AddFriend adds friendID to the caller's friend list (set union) and
// returns the resulting list.
func (l *Ledger) AddFriend(ctx context.Context, sess auth.Session, friendID string) ([]string, error) {
	if !sess.Valid() {
		return nil, ErrUnauthenticated
	}
	friendID = strings.TrimSpace(friendID)
	if friendID == "" {
		return nil, ErrUserNotFound
	}
	if friendID == sess.UserID {
		return nil, ErrSelfFriend
	}

	if _, err := l.store.GetUserByID(ctx, friendID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrAddFriendFailed, err)
	}

	if err := l.store.AddFriend(ctx, sess.UserID, friendID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAddFriendFailed, err)
	}

	friends, err := l.store.ListFriendIDs(ctx, sess.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAddFriendFailed, err)
	}
	return friends, nil
}

// Friends resolves the caller's friend list into directory entries,
// in the order they were added. Friends whose accounts vanished are skipped.
func (l *Ledger) Friends(ctx context.Context, sess auth.Session) ([]models.UserSummary, error) {
	if !sess.Valid() {
		return nil, ErrUnauthenticated
	}
	ids, err := l.store.ListFriendIDs(ctx, sess.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list friends: %w", err)
	}
	users, err := l.store.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve friends: %w", err)
	}

	friends := make([]models.UserSummary, 0, len(ids))
	for _, id := range ids {
		if u, ok := users[id]; ok {
			friends = append(friends, u.Summary())
		}
	}
	return friends, nil
}

// RecordExpense validates form and persists an expense paid by the caller,
// split equally between the caller and form.SplitWith.
func (l *Ledger) RecordExpense(ctx context.Context, sess auth.Session, form validate.Expense) (*models.Expense, error) {
	if !sess.Valid() {
		return nil, ErrUnauthenticated
	}

	friends, err := l.store.ListFriendIDs(ctx, sess.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSplitFailed, err)
	}
	input, err := validate.CheckExpense(form, sess.UserID, friends)
	if err != nil {
		return nil, err
	}

	split, err := calculator.EqualSplit(input.AmountCents, len(input.SplitWith))
	if err != nil {
		return nil, validate.Errors{"amount": err.Error()}
	}

	participants := make([]string, 0, len(input.SplitWith)+1)
	participants = append(participants, sess.UserID)
	participants = append(participants, input.SplitWith...)

	expense := &models.Expense{
		Description:      input.Description,
		AmountCents:      input.AmountCents,
		PaidBy:           sess.UserID,
		PaidByUsername:   sess.Username,
		Participants:     participants,
		SplitAmountCents: split.ShareCents,
		PayerShareCents:  split.PayerShareCents,
		Date:             l.now().UnixMilli(),
		Settled:          false,
	}
	if err := l.store.CreateExpense(ctx, expense); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSplitFailed, err)
	}

	if l.notifier != nil {
		ev := feed.Event{ExpenseID: expense.ID, Participants: expense.Participants}
		if err := l.notifier.ExpenseRecorded(ctx, ev); err != nil {
			// The expense is stored; watchers will catch up on their next snapshot.
			slog.Warn("Failed to publish expense event", "expense_id", expense.ID, "error", err)
		}
	}

	return expense, nil
}

// Expenses lists every expense the caller takes part in, newest first.
func (l *Ledger) Expenses(ctx context.Context, sess auth.Session) ([]*models.Expense, error) {
	if !sess.Valid() {
		return nil, ErrUnauthenticated
	}
	expenses, err := l.store.ListExpensesByParticipant(ctx, sess.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrListFailed, err)
	}
	return expenses, nil
}

// Balances nets the caller's unsettled expenses per counterparty.
func (l *Ledger) Balances(ctx context.Context, sess auth.Session) (calculator.Summary, error) {
	expenses, err := l.Expenses(ctx, sess)
	if err != nil {
		return calculator.Summary{}, err
	}

	in := make([]calculator.ExpenseForBalance, len(expenses))
	for i, e := range expenses {
		in[i] = calculator.ExpenseForBalance{
			PaidBy:           e.PaidBy,
			Participants:     e.Participants,
			SplitAmountCents: e.SplitAmountCents,
			Settled:          e.Settled,
		}
	}
	return calculator.CalculateBalances(sess.UserID, in)
}

// WatchExpenses yields the caller's current expense list, then a fresh list
// after every change that touches the caller. The sequence ends when ctx is
// done, when the consumer stops iterating, or after yielding an error.
// Each iteration opens its own subscription, so the sequence can be restarted.
func (l *Ledger) WatchExpenses(ctx context.Context, sess auth.Session) iter.Seq2[[]*models.Expense, error] {
	return func(yield func([]*models.Expense, error) bool) {
		if !sess.Valid() {
			yield(nil, ErrUnauthenticated)
			return
		}

		// Subscribe before the first read so no change slips in between.
		changes, cancel := l.feed.Subscribe(sess.UserID)
		defer cancel()

		for {
			expenses, err := l.Expenses(ctx, sess)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(expenses, nil) {
				return
			}

			select {
			case <-ctx.Done():
				return
			case <-changes:
			}
		}
	}
}
