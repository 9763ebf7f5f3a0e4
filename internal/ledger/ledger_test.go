package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/splitfriends/internal/auth"
	"github.com/mmynk/splitfriends/internal/feed"
	"github.com/mmynk/splitfriends/internal/models"
	"github.com/mmynk/splitfriends/internal/storage"
	"github.com/mmynk/splitfriends/internal/storage/sqlite"
	"github.com/mmynk/splitfriends/internal/validate"
)

// failingStore simulates a store outage on expense writes.
type failingStore struct {
	storage.Store
}

func (failingStore) CreateExpense(context.Context, *models.Expense) error {
	return errors.New("connection refused")
}

type fixture struct {
	ledger *Ledger
	store  *sqlite.SQLiteStore
	broker *feed.Broker
	users  map[string]auth.Session
}

func setup(t *testing.T, usernames ...string) *fixture {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	broker := feed.NewBroker()
	f := &fixture{
		ledger: New(store, broker, broker),
		store:  store,
		broker: broker,
		users:  make(map[string]auth.Session),
	}
	for _, name := range usernames {
		u := models.NewUser(name, name+"@example.com", "hash")
		require.NoError(t, store.CreateUser(context.Background(), u))
		f.users[name] = auth.Session{UserID: u.ID, Username: u.Username, Email: u.Email}
	}
	return f
}

func (f *fixture) befriend(t *testing.T, from string, to ...string) {
	t.Helper()
	for _, name := range to {
		_, err := f.ledger.AddFriend(context.Background(), f.users[from], f.users[name].UserID)
		require.NoError(t, err)
	}
}

func TestSearchUsers(t *testing.T) {
	f := setup(t, "me", "alice", "alicia", "bob")
	ctx := context.Background()
	me := f.users["me"]

	f.befriend(t, "me", "alicia")

	matches, err := f.ledger.SearchUsers(ctx, me, "  ali ", 0)
	require.NoError(t, err)
	require.Len(t, matches, 2)

	assert.Equal(t, "alice", matches[0].User.Username)
	assert.False(t, matches[0].IsFriend)
	assert.Equal(t, "alicia", matches[1].User.Username)
	assert.True(t, matches[1].IsFriend)

	for _, term := range []string{"a", "al", "b", "m", "me", "z"} {
		matches, err := f.ledger.SearchUsers(ctx, me, term, 0)
		require.NoError(t, err)
		for _, m := range matches {
			assert.NotEqual(t, me.UserID, m.User.ID, "search %q returned the caller", term)
		}
	}
}

func TestSearchUsers_Errors(t *testing.T) {
	f := setup(t, "me")
	ctx := context.Background()

	_, err := f.ledger.SearchUsers(ctx, f.users["me"], "   ", 0)
	assert.ErrorIs(t, err, ErrEmptySearch)

	_, err = f.ledger.SearchUsers(ctx, auth.Session{}, "a", 0)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	f.store.Close()
	_, err = f.ledger.SearchUsers(ctx, f.users["me"], "a", 0)
	assert.ErrorIs(t, err, ErrSearchFailed)
}

func TestAddFriend_IsIdempotent(t *testing.T) {
	f := setup(t, "u1", "u2", "u9")
	ctx := context.Background()
	u1 := f.users["u1"]

	f.befriend(t, "u1", "u2")

	once, err := f.ledger.AddFriend(ctx, u1, f.users["u9"].UserID)
	require.NoError(t, err)
	twice, err := f.ledger.AddFriend(ctx, u1, f.users["u9"].UserID)
	require.NoError(t, err)

	assert.Equal(t, once, twice)
	assert.Equal(t, []string{f.users["u2"].UserID, f.users["u9"].UserID}, twice)
}

func TestAddFriend_Errors(t *testing.T) {
	f := setup(t, "u1")
	ctx := context.Background()
	u1 := f.users["u1"]

	_, err := f.ledger.AddFriend(ctx, u1, u1.UserID)
	assert.ErrorIs(t, err, ErrSelfFriend)

	_, err = f.ledger.AddFriend(ctx, u1, "ghost")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestAddFriend_OneDirectional(t *testing.T) {
	f := setup(t, "u1", "u2")
	f.befriend(t, "u1", "u2")

	friends, err := f.ledger.Friends(context.Background(), f.users["u2"])
	require.NoError(t, err)
	assert.Empty(t, friends)

	friends, err = f.ledger.Friends(context.Background(), f.users["u1"])
	require.NoError(t, err)
	require.Len(t, friends, 1)
	assert.Equal(t, "u2", friends[0].Username)
}

func TestRecordExpense(t *testing.T) {
	f := setup(t, "u1", "u2", "u3")
	ctx := context.Background()
	f.befriend(t, "u1", "u2", "u3")

	fixed := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	f.ledger.now = func() time.Time { return fixed }

	u1 := f.users["u1"]
	expense, err := f.ledger.RecordExpense(ctx, u1, validate.Expense{
		Description: "Dinner",
		Amount:      "90",
		SplitWith:   []string{f.users["u2"].UserID, f.users["u3"].UserID},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, expense.ID)
	assert.Equal(t, int64(9000), expense.AmountCents)
	assert.Equal(t, int64(3000), expense.SplitAmountCents)
	assert.Equal(t, int64(3000), expense.PayerShareCents)
	assert.Equal(t, []string{u1.UserID, f.users["u2"].UserID, f.users["u3"].UserID}, expense.Participants)
	assert.Equal(t, "u1", expense.PaidByUsername)
	assert.Equal(t, fixed.UnixMilli(), expense.Date)
	assert.False(t, expense.Settled)

	for _, name := range []string{"u1", "u2", "u3"} {
		list, err := f.ledger.Expenses(ctx, f.users[name])
		require.NoError(t, err)
		require.Len(t, list, 1, "%s should see the expense", name)

		payerCount := 0
		for _, p := range list[0].Participants {
			if p == u1.UserID {
				payerCount++
			}
		}
		assert.Equal(t, 1, payerCount)
	}
}

func TestRecordExpense_Validation(t *testing.T) {
	f := setup(t, "u1", "u2", "stranger")
	ctx := context.Background()
	f.befriend(t, "u1", "u2")
	u1 := f.users["u1"]
	u2 := f.users["u2"].UserID

	tests := []struct {
		name  string
		form  validate.Expense
		field string
	}{
		{"no friends selected", validate.Expense{Description: "x", Amount: "10"}, "splitWith"},
		{"payer as participant", validate.Expense{Description: "x", Amount: "10", SplitWith: []string{u1.UserID}}, "splitWith"},
		{"duplicate participant", validate.Expense{Description: "x", Amount: "10", SplitWith: []string{u2, u2}}, "splitWith"},
		{"not a friend", validate.Expense{Description: "x", Amount: "10", SplitWith: []string{f.users["stranger"].UserID}}, "splitWith"},
		{"non-numeric amount", validate.Expense{Description: "x", Amount: "lots", SplitWith: []string{u2}}, "amount"},
		{"negative amount", validate.Expense{Description: "x", Amount: "-1", SplitWith: []string{u2}}, "amount"},
		{"empty description", validate.Expense{Amount: "1", SplitWith: []string{u2}}, "description"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ledger.RecordExpense(ctx, u1, tt.form)
			fe, ok := validate.AsErrors(err)
			require.True(t, ok, "expected validation error, got %v", err)
			assert.Contains(t, fe, tt.field)
		})
	}

	list, err := f.ledger.Expenses(ctx, u1)
	require.NoError(t, err)
	assert.Empty(t, list, "rejected forms must not persist anything")
}

func TestRecordExpense_StoreOutage(t *testing.T) {
	f := setup(t, "u1", "u2")
	f.befriend(t, "u1", "u2")
	ctx := context.Background()

	broken := New(failingStore{f.store}, f.broker, f.broker)
	_, err := broken.RecordExpense(ctx, f.users["u1"], validate.Expense{
		Description: "Taxi", Amount: "20", SplitWith: []string{f.users["u2"].UserID},
	})
	assert.ErrorIs(t, err, ErrSplitFailed)

	list, err := f.ledger.Expenses(ctx, f.users["u1"])
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestBalances(t *testing.T) {
	f := setup(t, "u1", "u2")
	ctx := context.Background()
	f.befriend(t, "u1", "u2")
	f.befriend(t, "u2", "u1")

	_, err := f.ledger.RecordExpense(ctx, f.users["u1"], validate.Expense{
		Description: "Groceries", Amount: "50", SplitWith: []string{f.users["u2"].UserID},
	})
	require.NoError(t, err)
	_, err = f.ledger.RecordExpense(ctx, f.users["u2"], validate.Expense{
		Description: "Coffee", Amount: "10", SplitWith: []string{f.users["u1"].UserID},
	})
	require.NoError(t, err)

	summary, err := f.ledger.Balances(ctx, f.users["u1"])
	require.NoError(t, err)
	assert.Equal(t, int64(2000), summary.NetCents())
	require.Len(t, summary.Counterparties, 1)
	assert.Equal(t, f.users["u2"].UserID, summary.Counterparties[0].UserID)
}

func TestWatchExpenses(t *testing.T) {
	f := setup(t, "u1", "u2")
	f.befriend(t, "u1", "u2")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	snapshots := make(chan int, 4)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for expenses, err := range f.ledger.WatchExpenses(ctx, f.users["u2"]) {
			if err != nil {
				return
			}
			snapshots <- len(expenses)
			if len(expenses) == 2 {
				return
			}
		}
	}()

	require.Equal(t, 0, <-snapshots, "first snapshot is the current state")

	for i := 0; i < 2; i++ {
		_, err := f.ledger.RecordExpense(ctx, f.users["u1"], validate.Expense{
			Description: "Round", Amount: "8", SplitWith: []string{f.users["u2"].UserID},
		})
		require.NoError(t, err)
	}

	var last int
	for last != 2 {
		select {
		case last = <-snapshots:
		case <-ctx.Done():
			t.Fatal("timed out waiting for snapshot")
		}
	}
	<-done
	assert.Eventually(t, func() bool { return f.broker.Subscribers(f.users["u2"].UserID) == 0 },
		time.Second, 10*time.Millisecond, "subscription should be released")
}

func TestWatchExpenses_Unauthenticated(t *testing.T) {
	f := setup(t)
	for _, err := range f.ledger.WatchExpenses(context.Background(), auth.Session{}) {
		assert.ErrorIs(t, err, ErrUnauthenticated)
	}
}
