package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/splitfriends/internal/models"
	"github.com/mmynk/splitfriends/internal/storage"
)

// setupTestStore connects to POSTGRES_TEST_DSN and wipes the tables.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}

	ctx := context.Background()
	store, err := New(ctx, dsn)
	require.NoError(t, err)

	_, err = store.pool.Exec(ctx, "TRUNCATE expense_participants, expenses, friends, users CASCADE")
	require.NoError(t, err)

	t.Cleanup(func() { store.Close() })
	return store
}

func createUser(t *testing.T, store *Store, username string) *models.User {
	t.Helper()
	user := models.NewUser(username, username+"@example.com", "hash")
	require.NoError(t, store.CreateUser(context.Background(), user))
	return user
}

func TestStore_UsersAndSearch(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	me := createUser(t, store, "alina")
	createUser(t, store, "alice")
	createUser(t, store, "alicia")
	createUser(t, store, "bob")

	users, err := store.SearchUsersByUsername(ctx, "ali", me.ID, 50)
	require.NoError(t, err)

	var names []string
	for _, u := range users {
		names = append(names, u.Username)
	}
	assert.Equal(t, []string{"alice", "alicia"}, names)

	err = store.CreateUser(ctx, models.NewUser("bob", "bob2@example.com", "hash"))
	assert.ErrorIs(t, err, storage.ErrUsernameTaken)

	err = store.CreateUser(ctx, models.NewUser("bobby", "bob@example.com", "hash"))
	assert.ErrorIs(t, err, storage.ErrEmailTaken)

	_, err = store.GetUserByID(ctx, uuid.New().String())
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_FriendsAreASet(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	u1 := createUser(t, store, "u1")
	for _, id := range []string{"u2", "u9", "u9"} {
		require.NoError(t, store.AddFriend(ctx, u1.ID, id))
	}

	friends, err := store.ListFriendIDs(ctx, u1.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"u2", "u9"}, friends)
}

func TestStore_Expenses(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	e := &models.Expense{
		Description:      "Dinner",
		AmountCents:      9000,
		PaidBy:           "u1",
		PaidByUsername:   "alice",
		Participants:     []string{"u1", "u2", "u3"},
		SplitAmountCents: 3000,
		PayerShareCents:  3000,
	}
	require.NoError(t, store.CreateExpense(ctx, e))
	assert.NotEmpty(t, e.ID)

	expenses, err := store.ListExpensesByParticipant(ctx, "u3")
	require.NoError(t, err)
	require.Len(t, expenses, 1)
	assert.Equal(t, []string{"u1", "u2", "u3"}, expenses[0].Participants)
	assert.Equal(t, int64(9000), expenses[0].AmountCents)
	assert.False(t, expenses[0].Settled)

	expenses, err = store.ListExpensesByParticipant(ctx, "u9")
	require.NoError(t, err)
	assert.Empty(t, expenses)
}
