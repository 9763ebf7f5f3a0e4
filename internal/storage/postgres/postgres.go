// Package postgres provides a PostgreSQL-backed implementation of the
// storage.Store interface on top of a pgx connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mmynk/splitfriends/internal/models"
	"github.com/mmynk/splitfriends/internal/storage"
)

var _ storage.Store = (*Store)(nil)

const uniqueViolationCode = "23505"

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    username TEXT NOT NULL,
    email TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    created_at BIGINT NOT NULL,
    updated_at BIGINT NOT NULL,
    CONSTRAINT users_username_key UNIQUE (username),
    CONSTRAINT users_email_key UNIQUE (email)
);

CREATE TABLE IF NOT EXISTS friends (
    seq BIGSERIAL,
    user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    friend_id TEXT NOT NULL,
    PRIMARY KEY (user_id, friend_id)
);

CREATE TABLE IF NOT EXISTS expenses (
    id TEXT PRIMARY KEY,
    description TEXT NOT NULL,
    amount_cents BIGINT NOT NULL,
    paid_by TEXT NOT NULL,
    paid_by_username TEXT NOT NULL,
    split_amount_cents BIGINT NOT NULL,
    payer_share_cents BIGINT NOT NULL,
    date BIGINT NOT NULL,
    settled BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS expense_participants (
    expense_id TEXT NOT NULL REFERENCES expenses(id) ON DELETE CASCADE,
    user_id TEXT NOT NULL,
    position INT NOT NULL,
    PRIMARY KEY (expense_id, user_id)
);

CREATE INDEX IF NOT EXISTS idx_users_username_c ON users (username COLLATE "C");
CREATE INDEX IF NOT EXISTS idx_expense_participants_user_id ON expense_participants(user_id);
`

// Store implements storage.Store using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to dsn, verifies the connection and applies the schema.
func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// CreateUser inserts a new user.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, username, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		user.ID, user.Username, user.Email, user.PasswordHash, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			switch pgErr.ConstraintName {
			case "users_username_key":
				return fmt.Errorf("failed to create user: %w", storage.ErrUsernameTaken)
			case "users_email_key":
				return fmt.Errorf("failed to create user: %w", storage.ErrEmailTaken)
			}
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUserByID retrieves a user and their friend list.
func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.getUser(ctx, "id", id)
}

// GetUserByEmail retrieves a user by email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUser(ctx, "email", email)
}

func (s *Store) getUser(ctx context.Context, column, value string) (*models.User, error) {
	user := &models.User{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, username, email, password_hash, created_at, updated_at
		FROM users WHERE `+column+` = $1`,
		value,
	).Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", value, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by %s: %w", column, err)
	}

	user.Friends, err = s.ListFriendIDs(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetUsersByIDs retrieves multiple users; unknown IDs are omitted.
func (s *Store) GetUsersByIDs(ctx context.Context, ids []string) (map[string]*models.User, error) {
	users := make(map[string]*models.User)
	if len(ids) == 0 {
		return users, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, username, email, password_hash, created_at, updated_at
		FROM users WHERE id = ANY($1)`,
		ids,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get users by IDs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		user := &models.User{}
		if err := rows.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users[user.ID] = user
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}

// SearchUsersByUsername runs the prefix range query with byte-wise collation.
func (s *Store) SearchUsersByUsername(ctx context.Context, prefix, excludeID string, limit int) ([]*models.User, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, username, email, created_at, updated_at
		FROM users
		WHERE username COLLATE "C" >= $1 AND username COLLATE "C" < $2 AND id <> $3
		ORDER BY username COLLATE "C"
		LIMIT $4`,
		prefix, prefix+storage.PrefixSentinel, excludeID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user := &models.User{}
		if err := rows.Scan(&user.ID, &user.Username, &user.Email, &user.CreatedAt, &user.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}

// AddFriend appends friendID to the user's friend list; repeats are no-ops.
func (s *Store) AddFriend(ctx context.Context, userID, friendID string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO friends (user_id, friend_id) VALUES ($1, $2)
		ON CONFLICT (user_id, friend_id) DO NOTHING`,
		userID, friendID,
	)
	if err != nil {
		return fmt.Errorf("failed to add friend: %w", err)
	}
	return nil
}

// ListFriendIDs returns the user's friend IDs in insertion order.
func (s *Store) ListFriendIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.pool.Query(ctx, "SELECT friend_id FROM friends WHERE user_id = $1 ORDER BY seq", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list friends: %w", err)
	}
	friends, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan friends: %w", err)
	}
	if friends == nil {
		friends = []string{}
	}
	return friends, nil
}

// CreateExpense persists an expense and its participants in one transaction.
func (s *Store) CreateExpense(ctx context.Context, expense *models.Expense) error {
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	if expense.Date == 0 {
		expense.Date = time.Now().UnixMilli()
	}

	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO expenses (id, description, amount_cents, paid_by, paid_by_username,
				split_amount_cents, payer_share_cents, date, settled)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			expense.ID, expense.Description, expense.AmountCents, expense.PaidBy, expense.PaidByUsername,
			expense.SplitAmountCents, expense.PayerShareCents, expense.Date, expense.Settled,
		)
		if err != nil {
			return fmt.Errorf("failed to insert expense: %w", err)
		}

		batch := &pgx.Batch{}
		for i, userID := range expense.Participants {
			batch.Queue("INSERT INTO expense_participants (expense_id, user_id, position) VALUES ($1, $2, $3)",
				expense.ID, userID, i)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to insert participants: %w", err)
		}
		return nil
	})
}

// ListExpensesByParticipant returns the user's expenses, newest first.
func (s *Store) ListExpensesByParticipant(ctx context.Context, userID string) ([]*models.Expense, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT e.id, e.description, e.amount_cents, e.paid_by, e.paid_by_username,
			e.split_amount_cents, e.payer_share_cents, e.date, e.settled,
			ARRAY(SELECT ep.user_id FROM expense_participants ep
				WHERE ep.expense_id = e.id ORDER BY ep.position) AS participants
		FROM expenses e
		JOIN expense_participants p ON p.expense_id = e.id
		WHERE p.user_id = $1
		ORDER BY e.date DESC, e.id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	expenses := []*models.Expense{}
	for rows.Next() {
		e := &models.Expense{}
		if err := rows.Scan(&e.ID, &e.Description, &e.AmountCents, &e.PaidBy, &e.PaidByUsername,
			&e.SplitAmountCents, &e.PayerShareCents, &e.Date, &e.Settled, &e.Participants); err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}
	return expenses, nil
}
