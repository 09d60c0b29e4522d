package postgres

import (
	"context"
	"database/sql"
	"errors"

	users "alarmhub/internal/users/domain"
)

// UserRepository is a Postgres repository for accounts.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository constructs a repository.
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByUsername returns the user with the given (normalized) username.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*users.User, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("user repo: nil db")
	}
	row := r.db.QueryRowContext(ctx,
		"SELECT id, username, password_hash, created_at FROM users WHERE username = $1",
		users.NormalizeUsername(username))
	return scanUser(row)
}

// FindByID returns the user with the given id.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*users.User, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("user repo: nil db")
	}
	row := r.db.QueryRowContext(ctx,
		"SELECT id, username, password_hash, created_at FROM users WHERE id = $1", id)
	return scanUser(row)
}

// Insert stores a new user. A unique violation on the username surfaces as
// ErrDuplicate.
func (r *UserRepository) Insert(ctx context.Context, user *users.User) error {
	if r == nil || r.db == nil {
		return errors.New("user repo: nil db")
	}
	if user == nil || user.ID == "" || user.Username == "" {
		return errors.New("user repo: invalid user")
	}
	result, err := r.db.ExecContext(ctx, `
INSERT INTO users (id, username, password_hash, created_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (username) DO NOTHING`,
		user.ID, users.NormalizeUsername(user.Username), user.PasswordHash, user.CreatedAt)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return users.ErrDuplicate
	}
	return nil
}

func scanUser(row *sql.Row) (*users.User, error) {
	var user users.User
	if err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, users.ErrNotFound
		}
		return nil, err
	}
	user.CreatedAt = user.CreatedAt.UTC()
	return &user, nil
}
