package users

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	// ErrNotFound indicates the user does not exist.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicate indicates the username is already taken.
	ErrDuplicate = errors.New("username already registered")
	// ErrInvalid indicates the registration input is unusable.
	ErrInvalid = errors.New("invalid user input")
	// ErrBadCredentials indicates a failed login. Unknown usernames and
	// wrong passwords are deliberately indistinguishable.
	ErrBadCredentials = errors.New("invalid credentials")
)

// User is a registered account. Usernames are stored lowercase and are
// unique.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// NormalizeUsername lowercases and trims a username for storage and lookup.
func NormalizeUsername(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// Repository persists users.
type Repository interface {
	FindByUsername(ctx context.Context, username string) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	Insert(ctx context.Context, user *User) error
}
