package memory

import (
	"context"
	"errors"
	"sync"

	users "alarmhub/internal/users/domain"
)

// UserRepository is an in-memory account store used by tests.
type UserRepository struct {
	mu   sync.RWMutex
	data map[string]*users.User
}

// NewUserRepository constructs a repository.
func NewUserRepository() *UserRepository {
	return &UserRepository{data: make(map[string]*users.User)}
}

// FindByUsername returns the user with the given (normalized) username.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*users.User, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	normalized := users.NormalizeUsername(username)
	for _, user := range r.data {
		if user.Username == normalized {
			clone := *user
			return &clone, nil
		}
	}
	return nil, users.ErrNotFound
}

// FindByID returns the user with the given id.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*users.User, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.data[id]
	if !ok {
		return nil, users.ErrNotFound
	}
	clone := *user
	return &clone, nil
}

// Insert stores a new user.
func (r *UserRepository) Insert(ctx context.Context, user *users.User) error {
	_ = ctx
	if user == nil || user.ID == "" || user.Username == "" {
		return errors.New("memory repo: invalid user")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	normalized := users.NormalizeUsername(user.Username)
	for _, existing := range r.data {
		if existing.Username == normalized {
			return users.ErrDuplicate
		}
	}
	clone := *user
	clone.Username = normalized
	r.data[user.ID] = &clone
	return nil
}
