package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"alarmhub/internal/audit"
	"alarmhub/internal/auth"
	"alarmhub/internal/observability/metrics"
	users "alarmhub/internal/users/domain"
)

const minPasswordLength = 6

// Service handles account registration and login.
type Service struct {
	repo     users.Repository
	secret   []byte
	tokenTTL time.Duration
	auditor  audit.Logger
	logger   *log.Logger
}

// ServiceOption customizes the service.
type ServiceOption func(*Service)

// WithAuditLogger assigns an audit logger for account operations.
func WithAuditLogger(auditor audit.Logger) ServiceOption {
	return func(s *Service) {
		s.auditor = auditor
	}
}

// WithLogger assigns a logger.
func WithLogger(logger *log.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService constructs the account service.
func NewService(repo users.Repository, secret []byte, tokenTTL time.Duration, opts ...ServiceOption) (*Service, error) {
	if repo == nil {
		return nil, errors.New("users: nil repository")
	}
	if len(secret) == 0 {
		return nil, errors.New("users: empty token secret")
	}
	if tokenTTL <= 0 {
		return nil, errors.New("users: non-positive token ttl")
	}
	service := &Service{repo: repo, secret: secret, tokenTTL: tokenTTL}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// Register creates an account with a bcrypt password hash.
func (s *Service) Register(ctx context.Context, username, password string) (*users.User, error) {
	username = users.NormalizeUsername(username)
	if username == "" {
		return nil, fmt.Errorf("%w: username required", users.ErrInvalid)
	}
	if len(password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", users.ErrInvalid, minPasswordLength)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := &users.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.repo.Insert(ctx, user); err != nil {
		return nil, err
	}
	s.auditLog(ctx, user.ID, "user.register", user.ID, map[string]string{"username": username})
	return user, nil
}

// Login verifies the credentials and mints a bearer token. Unknown usernames
// take the same failure path as bad passwords.
func (s *Service) Login(ctx context.Context, username, password string) (string, *users.User, error) {
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			metrics.IncLogin(false)
			return "", nil, users.ErrBadCredentials
		}
		return "", nil, err
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		metrics.IncLogin(false)
		return "", nil, users.ErrBadCredentials
	}

	token, err := auth.SignJWT(user.ID, s.secret, s.tokenTTL)
	if err != nil {
		return "", nil, err
	}
	metrics.IncLogin(true)
	s.auditLog(ctx, user.ID, "user.login", user.ID, nil)
	return token, user, nil
}

func (s *Service) auditLog(ctx context.Context, actor, action, resourceID string, payload any) {
	if s.auditor == nil {
		return
	}
	var metadata json.RawMessage
	if payload != nil {
		if data, err := json.Marshal(payload); err == nil {
			metadata = data
		}
	}
	entry := audit.Entry{
		Actor:        actor,
		Action:       action,
		ResourceType: "user",
		ResourceID:   resourceID,
		Metadata:     metadata,
	}
	if err := s.auditor.Log(ctx, entry); err != nil && s.logger != nil {
		s.logger.Printf("audit log failed: %v", err)
	}
}
