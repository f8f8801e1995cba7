package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"
)

const (
	DefaultSessionTTL = 24 * time.Hour
	MaxActiveSessions = 100
	tokenBytes        = 32
)

var ErrTooManySessions = errors.New("too many active sessions")

type SessionStore interface {
	CreateAdminSession(ctx context.Context, token string, ttl time.Duration) error
	ValidateAdminSession(ctx context.Context, token string) (bool, error)
	DeleteAdminSession(ctx context.Context, token string) error
	CountActiveAdminSessions(ctx context.Context) (int, error)
}

// NewToken returns 32 random bytes, base64url encoded without padding.
func NewToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

type Sessions struct {
	store SessionStore
	ttl   time.Duration
	limit int
}

func NewSessions(store SessionStore, ttl time.Duration) *Sessions {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Sessions{store: store, ttl: ttl, limit: MaxActiveSessions}
}

// Issue creates a session and returns its token. It refuses once limit
// sessions are active.
func (s *Sessions) Issue(ctx context.Context) (string, error) {
	active, err := s.store.CountActiveAdminSessions(ctx)
	if err != nil {
		return "", err
	}
	if active >= s.limit {
		return "", ErrTooManySessions
	}

	token, err := NewToken()
	if err != nil {
		return "", err
	}
	if err := s.store.CreateAdminSession(ctx, token, s.ttl); err != nil {
		return "", err
	}
	return token, nil
}

func (s *Sessions) Validate(ctx context.Context, token string) (bool, error) {
	return s.store.ValidateAdminSession(ctx, token)
}

func (s *Sessions) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.store.DeleteAdminSession(ctx, token)
}

func (s *Sessions) TTL() time.Duration {
	return s.ttl
}
