// Package auth implements the admin login: password check, brute-force
// lockout per client address and server-side session tokens.
package auth

import (
	"context"
	"time"
)

const (
	DefaultMaxAttempts = 5
	DefaultLockout     = 15 * time.Minute
)

// AttemptStore persists login attempts.
type AttemptStore interface {
	RecordLoginAttempt(ctx context.Context, ip string, success bool) error
	FailedLoginsSince(ctx context.Context, ip string, since time.Time) (int, time.Time, error)
	Now() time.Time
}

// Guard locks an address out once it has maxAttempts failures inside the
// trailing lockout window. The lock lifts lockout after the latest failure.
type Guard struct {
	store       AttemptStore
	maxAttempts int
	lockout     time.Duration
}

func NewGuard(store AttemptStore, maxAttempts int, lockout time.Duration) *Guard {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if lockout <= 0 {
		lockout = DefaultLockout
	}
	return &Guard{store: store, maxAttempts: maxAttempts, lockout: lockout}
}

// IsLockedOut reports whether ip is locked and for how much longer.
func (g *Guard) IsLockedOut(ctx context.Context, ip string) (bool, time.Duration, error) {
	now := g.store.Now()
	failures, last, err := g.store.FailedLoginsSince(ctx, ip, now.Add(-g.lockout))
	if err != nil {
		return false, 0, err
	}
	if failures < g.maxAttempts {
		return false, 0, nil
	}

	remaining := last.Add(g.lockout).Sub(now)
	return true, max(remaining, 0), nil
}

func (g *Guard) RemainingAttempts(ctx context.Context, ip string) (int, error) {
	failures, _, err := g.store.FailedLoginsSince(ctx, ip, g.store.Now().Add(-g.lockout))
	if err != nil {
		return 0, err
	}
	return max(g.maxAttempts-failures, 0), nil
}

func (g *Guard) Record(ctx context.Context, ip string, success bool) error {
	return g.store.RecordLoginAttempt(ctx, ip, success)
}

func (g *Guard) Lockout() time.Duration {
	return g.lockout
}
