package auth

import (
	"context"
	"errors"
	"log/slog"
	"portfolio/internal/metrics"
	"time"
)

var (
	ErrLoginDisabled   = errors.New("admin login disabled")
	ErrLockedOut       = errors.New("too many failed attempts")
	ErrInvalidPassword = errors.New("invalid password")
)

// LoginResult describes the outcome of Login. Token is set on success,
// RetryAfter when the address is locked, Remaining after a wrong password.
// Locked is true when this attempt triggered the lockout.
type LoginResult struct {
	Token      string
	RetryAfter time.Duration
	Remaining  int
	Locked     bool
}

type Authenticator struct {
	password *Password
	guard    *Guard
	sessions *Sessions
}

func NewAuthenticator(password *Password, guard *Guard, sessions *Sessions) *Authenticator {
	return &Authenticator{password: password, guard: guard, sessions: sessions}
}

func (a *Authenticator) Login(ctx context.Context, ip, candidate string) (LoginResult, error) {
	if !a.password.Enabled() {
		metrics.LoginAttempts.WithLabelValues("disabled").Inc()
		return LoginResult{}, ErrLoginDisabled
	}

	locked, retryAfter, err := a.guard.IsLockedOut(ctx, ip)
	if err != nil {
		return LoginResult{}, err
	}
	if locked {
		metrics.LoginAttempts.WithLabelValues("locked").Inc()
		return LoginResult{RetryAfter: retryAfter}, ErrLockedOut
	}

	if !a.password.Matches(candidate) {
		metrics.LoginAttempts.WithLabelValues("invalid").Inc()
		if err := a.guard.Record(ctx, ip, false); err != nil {
			return LoginResult{}, err
		}
		remaining, err := a.guard.RemainingAttempts(ctx, ip)
		if err != nil {
			return LoginResult{}, err
		}
		res := LoginResult{Remaining: remaining}
		if remaining == 0 {
			res.Locked = true
			res.RetryAfter = a.guard.Lockout()
			slog.Warn("Admin login locked out", "ip", ip)
		}
		return res, ErrInvalidPassword
	}

	if err := a.guard.Record(ctx, ip, true); err != nil {
		return LoginResult{}, err
	}
	token, err := a.sessions.Issue(ctx)
	if err != nil {
		if errors.Is(err, ErrTooManySessions) {
			metrics.LoginAttempts.WithLabelValues("rejected").Inc()
		}
		return LoginResult{}, err
	}

	metrics.LoginAttempts.WithLabelValues("success").Inc()
	return LoginResult{Token: token}, nil
}

func (a *Authenticator) Validate(ctx context.Context, token string) (bool, error) {
	return a.sessions.Validate(ctx, token)
}

func (a *Authenticator) Logout(ctx context.Context, token string) error {
	return a.sessions.Revoke(ctx, token)
}

func (a *Authenticator) SessionTTL() time.Duration {
	return a.sessions.TTL()
}
