package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// CreateAdminSession stores token valid for ttl and purges expired sessions.
// A failed purge is logged only; the new session stands.
func (d *Database) CreateAdminSession(ctx context.Context, token string, ttl time.Duration) error {
	now := d.clock()
	if _, err := d.db.ExecContext(ctx, `
		INSERT INTO admin_sessions (session_id, created_at, expires_at)
		VALUES (?, ?, ?)`,
		token, formatTime(now), formatTime(now.Add(ttl))); err != nil {
		return fmt.Errorf("insert admin session: %w", err)
	}

	if err := d.PurgeExpiredAdminSessions(ctx); err != nil {
		slog.Warn("failed to purge expired admin sessions", "error", err)
	}
	return nil
}

func (d *Database) ValidateAdminSession(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}

	var n int
	err := d.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM admin_sessions WHERE session_id = ? AND expires_at > ?`,
		token, formatTime(d.clock()))
	if err != nil {
		return false, fmt.Errorf("validate admin session: %w", err)
	}
	return n > 0, nil
}

func (d *Database) DeleteAdminSession(ctx context.Context, token string) error {
	if _, err := d.db.ExecContext(ctx, `DELETE FROM admin_sessions WHERE session_id = ?`, token); err != nil {
		return fmt.Errorf("delete admin session: %w", err)
	}
	return nil
}

func (d *Database) CountActiveAdminSessions(ctx context.Context) (int, error) {
	var n int
	err := d.db.GetContext(ctx, &n,
		`SELECT COUNT(*) FROM admin_sessions WHERE expires_at > ?`, formatTime(d.clock()))
	if err != nil {
		return 0, fmt.Errorf("count admin sessions: %w", err)
	}
	return n, nil
}

func (d *Database) PurgeExpiredAdminSessions(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx,
		`DELETE FROM admin_sessions WHERE expires_at < ?`, formatTime(d.clock())); err != nil {
		return fmt.Errorf("purge admin sessions: %w", err)
	}
	return nil
}
