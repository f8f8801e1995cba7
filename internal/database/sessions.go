package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"portfolio/internal/types"
	"time"

	"github.com/jmoiron/sqlx"
)

// SessionWindow is the inactivity gap that ends a session.
const SessionWindow = 30 * time.Minute

// reconcileSession extends the visitor's active session with pv, or opens a
// new one when the last activity is SessionWindow or more in the past.
func reconcileSession(ctx context.Context, tx *sqlx.Tx, pv types.Pageview, now time.Time) error {
	cutoff := formatTime(now.Add(-SessionWindow))
	ts := formatTime(now)

	var sessionID int64
	err := tx.GetContext(ctx, &sessionID, `
		SELECT id FROM sessions
		WHERE visitor_id = ? AND last_seen_at > ?
		ORDER BY last_seen_at DESC LIMIT 1`,
		pv.VisitorID, cutoff)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = tx.ExecContext(ctx, `
			INSERT INTO sessions (
				visitor_id, started_at, last_seen_at, pageviews,
				entry_path, exit_path, referrer, country, device_type
			) VALUES (?, ?, ?, 1, ?, ?, ?, ?, ?)`,
			pv.VisitorID, ts, ts, pv.Path, pv.Path, nullable(pv.ReferrerDomain), nullable(pv.Country), pv.DeviceType)
		if err != nil {
			return fmt.Errorf("insert session: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("find active session: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE sessions
		SET last_seen_at = ?, pageviews = pageviews + 1, exit_path = ?
		WHERE id = ?`,
		ts, pv.Path, sessionID)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return nil
}

// GetSessions returns a visitor's sessions, newest first.
func (d *Database) GetSessions(ctx context.Context, visitorID string) ([]types.Session, error) {
	sessions := []types.Session{}
	err := d.db.SelectContext(ctx, &sessions, `
		SELECT id, visitor_id, started_at, last_seen_at, pageviews,
		       entry_path, exit_path, referrer, country, device_type
		FROM sessions
		WHERE visitor_id = ?
		ORDER BY started_at DESC, id DESC`, visitorID)
	if err != nil {
		return nil, fmt.Errorf("select sessions: %w", err)
	}
	return sessions, nil
}
