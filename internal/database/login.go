package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// loginAttemptRetention bounds the growth of login_attempts.
const loginAttemptRetention = 24 * time.Hour

// RecordLoginAttempt logs one admin login attempt and drops attempts older
// than a day.
func (d *Database) RecordLoginAttempt(ctx context.Context, ip string, success bool) error {
	now := d.clock()
	if _, err := d.db.ExecContext(ctx,
		`INSERT INTO login_attempts (ip_address, timestamp, success) VALUES (?, ?, ?)`,
		ip, formatTime(now), boolInt(success)); err != nil {
		return fmt.Errorf("insert login attempt: %w", err)
	}

	if _, err := d.db.ExecContext(ctx,
		`DELETE FROM login_attempts WHERE timestamp < ?`,
		formatTime(now.Add(-loginAttemptRetention))); err != nil {
		return fmt.Errorf("purge login attempts: %w", err)
	}
	return nil
}

// FailedLoginsSince counts failed attempts from ip after since and returns the
// time of the latest one (zero when there are none).
func (d *Database) FailedLoginsSince(ctx context.Context, ip string, since time.Time) (int, time.Time, error) {
	var row struct {
		Count int            `db:"count"`
		Last  sql.NullString `db:"last_attempt"`
	}
	err := d.db.GetContext(ctx, &row, `
		SELECT COUNT(*) AS count, MAX(timestamp) AS last_attempt
		FROM login_attempts
		WHERE ip_address = ? AND timestamp > ? AND success = 0`,
		ip, formatTime(since))
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("count failed logins: %w", err)
	}
	if !row.Last.Valid {
		return row.Count, time.Time{}, nil
	}

	last, err := parseTime(row.Last.String)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("parse login attempt time: %w", err)
	}
	return row.Count, last, nil
}

// Now exposes the store clock so lockout arithmetic uses the same time source
// as the rows it reads.
func (d *Database) Now() time.Time {
	return d.clock()
}
