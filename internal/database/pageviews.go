package database

import (
	"context"
	"fmt"
	"portfolio/internal/types"
)

const insertPageviewQuery = `
	INSERT INTO pageviews (
		timestamp, path, referrer, referrer_domain, visitor_id,
		country, city, user_agent, browser, browser_version,
		os, device_type, is_bot, response_time_ms, status_code,
		utm_source, utm_medium, utm_campaign, utm_content, utm_term
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// RecordPageview stores pv stamped with the current time and folds it into
// the visitor's session. Both writes commit together.
func (d *Database) RecordPageview(ctx context.Context, pv types.Pageview) (int64, error) {
	now := d.clock()
	pv.Timestamp = formatTime(now)

	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin pageview tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, insertPageviewQuery,
		pv.Timestamp, pv.Path, nullable(pv.Referrer), nullable(pv.ReferrerDomain), pv.VisitorID,
		nullable(pv.Country), nullable(pv.City), pv.UserAgent, nullable(pv.Browser), nullable(pv.BrowserVersion),
		nullable(pv.OS), pv.DeviceType, boolInt(pv.IsBot), pv.ResponseTimeMs, pv.StatusCode,
		nullable(pv.UTMSource), nullable(pv.UTMMedium), nullable(pv.UTMCampaign), nullable(pv.UTMContent), nullable(pv.UTMTerm))
	if err != nil {
		return 0, fmt.Errorf("insert pageview: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("pageview id: %w", err)
	}

	if err := reconcileSession(ctx, tx, pv, now); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit pageview: %w", err)
	}

	if d.sink != nil {
		d.sink.Push(pv)
	}
	return id, nil
}

// nullable maps a nil pointer to SQL NULL.
func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
