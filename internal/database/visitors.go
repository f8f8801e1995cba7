package database

import (
	"context"
	"fmt"
	"portfolio/internal/types"
)

func (d *Database) GetRecentVisitors(ctx context.Context, limit int) ([]types.RecentVisit, error) {
	visits := []types.RecentVisit{}
	err := d.db.SelectContext(ctx, &visits, `
		SELECT timestamp, path, visitor_id, country, city, browser, os, device_type, referrer
		FROM pageviews
		WHERE is_bot = 0
		ORDER BY timestamp DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("select recent visitors: %w", err)
	}
	return visits, nil
}

func (d *Database) GetAllVisitors(ctx context.Context, days int) ([]types.VisitorSummary, error) {
	visitors := []types.VisitorSummary{}
	err := d.db.SelectContext(ctx, &visitors, `
		SELECT
			visitor_id,
			MIN(timestamp) AS first_seen,
			MAX(timestamp) AS last_seen,
			COUNT(*) AS pageviews,
			COUNT(DISTINCT path) AS unique_pages,
			MAX(country) AS country,
			MAX(city) AS city,
			MAX(browser) AS browser,
			MAX(os) AS os,
			MAX(device_type) AS device_type,
			MAX(referrer) AS referrer,
			MAX(utm_source) AS utm_source
		FROM pageviews
		WHERE timestamp > ? AND is_bot = 0
		GROUP BY visitor_id
		ORDER BY last_seen DESC`, d.cutoffDays(days))
	if err != nil {
		return nil, fmt.Errorf("select visitors: %w", err)
	}
	return visitors, nil
}

// GetVisitorDetails assembles everything recorded for one visitor. The
// summary location and client fields come from the latest pageview, the
// acquisition fields from the first.
func (d *Database) GetVisitorDetails(ctx context.Context, visitorID string) (*types.VisitorDetails, error) {
	pageviews := []types.VisitorPageview{}
	err := d.db.SelectContext(ctx, &pageviews, `
		SELECT timestamp, path, referrer, country, city, browser, os,
		       device_type, utm_source, utm_medium, utm_campaign, response_time_ms
		FROM pageviews
		WHERE visitor_id = ? AND is_bot = 0
		ORDER BY timestamp DESC, id DESC`, visitorID)
	if err != nil {
		return nil, fmt.Errorf("select visitor pageviews: %w", err)
	}

	events := []types.Event{}
	err = d.db.SelectContext(ctx, &events, `
		SELECT id, timestamp, event_name, visitor_id, path, metadata
		FROM events
		WHERE visitor_id = ?
		ORDER BY timestamp DESC, id DESC`, visitorID)
	if err != nil {
		return nil, fmt.Errorf("select visitor events: %w", err)
	}
	decodeMetadata(events)

	sessions, err := d.GetSessions(ctx, visitorID)
	if err != nil {
		return nil, err
	}

	summary := types.VisitorProfile{VisitorID: visitorID}
	if len(pageviews) > 0 {
		last := pageviews[0]
		first := pageviews[len(pageviews)-1]
		summary = types.VisitorProfile{
			VisitorID:       visitorID,
			FirstSeen:       first.Timestamp,
			LastSeen:        last.Timestamp,
			TotalPageviews:  len(pageviews),
			TotalEvents:     len(events),
			TotalSessions:   len(sessions),
			Country:         last.Country,
			City:            last.City,
			Browser:         last.Browser,
			OS:              last.OS,
			DeviceType:      last.DeviceType,
			InitialReferrer: first.Referrer,
			UTMSource:       first.UTMSource,
			UTMMedium:       first.UTMMedium,
			UTMCampaign:     first.UTMCampaign,
		}
	}

	return &types.VisitorDetails{
		Summary:   summary,
		Pageviews: pageviews,
		Events:    events,
		Sessions:  sessions,
	}, nil
}
