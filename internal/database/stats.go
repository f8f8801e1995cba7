package database

import (
	"context"
	"fmt"
	"math"
	"portfolio/internal/types"
	"time"
)

const (
	DefaultStatsDays = 30
	liveWindow       = 5 * time.Minute
)

// groupedColumns are the pageview columns with a plain top-N panel.
// Values are interpolated into SQL and must stay constants.
const (
	colReferrerDomain = "referrer_domain"
	colReferrer       = "referrer"
	colBrowser        = "browser"
	colOS             = "os"
	colDeviceType     = "device_type"
	colCountry        = "country"
	colUTMSource      = "utm_source"
)

// GetStats computes the dashboard panels over the trailing days days.
func (d *Database) GetStats(ctx context.Context, days int) (*types.Stats, error) {
	if days <= 0 {
		days = DefaultStatsDays
	}
	cutoff := d.cutoffDays(days)
	stats := &types.Stats{Days: days}

	counts := []struct {
		dst   *int64
		query string
		arg   string
	}{
		{&stats.TotalPageviews, `SELECT COUNT(*) FROM pageviews WHERE timestamp > ? AND is_bot = 0`, cutoff},
		{&stats.UniqueVisitors, `SELECT COUNT(DISTINCT visitor_id) FROM pageviews WHERE timestamp > ? AND is_bot = 0`, cutoff},
		{&stats.TotalSessions, `SELECT COUNT(*) FROM sessions WHERE started_at > ?`, cutoff},
		{&stats.BotRequests, `SELECT COUNT(*) FROM pageviews WHERE timestamp > ? AND is_bot = 1`, cutoff},
		{&stats.LiveVisitors, `SELECT COUNT(DISTINCT visitor_id) FROM pageviews WHERE timestamp > ? AND is_bot = 0`,
			formatTime(d.clock().Add(-liveWindow))},
	}
	for _, c := range counts {
		if err := d.db.GetContext(ctx, c.dst, c.query, c.arg); err != nil {
			return nil, fmt.Errorf("stats count: %w", err)
		}
	}

	var avg float64
	if err := d.db.GetContext(ctx, &avg,
		`SELECT COALESCE(AVG(pageviews), 0) FROM sessions WHERE started_at > ?`, cutoff); err != nil {
		return nil, fmt.Errorf("stats avg pages per session: %w", err)
	}
	stats.AvgPagesPerSession = math.Round(avg*10) / 10

	stats.TopPages = []types.PathViews{}
	if err := d.db.SelectContext(ctx, &stats.TopPages, `
		SELECT path, COUNT(*) AS views
		FROM pageviews
		WHERE timestamp > ? AND is_bot = 0
		GROUP BY path
		ORDER BY views DESC, path
		LIMIT 10`, cutoff); err != nil {
		return nil, fmt.Errorf("stats top pages: %w", err)
	}

	panels := []struct {
		dst    *[]types.NamedCount
		column string
		key    string
		limit  int
	}{
		{&stats.TopReferrers, colReferrerDomain, "referrer", 10},
		{&stats.ReferrerURLs, colReferrer, "url", 20},
		{&stats.Browsers, colBrowser, "browser", 10},
		{&stats.OperatingSystems, colOS, "os", 10},
		{&stats.DeviceTypes, colDeviceType, "device", 10},
		{&stats.Countries, colCountry, "country", 15},
		{&stats.UTMSources, colUTMSource, "source", 10},
	}
	for _, p := range panels {
		rows, err := d.topCounts(ctx, p.column, cutoff, p.limit)
		if err != nil {
			return nil, err
		}
		*p.dst = withKey(rows, p.key)
	}

	stats.Cities = []types.CityCount{}
	if err := d.db.SelectContext(ctx, &stats.Cities, `
		SELECT city, country, COUNT(*) AS count
		FROM pageviews
		WHERE timestamp > ? AND city IS NOT NULL AND city != '' AND is_bot = 0
		GROUP BY city, country
		ORDER BY count DESC, city
		LIMIT 10`, cutoff); err != nil {
		return nil, fmt.Errorf("stats cities: %w", err)
	}

	stats.PageviewsOverTime = []types.DailyViews{}
	if err := d.db.SelectContext(ctx, &stats.PageviewsOverTime, `
		SELECT substr(timestamp, 1, 10) AS date, COUNT(*) AS views
		FROM pageviews
		WHERE timestamp > ? AND is_bot = 0
		GROUP BY date
		ORDER BY date`, cutoff); err != nil {
		return nil, fmt.Errorf("stats pageviews over time: %w", err)
	}

	stats.VisitorsOverTime = []types.DailyVisitors{}
	if err := d.db.SelectContext(ctx, &stats.VisitorsOverTime, `
		SELECT substr(timestamp, 1, 10) AS date, COUNT(DISTINCT visitor_id) AS visitors
		FROM pageviews
		WHERE timestamp > ? AND is_bot = 0
		GROUP BY date
		ORDER BY date`, cutoff); err != nil {
		return nil, fmt.Errorf("stats visitors over time: %w", err)
	}

	stats.Events = []types.NamedCount{}
	if err := d.db.SelectContext(ctx, &stats.Events, `
		SELECT event_name AS name, COUNT(*) AS count
		FROM events
		WHERE timestamp > ? AND event_name != ''
		GROUP BY event_name
		ORDER BY count DESC, name
		LIMIT 20`, cutoff); err != nil {
		return nil, fmt.Errorf("stats events: %w", err)
	}
	stats.Events = withKey(stats.Events, "event")

	stats.UTMCampaigns = []types.CampaignCount{}
	if err := d.db.SelectContext(ctx, &stats.UTMCampaigns, `
		SELECT utm_campaign AS campaign, utm_source AS source, COUNT(*) AS count
		FROM pageviews
		WHERE timestamp > ? AND utm_campaign IS NOT NULL AND utm_campaign != '' AND is_bot = 0
		GROUP BY utm_campaign, utm_source
		ORDER BY count DESC, campaign
		LIMIT 10`, cutoff); err != nil {
		return nil, fmt.Errorf("stats utm campaigns: %w", err)
	}

	return stats, nil
}

func (d *Database) topCounts(ctx context.Context, column, cutoff string, limit int) ([]types.NamedCount, error) {
	query := fmt.Sprintf(`
		SELECT %[1]s AS name, COUNT(*) AS count
		FROM pageviews
		WHERE timestamp > ? AND %[1]s IS NOT NULL AND %[1]s != '' AND is_bot = 0
		GROUP BY %[1]s
		ORDER BY count DESC, name
		LIMIT ?`, column)

	rows := []types.NamedCount{}
	if err := d.db.SelectContext(ctx, &rows, query, cutoff, limit); err != nil {
		return nil, fmt.Errorf("stats top %s: %w", column, err)
	}
	return rows, nil
}

func withKey(rows []types.NamedCount, key string) []types.NamedCount {
	for i := range rows {
		rows[i].Key = key
	}
	return rows
}
