package types

// Pageview is one tracked HTTP request. Timestamp is filled in by the store.
type Pageview struct {
	Timestamp      string  `json:"timestamp" db:"timestamp"`
	Path           string  `json:"path" db:"path"`
	Referrer       *string `json:"referrer" db:"referrer"`
	ReferrerDomain *string `json:"referrer_domain" db:"referrer_domain"`
	VisitorID      string  `json:"visitor_id" db:"visitor_id"`
	Country        *string `json:"country" db:"country"`
	City           *string `json:"city" db:"city"`
	UserAgent      string  `json:"user_agent" db:"user_agent"`
	Browser        *string `json:"browser" db:"browser"`
	BrowserVersion *string `json:"browser_version" db:"browser_version"`
	OS             *string `json:"os" db:"os"`
	DeviceType     string  `json:"device_type" db:"device_type"`
	IsBot          bool    `json:"is_bot" db:"is_bot"`
	ResponseTimeMs int64   `json:"response_time_ms" db:"response_time_ms"`
	StatusCode     int     `json:"status_code" db:"status_code"`
	UTMSource      *string `json:"utm_source" db:"utm_source"`
	UTMMedium      *string `json:"utm_medium" db:"utm_medium"`
	UTMCampaign    *string `json:"utm_campaign" db:"utm_campaign"`
	UTMContent     *string `json:"utm_content" db:"utm_content"`
	UTMTerm        *string `json:"utm_term" db:"utm_term"`
}

type Session struct {
	ID         int64   `json:"id" db:"id"`
	VisitorID  string  `json:"visitor_id" db:"visitor_id"`
	StartedAt  string  `json:"started_at" db:"started_at"`
	LastSeenAt string  `json:"last_seen_at" db:"last_seen_at"`
	Pageviews  int64   `json:"pageviews" db:"pageviews"`
	EntryPath  *string `json:"entry_path" db:"entry_path"`
	ExitPath   *string `json:"exit_path" db:"exit_path"`
	Referrer   *string `json:"referrer" db:"referrer"`
	Country    *string `json:"country" db:"country"`
	DeviceType *string `json:"device_type" db:"device_type"`
}

// Event is a custom named occurrence. RawMetadata holds the stored JSON text,
// Metadata its decoded form (nil when absent or unparsable).
type Event struct {
	ID          int64          `json:"id" db:"id"`
	Timestamp   string         `json:"timestamp" db:"timestamp"`
	Name        string         `json:"event_name" db:"event_name"`
	VisitorID   string         `json:"visitor_id" db:"visitor_id"`
	Path        *string        `json:"path" db:"path"`
	RawMetadata *string        `json:"-" db:"metadata"`
	Metadata    map[string]any `json:"metadata" db:"-"`
}

type RecentVisit struct {
	Timestamp  string  `json:"timestamp" db:"timestamp"`
	Path       string  `json:"path" db:"path"`
	VisitorID  string  `json:"visitor_id" db:"visitor_id"`
	Country    *string `json:"country" db:"country"`
	City       *string `json:"city" db:"city"`
	Browser    *string `json:"browser" db:"browser"`
	OS         *string `json:"os" db:"os"`
	DeviceType *string `json:"device_type" db:"device_type"`
	Referrer   *string `json:"referrer" db:"referrer"`
}

type VisitorSummary struct {
	VisitorID   string  `json:"visitor_id" db:"visitor_id"`
	FirstSeen   string  `json:"first_seen" db:"first_seen"`
	LastSeen    string  `json:"last_seen" db:"last_seen"`
	Pageviews   int64   `json:"pageviews" db:"pageviews"`
	UniquePages int64   `json:"unique_pages" db:"unique_pages"`
	Country     *string `json:"country" db:"country"`
	City        *string `json:"city" db:"city"`
	Browser     *string `json:"browser" db:"browser"`
	OS          *string `json:"os" db:"os"`
	DeviceType  *string `json:"device_type" db:"device_type"`
	Referrer    *string `json:"referrer" db:"referrer"`
	UTMSource   *string `json:"utm_source" db:"utm_source"`
}

type VisitorPageview struct {
	Timestamp      string  `json:"timestamp" db:"timestamp"`
	Path           string  `json:"path" db:"path"`
	Referrer       *string `json:"referrer" db:"referrer"`
	Country        *string `json:"country" db:"country"`
	City           *string `json:"city" db:"city"`
	Browser        *string `json:"browser" db:"browser"`
	OS             *string `json:"os" db:"os"`
	DeviceType     *string `json:"device_type" db:"device_type"`
	UTMSource      *string `json:"utm_source" db:"utm_source"`
	UTMMedium      *string `json:"utm_medium" db:"utm_medium"`
	UTMCampaign    *string `json:"utm_campaign" db:"utm_campaign"`
	ResponseTimeMs *int64  `json:"response_time_ms" db:"response_time_ms"`
}

// VisitorProfile is the summary block of a visitor detail view. Only
// VisitorID is set when the visitor has no human pageviews.
type VisitorProfile struct {
	VisitorID       string  `json:"visitor_id"`
	FirstSeen       string  `json:"first_seen,omitempty"`
	LastSeen        string  `json:"last_seen,omitempty"`
	TotalPageviews  int     `json:"total_pageviews"`
	TotalEvents     int     `json:"total_events"`
	TotalSessions   int     `json:"total_sessions"`
	Country         *string `json:"country,omitempty"`
	City            *string `json:"city,omitempty"`
	Browser         *string `json:"browser,omitempty"`
	OS              *string `json:"os,omitempty"`
	DeviceType      *string `json:"device_type,omitempty"`
	InitialReferrer *string `json:"initial_referrer,omitempty"`
	UTMSource       *string `json:"utm_source,omitempty"`
	UTMMedium       *string `json:"utm_medium,omitempty"`
	UTMCampaign     *string `json:"utm_campaign,omitempty"`
}

type VisitorDetails struct {
	Summary   VisitorProfile    `json:"summary"`
	Pageviews []VisitorPageview `json:"pageviews"`
	Events    []Event           `json:"events"`
	Sessions  []Session         `json:"sessions"`
}

type TileClick struct {
	Project string `json:"project" db:"project"`
	Count   int64  `json:"count" db:"count"`
}

type OutboundClick struct {
	URL   string `json:"url" db:"url"`
	Text  string `json:"text" db:"text"`
	Count int64  `json:"count" db:"count"`
}

// GeoInfo is the result of a geolocation lookup. The zero value means
// "unknown location".
type GeoInfo struct {
	Country     string  `json:"country"`
	CountryCode string  `json:"country_code"`
	Region      string  `json:"region"`
	City        string  `json:"city"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	ISP         string  `json:"isp"`
	IsProxy     bool    `json:"is_proxy"`
	IsHosting   bool    `json:"is_hosting"`
}
