package types

import (
	"strconv"

	"github.com/goccy/go-json"
)

// NamedCount is one row of a grouped panel. It is encoded as
// {Key: Name, "count": Count}, so each panel names its own label field
// ("browser", "country", ...). An empty Key encodes as "name".
type NamedCount struct {
	Key   string `json:"-" db:"-"`
	Name  string `db:"name"`
	Count int64  `db:"count"`
}

const countField = "count"

func (c NamedCount) MarshalJSON() ([]byte, error) {
	key := c.Key
	if key == "" {
		key = "name"
	}
	k, err := json.Marshal(key)
	if err != nil {
		return nil, err
	}
	name, err := json.Marshal(c.Name)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, len(k)+len(name)+24)
	out = append(out, '{')
	out = append(out, k...)
	out = append(out, ':')
	out = append(out, name...)
	out = append(out, `,"count":`...)
	out = strconv.AppendInt(out, c.Count, 10)
	return append(out, '}'), nil
}

func (c *NamedCount) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for k, v := range raw {
		if k == countField {
			if err := json.Unmarshal(v, &c.Count); err != nil {
				return err
			}
			continue
		}
		c.Key = k
		if err := json.Unmarshal(v, &c.Name); err != nil {
			return err
		}
	}
	return nil
}

type PathViews struct {
	Path  string `json:"path" db:"path"`
	Views int64  `json:"views" db:"views"`
}

type CityCount struct {
	City    string  `json:"city" db:"city"`
	Country *string `json:"country" db:"country"`
	Count   int64   `json:"count" db:"count"`
}

type CampaignCount struct {
	Campaign string  `json:"campaign" db:"campaign"`
	Source   *string `json:"source" db:"source"`
	Count    int64   `json:"count" db:"count"`
}

// DailyViews and DailyVisitors are points of day-bucketed series; Date is
// YYYY-MM-DD (UTC).
type DailyViews struct {
	Date  string `json:"date" db:"date"`
	Views int64  `json:"views" db:"views"`
}

type DailyVisitors struct {
	Date     string `json:"date" db:"date"`
	Visitors int64  `json:"visitors" db:"visitors"`
}

// Stats is the dashboard snapshot over a trailing window of Days days.
// Every panel except BotRequests excludes bot traffic.
type Stats struct {
	Days               int             `json:"days"`
	TotalPageviews     int64           `json:"total_pageviews"`
	UniqueVisitors     int64           `json:"unique_visitors"`
	TotalSessions      int64           `json:"total_sessions"`
	AvgPagesPerSession float64         `json:"avg_pages_per_session"`
	TopPages           []PathViews     `json:"top_pages"`
	TopReferrers       []NamedCount    `json:"top_referrers"`
	ReferrerURLs       []NamedCount    `json:"referrer_urls"`
	Browsers           []NamedCount    `json:"browsers"`
	OperatingSystems   []NamedCount    `json:"operating_systems"`
	DeviceTypes        []NamedCount    `json:"device_types"`
	Countries          []NamedCount    `json:"countries"`
	Cities             []CityCount     `json:"cities"`
	PageviewsOverTime  []DailyViews    `json:"pageviews_over_time"`
	VisitorsOverTime   []DailyVisitors `json:"visitors_over_time"`
	Events             []NamedCount    `json:"events"`
	UTMSources         []NamedCount    `json:"utm_sources"`
	UTMCampaigns       []CampaignCount `json:"utm_campaigns"`
	BotRequests        int64           `json:"bot_requests"`
	LiveVisitors       int64           `json:"live_visitors"`
}
