package database

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

func TestGetStats_ExcludesBots(t *testing.T) {
	db, _ := newTestDB(t)
	ctx := context.Background()

	mustRecord(t, db, pageview("human", "/"))
	bot := pageview("crawler", "/")
	bot.IsBot = true
	bot.Browser = ptr("Googlebot")
	bot.DeviceType = "bot"
	mustRecord(t, db, bot)
	mustRecord(t, db, bot)

	stats, err := db.GetStats(ctx, 7)
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.TotalPageviews != 1 || stats.UniqueVisitors != 1 {
		t.Errorf("human totals = %d/%d, want 1/1", stats.TotalPageviews, stats.UniqueVisitors)
	}
	if stats.BotRequests != 2 {
		t.Errorf("bot_requests = %d, want 2", stats.BotRequests)
	}
	for _, b := range stats.Browsers {
		if b.Name == "Googlebot" {
			t.Errorf("bot browser leaked into panel: %+v", stats.Browsers)
		}
	}
	for _, d := range stats.DeviceTypes {
		if d.Name == "bot" {
			t.Errorf("bot device leaked into panel: %+v", stats.DeviceTypes)
		}
	}
}

func TestGetStats_Panels(t *testing.T) {
	db, clock := newTestDB(t)
	ctx := context.Background()

	visits := []struct {
		visitor, path, refDomain, country, city, campaign string
	}{
		{"v1", "/", "github.com", "Germany", "Berlin", "launch"},
		{"v1", "/projects", "", "Germany", "Berlin", ""},
		{"v2", "/", "github.com", "Germany", "Munich", ""},
		{"v3", "/", "", "Japan", "Tokyo", "launch"},
		{"v3", "/blog", "t.co", "Japan", "Tokyo", ""},
	}
	for _, v := range visits {
		pv := pageview(v.visitor, v.path)
		if v.refDomain != "" {
			pv.ReferrerDomain = ptr(v.refDomain)
			pv.Referrer = ptr("https://" + v.refDomain + "/x")
		}
		pv.Country = ptr(v.country)
		pv.City = ptr(v.city)
		if v.campaign != "" {
			pv.UTMCampaign = ptr(v.campaign)
			pv.UTMSource = ptr("newsletter")
		}
		mustRecord(t, db, pv)
		clock.Advance(time.Minute)
	}

	stats, err := db.GetStats(ctx, 30)
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}

	if len(stats.TopPages) == 0 || stats.TopPages[0].Path != "/" || stats.TopPages[0].Views != 3 {
		t.Errorf("top pages = %+v", stats.TopPages)
	}
	if len(stats.TopReferrers) != 2 || stats.TopReferrers[0].Name != "github.com" || stats.TopReferrers[0].Count != 2 {
		t.Errorf("top referrers = %+v", stats.TopReferrers)
	}
	if len(stats.Countries) != 2 || stats.Countries[0].Name != "Germany" || stats.Countries[0].Count != 3 {
		t.Errorf("countries = %+v", stats.Countries)
	}
	if len(stats.Cities) != 3 || stats.Cities[0].City != "Berlin" || stats.Cities[0].Count != 2 {
		t.Errorf("cities = %+v", stats.Cities)
	}
	if len(stats.UTMCampaigns) != 1 || stats.UTMCampaigns[0].Campaign != "launch" || stats.UTMCampaigns[0].Count != 2 {
		t.Errorf("utm campaigns = %+v", stats.UTMCampaigns)
	}
	if stats.UTMCampaigns[0].Source == nil || *stats.UTMCampaigns[0].Source != "newsletter" {
		t.Errorf("utm campaign source = %v", stats.UTMCampaigns[0].Source)
	}
	if len(stats.PageviewsOverTime) != 1 || stats.PageviewsOverTime[0].Date != "2026-03-10" || stats.PageviewsOverTime[0].Views != 5 {
		t.Errorf("pageviews over time = %+v", stats.PageviewsOverTime)
	}
	if len(stats.VisitorsOverTime) != 1 || stats.VisitorsOverTime[0].Visitors != 3 {
		t.Errorf("visitors over time = %+v", stats.VisitorsOverTime)
	}
	if stats.TotalSessions != 3 {
		t.Errorf("total sessions = %d, want 3", stats.TotalSessions)
	}
	if stats.AvgPagesPerSession != 1.7 {
		t.Errorf("avg pages per session = %v, want 1.7", stats.AvgPagesPerSession)
	}
}

func TestGetStats_WindowAndLive(t *testing.T) {
	db, clock := newTestDB(t)
	ctx := context.Background()

	mustRecord(t, db, pageview("old", "/"))
	clock.Advance(10 * 24 * time.Hour)
	mustRecord(t, db, pageview("recent", "/"))
	clock.Advance(10 * time.Minute)
	mustRecord(t, db, pageview("live", "/"))

	stats, err := db.GetStats(ctx, 7)
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.TotalPageviews != 2 {
		t.Errorf("pageviews in 7d window = %d, want 2", stats.TotalPageviews)
	}
	if stats.LiveVisitors != 1 {
		t.Errorf("live visitors = %d, want 1", stats.LiveVisitors)
	}

	stats, err = db.GetStats(ctx, 0)
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.Days != DefaultStatsDays || stats.TotalPageviews != 3 {
		t.Errorf("default window: days=%d total=%d", stats.Days, stats.TotalPageviews)
	}
}

func TestGetStats_EmptyStore(t *testing.T) {
	db, _ := newTestDB(t)

	stats, err := db.GetStats(context.Background(), 30)
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.TotalPageviews != 0 || stats.AvgPagesPerSession != 0 {
		t.Errorf("unexpected totals on empty store: %+v", stats)
	}
	if stats.TopPages == nil || stats.Browsers == nil || stats.Events == nil {
		t.Error("panels should be empty slices, not nil")
	}
}

func TestGetStats_PanelJSONKeys(t *testing.T) {
	db, _ := newTestDB(t)
	ctx := context.Background()

	pv := pageview("v1", "/")
	pv.ReferrerDomain = ptr("github.com")
	pv.Referrer = ptr("https://github.com/me")
	pv.Country = ptr("Germany")
	pv.UTMSource = ptr("hn")
	mustRecord(t, db, pv)
	if _, err := db.RecordEvent(ctx, EventTileClick, "v1", nil, nil); err != nil {
		t.Fatal(err)
	}

	stats, err := db.GetStats(ctx, 1)
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	raw, err := json.Marshal(stats)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	body := string(raw)

	for _, want := range []string{
		`"top_referrers":[{"referrer":"github.com","count":1}]`,
		`"referrer_urls":[{"url":"https://github.com/me","count":1}]`,
		`"browsers":[{"browser":"Chrome","count":1}]`,
		`"operating_systems":[{"os":"Linux","count":1}]`,
		`"device_types":[{"device":"desktop","count":1}]`,
		`"countries":[{"country":"Germany","count":1}]`,
		`"utm_sources":[{"source":"hn","count":1}]`,
		`"events":[{"event":"tile_click","count":1}]`,
		`"visitors":1`,
		`"views":1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("missing %s in %s", want, body)
		}
	}

	var decoded struct {
		Countries []struct {
			Country string `json:"country"`
			Count   int64  `json:"count"`
		} `json:"countries"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatal(err)
	}
	if len(decoded.Countries) != 1 || decoded.Countries[0].Country != "Germany" {
		t.Errorf("countries = %+v", decoded.Countries)
	}
}
