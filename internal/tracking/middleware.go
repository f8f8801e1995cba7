// Package tracking records one pageview per served request.
package tracking

import (
	"context"
	"log/slog"
	"net/http"
	"portfolio/internal/geo"
	"portfolio/internal/metrics"
	"portfolio/internal/types"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5/middleware"
)

const (
	maxUserAgentRunes = 500
	defaultGeoTimeout = 3 * time.Second
)

var excludedPaths = map[string]struct{}{
	"/health":      {},
	"/favicon.ico": {},
	"/robots.txt":  {},
	"/sitemap.xml": {},
	"/metrics":     {},
	"/api/event":   {},
}

var excludedPrefixes = []string{
	"/static/",
	"/image/",
	"/admin/analytics",
	"/_",
}

// Recorder persists pageviews.
type Recorder interface {
	RecordPageview(ctx context.Context, pv types.Pageview) (int64, error)
}

type Tracker struct {
	store      Recorder
	locator    geo.Locator
	hasher     *Hasher
	siteDomain string
	geoTimeout time.Duration
	now        func() time.Time
}

type Option func(*Tracker)

// WithSiteDomain drops referrers pointing back at domain or its subdomains.
func WithSiteDomain(domain string) Option {
	return func(t *Tracker) { t.siteDomain = strings.ToLower(strings.TrimPrefix(domain, "www.")) }
}

func WithGeoTimeout(d time.Duration) Option {
	return func(t *Tracker) { t.geoTimeout = d }
}

func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

func New(store Recorder, locator geo.Locator, hasher *Hasher, opts ...Option) *Tracker {
	if locator == nil {
		locator = geo.Nop{}
	}
	t := &Tracker{
		store:      store,
		locator:    locator,
		hasher:     hasher,
		geoTimeout: defaultGeoTimeout,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// ShouldTrack reports whether r counts as a pageview.
func ShouldTrack(r *http.Request) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		return false
	}
	path := r.URL.Path
	if _, ok := excludedPaths[path]; ok {
		return false
	}
	for _, prefix := range excludedPrefixes {
		if strings.HasPrefix(path, prefix) {
			return false
		}
	}
	return true
}

// VisitorID is the identifier the tracker assigns to the client of r today.
func (t *Tracker) VisitorID(r *http.Request) string {
	return t.hasher.VisitorID(ClientIP(r), t.now())
}

// Middleware serves the request first and records it afterwards. Recording
// failures never reach the client.
func (t *Tracker) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !ShouldTrack(r) {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		t.record(r, status, time.Since(start).Milliseconds())
	})
}

func (t *Tracker) record(r *http.Request, status int, elapsedMs int64) {
	defer func() {
		if p := recover(); p != nil {
			metrics.TrackingErrors.WithLabelValues("panic").Inc()
			slog.Error("Analytics tracking panic", "panic", p, "path", r.URL.Path)
		}
	}()

	ctx := r.Context()
	if ctx.Err() != nil {
		metrics.TrackingErrors.WithLabelValues("cancelled").Inc()
		return
	}

	pv := t.pageview(ctx, r, status, elapsedMs)
	if _, err := t.store.RecordPageview(ctx, pv); err != nil {
		metrics.TrackingErrors.WithLabelValues("store").Inc()
		slog.Error("Analytics tracking error", "error", err, "path", pv.Path)
		return
	}
	metrics.PageviewsTracked.WithLabelValues(metrics.Bool(pv.IsBot)).Inc()
}

func (t *Tracker) pageview(ctx context.Context, r *http.Request, status int, elapsedMs int64) types.Pageview {
	ip := ClientIP(r)
	rawUA := r.UserAgent()
	ua := ParseUserAgent(rawUA)

	pv := types.Pageview{
		Path:           r.URL.Path,
		VisitorID:      t.hasher.VisitorID(ip, t.now()),
		UserAgent:      truncateRunes(rawUA, maxUserAgentRunes),
		Browser:        optional(ua.Browser),
		BrowserVersion: optional(ua.BrowserVersion),
		OS:             optional(ua.OS),
		DeviceType:     ua.DeviceType,
		IsBot:          ua.IsBot,
		ResponseTimeMs: elapsedMs,
		StatusCode:     status,
	}

	if ref := r.Referer(); ref != "" {
		domain, ok := ExtractDomain(ref)
		if !ok || !t.isSelf(domain) {
			pv.Referrer = &ref
			if ok {
				pv.ReferrerDomain = &domain
			}
		}
	}

	q := r.URL.Query()
	pv.UTMSource = optional(q.Get("utm_source"))
	pv.UTMMedium = optional(q.Get("utm_medium"))
	pv.UTMCampaign = optional(q.Get("utm_campaign"))
	pv.UTMContent = optional(q.Get("utm_content"))
	pv.UTMTerm = optional(q.Get("utm_term"))

	geoCtx, cancel := context.WithTimeout(ctx, t.geoTimeout)
	defer cancel()
	info, err := t.locator.Lookup(geoCtx, ip)
	if err != nil {
		metrics.TrackingErrors.WithLabelValues("geo").Inc()
		slog.Debug("Geo lookup failed", "error", err)
	}
	pv.Country = optional(info.Country)
	pv.City = optional(info.City)

	return pv
}

func (t *Tracker) isSelf(domain string) bool {
	if t.siteDomain == "" {
		return false
	}
	d := strings.ToLower(domain)
	return d == t.siteDomain || strings.HasSuffix(d, "."+t.siteDomain)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
