package service

import (
	"context"
	"errors"
	"net/http"
	"portfolio/internal/auth"
	"portfolio/internal/geo"
	"portfolio/internal/tracking"
	"portfolio/internal/types"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	eventRateLimit = 30
	loginRateLimit = 10
)

// Store is the read and event-write surface of the analytics database.
type Store interface {
	Ping(ctx context.Context) error
	RecordEvent(ctx context.Context, name, visitorID string, path *string, metadata map[string]any) (int64, error)
	GetStats(ctx context.Context, days int) (*types.Stats, error)
	GetRecentVisitors(ctx context.Context, limit int) ([]types.RecentVisit, error)
	GetAllVisitors(ctx context.Context, days int) ([]types.VisitorSummary, error)
	GetVisitorDetails(ctx context.Context, visitorID string) (*types.VisitorDetails, error)
	GetTileClicks(ctx context.Context, days int) ([]types.TileClick, error)
	GetOutboundClicks(ctx context.Context, days int) ([]types.OutboundClick, error)
	GetEventDetails(ctx context.Context, name string, days, limit int) ([]types.Event, error)
}

// Notifier delivers operator alerts.
type Notifier interface {
	Notify(text string)
}

type Deps struct {
	Store    Store
	Auth     *auth.Authenticator
	Tracker  *tracking.Tracker
	Notifier Notifier
	// Proxies resolves the address used for login throttling and rate
	// limits. Nil trusts no forwarding headers.
	Proxies *tracking.Proxies
	// Locator enriches lockout alerts with the offender's country. Optional.
	Locator geo.Locator
	// Site serves every path not owned by the analytics routes.
	Site http.Handler
}

type Server struct {
	port          string
	secureCookies bool
	store         Store
	auth          *auth.Authenticator
	tracker       *tracking.Tracker
	notifier      Notifier
	locator       geo.Locator
	proxies       *tracking.Proxies
	handler       http.Handler
}

func NewServer(port string, secureCookies bool, deps Deps) *Server {
	s := &Server{
		port:          port,
		secureCookies: secureCookies,
		store:         deps.Store,
		auth:          deps.Auth,
		tracker:       deps.Tracker,
		notifier:      deps.Notifier,
		locator:       deps.Locator,
		proxies:       deps.Proxies,
	}
	if s.locator == nil {
		s.locator = geo.Nop{}
	}
	site := deps.Site
	if site == nil {
		site = http.NotFoundHandler()
	}
	s.handler = s.routes(site)
	return s
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes(site http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.tracker.Middleware)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())
	r.With(s.rateLimit(eventRateLimit)).Post("/api/event", s.handleEvent)

	r.Route(adminPrefix, func(r chi.Router) {
		r.Get("/login", s.handleLoginPage)
		r.With(s.rateLimit(loginRateLimit)).Post("/login", s.handleLogin)
		r.Get("/logout", s.handleLogout)
		r.With(s.rateLimit(eventRateLimit)).Post("/api/event", s.handleEvent)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAdmin)
			r.Get("/", s.handleDashboard)
			r.Get("/api/stats", s.handleStats)
			r.Get("/api/recent", s.handleRecent)
			r.Get("/api/visitors", s.handleVisitors)
			r.Get("/api/visitors/{id}", s.handleVisitorDetails)
			r.Get("/api/tiles", s.handleTileClicks)
			r.Get("/api/outbound", s.handleOutboundClicks)
			r.Get("/api/events/{name}", s.handleEventDetails)
		})
	})

	r.NotFound(site.ServeHTTP)
	return r
}

// rateLimit limits requests per client address. Forwarding headers count
// only when the peer is a trusted proxy.
func (s *Server) rateLimit(perMinute int) func(http.Handler) http.Handler {
	return httprate.Limit(perMinute, time.Minute,
		httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
			return s.proxies.ClientIP(r), nil
		}))
}

func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + s.port,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errChan := make(chan error, 1)
	go func() { errChan <- srv.ListenAndServe() }()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
