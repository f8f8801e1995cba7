package service

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

const (
	defaultDays        = 30
	maxDays            = 365
	defaultRecentLimit = 50
	dashboardRecent    = 30
	maxLimit           = 500
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	days := intParam(r, "days", defaultDays, maxDays)

	stats, err := s.store.GetStats(r.Context(), days)
	if err != nil {
		s.internalError(w, "stats", err)
		return
	}
	recent, err := s.store.GetRecentVisitors(r.Context(), dashboardRecent)
	if err != nil {
		s.internalError(w, "recent visitors", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"days":   days,
		"stats":  stats,
		"recent": recent,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.GetStats(r.Context(), intParam(r, "days", defaultDays, maxDays))
	if err != nil {
		s.internalError(w, "stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	recent, err := s.store.GetRecentVisitors(r.Context(), intParam(r, "limit", defaultRecentLimit, maxLimit))
	if err != nil {
		s.internalError(w, "recent visitors", err)
		return
	}
	writeJSON(w, http.StatusOK, recent)
}

func (s *Server) handleVisitors(w http.ResponseWriter, r *http.Request) {
	visitors, err := s.store.GetAllVisitors(r.Context(), intParam(r, "days", defaultDays, maxDays))
	if err != nil {
		s.internalError(w, "visitors", err)
		return
	}
	writeJSON(w, http.StatusOK, visitors)
}

func (s *Server) handleVisitorDetails(w http.ResponseWriter, r *http.Request) {
	details, err := s.store.GetVisitorDetails(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.internalError(w, "visitor details", err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

func (s *Server) handleTileClicks(w http.ResponseWriter, r *http.Request) {
	clicks, err := s.store.GetTileClicks(r.Context(), intParam(r, "days", defaultDays, maxDays))
	if err != nil {
		s.internalError(w, "tile clicks", err)
		return
	}
	writeJSON(w, http.StatusOK, clicks)
}

func (s *Server) handleOutboundClicks(w http.ResponseWriter, r *http.Request) {
	clicks, err := s.store.GetOutboundClicks(r.Context(), intParam(r, "days", defaultDays, maxDays))
	if err != nil {
		s.internalError(w, "outbound clicks", err)
		return
	}
	writeJSON(w, http.StatusOK, clicks)
}

func (s *Server) handleEventDetails(w http.ResponseWriter, r *http.Request) {
	events, err := s.store.GetEventDetails(r.Context(),
		chi.URLParam(r, "name"),
		intParam(r, "days", defaultDays, maxDays),
		intParam(r, "limit", defaultRecentLimit, maxLimit))
	if err != nil {
		s.internalError(w, "event details", err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) internalError(w http.ResponseWriter, what string, err error) {
	slog.Error("Analytics query failed", "query", what, "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}
