package service

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
)

const (
	maxEventNameLen = 100
	maxEventForm    = 64 << 10
)

// handleEvent records a custom event from the site frontend. The form fields
// are event, optional path and optional metadata (a JSON object). Both
// urlencoded and multipart bodies are accepted.
func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxEventForm); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		writeError(w, http.StatusBadRequest, "invalid form")
		return
	}

	name := strings.TrimSpace(r.PostFormValue("event"))
	if name == "" {
		writeError(w, http.StatusBadRequest, "event is required")
		return
	}
	if len(name) > maxEventNameLen {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("event name exceeds %d characters", maxEventNameLen))
		return
	}

	var path *string
	if p := r.PostFormValue("path"); p != "" {
		path = &p
	}

	var metadata map[string]any
	if raw := r.PostFormValue("metadata"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &metadata); err != nil {
			writeError(w, http.StatusBadRequest, "metadata must be a JSON object")
			return
		}
	}

	if _, err := s.store.RecordEvent(r.Context(), name, s.tracker.VisitorID(r), path, metadata); err != nil {
		slog.Error("failed to record event", "event", name, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
