package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gohome/internal/plugin"
)

// handleListAdapters returns every connected adapter.
func (s *Server) handleListAdapters(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.plugins.Adapters())
}

// handleListScanners returns every connected scanner.
func (s *Server) handleListScanners(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.plugins.Scanners())
}

// handleListWidgets returns the widgets declared by connected plugins.
func (s *Server) handleListWidgets(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.plugins.Widgets())
}

// handleStartPlugin asks a plugin of type t to start.
func (s *Server) handleStartPlugin(t plugin.Type) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := s.plugins.Start(r.Context(), t, id); err != nil {
			s.writePluginError(w, err, id)
			return
		}
		writeStatus(w, "started")
	}
}

// handleStopPlugin asks a plugin of type t to stop.
func (s *Server) handleStopPlugin(t plugin.Type) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := s.plugins.Stop(r.Context(), t, id); err != nil {
			s.writePluginError(w, err, id)
			return
		}
		writeStatus(w, "stopped")
	}
}

// writePluginError maps plugin command errors onto HTTP responses.
func (s *Server) writePluginError(w http.ResponseWriter, err error, id string) {
	switch {
	case errors.Is(err, plugin.ErrNotFound):
		writeNotFound(w, "plugin not found")
	case errors.Is(err, plugin.ErrRejected):
		writeError(w, http.StatusConflict, ErrCodeRejected, "plugin rejected the command")
	case errors.Is(err, plugin.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, ErrCodeTimeout, "plugin did not answer in time")
	default:
		s.logger.Error("plugin command failed", "id", id, "error", err)
		writeInternalError(w, "plugin command failed")
	}
}
