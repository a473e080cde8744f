package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gohome/internal/infrastructure/influxdb"
)

// handleCapabilityHistory returns the recorded values of one capability
// of one device as chart points.
func (s *Server) handleCapabilityHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeDisabled, "history is not enabled")
		return
	}

	ctx := r.Context()
	deviceID := chi.URLParam(r, "deviceId")
	capability := chi.URLParam(r, "capabilityType")

	if _, err := s.devices.GetDevice(ctx, deviceID); err != nil {
		s.writeDeviceError(w, err, "failed to query history")
		return
	}

	history, err := s.history.QueryCapabilityHistory(ctx, deviceID, capability)
	if err != nil {
		if errors.Is(err, influxdb.ErrNotConnected) {
			writeError(w, http.StatusServiceUnavailable, ErrCodeDisabled, "history store unavailable")
			return
		}
		s.logger.Error("history query failed",
			"device_id", deviceID,
			"capability", capability,
			"error", err,
		)
		writeInternalError(w, "failed to query history")
		return
	}

	writeJSON(w, http.StatusOK, history)
}
