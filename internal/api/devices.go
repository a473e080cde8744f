package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gohome/internal/device"
	"github.com/nerrad567/gohome/internal/plugin"
)

// handleListDevices returns every device, sorted by name.
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.devices.ListDevices(r.Context())
	if err != nil {
		s.logger.Error("failed to list devices", "error", err)
		writeInternalError(w, "failed to list devices")
		return
	}
	writeJSON(w, http.StatusOK, devices)
}

// handleGetDevice returns a single device by ID.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	dev, err := s.devices.GetDevice(r.Context(), id)
	if err != nil {
		s.writeDeviceError(w, err, "failed to get device")
		return
	}

	writeJSON(w, http.StatusOK, dev)
}

// handleCreateDevice registers a device and announces it to every adapter
// named in the request.
func (s *Server) handleCreateDevice(w http.ResponseWriter, r *http.Request) {
	var req device.CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	dev, err := s.devices.CreateDevice(r.Context(), req)
	if err != nil {
		s.writeDeviceError(w, err, "failed to create device")
		return
	}

	for _, adapterID := range dev.AdapterIDs {
		s.notifyAdapter(adapterID, dev, true)
	}

	writeJSON(w, http.StatusCreated, dev)
}

// handleDeleteDevice removes a device and tells its adapters.
func (s *Server) handleDeleteDevice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	dev, err := s.devices.GetDevice(ctx, id)
	if err != nil {
		s.writeDeviceError(w, err, "failed to delete device")
		return
	}

	if err := s.devices.DeleteDevice(ctx, id); err != nil {
		s.writeDeviceError(w, err, "failed to delete device")
		return
	}

	for _, adapterID := range dev.AdapterIDs {
		s.notifyAdapter(adapterID, dev, false)
	}

	writeStatus(w, "deleted")
}

// handleLinkAdapter links a device to a connected adapter.
func (s *Server) handleLinkAdapter(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	adapterID := chi.URLParam(r, "adapterId")

	if _, err := s.plugins.Get(plugin.TypeAdapter, adapterID); err != nil {
		writeNotFound(w, "adapter not found")
		return
	}

	dev, err := s.devices.LinkAdapter(ctx, id, adapterID)
	if err != nil {
		s.writeDeviceError(w, err, "failed to link adapter")
		return
	}

	s.notifyAdapter(adapterID, dev, true)
	writeJSON(w, http.StatusOK, dev)
}

// handleUnlinkAdapter removes a link. The adapter does not need to be
// connected, so stale links can always be cleared.
func (s *Server) handleUnlinkAdapter(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	adapterID := chi.URLParam(r, "adapterId")

	dev, err := s.devices.UnlinkAdapter(ctx, id, adapterID)
	if err != nil {
		s.writeDeviceError(w, err, "failed to unlink adapter")
		return
	}

	s.notifyAdapter(adapterID, dev, false)
	writeJSON(w, http.StatusOK, dev)
}

// handleListProtocols returns the protocol catalogue.
func (s *Server) handleListProtocols(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, device.Protocols())
}

// notifyAdapter publishes a register or unregister message. The change is
// already persisted, so a bus failure is only logged.
func (s *Server) notifyAdapter(adapterID string, dev *device.Device, registered bool) {
	var err error
	if registered {
		err = s.plugins.RegisterDevice(adapterID, dev)
	} else {
		err = s.plugins.UnregisterDevice(adapterID, dev)
	}
	if err != nil {
		s.logger.Warn("failed to notify adapter",
			"adapter_id", adapterID,
			"device_id", dev.ID,
			"registered", registered,
			"error", err,
		)
	}
}

// writeDeviceError maps device package errors onto HTTP responses.
func (s *Server) writeDeviceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, device.ErrDeviceNotFound):
		writeNotFound(w, "device not found")
	case errors.Is(err, device.ErrDeviceExists):
		writeError(w, http.StatusConflict, ErrCodeConflict, "a device with this address already exists")
	case errors.Is(err, device.ErrInvalidDevice),
		errors.Is(err, device.ErrInvalidName),
		errors.Is(err, device.ErrInvalidAddress),
		errors.Is(err, device.ErrInvalidAddressType),
		errors.Is(err, device.ErrInvalidProtocol),
		errors.Is(err, device.ErrInvalidAdapterID):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
	default:
		s.logger.Error(fallback, "error", err)
		writeInternalError(w, fallback)
	}
}
