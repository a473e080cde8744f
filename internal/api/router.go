package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nerrad567/gohome/internal/plugin"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(echoRequestID)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(middleware.RequestSize(maxRequestBodySize))

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	// Push channel
	r.Get(s.wsPath(), s.handleWebSocket)

	r.Route("/api", func(r chi.Router) {
		r.Get("/system/metrics", s.handleMetrics)
		r.Get("/protocols", s.handleListProtocols)
		r.Get("/widgets", s.handleListWidgets)

		r.Route("/devices", func(r chi.Router) {
			r.Get("/", s.handleListDevices)
			r.Post("/", s.handleCreateDevice)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetDevice)
				r.Delete("/", s.handleDeleteDevice)
				r.Post("/adapters/{adapterId}", s.handleLinkAdapter)
				r.Delete("/adapters/{adapterId}", s.handleUnlinkAdapter)
			})
		})

		r.Route("/adapters", func(r chi.Router) {
			r.Get("/", s.handleListAdapters)
			r.Post("/start/{id}", s.handleStartPlugin(plugin.TypeAdapter))
			r.Post("/stop/{id}", s.handleStopPlugin(plugin.TypeAdapter))
		})

		r.Route("/scanners", func(r chi.Router) {
			r.Get("/", s.handleListScanners)
			r.Post("/start/{id}", s.handleStartPlugin(plugin.TypeScanner))
			r.Post("/stop/{id}", s.handleStopPlugin(plugin.TypeScanner))
		})

		r.Get("/history/device/{deviceId}/capabilities/{capabilityType}", s.handleCapabilityHistory)
	})

	return r
}

func (s *Server) wsPath() string {
	if s.wsCfg.Path == "" {
		return "/ws"
	}
	return s.wsCfg.Path
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
