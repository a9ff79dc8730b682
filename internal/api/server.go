// Package api provides the HTTP surface of the signage server: the device
// WebSocket endpoint, the admin upload API, media file serving, health and
// metrics.
package api

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/adgrid/signage/internal/broadcast"
	"github.com/adgrid/signage/internal/config"
	"github.com/adgrid/signage/internal/registry"
)

// Server carries the handlers' shared dependencies.
type Server struct {
	cfg        config.Server
	reg        *registry.Registry
	dispatcher *broadcast.Dispatcher
	startTime  time.Time
}

// New constructs the server and ensures the media root exists.
func New(cfg config.Server, reg *registry.Registry, dispatcher *broadcast.Dispatcher) (*Server, error) {
	if err := os.MkdirAll(cfg.MediaDir, 0o750); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}
	return &Server{
		cfg:        cfg,
		reg:        reg,
		dispatcher: dispatcher,
		startTime:  time.Now(),
	}, nil
}

// Router assembles the chi router with the canonical middleware stack.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(Recoverer)
	r.Use(RequestID)
	r.Use(Metrics)
	r.Use(RequestLogger)

	r.Get("/ws", s.handleWS)
	r.Get("/media/{filename}", s.handleMedia)
	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(httprate.LimitByIP(s.cfg.UploadRateRPM, time.Minute))
		r.Post("/upload", s.handleUpload)
	})

	return r
}
