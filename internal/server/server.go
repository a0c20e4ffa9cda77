// Package server exposes the dashboard HTTP API: surveillance series,
// forecasts, viewer localization and operational endpoints.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ceyeborg/virusradar/internal/config"
	"github.com/ceyeborg/virusradar/internal/datasets"
	"github.com/ceyeborg/virusradar/internal/freshness"
	"github.com/ceyeborg/virusradar/internal/geocode"
	"github.com/ceyeborg/virusradar/internal/location"
	"github.com/ceyeborg/virusradar/internal/logger"
)

// Server serves the dashboard API.
type Server struct {
	store           *datasets.Store
	geo             *geocode.Geocoder
	locations       *location.Manager
	checker         *freshness.Checker
	sources         []config.DatasetSource
	forecastHorizon int
	log             *logger.Logger
	httpServer      *http.Server
	gatherer        prometheus.Gatherer
}

// Options carries the server's collaborators. locations, checker and
// gatherer may be nil; the matching endpoints then degrade gracefully.
type Options struct {
	Store           *datasets.Store
	Geocoder        *geocode.Geocoder
	Locations       *location.Manager
	Checker         *freshness.Checker
	Sources         []config.DatasetSource
	ForecastHorizon int
	Gatherer        prometheus.Gatherer
	Log             *logger.Logger
}

// New builds the server and its router.
func New(cfg config.ServerConfig, opts Options) *Server {
	s := &Server{
		store:           opts.Store,
		geo:             opts.Geocoder,
		locations:       opts.Locations,
		checker:         opts.Checker,
		sources:         opts.Sources,
		forecastHorizon: opts.ForecastHorizon,
		gatherer:        opts.Gatherer,
		log:             opts.Log,
	}
	if s.forecastHorizon <= 0 {
		s.forecastHorizon = 24
	}

	readTimeout := time.Duration(cfg.ReadTimeoutSeconds) * time.Second
	if readTimeout <= 0 {
		readTimeout = 15 * time.Second
	}

	s.httpServer = &http.Server{
		Addr:         cfg.Listen,
		Handler:      s.router(),
		ReadTimeout:  readTimeout,
		WriteTimeout: 2 * readTimeout,
	}
	return s
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/", s.handleIndex)
	r.Get("/healthz", s.handleHealthz)

	if s.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/location", s.handleLocation)
		r.Get("/grippeweb", s.handleGrippeWeb)
		r.Get("/abwasser", s.handleAbwasser)
		r.Get("/stations", s.handleStations)
		r.Get("/stations/nearest", s.handleNearestStation)
		r.Get("/about", s.handleAbout)
	})

	return r
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start runs the HTTP server until it fails or Shutdown is called.
func (s *Server) Start() error {
	s.log.Info("dashboard server listening",
		logger.Field{Key: "addr", Value: s.httpServer.Addr})

	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("dashboard server shutting down")
	return s.httpServer.Shutdown(ctx)
}
