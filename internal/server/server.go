/*
Copyright (C) 2026 doccodyblue

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package server wires configuration, storage, receiver sources and the HTTP
// surface into one process.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/doccodyblue/openwebrx/internal/api"
	"github.com/doccodyblue/openwebrx/internal/auth"
	"github.com/doccodyblue/openwebrx/internal/bookmarks"
	"github.com/doccodyblue/openwebrx/internal/config"
	"github.com/doccodyblue/openwebrx/internal/db"
	"github.com/doccodyblue/openwebrx/internal/dxcluster"
	"github.com/doccodyblue/openwebrx/internal/events"
	"github.com/doccodyblue/openwebrx/internal/service"
	"github.com/doccodyblue/openwebrx/internal/telemetry"
)

// Server bundles the receiver's long-running components.
type Server struct {
	cfg        *config.Config
	logger     zerolog.Logger
	router     chi.Router
	httpServer *http.Server
	closers    []func() error

	db        *gorm.DB
	bus       *events.Bus
	registry  *service.Registry
	cluster   *dxcluster.Client
	bookmarks *bookmarks.Store
	api       *api.API

	bgCancel context.CancelFunc
	bgWG     sync.WaitGroup
}

// New constructs the server and wires dependencies.
func New(cfg *config.Config, logger zerolog.Logger) (*Server, error) {
	for _, warn := range cfg.LegacyEnvWarnings {
		logger.Warn().Msg(warn)
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(telemetry.TracingMiddleware("openwebrx-api"))
	router.Use(telemetry.MetricsMiddleware)
	router.Use(middleware.Timeout(60 * time.Second))

	srv := &Server{
		cfg:    cfg,
		logger: logger,
		router: router,
		bus:    events.NewBus(),
	}

	if err := srv.initDependencies(); err != nil {
		return nil, err
	}

	srv.configureRoutes()
	srv.startBackgroundWorkers()

	srv.httpServer = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return srv, nil
}

func (s *Server) initDependencies() error {
	database, err := db.Connect(s.cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	if err := db.Migrate(database); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	s.db = database
	s.DeferClose(func() error { return db.Close(database) })

	s.registry = service.NewRegistry(s.bus, s.logger)
	s.DeferClose(func() error { s.registry.Shutdown(); return nil })

	settings, err := loadSettings(s.cfg.SettingsFile)
	if err != nil {
		s.logger.Warn().Err(err).Str("file", s.cfg.SettingsFile).Msg("settings file not loaded, starting without sources")
	} else if err := s.registry.LoadSettings(settings); err != nil {
		return fmt.Errorf("load sources: %w", err)
	}

	s.bookmarks = bookmarks.NewStore(nil, s.bus, s.logger)

	if s.cfg.DXClusterEnabled {
		s.cluster = dxcluster.New(
			s.cfg.DXClusterHost, s.cfg.DXClusterPort, s.cfg.DXClusterCallsign,
			s.cfg.DXClusterLoginScript, s.bus, s.db, s.logger)
	}

	s.api = api.New(s.registry, s.cluster, s.bookmarks, s.db, s.logger)
	s.api.SetGuard(auth.NewBasic(s.db, s.logger).Middleware)
	return nil
}

// loadSettings reads the receiver settings document.
func loadSettings(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var settings map[string]any
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return settings, nil
}

func (s *Server) configureRoutes() {
	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	s.router.Handle("/metrics", telemetry.Handler())

	s.api.Routes(s.router)
}

func (s *Server) startBackgroundWorkers() {
	ctx, cancel := context.WithCancel(context.Background())
	s.bgCancel = cancel

	if s.cluster != nil {
		s.bgWG.Add(1)
		go func() {
			defer s.bgWG.Done()
			s.cluster.Run(ctx)
		}()
	}

	s.bgWG.Add(1)
	go func() {
		defer s.bgWG.Done()
		if err := s.bookmarks.Watch(ctx); err != nil {
			s.logger.Error().Err(err).Msg("bookmark watcher exited")
		}
	}()
}

func (s *Server) stopBackgroundWorkers() {
	if s.bgCancel == nil {
		return
	}
	s.bgCancel()
	s.bgWG.Wait()
	s.bgCancel = nil
}

// HTTPServer exposes the underlying net/http server.
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// Registry exposes the source registry.
func (s *Server) Registry() *service.Registry {
	return s.registry
}

// Close releases owned resources in reverse order.
func (s *Server) Close() error {
	s.stopBackgroundWorkers()
	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// DeferClose registers a cleanup hook.
func (s *Server) DeferClose(fn func() error) {
	s.closers = append(s.closers, fn)
}
