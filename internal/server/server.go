// Package server provides the read-only preview API for the generated background.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/stacbg/internal/aoi"
	"github.com/hyperjump/stacbg/internal/config"
	"github.com/hyperjump/stacbg/internal/models"
	"github.com/hyperjump/stacbg/internal/storage"
)

// Paths locates the files the server exposes.
type Paths struct {
	Image     string
	Thumbnail string
}

// Server is the HTTP server for the preview API.
type Server struct {
	records storage.RecordStore
	history storage.HistoryStore
	aois    aoi.Store
	paths   Paths
	config  *config.ServerConfig
	logger  *zap.Logger
	server  *http.Server

	mu     sync.Mutex
	cached *models.GenerationRecord
	valid  bool
}

// NewServer creates a server. history and aois may be nil.
func NewServer(
	records storage.RecordStore,
	history storage.HistoryStore,
	aois aoi.Store,
	paths Paths,
	cfg *config.ServerConfig,
	logger *zap.Logger,
) *Server {
	return &Server{
		records: records,
		history: history,
		aois:    aois,
		paths:   paths,
		config:  cfg,
		logger:  logger,
	}
}

// Router returns the HTTP handler with all routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5, "application/json"))

	r.Get("/health", s.handleHealth)
	r.Get("/api/v1/record", s.handleRecord)
	r.Get("/api/v1/history", s.handleHistory)
	r.Get("/api/v1/aois", s.handleAOIs)
	r.Get("/image", s.serveFile(func() string { return s.paths.Image }))
	r.Get("/thumbnail", s.serveFile(func() string { return s.paths.Thumbnail }))
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// Invalidate drops the cached generation record; the next request reloads it.
func (s *Server) Invalidate(path string) {
	s.mu.Lock()
	s.valid = false
	s.cached = nil
	s.mu.Unlock()
	s.logger.Debug("record cache invalidated", zap.String("path", path))
}

func (s *Server) record(ctx context.Context) (*models.GenerationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.valid {
		return s.cached, nil
	}
	rec, err := s.records.Load(ctx)
	if err != nil {
		return nil, err
	}
	s.cached, s.valid = rec, true
	return rec, nil
}
