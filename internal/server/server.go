// Package server provides the HTTP API for paperselect.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/paperselect/internal/config"
	"github.com/hyperjump/paperselect/internal/pipeline"
	"github.com/hyperjump/paperselect/internal/storage"
	"go.uber.org/zap"
)

// requestTimeout bounds a single request, including a full selection run.
const requestTimeout = 5 * time.Minute

// Server is the HTTP server for the paperselect API.
type Server struct {
	pipeline *pipeline.Pipeline
	storage  storage.Storage
	config   *config.Config
	logger   *zap.Logger
	server   *http.Server
}

// NewServer creates a server with the given dependencies.
func NewServer(p *pipeline.Pipeline, store storage.Storage, cfg *config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		pipeline: p,
		storage:  store,
		config:   cfg,
		logger:   logger,
	}
}

// Router returns the API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.Compress(5))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/libraries", s.handleUploadLibrary)
		r.Get("/libraries", s.handleListLibraries)
		r.Get("/libraries/{id}", s.handleGetLibrary)
		r.Delete("/libraries/{id}", s.handleDeleteLibrary)
		r.Get("/libraries/{id}/runs", s.handleListRuns)
		r.Post("/process", s.handleProcess)
		r.Get("/runs/{id}", s.handleGetRun)
		r.Get("/runs/{id}/download/{format}", s.handleDownload)
		r.Get("/status", s.handleStatus)
	})
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops. A graceful Stop returns nil.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
