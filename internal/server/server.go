// Package server provides the HTTP API for Tana.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/yonagi/tana/internal/catalog"
	"github.com/yonagi/tana/internal/config"
	"github.com/yonagi/tana/internal/embedding"
	"github.com/yonagi/tana/internal/search"
	"github.com/yonagi/tana/internal/vectordb"
)

// Server is the HTTP server for the Tana API.
type Server struct {
	engine   *search.Engine
	ingestor *catalog.Ingestor
	vectors  *vectordb.Service
	embedder embedding.Embedder
	config   *config.ServerConfig
	logger   *zap.Logger
	server   *http.Server
}

// NewServer creates a server with the given dependencies. embedder may be
// nil; text-based vector upserts then fail with 503.
func NewServer(
	engine *search.Engine,
	ingestor *catalog.Ingestor,
	vectors *vectordb.Service,
	embedder embedding.Embedder,
	cfg *config.ServerConfig,
	logger *zap.Logger,
) *Server {
	return &Server{
		engine:   engine,
		ingestor: ingestor,
		vectors:  vectors,
		embedder: embedder,
		config:   cfg,
		logger:   logger,
	}
}

// Router builds the chi router with all API routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/search", s.handleSearch)

	r.Put("/api/v1/vectors", s.handleUpsertVector)
	r.Post("/api/v1/vectors/query", s.handleQueryVectors)
	r.Delete("/api/v1/vectors/{id}", s.handleDeleteVector)

	r.Post("/api/v1/products", s.handleSaveProduct)
	r.Get("/api/v1/products", s.handleListProducts)
	r.Get("/api/v1/products/{id}", s.handleGetProduct)
	r.Delete("/api/v1/products/{id}", s.handleDeleteProduct)

	r.Post("/api/v1/knowledge", s.handleSaveKnowledge)
	r.Get("/api/v1/knowledge", s.handleListKnowledge)
	r.Get("/api/v1/knowledge/{id}", s.handleGetKnowledge)
	r.Delete("/api/v1/knowledge/{id}", s.handleDeleteKnowledge)

	r.Get("/api/v1/stats", s.handleStats)
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
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
