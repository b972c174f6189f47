// Package server provides the HTTP API for kotae.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/kotae/internal/chat"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/ingest"
	"github.com/hyperjump/kotae/internal/registry"
	"github.com/hyperjump/kotae/internal/storage"
	"go.uber.org/zap"
)

// conversation ties a conversation id to the session answering it. The
// chat.Session carries the multi-turn memory; sessionID is echoed in
// responses ("" for the combined view). A combined-view conversation
// retrieves against the merged indices as of its first request; documents
// ingested afterwards become visible only to new conversations.
type conversation struct {
	session   *chat.Session
	sessionID string
}

// Server is the HTTP server for the kotae API.
type Server struct {
	chat      *chat.Manager
	ingestor  *ingest.Ingestor
	storage   storage.Storage
	registry  *registry.Registry
	extractor *extract.Extractor
	config    *config.Config
	logger    *zap.Logger
	server    *http.Server

	convMu        sync.Mutex
	conversations map[string]*conversation
}

// NewServer creates a server with the given dependencies. storage may be nil
// when document persistence is disabled.
func NewServer(
	chatManager *chat.Manager,
	ingestor *ingest.Ingestor,
	store storage.Storage,
	reg *registry.Registry,
	extractor *extract.Extractor,
	cfg *config.Config,
	logger *zap.Logger,
) *Server {
	return &Server{
		chat:          chatManager,
		ingestor:      ingestor,
		storage:       store,
		registry:      reg,
		extractor:     extractor,
		config:        cfg,
		logger:        logger,
		conversations: make(map[string]*conversation),
	}
}

// Router builds the chi router with all routes and middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))
	r.Use(middleware.Compress(5))

	r.Post("/api/v1/sessions/{id}/documents", s.handleUploadDocuments)
	r.Post("/api/v1/chat", s.handleChat)
	r.Post("/api/v1/extract", s.handleExtract)
	r.Get("/api/v1/sessions", s.handleListSessions)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
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
