// Package server exposes the wanderlog HTTP API: journal-table queries,
// stored-procedure calls, photo uploads, and presigned-URL management.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/kincraig/wanderlog/internal/config"
	"github.com/kincraig/wanderlog/internal/database"
	"github.com/kincraig/wanderlog/internal/filestore"
	"github.com/kincraig/wanderlog/internal/logger"
)

// Server wires the route handlers to their backing services. Either backing
// service may be nil when not configured; handlers answer 503 for the
// affected routes instead of calling into a no-op substitute.
type Server struct {
	cfg    *config.Config
	log    *logger.Logger
	db     *database.Client   // nil when the database is not configured
	store  *filestore.Service // nil when object storage is not configured
	router chi.Router
}

// New builds the Server and its route table. db and store may be nil.
func New(cfg *config.Config, log *logger.Logger, db *database.Client, store *filestore.Service) *Server {
	s := &Server{
		cfg:   cfg,
		log:   log.Component("server"),
		db:    db,
		store: store,
	}
	s.router = s.routes()
	return s
}

// Handler returns the root HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(s.requestLogger)
	r.Use(s.recoverer)

	r.Get("/api/health", s.handleHealth)
	r.Get("/api/ping", s.handlePing)

	r.Route("/api/database", func(r chi.Router) {
		r.Get("/status", s.handleDatabaseStatus)
		r.Get("/tables", s.handleDatabaseTables)
		r.Post("/query", s.handleDatabaseQuery)
		r.Post("/rpc", s.handleDatabaseRPC)
	})

	r.Post("/api/photos/upload", s.handlePhotoUpload)

	r.Route("/api/storage", func(r chi.Router) {
		r.Get("/status", s.handleStorageStatus)
		r.Get("/url/*", s.handleStorageURL)
		r.Get("/files", s.handleStorageList)
		r.Delete("/files/*", s.handleStorageDelete)
	})

	return r
}

// Run serves the API until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", srv.Addr).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	s.log.Info().Msg("shutting down")
	return srv.Shutdown(shutdownCtx)
}
