// Package api exposes the image library over HTTP: query search, image
// ingestion and management, tags, tag types, and compound tags.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/pictoria/pictoria-server/internal/config"
	"github.com/pictoria/pictoria-server/internal/ratelimit"
	"github.com/pictoria/pictoria-server/internal/service"
	"github.com/pictoria/pictoria-server/internal/validation"
)

// Per-client request budget. Generous enough for interactive browsing,
// tight enough to stop a runaway client from hammering ingestion.
const (
	rateLimitRPS   = 50
	rateLimitBurst = 100
)

// Server is the HTTP API server.
type Server struct {
	httpServer *http.Server
	router     chi.Router
	logger     *slog.Logger
	validator  *validation.Validator
	limiter    *ratelimit.Limiter

	search  *service.SearchService
	library *service.LibraryService
	tags    *service.TagService
}

// NewServer creates the API server and mounts all routes.
func NewServer(
	cfg *config.Config,
	search *service.SearchService,
	library *service.LibraryService,
	tags *service.TagService,
	logger *slog.Logger,
) *Server {
	s := &Server{
		logger:    logger,
		validator: validation.New(),
		limiter:   ratelimit.NewLimiter(rateLimitRPS, rateLimitBurst),
		search:    search,
		library:   library,
		tags:      tags,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(ratelimit.Middleware(s.limiter, logger))
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/search", s.handleSearch)

		r.Route("/images", func(r chi.Router) {
			r.Post("/", s.handleIngestImage)
			r.Get("/untagged", s.handleUntaggedImages)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetImage)
				r.Delete("/", s.handleDeleteImage)
				r.Put("/tags", s.handleRetagImage)
				r.Post("/refresh", s.handleRefreshImage)
				r.Get("/similar", s.handleSimilarImages)
			})
		})

		r.Route("/tags", func(r chi.Router) {
			r.Get("/", s.handleListTags)
			r.Put("/{id}", s.handleUpdateTag)
			r.Delete("/{id}", s.handleDeleteTag)
		})

		r.Route("/tag-types", func(r chi.Router) {
			r.Get("/", s.handleListTagTypes)
			r.Post("/", s.handleCreateTagType)
			r.Put("/{id}", s.handleUpdateTagType)
			r.Delete("/{id}", s.handleDeleteTagType)
		})

		r.Route("/compound-tags", func(r chi.Router) {
			r.Get("/", s.handleListCompoundTags)
			r.Post("/", s.handleCreateCompoundTag)
			r.Put("/{id}", s.handleUpdateCompoundTag)
			r.Delete("/{id}", s.handleDeleteCompoundTag)
		})
	})

	s.router = r
	s.httpServer = &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return s
}

// Router returns the configured router, for tests and embedding.
func (s *Server) Router() chi.Router { return s.router }

// Start begins serving HTTP requests. Blocks until the server stops.
func (s *Server) Start() error {
	s.logger.Info("API server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Stop()
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}
