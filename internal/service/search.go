// Package service orchestrates the query pipeline, fingerprinting, and the
// store into the operations the API exposes.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pictoria/pictoria-server/internal/domain"
	"github.com/pictoria/pictoria-server/internal/errors"
	"github.com/pictoria/pictoria-server/internal/query"
	"github.com/pictoria/pictoria-server/internal/store"
)

// SearchService compiles tag queries against the current compound-tag
// definitions and executes them.
type SearchService struct {
	store    *store.Store
	registry *query.Registry
	logger   *slog.Logger
}

// NewSearchService creates a new search service.
func NewSearchService(store *store.Store, logger *slog.Logger) *SearchService {
	return &SearchService{
		store:    store,
		registry: query.DefaultRegistry(),
		logger:   logger,
	}
}

// Search compiles raw query text and returns the matching images ordered by
// path. Malformed queries surface as validation errors carrying the typed
// compiler error as cause; they are never retried.
func (s *SearchService) Search(ctx context.Context, raw string) ([]*domain.Image, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, errors.Validation("empty query")
	}

	compiled, err := s.compile(ctx, raw)
	if err != nil {
		return nil, err
	}

	images, err := s.store.SearchImages(ctx, compiled)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	s.logger.Debug("search executed", "query", raw, "results", len(images))
	return images, nil
}

// Untagged returns images with no tag assignments.
func (s *SearchService) Untagged(ctx context.Context) ([]*domain.Image, error) {
	return s.store.ListUntaggedImages(ctx)
}

// CompileSQL compiles raw query text and returns the generated SQL and its
// arguments without executing it. Empty is true for queries that are provably
// unsatisfiable.
func (s *SearchService) CompileSQL(ctx context.Context, raw string) (*query.Compiled, error) {
	return s.compile(ctx, raw)
}

func (s *SearchService) compile(ctx context.Context, raw string) (*query.Compiled, error) {
	defs, err := s.store.CompoundTagDefinitions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load compound tags: %w", err)
	}

	pipeline := query.Pipeline{Definitions: defs, Registry: s.registry}
	compiled, err := pipeline.Compile(raw)
	if err != nil {
		if query.IsQueryError(err) {
			return nil, errors.Wrap(err, errors.CodeValidation, err.Error())
		}
		return nil, err
	}
	return compiled, nil
}
