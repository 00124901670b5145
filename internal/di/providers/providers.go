// Package providers contains dependency injection providers for the Pictoria
// server.
package providers

import (
	"context"
	"time"

	"github.com/samber/do/v2"

	"github.com/pictoria/pictoria-server/internal/api"
	"github.com/pictoria/pictoria-server/internal/config"
	"github.com/pictoria/pictoria-server/internal/logger"
	"github.com/pictoria/pictoria-server/internal/service"
	"github.com/pictoria/pictoria-server/internal/store"
	"github.com/pictoria/pictoria-server/internal/watcher"
)

// shutdownTimeout is the maximum time to wait for graceful shutdown.
const shutdownTimeout = 30 * time.Second

// ProvideConfig provides the application configuration.
func ProvideConfig(i do.Injector) (*config.Config, error) {
	return config.LoadConfig()
}

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		Environment: cfg.App.Environment,
	})

	log.Info("starting Pictoria server",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"library_path", cfg.Library.Path,
	)
	return log, nil
}

// StoreHandle wraps the store with shutdown capability.
type StoreHandle struct {
	*store.Store
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore provides the SQLite store.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	st, err := store.Open(cfg.Database.Path, log.Logger)
	if err != nil {
		return nil, err
	}
	log.Info("database opened", "path", cfg.Database.Path)
	return &StoreHandle{Store: st}, nil
}

// ProvideSearchService provides the query search service.
func ProvideSearchService(i do.Injector) (*service.SearchService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)
	return service.NewSearchService(storeHandle.Store, log.Logger), nil
}

// ProvideLibraryService provides the ingestion and similarity service.
func ProvideLibraryService(i do.Injector) (*service.LibraryService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)
	return service.NewLibraryService(storeHandle.Store, log.Logger, cfg.Library.DuplicateThreshold), nil
}

// ProvideTagService provides the tag management service.
func ProvideTagService(i do.Injector) (*service.TagService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)
	return service.NewTagService(storeHandle.Store, log.Logger), nil
}

// WatcherHandle wraps the library watcher with its lifecycle.
type WatcherHandle struct {
	watcher *watcher.Watcher
	cancel  context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *WatcherHandle) Shutdown() error {
	if h.watcher == nil {
		return nil
	}
	h.cancel()
	return h.watcher.Stop()
}

// ProvideWatcher provides the library watcher, started in the background. A
// disabled watcher yields an inert handle.
func ProvideWatcher(i do.Injector) (*WatcherHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	if !cfg.Watcher.Enabled {
		return &WatcherHandle{}, nil
	}

	log := do.MustInvoke[*logger.Logger](i)
	library := do.MustInvoke[*service.LibraryService](i)

	w, err := watcher.New(cfg.Library.Path, library, log.Logger)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		if err := w.Start(ctx); err != nil {
			log.Error("watcher stopped", "error", err)
		}
	}()
	return &WatcherHandle{watcher: w, cancel: cancel}, nil
}

// ServerHandle wraps the API server with shutdown capability.
type ServerHandle struct {
	*api.Server
}

// Shutdown implements do.Shutdownable.
func (h *ServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer provides the API server, started in the background.
func ProvideHTTPServer(i do.Injector) (*ServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	search := do.MustInvoke[*service.SearchService](i)
	library := do.MustInvoke[*service.LibraryService](i)
	tags := do.MustInvoke[*service.TagService](i)

	srv := api.NewServer(cfg, search, library, tags, log.Logger)
	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal("API server failed", "error", err)
		}
	}()
	return &ServerHandle{Server: srv}, nil
}
