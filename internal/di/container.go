// Package di provides dependency injection configuration for the Pictoria
// server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/pictoria/pictoria-server/internal/config"
	"github.com/pictoria/pictoria-server/internal/di/providers"
	"github.com/pictoria/pictoria-server/internal/logger"
	"github.com/pictoria/pictoria-server/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideStore)

	// Business services
	do.Provide(injector, providers.ProvideSearchService)
	do.Provide(injector, providers.ProvideLibraryService)
	do.Provide(injector, providers.ProvideTagService)

	// Workers and server
	do.Provide(injector, providers.ProvideWatcher)
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services eagerly so configuration and database
// failures surface at startup instead of on first request.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*logger.Logger](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.StoreHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*service.SearchService](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*service.LibraryService](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*service.TagService](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.WatcherHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.ServerHandle](injector); err != nil {
		return err
	}
	return nil
}
