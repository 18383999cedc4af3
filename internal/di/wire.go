//go:build wireinject
// +build wireinject

package di

import (
	"HyperTrack/pkg/config"
	"HyperTrack/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient infrastructure
		ProvideLogger,
		ProvideMetrics,
		ProvideCache,

		// External clients
		ProvideChainClient,
		ProvideInfoClient,
		ProvidePriceSource,

		// Stores and sinks
		ProvideSnapshotStore,
		ProvideHistoryStore,
		ProvideHistoryPipeline,

		// Delivery
		ProvideHub,
		ProvideDashboardHandler,

		// Orchestration
		ProvideRefresher,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
