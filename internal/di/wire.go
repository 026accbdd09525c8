//go:build wireinject
// +build wireinject

package di

import (
	"AltScan/pkg/config"
	"AltScan/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideRedisCache,
		ProvideLimiter,
		ProvideBarProvider,
		ProvideMarketStream,
		ProvideNotifier,
		ProvideQueueSet,

		// Analysis services
		ProvideScorer,
		ProvideMTFConfirmer,
		ProvideContextAdjuster,
		ProvideAnalyzer,

		// Signal log and alert delivery
		ProvideSignalLog,
		ProvideAlertPipeline,

		// Use cases
		ProvideScanner,
		ProvideBarCollector,

		// HTTP surface
		ProvideOpsHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
