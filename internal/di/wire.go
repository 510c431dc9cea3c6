//go:build wireinject
// +build wireinject

package di

import (
	"MarketFeeds/pkg/config"
	"MarketFeeds/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Token substrate and fees
		ProvideLedger,
		ProvideFeePool,
		ProvideFeeSink,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideRedisClient,

		// Egress
		ProvideBarArchive,
		ProvideBarPublisher,
		ProvideRedisQueue,
		ProvideQueueService,
		ProvideBarFanout,

		// Registries
		ProvideCandlestickRegistry,
		ProvidePriceSource,
		ProvidePerformanceRegistry,

		// Ingest
		ProvideStream,
		ProvideBarApplier,
		ProvideCollector,
		ProvideKafkaConsumer,
		ProvideBarsHandler,

		// HTTP
		ProvideHistoryCache,
		ProvideFeedsHandler,
		ProvidePerfHandler,
		ProvideRouter,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
