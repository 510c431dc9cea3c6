package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"MarketFeeds/internal/domain/repository"
	"MarketFeeds/internal/usecase"
	pkgch "MarketFeeds/pkg/clickhouse"
	"MarketFeeds/pkg/config"
	xhttp "MarketFeeds/pkg/http"
	pkgkafka "MarketFeeds/pkg/kafka"
	applogger "MarketFeeds/pkg/logger"
	"MarketFeeds/pkg/queue"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg         *config.Config
	logger      *applogger.Logger
	registry    *usecase.CandlestickRegistry
	collector   *usecase.BarCollector
	consumer    *pkgkafka.Consumer
	barsHandler pkgkafka.MessageHandler
	chClient    *pkgch.Client
	redisQueue  *queue.RedisQueue
	publisher   repository.BarPublisher
	httpHandler xhttp.Handler
	httpServer  *xhttp.Server
}

// New creates a new App instance with all dependencies. collector, consumer,
// redisQueue, chClient, and publisher may be nil depending on configuration.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	registry *usecase.CandlestickRegistry,
	collector *usecase.BarCollector,
	consumer *pkgkafka.Consumer,
	barsHandler pkgkafka.MessageHandler,
	chClient *pkgch.Client,
	redisQueue *queue.RedisQueue,
	publisher repository.BarPublisher,
	httpHandler xhttp.Handler,
) *App {
	return &App{
		cfg:         cfg,
		logger:      l,
		registry:    registry,
		collector:   collector,
		consumer:    consumer,
		barsHandler: barsHandler,
		chClient:    chClient,
		redisQueue:  redisQueue,
		publisher:   publisher,
		httpHandler: httpHandler,
	}
}

// bootstrapFeeds registers a candlestick feed for every configured symbol so
// provider writes have somewhere to land.
func (a *App) bootstrapFeeds() {
	tf := a.cfg.Provider.Timeframe
	if tf <= 0 {
		tf = repository.DefaultTimeframe()
	}
	for _, sym := range a.cfg.Provider.Symbols {
		if a.registry.HasDataFeed(sym, tf) {
			continue
		}
		_, err := a.registry.RegisterDataFeed(a.cfg.Registry.RegistrarAccount, sym, sym, tf, a.cfg.Provider.Account)
		if err != nil {
			a.logger.Warn("feed bootstrap failed",
				applogger.String("symbol", sym),
				applogger.Int("timeframe", tf),
				applogger.Error(err),
			)
			continue
		}
		a.logger.Info("feed registered", applogger.String("symbol", sym), applogger.Int("timeframe", tf))
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.bootstrapFeeds()

	a.httpServer = xhttp.NewServer(a.httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	if a.redisQueue != nil {
		if err := a.redisQueue.Start(); err != nil {
			a.logger.Warn("redis queue start error", applogger.Error(err))
		}
	}

	if a.collector != nil {
		go func() {
			if err := a.collector.Start(ctx); err != nil {
				a.logger.Error("collector error", applogger.Error(err))
			}
		}()
		a.logger.Info("collector started", applogger.Strings("symbols", a.cfg.Provider.Symbols))
	}

	if a.consumer != nil && a.barsHandler != nil {
		a.consumer.RegisterHandler(a.barsHandler)
		go func() {
			if err := a.consumer.Start(); err != nil {
				a.logger.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		a.logger.Info("kafka consumer started", applogger.String("topic", a.barsHandler.Topic()))
	}

	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http server start error", applogger.Error(err))
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.logger.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	if a.collector != nil {
		if err := a.collector.Shutdown(ctx); err != nil {
			a.logger.Warn("collector stop error", applogger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.logger.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	if a.redisQueue != nil {
		if err := a.redisQueue.Stop(ctx); err != nil {
			a.logger.Warn("redis queue stop error", applogger.Error(err))
		}
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.logger.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Warn("publisher close error", applogger.Error(err))
		}
	}

	a.logger.Info("shutdown complete")
	return nil
}
