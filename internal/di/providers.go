package di

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"MarketFeeds/internal/domain/repository"
	"MarketFeeds/internal/handler/api"
	mid "MarketFeeds/internal/middleware"
	internalrepo "MarketFeeds/internal/repository"
	svcache "MarketFeeds/internal/service/cache"
	"MarketFeeds/internal/service/feepool"
	"MarketFeeds/internal/service/ledger"
	"MarketFeeds/internal/service/ratelimit"
	"MarketFeeds/internal/service/stream"
	"MarketFeeds/internal/usecase"
	pkgcache "MarketFeeds/pkg/cache"
	pkgch "MarketFeeds/pkg/clickhouse"
	"MarketFeeds/pkg/config"
	xhttp "MarketFeeds/pkg/http"
	pkgkafka "MarketFeeds/pkg/kafka"
	applogger "MarketFeeds/pkg/logger"
	"MarketFeeds/pkg/metrics"
	"MarketFeeds/pkg/queue"
	"MarketFeeds/pkg/server"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	level := "info"
	format := "json"
	if cfg.Environment == "development" {
		level = "debug"
		format = "console"
	}
	return applogger.New(&applogger.Config{Level: level, Format: format, Output: "stdout"})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideLedger creates the in-memory token substrate. The operator account
// is seeded so fee settlement works without an external mint.
func ProvideLedger(cfg *config.Config) *ledger.InMemory {
	l := ledger.New()
	l.Mint(cfg.Registry.OperatorAccount, decimal.New(1_000_000, 0))
	return l
}

// ProvideFeePool creates the usage fee pool owned by the registry operator.
func ProvideFeePool(cfg *config.Config, l *ledger.InMemory, lgr *applogger.Logger) *feepool.FeePool {
	p := feepool.New(cfg.Registry.OperatorAccount, cfg.Registry.OperatorAccount, l)
	p.SetLogger(lgr)
	return p
}

// ProvideFeeSink exposes the fee pool behind the domain seam.
func ProvideFeeSink(p *feepool.FeePool) repository.FeeSink { return p }

// ProvideClickHouseClient creates a ClickHouse client and initializes the bar
// archive schema.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db := cfg.ClickHouse.Database
	table := archiveTable(cfg)
	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS " + db,
		"CREATE TABLE IF NOT EXISTS " + db + "." + table + " (" +
			"symbol String, timeframe UInt16, idx UInt32, " +
			"open String, high String, low String, close String, volume String, " +
			"start_ts DateTime" +
			") ENGINE=ReplacingMergeTree ORDER BY (symbol, timeframe, idx)",
	}); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

func archiveTable(cfg *config.Config) string {
	if cfg.ClickHouse.Table != "" {
		return cfg.ClickHouse.Table
	}
	return "candlesticks"
}

// ProvideBarArchive creates the ClickHouse bar archive.
func ProvideBarArchive(chClient *pkgch.Client, cfg *config.Config) repository.BarArchive {
	return internalrepo.NewClickHouseBarArchive(chClient.DB(), cfg.ClickHouse.Database+"."+archiveTable(cfg))
}

// ProvideKafkaProducer creates a Kafka producer. Only the stream ingest path
// publishes; the kafka ingest path would republish its own input.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if cfg.Ingest.Source != "stream" {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideBarPublisher creates the Kafka bar publisher.
func ProvideBarPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.BarPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaBarPublisher(producer, cfg.Kafka.Topic)
}

// ProvideRedisClient creates the Redis client for the retry queue.
func ProvideRedisClient(cfg *config.Config) *redis.Client {
	if !cfg.Redis.Enabled {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

// ProvideRedisQueue creates the archive retry queue, consuming retries back
// into the archive.
func ProvideRedisQueue(lgr *applogger.Logger, client *redis.Client, archive repository.BarArchive, m repository.Metrics) *queue.RedisQueue {
	if client == nil {
		return nil
	}
	job := internalrepo.NewArchiveRetryJob(archive, m)
	return queue.NewRedisConsumer(lgr, &queue.QueueConfig{
		Workers:    2,
		QueueSize:  1000,
		RetryLimit: 5,
		RetryDelay: 10 * time.Second,
	}, client, []queue.Job{job})
}

// ProvideQueueService exposes the retry queue behind the publish seam.
func ProvideQueueService(q *queue.RedisQueue) queue.QueueService {
	if q == nil {
		return nil
	}
	return q
}

// ProvideBarFanout creates the bar sink fanning accepted bars to Kafka and
// closed bars to ClickHouse.
func ProvideBarFanout(pub repository.BarPublisher, archive repository.BarArchive, qs queue.QueueService, m repository.Metrics, lgr *applogger.Logger) *internalrepo.BarFanout {
	return internalrepo.NewBarFanout(pub, archive, qs, m, lgr)
}

// ProvideCandlestickRegistry creates the candlestick feed registry.
func ProvideCandlestickRegistry(cfg *config.Config, sink *internalrepo.BarFanout, m repository.Metrics, lgr *applogger.Logger) *usecase.CandlestickRegistry {
	reg := usecase.NewCandlestickRegistry(cfg.Registry.OperatorAccount, cfg.Registry.RegistrarAccount)
	reg.SetSink(sink)
	reg.SetMetrics(m)
	reg.SetLogger(lgr)
	return reg
}

// ProvidePriceSource marks performance positions against registry closes.
func ProvidePriceSource(reg *usecase.CandlestickRegistry, cfg *config.Config) repository.PriceSource {
	tf := cfg.Registry.PricingTimeframe
	if tf <= 0 {
		tf = repository.DefaultTimeframe()
	}
	return usecase.NewRegistryPriceSource(reg, tf)
}

// ProvidePerformanceRegistry creates the performance feed registry.
func ProvidePerformanceRegistry(cfg *config.Config, prices repository.PriceSource, fees repository.FeeSink, m repository.Metrics, lgr *applogger.Logger) *usecase.PerformanceRegistry {
	reg := usecase.NewPerformanceRegistry(cfg.Registry.OperatorAccount, cfg.Registry.RegistrarAccount, prices, fees)
	reg.SetMetrics(m)
	reg.SetLogger(lgr)

	opts := []usecase.PerformanceFeedOption{
		usecase.WithPerformanceMetrics(m),
		usecase.WithPerformanceLogger(lgr),
	}
	if cfg.Performance.MaxUsageFee != "" {
		if maxFee, err := decimal.NewFromString(cfg.Performance.MaxUsageFee); err == nil {
			cooldown := cfg.Performance.FeeCooldown
			if cooldown <= 0 {
				cooldown = 24 * time.Hour
			}
			opts = append(opts, usecase.WithFeePolicy(maxFee, cooldown))
		}
	}
	if cfg.Performance.StaleWindow > 0 {
		opts = append(opts, usecase.WithStaleWindow(cfg.Performance.StaleWindow))
	}
	reg.SetFeedOptions(opts...)
	return reg
}

// ProvideStream creates the provider WebSocket stream.
func ProvideStream(cfg *config.Config) repository.BarStream {
	if cfg.Ingest.Source != "stream" {
		return nil
	}
	tf := cfg.Provider.Timeframe
	if tf <= 0 {
		tf = repository.DefaultTimeframe()
	}
	return stream.New(
		cfg.Provider.APIKey,
		cfg.Provider.WebSocketURL,
		cfg.Provider.Symbols,
		tf,
		cfg.Provider.ReconnectDelay,
		cfg.Provider.PingInterval,
	)
}

// ProvideBarApplier creates the registry write adapter for ingested bars.
func ProvideBarApplier(reg *usecase.CandlestickRegistry, cfg *config.Config, m repository.Metrics) *usecase.BarApplier {
	return usecase.NewBarApplier(reg, cfg.Provider.Account, m)
}

// ProvideCollector creates the bar collector with its ingest pipeline.
func ProvideCollector(st repository.BarStream, applier *usecase.BarApplier, m repository.Metrics, cfg *config.Config) *usecase.BarCollector {
	if st == nil {
		return nil
	}
	pipe := mid.NewIngestPipeline(applier, m,
		mid.WithMaxRPS(cfg.Ingest.MaxRPS),
		mid.WithBufferSize(cfg.Ingest.BufferSize),
	)
	return usecase.NewBarCollector(st, applier, m, pipe)
}

// ProvideKafkaConsumer creates a Kafka consumer for the kafka ingest path.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if cfg.Ingest.Source != "kafka" {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.NoopHook{})
	return consumer, nil
}

// ProvideBarsHandler registers the handler for the bars topic.
func ProvideBarsHandler(reg *usecase.CandlestickRegistry, cfg *config.Config, m repository.Metrics) *usecase.KafkaBarsHandler {
	return usecase.NewKafkaBarsHandler(cfg.Kafka.Topic, reg, cfg.Provider.Account, m)
}

// ProvideHistoryCache builds the response cache for archive reads. With Redis
// enabled it layers an in-process LRU over Redis, otherwise memory only.
func ProvideHistoryCache(cfg *config.Config) (pkgcache.Service, error) {
	if !cfg.Redis.Enabled {
		return pkgcache.NewMemoryCache(), nil
	}
	host, portStr, err := net.SplitHostPort(cfg.Redis.Addr)
	if err != nil {
		return nil, fmt.Errorf("redis addr %q: %w", cfg.Redis.Addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("redis port %q: %w", portStr, err)
	}
	rc, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(host),
		pkgcache.WithRedisPort(port),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
		pkgcache.WithRedisPrefix("marketfeeds:http"),
	)
	if err != nil {
		return nil, err
	}
	return pkgcache.NewLayeredCache(rc), nil
}

// ProvideFeedsHandler creates the candlestick HTTP handler.
func ProvideFeedsHandler(lgr *applogger.Logger, reg *usecase.CandlestickRegistry, archive repository.BarArchive, history pkgcache.Service, cfg *config.Config) *api.FeedsEchoHandler {
	return api.NewFeedsEchoHandler(lgr, reg, archive, svcache.NewTTLCache(), history, cfg.Cache.InfoTTL, cfg.Cache.HistoryTTL)
}

// ProvidePerfHandler creates the performance HTTP handler.
func ProvidePerfHandler(lgr *applogger.Logger, reg *usecase.PerformanceRegistry, pool *feepool.FeePool, cfg *config.Config) *api.PerfEchoHandler {
	var limiter *ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		limiter = ratelimit.New()
	}
	return api.NewPerfEchoHandler(lgr, reg, pool, limiter, cfg.RateLimit.RPS, cfg.RateLimit.Burst)
}

// ProvideRouter bundles the HTTP handlers.
func ProvideRouter(feeds *api.FeedsEchoHandler, perf *api.PerfEchoHandler) xhttp.Handler {
	return api.NewRouter(feeds, perf)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	lgr *applogger.Logger,
	reg *usecase.CandlestickRegistry,
	collector *usecase.BarCollector,
	consumer *pkgkafka.Consumer,
	barsHandler *usecase.KafkaBarsHandler,
	chClient *pkgch.Client,
	redisQueue *queue.RedisQueue,
	publisher repository.BarPublisher,
	router xhttp.Handler,
) *server.App {
	return server.New(cfg, lgr, reg, collector, consumer, barsHandler, chClient, redisQueue, publisher, router)
}
