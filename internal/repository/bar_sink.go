package repository

import (
	"context"
	"time"

	"MarketFeeds/internal/domain/models"
	"MarketFeeds/internal/domain/repository"
	"MarketFeeds/pkg/logger"
	"MarketFeeds/pkg/queue"
)

// ArchiveRetryType is the queue message type for failed archive inserts.
const ArchiveRetryType = "bar_archive_retry"

// ArchiveRetryPayload is the queued shape of a failed archive insert.
type ArchiveRetryPayload struct {
	Symbol    string             `json:"symbol"`
	Timeframe int                `json:"timeframe"`
	Bar       models.Candlestick `json:"bar"`
}

// BarFanout implements BarSink: accepted bars go to the Kafka publisher,
// closed bars to the ClickHouse archive. Archive failures are parked on the
// retry queue instead of blocking the write path.
type BarFanout struct {
	publisher repository.BarPublisher
	archive   repository.BarArchive
	retry     queue.QueueService
	metrics   repository.Metrics
	logger    *logger.Logger
}

// NewBarFanout creates the sink. retry may be nil, in which case archive
// failures are only logged.
func NewBarFanout(publisher repository.BarPublisher, archive repository.BarArchive, retry queue.QueueService, metrics repository.Metrics, l *logger.Logger) *BarFanout {
	return &BarFanout{publisher: publisher, archive: archive, retry: retry, metrics: metrics, logger: l}
}

func (s *BarFanout) BarAccepted(ctx context.Context, symbol string, timeframe int, bar models.Candlestick, merged bool) {
	if s.publisher == nil {
		return
	}
	start := time.Now()
	if err := s.publisher.Publish(ctx, symbol, timeframe, bar); err != nil {
		if s.metrics != nil {
			s.metrics.RecordError("bar_publish")
		}
		if s.logger != nil {
			s.logger.Warn("bar publish failed",
				logger.String("symbol", symbol),
				logger.Int("timeframe", timeframe),
				logger.Error(err),
			)
		}
		return
	}
	if s.metrics != nil {
		s.metrics.RecordLatency("bar_publish", time.Since(start).Seconds())
	}
}

func (s *BarFanout) BarClosed(ctx context.Context, symbol string, timeframe int, bar models.Candlestick) {
	if s.archive == nil {
		return
	}
	start := time.Now()
	err := s.archive.Store(ctx, symbol, timeframe, bar)
	if err == nil {
		if s.metrics != nil {
			s.metrics.RecordLatency("bar_archive", time.Since(start).Seconds())
		}
		return
	}
	if s.metrics != nil {
		s.metrics.RecordError("bar_archive")
	}
	if s.retry != nil {
		payload := &ArchiveRetryPayload{Symbol: symbol, Timeframe: timeframe, Bar: bar}
		if qerr := s.retry.PublishMessage(ctx, ArchiveRetryType, payload); qerr == nil {
			return
		}
	}
	if s.logger != nil {
		s.logger.Error("bar archive failed",
			logger.String("symbol", symbol),
			logger.Int("timeframe", timeframe),
			logger.Error(err),
		)
	}
}

var _ repository.BarSink = (*BarFanout)(nil)

// ArchiveRetryJob drains the retry queue back into the archive.
type ArchiveRetryJob struct {
	archive repository.BarArchive
	metrics repository.Metrics
}

// NewArchiveRetryJob creates the job.
func NewArchiveRetryJob(archive repository.BarArchive, metrics repository.Metrics) *ArchiveRetryJob {
	return &ArchiveRetryJob{archive: archive, metrics: metrics}
}

func (j *ArchiveRetryJob) Name() string { return "bar-archive-retry" }
func (j *ArchiveRetryJob) Type() string { return ArchiveRetryType }

func (j *ArchiveRetryJob) Handle(ctx context.Context, payload interface{}) error {
	p, err := queue.ParsePayload[ArchiveRetryPayload](payload)
	if err != nil {
		if j.metrics != nil {
			j.metrics.RecordError("archive_retry_payload")
		}
		return err
	}
	if err := j.archive.Store(ctx, p.Symbol, p.Timeframe, p.Bar); err != nil {
		if j.metrics != nil {
			j.metrics.RecordError("archive_retry_store")
		}
		return err
	}
	return nil
}

var _ queue.Job = (*ArchiveRetryJob)(nil)
