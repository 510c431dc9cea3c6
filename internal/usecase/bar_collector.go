package usecase

import (
	"context"

	"MarketFeeds/internal/domain/models"
	drepo "MarketFeeds/internal/domain/repository"
	mid "MarketFeeds/internal/middleware"
)

// BarApplier applies provider bar events to the registry under the provider
// identity. It is the downstream proc of the ingest pipeline.
type BarApplier struct {
	registry *CandlestickRegistry
	provider string
	metrics  drepo.Metrics
}

// NewBarApplier creates a new BarApplier.
func NewBarApplier(registry *CandlestickRegistry, provider string, metrics drepo.Metrics) *BarApplier {
	return &BarApplier{registry: registry, provider: provider, metrics: metrics}
}

func (a *BarApplier) Apply(ctx context.Context, ev *models.BarEvent) error {
	err := a.registry.UpdateBar(ctx, a.provider, ev.Symbol, ev.Timeframe, ev.Update())
	if err != nil {
		a.metrics.RecordError("bar_apply")
		return err
	}
	return nil
}

var _ mid.Proc = (*BarApplier)(nil)

// BarCollector collects bar events from the provider stream and pushes them
// through the ingest pipeline.
type BarCollector struct {
	stream  drepo.BarStream
	applier *BarApplier
	metrics drepo.Metrics
	pipe    *mid.IngestPipeline
}

// NewBarCollector creates a new BarCollector instance.
func NewBarCollector(stream drepo.BarStream, applier *BarApplier, metrics drepo.Metrics, pipe *mid.IngestPipeline) *BarCollector {
	return &BarCollector{stream: stream, applier: applier, metrics: metrics, pipe: pipe}
}

// IsConnected returns true if the provider stream is connected.
func (c *BarCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

func (c *BarCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	if c.pipe != nil {
		c.pipe.Start(ctx)
	}
	evCh, errCh := c.stream.Read(ctx)
	go c.consume(ctx, evCh, errCh)
	return nil
}

func (c *BarCollector) consume(ctx context.Context, evCh <-chan *models.BarEvent, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-errCh:
			if err != nil {
				c.metrics.RecordError("stream")
				_ = c.stream.Reconnect(ctx)
			}
		case ev := <-evCh:
			if ev == nil {
				continue
			}
			if c.pipe != nil {
				_ = c.pipe.Process(ctx, ev)
			} else {
				_ = c.applier.Apply(ctx, ev)
			}
			price, _ := ev.Close.Float64()
			c.metrics.RecordLastPrice(ev.Symbol, price)
		}
	}
}

// Applier returns the underlying BarApplier for lifecycle management.
func (c *BarCollector) Applier() *BarApplier { return c.applier }

// Shutdown stops the pipeline and closes the stream.
func (c *BarCollector) Shutdown(ctx context.Context) error {
	if c.pipe != nil {
		c.pipe.Stop()
	}
	return c.stream.Close()
}
