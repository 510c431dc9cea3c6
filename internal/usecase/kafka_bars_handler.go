package usecase

import (
	"context"
	"encoding/json"
	"time"

	"MarketFeeds/internal/domain/models"
	domrepo "MarketFeeds/internal/domain/repository"
	pkgkafka "MarketFeeds/pkg/kafka"
)

// KafkaBarsHandler consumes bar events from the bars topic and applies them
// to the registry under the configured provider identity. Malformed payloads
// error out to the consumer's retry/DLQ path.
type KafkaBarsHandler struct {
	topic    string
	registry *CandlestickRegistry
	provider string
	metrics  domrepo.Metrics
}

func NewKafkaBarsHandler(topic string, registry *CandlestickRegistry, provider string, metrics domrepo.Metrics) *KafkaBarsHandler {
	return &KafkaBarsHandler{topic: topic, registry: registry, provider: provider, metrics: metrics}
}

func (h *KafkaBarsHandler) Topic() string { return h.topic }

// incoming message schema: {symbol, timeframe, open, high, low, close, volume, timestamp}
func (h *KafkaBarsHandler) Handle(ctx context.Context, b []byte) error {
	var ev models.BarEvent
	if err := json.Unmarshal(b, &ev); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	if ev.Timestamp > 1e11 { // ms
		ev.Timestamp = ev.Timestamp / 1000
	}
	h.metrics.RecordLatency("ingest_e2e_seconds", time.Since(time.Unix(ev.Timestamp, 0)).Seconds())

	start := time.Now()
	err := h.registry.UpdateBar(ctx, h.provider, ev.Symbol, ev.Timeframe, ev.Update())
	h.metrics.RecordLatency("bar_apply_seconds", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_apply")
		return err
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaBarsHandler)(nil)
