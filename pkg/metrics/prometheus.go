package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	barsAccepted    *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	lastPrice       *prometheus.GaugeVec
	latency         *prometheus.HistogramVec
	scalarCases     *prometheus.CounterVec
	tokenPriceReads *prometheus.CounterVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		barsAccepted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketfeeds_bars_accepted_total",
				Help: "Total number of bar updates accepted by feeds",
			},
			[]string{"symbol", "timeframe", "merged"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketfeeds_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "marketfeeds_last_price",
				Help: "Last recorded close price for a symbol",
			},
			[]string{"symbol"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "marketfeeds_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		scalarCases: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketfeeds_scalar_cases_total",
				Help: "Total number of scalar computations by classification",
			},
			[]string{"case"},
		),
		tokenPriceReads: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketfeeds_token_price_reads_total",
				Help: "Total number of paid token price reads",
			},
			[]string{"feed"},
		),
	}
}

// RecordBarAccepted records an accepted bar update.
func (r *Recorder) RecordBarAccepted(symbol string, timeframe int, merged bool) {
	r.barsAccepted.WithLabelValues(symbol, strconv.Itoa(timeframe), strconv.FormatBool(merged)).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLastPrice records the last close price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordScalarCase records a scalar computation classification.
func (r *Recorder) RecordScalarCase(caseName string) {
	r.scalarCases.WithLabelValues(caseName).Inc()
}

// RecordTokenPriceRead records a paid token price read on a feed.
func (r *Recorder) RecordTokenPriceRead(feedID string) {
	r.tokenPriceReads.WithLabelValues(feedID).Inc()
}
