package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"MarketFeeds/internal/domain/models"
	"MarketFeeds/internal/domain/repository"
	pkgkafka "MarketFeeds/pkg/kafka"

	"github.com/shopspring/decimal"
)

// ClickHouseBarArchive persists closed bars. The current (open) bar never
// reaches the archive; only immutable history does.
type ClickHouseBarArchive struct {
	db    *sql.DB
	table string
}

// NewClickHouseBarArchive creates the archive over an existing pool.
func NewClickHouseBarArchive(db *sql.DB, table string) repository.BarArchive {
	return &ClickHouseBarArchive{db: db, table: table}
}

func (a *ClickHouseBarArchive) Init(ctx context.Context) error {
	return nil // schema init handled by pkg/clickhouse at startup
}

func (a *ClickHouseBarArchive) Store(ctx context.Context, symbol string, timeframe int, bar models.Candlestick) error {
	q := fmt.Sprintf("INSERT INTO %s (symbol, timeframe, idx, open, high, low, close, volume, start_ts) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)", a.table)
	_, err := a.db.ExecContext(ctx, q,
		symbol,
		uint16(timeframe),
		uint32(bar.Index),
		bar.Open.String(),
		bar.High.String(),
		bar.Low.String(),
		bar.Close.String(),
		bar.Volume.String(),
		time.Unix(bar.StartTimestamp, 0),
	)
	return err
}

// StoreBatch inserts many closed bars in chunked multi-row statements.
func (a *ClickHouseBarArchive) StoreBatch(ctx context.Context, symbol string, timeframe int, bars []models.Candlestick) error {
	if len(bars) == 0 {
		return nil
	}
	const chunkSize = 2000
	for start := 0; start < len(bars); start += chunkSize {
		end := start + chunkSize
		if end > len(bars) {
			end = len(bars)
		}
		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*9)
		for _, b := range bars[start:end] {
			values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?)")
			args = append(args,
				symbol, uint16(timeframe), uint32(b.Index),
				b.Open.String(), b.High.String(), b.Low.String(), b.Close.String(), b.Volume.String(),
				time.Unix(b.StartTimestamp, 0),
			)
		}
		q := fmt.Sprintf("INSERT INTO %s (symbol, timeframe, idx, open, high, low, close, volume, start_ts) VALUES %s", a.table, strings.Join(values, ","))
		if _, err := a.db.ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}
	return nil
}

func (a *ClickHouseBarArchive) Query(ctx context.Context, symbol string, timeframe, limit int) ([]models.Candlestick, error) {
	q := fmt.Sprintf("SELECT idx, open, high, low, close, volume, start_ts FROM %s WHERE symbol = ? AND timeframe = ? ORDER BY idx DESC LIMIT ?", a.table)
	rows, err := a.db.QueryContext(ctx, q, symbol, uint16(timeframe), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bars []models.Candlestick
	for rows.Next() {
		var (
			b                  models.Candlestick
			idx                uint32
			o, h, l, c, v      string
			ts                 time.Time
		)
		if err := rows.Scan(&idx, &o, &h, &l, &c, &v, &ts); err != nil {
			return nil, err
		}
		b.Index = int(idx)
		if b.Open, err = decimal.NewFromString(o); err != nil {
			return nil, err
		}
		if b.High, err = decimal.NewFromString(h); err != nil {
			return nil, err
		}
		if b.Low, err = decimal.NewFromString(l); err != nil {
			return nil, err
		}
		if b.Close, err = decimal.NewFromString(c); err != nil {
			return nil, err
		}
		if b.Volume, err = decimal.NewFromString(v); err != nil {
			return nil, err
		}
		b.StartTimestamp = ts.Unix()
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

func (a *ClickHouseBarArchive) Health(ctx context.Context) error {
	return a.db.PingContext(ctx)
}

func (a *ClickHouseBarArchive) Close() error {
	return nil // pool owned by pkg/clickhouse client
}

// KafkaBarPublisher pushes accepted bars onto the bars topic keyed by symbol,
// so per-symbol ordering survives partitioning.
type KafkaBarPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaBarPublisher creates the publisher.
func NewKafkaBarPublisher(producer *pkgkafka.Producer, topic string) repository.BarPublisher {
	return &KafkaBarPublisher{producer: producer, topic: topic}
}

func (p *KafkaBarPublisher) Publish(ctx context.Context, symbol string, timeframe int, bar models.Candlestick) error {
	return p.producer.Publish(ctx, p.topic, []byte(symbol), map[string]interface{}{
		"symbol":    symbol,
		"timeframe": timeframe,
		"index":     bar.Index,
		"open":      bar.Open,
		"high":      bar.High,
		"low":       bar.Low,
		"close":     bar.Close,
		"volume":    bar.Volume,
		"timestamp": bar.StartTimestamp,
	})
}

func (p *KafkaBarPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
