package repository

import (
	"context"

	"MarketFeeds/internal/domain/models"

	"github.com/shopspring/decimal"
)

// BarStream is an upstream provider connection pushing bar events.
type BarStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.BarEvent, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// BarSink receives bar lifecycle notifications from candlestick feeds.
// Accepted fires on every successful write (merged or appended); Closed fires
// when a bar is superseded and becomes immutable.
type BarSink interface {
	BarAccepted(ctx context.Context, symbol string, timeframe int, bar models.Candlestick, merged bool)
	BarClosed(ctx context.Context, symbol string, timeframe int, bar models.Candlestick)
}

// BarPublisher pushes accepted bars downstream.
type BarPublisher interface {
	Publish(ctx context.Context, symbol string, timeframe int, bar models.Candlestick) error
	Close() error
}

// BarArchive persists closed (immutable) bars.
type BarArchive interface {
	Init(ctx context.Context) error
	Store(ctx context.Context, symbol string, timeframe int, bar models.Candlestick) error
	Query(ctx context.Context, symbol string, timeframe int, limit int) ([]models.Candlestick, error)
	Health(ctx context.Context) error
	Close() error
}

// PriceSource resolves an asset's latest close for mark-to-market valuation.
// The sentinel zero means no priced bar exists yet.
type PriceSource interface {
	LatestPrice(asset string) (decimal.Decimal, error)
}

// Ledger is the token substrate: balances, transfers, and string account
// identities. Transfers fail with models.ErrInsufficientFunds.
type Ledger interface {
	Transfer(ctx context.Context, from, to string, amount decimal.Decimal) error
	BalanceOf(ctx context.Context, account string) (decimal.Decimal, error)
}

// FeeSink settles usage fees: AddFees pulls tokens from the payer and credits
// the payee's claimable balance.
type FeeSink interface {
	AddFees(ctx context.Context, payer, payee string, amount decimal.Decimal) error
}

// Metrics is the observability seam used across usecases.
type Metrics interface {
	RecordBarAccepted(symbol string, timeframe int, merged bool)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
	RecordScalarCase(caseName string)
	RecordTokenPriceRead(feedID string)
}
