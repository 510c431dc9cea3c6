package models

import "github.com/shopspring/decimal"

// FeedStatus mirrors the legacy numeric status codes. NotFound is only
// produced by registry status queries for unregistered keys.
type FeedStatus int

const (
	StatusActive   FeedStatus = 0
	StatusOutdated FeedStatus = 1
	StatusHalted   FeedStatus = 2
	StatusNotFound FeedStatus = 3
)

func (s FeedStatus) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusOutdated:
		return "outdated"
	case StatusHalted:
		return "halted"
	case StatusNotFound:
		return "not_found"
	}
	return "unknown"
}

// DataFeedInfo is the registry view of one candlestick feed.
type DataFeedInfo struct {
	ID           string          `json:"id"`
	Asset        string          `json:"asset"`
	Symbol       string          `json:"symbol"`
	Timeframe    int             `json:"timeframe"`
	DataProvider string          `json:"data_provider"`
	CreatedOn    int64           `json:"created_on"`
	CurrentPrice decimal.Decimal `json:"current_price"`
}

// PerformanceFeedInfo is the registry view of one performance feed.
type PerformanceFeedInfo struct {
	ID              string          `json:"id"`
	Owner           string          `json:"owner"`
	DataProvider    string          `json:"data_provider"`
	UsageFee        decimal.Decimal `json:"usage_fee"`
	CreatedOn       int64           `json:"created_on"`
	TokenPrice      decimal.Decimal `json:"token_price"`
	NumberOfUpdates int             `json:"number_of_updates"`
}

// Position is the net open exposure for one asset under a performance feed.
type Position struct {
	IsLong     bool            `json:"is_long"`
	EntryPrice decimal.Decimal `json:"entry_price"`
	Size       decimal.Decimal `json:"size"`
}

// CurrentValues is the portfolio-wide unrealized result split three ways.
// The gain/loss split (rather than a single signed net) is what the scalar
// case classification consumes.
type CurrentValues struct {
	TotalGain      decimal.Decimal `json:"total_gain"`
	TotalLoss      decimal.Decimal `json:"total_loss"`
	NetAbsolute    decimal.Decimal `json:"net_absolute"`
	IsNetFavorable bool            `json:"is_net_favorable"`
}
