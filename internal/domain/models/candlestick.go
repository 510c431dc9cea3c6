package models

import "github.com/shopspring/decimal"

// Candlestick is one OHLCV bar. Index is 1-based and monotonic per store.
// A bar is mutable while it is the newest one and immutable once a later
// bar opens.
type Candlestick struct {
	Index          int             `json:"index"`
	Open           decimal.Decimal `json:"open"`
	High           decimal.Decimal `json:"high"`
	Low            decimal.Decimal `json:"low"`
	Close          decimal.Decimal `json:"close"`
	Volume         decimal.Decimal `json:"volume"`
	StartTimestamp int64           `json:"start_timestamp"`
}

// ZeroCandlestick returns the out-of-bounds sentinel bar: all-zero fields
// carrying the requested index.
func ZeroCandlestick(index int) Candlestick {
	return Candlestick{Index: index}
}

// BarUpdate is one incoming OHLCV write from a data provider.
type BarUpdate struct {
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    decimal.Decimal `json:"volume"`
	Timestamp int64           `json:"timestamp"`
}

// BarEvent is a bar update addressed to a (symbol, timeframe) feed. This is
// the wire shape on the bars topic and the provider stream.
type BarEvent struct {
	Symbol    string          `json:"symbol"`
	Timeframe int             `json:"timeframe"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	Volume    decimal.Decimal `json:"volume"`
	Timestamp int64           `json:"timestamp"`
}

// Update extracts the per-store update from an event.
func (e *BarEvent) Update() BarUpdate {
	return BarUpdate{
		Open:      e.Open,
		High:      e.High,
		Low:       e.Low,
		Close:     e.Close,
		Volume:    e.Volume,
		Timestamp: e.Timestamp,
	}
}
