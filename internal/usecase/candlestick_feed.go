package usecase

import (
	"context"
	"sync"
	"time"

	"MarketFeeds/internal/domain/models"
	domrepo "MarketFeeds/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CandlestickFeed is one append-only OHLCV series for a single
// (asset, timeframe) pair. The data provider is the sole writer, the operator
// the sole admin. All mutations are serialized behind one mutex.
type CandlestickFeed struct {
	mu sync.Mutex

	id           string
	asset        string
	symbol       string
	timeframe    int // minutes
	dataProvider string
	operator     string
	isHalted     bool
	bars         []models.Candlestick
	lastUpdated  int64
	createdOn    int64

	sink    domrepo.BarSink
	metrics domrepo.Metrics
	now     func() int64
}

// NewCandlestickFeed creates a feed. The operator is passed explicitly by the
// creating registry rather than inherited implicitly.
func NewCandlestickFeed(asset, symbol string, timeframe int, dataProvider, operator string) *CandlestickFeed {
	f := &CandlestickFeed{
		id:           uuid.NewString(),
		asset:        asset,
		symbol:       symbol,
		timeframe:    timeframe,
		dataProvider: dataProvider,
		operator:     operator,
		now:          func() int64 { return time.Now().Unix() },
	}
	f.createdOn = f.now()
	return f
}

// SetSink attaches the bar lifecycle sink (publisher/archiver fan-out).
func (f *CandlestickFeed) SetSink(s domrepo.BarSink) { f.sink = s }

// SetMetrics attaches the metrics recorder.
func (f *CandlestickFeed) SetMetrics(m domrepo.Metrics) { f.metrics = m }

// SetClock overrides the wall clock, used by tests and replay tooling.
func (f *CandlestickFeed) SetClock(now func() int64) { f.now = now }

func (f *CandlestickFeed) ID() string     { return f.id }
func (f *CandlestickFeed) Asset() string  { return f.asset }
func (f *CandlestickFeed) Symbol() string { return f.symbol }
func (f *CandlestickFeed) Timeframe() int { return f.timeframe }

func (f *CandlestickFeed) window() int64 { return domrepo.TimeframeSeconds(f.timeframe) }

// CanUpdate reports whether a write right now would open a new bar or land in
// an empty store. Exposed separately so keepers can skip wasted writes.
func (f *CandlestickFeed) CanUpdate() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.isHalted {
		return false
	}
	if len(f.bars) == 0 {
		return true
	}
	cur := f.bars[len(f.bars)-1]
	return f.now()-cur.StartTimestamp >= f.window()
}

// UpdateData applies one OHLCV write. A write whose timestamp falls inside the
// current bar's window amends that bar (open unchanged, close latest, high
// max, low min, volume summed); otherwise a new bar opens with the update's
// values verbatim. Backdating past the last accepted write is rejected, with
// one exception: a timestamp older than the last write but still inside the
// open bar's window amends that bar, and lastUpdated holds at its maximum.
func (f *CandlestickFeed) UpdateData(ctx context.Context, caller string, u models.BarUpdate) error {
	f.mu.Lock()

	if caller != f.dataProvider {
		f.mu.Unlock()
		return models.ErrPermissionDenied
	}
	if f.isHalted {
		f.mu.Unlock()
		return models.ErrHalted
	}

	n := len(f.bars)
	inWindow := n > 0 &&
		u.Timestamp >= f.bars[n-1].StartTimestamp &&
		u.Timestamp-f.bars[n-1].StartTimestamp < f.window()
	if !inWindow && u.Timestamp < f.lastUpdated {
		f.mu.Unlock()
		return models.ErrInvalidOrdering
	}

	var (
		accepted models.Candlestick
		closed   *models.Candlestick
		merged   bool
	)
	if inWindow {
		cur := &f.bars[n-1]
		if u.High.Cmp(cur.High) > 0 {
			cur.High = u.High
		}
		if u.Low.Cmp(cur.Low) < 0 {
			cur.Low = u.Low
		}
		cur.Close = u.Close
		cur.Volume = cur.Volume.Add(u.Volume)
		accepted = *cur
		merged = true
	} else {
		if n > 0 {
			c := f.bars[n-1]
			closed = &c
		}
		accepted = models.Candlestick{
			Index:          len(f.bars) + 1,
			Open:           u.Open,
			High:           u.High,
			Low:            u.Low,
			Close:          u.Close,
			Volume:         u.Volume,
			StartTimestamp: u.Timestamp,
		}
		f.bars = append(f.bars, accepted)
	}
	if u.Timestamp > f.lastUpdated {
		f.lastUpdated = u.Timestamp
	}
	symbol, tf := f.symbol, f.timeframe
	f.mu.Unlock()

	if f.metrics != nil {
		f.metrics.RecordBarAccepted(symbol, tf, merged)
		price, _ := accepted.Close.Float64()
		f.metrics.RecordLastPrice(symbol, price)
	}
	if f.sink != nil {
		if closed != nil {
			f.sink.BarClosed(ctx, symbol, tf, *closed)
		}
		f.sink.BarAccepted(ctx, symbol, tf, accepted, merged)
	}
	return nil
}

// GetCurrentPrice returns the newest close, or the sentinel zero when no bar
// exists yet.
func (f *CandlestickFeed) GetCurrentPrice() decimal.Decimal {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.bars) == 0 {
		return decimal.Zero
	}
	return f.bars[len(f.bars)-1].Close
}

// GetPriceAt returns the close of bar index, or the sentinel zero out of
// bounds. Callers cannot distinguish a missing bar from a genuinely zero
// close; this mirrors the legacy contract.
func (f *CandlestickFeed) GetPriceAt(index int) decimal.Decimal {
	f.mu.Lock()
	defer f.mu.Unlock()
	if index < 1 || index > len(f.bars) {
		return decimal.Zero
	}
	return f.bars[index-1].Close
}

// GetCurrentCandlestick returns the newest bar, or a zero bar when empty.
func (f *CandlestickFeed) GetCurrentCandlestick() models.Candlestick {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.bars) == 0 {
		return models.ZeroCandlestick(0)
	}
	return f.bars[len(f.bars)-1]
}

// GetCandlestickAt returns bar index, or a zero bar carrying the requested
// index when out of bounds.
func (f *CandlestickFeed) GetCandlestickAt(index int) models.Candlestick {
	f.mu.Lock()
	defer f.mu.Unlock()
	if index < 1 || index > len(f.bars) {
		return models.ZeroCandlestick(index)
	}
	return f.bars[index-1]
}

// NumberOfCandlesticks returns the bar count.
func (f *CandlestickFeed) NumberOfCandlesticks() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.bars)
}

// AggregateCandlesticks folds the newest count bars into one synthetic bar,
// silently capping count to the available history.
func (f *CandlestickFeed) AggregateCandlesticks(count int) models.Candlestick {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(f.bars)
	if n == 0 || count < 1 {
		return models.ZeroCandlestick(0)
	}
	if count > n {
		count = n
	}
	window := f.bars[n-count:]
	agg := models.Candlestick{
		Index:          window[0].Index,
		Open:           window[0].Open,
		High:           window[0].High,
		Low:            window[0].Low,
		Close:          window[len(window)-1].Close,
		StartTimestamp: window[0].StartTimestamp,
	}
	for _, b := range window {
		if b.High.Cmp(agg.High) > 0 {
			agg.High = b.High
		}
		if b.Low.Cmp(agg.Low) < 0 {
			agg.Low = b.Low
		}
		agg.Volume = agg.Volume.Add(b.Volume)
	}
	return agg
}

// LastUpdated returns the timestamp of the most recent accepted write.
func (f *CandlestickFeed) LastUpdated() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastUpdated
}

// Status reports Halted regardless of recency, Outdated when the last write
// is more than two windows old, Active otherwise. A feed with no writes yet
// is judged against its creation time, not the zero watermark.
func (f *CandlestickFeed) Status() models.FeedStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.isHalted {
		return models.StatusHalted
	}
	last := f.lastUpdated
	if last == 0 {
		last = f.createdOn
	}
	if f.now()-last > 2*f.window() {
		return models.StatusOutdated
	}
	return models.StatusActive
}

// Info returns the registry view of this feed.
func (f *CandlestickFeed) Info() models.DataFeedInfo {
	f.mu.Lock()
	defer f.mu.Unlock()
	price := decimal.Zero
	if len(f.bars) > 0 {
		price = f.bars[len(f.bars)-1].Close
	}
	return models.DataFeedInfo{
		ID:           f.id,
		Asset:        f.asset,
		Symbol:       f.symbol,
		Timeframe:    f.timeframe,
		DataProvider: f.dataProvider,
		CreatedOn:    f.createdOn,
		CurrentPrice: price,
	}
}

// SetOperator reassigns the admin role. Operator only.
func (f *CandlestickFeed) SetOperator(caller, operator string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if caller != f.operator {
		return models.ErrPermissionDenied
	}
	f.operator = operator
	return nil
}

// UpdateDedicatedDataProvider reassigns the sole writer. Operator only.
func (f *CandlestickFeed) UpdateDedicatedDataProvider(caller, provider string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if caller != f.operator {
		return models.ErrPermissionDenied
	}
	f.dataProvider = provider
	return nil
}

// HaltDataFeed toggles the halt flag. Halting blocks writes but not reads.
// Operator only.
func (f *CandlestickFeed) HaltDataFeed(caller string, halt bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if caller != f.operator {
		return models.ErrPermissionDenied
	}
	f.isHalted = halt
	return nil
}
