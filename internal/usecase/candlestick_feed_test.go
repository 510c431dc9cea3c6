package usecase

import (
	"context"
	"errors"
	"testing"

	"MarketFeeds/internal/domain/models"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func barUpdate(o, h, l, c, v string, ts int64) models.BarUpdate {
	return models.BarUpdate{
		Open:      d(o),
		High:      d(h),
		Low:       d(l),
		Close:     d(c),
		Volume:    d(v),
		Timestamp: ts,
	}
}

const baseTS = int64(1_700_000_000)

func newTestFeed() *CandlestickFeed {
	return NewCandlestickFeed("0xAAA", "BTCUSDT", 1, "provider", "operator")
}

func TestUpdateDataAppendsFirstBar(t *testing.T) {
	f := newTestFeed()
	ctx := context.Background()

	if err := f.UpdateData(ctx, "provider", barUpdate("1.0", "1.2", "0.9", "1.1", "10", baseTS)); err != nil {
		t.Fatalf("UpdateData: %v", err)
	}
	if got := f.NumberOfCandlesticks(); got != 1 {
		t.Fatalf("NumberOfCandlesticks = %d, want 1", got)
	}
	bar := f.GetCurrentCandlestick()
	if bar.Index != 1 {
		t.Fatalf("Index = %d, want 1", bar.Index)
	}
	if !bar.Open.Equal(d("1.0")) || !bar.Close.Equal(d("1.1")) {
		t.Fatalf("bar = %+v", bar)
	}
	if bar.StartTimestamp != baseTS {
		t.Fatalf("StartTimestamp = %d, want %d", bar.StartTimestamp, baseTS)
	}
	if f.LastUpdated() != baseTS {
		t.Fatalf("LastUpdated = %d, want %d", f.LastUpdated(), baseTS)
	}
}

func TestUpdateDataMergesWithinWindow(t *testing.T) {
	f := newTestFeed()
	ctx := context.Background()

	if err := f.UpdateData(ctx, "provider", barUpdate("1.0", "1.2", "0.9", "1.1", "10", baseTS)); err != nil {
		t.Fatalf("first update: %v", err)
	}
	// 30s later, inside the 60s window of a 1 minute bar
	if err := f.UpdateData(ctx, "provider", barUpdate("2.0", "1.5", "0.8", "1.05", "5", baseTS+30)); err != nil {
		t.Fatalf("second update: %v", err)
	}

	if got := f.NumberOfCandlesticks(); got != 1 {
		t.Fatalf("NumberOfCandlesticks = %d, want 1", got)
	}
	bar := f.GetCurrentCandlestick()
	if !bar.Open.Equal(d("1.0")) {
		t.Fatalf("Open = %s, want 1.0 (open never amended)", bar.Open)
	}
	if !bar.High.Equal(d("1.5")) {
		t.Fatalf("High = %s, want 1.5", bar.High)
	}
	if !bar.Low.Equal(d("0.8")) {
		t.Fatalf("Low = %s, want 0.8", bar.Low)
	}
	if !bar.Close.Equal(d("1.05")) {
		t.Fatalf("Close = %s, want 1.05", bar.Close)
	}
	if !bar.Volume.Equal(d("15")) {
		t.Fatalf("Volume = %s, want 15", bar.Volume)
	}
	if bar.StartTimestamp != baseTS {
		t.Fatalf("StartTimestamp = %d, want %d", bar.StartTimestamp, baseTS)
	}
	if f.LastUpdated() != baseTS+30 {
		t.Fatalf("LastUpdated = %d, want %d", f.LastUpdated(), baseTS+30)
	}
}

func TestUpdateDataOpensNewBarAfterWindow(t *testing.T) {
	f := newTestFeed()
	ctx := context.Background()

	if err := f.UpdateData(ctx, "provider", barUpdate("1.0", "1.2", "0.9", "1.1", "10", baseTS)); err != nil {
		t.Fatalf("first update: %v", err)
	}
	if err := f.UpdateData(ctx, "provider", barUpdate("1.1", "1.3", "1.0", "1.2", "7", baseTS+60)); err != nil {
		t.Fatalf("second update: %v", err)
	}

	if got := f.NumberOfCandlesticks(); got != 2 {
		t.Fatalf("NumberOfCandlesticks = %d, want 2", got)
	}
	bar := f.GetCurrentCandlestick()
	if bar.Index != 2 {
		t.Fatalf("Index = %d, want 2", bar.Index)
	}
	if !bar.Open.Equal(d("1.1")) || !bar.Volume.Equal(d("7")) {
		t.Fatalf("new bar carries update verbatim, got %+v", bar)
	}
}

func TestUpdateDataRejectsBackdated(t *testing.T) {
	f := newTestFeed()
	ctx := context.Background()

	if err := f.UpdateData(ctx, "provider", barUpdate("1", "1", "1", "1", "1", baseTS)); err != nil {
		t.Fatalf("first update: %v", err)
	}
	err := f.UpdateData(ctx, "provider", barUpdate("1", "1", "1", "1", "1", baseTS-1))
	if !errors.Is(err, models.ErrInvalidOrdering) {
		t.Fatalf("err = %v, want ErrInvalidOrdering", err)
	}
	// equal timestamp is allowed
	if err := f.UpdateData(ctx, "provider", barUpdate("1", "1", "1", "1", "1", baseTS)); err != nil {
		t.Fatalf("equal timestamp rejected: %v", err)
	}
}

func TestUpdateDataAmendsOpenBarWithOlderTimestamp(t *testing.T) {
	f := newTestFeed()
	ctx := context.Background()

	if err := f.UpdateData(ctx, "provider", barUpdate("1.0", "1.2", "0.9", "1.1", "10", baseTS)); err != nil {
		t.Fatalf("first update: %v", err)
	}
	if err := f.UpdateData(ctx, "provider", barUpdate("1.1", "1.3", "1.0", "1.2", "5", baseTS+30)); err != nil {
		t.Fatalf("second update: %v", err)
	}
	// older than the last write but still inside the open bar's window
	if err := f.UpdateData(ctx, "provider", barUpdate("1.2", "1.4", "0.8", "1.25", "2", baseTS+10)); err != nil {
		t.Fatalf("in-window amend rejected: %v", err)
	}

	if got := f.NumberOfCandlesticks(); got != 1 {
		t.Fatalf("NumberOfCandlesticks = %d, want 1", got)
	}
	bar := f.GetCurrentCandlestick()
	if !bar.Open.Equal(d("1.0")) || !bar.High.Equal(d("1.4")) || !bar.Low.Equal(d("0.8")) ||
		!bar.Close.Equal(d("1.25")) || !bar.Volume.Equal(d("17")) {
		t.Fatalf("amended bar = %+v", bar)
	}
	if got := f.LastUpdated(); got != baseTS+30 {
		t.Fatalf("LastUpdated = %d, want %d (watermark holds at its max)", got, baseTS+30)
	}

	// before the open bar itself is still backdating
	err := f.UpdateData(ctx, "provider", barUpdate("1", "1", "1", "1", "1", baseTS-1))
	if !errors.Is(err, models.ErrInvalidOrdering) {
		t.Fatalf("err = %v, want ErrInvalidOrdering", err)
	}
}

func TestUpdateDataPermissionAndHalt(t *testing.T) {
	f := newTestFeed()
	ctx := context.Background()

	if err := f.UpdateData(ctx, "stranger", barUpdate("1", "1", "1", "1", "1", baseTS)); !errors.Is(err, models.ErrPermissionDenied) {
		t.Fatalf("stranger write err = %v, want ErrPermissionDenied", err)
	}
	if err := f.HaltDataFeed("stranger", true); !errors.Is(err, models.ErrPermissionDenied) {
		t.Fatalf("stranger halt err = %v, want ErrPermissionDenied", err)
	}
	if err := f.HaltDataFeed("operator", true); err != nil {
		t.Fatalf("halt: %v", err)
	}
	if err := f.UpdateData(ctx, "provider", barUpdate("1", "1", "1", "1", "1", baseTS)); !errors.Is(err, models.ErrHalted) {
		t.Fatalf("halted write err = %v, want ErrHalted", err)
	}
	if err := f.HaltDataFeed("operator", false); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if err := f.UpdateData(ctx, "provider", barUpdate("1", "1", "1", "1", "1", baseTS)); err != nil {
		t.Fatalf("resumed write: %v", err)
	}
}

func TestReadSentinels(t *testing.T) {
	f := newTestFeed()
	ctx := context.Background()

	if !f.GetCurrentPrice().IsZero() {
		t.Fatalf("empty feed price = %s, want 0", f.GetCurrentPrice())
	}
	if !f.GetPriceAt(5).IsZero() {
		t.Fatalf("out of bounds price = %s, want 0", f.GetPriceAt(5))
	}
	zero := f.GetCandlestickAt(7)
	if zero.Index != 7 || !zero.Close.IsZero() {
		t.Fatalf("out of bounds bar = %+v", zero)
	}

	if err := f.UpdateData(ctx, "provider", barUpdate("1.0", "1.2", "0.9", "1.1", "10", baseTS)); err != nil {
		t.Fatalf("UpdateData: %v", err)
	}
	if !f.GetPriceAt(1).Equal(d("1.1")) {
		t.Fatalf("GetPriceAt(1) = %s, want 1.1", f.GetPriceAt(1))
	}
	if !f.GetPriceAt(0).IsZero() {
		t.Fatalf("GetPriceAt(0) = %s, want 0 (indices are 1-based)", f.GetPriceAt(0))
	}
}

func TestAggregateCandlesticks(t *testing.T) {
	f := newTestFeed()
	ctx := context.Background()

	if err := f.UpdateData(ctx, "provider", barUpdate("1", "1.1", "0.9", "1", "10", baseTS)); err != nil {
		t.Fatalf("bar 1: %v", err)
	}
	if err := f.UpdateData(ctx, "provider", barUpdate("1", "1.1", "0.9", "1.05", "0", baseTS+59)); err != nil {
		t.Fatalf("bar 1 merge: %v", err)
	}
	if err := f.UpdateData(ctx, "provider", barUpdate("1.05", "1.2", "1", "1.15", "20", baseTS+180)); err != nil {
		t.Fatalf("bar 2: %v", err)
	}

	agg := f.AggregateCandlesticks(2)
	if !agg.Open.Equal(d("1")) {
		t.Fatalf("agg.Open = %s, want 1 (oldest open)", agg.Open)
	}
	if !agg.Close.Equal(d("1.15")) {
		t.Fatalf("agg.Close = %s, want 1.15 (newest close)", agg.Close)
	}
	if !agg.High.Equal(d("1.2")) || !agg.Low.Equal(d("0.9")) {
		t.Fatalf("agg extrema = %s/%s, want 1.2/0.9", agg.High, agg.Low)
	}
	if !agg.Volume.Equal(d("30")) {
		t.Fatalf("agg.Volume = %s, want 30", agg.Volume)
	}
	if agg.StartTimestamp != baseTS {
		t.Fatalf("agg.StartTimestamp = %d, want oldest start %d", agg.StartTimestamp, baseTS)
	}

	// count above history caps silently
	all := f.AggregateCandlesticks(100)
	if all.StartTimestamp != baseTS || !all.Close.Equal(d("1.15")) {
		t.Fatalf("capped aggregate = %+v", all)
	}
}

func TestStatusTransitions(t *testing.T) {
	f := newTestFeed()
	ctx := context.Background()

	now := baseTS
	f.SetClock(func() int64 { return now })
	if err := f.UpdateData(ctx, "provider", barUpdate("1", "1", "1", "1", "1", baseTS)); err != nil {
		t.Fatalf("UpdateData: %v", err)
	}

	if got := f.Status(); got != models.StatusActive {
		t.Fatalf("Status = %v, want Active", got)
	}
	// exactly two windows old is still active
	now = baseTS + 120
	if got := f.Status(); got != models.StatusActive {
		t.Fatalf("Status at 2 windows = %v, want Active", got)
	}
	now = baseTS + 121
	if got := f.Status(); got != models.StatusOutdated {
		t.Fatalf("Status past 2 windows = %v, want Outdated", got)
	}
	if err := f.HaltDataFeed("operator", true); err != nil {
		t.Fatalf("halt: %v", err)
	}
	if got := f.Status(); got != models.StatusHalted {
		t.Fatalf("Status = %v, want Halted (halt wins over staleness)", got)
	}
}

func TestStatusFreshFeed(t *testing.T) {
	f := newTestFeed()
	created := f.Info().CreatedOn
	now := created
	f.SetClock(func() int64 { return now })

	if got := f.Status(); got != models.StatusActive {
		t.Fatalf("Status = %v, want Active for a feed with no writes", got)
	}
	now = created + 121
	if got := f.Status(); got != models.StatusOutdated {
		t.Fatalf("Status = %v, want Outdated once creation is two windows old", got)
	}
}

func TestCanUpdate(t *testing.T) {
	f := newTestFeed()
	ctx := context.Background()

	now := baseTS
	f.SetClock(func() int64 { return now })

	if !f.CanUpdate() {
		t.Fatal("empty feed should accept a write")
	}
	if err := f.UpdateData(ctx, "provider", barUpdate("1", "1", "1", "1", "1", baseTS)); err != nil {
		t.Fatalf("UpdateData: %v", err)
	}
	if f.CanUpdate() {
		t.Fatal("write inside the open bar window should report false")
	}
	now = baseTS + 60
	if !f.CanUpdate() {
		t.Fatal("past the window a write opens a new bar")
	}
	if err := f.HaltDataFeed("operator", true); err != nil {
		t.Fatalf("halt: %v", err)
	}
	if f.CanUpdate() {
		t.Fatal("halted feed cannot update")
	}
}
