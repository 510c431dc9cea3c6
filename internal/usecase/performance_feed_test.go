package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"MarketFeeds/internal/domain/models"

	"github.com/shopspring/decimal"
)

// stubPrices marks assets from a fixed table.
type stubPrices map[string]string

func (s stubPrices) LatestPrice(asset string) (decimal.Decimal, error) {
	v, ok := s[asset]
	if !ok {
		return decimal.Zero, models.ErrNotFound
	}
	return d(v), nil
}

// stubFees records settlements and can be told to fail.
type stubFees struct {
	fail  bool
	calls int
}

func (s *stubFees) AddFees(_ context.Context, payer, payee string, amount decimal.Decimal) error {
	if s.fail {
		return models.ErrInsufficientFunds
	}
	s.calls++
	return nil
}

func newTestPerfFeed(prices stubPrices, fees *stubFees, opts ...PerformanceFeedOption) *PerformanceFeed {
	return NewPerformanceFeed("owner", "provider", "operator", d("1"), prices, fees, opts...)
}

func TestUpdateDataOpensPosition(t *testing.T) {
	f := newTestPerfFeed(stubPrices{}, &stubFees{})
	ctx := context.Background()

	if err := f.UpdateData(ctx, "provider", "X", true, d("1"), d("1")); err != nil {
		t.Fatalf("UpdateData: %v", err)
	}
	pos, ok := f.GetPosition("X")
	if !ok {
		t.Fatal("position missing after open")
	}
	if !pos.IsLong || !pos.EntryPrice.Equal(d("1")) || !pos.Size.Equal(d("1")) {
		t.Fatalf("position = %+v", pos)
	}
	if !f.Info().TokenPrice.Equal(d("1")) {
		t.Fatalf("token price moved on open: %s", f.Info().TokenPrice)
	}
}

func TestUpdateDataBlendsSameDirection(t *testing.T) {
	f := newTestPerfFeed(stubPrices{}, &stubFees{})
	ctx := context.Background()

	if err := f.UpdateData(ctx, "provider", "X", true, d("1"), d("1")); err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := f.UpdateData(ctx, "provider", "X", true, d("2"), d("1")); err != nil {
		t.Fatalf("add: %v", err)
	}
	pos, _ := f.GetPosition("X")
	if !pos.EntryPrice.Equal(d("1.5")) {
		t.Fatalf("blended entry = %s, want 1.5", pos.EntryPrice)
	}
	if !pos.Size.Equal(d("2")) {
		t.Fatalf("size = %s, want 2", pos.Size)
	}
}

func TestFullCloseCompoundsTokenPrice(t *testing.T) {
	// X long 1@1 closed at 1.9 while Y long 1@1 marks at 1.6: the state is all
	// gains (0.9 realized on X plus 0.6 unrealized on Y), and realizing the X
	// leg compounds the token price by 2.5/1.6.
	f := newTestPerfFeed(stubPrices{"Y": "1.6"}, &stubFees{})
	ctx := context.Background()

	if err := f.UpdateData(ctx, "provider", "X", true, d("1"), d("1")); err != nil {
		t.Fatalf("open X: %v", err)
	}
	if err := f.UpdateData(ctx, "provider", "Y", true, d("1"), d("1")); err != nil {
		t.Fatalf("open Y: %v", err)
	}
	if err := f.UpdateData(ctx, "provider", "X", false, d("1.9"), d("1")); err != nil {
		t.Fatalf("close X: %v", err)
	}

	if !f.Info().TokenPrice.Equal(d("1.5625")) {
		t.Fatalf("token price = %s, want 1.5625", f.Info().TokenPrice)
	}
	if _, ok := f.GetPosition("X"); ok {
		t.Fatal("X still open after full close")
	}
	if _, ok := f.GetPosition("Y"); !ok {
		t.Fatal("Y should be untouched")
	}
}

func TestShortCloseAtLoss(t *testing.T) {
	// X short 1@1 closed at 1.6 with no other positions: 0.6 unfavorable, so
	// the token price halves and then some (scalar 2.6/5).
	f := newTestPerfFeed(stubPrices{}, &stubFees{})
	ctx := context.Background()

	if err := f.UpdateData(ctx, "provider", "X", false, d("1"), d("1")); err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := f.UpdateData(ctx, "provider", "X", true, d("1.6"), d("1")); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !f.Info().TokenPrice.Equal(d("0.52")) {
		t.Fatalf("token price = %s, want 0.52", f.Info().TokenPrice)
	}
}

func TestPartialReduceShrinksPosition(t *testing.T) {
	// X short 2@1 reduced by a long 1 at 1.3: the whole position marks 0.6
	// against, 0.3 is realized, and the remainder stays short at the original
	// entry.
	f := newTestPerfFeed(stubPrices{}, &stubFees{})
	ctx := context.Background()

	if err := f.UpdateData(ctx, "provider", "X", false, d("1"), d("2")); err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := f.UpdateData(ctx, "provider", "X", true, d("1.3"), d("1")); err != nil {
		t.Fatalf("reduce: %v", err)
	}

	if !f.Info().TokenPrice.Equal(d("0.684210526315789473")) {
		t.Fatalf("token price = %s, want 0.684210526315789473", f.Info().TokenPrice)
	}
	pos, ok := f.GetPosition("X")
	if !ok {
		t.Fatal("position missing after partial reduce")
	}
	if pos.IsLong || !pos.Size.Equal(d("1")) || !pos.EntryPrice.Equal(d("1")) {
		t.Fatalf("remainder = %+v, want short 1@1", pos)
	}
}

func TestFlipReversesPosition(t *testing.T) {
	f := newTestPerfFeed(stubPrices{}, &stubFees{})
	ctx := context.Background()

	if err := f.UpdateData(ctx, "provider", "X", true, d("2"), d("1")); err != nil {
		t.Fatalf("open: %v", err)
	}
	// flat close at entry realizes nothing; the surplus opens the other way
	if err := f.UpdateData(ctx, "provider", "X", false, d("2"), d("2")); err != nil {
		t.Fatalf("flip: %v", err)
	}

	if !f.Info().TokenPrice.Equal(d("1")) {
		t.Fatalf("token price = %s, want 1 (nothing realized)", f.Info().TokenPrice)
	}
	pos, ok := f.GetPosition("X")
	if !ok {
		t.Fatal("position missing after flip")
	}
	if pos.IsLong || !pos.Size.Equal(d("1")) || !pos.EntryPrice.Equal(d("2")) {
		t.Fatalf("flipped position = %+v, want short 1@2", pos)
	}
}

func TestReopenAfterFullCloseStartsFresh(t *testing.T) {
	f := newTestPerfFeed(stubPrices{}, &stubFees{})
	ctx := context.Background()

	if err := f.UpdateData(ctx, "provider", "X", true, d("1"), d("1")); err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := f.UpdateData(ctx, "provider", "X", false, d("1.5"), d("1")); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := f.UpdateData(ctx, "provider", "X", false, d("3"), d("4")); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	pos, _ := f.GetPosition("X")
	if pos.IsLong || !pos.EntryPrice.Equal(d("3")) || !pos.Size.Equal(d("4")) {
		t.Fatalf("reopened position = %+v, want short 4@3", pos)
	}
}

func TestUpdateDataValidation(t *testing.T) {
	f := newTestPerfFeed(stubPrices{}, &stubFees{})
	ctx := context.Background()

	if err := f.UpdateData(ctx, "provider", "", true, d("1"), d("1")); !errors.Is(err, models.ErrInvalidInput) {
		t.Fatalf("empty asset err = %v, want ErrInvalidInput", err)
	}
	if err := f.UpdateData(ctx, "provider", "X", true, d("0"), d("1")); !errors.Is(err, models.ErrInvalidInput) {
		t.Fatalf("zero price err = %v, want ErrInvalidInput", err)
	}
	if err := f.UpdateData(ctx, "provider", "X", true, d("1"), d("-1")); !errors.Is(err, models.ErrInvalidInput) {
		t.Fatalf("negative size err = %v, want ErrInvalidInput", err)
	}
	if err := f.UpdateData(ctx, "stranger", "X", true, d("1"), d("1")); !errors.Is(err, models.ErrPermissionDenied) {
		t.Fatalf("stranger err = %v, want ErrPermissionDenied", err)
	}
	if err := f.HaltDataFeed("operator", true); err != nil {
		t.Fatalf("halt: %v", err)
	}
	if err := f.UpdateData(ctx, "provider", "X", true, d("1"), d("1")); !errors.Is(err, models.ErrHalted) {
		t.Fatalf("halted err = %v, want ErrHalted", err)
	}
}

func TestGetTokenPriceChargesFee(t *testing.T) {
	fees := &stubFees{}
	f := newTestPerfFeed(stubPrices{}, fees)
	ctx := context.Background()

	price, err := f.GetTokenPrice(ctx, "reader")
	if err != nil {
		t.Fatalf("GetTokenPrice: %v", err)
	}
	if !price.Equal(d("1")) {
		t.Fatalf("price = %s, want 1", price)
	}
	if fees.calls != 1 {
		t.Fatalf("fee settlements = %d, want 1", fees.calls)
	}
	if f.NumberOfUpdates() != 1 {
		t.Fatalf("NumberOfUpdates = %d, want 1", f.NumberOfUpdates())
	}
}

func TestGetTokenPriceFailsClosedOnFee(t *testing.T) {
	fees := &stubFees{fail: true}
	f := newTestPerfFeed(stubPrices{}, fees)
	ctx := context.Background()

	if _, err := f.GetTokenPrice(ctx, "broke"); !errors.Is(err, models.ErrInsufficientFunds) {
		t.Fatalf("err = %v, want ErrInsufficientFunds", err)
	}
	if f.NumberOfUpdates() != 0 {
		t.Fatalf("NumberOfUpdates = %d, want 0 after failed fee", f.NumberOfUpdates())
	}
}

func TestGetIndicativePrice(t *testing.T) {
	prices := stubPrices{"X": "1.5"}
	f := newTestPerfFeed(prices, &stubFees{})
	ctx := context.Background()

	// no positions: indicative equals the cumulative token price
	p, err := f.GetIndicativePrice()
	if err != nil {
		t.Fatalf("GetIndicativePrice: %v", err)
	}
	if !p.Equal(d("1")) {
		t.Fatalf("flat indicative = %s, want 1", p)
	}

	if err := f.UpdateData(ctx, "provider", "X", true, d("1"), d("1")); err != nil {
		t.Fatalf("open: %v", err)
	}
	// 0.5 unrealized gain scales the price by the case multiplier 1.5
	p, err = f.GetIndicativePrice()
	if err != nil {
		t.Fatalf("GetIndicativePrice: %v", err)
	}
	if !p.Equal(d("1.5")) {
		t.Fatalf("indicative = %s, want 1.5", p)
	}
}

func TestCalculateCurrentValues(t *testing.T) {
	prices := stubPrices{"X": "1.6"}
	f := newTestPerfFeed(prices, &stubFees{})
	ctx := context.Background()

	if err := f.UpdateData(ctx, "provider", "X", true, d("1"), d("1")); err != nil {
		t.Fatalf("open X: %v", err)
	}
	if err := f.UpdateData(ctx, "provider", "Z", false, d("2"), d("1")); err != nil {
		t.Fatalf("open Z: %v", err)
	}

	// Z valued at the override, X at its mark
	cv := f.CalculateCurrentValues("Z", d("2.5"))
	if !cv.TotalGain.Equal(d("0.6")) {
		t.Fatalf("TotalGain = %s, want 0.6", cv.TotalGain)
	}
	if !cv.TotalLoss.Equal(d("0.5")) {
		t.Fatalf("TotalLoss = %s, want 0.5", cv.TotalLoss)
	}
	if !cv.NetAbsolute.Equal(d("0.1")) || !cv.IsNetFavorable {
		t.Fatalf("net = %s favorable=%v, want 0.1 favorable", cv.NetAbsolute, cv.IsNetFavorable)
	}
}

func TestUpdateUsageFeePolicy(t *testing.T) {
	now := baseTS
	f := newTestPerfFeed(stubPrices{}, &stubFees{},
		WithFeePolicy(d("100"), time.Hour),
		WithClock(func() int64 { return now }),
	)

	if err := f.UpdateUsageFee("stranger", d("2")); !errors.Is(err, models.ErrPermissionDenied) {
		t.Fatalf("stranger err = %v, want ErrPermissionDenied", err)
	}
	if err := f.UpdateUsageFee("owner", d("101")); !errors.Is(err, models.ErrInvalidInput) {
		t.Fatalf("over cap err = %v, want ErrInvalidInput", err)
	}
	if err := f.UpdateUsageFee("owner", d("2")); err != nil {
		t.Fatalf("UpdateUsageFee: %v", err)
	}
	if err := f.UpdateUsageFee("owner", d("3")); !errors.Is(err, models.ErrFeeCooldown) {
		t.Fatalf("cooldown err = %v, want ErrFeeCooldown", err)
	}
	now += 3601
	if err := f.UpdateUsageFee("owner", d("3")); err != nil {
		t.Fatalf("post-cooldown change: %v", err)
	}
	if !f.Info().UsageFee.Equal(d("3")) {
		t.Fatalf("usage fee = %s, want 3", f.Info().UsageFee)
	}
}

func TestPerformanceStatus(t *testing.T) {
	now := baseTS
	f := newTestPerfFeed(stubPrices{}, &stubFees{},
		WithStaleWindow(time.Hour),
		WithClock(func() int64 { return now }),
	)
	ctx := context.Background()

	if err := f.UpdateData(ctx, "provider", "X", true, d("1"), d("1")); err != nil {
		t.Fatalf("open: %v", err)
	}
	if got := f.Status(); got != models.StatusActive {
		t.Fatalf("Status = %v, want Active", got)
	}
	now = baseTS + 2*3600 + 1
	if got := f.Status(); got != models.StatusOutdated {
		t.Fatalf("Status = %v, want Outdated", got)
	}
	if err := f.HaltDataFeed("operator", true); err != nil {
		t.Fatalf("halt: %v", err)
	}
	if got := f.Status(); got != models.StatusHalted {
		t.Fatalf("Status = %v, want Halted", got)
	}
}

func TestPerformanceStatusFreshFeed(t *testing.T) {
	now := baseTS
	f := newTestPerfFeed(stubPrices{}, &stubFees{},
		WithStaleWindow(time.Hour),
		WithClock(func() int64 { return now }),
	)

	if got := f.Status(); got != models.StatusActive {
		t.Fatalf("Status = %v, want Active for a feed with no writes", got)
	}
	now = baseTS + 2*3600 + 1
	if got := f.Status(); got != models.StatusOutdated {
		t.Fatalf("Status = %v, want Outdated once creation is two windows old", got)
	}
}
