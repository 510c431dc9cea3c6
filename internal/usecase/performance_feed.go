package usecase

import (
	"context"
	"sync"
	"time"

	"MarketFeeds/internal/domain/models"
	domrepo "MarketFeeds/internal/domain/repository"
	"MarketFeeds/internal/scalar"
	"MarketFeeds/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PerformanceFeed tracks long/short position changes for one trading entity
// and reconstructs a cumulative token price representing its compounded
// performance. The token price starts at 1 and only ever moves through the
// scalar algorithm on position reductions; it is never set directly.
type PerformanceFeed struct {
	mu sync.Mutex

	id           string
	owner        string
	operator     string
	dataProvider string

	usageFee        decimal.Decimal
	numberOfUpdates int
	lastUpdated     int64
	createdOn       int64
	tokenPrice      decimal.Decimal
	positions       map[string]*models.Position
	isHalted        bool

	maxUsageFee   decimal.Decimal
	feeCooldown   int64 // seconds between fee changes
	lastFeeChange int64

	staleWindow int64 // seconds; Outdated past twice this

	prices  domrepo.PriceSource
	fees    domrepo.FeeSink
	metrics domrepo.Metrics
	logger  *logger.Logger
	now     func() int64
}

// PerformanceFeedOption configures optional collaborators and policy knobs.
type PerformanceFeedOption func(*PerformanceFeed)

// WithPerformanceMetrics attaches the metrics recorder.
func WithPerformanceMetrics(m domrepo.Metrics) PerformanceFeedOption {
	return func(f *PerformanceFeed) { f.metrics = m }
}

// WithPerformanceLogger attaches the structured logger.
func WithPerformanceLogger(l *logger.Logger) PerformanceFeedOption {
	return func(f *PerformanceFeed) { f.logger = l }
}

// WithFeePolicy bounds usage fee changes: a hard cap and a minimum interval
// between consecutive changes.
func WithFeePolicy(maxFee decimal.Decimal, cooldown time.Duration) PerformanceFeedOption {
	return func(f *PerformanceFeed) {
		f.maxUsageFee = maxFee
		f.feeCooldown = int64(cooldown / time.Second)
	}
}

// WithStaleWindow sets the staleness window used by Status.
func WithStaleWindow(w time.Duration) PerformanceFeedOption {
	return func(f *PerformanceFeed) { f.staleWindow = int64(w / time.Second) }
}

// WithClock overrides the wall clock for tests.
func WithClock(now func() int64) PerformanceFeedOption {
	return func(f *PerformanceFeed) { f.now = now }
}

// NewPerformanceFeed creates a feed. The operator is passed explicitly by the
// creating registry.
func NewPerformanceFeed(owner, dataProvider, operator string, usageFee decimal.Decimal, prices domrepo.PriceSource, fees domrepo.FeeSink, opts ...PerformanceFeedOption) *PerformanceFeed {
	f := &PerformanceFeed{
		id:           uuid.NewString(),
		owner:        owner,
		operator:     operator,
		dataProvider: dataProvider,
		usageFee:     usageFee,
		tokenPrice:   decimal.New(1, 0),
		positions:    make(map[string]*models.Position),
		maxUsageFee:  decimal.New(1000, 0),
		feeCooldown:  int64((24 * time.Hour) / time.Second),
		staleWindow:  int64(time.Hour / time.Second),
		prices:       prices,
		fees:         fees,
		now:          func() int64 { return time.Now().Unix() },
	}
	for _, opt := range opts {
		opt(f)
	}
	f.createdOn = f.now()
	// A fresh feed counts as activity; Outdated starts from here, not zero.
	f.lastUpdated = f.createdOn
	return f
}

func (f *PerformanceFeed) ID() string    { return f.id }
func (f *PerformanceFeed) Owner() string { return f.owner }

// GetPosition returns the open position for asset, or ok=false when none
// exists (including after a full close).
func (f *PerformanceFeed) GetPosition(asset string) (models.Position, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.positions[asset]
	if !ok {
		return models.Position{}, false
	}
	return *p, true
}

// positionResult is the signed unrealized move of one position at a price:
// positive favorable, negative unfavorable, linear in size.
func positionResult(p *models.Position, price decimal.Decimal) decimal.Decimal {
	if p.IsLong {
		return price.Sub(p.EntryPrice).Mul(p.Size)
	}
	return p.EntryPrice.Sub(price).Mul(p.Size)
}

// snapshotMarks reads every open asset's latest close without holding the
// feed lock, so the feed lock and store locks are never held together.
func (f *PerformanceFeed) snapshotMarks() map[string]decimal.Decimal {
	f.mu.Lock()
	assets := make([]string, 0, len(f.positions))
	for a := range f.positions {
		assets = append(assets, a)
	}
	f.mu.Unlock()

	marks := make(map[string]decimal.Decimal, len(assets))
	for _, a := range assets {
		price, err := f.prices.LatestPrice(a)
		if err != nil {
			continue
		}
		marks[a] = price
	}
	return marks
}

// currentValues sums favorable and unfavorable unrealized moves across all
// positions using the given marks, with overrideAsset (when non-empty) valued
// at overridePrice instead of its mark. Caller holds f.mu.
func (f *PerformanceFeed) currentValues(marks map[string]decimal.Decimal, overrideAsset string, overridePrice decimal.Decimal) (gains, losses decimal.Decimal) {
	for asset, pos := range f.positions {
		price, ok := marks[asset]
		if asset == overrideAsset {
			price, ok = overridePrice, true
		}
		if !ok || price.IsZero() {
			// unpriced asset contributes nothing
			continue
		}
		res := positionResult(pos, price)
		if res.IsNegative() {
			losses = losses.Add(res.Neg())
		} else {
			gains = gains.Add(res)
		}
	}
	return gains, losses
}

// CalculateCurrentValues revalues all open positions mark-to-market. When
// asset is non-empty it is valued at markPrice instead of its store close.
func (f *PerformanceFeed) CalculateCurrentValues(asset string, markPrice decimal.Decimal) models.CurrentValues {
	marks := f.snapshotMarks()
	f.mu.Lock()
	gains, losses := f.currentValues(marks, asset, markPrice)
	f.mu.Unlock()

	net := gains.Sub(losses)
	favorable := !net.IsNegative()
	if net.IsNegative() {
		net = net.Neg()
	}
	return models.CurrentValues{
		TotalGain:      gains,
		TotalLoss:      losses,
		NetAbsolute:    net,
		IsNetFavorable: favorable,
	}
}

// UpdateData applies one position change. Provider only; fails when halted.
//
// Same-direction updates blend the entry price by size-weighted average.
// Opposite-direction updates realize the closed portion through the scalar
// algorithm and either shrink, delete, or flip the position.
func (f *PerformanceFeed) UpdateData(ctx context.Context, caller, asset string, isLong bool, executionPrice, size decimal.Decimal) error {
	if asset == "" || !executionPrice.IsPositive() || !size.IsPositive() {
		return models.ErrInvalidInput
	}

	// Marks are snapshotted before the mutating lock; store locks are never
	// held together with the feed lock.
	marks := f.snapshotMarks()

	f.mu.Lock()
	defer f.mu.Unlock()

	if caller != f.dataProvider {
		return models.ErrPermissionDenied
	}
	if f.isHalted {
		return models.ErrHalted
	}

	pos, exists := f.positions[asset]
	switch {
	case !exists:
		f.positions[asset] = &models.Position{IsLong: isLong, EntryPrice: executionPrice, Size: size}

	case pos.IsLong == isLong:
		// add: size-weighted average entry, direction unchanged
		total := pos.Size.Add(size)
		blended, _ := pos.EntryPrice.Mul(pos.Size).Add(executionPrice.Mul(size)).QuoRem(total, 18)
		pos.EntryPrice = blended
		pos.Size = total

	default:
		closed := size
		if closed.Cmp(pos.Size) > 0 {
			closed = pos.Size
		}
		gains, losses := f.currentValues(marks, asset, executionPrice)
		realized := executionPrice.Sub(pos.EntryPrice).Abs().Mul(closed)
		favorable := positionResult(pos, executionPrice).Sign() >= 0

		sc, err := scalar.ComputeScalar(gains, losses, realized, favorable, favorable)
		if err != nil {
			if f.metrics != nil {
				f.metrics.RecordError("scalar_compute")
			}
			return err
		}
		if f.metrics != nil {
			c, _ := scalar.Classify(gains, losses)
			f.metrics.RecordScalarCase(c.String())
		}
		f.tokenPrice = f.tokenPrice.Mul(sc).Truncate(18)

		switch size.Cmp(pos.Size) {
		case -1:
			pos.Size = pos.Size.Sub(size)
		case 0:
			delete(f.positions, asset)
		default:
			f.positions[asset] = &models.Position{
				IsLong:     isLong,
				EntryPrice: executionPrice,
				Size:       size.Sub(pos.Size),
			}
		}

		if f.logger != nil {
			f.logger.Debug("position reduced",
				logger.String("feed", f.id),
				logger.String("asset", asset),
				logger.String("scalar", sc.String()),
				logger.String("token_price", f.tokenPrice.String()),
			)
		}
	}

	f.lastUpdated = f.now()
	return nil
}

// GetTokenPrice is the paid read: the usage fee moves from caller to the fee
// pool before anything else, and a failed transfer fails the whole read with
// no counter movement.
func (f *PerformanceFeed) GetTokenPrice(ctx context.Context, caller string) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.usageFee.IsPositive() && f.fees != nil {
		if err := f.fees.AddFees(ctx, caller, f.owner, f.usageFee); err != nil {
			if f.metrics != nil {
				f.metrics.RecordError("usage_fee_transfer")
			}
			return decimal.Zero, err
		}
	}
	f.numberOfUpdates++
	f.lastUpdated = f.now()
	if f.metrics != nil {
		f.metrics.RecordTokenPriceRead(f.id)
	}
	return f.tokenPrice, nil
}

// GetIndicativePrice is the unpaid mark-to-market view: the cumulative token
// price scaled by the case multiplier of the current unrealized state.
func (f *PerformanceFeed) GetIndicativePrice() (decimal.Decimal, error) {
	marks := f.snapshotMarks()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.positions) == 0 {
		return f.tokenPrice, nil
	}
	gains, losses := f.currentValues(marks, "", decimal.Zero)
	mult, err := scalar.TokenPriceMultiplier(gains, losses)
	if err != nil {
		return decimal.Zero, err
	}
	return f.tokenPrice.Mul(mult).Truncate(18), nil
}

// UpdateUsageFee changes the per-read fee. Owner only, capped, and rate
// limited by the fee cooldown.
func (f *PerformanceFeed) UpdateUsageFee(caller string, fee decimal.Decimal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if caller != f.owner {
		return models.ErrPermissionDenied
	}
	if fee.IsNegative() || fee.Cmp(f.maxUsageFee) > 0 {
		return models.ErrInvalidInput
	}
	if now := f.now(); f.lastFeeChange != 0 && now-f.lastFeeChange < f.feeCooldown {
		return models.ErrFeeCooldown
	}
	f.usageFee = fee
	f.lastFeeChange = f.now()
	return nil
}

// NumberOfUpdates returns the paid-read counter.
func (f *PerformanceFeed) NumberOfUpdates() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.numberOfUpdates
}

// LastUpdated returns the timestamp of the last state-changing call.
func (f *PerformanceFeed) LastUpdated() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastUpdated
}

// Status reports Halted, Outdated (no activity for two stale windows), or
// Active.
func (f *PerformanceFeed) Status() models.FeedStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.isHalted {
		return models.StatusHalted
	}
	if f.now()-f.lastUpdated > 2*f.staleWindow {
		return models.StatusOutdated
	}
	return models.StatusActive
}

// Info returns the registry view of this feed.
func (f *PerformanceFeed) Info() models.PerformanceFeedInfo {
	f.mu.Lock()
	defer f.mu.Unlock()
	return models.PerformanceFeedInfo{
		ID:              f.id,
		Owner:           f.owner,
		DataProvider:    f.dataProvider,
		UsageFee:        f.usageFee,
		CreatedOn:       f.createdOn,
		TokenPrice:      f.tokenPrice,
		NumberOfUpdates: f.numberOfUpdates,
	}
}

// SetOperator reassigns the admin role. Operator only.
func (f *PerformanceFeed) SetOperator(caller, operator string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if caller != f.operator {
		return models.ErrPermissionDenied
	}
	f.operator = operator
	return nil
}

// UpdateDedicatedDataProvider reassigns the sole writer. Operator only.
func (f *PerformanceFeed) UpdateDedicatedDataProvider(caller, provider string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if caller != f.operator {
		return models.ErrPermissionDenied
	}
	f.dataProvider = provider
	return nil
}

// HaltDataFeed toggles the halt flag. Operator only.
func (f *PerformanceFeed) HaltDataFeed(caller string, halt bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if caller != f.operator {
		return models.ErrPermissionDenied
	}
	f.isHalted = halt
	return nil
}
