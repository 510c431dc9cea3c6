package usecase

import (
	"context"
	"fmt"
	"sync"

	"MarketFeeds/internal/domain/models"
	domrepo "MarketFeeds/internal/domain/repository"
	"MarketFeeds/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CandlestickRegistry is the directory of candlestick feeds keyed by
// (asset, timeframe). A human-readable symbol is registered alongside each
// asset and both lookup paths resolve to the same store.
//
// The registry acts as the operator of every feed it creates, so registry
// admin operations reach children without per-feed reassignment, and changing
// the registry's own operator transfers control of all children at once.
type CandlestickRegistry struct {
	mu sync.RWMutex

	id        string
	operator  string
	registrar string

	feeds           map[string]*CandlestickFeed // key: asset + ":" + timeframe
	symbolToAsset   map[string]string
	validTimeframes map[int]bool

	sink    domrepo.BarSink
	metrics domrepo.Metrics
	logger  *logger.Logger
}

// NewCandlestickRegistry creates a registry seeded with the default timeframe
// whitelist.
func NewCandlestickRegistry(operator, registrar string) *CandlestickRegistry {
	valid := make(map[int]bool)
	for _, tf := range domrepo.SeedTimeframes() {
		valid[tf] = true
	}
	return &CandlestickRegistry{
		id:              "registry:" + uuid.NewString(),
		operator:        operator,
		registrar:       registrar,
		feeds:           make(map[string]*CandlestickFeed),
		symbolToAsset:   make(map[string]string),
		validTimeframes: valid,
	}
}

// SetSink attaches the bar lifecycle sink handed to every created feed.
func (r *CandlestickRegistry) SetSink(s domrepo.BarSink) { r.sink = s }

// SetMetrics attaches the metrics recorder handed to every created feed.
func (r *CandlestickRegistry) SetMetrics(m domrepo.Metrics) { r.metrics = m }

// SetLogger attaches the structured logger.
func (r *CandlestickRegistry) SetLogger(l *logger.Logger) { r.logger = l }

// ID returns the registry's own account identity (the operator handle of its
// children).
func (r *CandlestickRegistry) ID() string { return r.id }

func feedKey(asset string, timeframe int) string {
	return fmt.Sprintf("%s:%d", asset, timeframe)
}

// resolve maps an asset identifier or symbol alias plus timeframe to a feed.
func (r *CandlestickRegistry) resolve(assetOrSymbol string, timeframe int) (*CandlestickFeed, bool) {
	if f, ok := r.feeds[feedKey(assetOrSymbol, timeframe)]; ok {
		return f, true
	}
	if asset, ok := r.symbolToAsset[assetOrSymbol]; ok {
		f, ok := r.feeds[feedKey(asset, timeframe)]
		return f, ok
	}
	return nil, false
}

func (r *CandlestickRegistry) lookup(assetOrSymbol string, timeframe int) (*CandlestickFeed, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.resolve(assetOrSymbol, timeframe)
	if !ok {
		return nil, models.ErrNotFound
	}
	return f, nil
}

// AddValidTimeframe extends the whitelist. Operator only; duplicates are
// rejected.
func (r *CandlestickRegistry) AddValidTimeframe(caller string, timeframe int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if caller != r.operator {
		return models.ErrPermissionDenied
	}
	if timeframe <= 0 {
		return models.ErrInvalidTimeframe
	}
	if r.validTimeframes[timeframe] {
		return models.ErrAlreadyExists
	}
	r.validTimeframes[timeframe] = true
	return nil
}

// IsValidTimeframe reports whitelist membership.
func (r *CandlestickRegistry) IsValidTimeframe(timeframe int) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.validTimeframes[timeframe]
}

// RegisterDataFeed creates a feed for (asset, timeframe) with the registry as
// its operator. Registrar only. Registration is append-only: no
// re-registration and no deletion.
func (r *CandlestickRegistry) RegisterDataFeed(caller, asset, symbol string, timeframe int, dataProvider string) (*CandlestickFeed, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if caller != r.registrar {
		return nil, models.ErrPermissionDenied
	}
	if !r.validTimeframes[timeframe] {
		return nil, models.ErrInvalidTimeframe
	}
	key := feedKey(asset, timeframe)
	if _, ok := r.feeds[key]; ok {
		return nil, models.ErrAlreadyExists
	}
	if aliased, ok := r.symbolToAsset[symbol]; ok && aliased != asset {
		return nil, models.ErrAlreadyExists
	}

	feed := NewCandlestickFeed(asset, symbol, timeframe, dataProvider, r.id)
	if r.sink != nil {
		feed.SetSink(r.sink)
	}
	if r.metrics != nil {
		feed.SetMetrics(r.metrics)
	}
	r.feeds[key] = feed
	r.symbolToAsset[symbol] = asset

	if r.logger != nil {
		r.logger.Info("data feed registered",
			logger.String("asset", asset),
			logger.String("symbol", symbol),
			logger.Int("timeframe", timeframe),
			logger.String("provider", dataProvider),
		)
	}
	return feed, nil
}

// HasDataFeed reports whether a feed exists for the key.
func (r *CandlestickRegistry) HasDataFeed(assetOrSymbol string, timeframe int) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.resolve(assetOrSymbol, timeframe)
	return ok
}

// NumberOfDataFeeds returns the count of registered feeds.
func (r *CandlestickRegistry) NumberOfDataFeeds() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.feeds)
}

// GetDataFeedID resolves the key to the feed's identifier.
func (r *CandlestickRegistry) GetDataFeedID(assetOrSymbol string, timeframe int) (string, error) {
	f, err := r.lookup(assetOrSymbol, timeframe)
	if err != nil {
		return "", err
	}
	return f.ID(), nil
}

// GetCurrentPrice delegates to the feed; a missing key fails hard because no
// sentinel price is safe here.
func (r *CandlestickRegistry) GetCurrentPrice(assetOrSymbol string, timeframe int) (decimal.Decimal, error) {
	f, err := r.lookup(assetOrSymbol, timeframe)
	if err != nil {
		return decimal.Zero, err
	}
	return f.GetCurrentPrice(), nil
}

// GetPriceAt delegates to the feed's sentinel-zero indexed read.
func (r *CandlestickRegistry) GetPriceAt(assetOrSymbol string, timeframe, index int) (decimal.Decimal, error) {
	f, err := r.lookup(assetOrSymbol, timeframe)
	if err != nil {
		return decimal.Zero, err
	}
	return f.GetPriceAt(index), nil
}

// GetCurrentCandlestick delegates to the feed.
func (r *CandlestickRegistry) GetCurrentCandlestick(assetOrSymbol string, timeframe int) (models.Candlestick, error) {
	f, err := r.lookup(assetOrSymbol, timeframe)
	if err != nil {
		return models.Candlestick{}, err
	}
	return f.GetCurrentCandlestick(), nil
}

// GetCandlestickAt delegates to the feed.
func (r *CandlestickRegistry) GetCandlestickAt(assetOrSymbol string, timeframe, index int) (models.Candlestick, error) {
	f, err := r.lookup(assetOrSymbol, timeframe)
	if err != nil {
		return models.Candlestick{}, err
	}
	return f.GetCandlestickAt(index), nil
}

// AggregateCandlesticks delegates to the feed.
func (r *CandlestickRegistry) AggregateCandlesticks(assetOrSymbol string, timeframe, count int) (models.Candlestick, error) {
	f, err := r.lookup(assetOrSymbol, timeframe)
	if err != nil {
		return models.Candlestick{}, err
	}
	return f.AggregateCandlesticks(count), nil
}

// GetDataFeedInfo delegates to the feed.
func (r *CandlestickRegistry) GetDataFeedInfo(assetOrSymbol string, timeframe int) (models.DataFeedInfo, error) {
	f, err := r.lookup(assetOrSymbol, timeframe)
	if err != nil {
		return models.DataFeedInfo{}, err
	}
	return f.Info(), nil
}

// LastUpdated delegates to the feed.
func (r *CandlestickRegistry) LastUpdated(assetOrSymbol string, timeframe int) (int64, error) {
	f, err := r.lookup(assetOrSymbol, timeframe)
	if err != nil {
		return 0, err
	}
	return f.LastUpdated(), nil
}

// CanUpdate delegates to the feed.
func (r *CandlestickRegistry) CanUpdate(assetOrSymbol string, timeframe int) (bool, error) {
	f, err := r.lookup(assetOrSymbol, timeframe)
	if err != nil {
		return false, err
	}
	return f.CanUpdate(), nil
}

// GetDataFeedStatus is the one lookup that never fails: unregistered keys
// report NotFound instead of an error.
func (r *CandlestickRegistry) GetDataFeedStatus(assetOrSymbol string, timeframe int) models.FeedStatus {
	r.mu.RLock()
	f, ok := r.resolve(assetOrSymbol, timeframe)
	r.mu.RUnlock()
	if !ok {
		return models.StatusNotFound
	}
	return f.Status()
}

// UpdateBar routes a provider write to the owning feed. The feed enforces the
// provider permission itself.
func (r *CandlestickRegistry) UpdateBar(ctx context.Context, caller, assetOrSymbol string, timeframe int, u models.BarUpdate) error {
	f, err := r.lookup(assetOrSymbol, timeframe)
	if err != nil {
		return err
	}
	return f.UpdateData(ctx, caller, u)
}

// HaltDataFeed halts or resumes a child feed. Registry operator only; fails
// on a missing key.
func (r *CandlestickRegistry) HaltDataFeed(caller, assetOrSymbol string, timeframe int, halt bool) error {
	if err := r.requireOperator(caller); err != nil {
		return err
	}
	f, err := r.lookup(assetOrSymbol, timeframe)
	if err != nil {
		return err
	}
	return f.HaltDataFeed(r.id, halt)
}

// UpdateDedicatedDataProvider reassigns a child feed's writer. Registry
// operator only.
func (r *CandlestickRegistry) UpdateDedicatedDataProvider(caller, assetOrSymbol string, timeframe int, provider string) error {
	if err := r.requireOperator(caller); err != nil {
		return err
	}
	f, err := r.lookup(assetOrSymbol, timeframe)
	if err != nil {
		return err
	}
	return f.UpdateDedicatedDataProvider(r.id, provider)
}

// SetDataFeedOperator hands a child feed to an external operator. Registry
// operator only.
func (r *CandlestickRegistry) SetDataFeedOperator(caller, assetOrSymbol string, timeframe int, operator string) error {
	if err := r.requireOperator(caller); err != nil {
		return err
	}
	f, err := r.lookup(assetOrSymbol, timeframe)
	if err != nil {
		return err
	}
	return f.SetOperator(r.id, operator)
}

// SetOperator reassigns the registry operator. Children keep the registry as
// their operator handle, so control of all of them moves with this call.
func (r *CandlestickRegistry) SetOperator(caller, operator string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if caller != r.operator {
		return models.ErrPermissionDenied
	}
	r.operator = operator
	return nil
}

// SetRegistrar reassigns the registrar role. Operator only.
func (r *CandlestickRegistry) SetRegistrar(caller, registrar string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if caller != r.operator {
		return models.ErrPermissionDenied
	}
	r.registrar = registrar
	return nil
}

func (r *CandlestickRegistry) requireOperator(caller string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if caller != r.operator {
		return models.ErrPermissionDenied
	}
	return nil
}

// RegistryPriceSource adapts the registry to the PriceSource seam used by
// performance feeds, pinned to one pricing timeframe.
type RegistryPriceSource struct {
	reg       *CandlestickRegistry
	timeframe int
}

// NewRegistryPriceSource creates the adapter.
func NewRegistryPriceSource(reg *CandlestickRegistry, timeframe int) *RegistryPriceSource {
	return &RegistryPriceSource{reg: reg, timeframe: timeframe}
}

// LatestPrice returns the asset's newest close on the pricing timeframe.
func (s *RegistryPriceSource) LatestPrice(asset string) (decimal.Decimal, error) {
	return s.reg.GetCurrentPrice(asset, s.timeframe)
}

var _ domrepo.PriceSource = (*RegistryPriceSource)(nil)
