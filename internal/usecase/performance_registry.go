package usecase

import (
	"context"
	"sync"

	"MarketFeeds/internal/domain/models"
	domrepo "MarketFeeds/internal/domain/repository"
	"MarketFeeds/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PerformanceRegistry is the directory of performance feeds, keyed by owner
// with a feed-id alias. It is structurally a twin of CandlestickRegistry:
// registrar-gated append-only registration, query passthroughs, and the
// registry-as-child-operator convention.
type PerformanceRegistry struct {
	mu sync.RWMutex

	id        string
	operator  string
	registrar string

	byOwner map[string]*PerformanceFeed
	byID    map[string]*PerformanceFeed

	prices  domrepo.PriceSource
	fees    domrepo.FeeSink
	metrics domrepo.Metrics
	logger  *logger.Logger
	opts    []PerformanceFeedOption
}

// NewPerformanceRegistry creates a registry. The given collaborators are
// handed to every feed it creates.
func NewPerformanceRegistry(operator, registrar string, prices domrepo.PriceSource, fees domrepo.FeeSink) *PerformanceRegistry {
	return &PerformanceRegistry{
		id:        "perf-registry:" + uuid.NewString(),
		operator:  operator,
		registrar: registrar,
		byOwner:   make(map[string]*PerformanceFeed),
		byID:      make(map[string]*PerformanceFeed),
		prices:    prices,
		fees:      fees,
	}
}

// SetMetrics attaches the metrics recorder handed to created feeds.
func (r *PerformanceRegistry) SetMetrics(m domrepo.Metrics) { r.metrics = m }

// SetLogger attaches the structured logger.
func (r *PerformanceRegistry) SetLogger(l *logger.Logger) { r.logger = l }

// SetFeedOptions sets extra options applied to every created feed.
func (r *PerformanceRegistry) SetFeedOptions(opts ...PerformanceFeedOption) { r.opts = opts }

// ID returns the registry's account identity.
func (r *PerformanceRegistry) ID() string { return r.id }

func (r *PerformanceRegistry) lookup(key string) (*PerformanceFeed, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if f, ok := r.byOwner[key]; ok {
		return f, nil
	}
	if f, ok := r.byID[key]; ok {
		return f, nil
	}
	return nil, models.ErrNotFound
}

// RegisterDataFeed creates a feed for owner with the registry as its
// operator. Registrar only; one feed per owner.
func (r *PerformanceRegistry) RegisterDataFeed(caller, owner, dataProvider string, usageFee decimal.Decimal) (*PerformanceFeed, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if caller != r.registrar {
		return nil, models.ErrPermissionDenied
	}
	if usageFee.IsNegative() {
		return nil, models.ErrInvalidInput
	}
	if _, ok := r.byOwner[owner]; ok {
		return nil, models.ErrAlreadyExists
	}

	opts := r.opts
	if r.metrics != nil {
		opts = append(opts, WithPerformanceMetrics(r.metrics))
	}
	if r.logger != nil {
		opts = append(opts, WithPerformanceLogger(r.logger))
	}
	feed := NewPerformanceFeed(owner, dataProvider, r.id, usageFee, r.prices, r.fees, opts...)
	r.byOwner[owner] = feed
	r.byID[feed.ID()] = feed

	if r.logger != nil {
		r.logger.Info("performance feed registered",
			logger.String("owner", owner),
			logger.String("feed", feed.ID()),
			logger.String("usage_fee", usageFee.String()),
		)
	}
	return feed, nil
}

// HasDataFeed reports whether a feed exists for the key.
func (r *PerformanceRegistry) HasDataFeed(key string) bool {
	_, err := r.lookup(key)
	return err == nil
}

// NumberOfDataFeeds returns the count of registered feeds.
func (r *PerformanceRegistry) NumberOfDataFeeds() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byOwner)
}

// GetTokenPrice routes the paid read to the feed.
func (r *PerformanceRegistry) GetTokenPrice(ctx context.Context, caller, key string) (decimal.Decimal, error) {
	f, err := r.lookup(key)
	if err != nil {
		return decimal.Zero, err
	}
	return f.GetTokenPrice(ctx, caller)
}

// GetIndicativePrice routes the unpaid mark-to-market read to the feed.
func (r *PerformanceRegistry) GetIndicativePrice(key string) (decimal.Decimal, error) {
	f, err := r.lookup(key)
	if err != nil {
		return decimal.Zero, err
	}
	return f.GetIndicativePrice()
}

// UpdatePosition routes a provider position change to the feed.
func (r *PerformanceRegistry) UpdatePosition(ctx context.Context, caller, key, asset string, isLong bool, executionPrice, size decimal.Decimal) error {
	f, err := r.lookup(key)
	if err != nil {
		return err
	}
	return f.UpdateData(ctx, caller, asset, isLong, executionPrice, size)
}

// GetDataFeedInfo delegates to the feed.
func (r *PerformanceRegistry) GetDataFeedInfo(key string) (models.PerformanceFeedInfo, error) {
	f, err := r.lookup(key)
	if err != nil {
		return models.PerformanceFeedInfo{}, err
	}
	return f.Info(), nil
}

// LastUpdated delegates to the feed.
func (r *PerformanceRegistry) LastUpdated(key string) (int64, error) {
	f, err := r.lookup(key)
	if err != nil {
		return 0, err
	}
	return f.LastUpdated(), nil
}

// GetDataFeedStatus never fails: unregistered keys report NotFound.
func (r *PerformanceRegistry) GetDataFeedStatus(key string) models.FeedStatus {
	f, err := r.lookup(key)
	if err != nil {
		return models.StatusNotFound
	}
	return f.Status()
}

// UpdateUsageFee routes an owner fee change to the feed.
func (r *PerformanceRegistry) UpdateUsageFee(caller, key string, fee decimal.Decimal) error {
	f, err := r.lookup(key)
	if err != nil {
		return err
	}
	return f.UpdateUsageFee(caller, fee)
}

// HaltDataFeed halts or resumes a child feed. Registry operator only.
func (r *PerformanceRegistry) HaltDataFeed(caller, key string, halt bool) error {
	if err := r.requireOperator(caller); err != nil {
		return err
	}
	f, err := r.lookup(key)
	if err != nil {
		return err
	}
	return f.HaltDataFeed(r.id, halt)
}

// UpdateDedicatedDataProvider reassigns a child feed's writer. Registry
// operator only.
func (r *PerformanceRegistry) UpdateDedicatedDataProvider(caller, key, provider string) error {
	if err := r.requireOperator(caller); err != nil {
		return err
	}
	f, err := r.lookup(key)
	if err != nil {
		return err
	}
	return f.UpdateDedicatedDataProvider(r.id, provider)
}

// SetDataFeedOperator hands a child feed to an external operator. Registry
// operator only.
func (r *PerformanceRegistry) SetDataFeedOperator(caller, key, operator string) error {
	if err := r.requireOperator(caller); err != nil {
		return err
	}
	f, err := r.lookup(key)
	if err != nil {
		return err
	}
	return f.SetOperator(r.id, operator)
}

// SetOperator reassigns the registry operator; children move with it.
func (r *PerformanceRegistry) SetOperator(caller, operator string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if caller != r.operator {
		return models.ErrPermissionDenied
	}
	r.operator = operator
	return nil
}

// SetRegistrar reassigns the registrar role. Operator only.
func (r *PerformanceRegistry) SetRegistrar(caller, registrar string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if caller != r.operator {
		return models.ErrPermissionDenied
	}
	r.registrar = registrar
	return nil
}

func (r *PerformanceRegistry) requireOperator(caller string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if caller != r.operator {
		return models.ErrPermissionDenied
	}
	return nil
}
