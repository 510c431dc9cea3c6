package feepool

import (
	"context"
	"sync"

	"MarketFeeds/internal/domain/models"
	domrepo "MarketFeeds/internal/domain/repository"
	"MarketFeeds/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FeePool accrues usage fees on behalf of payees. AddFees pulls tokens from
// the payer into the pool account and credits the payee's claimable balance;
// ClaimFees zeroes the balance and pays it out. A failed ledger transfer
// leaves no bookkeeping behind.
type FeePool struct {
	mu sync.Mutex

	owner    string
	operator string
	account  string // the pool's own ledger account

	available map[string]decimal.Decimal
	ledger    domrepo.Ledger
	logger    *logger.Logger
}

// New creates a pool with its own ledger account.
func New(owner, operator string, ledger domrepo.Ledger) *FeePool {
	return &FeePool{
		owner:     owner,
		operator:  operator,
		account:   "feepool:" + uuid.NewString(),
		available: make(map[string]decimal.Decimal),
		ledger:    ledger,
	}
}

// SetLogger attaches the structured logger.
func (p *FeePool) SetLogger(l *logger.Logger) { p.logger = l }

// Account returns the pool's ledger account id.
func (p *FeePool) Account() string { return p.account }

// AddFees pulls amount from payer and credits payee.
func (p *FeePool) AddFees(ctx context.Context, payer, payee string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return models.ErrInvalidInput
	}
	if amount.IsZero() {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ledger.Transfer(ctx, payer, p.account, amount); err != nil {
		return err
	}
	p.available[payee] = p.available[payee].Add(amount)
	if p.logger != nil {
		p.logger.Debug("fees added",
			logger.String("payer", payer),
			logger.String("payee", payee),
			logger.String("amount", amount.String()),
		)
	}
	return nil
}

// AvailableFees returns the payee's claimable balance.
func (p *FeePool) AvailableFees(payee string) decimal.Decimal {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.available[payee]
}

// ClaimFees pays out and zeroes the caller's claimable balance, returning the
// amount claimed.
func (p *FeePool) ClaimFees(ctx context.Context, payee string) (decimal.Decimal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	amount := p.available[payee]
	if amount.IsZero() {
		return decimal.Zero, nil
	}
	if err := p.ledger.Transfer(ctx, p.account, payee, amount); err != nil {
		return decimal.Zero, err
	}
	delete(p.available, payee)
	return amount, nil
}

// SetOperator reassigns the operator. Owner only.
func (p *FeePool) SetOperator(caller, operator string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if caller != p.owner {
		return models.ErrPermissionDenied
	}
	p.operator = operator
	return nil
}

var _ domrepo.FeeSink = (*FeePool)(nil)
