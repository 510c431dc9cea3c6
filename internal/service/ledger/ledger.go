package ledger

import (
	"context"
	"sync"

	"MarketFeeds/internal/domain/models"
	domrepo "MarketFeeds/internal/domain/repository"

	"github.com/shopspring/decimal"
)

// InMemory is the process-local token substrate: string accounts, decimal
// balances, all-or-nothing transfers. It stands in for whatever settlement
// system the deployment plugs in behind the Ledger seam.
type InMemory struct {
	mu       sync.Mutex
	balances map[string]decimal.Decimal
}

// New creates an empty ledger.
func New() *InMemory {
	return &InMemory{balances: make(map[string]decimal.Decimal)}
}

// Mint credits an account out of thin air. Bootstrap and test helper.
func (l *InMemory) Mint(account string, amount decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[account] = l.balances[account].Add(amount)
}

// Transfer moves amount from one account to another, failing with
// ErrInsufficientFunds when the source balance does not cover it.
func (l *InMemory) Transfer(_ context.Context, from, to string, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return models.ErrInvalidInput
	}
	if amount.IsZero() {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.balances[from].Cmp(amount) < 0 {
		return models.ErrInsufficientFunds
	}
	l.balances[from] = l.balances[from].Sub(amount)
	l.balances[to] = l.balances[to].Add(amount)
	return nil
}

// BalanceOf returns the account balance, zero for unknown accounts.
func (l *InMemory) BalanceOf(_ context.Context, account string) (decimal.Decimal, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[account], nil
}

var _ domrepo.Ledger = (*InMemory)(nil)
