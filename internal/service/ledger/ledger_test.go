package ledger

import (
	"context"
	"errors"
	"testing"

	"MarketFeeds/internal/domain/models"

	"github.com/shopspring/decimal"
)

func TestTransfer(t *testing.T) {
	l := New()
	ctx := context.Background()
	l.Mint("alice", decimal.New(10, 0))

	if err := l.Transfer(ctx, "alice", "bob", decimal.New(4, 0)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	a, _ := l.BalanceOf(ctx, "alice")
	b, _ := l.BalanceOf(ctx, "bob")
	if !a.Equal(decimal.New(6, 0)) || !b.Equal(decimal.New(4, 0)) {
		t.Fatalf("balances = %s/%s, want 6/4", a, b)
	}
}

func TestTransferInsufficientFunds(t *testing.T) {
	l := New()
	ctx := context.Background()
	l.Mint("alice", decimal.New(1, 0))

	err := l.Transfer(ctx, "alice", "bob", decimal.New(2, 0))
	if !errors.Is(err, models.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	a, _ := l.BalanceOf(ctx, "alice")
	if !a.Equal(decimal.New(1, 0)) {
		t.Fatalf("failed transfer moved funds: %s", a)
	}
}

func TestTransferZeroIsNoop(t *testing.T) {
	l := New()
	if err := l.Transfer(context.Background(), "nobody", "bob", decimal.Zero); err != nil {
		t.Fatalf("zero transfer should succeed, got %v", err)
	}
}
