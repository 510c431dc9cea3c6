package feepool

import (
	"context"
	"errors"
	"testing"

	"MarketFeeds/internal/domain/models"
	"MarketFeeds/internal/service/ledger"

	"github.com/shopspring/decimal"
)

func TestAddAndClaimFees(t *testing.T) {
	ctx := context.Background()
	led := ledger.New()
	led.Mint("reader", decimal.New(10, 0))
	pool := New("owner", "operator", led)

	if err := pool.AddFees(ctx, "reader", "botOwner", decimal.New(3, 0)); err != nil {
		t.Fatalf("add fees: %v", err)
	}
	if got := pool.AvailableFees("botOwner"); !got.Equal(decimal.New(3, 0)) {
		t.Fatalf("available = %s, want 3", got)
	}

	claimed, err := pool.ClaimFees(ctx, "botOwner")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if !claimed.Equal(decimal.New(3, 0)) {
		t.Fatalf("claimed = %s, want 3", claimed)
	}
	if got := pool.AvailableFees("botOwner"); !got.IsZero() {
		t.Fatalf("available after claim = %s, want 0", got)
	}
	bal, _ := led.BalanceOf(ctx, "botOwner")
	if !bal.Equal(decimal.New(3, 0)) {
		t.Fatalf("payee balance = %s, want 3", bal)
	}
}

func TestAddFeesInsufficientFunds(t *testing.T) {
	ctx := context.Background()
	led := ledger.New()
	pool := New("owner", "operator", led)

	err := pool.AddFees(ctx, "broke", "botOwner", decimal.New(1, 0))
	if !errors.Is(err, models.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if got := pool.AvailableFees("botOwner"); !got.IsZero() {
		t.Fatalf("failed pull credited fees: %s", got)
	}
}

func TestClaimFeesEmptyBalance(t *testing.T) {
	pool := New("owner", "operator", ledger.New())
	claimed, err := pool.ClaimFees(context.Background(), "nobody")
	if err != nil || !claimed.IsZero() {
		t.Fatalf("empty claim = (%s, %v), want (0, nil)", claimed, err)
	}
}

func TestSetOperatorOwnerOnly(t *testing.T) {
	pool := New("owner", "operator", ledger.New())
	if err := pool.SetOperator("stranger", "x"); !errors.Is(err, models.ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
	if err := pool.SetOperator("owner", "x"); err != nil {
		t.Fatalf("owner set operator: %v", err)
	}
}
