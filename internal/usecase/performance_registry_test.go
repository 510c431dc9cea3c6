package usecase

import (
	"context"
	"errors"
	"testing"

	"MarketFeeds/internal/domain/models"
)

func newTestPerfRegistry(fees *stubFees) *PerformanceRegistry {
	return NewPerformanceRegistry("operator", "registrar", stubPrices{}, fees)
}

func TestPerfRegisterRegistrarOnly(t *testing.T) {
	r := newTestPerfRegistry(&stubFees{})

	if _, err := r.RegisterDataFeed("stranger", "alice", "provider", d("1")); !errors.Is(err, models.ErrPermissionDenied) {
		t.Fatalf("stranger register err = %v, want ErrPermissionDenied", err)
	}
	if _, err := r.RegisterDataFeed("registrar", "alice", "provider", d("-1")); !errors.Is(err, models.ErrInvalidInput) {
		t.Fatalf("negative fee err = %v, want ErrInvalidInput", err)
	}
	if _, err := r.RegisterDataFeed("registrar", "alice", "provider", d("1")); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := r.RegisterDataFeed("registrar", "alice", "other", d("1")); !errors.Is(err, models.ErrAlreadyExists) {
		t.Fatalf("second feed per owner err = %v, want ErrAlreadyExists", err)
	}
	if r.NumberOfDataFeeds() != 1 {
		t.Fatalf("NumberOfDataFeeds = %d, want 1", r.NumberOfDataFeeds())
	}
}

func TestPerfLookupByOwnerAndID(t *testing.T) {
	r := newTestPerfRegistry(&stubFees{})

	feed, err := r.RegisterDataFeed("registrar", "alice", "provider", d("1"))
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if !r.HasDataFeed("alice") {
		t.Fatal("owner lookup failed")
	}
	if !r.HasDataFeed(feed.ID()) {
		t.Fatal("id lookup failed")
	}
	if r.HasDataFeed("bob") {
		t.Fatal("missing key reported present")
	}

	infoByOwner, err := r.GetDataFeedInfo("alice")
	if err != nil {
		t.Fatalf("info by owner: %v", err)
	}
	infoByID, err := r.GetDataFeedInfo(feed.ID())
	if err != nil {
		t.Fatalf("info by id: %v", err)
	}
	if infoByOwner.ID != infoByID.ID {
		t.Fatalf("lookup paths diverge: %s vs %s", infoByOwner.ID, infoByID.ID)
	}
}

func TestPerfRegistryPassthroughs(t *testing.T) {
	fees := &stubFees{}
	r := newTestPerfRegistry(fees)
	ctx := context.Background()

	if _, err := r.RegisterDataFeed("registrar", "alice", "provider", d("1")); err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := r.UpdatePosition(ctx, "provider", "alice", "X", false, d("1"), d("1")); err != nil {
		t.Fatalf("UpdatePosition: %v", err)
	}
	if err := r.UpdatePosition(ctx, "provider", "alice", "X", true, d("1.6"), d("1")); err != nil {
		t.Fatalf("close: %v", err)
	}

	price, err := r.GetTokenPrice(ctx, "reader", "alice")
	if err != nil {
		t.Fatalf("GetTokenPrice: %v", err)
	}
	if !price.Equal(d("0.52")) {
		t.Fatalf("token price = %s, want 0.52", price)
	}
	if fees.calls != 1 {
		t.Fatalf("fee settlements = %d, want 1", fees.calls)
	}

	indicative, err := r.GetIndicativePrice("alice")
	if err != nil {
		t.Fatalf("GetIndicativePrice: %v", err)
	}
	if !indicative.Equal(d("0.52")) {
		t.Fatalf("indicative = %s, want 0.52 with no open positions", indicative)
	}
}

func TestPerfMissingKeyQueries(t *testing.T) {
	r := newTestPerfRegistry(&stubFees{})
	ctx := context.Background()

	if _, err := r.GetTokenPrice(ctx, "reader", "bob"); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("token price err = %v, want ErrNotFound", err)
	}
	if err := r.UpdatePosition(ctx, "provider", "bob", "X", true, d("1"), d("1")); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("update err = %v, want ErrNotFound", err)
	}
	if got := r.GetDataFeedStatus("bob"); got != models.StatusNotFound {
		t.Fatalf("status = %v, want StatusNotFound", got)
	}
	if err := r.HaltDataFeed("operator", "bob", true); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("halt err = %v, want ErrNotFound", err)
	}
}

func TestPerfRegistryAdminGating(t *testing.T) {
	r := newTestPerfRegistry(&stubFees{})
	ctx := context.Background()

	feed, err := r.RegisterDataFeed("registrar", "alice", "provider", d("1"))
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := r.HaltDataFeed("stranger", "alice", true); !errors.Is(err, models.ErrPermissionDenied) {
		t.Fatalf("stranger halt err = %v, want ErrPermissionDenied", err)
	}
	if err := r.HaltDataFeed("operator", "alice", true); err != nil {
		t.Fatalf("halt: %v", err)
	}
	if got := r.GetDataFeedStatus("alice"); got != models.StatusHalted {
		t.Fatalf("status = %v, want Halted", got)
	}
	if err := r.HaltDataFeed("operator", "alice", false); err != nil {
		t.Fatalf("resume: %v", err)
	}

	if err := r.UpdateDedicatedDataProvider("operator", "alice", "provider2"); err != nil {
		t.Fatalf("provider change: %v", err)
	}
	if err := r.UpdatePosition(ctx, "provider", "alice", "X", true, d("1"), d("1")); !errors.Is(err, models.ErrPermissionDenied) {
		t.Fatalf("old provider err = %v, want ErrPermissionDenied", err)
	}
	if err := r.UpdatePosition(ctx, "provider2", "alice", "X", true, d("1"), d("1")); err != nil {
		t.Fatalf("new provider: %v", err)
	}

	// usage fee stays an owner concern, not an operator one
	if err := r.UpdateUsageFee("operator", "alice", d("2")); !errors.Is(err, models.ErrPermissionDenied) {
		t.Fatalf("operator fee change err = %v, want ErrPermissionDenied", err)
	}
	if err := r.UpdateUsageFee("alice", "alice", d("2")); err != nil {
		t.Fatalf("owner fee change: %v", err)
	}

	// detach the child to an external operator
	if err := r.SetDataFeedOperator("operator", "alice", "external"); err != nil {
		t.Fatalf("SetDataFeedOperator: %v", err)
	}
	if err := r.HaltDataFeed("operator", "alice", true); !errors.Is(err, models.ErrPermissionDenied) {
		t.Fatalf("registry halt on detached child err = %v, want ErrPermissionDenied", err)
	}
	if err := feed.HaltDataFeed("external", true); err != nil {
		t.Fatalf("external halt: %v", err)
	}
}

func TestPerfRegistryOperatorHandover(t *testing.T) {
	r := newTestPerfRegistry(&stubFees{})

	if _, err := r.RegisterDataFeed("registrar", "alice", "provider", d("1")); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.SetOperator("operator", "newop"); err != nil {
		t.Fatalf("SetOperator: %v", err)
	}
	if err := r.HaltDataFeed("operator", "alice", true); !errors.Is(err, models.ErrPermissionDenied) {
		t.Fatalf("old operator halt err = %v, want ErrPermissionDenied", err)
	}
	if err := r.HaltDataFeed("newop", "alice", true); err != nil {
		t.Fatalf("new operator halt: %v", err)
	}
	if err := r.SetRegistrar("newop", "newreg"); err != nil {
		t.Fatalf("SetRegistrar: %v", err)
	}
	if _, err := r.RegisterDataFeed("newreg", "bob", "provider", d("1")); err != nil {
		t.Fatalf("new registrar register: %v", err)
	}
}
