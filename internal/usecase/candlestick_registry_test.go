package usecase

import (
	"context"
	"errors"
	"testing"

	"MarketFeeds/internal/domain/models"
)

func newTestRegistry() *CandlestickRegistry {
	return NewCandlestickRegistry("operator", "registrar")
}

func TestRegisterDataFeedRegistrarOnly(t *testing.T) {
	r := newTestRegistry()

	if _, err := r.RegisterDataFeed("stranger", "0xAAA", "BTCUSDT", 1, "provider"); !errors.Is(err, models.ErrPermissionDenied) {
		t.Fatalf("stranger register err = %v, want ErrPermissionDenied", err)
	}
	if _, err := r.RegisterDataFeed("registrar", "0xAAA", "BTCUSDT", 1, "provider"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if r.NumberOfDataFeeds() != 1 {
		t.Fatalf("NumberOfDataFeeds = %d, want 1", r.NumberOfDataFeeds())
	}
}

func TestRegisterDataFeedAppendOnly(t *testing.T) {
	r := newTestRegistry()

	if _, err := r.RegisterDataFeed("registrar", "0xAAA", "BTCUSDT", 1, "provider"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := r.RegisterDataFeed("registrar", "0xAAA", "BTCUSDT", 1, "other"); !errors.Is(err, models.ErrAlreadyExists) {
		t.Fatalf("re-register err = %v, want ErrAlreadyExists", err)
	}
	// same asset on a different timeframe is a distinct feed
	if _, err := r.RegisterDataFeed("registrar", "0xAAA", "BTCUSDT", 5, "provider"); err != nil {
		t.Fatalf("second timeframe: %v", err)
	}
	// symbol already aliased to a different asset
	if _, err := r.RegisterDataFeed("registrar", "0xBBB", "BTCUSDT", 60, "provider"); !errors.Is(err, models.ErrAlreadyExists) {
		t.Fatalf("alias clash err = %v, want ErrAlreadyExists", err)
	}
}

func TestRegisterDataFeedTimeframeWhitelist(t *testing.T) {
	r := newTestRegistry()

	if _, err := r.RegisterDataFeed("registrar", "0xAAA", "BTCUSDT", 7, "provider"); !errors.Is(err, models.ErrInvalidTimeframe) {
		t.Fatalf("unlisted timeframe err = %v, want ErrInvalidTimeframe", err)
	}

	if err := r.AddValidTimeframe("stranger", 7); !errors.Is(err, models.ErrPermissionDenied) {
		t.Fatalf("stranger AddValidTimeframe err = %v, want ErrPermissionDenied", err)
	}
	if err := r.AddValidTimeframe("operator", 7); err != nil {
		t.Fatalf("AddValidTimeframe: %v", err)
	}
	if err := r.AddValidTimeframe("operator", 7); !errors.Is(err, models.ErrAlreadyExists) {
		t.Fatalf("duplicate timeframe err = %v, want ErrAlreadyExists", err)
	}
	if err := r.AddValidTimeframe("operator", -1); !errors.Is(err, models.ErrInvalidTimeframe) {
		t.Fatalf("negative timeframe err = %v, want ErrInvalidTimeframe", err)
	}

	if _, err := r.RegisterDataFeed("registrar", "0xAAA", "BTCUSDT", 7, "provider"); err != nil {
		t.Fatalf("register on extended whitelist: %v", err)
	}

	for _, tf := range []int{1, 5, 60, 1440, 7} {
		if !r.IsValidTimeframe(tf) {
			t.Fatalf("IsValidTimeframe(%d) = false", tf)
		}
	}
	if r.IsValidTimeframe(13) {
		t.Fatal("IsValidTimeframe(13) = true")
	}
}

func TestSymbolAliasResolution(t *testing.T) {
	r := newTestRegistry()
	ctx := context.Background()

	if _, err := r.RegisterDataFeed("registrar", "0xAAA", "BTCUSDT", 1, "provider"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.UpdateBar(ctx, "provider", "0xAAA", 1, barUpdate("1", "1", "1", "1.5", "2", baseTS)); err != nil {
		t.Fatalf("UpdateBar by asset: %v", err)
	}

	// both lookup paths hit the same store
	byAsset, err := r.GetCurrentPrice("0xAAA", 1)
	if err != nil {
		t.Fatalf("price by asset: %v", err)
	}
	bySymbol, err := r.GetCurrentPrice("BTCUSDT", 1)
	if err != nil {
		t.Fatalf("price by symbol: %v", err)
	}
	if !byAsset.Equal(bySymbol) || !byAsset.Equal(d("1.5")) {
		t.Fatalf("asset price %s, symbol price %s, want 1.5", byAsset, bySymbol)
	}

	idA, _ := r.GetDataFeedID("0xAAA", 1)
	idS, _ := r.GetDataFeedID("BTCUSDT", 1)
	if idA != idS {
		t.Fatalf("feed id differs by lookup path: %s vs %s", idA, idS)
	}
}

func TestMissingFeedQueries(t *testing.T) {
	r := newTestRegistry()

	if _, err := r.GetCurrentPrice("0xZZZ", 1); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("price err = %v, want ErrNotFound", err)
	}
	if _, err := r.GetDataFeedInfo("0xZZZ", 1); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("info err = %v, want ErrNotFound", err)
	}
	if _, err := r.LastUpdated("0xZZZ", 1); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("last updated err = %v, want ErrNotFound", err)
	}
	// status is the one soft query
	if got := r.GetDataFeedStatus("0xZZZ", 1); got != models.StatusNotFound {
		t.Fatalf("status = %v, want StatusNotFound", got)
	}
	if r.HasDataFeed("0xZZZ", 1) {
		t.Fatal("HasDataFeed on missing key = true")
	}
}

func TestRegistryActsAsChildOperator(t *testing.T) {
	r := newTestRegistry()
	ctx := context.Background()

	feed, err := r.RegisterDataFeed("registrar", "0xAAA", "BTCUSDT", 1, "provider")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	// registry operator reaches the child through the registry
	if err := r.HaltDataFeed("operator", "0xAAA", 1, true); err != nil {
		t.Fatalf("halt via registry: %v", err)
	}
	if got := feed.Status(); got != models.StatusHalted {
		t.Fatalf("child status = %v, want Halted", got)
	}
	// but not directly, because the child's operator is the registry itself
	if err := feed.HaltDataFeed("operator", false); !errors.Is(err, models.ErrPermissionDenied) {
		t.Fatalf("direct halt err = %v, want ErrPermissionDenied", err)
	}
	if err := r.HaltDataFeed("operator", "0xAAA", 1, false); err != nil {
		t.Fatalf("resume via registry: %v", err)
	}

	if err := r.UpdateDedicatedDataProvider("operator", "0xAAA", 1, "provider2"); err != nil {
		t.Fatalf("provider change: %v", err)
	}
	if err := r.UpdateBar(ctx, "provider", "0xAAA", 1, barUpdate("1", "1", "1", "1", "1", baseTS)); !errors.Is(err, models.ErrPermissionDenied) {
		t.Fatalf("old provider write err = %v, want ErrPermissionDenied", err)
	}
	if err := r.UpdateBar(ctx, "provider2", "0xAAA", 1, barUpdate("1", "1", "1", "1", "1", baseTS)); err != nil {
		t.Fatalf("new provider write: %v", err)
	}

	// handing the child to an external operator detaches it from the registry
	if err := r.SetDataFeedOperator("operator", "0xAAA", 1, "external"); err != nil {
		t.Fatalf("SetDataFeedOperator: %v", err)
	}
	if err := r.HaltDataFeed("operator", "0xAAA", 1, true); !errors.Is(err, models.ErrPermissionDenied) {
		t.Fatalf("registry halt on detached child err = %v, want ErrPermissionDenied", err)
	}
	if err := feed.HaltDataFeed("external", true); err != nil {
		t.Fatalf("external operator halt: %v", err)
	}
}

func TestRegistryOperatorHandover(t *testing.T) {
	r := newTestRegistry()

	if _, err := r.RegisterDataFeed("registrar", "0xAAA", "BTCUSDT", 1, "provider"); err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := r.SetOperator("stranger", "stranger"); !errors.Is(err, models.ErrPermissionDenied) {
		t.Fatalf("stranger SetOperator err = %v, want ErrPermissionDenied", err)
	}
	if err := r.SetOperator("operator", "newop"); err != nil {
		t.Fatalf("SetOperator: %v", err)
	}
	// children follow the registry: the new operator controls them immediately
	if err := r.HaltDataFeed("operator", "0xAAA", 1, true); !errors.Is(err, models.ErrPermissionDenied) {
		t.Fatalf("old operator halt err = %v, want ErrPermissionDenied", err)
	}
	if err := r.HaltDataFeed("newop", "0xAAA", 1, true); err != nil {
		t.Fatalf("new operator halt: %v", err)
	}

	if err := r.SetRegistrar("newop", "newreg"); err != nil {
		t.Fatalf("SetRegistrar: %v", err)
	}
	if _, err := r.RegisterDataFeed("registrar", "0xBBB", "ETHUSDT", 1, "provider"); !errors.Is(err, models.ErrPermissionDenied) {
		t.Fatalf("old registrar err = %v, want ErrPermissionDenied", err)
	}
	if _, err := r.RegisterDataFeed("newreg", "0xBBB", "ETHUSDT", 1, "provider"); err != nil {
		t.Fatalf("new registrar register: %v", err)
	}
}

func TestRegistryPriceSource(t *testing.T) {
	r := newTestRegistry()
	ctx := context.Background()

	if _, err := r.RegisterDataFeed("registrar", "0xAAA", "BTCUSDT", 1, "provider"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.UpdateBar(ctx, "provider", "0xAAA", 1, barUpdate("1", "2", "1", "1.7", "3", baseTS)); err != nil {
		t.Fatalf("UpdateBar: %v", err)
	}

	src := NewRegistryPriceSource(r, 1)
	price, err := src.LatestPrice("0xAAA")
	if err != nil {
		t.Fatalf("LatestPrice: %v", err)
	}
	if !price.Equal(d("1.7")) {
		t.Fatalf("LatestPrice = %s, want 1.7", price)
	}
	if _, err := src.LatestPrice("0xZZZ"); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("missing asset err = %v, want ErrNotFound", err)
	}
}
