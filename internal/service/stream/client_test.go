package stream

import (
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestBarEventConversion(t *testing.T) {
	ev := barEvent(wsBar{S: "BTCUSDT", O: 1.5, H: 2, L: 1, C: 1.75, V: 10, T: 1_700_000_000_000}, 5)

	if ev.Symbol != "BTCUSDT" || ev.Timeframe != 5 {
		t.Fatalf("event = %+v", ev)
	}
	if !ev.Close.Equal(decimal.NewFromFloat(1.75)) {
		t.Fatalf("close = %s", ev.Close)
	}
	if ev.Timestamp != 1_700_000_000 {
		t.Fatalf("timestamp = %d, want seconds", ev.Timestamp)
	}
}

func TestClientCloseConcurrent(t *testing.T) {
	c := New("key", "wss://example.invalid/ws", []string{"BTCUSDT"}, 1, 0, time.Second).(*Client)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = c.Close()
			_ = c.IsConnected()
		}()
	}
	wg.Wait()

	if c.IsConnected() {
		t.Fatal("closed client reports connected")
	}
}
