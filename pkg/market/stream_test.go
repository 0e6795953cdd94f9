package market

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestNextBackoff(t *testing.T) {
	want := []time.Duration{
		time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		16 * time.Second,
		30 * time.Second,
		30 * time.Second,
	}
	var delay time.Duration
	for i, w := range want {
		delay = nextBackoff(delay, false)
		if delay != w {
			t.Fatalf("failure %d: delay %s, want %s", i+1, delay, w)
		}
	}
	// An established connection starts the ladder over, even from the cap.
	if got := nextBackoff(delay, true); got != reconnectMinDelay {
		t.Errorf("after reconnect: delay %s, want %s", got, reconnectMinDelay)
	}
	if got := nextBackoff(nextBackoff(delay, true), false); got != 2*time.Second {
		t.Errorf("first retry after reset: delay %s, want 2s", got)
	}
}

func TestStreamBookSnapshot(t *testing.T) {
	var got []PriceUpdate
	s := NewStream("", func(u PriceUpdate) { got = append(got, u) })
	s.Subscribe("tok1")

	s.handlePayload([]byte(`[{
		"event_type": "book",
		"asset_id": "tok1",
		"bids": [{"price": "0.40", "size": "100"}, {"price": "0.45", "size": "50"}],
		"asks": [{"price": "0.55", "size": "80"}, {"price": "0.50", "size": "60"}]
	}]`))

	if len(got) != 1 {
		t.Fatalf("got %d updates, want 1", len(got))
	}
	if got[0].AssetID != "tok1" {
		t.Errorf("asset = %q, want tok1", got[0].AssetID)
	}
	if !got[0].Mid.Equal(decimal.NewFromFloat(0.475)) {
		t.Errorf("mid = %s, want 0.475", got[0].Mid)
	}
	if got[0].Liquidity.IsZero() {
		t.Error("liquidity should be nonzero after a snapshot")
	}
}

func TestStreamPriceChange(t *testing.T) {
	var last PriceUpdate
	s := NewStream("", func(u PriceUpdate) { last = u })
	s.Subscribe("tok1")

	s.handlePayload([]byte(`{
		"event_type": "book",
		"asset_id": "tok1",
		"bids": [{"price": "0.45", "size": "50"}],
		"asks": [{"price": "0.50", "size": "60"}]
	}`))
	s.handlePayload([]byte(`{
		"event_type": "price_change",
		"asset_id": "tok1",
		"changes": [
			{"price": "0.48", "side": "BUY", "size": "30"},
			{"price": "0.50", "side": "SELL", "size": "0"},
			{"price": "0.52", "side": "SELL", "size": "40"}
		]
	}`))

	if !last.Mid.Equal(decimal.NewFromFloat(0.50)) {
		t.Errorf("mid = %s, want 0.50", last.Mid)
	}
}

func TestStreamIgnoresUnknownAssetsAndEvents(t *testing.T) {
	calls := 0
	s := NewStream("", func(PriceUpdate) { calls++ })
	s.Subscribe("tok1")

	// Unsubscribed token.
	s.handlePayload([]byte(`{
		"event_type": "book",
		"asset_id": "other",
		"bids": [{"price": "0.45", "size": "50"}],
		"asks": [{"price": "0.50", "size": "60"}]
	}`))
	// Trade prints do not move the book.
	s.handlePayload([]byte(`{"event_type": "last_trade_price", "asset_id": "tok1", "price": "0.47"}`))
	// Garbage.
	s.handlePayload([]byte(`not json`))

	if calls != 0 {
		t.Errorf("got %d updates, want 0", calls)
	}
}

func TestStreamNoUpdateWhileOneSided(t *testing.T) {
	calls := 0
	s := NewStream("", func(PriceUpdate) { calls++ })
	s.Subscribe("tok1")

	s.handlePayload([]byte(`{
		"event_type": "price_change",
		"asset_id": "tok1",
		"changes": [{"price": "0.45", "side": "BUY", "size": "50"}]
	}`))

	if calls != 0 {
		t.Errorf("got %d updates before both sides exist, want 0", calls)
	}
}
