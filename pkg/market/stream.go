package market

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

// DefaultStreamURL is the public CLOB market data channel. No auth needed
// for market subscriptions.
const DefaultStreamURL = "wss://ws-subscriptions-clob.polymarket.com/ws/market"

const (
	streamWriteWait   = 10 * time.Second
	streamReadWait    = 60 * time.Second
	streamPingPeriod  = 30 * time.Second
	reconnectMinDelay = time.Second
	reconnectMaxDelay = 30 * time.Second
	defaultLiquidBand = 0.05 // near-depth band around mid
)

// PriceUpdate is one derived price observation for a subscribed token.
type PriceUpdate struct {
	AssetID   string
	Mid       decimal.Decimal
	Liquidity decimal.Decimal // dollar depth near the touch
}

// Stream maintains order books for subscribed outcome tokens over the CLOB
// market websocket and emits a PriceUpdate whenever a book changes. It
// reconnects with exponential backoff and resubscribes on its own.
type Stream struct {
	url     string
	onPrice func(PriceUpdate)
	band    decimal.Decimal

	mu     sync.Mutex
	books  map[string]*Book
	conn   *websocket.Conn
	cancel context.CancelFunc
	done   chan struct{}
}

// NewStream creates a stream delivering price updates to onPrice. The
// callback runs on the stream's read goroutine and must not block.
func NewStream(url string, onPrice func(PriceUpdate)) *Stream {
	if url == "" {
		url = DefaultStreamURL
	}
	return &Stream{
		url:     url,
		onPrice: onPrice,
		band:    decimal.NewFromFloat(defaultLiquidBand),
		books:   make(map[string]*Book),
	}
}

// Subscribe adds tokens to the subscription set. Already-subscribed tokens
// are ignored; new ones are announced to the server if connected.
func (s *Stream) Subscribe(assetIDs ...string) {
	s.mu.Lock()
	fresh := make([]string, 0, len(assetIDs))
	for _, id := range assetIDs {
		if _, ok := s.books[id]; ok {
			continue
		}
		s.books[id] = NewBook(id)
		fresh = append(fresh, id)
	}
	conn := s.conn
	s.mu.Unlock()

	if len(fresh) == 0 || conn == nil {
		return
	}
	if err := s.sendSubscribe(conn, fresh); err != nil {
		log.Printf("[STREAM] subscribe failed: %v", err)
	}
}

// Start launches the connect/read loop. It returns immediately; delivery
// begins once the first dial succeeds.
func (s *Stream) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancel = cancel
	s.done = make(chan struct{})
	s.mu.Unlock()

	go s.run(ctx)
}

// Stop closes the connection and halts reconnection.
func (s *Stream) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
}

func (s *Stream) run(ctx context.Context) {
	defer close(s.done)

	var delay time.Duration
	for {
		if ctx.Err() != nil {
			return
		}

		connected, err := s.connectAndRead(ctx)
		delay = nextBackoff(delay, connected)
		if err != nil && ctx.Err() == nil {
			log.Printf("[STREAM] connection lost: %v (retrying in %s)", err, delay)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// nextBackoff doubles the retry delay up to the cap, starting over at the
// minimum whenever a connection was established.
func nextBackoff(delay time.Duration, connected bool) time.Duration {
	if connected || delay < reconnectMinDelay {
		return reconnectMinDelay
	}
	delay *= 2
	if delay > reconnectMaxDelay {
		delay = reconnectMaxDelay
	}
	return delay
}

// connectAndRead reports whether the dial succeeded, so the caller can
// distinguish a dropped session from a failed connection attempt.
func (s *Stream) connectAndRead(ctx context.Context) (bool, error) {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return false, fmt.Errorf("dial %s: %w", s.url, err)
	}
	defer conn.Close()

	s.mu.Lock()
	s.conn = conn
	ids := make([]string, 0, len(s.books))
	for id := range s.books {
		ids = append(ids, id)
	}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.conn = nil
		s.mu.Unlock()
	}()

	if len(ids) > 0 {
		if err := s.sendSubscribe(conn, ids); err != nil {
			return true, err
		}
	}
	log.Printf("[STREAM] connected to %s (%d tokens)", s.url, len(ids))

	// Ping keeps intermediaries from dropping the idle connection.
	pingCtx, stopPing := context.WithCancel(ctx)
	defer stopPing()
	go func() {
		ticker := time.NewTicker(streamPingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-pingCtx.Done():
				return
			case <-ticker.C:
				deadline := time.Now().Add(streamWriteWait)
				if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
					return
				}
			}
		}
	}()

	for {
		if ctx.Err() != nil {
			return true, nil
		}
		conn.SetReadDeadline(time.Now().Add(streamReadWait))
		_, data, err := conn.ReadMessage()
		if err != nil {
			return true, err
		}
		s.handlePayload(data)
	}
}

type subscribeMsg struct {
	Type    string   `json:"type"`
	Channel string   `json:"channel"`
	Assets  []string `json:"assets_ids"`
}

func (s *Stream) sendSubscribe(conn *websocket.Conn, assetIDs []string) error {
	conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
	return conn.WriteJSON(subscribeMsg{Type: "subscribe", Channel: "market", Assets: assetIDs})
}

// streamEvent is the subset of a market channel message we read. Book
// snapshots carry both sides; price_change carries per-level deltas.
type streamEvent struct {
	EventType string `json:"event_type"`
	AssetID   string `json:"asset_id"`
	Bids      []struct {
		Price string `json:"price"`
		Size  string `json:"size"`
	} `json:"bids"`
	Asks []struct {
		Price string `json:"price"`
		Size  string `json:"size"`
	} `json:"asks"`
	Changes []struct {
		Price string `json:"price"`
		Side  string `json:"side"`
		Size  string `json:"size"`
	} `json:"changes"`
}

func (s *Stream) handlePayload(data []byte) {
	// The server batches messages into arrays.
	if len(data) > 0 && data[0] == '[' {
		var batch []json.RawMessage
		if err := json.Unmarshal(data, &batch); err == nil {
			for _, one := range batch {
				s.handleEvent(one)
			}
			return
		}
	}
	s.handleEvent(data)
}

func (s *Stream) handleEvent(data []byte) {
	var ev streamEvent
	if err := json.Unmarshal(data, &ev); err != nil || ev.AssetID == "" {
		return
	}

	s.mu.Lock()
	book := s.books[ev.AssetID]
	s.mu.Unlock()
	if book == nil {
		return
	}

	switch ev.EventType {
	case "book":
		bids := make([]Level, 0, len(ev.Bids))
		for _, l := range ev.Bids {
			if lv, ok := parseLevel(l.Price, l.Size); ok {
				bids = append(bids, lv)
			}
		}
		asks := make([]Level, 0, len(ev.Asks))
		for _, l := range ev.Asks {
			if lv, ok := parseLevel(l.Price, l.Size); ok {
				asks = append(asks, lv)
			}
		}
		book.Replace(bids, asks)

	case "price_change":
		for _, ch := range ev.Changes {
			lv, ok := parseLevel(ch.Price, ch.Size)
			if !ok {
				continue
			}
			if ch.Side == "BUY" {
				book.UpdateBid(lv.Price, lv.Size)
			} else {
				book.UpdateAsk(lv.Price, lv.Size)
			}
		}

	default:
		return
	}

	if s.onPrice == nil {
		return
	}
	mid := book.Mid()
	if mid.IsZero() {
		return
	}
	s.onPrice(PriceUpdate{
		AssetID:   ev.AssetID,
		Mid:       mid,
		Liquidity: book.NearDepth(s.band),
	})
}

func parseLevel(price, size string) (Level, bool) {
	p, err := decimal.NewFromString(price)
	if err != nil {
		return Level{}, false
	}
	sz, err := decimal.NewFromString(size)
	if err != nil {
		return Level{}, false
	}
	return Level{Price: p, Size: sz}, true
}
