package market

import (
	"sort"
	"sync"

	"github.com/shopspring/decimal"
)

// Level is one aggregated price level of a token's order book.
type Level struct {
	Price decimal.Decimal `json:"price"`
	Size  decimal.Decimal `json:"size"`
}

// Book is the L2 order book for one outcome token, maintained from stream
// updates. It exists to answer two questions: what is the token worth now
// (mid), and how much money rests near the touch (liquidity for the risk
// policy).
type Book struct {
	assetID string

	mu   sync.RWMutex
	bids []Level // best first, descending
	asks []Level // best first, ascending
}

// NewBook creates an empty book for a token.
func NewBook(assetID string) *Book {
	return &Book{assetID: assetID}
}

// AssetID returns the token this book tracks.
func (b *Book) AssetID() string { return b.assetID }

// Replace installs a full snapshot of both sides.
func (b *Book) Replace(bids, asks []Level) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.bids = append(b.bids[:0], bids...)
	b.asks = append(b.asks[:0], asks...)
	sort.Slice(b.bids, func(i, j int) bool { return b.bids[i].Price.GreaterThan(b.bids[j].Price) })
	sort.Slice(b.asks, func(i, j int) bool { return b.asks[i].Price.LessThan(b.asks[j].Price) })
}

// UpdateBid sets one bid level; zero size removes it.
func (b *Book) UpdateBid(price, size decimal.Decimal) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bids = updateLevel(b.bids, price, size, func(a, b decimal.Decimal) bool { return a.GreaterThan(b) })
}

// UpdateAsk sets one ask level; zero size removes it.
func (b *Book) UpdateAsk(price, size decimal.Decimal) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.asks = updateLevel(b.asks, price, size, func(a, b decimal.Decimal) bool { return a.LessThan(b) })
}

func updateLevel(levels []Level, price, size decimal.Decimal, better func(a, b decimal.Decimal) bool) []Level {
	idx := -1
	for i := range levels {
		if levels[i].Price.Equal(price) {
			idx = i
			break
		}
	}
	if size.IsZero() {
		if idx >= 0 {
			levels = append(levels[:idx], levels[idx+1:]...)
		}
		return levels
	}
	if idx >= 0 {
		levels[idx].Size = size
		return levels
	}
	insert := sort.Search(len(levels), func(i int) bool { return better(price, levels[i].Price) })
	levels = append(levels, Level{})
	copy(levels[insert+1:], levels[insert:])
	levels[insert] = Level{Price: price, Size: size}
	return levels
}

// Mid returns the midpoint of the best bid and ask, or zero while either
// side is empty.
func (b *Book) Mid() decimal.Decimal {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.bids) == 0 || len(b.asks) == 0 {
		return decimal.Zero
	}
	return b.bids[0].Price.Add(b.asks[0].Price).Div(two)
}

// Spread returns the bid-ask spread, or zero while either side is empty.
func (b *Book) Spread() decimal.Decimal {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.bids) == 0 || len(b.asks) == 0 {
		return decimal.Zero
	}
	return b.asks[0].Price.Sub(b.bids[0].Price)
}

// NearDepth returns the dollar value resting within band of the mid, both
// sides combined. This is the liquidity figure the risk policy compares
// against its floor; the full book total would flatter thin markets with
// far-away resting orders.
func (b *Book) NearDepth(band decimal.Decimal) decimal.Decimal {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.bids) == 0 || len(b.asks) == 0 {
		return decimal.Zero
	}

	mid := b.bids[0].Price.Add(b.asks[0].Price).Div(two)
	lo, hi := mid.Sub(band), mid.Add(band)

	total := decimal.Zero
	for _, l := range b.bids {
		if l.Price.LessThan(lo) {
			break
		}
		total = total.Add(l.Price.Mul(l.Size))
	}
	for _, l := range b.asks {
		if l.Price.GreaterThan(hi) {
			break
		}
		total = total.Add(l.Price.Mul(l.Size))
	}
	return total
}

var two = decimal.NewFromInt(2)
