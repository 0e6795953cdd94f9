package paper

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrInsufficientBalance means the stake exceeds the free balance.
	ErrInsufficientBalance = fmt.Errorf("insufficient balance")
	// ErrNoPosition means there is nothing to settle in that market.
	ErrNoPosition = fmt.Errorf("no position in market")
)

var one = decimal.NewFromInt(1)

// Engine is the paper trading engine. Safe for concurrent use.
type Engine struct {
	config  *Config
	mu      sync.RWMutex
	account *Account
	seq     int64

	onOrder      func(*Order)
	onSettlement func(*Settlement)
}

// NewEngine creates an engine with a fresh account.
func NewEngine(config *Config) *Engine {
	if config == nil {
		config = DefaultConfig()
	}
	return &Engine{
		config:  config,
		account: newAccount(config.InitialBalance),
	}
}

func newAccount(balance decimal.Decimal) *Account {
	now := time.Now()
	return &Account{
		ID:             uuid.New().String(),
		InitialBalance: balance,
		Balance:        balance,
		Positions:      make(map[string]*Position),
		Settlements:    make([]Settlement, 0),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// OnOrder sets a callback invoked after every fill.
func (e *Engine) OnOrder(fn func(*Order)) { e.onOrder = fn }

// OnSettlement sets a callback invoked after every settlement.
func (e *Engine) OnSettlement(fn func(*Settlement)) { e.onSettlement = fn }

// Buy stakes the given amount on an outcome at the market price. The fill
// price includes slippage, so the share count is slightly below stake/price.
func (e *Engine) Buy(marketID, outcome string, price, stake decimal.Decimal) (*Order, error) {
	if stake.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("stake must be positive, got %s", stake)
	}
	if price.LessThanOrEqual(decimal.Zero) || price.GreaterThanOrEqual(one) {
		return nil, fmt.Errorf("price %s outside (0, 1)", price)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if stake.GreaterThan(e.account.Balance) {
		return nil, fmt.Errorf("%w: have %s, need %s", ErrInsufficientBalance, e.account.Balance, stake)
	}
	if pos, ok := e.account.Positions[marketID]; ok && pos.Outcome != outcome {
		return nil, fmt.Errorf("market %s already holds %q, cannot also buy %q", marketID, pos.Outcome, outcome)
	}

	fillPrice := e.withSlippage(price)
	if fillPrice.GreaterThanOrEqual(one) {
		fillPrice = price
	}
	shares := stake.Div(fillPrice).Round(4)

	e.seq++
	order := &Order{
		ID:        fmt.Sprintf("paper-%d", e.seq),
		MarketID:  marketID,
		Outcome:   outcome,
		AskPrice:  price,
		FillPrice: fillPrice,
		Stake:     stake,
		Shares:    shares,
		CreatedAt: time.Now(),
	}

	e.account.Balance = e.account.Balance.Sub(stake)
	e.applyFill(order)
	e.account.UpdatedAt = time.Now()

	if e.onOrder != nil {
		e.onOrder(order)
	}
	return order, nil
}

func (e *Engine) withSlippage(price decimal.Decimal) decimal.Decimal {
	if e.config.SlippageBps.IsZero() {
		return price
	}
	return price.Add(price.Mul(e.config.SlippageBps).Div(decimal.NewFromInt(10000)))
}

func (e *Engine) applyFill(o *Order) {
	pos, ok := e.account.Positions[o.MarketID]
	if !ok {
		e.account.Positions[o.MarketID] = &Position{
			MarketID:     o.MarketID,
			Outcome:      o.Outcome,
			Shares:       o.Shares,
			Stake:        o.Stake,
			AvgEntry:     o.FillPrice,
			CurrentPrice: o.FillPrice,
			OpenedAt:     o.CreatedAt,
			UpdatedAt:    o.CreatedAt,
		}
		return
	}
	pos.Stake = pos.Stake.Add(o.Stake)
	pos.Shares = pos.Shares.Add(o.Shares)
	pos.AvgEntry = pos.Stake.Div(pos.Shares).Round(6)
	pos.CurrentPrice = o.FillPrice
	pos.UpdatedAt = o.CreatedAt
}

// MarkPrice updates a position's mark and unrealized P&L from the latest
// market price. Unknown markets are ignored.
func (e *Engine) MarkPrice(marketID string, price decimal.Decimal) {
	e.mu.Lock()
	defer e.mu.Unlock()

	pos, ok := e.account.Positions[marketID]
	if !ok {
		return
	}
	pos.CurrentPrice = price
	pos.UnrealizedPnL = price.Mul(pos.Shares).Sub(pos.Stake)
	pos.UpdatedAt = time.Now()
}

// SettleMatch resolves the position in a market: each share pays $1 when the
// held outcome won, $0 otherwise.
func (e *Engine) SettleMatch(marketID string, won bool) (*Settlement, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	pos, ok := e.account.Positions[marketID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoPosition, marketID)
	}
	delete(e.account.Positions, marketID)

	payout := decimal.Zero
	if won {
		payout = pos.Shares
	}

	e.seq++
	s := Settlement{
		ID:       fmt.Sprintf("settle-%d", e.seq),
		MarketID: marketID,
		Outcome:  pos.Outcome,
		Won:      won,
		Shares:   pos.Shares,
		Stake:    pos.Stake,
		Payout:   payout,
		PnL:      payout.Sub(pos.Stake),
		Time:     time.Now(),
	}

	e.account.Balance = e.account.Balance.Add(payout)
	e.account.Settlements = append(e.account.Settlements, s)
	e.account.UpdatedAt = s.Time

	if e.onSettlement != nil {
		e.onSettlement(&s)
	}
	return &s, nil
}

// Balance returns the free balance.
func (e *Engine) Balance() decimal.Decimal {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.account.Balance
}

// Position returns the open position in a market, if any.
func (e *Engine) Position(marketID string) (*Position, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	pos, ok := e.account.Positions[marketID]
	if !ok {
		return nil, false
	}
	cp := *pos
	return &cp, true
}

// Positions returns copies of all open positions.
func (e *Engine) Positions() []*Position {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]*Position, 0, len(e.account.Positions))
	for _, pos := range e.account.Positions {
		cp := *pos
		out = append(out, &cp)
	}
	return out
}

// Account returns a shallow copy of the account.
func (e *Engine) Account() *Account {
	e.mu.RLock()
	defer e.mu.RUnlock()
	acc := *e.account
	return &acc
}

// ComputeStats summarizes realized and open performance.
func (e *Engine) ComputeStats() *Stats {
	e.mu.RLock()
	defer e.mu.RUnlock()

	st := &Stats{
		Balance:       e.account.Balance,
		OpenPositions: len(e.account.Positions),
	}

	var totalWins, totalLosses decimal.Decimal
	for _, s := range e.account.Settlements {
		st.Settled++
		st.TotalStaked = st.TotalStaked.Add(s.Stake)
		st.RealizedPnL = st.RealizedPnL.Add(s.PnL)
		if s.Won {
			st.Wins++
			totalWins = totalWins.Add(s.PnL)
			if s.PnL.GreaterThan(st.LargestWin) {
				st.LargestWin = s.PnL
			}
		} else {
			st.Losses++
			totalLosses = totalLosses.Add(s.PnL.Abs())
			if s.PnL.Abs().GreaterThan(st.LargestLoss) {
				st.LargestLoss = s.PnL.Abs()
			}
		}
	}

	openValue := decimal.Zero
	for _, pos := range e.account.Positions {
		st.TotalStaked = st.TotalStaked.Add(pos.Stake)
		st.UnrealizedPnL = st.UnrealizedPnL.Add(pos.UnrealizedPnL)
		openValue = openValue.Add(pos.Stake).Add(pos.UnrealizedPnL)
	}
	st.Equity = e.account.Balance.Add(openValue)

	if st.Settled > 0 {
		st.WinRate = decimal.NewFromInt(int64(st.Wins)).Div(decimal.NewFromInt(int64(st.Settled)))
	}
	if st.Wins > 0 {
		st.AvgWin = totalWins.Div(decimal.NewFromInt(int64(st.Wins)))
	}
	if st.Losses > 0 {
		st.AvgLoss = totalLosses.Div(decimal.NewFromInt(int64(st.Losses)))
	}
	if settledStake := st.TotalStaked; settledStake.GreaterThan(decimal.Zero) {
		st.ROI = st.RealizedPnL.Div(settledStake)
	}
	return st
}

// Reset replaces the account with a fresh one.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.account = newAccount(e.config.InitialBalance)
	e.seq = 0
}
