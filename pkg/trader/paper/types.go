// Package paper simulates trading match-winner outcome shares against a
// virtual account. Shares are bought at the market price and settle at $1
// (outcome happened) or $0 when the match resolves.
package paper

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is a simulated buy of outcome shares.
type Order struct {
	ID        string          `json:"id"`
	MarketID  string          `json:"market_id"`
	Outcome   string          `json:"outcome"` // team name the shares pay out on
	AskPrice  decimal.Decimal `json:"ask_price"`
	FillPrice decimal.Decimal `json:"fill_price"` // ask plus slippage
	Stake     decimal.Decimal `json:"stake"`
	Shares    decimal.Decimal `json:"shares"`
	CreatedAt time.Time       `json:"created_at"`
}

// Position is the accumulated holding in one market.
type Position struct {
	MarketID      string          `json:"market_id"`
	Outcome       string          `json:"outcome"`
	Shares        decimal.Decimal `json:"shares"`
	Stake         decimal.Decimal `json:"stake"` // total spent
	AvgEntry      decimal.Decimal `json:"avg_entry"`
	CurrentPrice  decimal.Decimal `json:"current_price"`
	UnrealizedPnL decimal.Decimal `json:"unrealized_pnl"`
	OpenedAt      time.Time       `json:"opened_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Settlement is the realized result of a position at match end.
type Settlement struct {
	ID       string          `json:"id"`
	MarketID string          `json:"market_id"`
	Outcome  string          `json:"outcome"`
	Won      bool            `json:"won"`
	Shares   decimal.Decimal `json:"shares"`
	Stake    decimal.Decimal `json:"stake"`
	Payout   decimal.Decimal `json:"payout"`
	PnL      decimal.Decimal `json:"pnl"`
	Time     time.Time       `json:"time"`
}

// Account is the simulated bankroll.
type Account struct {
	ID             string               `json:"id"`
	InitialBalance decimal.Decimal      `json:"initial_balance"`
	Balance        decimal.Decimal      `json:"balance"`
	Positions      map[string]*Position `json:"positions"` // marketID -> position
	Settlements    []Settlement         `json:"settlements"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

// Stats summarizes account performance across settled positions.
type Stats struct {
	Balance       decimal.Decimal `json:"balance"`
	Equity        decimal.Decimal `json:"equity"` // balance + open stakes at mark
	RealizedPnL   decimal.Decimal `json:"realized_pnl"`
	UnrealizedPnL decimal.Decimal `json:"unrealized_pnl"`
	TotalStaked   decimal.Decimal `json:"total_staked"`
	Settled       int             `json:"settled"`
	Wins          int             `json:"wins"`
	Losses        int             `json:"losses"`
	WinRate       decimal.Decimal `json:"win_rate"`
	AvgWin        decimal.Decimal `json:"avg_win"`
	AvgLoss       decimal.Decimal `json:"avg_loss"`
	LargestWin    decimal.Decimal `json:"largest_win"`
	LargestLoss   decimal.Decimal `json:"largest_loss"`
	ROI           decimal.Decimal `json:"roi"` // realized pnl over total staked
	OpenPositions int             `json:"open_positions"`
}

// Config tunes the simulation.
type Config struct {
	InitialBalance decimal.Decimal `json:"initial_balance"`
	SlippageBps    decimal.Decimal `json:"slippage_bps"` // applied to every fill
}

// DefaultConfig returns a $10k account with 20 bps of slippage.
func DefaultConfig() *Config {
	return &Config{
		InitialBalance: decimal.NewFromInt(10000),
		SlippageBps:    decimal.NewFromInt(20),
	}
}
