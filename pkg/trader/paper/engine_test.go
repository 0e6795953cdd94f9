package paper

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func noSlippage(balance int64) *Config {
	return &Config{
		InitialBalance: decimal.NewFromInt(balance),
		SlippageBps:    decimal.Zero,
	}
}

func TestBuyAndSettleWin(t *testing.T) {
	e := NewEngine(noSlippage(1000))

	o, err := e.Buy("mk1", "T1", decimal.NewFromFloat(0.5), decimal.NewFromInt(100))
	if err != nil {
		t.Fatalf("buy: %v", err)
	}
	if !o.Shares.Equal(decimal.NewFromInt(200)) {
		t.Errorf("shares: got %s want 200", o.Shares)
	}
	if !e.Balance().Equal(decimal.NewFromInt(900)) {
		t.Errorf("balance after buy: got %s want 900", e.Balance())
	}

	s, err := e.SettleMatch("mk1", true)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if !s.Payout.Equal(decimal.NewFromInt(200)) {
		t.Errorf("payout: got %s want 200", s.Payout)
	}
	if !s.PnL.Equal(decimal.NewFromInt(100)) {
		t.Errorf("pnl: got %s want 100", s.PnL)
	}
	if !e.Balance().Equal(decimal.NewFromInt(1100)) {
		t.Errorf("balance after win: got %s want 1100", e.Balance())
	}
	if _, ok := e.Position("mk1"); ok {
		t.Error("position should be closed after settlement")
	}
}

func TestSettleLossPaysNothing(t *testing.T) {
	e := NewEngine(noSlippage(1000))
	if _, err := e.Buy("mk1", "T1", decimal.NewFromFloat(0.5), decimal.NewFromInt(100)); err != nil {
		t.Fatalf("buy: %v", err)
	}
	s, err := e.SettleMatch("mk1", false)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if !s.Payout.IsZero() {
		t.Errorf("losing payout: got %s want 0", s.Payout)
	}
	if !s.PnL.Equal(decimal.NewFromInt(-100)) {
		t.Errorf("pnl: got %s want -100", s.PnL)
	}
	if !e.Balance().Equal(decimal.NewFromInt(900)) {
		t.Errorf("balance after loss: got %s want 900", e.Balance())
	}
}

func TestSlippageRaisesFillPrice(t *testing.T) {
	e := NewEngine(&Config{
		InitialBalance: decimal.NewFromInt(1000),
		SlippageBps:    decimal.NewFromInt(20),
	})
	o, err := e.Buy("mk1", "T1", decimal.NewFromFloat(0.5), decimal.NewFromInt(100))
	if err != nil {
		t.Fatalf("buy: %v", err)
	}
	if !o.FillPrice.Equal(decimal.NewFromFloat(0.501)) {
		t.Errorf("fill price: got %s want 0.501", o.FillPrice)
	}
	if !o.Shares.LessThan(decimal.NewFromInt(200)) {
		t.Errorf("slippage should reduce shares below 200, got %s", o.Shares)
	}
}

func TestAddingAveragesEntry(t *testing.T) {
	e := NewEngine(noSlippage(1000))
	if _, err := e.Buy("mk1", "T1", decimal.NewFromFloat(0.5), decimal.NewFromInt(100)); err != nil {
		t.Fatalf("first buy: %v", err)
	}
	if _, err := e.Buy("mk1", "T1", decimal.NewFromFloat(0.6), decimal.NewFromInt(60)); err != nil {
		t.Fatalf("second buy: %v", err)
	}

	pos, ok := e.Position("mk1")
	if !ok {
		t.Fatal("position missing")
	}
	if !pos.Shares.Equal(decimal.NewFromInt(300)) {
		t.Errorf("shares: got %s want 300", pos.Shares)
	}
	if !pos.Stake.Equal(decimal.NewFromInt(160)) {
		t.Errorf("stake: got %s want 160", pos.Stake)
	}
	// 160 / 300 rounded to 6 places.
	if !pos.AvgEntry.Equal(decimal.NewFromFloat(0.533333)) {
		t.Errorf("avg entry: got %s want 0.533333", pos.AvgEntry)
	}
}

func TestOppositeOutcomeRejected(t *testing.T) {
	e := NewEngine(noSlippage(1000))
	if _, err := e.Buy("mk1", "T1", decimal.NewFromFloat(0.5), decimal.NewFromInt(50)); err != nil {
		t.Fatalf("buy: %v", err)
	}
	if _, err := e.Buy("mk1", "G2", decimal.NewFromFloat(0.5), decimal.NewFromInt(50)); err == nil {
		t.Error("expected rejection when buying the other outcome in the same market")
	}
}

func TestInsufficientBalance(t *testing.T) {
	e := NewEngine(noSlippage(50))
	_, err := e.Buy("mk1", "T1", decimal.NewFromFloat(0.5), decimal.NewFromInt(100))
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Errorf("expected ErrInsufficientBalance, got %v", err)
	}
}

func TestSettleUnknownMarket(t *testing.T) {
	e := NewEngine(noSlippage(1000))
	if _, err := e.SettleMatch("nope", true); !errors.Is(err, ErrNoPosition) {
		t.Errorf("expected ErrNoPosition, got %v", err)
	}
}

func TestMarkPriceUpdatesUnrealized(t *testing.T) {
	e := NewEngine(noSlippage(1000))
	if _, err := e.Buy("mk1", "T1", decimal.NewFromFloat(0.5), decimal.NewFromInt(100)); err != nil {
		t.Fatalf("buy: %v", err)
	}
	e.MarkPrice("mk1", decimal.NewFromFloat(0.6))

	pos, _ := e.Position("mk1")
	if !pos.UnrealizedPnL.Equal(decimal.NewFromInt(20)) {
		t.Errorf("unrealized: got %s want 20", pos.UnrealizedPnL)
	}
}

func TestStats(t *testing.T) {
	e := NewEngine(noSlippage(1000))

	e.Buy("mk1", "T1", decimal.NewFromFloat(0.5), decimal.NewFromInt(100))
	e.SettleMatch("mk1", true) // +100
	e.Buy("mk2", "G2", decimal.NewFromFloat(0.5), decimal.NewFromInt(50))
	e.SettleMatch("mk2", false) // -50

	st := e.ComputeStats()
	if st.Settled != 2 || st.Wins != 1 || st.Losses != 1 {
		t.Errorf("counts: settled=%d wins=%d losses=%d", st.Settled, st.Wins, st.Losses)
	}
	if !st.RealizedPnL.Equal(decimal.NewFromInt(50)) {
		t.Errorf("realized: got %s want 50", st.RealizedPnL)
	}
	if !st.WinRate.Equal(decimal.NewFromFloat(0.5)) {
		t.Errorf("win rate: got %s want 0.5", st.WinRate)
	}
	if !st.AvgWin.Equal(decimal.NewFromInt(100)) {
		t.Errorf("avg win: got %s want 100", st.AvgWin)
	}
	if !st.AvgLoss.Equal(decimal.NewFromInt(50)) {
		t.Errorf("avg loss: got %s want 50", st.AvgLoss)
	}
	if !st.Balance.Equal(decimal.NewFromInt(1050)) {
		t.Errorf("balance: got %s want 1050", st.Balance)
	}
}

func TestSettlementCallback(t *testing.T) {
	e := NewEngine(noSlippage(1000))
	var got *Settlement
	e.OnSettlement(func(s *Settlement) { got = s })

	e.Buy("mk1", "T1", decimal.NewFromFloat(0.25), decimal.NewFromInt(25))
	e.SettleMatch("mk1", true)

	if got == nil {
		t.Fatal("settlement callback not invoked")
	}
	if !got.Payout.Equal(decimal.NewFromInt(100)) {
		t.Errorf("callback payout: got %s want 100", got.Payout)
	}
}

func TestReset(t *testing.T) {
	e := NewEngine(noSlippage(1000))
	e.Buy("mk1", "T1", decimal.NewFromFloat(0.5), decimal.NewFromInt(100))
	e.Reset()

	if !e.Balance().Equal(decimal.NewFromInt(1000)) {
		t.Errorf("balance after reset: got %s", e.Balance())
	}
	if len(e.Positions()) != 0 {
		t.Error("positions should be empty after reset")
	}
}
