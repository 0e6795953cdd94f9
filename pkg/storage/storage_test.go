package storage

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *Storage {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedMatch(t *testing.T, s *Storage, id string) {
	t.Helper()
	err := s.UpsertMatch(&MatchRecord{
		MatchID:   id,
		Title:     "lol",
		Team1Name: "T1",
		Team2Name: "G2",
		BestOf:    5,
		StartedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("upsert match: %v", err)
	}
}

func TestMatchRoundTrip(t *testing.T) {
	s := openTestDB(t)
	seedMatch(t, s, "m1")

	m, err := s.GetMatch("m1")
	if err != nil {
		t.Fatalf("get match: %v", err)
	}
	if m.Team1Name != "T1" || m.BestOf != 5 {
		t.Errorf("match fields: %+v", m)
	}
	if m.Winner != 0 || !m.EndedAt.IsZero() {
		t.Errorf("new match should be undecided: winner=%d ended=%v", m.Winner, m.EndedAt)
	}
}

func TestGetMatchNotFound(t *testing.T) {
	s := openTestDB(t)
	if _, err := s.GetMatch("missing"); err == nil {
		t.Error("expected error for unknown match")
	}
}

func TestUpsertIsIdempotent(t *testing.T) {
	s := openTestDB(t)
	seedMatch(t, s, "m1")
	seedMatch(t, s, "m1")

	matches, err := s.RecentMatches(10)
	if err != nil {
		t.Fatalf("recent matches: %v", err)
	}
	if len(matches) != 1 {
		t.Errorf("matches: got %d want 1", len(matches))
	}
}

func TestFinishMatch(t *testing.T) {
	s := openTestDB(t)
	seedMatch(t, s, "m1")

	if err := s.FinishMatch("m1", 2, 4, -12.5); err != nil {
		t.Fatalf("finish: %v", err)
	}
	m, err := s.GetMatch("m1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if m.Winner != 2 || m.TotalTrades != 4 || m.TotalPnL != -12.5 {
		t.Errorf("finished match: %+v", m)
	}
	if m.EndedAt.IsZero() {
		t.Error("ended_at should be set")
	}

	if err := s.FinishMatch("missing", 1, 0, 0); err == nil {
		t.Error("expected error finishing unknown match")
	}
}

func TestSnapshotsAndEvents(t *testing.T) {
	s := openTestDB(t)
	seedMatch(t, s, "m1")

	for i, prob := range []float64{0.5, 0.56, 0.61} {
		err := s.AddSnapshot(&SnapshotRecord{
			MatchID:       "m1",
			GameNumber:    1,
			GameMinutes:   float64(i * 5),
			GameWinProb:   prob,
			SeriesWinProb: prob,
			Confidence:    0.7,
		})
		if err != nil {
			t.Fatalf("add snapshot: %v", err)
		}
	}
	err := s.AddEvent(&EventRecord{
		MatchID:     "m1",
		GameNumber:  1,
		GameMinutes: 8,
		EventType:   "dragon",
		Team:        1,
		Context:     "default",
		Impact:      0.013,
		ProbBefore:  0.5,
		ProbAfter:   0.56,
	})
	if err != nil {
		t.Fatalf("add event: %v", err)
	}

	snaps, err := s.SnapshotsByMatch("m1")
	if err != nil {
		t.Fatalf("snapshots: %v", err)
	}
	if len(snaps) != 3 {
		t.Fatalf("snapshots: got %d want 3", len(snaps))
	}
	if snaps[2].GameWinProb != 0.61 {
		t.Errorf("last snapshot prob: got %f", snaps[2].GameWinProb)
	}

	events, err := s.EventsByMatch("m1")
	if err != nil {
		t.Fatalf("events: %v", err)
	}
	if len(events) != 1 || events[0].EventType != "dragon" {
		t.Errorf("events: %+v", events)
	}
}

func TestTradesAndSettlement(t *testing.T) {
	s := openTestDB(t)
	seedMatch(t, s, "m1")

	for i, stake := range []float64{30, 10} {
		err := s.AddTrade(&TradeRecord{
			TradeID:   "t" + string(rune('1'+i)),
			MatchID:   "m1",
			MarketID:  "mk1",
			Outcome:   "T1",
			Stake:     stake,
			Price:     0.5,
			Shares:    stake * 2,
			FairPrice: 0.56,
			Edge:      0.06,
		})
		if err != nil {
			t.Fatalf("add trade: %v", err)
		}
	}

	trades, err := s.TradesByMatch("m1")
	if err != nil {
		t.Fatalf("trades: %v", err)
	}
	if len(trades) != 2 {
		t.Fatalf("trades: got %d want 2", len(trades))
	}
	if trades[0].PnL.Valid {
		t.Error("pnl should be null before settlement")
	}

	// Total pnl 40 apportioned by stake: 30 and 10.
	if err := s.SettleTrades("m1", 40); err != nil {
		t.Fatalf("settle: %v", err)
	}
	trades, err = s.TradesByMatch("m1")
	if err != nil {
		t.Fatalf("trades after settle: %v", err)
	}
	if !trades[0].PnL.Valid || trades[0].PnL.Float64 != 30 {
		t.Errorf("trade 1 pnl: %+v", trades[0].PnL)
	}
	if !trades[1].PnL.Valid || trades[1].PnL.Float64 != 10 {
		t.Errorf("trade 2 pnl: %+v", trades[1].PnL)
	}

	st, err := s.Stats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.TotalTrades != 2 || st.SettledTrades != 2 || st.WinningTrades != 2 {
		t.Errorf("stats: %+v", st)
	}
	if st.TotalPnL != 40 {
		t.Errorf("total pnl: got %f want 40", st.TotalPnL)
	}
}

func TestPnLByDay(t *testing.T) {
	s := openTestDB(t)
	seedMatch(t, s, "m1")
	seedMatch(t, s, "m2")

	day1 := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
	day2 := day1.Add(24 * time.Hour)
	addTradeAt(t, s, "t1", "m1", 30, day1)
	addTradeAt(t, s, "t2", "m1", 10, day1.Add(time.Hour))
	addTradeAt(t, s, "t3", "m2", 20, day2)

	if err := s.SettleTrades("m1", 40); err != nil {
		t.Fatalf("settle m1: %v", err)
	}
	if err := s.SettleTrades("m2", -20); err != nil {
		t.Fatalf("settle m2: %v", err)
	}

	daily, err := s.PnLByDay(30)
	if err != nil {
		t.Fatalf("pnl by day: %v", err)
	}
	if len(daily) != 2 {
		t.Fatalf("days: got %d want 2", len(daily))
	}
	if daily[0].Day != "2026-03-02" || daily[0].Trades != 1 || daily[0].PnL != -20 {
		t.Errorf("newest day: %+v", daily[0])
	}
	if daily[1].Day != "2026-03-01" || daily[1].Trades != 2 || daily[1].PnL != 40 {
		t.Errorf("older day: %+v", daily[1])
	}
}

func TestPnLByDaySkipsUnsettled(t *testing.T) {
	s := openTestDB(t)
	seedMatch(t, s, "m1")
	addTradeAt(t, s, "t1", "m1", 30, time.Now())

	daily, err := s.PnLByDay(30)
	if err != nil {
		t.Fatalf("pnl by day: %v", err)
	}
	if len(daily) != 0 {
		t.Errorf("unsettled trades should not appear: %+v", daily)
	}
}

func addTradeAt(t *testing.T, s *Storage, id, matchID string, stake float64, at time.Time) {
	t.Helper()
	err := s.AddTrade(&TradeRecord{
		TradeID:  id,
		MatchID:  matchID,
		MarketID: "mk-" + matchID,
		Outcome:  "T1",
		Stake:    stake,
		Price:    0.5,
		Shares:   stake * 2,
		Time:     at,
	})
	if err != nil {
		t.Fatalf("add trade %s: %v", id, err)
	}
}

func TestSettleWithNoTrades(t *testing.T) {
	s := openTestDB(t)
	seedMatch(t, s, "m1")
	if err := s.SettleTrades("m1", 10); err != nil {
		t.Errorf("settling a match without trades should be a no-op: %v", err)
	}
}
