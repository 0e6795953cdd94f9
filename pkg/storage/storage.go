// Package storage provides SQLite-backed persistence for matches, model
// snapshots, game events, and trades.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Storage wraps a SQLite database for all persistence operations.
type Storage struct {
	db *sql.DB
}

// MatchRecord is one tracked match.
type MatchRecord struct {
	MatchID         string
	Title           string
	Team1Name       string
	Team2Name       string
	BestOf          int
	Winner          int // 0 until decided
	DurationMinutes float64
	TotalTrades     int
	TotalPnL        float64
	StartedAt       time.Time
	EndedAt         time.Time // zero until decided
}

// SnapshotRecord is one model output sample for a match.
type SnapshotRecord struct {
	MatchID       string
	GameNumber    int
	GameMinutes   float64
	GameWinProb   float64
	SeriesWinProb float64
	Confidence    float64
	Momentum      float64
	MarketPrice   float64 // 0 when no market matched
	Time          time.Time
}

// EventRecord is one processed game event with the probability move it caused.
type EventRecord struct {
	MatchID     string
	GameNumber  int
	GameMinutes float64
	EventType   string
	Team        int
	Context     string
	Impact      float64
	ProbBefore  float64
	ProbAfter   float64
	Time        time.Time
}

// TradeRecord is one paper trade, updated with P&L at settlement.
type TradeRecord struct {
	TradeID   string
	MatchID   string
	MarketID  string
	Outcome   string
	Stake     float64
	Price     float64
	Shares    float64
	FairPrice float64
	Edge      float64
	PnL       sql.NullFloat64 // null until settled
	Time      time.Time
}

// New opens or creates the SQLite database at dbPath. An empty path defaults
// to $TMPDIR/esports-edge/data.db.
func New(dbPath string) (*Storage, error) {
	if dbPath == "" {
		dbPath = filepath.Join(os.TempDir(), "esports-edge", "data.db")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer; WAL allows concurrent readers
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys=ON`); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	s := &Storage{db: db}
	if err := s.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) createTables() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS matches (
			match_id         TEXT PRIMARY KEY,
			title            TEXT NOT NULL,
			team1_name       TEXT NOT NULL,
			team2_name       TEXT NOT NULL,
			best_of          INTEGER NOT NULL,
			winner           INTEGER NOT NULL DEFAULT 0,
			duration_minutes REAL NOT NULL DEFAULT 0,
			total_trades     INTEGER NOT NULL DEFAULT 0,
			total_pnl        REAL NOT NULL DEFAULT 0,
			started_at       INTEGER NOT NULL,
			ended_at         INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			match_id        TEXT NOT NULL REFERENCES matches(match_id) ON DELETE CASCADE,
			game_number     INTEGER NOT NULL,
			game_minutes    REAL NOT NULL,
			game_win_prob   REAL NOT NULL,
			series_win_prob REAL NOT NULL,
			confidence      REAL NOT NULL,
			momentum        REAL NOT NULL,
			market_price    REAL NOT NULL DEFAULT 0,
			time            INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS events (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			match_id     TEXT NOT NULL REFERENCES matches(match_id) ON DELETE CASCADE,
			game_number  INTEGER NOT NULL,
			game_minutes REAL NOT NULL,
			event_type   TEXT NOT NULL,
			team         INTEGER NOT NULL,
			context      TEXT NOT NULL,
			impact       REAL NOT NULL,
			prob_before  REAL NOT NULL,
			prob_after   REAL NOT NULL,
			time         INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS trades (
			trade_id   TEXT PRIMARY KEY,
			match_id   TEXT NOT NULL REFERENCES matches(match_id) ON DELETE CASCADE,
			market_id  TEXT NOT NULL,
			outcome    TEXT NOT NULL,
			stake      REAL NOT NULL,
			price      REAL NOT NULL,
			shares     REAL NOT NULL,
			fair_price REAL NOT NULL,
			edge       REAL NOT NULL,
			pnl        REAL,
			time       INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_snapshots_match ON snapshots(match_id)`,
		`CREATE INDEX IF NOT EXISTS idx_events_match ON events(match_id)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_match ON trades(match_id)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_time ON trades(time)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// UpsertMatch inserts or refreshes a match row.
func (s *Storage) UpsertMatch(m *MatchRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO matches
			(match_id, title, team1_name, team2_name, best_of, winner,
			 duration_minutes, total_trades, total_pnl, started_at, ended_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(match_id) DO UPDATE SET
			winner=excluded.winner,
			duration_minutes=excluded.duration_minutes,
			total_trades=excluded.total_trades,
			total_pnl=excluded.total_pnl,
			ended_at=excluded.ended_at`,
		m.MatchID, m.Title, m.Team1Name, m.Team2Name, m.BestOf, m.Winner,
		m.DurationMinutes, m.TotalTrades, m.TotalPnL,
		m.StartedAt.UnixNano(), nanoOrZero(m.EndedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert match: %w", err)
	}
	return nil
}

// FinishMatch records the final outcome of a match.
func (s *Storage) FinishMatch(matchID string, winner int, totalTrades int, totalPnL float64) error {
	res, err := s.db.Exec(`
		UPDATE matches
		SET winner=?, total_trades=?, total_pnl=?, ended_at=?
		WHERE match_id=?`,
		winner, totalTrades, totalPnL, time.Now().UnixNano(), matchID,
	)
	if err != nil {
		return fmt.Errorf("failed to finish match: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("match not found: %s", matchID)
	}
	return nil
}

// GetMatch returns one match by ID.
func (s *Storage) GetMatch(matchID string) (*MatchRecord, error) {
	row := s.db.QueryRow(`
		SELECT match_id, title, team1_name, team2_name, best_of, winner,
		       duration_minutes, total_trades, total_pnl, started_at, ended_at
		FROM matches WHERE match_id = ?`, matchID)

	var m MatchRecord
	var startedNano, endedNano int64
	err := row.Scan(
		&m.MatchID, &m.Title, &m.Team1Name, &m.Team2Name, &m.BestOf, &m.Winner,
		&m.DurationMinutes, &m.TotalTrades, &m.TotalPnL, &startedNano, &endedNano,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("match not found: %s", matchID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	m.StartedAt = time.Unix(0, startedNano)
	if endedNano != 0 {
		m.EndedAt = time.Unix(0, endedNano)
	}
	return &m, nil
}

// RecentMatches returns the newest matches by start time.
func (s *Storage) RecentMatches(limit int) ([]*MatchRecord, error) {
	rows, err := s.db.Query(`
		SELECT match_id, title, team1_name, team2_name, best_of, winner,
		       duration_minutes, total_trades, total_pnl, started_at, ended_at
		FROM matches ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer rows.Close()

	matches := []*MatchRecord{}
	for rows.Next() {
		var m MatchRecord
		var startedNano, endedNano int64
		err := rows.Scan(
			&m.MatchID, &m.Title, &m.Team1Name, &m.Team2Name, &m.BestOf, &m.Winner,
			&m.DurationMinutes, &m.TotalTrades, &m.TotalPnL, &startedNano, &endedNano,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		m.StartedAt = time.Unix(0, startedNano)
		if endedNano != 0 {
			m.EndedAt = time.Unix(0, endedNano)
		}
		matches = append(matches, &m)
	}
	return matches, rows.Err()
}

// AddSnapshot appends one model snapshot.
func (s *Storage) AddSnapshot(sn *SnapshotRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO snapshots
			(match_id, game_number, game_minutes, game_win_prob, series_win_prob,
			 confidence, momentum, market_price, time)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		sn.MatchID, sn.GameNumber, sn.GameMinutes, sn.GameWinProb, sn.SeriesWinProb,
		sn.Confidence, sn.Momentum, sn.MarketPrice, timeOrNow(sn.Time).UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}
	return nil
}

// SnapshotsByMatch returns a match's snapshots in game order.
func (s *Storage) SnapshotsByMatch(matchID string) ([]SnapshotRecord, error) {
	rows, err := s.db.Query(`
		SELECT match_id, game_number, game_minutes, game_win_prob, series_win_prob,
		       confidence, momentum, market_price, time
		FROM snapshots WHERE match_id = ?
		ORDER BY game_number, game_minutes`, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var out []SnapshotRecord
	for rows.Next() {
		var sn SnapshotRecord
		var nano int64
		err := rows.Scan(
			&sn.MatchID, &sn.GameNumber, &sn.GameMinutes, &sn.GameWinProb, &sn.SeriesWinProb,
			&sn.Confidence, &sn.Momentum, &sn.MarketPrice, &nano,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		sn.Time = time.Unix(0, nano)
		out = append(out, sn)
	}
	return out, rows.Err()
}

// AddEvent appends one processed game event.
func (s *Storage) AddEvent(ev *EventRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO events
			(match_id, game_number, game_minutes, event_type, team, context,
			 impact, prob_before, prob_after, time)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		ev.MatchID, ev.GameNumber, ev.GameMinutes, ev.EventType, ev.Team, ev.Context,
		ev.Impact, ev.ProbBefore, ev.ProbAfter, timeOrNow(ev.Time).UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// EventsByMatch returns a match's events in game order.
func (s *Storage) EventsByMatch(matchID string) ([]EventRecord, error) {
	rows, err := s.db.Query(`
		SELECT match_id, game_number, game_minutes, event_type, team, context,
		       impact, prob_before, prob_after, time
		FROM events WHERE match_id = ?
		ORDER BY game_number, game_minutes`, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var out []EventRecord
	for rows.Next() {
		var ev EventRecord
		var nano int64
		err := rows.Scan(
			&ev.MatchID, &ev.GameNumber, &ev.GameMinutes, &ev.EventType, &ev.Team, &ev.Context,
			&ev.Impact, &ev.ProbBefore, &ev.ProbAfter, &nano,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		ev.Time = time.Unix(0, nano)
		out = append(out, ev)
	}
	return out, rows.Err()
}

// AddTrade records a placed trade with a null P&L.
func (s *Storage) AddTrade(t *TradeRecord) error {
	_, err := s.db.Exec(`
		INSERT INTO trades
			(trade_id, match_id, market_id, outcome, stake, price, shares,
			 fair_price, edge, pnl, time)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		t.TradeID, t.MatchID, t.MarketID, t.Outcome, t.Stake, t.Price, t.Shares,
		t.FairPrice, t.Edge, t.PnL, timeOrNow(t.Time).UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert trade: %w", err)
	}
	return nil
}

// SettleTrades fills in the realized P&L for all of a match's trades. The
// total is apportioned by stake.
func (s *Storage) SettleTrades(matchID string, totalPnL float64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var totalStake float64
	if err := tx.QueryRow(`SELECT COALESCE(SUM(stake), 0) FROM trades WHERE match_id = ?`, matchID).Scan(&totalStake); err != nil {
		return fmt.Errorf("failed to sum stakes: %w", err)
	}
	if totalStake == 0 {
		return tx.Commit()
	}
	if _, err := tx.Exec(`UPDATE trades SET pnl = stake / ? * ? WHERE match_id = ?`,
		totalStake, totalPnL, matchID); err != nil {
		return fmt.Errorf("failed to settle trades: %w", err)
	}
	return tx.Commit()
}

// TradesByMatch returns a match's trades in time order.
func (s *Storage) TradesByMatch(matchID string) ([]TradeRecord, error) {
	return s.queryTrades(`SELECT `+tradeCols+` FROM trades WHERE match_id = ? ORDER BY time, trade_id`, matchID)
}

// RecentTrades returns the newest trades.
func (s *Storage) RecentTrades(limit int) ([]TradeRecord, error) {
	return s.queryTrades(`SELECT `+tradeCols+` FROM trades ORDER BY time DESC LIMIT ?`, limit)
}

const tradeCols = `trade_id, match_id, market_id, outcome, stake, price, shares,
	fair_price, edge, pnl, time`

func (s *Storage) queryTrades(query string, args ...any) ([]TradeRecord, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		var t TradeRecord
		var nano int64
		err := rows.Scan(
			&t.TradeID, &t.MatchID, &t.MarketID, &t.Outcome, &t.Stake, &t.Price, &t.Shares,
			&t.FairPrice, &t.Edge, &t.PnL, &nano,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		t.Time = time.Unix(0, nano)
		out = append(out, t)
	}
	return out, rows.Err()
}

// TradeStats is an aggregate over settled trades.
type TradeStats struct {
	TotalTrades   int
	SettledTrades int
	WinningTrades int
	LosingTrades  int
	TotalPnL      float64
	AvgEdge       float64
}

// Stats aggregates trade outcomes across all matches.
func (s *Storage) Stats() (*TradeStats, error) {
	row := s.db.QueryRow(`
		SELECT
			COUNT(*),
			COUNT(pnl),
			COALESCE(SUM(CASE WHEN pnl > 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN pnl < 0 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(pnl), 0),
			COALESCE(AVG(edge), 0)
		FROM trades`)

	var st TradeStats
	if err := row.Scan(&st.TotalTrades, &st.SettledTrades, &st.WinningTrades,
		&st.LosingTrades, &st.TotalPnL, &st.AvgEdge); err != nil {
		return nil, fmt.Errorf("failed to aggregate stats: %w", err)
	}
	return &st, nil
}

// DailyPnL is one UTC day's settled trading summary.
type DailyPnL struct {
	Day    string  `json:"day"` // YYYY-MM-DD
	Trades int     `json:"trades"`
	PnL    float64 `json:"pnl"`
}

// PnLByDay summarizes settled trades per UTC day, newest day first.
func (s *Storage) PnLByDay(days int) ([]DailyPnL, error) {
	rows, err := s.db.Query(`
		SELECT date(time / 1000000000, 'unixepoch') AS day,
			COUNT(*),
			COALESCE(SUM(pnl), 0)
		FROM trades
		WHERE pnl IS NOT NULL
		GROUP BY day
		ORDER BY day DESC
		LIMIT ?`, days)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily pnl: %w", err)
	}
	defer rows.Close()

	var out []DailyPnL
	for rows.Next() {
		var d DailyPnL
		if err := rows.Scan(&d.Day, &d.Trades, &d.PnL); err != nil {
			return nil, fmt.Errorf("failed to scan daily pnl: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func nanoOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func timeOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}
