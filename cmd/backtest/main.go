// backtest replays matches recorded by the daemon through alternative
// trading parameter sets and compares the outcomes.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	"github.com/phenomenon0/esports-edge/pkg/storage"
	"github.com/phenomenon0/esports-edge/pkg/trader/backtest"
	"github.com/phenomenon0/esports-edge/pkg/trader/edge"
)

var (
	dbPath   = flag.String("db", "", "SQLite database recorded by the daemon (required)")
	matchID  = flag.String("match", "", "Replay a single match instead of recent history")
	limit    = flag.Int("limit", 200, "How many recent matches to replay")
	jsonOut  = flag.Bool("json", false, "Emit full results as JSON instead of a table")
	minEdge  = flag.Float64("min-edge", 0, "Add a custom variant with this edge floor")
	kellyMul = flag.Float64("kelly", 0, "Kelly multiplier for the custom variant (default 0.25)")
)

func main() {
	flag.Parse()

	log.SetFlags(0)
	if *dbPath == "" {
		log.Fatal("-db is required")
	}

	store, err := storage.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer store.Close()

	series, err := loadSeries(store)
	if err != nil {
		log.Fatalf("Failed to load replay data: %v", err)
	}
	if len(series) == 0 {
		log.Fatal("No decided matches with snapshots in the database")
	}
	log.Printf("Replaying %d series\n", len(series))

	results, err := backtest.Compare(variants(), series)
	if err != nil {
		log.Fatalf("Replay failed: %v", err)
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			log.Fatalf("Failed to encode results: %v", err)
		}
		return
	}
	printTable(results)
}

func loadSeries(store *storage.Storage) ([]*backtest.Series, error) {
	if *matchID != "" {
		s, err := backtest.LoadSeries(store, *matchID)
		if err != nil {
			return nil, err
		}
		return []*backtest.Series{s}, nil
	}
	return backtest.LoadFinished(store, *limit)
}

func variants() []backtest.Variant {
	vs := []backtest.Variant{
		{Name: "default"},
		{Name: "picky", Edge: &edge.CalculatorConfig{MinEdge: 0.03}},
		{Name: "loose", Edge: &edge.CalculatorConfig{MinEdge: 0.01, MinConfidence: 0.5}},
		{Name: "half-kelly", Sizer: &edge.SizerConfig{KellyMultiplier: 0.5}},
	}
	if *minEdge > 0 {
		custom := backtest.Variant{
			Name: "custom",
			Edge: &edge.CalculatorConfig{MinEdge: *minEdge},
		}
		if *kellyMul > 0 {
			custom.Sizer = &edge.SizerConfig{KellyMultiplier: *kellyMul}
		}
		vs = append(vs, custom)
	}
	return vs
}

func printTable(results []*backtest.Result) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "VARIANT\tTRADES\tSETTLED\tWINS\tWIN%\tPNL\tRETURN%\tMAX DD%")
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%s\t$%s\t%s\t%s\n",
			r.Variant, r.Trades, r.Settled, r.Wins,
			r.WinRate.Mul(decimal.NewFromInt(100)).StringFixed(1),
			r.RealizedPnL.StringFixed(2),
			r.ReturnPct.StringFixed(2),
			r.MaxDrawdown.Mul(decimal.NewFromInt(100)).StringFixed(2))
	}
	w.Flush()
}
