package market

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestNormalizeTeamName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"G2 Esports", "g2"},
		{"Fnatic", "fnatic"},
		{"MAD Lions", "mad lions"},
		{"Movistar KOI", "movistar koi"},
		{"Señor Gaming", "senor"},
		{"  Team   Spirit ", "spirit"},
	}
	for _, tc := range cases {
		if got := NormalizeTeamName(tc.in); got != tc.want {
			t.Errorf("NormalizeTeamName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestTeamsMatch(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"G2 Esports", "G2", true},
		{"T1", "t1", true},
		{"Fnatic", "FNATIC", true},
		{"Gen.G", "DRX", false},
		{"", "T1", false},
	}
	for _, tc := range cases {
		if got := TeamsMatch(tc.a, tc.b); got != tc.want {
			t.Errorf("TeamsMatch(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestFindMarketForMatch(t *testing.T) {
	markets := []Market{
		{ID: "1", Team1Name: "Cloud9", Team2Name: "Team Liquid", Active: true},
		{ID: "2", Team1Name: "G2 Esports", Team2Name: "Fnatic", Active: true},
		{ID: "3", Team1Name: "T1", Team2Name: "Gen.G", Active: true, Closed: true},
	}

	m, flipped, ok := FindMarketForMatch(markets, "G2", "FNC Fnatic")
	if !ok || m.ID != "2" || flipped {
		t.Errorf("direct match failed: ok=%v id=%v flipped=%v", ok, m, flipped)
	}

	m, flipped, ok = FindMarketForMatch(markets, "Team Liquid", "Cloud9")
	if !ok || m.ID != "1" || !flipped {
		t.Errorf("flipped match failed: ok=%v flipped=%v", ok, flipped)
	}

	// Closed markets never match.
	if _, _, ok = FindMarketForMatch(markets, "T1", "Gen.G"); ok {
		t.Errorf("closed market should not match")
	}
}

func TestConvertMarket(t *testing.T) {
	raw := gammaMarket{
		ID:            "m1",
		Question:      "Will T1 win?",
		Active:        true,
		Liquidity:     "12500.5",
		Outcomes:      `["T1","Gen.G"]`,
		OutcomePrices: `["0.62","0.38"]`,
	}
	m, err := convertMarket(raw)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if !m.YesPrice.Equal(decimal.NewFromFloat(0.62)) {
		t.Errorf("yes price: got %s want 0.62", m.YesPrice)
	}
	if m.Team1Name != "T1" || m.Team2Name != "Gen.G" {
		t.Errorf("outcome names not parsed: %q %q", m.Team1Name, m.Team2Name)
	}
	if !m.Liquidity.Equal(decimal.NewFromFloat(12500.5)) {
		t.Errorf("liquidity: got %s", m.Liquidity)
	}

	if _, err := convertMarket(gammaMarket{ID: "bad"}); err == nil {
		t.Errorf("missing prices should error")
	}
}
