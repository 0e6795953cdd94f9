package market

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Esports org names arrive in many spellings across feeds and markets.
// Matching folds diacritics, case, and org-suffix noise before comparing.

var orgSuffixes = []string{" esports", " gaming", " e-sports", " team"}

// NormalizeTeamName lowercases, strips accents and common org suffixes, and
// collapses whitespace.
func NormalizeTeamName(name string) string {
	name = strings.ToLower(name)

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	name, _, _ = transform.String(t, name)

	for _, suffix := range orgSuffixes {
		name = strings.ReplaceAll(name, suffix, "")
	}

	name = strings.Join(strings.Fields(name), " ")
	return strings.TrimSpace(name)
}

// TeamsMatch reports whether two team names refer to the same org after
// normalization. A containment check covers abbreviated market listings
// ("G2" vs "G2 Esports").
func TeamsMatch(a, b string) bool {
	na, nb := NormalizeTeamName(a), NormalizeTeamName(b)
	if na == "" || nb == "" {
		return false
	}
	if na == nb {
		return true
	}
	return strings.Contains(na, nb) || strings.Contains(nb, na)
}

// FindMarketForMatch scans markets for one whose outcomes line up with the
// match's team names, in either order. The second return reports whether
// the market lists the teams flipped relative to the feed.
func FindMarketForMatch(markets []Market, team1, team2 string) (*Market, bool, bool) {
	for i := range markets {
		m := &markets[i]
		if !m.Active || m.Closed {
			continue
		}
		switch {
		case TeamsMatch(m.Team1Name, team1) && TeamsMatch(m.Team2Name, team2):
			return m, false, true
		case TeamsMatch(m.Team1Name, team2) && TeamsMatch(m.Team2Name, team1):
			return m, true, true
		}
	}
	return nil, false, false
}
