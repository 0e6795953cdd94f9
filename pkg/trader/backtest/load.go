package backtest

import (
	"fmt"

	"github.com/phenomenon0/esports-edge/pkg/storage"
)

// LoadSeries builds replay data for one recorded match.
func LoadSeries(store *storage.Storage, matchID string) (*Series, error) {
	m, err := store.GetMatch(matchID)
	if err != nil {
		return nil, fmt.Errorf("loading match %s: %w", matchID, err)
	}
	snaps, err := store.SnapshotsByMatch(matchID)
	if err != nil {
		return nil, fmt.Errorf("loading snapshots for %s: %w", matchID, err)
	}

	s := &Series{
		MatchID: m.MatchID,
		Team1:   m.Team1Name,
		Team2:   m.Team2Name,
		Winner:  m.Winner,
		Samples: make([]Sample, 0, len(snaps)),
	}
	for _, sn := range snaps {
		s.Samples = append(s.Samples, Sample{
			Time:       sn.Time,
			GameNumber: sn.GameNumber,
			Minutes:    sn.GameMinutes,
			Fair:       sn.SeriesWinProb,
			Market:     sn.MarketPrice,
			Confidence: sn.Confidence,
		})
	}
	return s, nil
}

// LoadFinished loads the most recent decided matches, newest last so a
// replay walks them in rough chronological order. Undecided matches are
// skipped.
func LoadFinished(store *storage.Storage, limit int) ([]*Series, error) {
	matches, err := store.RecentMatches(limit)
	if err != nil {
		return nil, err
	}

	series := make([]*Series, 0, len(matches))
	for i := len(matches) - 1; i >= 0; i-- {
		m := matches[i]
		if m.Winner == 0 {
			continue
		}
		s, err := LoadSeries(store, m.MatchID)
		if err != nil {
			return nil, err
		}
		if len(s.Samples) == 0 {
			continue
		}
		series = append(series, s)
	}
	return series, nil
}
