package pandascore

import (
	"github.com/phenomenon0/esports-edge/pkg/esports/game"
	"github.com/phenomenon0/esports-edge/pkg/feed"
)

// DiffFrames turns the change between a match's previous and current frames
// into normalized updates: one event per counter increment, then a state
// snapshot, then a game-end record when the frame reports a winner.
func DiffFrames(tm *trackedMatch, cur *Frame) []feed.Update {
	var updates []feed.Update
	minutes := float64(cur.ClockSecs) / 60.0

	var prev *Frame
	if tm.lastFrame != nil && tm.lastFrame.GameID == cur.GameID {
		prev = tm.lastFrame
	}

	for _, team := range []game.Team{game.Team1, game.Team2} {
		curStats := frameTeamFor(cur, tm.teamID(team))
		if curStats == nil {
			continue
		}
		var prevStats *FrameTeam
		if prev != nil {
			prevStats = frameTeamFor(prev, tm.teamID(team))
		}

		emit := func(typ game.EventType, count int, numberBase int) {
			for i := 0; i < count; i++ {
				updates = append(updates, feed.Update{
					MatchID: tm.matchID,
					Kind:    feed.KindEvent,
					Event: &game.Event{
						MatchID:         tm.matchID,
						Time:            minutes,
						Type:            typ,
						Team:            team,
						Context:         game.ContextDefault,
						ObjectiveNumber: numberBase + i + 1,
					},
				})
			}
		}

		emit(game.EventKill, delta(curStats.Kills, prevStats, func(t *FrameTeam) int { return t.Kills }), 0)
		emit(game.EventTower, delta(curStats.Towers, prevStats, func(t *FrameTeam) int { return t.Towers }), 0)
		if tm.title == game.TitleLoL {
			emit(game.EventDragon, delta(curStats.Dragons, prevStats, func(t *FrameTeam) int { return t.Dragons }), prevCount(prevStats, func(t *FrameTeam) int { return t.Dragons }))
			emit(game.EventBaron, delta(curStats.Barons, prevStats, func(t *FrameTeam) int { return t.Barons }), 0)
			emit(game.EventHerald, delta(curStats.Heralds, prevStats, func(t *FrameTeam) int { return t.Heralds }), 0)
			emit(game.EventInhibitor, delta(curStats.Inhibits, prevStats, func(t *FrameTeam) int { return t.Inhibits }), 0)
		} else {
			emit(game.EventRoshan, delta(curStats.Roshans, prevStats, func(t *FrameTeam) int { return t.Roshans }), prevCount(prevStats, func(t *FrameTeam) int { return t.Roshans }))
			emit(game.EventBarracks, delta(curStats.Barracks, prevStats, func(t *FrameTeam) int { return t.Barracks }), 0)
		}
	}

	updates = append(updates, feed.Update{
		MatchID: tm.matchID,
		Kind:    feed.KindState,
		State:   frameToState(tm, cur, minutes),
	})

	if cur.Finished && cur.WinnerID != 0 && !tm.gameDone[cur.GameID] {
		tm.gameDone[cur.GameID] = true
		winner := game.Team1
		if cur.WinnerID == tm.team2ID {
			winner = game.Team2
		}
		st := frameToState(tm, cur, minutes)
		updates = append(updates, feed.Update{
			MatchID: tm.matchID,
			Kind:    feed.KindGameEnd,
			GameEnd: &game.Result{
				MatchID:         tm.matchID,
				GameNumber:      cur.Position,
				Winner:          winner,
				DurationMinutes: minutes,
				FinalGoldDiff:   st.GoldDiff(),
			},
		})
	}

	return updates
}

func (tm *trackedMatch) teamID(t game.Team) int64 {
	if t == game.Team1 {
		return tm.team1ID
	}
	return tm.team2ID
}

func frameTeamFor(f *Frame, teamID int64) *FrameTeam {
	for i := range f.Teams {
		if f.Teams[i].TeamID == teamID {
			return &f.Teams[i]
		}
	}
	return nil
}

// delta guards against provider counter resets: a negative difference is
// treated as no change.
func delta(cur int, prev *FrameTeam, get func(*FrameTeam) int) int {
	p := 0
	if prev != nil {
		p = get(prev)
	}
	d := cur - p
	if d < 0 {
		return 0
	}
	return d
}

func prevCount(prev *FrameTeam, get func(*FrameTeam) int) int {
	if prev == nil {
		return 0
	}
	return get(prev)
}

func frameToState(tm *trackedMatch, f *Frame, minutes float64) *game.State {
	st := game.NewState(tm.matchID, tm.title, f.Position)
	st.Minutes = minutes
	for _, team := range []game.Team{game.Team1, game.Team2} {
		ft := frameTeamFor(f, tm.teamID(team))
		if ft == nil {
			continue
		}
		stats := st.Stats(team)
		stats.Kills = ft.Kills
		stats.Deaths = ft.Deaths
		stats.Gold = ft.Gold
		stats.Towers = ft.Towers
		stats.Dragons = ft.Dragons
		stats.Barons = ft.Barons
		stats.Heralds = ft.Heralds
		stats.Inhibitors = ft.Inhibits
		stats.Roshans = ft.Roshans
		stats.Barracks = ft.Barracks
		stats.HasSoul = ft.Dragons >= 4
		stats.HasMega = ft.Barracks >= 6
		if rem := 11 - opponentTowers(f, tm, team); rem >= 0 {
			stats.TowersRemaining = rem
		}
	}
	return st
}

// opponentTowers is how many towers the other side has destroyed, i.e. how
// many of this team's towers are gone.
func opponentTowers(f *Frame, tm *trackedMatch, t game.Team) int {
	ft := frameTeamFor(f, tm.teamID(t.Opponent()))
	if ft == nil {
		return 0
	}
	return ft.Towers
}
