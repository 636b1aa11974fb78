package game

import "fmt"

// enterScoring computes terminal scores and ends the game. Each player's
// score is the sum of the rank values left in their hand; forfeited players
// are scored from their last known hand but cannot win. All tied lowest
// scorers are joint winners. After this the game accepts no further
// player-intent events.
func (g *Game) enterScoring() {
	if g.Phase == PhaseGameOver {
		return
	}
	g.cancelAllTimers()
	g.Phase = PhaseScoring
	g.Segment = SegmentIdle
	g.Matching = nil
	g.AbilityStack = nil
	g.CurrentPlayerID = ""

	scores := make(map[string]int, len(g.Players))
	for _, id := range g.TurnOrder {
		p := g.Players[id]
		total := 0
		for _, c := range p.Hand {
			total += c.Rank.Value()
		}
		p.Score = total
		scores[id] = total
	}

	var winners []string
	best, first := 0, true
	for _, id := range g.TurnOrder {
		p := g.Players[id]
		if p.Status != StatusPlaying {
			continue
		}
		switch {
		case first || p.Score < best:
			best = p.Score
			winners = append(winners[:0], id)
			first = false
		case p.Score == best:
			winners = append(winners, id)
		}
	}

	loser := ""
	worst, wfirst, tied := 0, true, false
	for _, id := range g.TurnOrder {
		p := g.Players[id]
		if p.Status != StatusPlaying {
			continue
		}
		switch {
		case wfirst || p.Score > worst:
			worst = p.Score
			loser = id
			tied = false
			wfirst = false
		case p.Score == worst:
			tied = true
		}
	}
	if tied || len(winners) == g.countActivePlayers() {
		loser = ""
	}

	g.Results = &Results{WinnerIDs: winners, LoserID: loser, PlayerScores: scores}
	g.Phase = PhaseGameOver
	g.Finished = true

	for _, id := range winners {
		g.logEvent(fmt.Sprintf("%s wins with %d points", g.Players[id].Name, best))
	}
	g.broadcastState()

	if g.OnGameEnd != nil {
		g.OnGameEnd(g, g.Results)
	}
}
