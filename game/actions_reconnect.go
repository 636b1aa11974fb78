package game

import "fmt"

// handlePlayerDisconnected marks a player offline without touching the turn
// order. The turn timer keeps running; a separate, longer grace timer arms
// the forfeiture path.
func (g *Game) handlePlayerDisconnected(playerID string) {
	p, ok := g.Players[playerID]
	if !ok || !p.Connected {
		return
	}
	p.Connected = false
	p.Send = nil
	g.logEvent(fmt.Sprintf("%s disconnected", p.Name))

	inPlay := g.Phase == PhasePlay || g.Phase == PhaseFinalTurns || g.Phase == PhaseInitialPeek
	if inPlay && p.Status == StatusPlaying {
		g.startGraceTimer(playerID)
	}
	g.broadcastState()
}

// handlePlayerReconnected restores a player's connection reference and
// disarms their grace timer. Turn order is untouched.
func (g *Game) handlePlayerReconnected(playerID string, newSend chan []byte) {
	p, ok := g.Players[playerID]
	if !ok {
		return
	}
	p.Connected = true
	p.Send = newSend
	g.cancelGraceTimer(playerID)
	g.logEvent(fmt.Sprintf("%s reconnected", p.Name))
	g.broadcastState()
}

// handleGraceTimeout forfeits a player who is still disconnected when the
// grace period elapses. A timeout for a reconnected or already-forfeited
// player is a no-op.
func (g *Game) handleGraceTimeout(playerID string) {
	p, ok := g.Players[playerID]
	if !ok || p.Connected || p.Status != StatusPlaying {
		return
	}
	g.forfeit(p)
}

// forfeit permanently removes a player from the active turn order. Their
// hand stays on the table for terminal scoring. An outstanding pending card
// goes back onto the discard pile, sealed, so the card count is conserved
// without opening a window nobody asked for.
func (g *Game) forfeit(p *Player) {
	p.Status = StatusForfeited
	g.cancelGraceTimer(p.ID)

	if p.Pending != nil {
		g.pushDiscard(p.Pending.Card)
		p.Pending = nil
		g.DiscardSealed = true
	}

	if g.Matching != nil {
		delete(g.Matching.Remaining, p.ID)
	}
	if len(g.AbilityStack) > 0 {
		kept := g.AbilityStack[:0]
		for _, entry := range g.AbilityStack {
			if entry.PlayerID != p.ID {
				kept = append(kept, entry)
			}
		}
		g.AbilityStack = kept
	}

	g.logEvent(fmt.Sprintf("%s forfeited the game", p.Name))

	if g.countActivePlayers() <= 1 {
		g.enterScoring()
		return
	}

	if p.ID == g.CurrentPlayerID {
		if g.Segment == SegmentAbility {
			// An out-of-turn matcher may still own the active group; only
			// an emptied stack closes it.
			if len(g.AbilityStack) == 0 {
				g.finishAbilityGroup()
				return
			}
			g.broadcastState()
			return
		}
		if g.Segment == SegmentMatching && g.Matching != nil && len(g.Matching.Remaining) > 0 {
			// Others may still claim the window; the turn advances past the
			// forfeited player when it closes.
			g.broadcastState()
			return
		}
		g.resolveTurnEnd()
		return
	}

	// An out-of-turn forfeit may have emptied the matching window or the
	// ability stack.
	if g.Segment == SegmentMatching && g.Matching != nil && len(g.Matching.Remaining) == 0 {
		g.Matching = nil
		cancelTimer(&g.matchTimerCancel)
		g.resolveTurnEnd()
		return
	}
	if g.Segment == SegmentAbility && len(g.AbilityStack) == 0 {
		g.finishAbilityGroup()
		return
	}
	g.broadcastState()
}
