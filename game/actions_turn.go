package game

import (
	"fmt"

	"check-game-server/gameerrors"
)

// handleDrawDeck moves the top deck card into the current player's pending
// slot. When the deck is empty the discard pile (minus its top card) is
// reshuffled in first; if both are exhausted the draw fails with
// DeckExhausted and the game enters a recoverable error state.
func (g *Game) handleDrawDeck(playerID string) {
	p, verr := g.validateTurn(playerID)
	if verr != nil {
		g.sendError(playerID, verr)
		return
	}
	if g.Segment != SegmentIdle {
		g.sendError(playerID, gameerrors.ErrInvalidPhase)
		return
	}
	if p.Locked {
		g.sendError(playerID, gameerrors.ErrHandLocked)
		return
	}

	card, derr := g.drawFromDeck()
	if derr != nil {
		g.ErrorState = derr.Code
		g.sendError(playerID, derr)
		g.logEvent("the deck and discard pile are exhausted")
		return
	}
	g.ErrorState = ""

	p.Pending = &PendingDraw{Card: card, Source: SourceDeck}
	g.Segment = SegmentDrawn
	g.turnToken++
	g.startTurnTimer()
	g.logEvent(fmt.Sprintf("%s drew from the deck", p.Name))
	g.broadcastState()
}

// handleDrawDiscard moves the top discard card into the pending slot. The
// card is public knowledge, so its eventual resolution must be a swap.
func (g *Game) handleDrawDiscard(playerID string) {
	p, verr := g.validateTurn(playerID)
	if verr != nil {
		g.sendError(playerID, verr)
		return
	}
	if g.Segment != SegmentIdle {
		g.sendError(playerID, gameerrors.ErrInvalidPhase)
		return
	}
	if p.Locked {
		g.sendError(playerID, gameerrors.ErrHandLocked)
		return
	}
	if len(g.DiscardPile) == 0 {
		g.sendError(playerID, gameerrors.ErrEmptyDiscard)
		return
	}
	if len(p.Hand) == 0 {
		g.sendError(playerID, gameerrors.ErrMustSwap)
		return
	}

	card := g.DiscardPile[len(g.DiscardPile)-1]
	g.DiscardPile = g.DiscardPile[:len(g.DiscardPile)-1]

	p.Pending = &PendingDraw{Card: card, Source: SourceDiscard}
	g.Segment = SegmentDrawn
	g.turnToken++
	g.startTurnTimer()
	g.logEvent(fmt.Sprintf("%s took the %s from the discard pile", p.Name, card.Label()))
	g.broadcastState()
}

// handleSwapAndDiscard swaps the pending card into the hand at handIndex
// and discards the displaced card, opening a matching window on it. A card
// displaced face-down from the hand never triggers an ability.
func (g *Game) handleSwapAndDiscard(playerID string, handIndex int) {
	p, verr := g.validateTurn(playerID)
	if verr != nil {
		g.sendError(playerID, verr)
		return
	}
	if g.Segment != SegmentDrawn || p.Pending == nil {
		g.sendError(playerID, gameerrors.ErrInvalidPhase)
		return
	}
	if handIndex < 0 || handIndex >= len(p.Hand) {
		g.sendError(playerID, gameerrors.ErrInvalidIndex)
		return
	}

	displaced := p.Hand[handIndex]
	p.Hand[handIndex] = p.Pending.Card
	p.Pending = nil

	g.pushDiscard(displaced)
	g.logEvent(fmt.Sprintf("%s swapped a card and discarded the %s", p.Name, displaced.Label()))
	g.openMatchingWindow(displaced, playerID)
}

// handleDiscardDrawn discards the pending card directly. Only legal for a
// deck-drawn card. A special rank pushes an ability onto the stack instead
// of opening a matching window.
func (g *Game) handleDiscardDrawn(playerID string) {
	p, verr := g.validateTurn(playerID)
	if verr != nil {
		g.sendError(playerID, verr)
		return
	}
	if g.Segment != SegmentDrawn || p.Pending == nil {
		g.sendError(playerID, gameerrors.ErrInvalidPhase)
		return
	}
	if p.Pending.Source == SourceDiscard {
		g.sendError(playerID, gameerrors.ErrMustSwap)
		return
	}

	card := p.Pending.Card
	p.Pending = nil
	g.pushDiscard(card)
	g.logEvent(fmt.Sprintf("%s discarded the %s", p.Name, card.Label()))

	if card.Rank.IsSpecial() {
		g.AbilityStack = append(g.AbilityStack, PendingAbility{
			PlayerID: playerID,
			Card:     card,
			Stage:    stageForRank(card.Rank),
			Source:   AbilityFromDiscard,
		})
		g.enterAbilityGroup(AbilityFromDiscard, playerID)
		return
	}
	g.openMatchingWindow(card, playerID)
}

// handleCallCheck locks the caller's hand and starts the final round. Only
// legal at the start of the caller's turn, before drawing, and only once
// per game.
func (g *Game) handleCallCheck(playerID string) {
	p, verr := g.validateTurn(playerID)
	if verr != nil {
		g.sendError(playerID, verr)
		return
	}
	if g.Check != nil {
		g.sendError(playerID, gameerrors.ErrAlreadyCalled)
		return
	}
	if g.Phase != PhasePlay || g.Segment != SegmentIdle {
		g.sendError(playerID, gameerrors.ErrInvalidPhase)
		return
	}

	p.CalledCheck = true
	p.Locked = true

	// Everyone else still playing gets exactly one final turn, in order.
	var order []string
	next := g.nextActivePlayer(playerID)
	for next != "" && next != playerID {
		order = append(order, next)
		next = g.nextActivePlayer(next)
	}

	g.Check = &CheckDetails{CallerID: playerID, FinalTurnOrder: order, FinalTurnIndex: 0}
	g.Phase = PhaseFinalTurns
	g.logEvent(fmt.Sprintf("%s called Check!", p.Name))

	if len(order) == 0 {
		g.enterScoring()
		return
	}
	g.CurrentPlayerID = order[0]
	g.Segment = SegmentIdle
	g.turnToken++
	g.startTurnTimer()
	g.broadcastState()
}

// resolveTurnEnd advances the turn after a discard is fully resolved: the
// matching window is closed and any triggered ability has completed. During
// final turns it consumes one entry of the final turn order; exhausting the
// order moves the game to scoring.
func (g *Game) resolveTurnEnd() {
	g.Matching = nil
	cancelTimer(&g.matchTimerCancel)
	if g.Phase == PhaseScoring || g.Phase == PhaseGameOver {
		return
	}
	if g.countActivePlayers() <= 1 {
		g.enterScoring()
		return
	}

	if g.Check != nil {
		g.Check.FinalTurnIndex++
		next := ""
		for g.Check.FinalTurnIndex < len(g.Check.FinalTurnOrder) {
			cand := g.Check.FinalTurnOrder[g.Check.FinalTurnIndex]
			if p := g.Players[cand]; p != nil && p.Status == StatusPlaying {
				next = cand
				break
			}
			g.Check.FinalTurnIndex++
		}
		if next == "" {
			g.enterScoring()
			return
		}
		g.CurrentPlayerID = next
	} else {
		next := g.nextActivePlayer(g.CurrentPlayerID)
		if next == "" {
			g.enterScoring()
			return
		}
		g.CurrentPlayerID = next
	}

	g.Segment = SegmentIdle
	g.turnToken++
	g.startTurnTimer()
	g.broadcastState()
}

// handleTurnTimeout forfeits the current player's remaining decisions when
// the turn deadline fires. A stale token means the turn already advanced.
func (g *Game) handleTurnTimeout(token int) {
	if token != g.turnToken {
		return
	}
	if g.Phase != PhasePlay && g.Phase != PhaseFinalTurns {
		return
	}
	p := g.Players[g.CurrentPlayerID]
	if p == nil {
		return
	}

	switch g.Segment {
	case SegmentIdle:
		g.logEvent(fmt.Sprintf("%s ran out of time and lost the turn", p.Name))
		g.resolveTurnEnd()
	case SegmentDrawn:
		// Auto-resolve the pending card. The timeout path skips matching
		// windows and abilities so the game keeps moving.
		g.logEvent(fmt.Sprintf("%s ran out of time; the drawn card was resolved automatically", p.Name))
		if p.Pending.Source == SourceDeck || len(p.Hand) == 0 {
			card := p.Pending.Card
			p.Pending = nil
			g.pushDiscard(card)
		} else {
			displaced := p.Hand[0]
			p.Hand[0] = p.Pending.Card
			p.Pending = nil
			g.pushDiscard(displaced)
		}
		g.DiscardSealed = true
		g.resolveTurnEnd()
	case SegmentAbility:
		actor := p
		if len(g.AbilityStack) > 0 {
			if ap := g.Players[g.AbilityStack[len(g.AbilityStack)-1].PlayerID]; ap != nil {
				actor = ap
			}
		}
		g.logEvent(fmt.Sprintf("%s ran out of time; pending abilities were skipped", actor.Name))
		g.AbilityStack = nil
		g.finishAbilityGroup()
	case SegmentMatching:
		// The matching window has its own deadline.
	}
}
