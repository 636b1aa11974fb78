package game

import (
	"fmt"
	"sort"

	"check-game-server/gameerrors"
)

// openMatchingWindow opens the out-of-turn reactive window on a card that
// just became the discard pile top through a normal action. When the pile
// is sealed or nobody can claim, the turn simply advances.
func (g *Game) openMatchingWindow(card Card, byPlayerID string) {
	if g.DiscardSealed {
		g.resolveTurnEnd()
		return
	}

	remaining := make(map[string]bool)
	for _, id := range g.TurnOrder {
		if id == byPlayerID {
			continue
		}
		p := g.Players[id]
		if p == nil || p.Status != StatusPlaying || p.Locked {
			continue
		}
		remaining[id] = true
	}
	if len(remaining) == 0 {
		g.resolveTurnEnd()
		return
	}

	g.Matching = &MatchingOpportunity{
		CardToMatch:      card,
		OriginalPlayerID: byPlayerID,
		Remaining:        remaining,
	}
	g.Segment = SegmentMatching
	g.turnToken++
	cancelTimer(&g.turnTimerCancel)
	g.startMatchTimer()
	g.logEvent(fmt.Sprintf("matching window open on the %s", card.Label()))
	g.broadcastState()
}

// handleAttemptMatch arbitrates a claim on the open window. Claims are
// processed strictly in arrival order: the first valid match wins and
// closes the window for everyone; a wrong-rank claim costs a penalty draw
// and only removes the claimant.
func (g *Game) handleAttemptMatch(playerID string, handIndex int) {
	p, ok := g.Players[playerID]
	if !ok {
		g.sendError(playerID, gameerrors.ErrUnknownPlayer)
		return
	}
	if g.Matching == nil || g.Segment != SegmentMatching {
		g.sendError(playerID, gameerrors.ErrWindowClosed)
		return
	}
	if !g.Matching.Remaining[playerID] {
		g.sendError(playerID, gameerrors.ErrWindowClosed)
		return
	}
	if handIndex < 0 || handIndex >= len(p.Hand) {
		g.sendError(playerID, gameerrors.ErrInvalidIndex)
		return
	}

	card := p.Hand[handIndex]
	if card.Rank != g.Matching.CardToMatch.Rank {
		g.failMatch(p, card)
		return
	}

	// Success: the played card becomes the new discard top and the window
	// closes immediately for everyone.
	matched := g.Matching.CardToMatch
	p.Hand = append(p.Hand[:handIndex], p.Hand[handIndex+1:]...)
	g.Matching = nil
	cancelTimer(&g.matchTimerCancel)
	g.pushDiscard(card)
	g.logEvent(fmt.Sprintf("%s matched the %s", p.Name, card.Label()))

	if card.Rank.IsSpecial() {
		// A matched pair of special cards triggers both abilities; the
		// second-of-pair entry is pushed last so it resolves first.
		g.AbilityStack = append(g.AbilityStack,
			PendingAbility{PlayerID: playerID, Card: card, Stage: stageForRank(card.Rank), Source: AbilityFromStack},
			PendingAbility{PlayerID: playerID, Card: matched, Stage: stageForRank(matched.Rank), Source: AbilityFromStackPair},
		)
		g.enterAbilityGroup(AbilityFromStack, playerID)
		return
	}
	g.resolveTurnEnd()
}

// failMatch applies the penalty for a wrong-rank claim: one or more penalty
// draws and removal from the window. The window stays open for others.
func (g *Game) failMatch(p *Player, claimed Card) {
	delete(g.Matching.Remaining, p.ID)
	drawn := 0
	for i := 0; i < g.Config.PenaltyDrawCount; i++ {
		c, err := g.drawFromDeck()
		if err != nil {
			break
		}
		p.Hand = append(p.Hand, c)
		drawn++
	}
	g.logEvent(fmt.Sprintf("%s tried to match with the %s and drew %d penalty card(s)", p.Name, claimed.Label(), drawn))

	if len(g.Matching.Remaining) == 0 {
		g.Matching = nil
		cancelTimer(&g.matchTimerCancel)
		g.resolveTurnEnd()
		return
	}
	g.broadcastState()
}

// handlePassMatch removes a claimant from the window without penalty.
func (g *Game) handlePassMatch(playerID string) {
	p, ok := g.Players[playerID]
	if !ok {
		g.sendError(playerID, gameerrors.ErrUnknownPlayer)
		return
	}
	if g.Matching == nil || g.Segment != SegmentMatching || !g.Matching.Remaining[playerID] {
		g.sendError(playerID, gameerrors.ErrWindowClosed)
		return
	}

	delete(g.Matching.Remaining, playerID)
	g.logEvent(fmt.Sprintf("%s passed on the match", p.Name))

	if len(g.Matching.Remaining) == 0 {
		g.Matching = nil
		cancelTimer(&g.matchTimerCancel)
		g.resolveTurnEnd()
		return
	}
	g.broadcastState()
}

// handleMatchTimeout force-closes the window when its deadline fires,
// treating every remaining claimant as having passed.
func (g *Game) handleMatchTimeout(token int) {
	if token != g.turnToken || g.Matching == nil {
		return
	}
	g.logEvent("the matching window expired")
	g.Matching = nil
	cancelTimer(&g.matchTimerCancel)
	g.resolveTurnEnd()
}

// remainingClaimants returns the claimants still in the window, sorted for
// deterministic views.
func (m *MatchingOpportunity) remainingClaimants() []string {
	ids := make([]string, 0, len(m.Remaining))
	for id := range m.Remaining {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
