package game

import (
	"fmt"

	"check-game-server/gameerrors"
)

// enterAbilityGroup switches into ability resolution. The origin and owner
// of the group decide what happens when the stack empties again.
func (g *Game) enterAbilityGroup(origin AbilitySource, ownerID string) {
	g.abilityOrigin = origin
	g.abilityOwnerID = ownerID
	g.Segment = SegmentAbility
	g.turnToken++
	cancelTimer(&g.matchTimerCancel)
	g.startTurnTimer()
	active := g.AbilityStack[len(g.AbilityStack)-1]
	if p := g.Players[active.PlayerID]; p != nil {
		g.logEvent(fmt.Sprintf("%s must resolve the %s ability", p.Name, active.Card.Rank.String()))
	}
	g.broadcastState()
}

// handleResolveAbility resolves or skips the top entry of the ability
// stack. King: peek one card, revealed to the resolver only. Queen: swap
// any two cards on the table, blind. Jack: blind swap of one own card with
// one opponent card.
func (g *Game) handleResolveAbility(playerID string, args AbilityArgs) {
	if g.Segment != SegmentAbility || len(g.AbilityStack) == 0 {
		g.sendError(playerID, gameerrors.ErrInvalidPhase)
		return
	}
	active := g.AbilityStack[len(g.AbilityStack)-1]
	if active.PlayerID != playerID {
		g.sendError(playerID, gameerrors.ErrNotYourTurn)
		return
	}
	p := g.Players[playerID]
	if p == nil {
		g.sendError(playerID, gameerrors.ErrUnknownPlayer)
		return
	}

	if args.Skip {
		g.logEvent(fmt.Sprintf("%s skipped the %s ability", p.Name, active.Card.Rank.String()))
		g.popAbility()
		return
	}

	switch active.Card.Rank {
	case King:
		g.resolveKingPeek(p, active, args)
	case Queen:
		g.resolveQueenSwap(p, active, args)
	case Jack:
		g.resolveJackSwap(p, active, args)
	default:
		// Non-special ranks never reach the stack.
		g.popAbility()
	}
}

// resolveKingPeek reveals one chosen card to the resolving player only.
func (g *Game) resolveKingPeek(p *Player, active PendingAbility, args AbilityArgs) {
	if len(args.Targets) != 1 {
		g.sendError(p.ID, gameerrors.ErrInvalidTarget)
		return
	}
	target, err := g.abilityTarget(args.Targets[0], true)
	if err != nil {
		g.sendError(p.ID, err)
		return
	}

	card := target.Hand[args.Targets[0].CardIndex]
	g.sendTo(p, abilityRevealMsg{
		Type:      "ability_reveal",
		PlayerID:  target.ID,
		CardIndex: args.Targets[0].CardIndex,
		Card:      cardView(card),
	})
	g.logEvent(fmt.Sprintf("%s peeked at one of %s's cards", p.Name, target.Name))
	g.popAbility()
}

// resolveQueenSwap swaps any two cards on the table, blind to rank.
func (g *Game) resolveQueenSwap(p *Player, active PendingAbility, args AbilityArgs) {
	if len(args.Targets) != 2 {
		g.sendError(p.ID, gameerrors.ErrInvalidTarget)
		return
	}
	a, b := args.Targets[0], args.Targets[1]
	if a.PlayerID == b.PlayerID && a.CardIndex == b.CardIndex {
		g.sendError(p.ID, gameerrors.ErrInvalidTarget)
		return
	}
	pa, err := g.abilityTarget(a, false)
	if err != nil {
		g.sendError(p.ID, err)
		return
	}
	pb, err := g.abilityTarget(b, false)
	if err != nil {
		g.sendError(p.ID, err)
		return
	}

	pa.Hand[a.CardIndex], pb.Hand[b.CardIndex] = pb.Hand[b.CardIndex], pa.Hand[a.CardIndex]
	g.logEvent(fmt.Sprintf("%s swapped a card of %s with a card of %s", p.Name, pa.Name, pb.Name))
	g.popAbility()
}

// resolveJackSwap swaps exactly one of the resolver's own cards with one
// opponent card; neither identity is revealed to either party.
func (g *Game) resolveJackSwap(p *Player, active PendingAbility, args AbilityArgs) {
	if len(args.Targets) != 2 {
		g.sendError(p.ID, gameerrors.ErrInvalidTarget)
		return
	}
	a, b := args.Targets[0], args.Targets[1]
	ownCount := 0
	if a.PlayerID == p.ID {
		ownCount++
	}
	if b.PlayerID == p.ID {
		ownCount++
	}
	if ownCount != 1 {
		g.sendError(p.ID, gameerrors.ErrInvalidTarget)
		return
	}
	pa, err := g.abilityTarget(a, false)
	if err != nil {
		g.sendError(p.ID, err)
		return
	}
	pb, err := g.abilityTarget(b, false)
	if err != nil {
		g.sendError(p.ID, err)
		return
	}

	pa.Hand[a.CardIndex], pb.Hand[b.CardIndex] = pb.Hand[b.CardIndex], pa.Hand[a.CardIndex]
	g.logEvent(fmt.Sprintf("%s blind-swapped a card with %s", p.Name, g.otherName(pa, pb, p.ID)))
	g.popAbility()
}

// abilityTarget validates one target position. Forfeited hands are out of
// play; a locked (Check caller's) hand may be peeked but never swapped.
func (g *Game) abilityTarget(t AbilityTarget, peekOnly bool) (*Player, *gameerrors.Error) {
	p, ok := g.Players[t.PlayerID]
	if !ok || p.Status != StatusPlaying {
		return nil, gameerrors.ErrInvalidTarget
	}
	if !peekOnly && p.Locked {
		return nil, gameerrors.ErrInvalidTarget
	}
	if t.CardIndex < 0 || t.CardIndex >= len(p.Hand) {
		return nil, gameerrors.ErrInvalidIndex
	}
	return p, nil
}

func (g *Game) otherName(a, b *Player, selfID string) string {
	if a.ID == selfID {
		return b.Name
	}
	return a.Name
}

// popAbility removes the resolved top entry. A non-empty stack activates
// the next entry; an empty stack closes the group.
func (g *Game) popAbility() {
	g.AbilityStack = g.AbilityStack[:len(g.AbilityStack)-1]
	if len(g.AbilityStack) == 0 {
		g.finishAbilityGroup()
		return
	}
	g.turnToken++
	g.startTurnTimer()
	g.broadcastState()
}

// finishAbilityGroup runs when the ability stack empties. A group born from
// a direct special discard seals the pile top: its ability has been
// consumed, so no matching is permitted against it. A group born from a
// successful match opens the matching window the matched card never had.
func (g *Game) finishAbilityGroup() {
	origin, owner := g.abilityOrigin, g.abilityOwnerID
	g.abilityOwnerID = ""

	if origin == AbilityFromDiscard {
		g.DiscardSealed = true
		g.resolveTurnEnd()
		return
	}
	if len(g.DiscardPile) == 0 {
		g.resolveTurnEnd()
		return
	}
	top := g.DiscardPile[len(g.DiscardPile)-1]
	g.openMatchingWindow(top, owner)
}
