package game

// CardView is the client-facing representation of a revealed card.
type CardView struct {
	ID    string `json:"id"`
	Suit  string `json:"suit"`
	Rank  string `json:"rank"`
	Value int    `json:"value"`
}

// HandSlotView is one position in a hand. Face-down slots carry no card
// identity; the index is preserved so swap and ability UIs can address
// positions.
type HandSlotView struct {
	Index    int       `json:"index"`
	FaceDown bool      `json:"faceDown"`
	Card     *CardView `json:"card,omitempty"`
}

// PendingView describes a pending drawn card. For any player other than
// the viewer the card identity is withheld: existence is observable,
// identity is not.
type PendingView struct {
	Source string    `json:"source"`
	Card   *CardView `json:"card,omitempty"`
}

// PlayerSnapshot is the per-player slice of a ClientView.
type PlayerSnapshot struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Hand        []HandSlotView `json:"hand"`
	IsDealer    bool           `json:"isDealer"`
	Ready       bool           `json:"ready"`
	CalledCheck bool           `json:"calledCheck"`
	Locked      bool           `json:"locked"`
	Connected   bool           `json:"connected"`
	Status      string         `json:"status"`
	Pending     *PendingView   `json:"pending,omitempty"`
}

// MatchingView is the public shape of an open matching window.
type MatchingView struct {
	CardToMatch        CardView `json:"cardToMatch"`
	OriginalPlayerID   string   `json:"originalPlayerId"`
	RemainingClaimants []string `json:"remainingClaimants"`
}

// AbilityView is the public shape of the active (top-of-stack) ability.
type AbilityView struct {
	PlayerID   string `json:"playerId"`
	Rank       string `json:"rank"`
	Stage      string `json:"stage"`
	Source     string `json:"source"`
	StackDepth int    `json:"stackDepth"`
}

// CheckView is the public shape of an active Check call.
type CheckView struct {
	CallerID  string `json:"callerId"`
	TurnsLeft int    `json:"turnsLeft"`
}

// ClientView is the viewer-scoped snapshot broadcast after every accepted
// event. The top-level phase is exposed directly; matching and ability
// sub-states collapse into the play/final-turns phase with TurnStage as
// the gating tag.
type ClientView struct {
	Type            string           `json:"type"`
	GameID          string           `json:"gameId"`
	ViewerID        string           `json:"viewerId"`
	Phase           string           `json:"phase"`
	TurnStage       string           `json:"turnStage,omitempty"`
	CurrentPlayerID string           `json:"currentPlayerId,omitempty"`
	DeckSize        int              `json:"deckSize"`
	DiscardPile     []CardView       `json:"discardPile"`
	DiscardSealed   bool             `json:"discardSealed"`
	Players         []PlayerSnapshot `json:"players"`
	Matching        *MatchingView    `json:"matching,omitempty"`
	Ability         *AbilityView     `json:"ability,omitempty"`
	Check           *CheckView       `json:"check,omitempty"`
	PeekSlots       []HandSlotView   `json:"peekSlots,omitempty"`
	ErrorState      string           `json:"errorState,omitempty"`
	Results         *Results         `json:"results,omitempty"`
}

func cardView(c Card) CardView {
	return CardView{ID: c.ID, Suit: c.Suit.String(), Rank: c.Rank.String(), Value: c.Rank.Value()}
}

// BuildViewFor is the pure redaction function mapping authoritative state
// plus a viewer identity to a hidden-information-safe snapshot. It has no
// side effects and is deterministic given identical inputs: players appear
// in turn order and claimant lists are sorted.
func BuildViewFor(g *Game, viewerID string) ClientView {
	view := ClientView{
		Type:            "game_state",
		GameID:          g.ID,
		ViewerID:        viewerID,
		Phase:           g.Phase.String(),
		CurrentPlayerID: g.CurrentPlayerID,
		DeckSize:        len(g.Deck),
		DiscardSealed:   g.DiscardSealed,
		ErrorState:      g.ErrorState,
	}

	if g.Phase == PhasePlay || g.Phase == PhaseFinalTurns {
		view.TurnStage = g.Segment.String()
	}

	// The discard pile is fully public, top last.
	view.DiscardPile = make([]CardView, len(g.DiscardPile))
	for i, c := range g.DiscardPile {
		view.DiscardPile[i] = cardView(c)
	}

	view.Players = make([]PlayerSnapshot, 0, len(g.TurnOrder))
	for _, id := range g.TurnOrder {
		p := g.Players[id]
		if p == nil {
			continue
		}
		view.Players = append(view.Players, snapshotPlayer(p, id == viewerID))
	}

	if g.Matching != nil {
		view.Matching = &MatchingView{
			CardToMatch:        cardView(g.Matching.CardToMatch),
			OriginalPlayerID:   g.Matching.OriginalPlayerID,
			RemainingClaimants: g.Matching.remainingClaimants(),
		}
	}

	if len(g.AbilityStack) > 0 {
		active := g.AbilityStack[len(g.AbilityStack)-1]
		view.Ability = &AbilityView{
			PlayerID:   active.PlayerID,
			Rank:       active.Card.Rank.String(),
			Stage:      active.Stage.String(),
			Source:     active.Source.String(),
			StackDepth: len(g.AbilityStack),
		}
	}

	if g.Check != nil {
		turnsLeft := len(g.Check.FinalTurnOrder) - g.Check.FinalTurnIndex
		if turnsLeft < 0 {
			turnsLeft = 0
		}
		view.Check = &CheckView{CallerID: g.Check.CallerID, TurnsLeft: turnsLeft}
	}

	// The initial peek reveals the viewer's own outer cards only, and only
	// until the viewer acknowledges.
	if g.Phase == PhaseInitialPeek {
		if viewer := g.Players[viewerID]; viewer != nil && !viewer.PeekAcked {
			slots := make([]HandSlotView, 0, len(viewer.PeekIndices))
			for _, idx := range viewer.PeekIndices {
				if idx < 0 || idx >= len(viewer.Hand) {
					continue
				}
				cv := cardView(viewer.Hand[idx])
				slots = append(slots, HandSlotView{Index: idx, Card: &cv})
			}
			view.PeekSlots = slots
		}
	}

	if g.Phase == PhaseGameOver && g.Results != nil {
		view.Results = g.Results
	}

	return view
}

// snapshotPlayer redacts one player for the viewer. The viewer's own hand
// and pending card pass through; everyone else's hand becomes face-down
// markers with count and index preserved, and their pending card an opaque
// marker.
func snapshotPlayer(p *Player, isViewer bool) PlayerSnapshot {
	snap := PlayerSnapshot{
		ID:          p.ID,
		Name:        p.Name,
		IsDealer:    p.IsDealer,
		Ready:       p.Ready,
		CalledCheck: p.CalledCheck,
		Locked:      p.Locked,
		Connected:   p.Connected,
		Status:      p.Status.String(),
	}

	snap.Hand = make([]HandSlotView, len(p.Hand))
	for i, c := range p.Hand {
		if isViewer {
			cv := cardView(c)
			snap.Hand[i] = HandSlotView{Index: i, Card: &cv}
		} else {
			snap.Hand[i] = HandSlotView{Index: i, FaceDown: true}
		}
	}

	if p.Pending != nil {
		pv := &PendingView{Source: p.Pending.Source.String()}
		if isViewer {
			cv := cardView(p.Pending.Card)
			pv.Card = &cv
		}
		snap.Pending = pv
	}
	return snap
}
