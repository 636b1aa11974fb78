package game

import (
	"fmt"

	"check-game-server/gameerrors"
)

// handleJoin admits a new player while the game is still awaiting players.
// The first player to join becomes the dealer. Rejoining with a known id is
// handled by the reconnect path, not here.
func (g *Game) handleJoin(playerID, name string, send chan []byte) {
	if g.Phase != PhaseAwaitingPlayers {
		g.sendErrorTo(send, gameerrors.ErrGameStarted)
		return
	}
	if _, exists := g.Players[playerID]; exists {
		g.sendErrorTo(send, gameerrors.ErrAlreadyJoined)
		return
	}
	if len(g.Players) >= g.Config.MaxPlayers {
		g.sendErrorTo(send, gameerrors.ErrGameFull)
		return
	}
	if len(name) < 1 || len(name) > g.Config.MaxNameLength {
		g.sendErrorTo(send, gameerrors.ErrNameInvalid)
		return
	}

	p := NewPlayer(playerID, name, send)
	if len(g.Players) == 0 {
		p.IsDealer = true
	}
	g.Players[playerID] = p
	g.TurnOrder = append(g.TurnOrder, playerID)

	g.logEvent(fmt.Sprintf("%s joined the game", name))
	g.broadcastState()
}

// handleDeclareReady marks a player ready for the initial peek. When every
// seated player is ready and enough players are present, the deal happens.
func (g *Game) handleDeclareReady(playerID string) {
	if g.Phase != PhaseAwaitingPlayers {
		g.sendError(playerID, gameerrors.ErrInvalidPhase)
		return
	}
	p, ok := g.Players[playerID]
	if !ok {
		return
	}
	if p.Ready {
		return
	}
	p.Ready = true
	g.logEvent(fmt.Sprintf("%s is ready", p.Name))

	if len(g.Players) < g.Config.MinPlayers {
		g.broadcastState()
		return
	}
	for _, other := range g.Players {
		if !other.Ready {
			g.broadcastState()
			return
		}
	}
	g.deal()
}

// deal shuffles a fresh deck, gives each player their cards face-down, and
// opens the initial peek on the outer two positions of each hand.
func (g *Game) deal() {
	g.Deck = NewDeck()
	shuffle(g.Deck, g.rng)

	for _, id := range g.TurnOrder {
		p := g.Players[id]
		p.Hand = make([]Card, 0, g.Config.CardsPerPlayer)
		for i := 0; i < g.Config.CardsPerPlayer; i++ {
			c := g.Deck[len(g.Deck)-1]
			g.Deck = g.Deck[:len(g.Deck)-1]
			p.Hand = append(p.Hand, c)
		}
		p.PeekIndices = []int{0, len(p.Hand) - 1}
	}

	g.Phase = PhaseInitialPeek
	g.turnToken++
	g.startPeekTimer()
	g.logEvent("cards dealt; peek at your outer two cards")
	g.broadcastState()
}

// handlePeekAck records a player's peek acknowledgement. Play begins once
// everyone has acknowledged, or when the peek deadline expires.
func (g *Game) handlePeekAck(playerID string) {
	if g.Phase != PhaseInitialPeek {
		g.sendError(playerID, gameerrors.ErrInvalidPhase)
		return
	}
	p, ok := g.Players[playerID]
	if !ok {
		return
	}
	if p.PeekAcked {
		return
	}
	p.PeekAcked = true

	for _, other := range g.Players {
		if !other.PeekAcked {
			g.broadcastState()
			return
		}
	}
	g.beginPlay()
}

// handlePeekTimeout ends the initial peek when the deadline fires. A stale
// token means the phase already advanced; drop the event.
func (g *Game) handlePeekTimeout(token int) {
	if token != g.turnToken || g.Phase != PhaseInitialPeek {
		return
	}
	g.beginPlay()
}

// beginPlay transitions from the initial peek to the first turn.
func (g *Game) beginPlay() {
	cancelTimer(&g.peekTimerCancel)
	g.Phase = PhasePlay
	g.Segment = SegmentIdle
	g.CurrentPlayerID = ""
	for _, id := range g.TurnOrder {
		if p := g.Players[id]; p != nil && p.Status == StatusPlaying {
			g.CurrentPlayerID = id
			break
		}
	}
	g.turnToken++
	g.startTurnTimer()
	g.logEvent("play begins")
	g.broadcastState()
}
