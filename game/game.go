package game

import (
	"encoding/json"
	"log/slog"
	"math/rand"
	"time"

	"check-game-server/config"
	"check-game-server/gameerrors"
	"check-game-server/wsutil"
)

// ActionType enumerates the kinds of events a game can process. Player
// intent and system timer events share one closed union; every event is
// processed atomically by the game's single goroutine.
type ActionType int

const (
	ActionJoin ActionType = iota
	ActionDeclareReady
	ActionPeekAck
	ActionDrawDeck
	ActionDrawDiscard
	ActionSwapAndDiscard
	ActionDiscardDrawn
	ActionAttemptMatch
	ActionPassMatch
	ActionCallCheck
	ActionResolveAbility
	ActionChat
	ActionPlayerDisconnected
	ActionPlayerReconnected
	ActionStop // supervisor request to terminate the game loop

	// Timer-driven actions. Peek, turn and match timeouts carry the turn
	// token captured at scheduling time; a stale token makes the action a
	// no-op. Grace timeouts are guarded by connection state instead.
	ActionPeekTimeout
	ActionTurnTimeout
	ActionMatchTimeout
	ActionGraceTimeout
)

// AbilityTarget addresses one card position on the table.
type AbilityTarget struct {
	PlayerID  string `json:"playerId"`
	CardIndex int    `json:"cardIndex"`
}

// AbilityArgs carries the payload of a resolve-ability event.
type AbilityArgs struct {
	Skip    bool            `json:"skip"`
	Targets []AbilityTarget `json:"targets"`
}

// Action is one event delivered into the game's serialized queue.
type Action struct {
	Type      ActionType
	PlayerID  string
	Name      string // join: display name
	HandIndex int    // swap/match: hand position
	Ability   AbilityArgs
	Text      string      // chat
	NewSend   chan []byte // join/reconnect: the client's send channel
	Token     int         // timer actions: staleness token
}

// Results is the terminal outcome of a game. All tied lowest scorers are
// joint winners; LoserID is the unique highest scorer or empty on a tie.
type Results struct {
	WinnerIDs    []string       `json:"winnerIds"`
	LoserID      string         `json:"loserId,omitempty"`
	PlayerScores map[string]int `json:"playerScores"`
}

const (
	actionBufferSize = 32
	maxLogEntries    = 200
)

// Game is the authoritative state for one game instance. All fields are
// owned by the single goroutine draining Actions; external collaborators
// interact only through the channel and through per-viewer snapshots built
// after each accepted event.
type Game struct {
	ID     string
	Config *config.Config

	Players         map[string]*Player
	TurnOrder       []string
	CurrentPlayerID string
	Phase           Phase
	Segment         TurnSegment
	Deck            []Card // top of the deck is the last element
	DiscardPile     []Card // top of the pile is the last element
	Matching        *MatchingOpportunity
	AbilityStack    []PendingAbility
	Check           *CheckDetails
	DiscardSealed   bool
	ErrorState      string
	Log             []LogEntry
	Results         *Results
	Finished        bool
	Corrupted       bool

	// abilityOrigin/abilityOwnerID describe the current ability group: how
	// it was created and who played the card that created it. Used when the
	// stack empties to decide between sealing the pile and opening a fresh
	// matching window.
	abilityOrigin  AbilitySource
	abilityOwnerID string

	// turnToken increments whenever the turn or segment changes. Timer
	// actions carry the token from scheduling time and are dropped as stale
	// when it no longer matches.
	turnToken int

	rng *rand.Rand

	peekTimerCancel  chan struct{}
	turnTimerCancel  chan struct{}
	matchTimerCancel chan struct{}
	graceTimerCancel map[string]chan struct{}

	Actions chan Action
	Done    chan struct{}

	// OnGameEnd is called once when the game reaches gameOver.
	OnGameEnd func(g *Game, results *Results)
}

// NewGame creates an empty game awaiting players. The seed fixes the
// shuffle order, which makes scenario tests deterministic.
func NewGame(id string, cfg *config.Config, seed int64) *Game {
	return &Game{
		ID:               id,
		Config:           cfg,
		Players:          make(map[string]*Player),
		Phase:            PhaseAwaitingPlayers,
		Segment:          SegmentIdle,
		rng:              rand.New(rand.NewSource(seed)),
		graceTimerCancel: make(map[string]chan struct{}),
		Actions:          make(chan Action, actionBufferSize),
		Done:             make(chan struct{}),
	}
}

// Run is the main game loop. It processes actions strictly one at a time in
// arrival order. It should be run as a goroutine.
func (g *Game) Run() {
	defer close(g.Done)
	defer g.cancelAllTimers()

	for {
		action, ok := <-g.Actions
		if !ok {
			return
		}
		if action.Type == ActionStop {
			return
		}
		g.apply(action)
		if g.Finished {
			return
		}
	}
}

// apply dispatches one event. Handlers validate fully before mutating, so a
// rejected event leaves the state untouched. A defensive invariant check
// runs after every event; on violation the game refuses further mutation.
func (g *Game) apply(a Action) {
	if g.Corrupted {
		g.sendError(a.PlayerID, gameerrors.ErrGameCorrupted)
		return
	}

	switch a.Type {
	case ActionJoin:
		g.handleJoin(a.PlayerID, a.Name, a.NewSend)
	case ActionDeclareReady:
		g.handleDeclareReady(a.PlayerID)
	case ActionPeekAck:
		g.handlePeekAck(a.PlayerID)
	case ActionDrawDeck:
		g.handleDrawDeck(a.PlayerID)
	case ActionDrawDiscard:
		g.handleDrawDiscard(a.PlayerID)
	case ActionSwapAndDiscard:
		g.handleSwapAndDiscard(a.PlayerID, a.HandIndex)
	case ActionDiscardDrawn:
		g.handleDiscardDrawn(a.PlayerID)
	case ActionAttemptMatch:
		g.handleAttemptMatch(a.PlayerID, a.HandIndex)
	case ActionPassMatch:
		g.handlePassMatch(a.PlayerID)
	case ActionCallCheck:
		g.handleCallCheck(a.PlayerID)
	case ActionResolveAbility:
		g.handleResolveAbility(a.PlayerID, a.Ability)
	case ActionChat:
		g.handleChat(a.PlayerID, a.Text)
	case ActionPlayerDisconnected:
		g.handlePlayerDisconnected(a.PlayerID)
	case ActionPlayerReconnected:
		g.handlePlayerReconnected(a.PlayerID, a.NewSend)
	case ActionPeekTimeout:
		g.handlePeekTimeout(a.Token)
	case ActionTurnTimeout:
		g.handleTurnTimeout(a.Token)
	case ActionMatchTimeout:
		g.handleMatchTimeout(a.Token)
	case ActionGraceTimeout:
		g.handleGraceTimeout(a.PlayerID)
	}

	g.checkConservation()
}

// checkConservation verifies that the total card count across all zones is
// constant from the deal onward. Violation marks the game corrupted.
func (g *Game) checkConservation() {
	if g.Corrupted || g.Phase == PhaseAwaitingPlayers {
		return
	}
	total := len(g.Deck) + len(g.DiscardPile)
	for _, p := range g.Players {
		total += len(p.Hand)
		if p.Pending != nil {
			total++
		}
	}
	if total != DeckSize {
		g.Corrupted = true
		slog.Error("card conservation violated", "tag", "game", "game", g.ID, "total", total)
		g.broadcast(errorMsg{
			Type:    "error",
			Kind:    gameerrors.Fatal.String(),
			Code:    gameerrors.ErrGameCorrupted.Code,
			Message: gameerrors.ErrGameCorrupted.Message,
		})
	}
}

// --- timers ---

// scheduleTimer delivers a back into the action queue after d, unless the
// cancel channel closes first or the game loop has exited.
func (g *Game) scheduleTimer(cancel chan struct{}, d time.Duration, a Action) {
	go func() {
		select {
		case <-time.After(d):
			select {
			case g.Actions <- a:
			case <-g.Done:
			}
		case <-cancel:
		}
	}()
}

func cancelTimer(c *chan struct{}) {
	if *c != nil {
		close(*c)
		*c = nil
	}
}

func (g *Game) startPeekTimer() {
	if g.Config.PeekSeconds <= 0 {
		return
	}
	cancelTimer(&g.peekTimerCancel)
	g.peekTimerCancel = make(chan struct{})
	g.scheduleTimer(g.peekTimerCancel, time.Duration(g.Config.PeekSeconds)*time.Second,
		Action{Type: ActionPeekTimeout, Token: g.turnToken})
}

func (g *Game) startTurnTimer() {
	if g.Config.TurnLimitSec <= 0 {
		return
	}
	cancelTimer(&g.turnTimerCancel)
	g.turnTimerCancel = make(chan struct{})
	g.scheduleTimer(g.turnTimerCancel, time.Duration(g.Config.TurnLimitSec)*time.Second,
		Action{Type: ActionTurnTimeout, Token: g.turnToken})
}

func (g *Game) startMatchTimer() {
	if g.Config.MatchWindowSec <= 0 {
		return
	}
	cancelTimer(&g.matchTimerCancel)
	g.matchTimerCancel = make(chan struct{})
	g.scheduleTimer(g.matchTimerCancel, time.Duration(g.Config.MatchWindowSec)*time.Second,
		Action{Type: ActionMatchTimeout, Token: g.turnToken})
}

// startGraceTimer begins the disconnect forfeiture countdown for a player.
// Separate from the turn timer, which keeps running through a disconnect.
// Grace timeouts carry no turn token: they are guarded by the player still
// being disconnected, not by turn position.
func (g *Game) startGraceTimer(playerID string) {
	if g.Config.GraceSec <= 0 {
		return
	}
	if c, ok := g.graceTimerCancel[playerID]; ok && c != nil {
		close(c)
	}
	cancel := make(chan struct{})
	g.graceTimerCancel[playerID] = cancel
	g.scheduleTimer(cancel, time.Duration(g.Config.GraceSec)*time.Second,
		Action{Type: ActionGraceTimeout, PlayerID: playerID})
}

func (g *Game) cancelGraceTimer(playerID string) {
	if c, ok := g.graceTimerCancel[playerID]; ok && c != nil {
		close(c)
	}
	delete(g.graceTimerCancel, playerID)
}

func (g *Game) cancelAllTimers() {
	cancelTimer(&g.peekTimerCancel)
	cancelTimer(&g.turnTimerCancel)
	cancelTimer(&g.matchTimerCancel)
	for id := range g.graceTimerCancel {
		g.cancelGraceTimer(id)
	}
}

// --- outbound messages ---

type errorMsg struct {
	Type    string `json:"type"`
	Kind    string `json:"kind"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type serverLogMsg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	At      int64  `json:"at"`
}

type chatMsg struct {
	Type string `json:"type"`
	From string `json:"from"`
	Text string `json:"text"`
}

type abilityRevealMsg struct {
	Type      string   `json:"type"`
	PlayerID  string   `json:"playerId"`
	CardIndex int      `json:"cardIndex"`
	Card      CardView `json:"card"`
}

// sendError surfaces a rejection to the originating player only. The game
// state is untouched by rejected events.
func (g *Game) sendError(playerID string, err *gameerrors.Error) {
	p := g.Players[playerID]
	if p == nil || p.Send == nil {
		return
	}
	g.sendTo(p, errorMsg{
		Type:    "error",
		Kind:    err.Kind.String(),
		Code:    err.Code,
		Message: err.Message,
	})
}

// sendErrorTo surfaces a rejection on a raw send channel, for players that
// were never admitted to the game (for instance a rejected join).
func (g *Game) sendErrorTo(send chan []byte, err *gameerrors.Error) {
	if send == nil {
		return
	}
	data, merr := json.Marshal(errorMsg{
		Type:    "error",
		Kind:    err.Kind.String(),
		Code:    err.Code,
		Message: err.Message,
	})
	if merr != nil {
		return
	}
	wsutil.SafeSend(send, data)
}

func (g *Game) sendTo(p *Player, v any) {
	if p == nil || p.Send == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("marshaling message", "tag", "game", "game", g.ID, "err", err)
		return
	}
	wsutil.SafeSend(p.Send, data)
}

func (g *Game) broadcast(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("marshaling broadcast", "tag", "game", "game", g.ID, "err", err)
		return
	}
	for _, p := range g.Players {
		if p.Send != nil {
			wsutil.SafeSend(p.Send, data)
		}
	}
}

// broadcastState redacts the authoritative state once per player and sends
// each their own view. Called after every accepted mutation.
func (g *Game) broadcastState() {
	for _, id := range g.TurnOrder {
		p := g.Players[id]
		if p == nil || p.Send == nil {
			continue
		}
		view := BuildViewFor(g, id)
		g.sendTo(p, view)
	}
}

// logEvent appends a structured entry to the game log and relays it to the
// room.
func (g *Game) logEvent(message string) {
	entry := LogEntry{Message: message, At: time.Now().UnixMilli()}
	g.Log = append(g.Log, entry)
	if len(g.Log) > maxLogEntries {
		g.Log = g.Log[len(g.Log)-maxLogEntries:]
	}
	slog.Info(message, "tag", "game", "game", g.ID)
	g.broadcast(serverLogMsg{Type: "server_log", Message: entry.Message, At: entry.At})
}

// handleChat relays a chat line to the room. The engine does not generate
// or store chat content.
func (g *Game) handleChat(playerID, text string) {
	p := g.Players[playerID]
	if p == nil || text == "" {
		return
	}
	g.broadcast(chatMsg{Type: "chat", From: p.Name, Text: text})
}

// --- shared helpers ---

// pushDiscard places a card on top of the discard pile. A new top card is
// always unsealed until an ability resolution consumes it.
func (g *Game) pushDiscard(c Card) {
	g.DiscardPile = append(g.DiscardPile, c)
	g.DiscardSealed = false
}

// drawFromDeck pops the top deck card, reshuffling the discard pile (minus
// its top card) into the deck first when the deck is empty. Returns
// ErrDeckExhausted when both are exhausted.
func (g *Game) drawFromDeck() (Card, *gameerrors.Error) {
	if len(g.Deck) == 0 {
		g.replenishDeck()
	}
	if len(g.Deck) == 0 {
		return Card{}, gameerrors.ErrDeckExhausted
	}
	c := g.Deck[len(g.Deck)-1]
	g.Deck = g.Deck[:len(g.Deck)-1]
	return c, nil
}

// replenishDeck reshuffles all discard pile cards except the current top
// back into the deck. No-op when there is nothing to reshuffle.
func (g *Game) replenishDeck() {
	if len(g.DiscardPile) <= 1 {
		return
	}
	top := g.DiscardPile[len(g.DiscardPile)-1]
	rest := append([]Card(nil), g.DiscardPile[:len(g.DiscardPile)-1]...)
	shuffle(rest, g.rng)
	g.Deck = rest
	g.DiscardPile = []Card{top}
	g.logEvent("the discard pile was reshuffled into the deck")
}

// countActivePlayers returns how many players are still in the turn order.
func (g *Game) countActivePlayers() int {
	count := 0
	for _, p := range g.Players {
		if p.Status == StatusPlaying {
			count++
		}
	}
	return count
}

// nextActivePlayer returns the next non-forfeited player after from in turn
// order, wrapping around. Empty string when nobody qualifies.
func (g *Game) nextActivePlayer(from string) string {
	n := len(g.TurnOrder)
	if n == 0 {
		return ""
	}
	start := 0
	for i, id := range g.TurnOrder {
		if id == from {
			start = i
			break
		}
	}
	for i := 1; i <= n; i++ {
		cand := g.TurnOrder[(start+i)%n]
		if p := g.Players[cand]; p != nil && p.Status == StatusPlaying {
			return cand
		}
	}
	return ""
}

// validateTurn checks that playerID is the current player in a play or
// final-turns phase. No mutation on failure.
func (g *Game) validateTurn(playerID string) (*Player, *gameerrors.Error) {
	p, ok := g.Players[playerID]
	if !ok {
		return nil, gameerrors.ErrUnknownPlayer
	}
	if g.Phase != PhasePlay && g.Phase != PhaseFinalTurns {
		return nil, gameerrors.ErrInvalidPhase
	}
	if playerID != g.CurrentPlayerID {
		return nil, gameerrors.ErrNotYourTurn
	}
	return p, nil
}
