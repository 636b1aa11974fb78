package game

import (
	"encoding/json"
	"testing"

	"check-game-server/config"
)

// testConfig disables all timers so tests drive every transition explicitly.
func testConfig() *config.Config {
	cfg := config.Defaults()
	cfg.PeekSeconds = 0
	cfg.TurnLimitSec = 0
	cfg.MatchWindowSec = 0
	cfg.GraceSec = 0
	return cfg
}

// newTestGame creates a game and joins one player per name, applying events
// synchronously. The first name becomes the dealer and first player.
func newTestGame(names ...string) (*Game, map[string]chan []byte) {
	g := NewGame("test-1", testConfig(), 42)
	chans := make(map[string]chan []byte)
	for _, n := range names {
		ch := make(chan []byte, 100)
		chans[n] = ch
		g.apply(Action{Type: ActionJoin, PlayerID: n, Name: n, NewSend: ch})
	}
	return g, chans
}

// startPlaying readies everyone, acknowledges the peek, and returns with the
// game in the play phase on the first player's turn.
func startPlaying(t *testing.T, g *Game) {
	t.Helper()
	for _, id := range g.TurnOrder {
		g.apply(Action{Type: ActionDeclareReady, PlayerID: id})
	}
	if g.Phase != PhaseInitialPeek {
		t.Fatalf("expected initial_peek after all ready, got %v", g.Phase)
	}
	for _, id := range g.TurnOrder {
		g.apply(Action{Type: ActionPeekAck, PlayerID: id})
	}
	if g.Phase != PhasePlay {
		t.Fatalf("expected play after all peek acks, got %v", g.Phase)
	}
}

// plantRank places a card of the wanted rank at a hand position by swapping
// it in from the deck or another hand, so the card count stays constant.
func plantRank(t *testing.T, g *Game, playerID string, idx int, r Rank) Card {
	t.Helper()
	p := g.Players[playerID]
	if p.Hand[idx].Rank == r {
		return p.Hand[idx]
	}
	for i := range g.Deck {
		if g.Deck[i].Rank == r {
			g.Deck[i], p.Hand[idx] = p.Hand[idx], g.Deck[i]
			return p.Hand[idx]
		}
	}
	for _, other := range g.Players {
		for i := range other.Hand {
			// Never disturb earlier slots of the target hand; tests plant
			// positions in ascending order.
			if other.ID == playerID && i <= idx {
				continue
			}
			if other.Hand[i].Rank == r {
				other.Hand[i], p.Hand[idx] = p.Hand[idx], other.Hand[i]
				return p.Hand[idx]
			}
		}
	}
	t.Fatalf("no card of rank %v available to plant", r)
	return Card{}
}

// plantDeckTop moves a card of the wanted rank to the top of the deck.
func plantDeckTop(t *testing.T, g *Game, r Rank) Card {
	t.Helper()
	top := len(g.Deck) - 1
	for i := top; i >= 0; i-- {
		if g.Deck[i].Rank == r {
			g.Deck[i], g.Deck[top] = g.Deck[top], g.Deck[i]
			return g.Deck[top]
		}
	}
	t.Fatalf("no card of rank %v left in the deck", r)
	return Card{}
}

func drainChannel(ch chan []byte) [][]byte {
	var msgs [][]byte
	for {
		select {
		case msg := <-ch:
			msgs = append(msgs, msg)
		default:
			return msgs
		}
	}
}

// lastErrorCode returns the code of the last error message in the channel,
// or empty string if none arrived.
func lastErrorCode(ch chan []byte) string {
	code := ""
	for _, raw := range drainChannel(ch) {
		var msg struct {
			Type string `json:"type"`
			Code string `json:"code"`
		}
		if json.Unmarshal(raw, &msg) == nil && msg.Type == "error" {
			code = msg.Code
		}
	}
	return code
}

func totalCards(g *Game) int {
	total := len(g.Deck) + len(g.DiscardPile)
	for _, p := range g.Players {
		total += len(p.Hand)
		if p.Pending != nil {
			total++
		}
	}
	return total
}

func TestJoinAndDeal(t *testing.T) {
	g, _ := newTestGame("alice", "bob")

	if g.Phase != PhaseAwaitingPlayers {
		t.Fatalf("expected awaiting_players, got %v", g.Phase)
	}
	if !g.Players["alice"].IsDealer {
		t.Error("expected the first joiner to be the dealer")
	}

	startPlaying(t, g)

	for _, id := range g.TurnOrder {
		p := g.Players[id]
		if len(p.Hand) != 4 {
			t.Errorf("expected 4 cards for %s, got %d", id, len(p.Hand))
		}
		if len(p.PeekIndices) != 2 || p.PeekIndices[0] != 0 || p.PeekIndices[1] != 3 {
			t.Errorf("expected peek indices [0 3] for %s, got %v", id, p.PeekIndices)
		}
	}
	if len(g.Deck) != 44 {
		t.Errorf("expected 44 cards left in the deck, got %d", len(g.Deck))
	}
	if g.CurrentPlayerID != "alice" {
		t.Errorf("expected alice to start, got %q", g.CurrentPlayerID)
	}
	if totalCards(g) != DeckSize {
		t.Errorf("expected %d cards in play, got %d", DeckSize, totalCards(g))
	}
}

func TestJoinRejections(t *testing.T) {
	g, _ := newTestGame("alice", "bob", "carol", "dave")

	extra := make(chan []byte, 10)
	g.apply(Action{Type: ActionJoin, PlayerID: "erin", Name: "erin", NewSend: extra})
	if code := lastErrorCode(extra); code != "GameFull" {
		t.Errorf("expected GameFull, got %q", code)
	}

	dup := make(chan []byte, 10)
	g.apply(Action{Type: ActionJoin, PlayerID: "alice", Name: "alice2", NewSend: dup})
	if code := lastErrorCode(dup); code != "AlreadyJoined" {
		t.Errorf("expected AlreadyJoined, got %q", code)
	}

	if len(g.Players) != 4 {
		t.Errorf("expected 4 players, got %d", len(g.Players))
	}
}

func TestJoinAfterStartRejected(t *testing.T) {
	g, _ := newTestGame("alice", "bob")
	startPlaying(t, g)

	late := make(chan []byte, 10)
	g.apply(Action{Type: ActionJoin, PlayerID: "carol", Name: "carol", NewSend: late})
	if code := lastErrorCode(late); code != "GameStarted" {
		t.Errorf("expected GameStarted, got %q", code)
	}
}

func TestDrawOutOfTurnRejected(t *testing.T) {
	g, chans := newTestGame("alice", "bob")
	startPlaying(t, g)
	drainChannel(chans["bob"])

	g.apply(Action{Type: ActionDrawDeck, PlayerID: "bob"})
	if code := lastErrorCode(chans["bob"]); code != "NotYourTurn" {
		t.Errorf("expected NotYourTurn, got %q", code)
	}
	if g.Players["bob"].Pending != nil {
		t.Error("rejected draw must not create a pending card")
	}
}

func TestSwapOpensMatchingWindow(t *testing.T) {
	g, _ := newTestGame("alice", "bob")
	startPlaying(t, g)

	displaced := g.Players["alice"].Hand[1]
	g.apply(Action{Type: ActionDrawDeck, PlayerID: "alice"})
	if g.Segment != SegmentDrawn {
		t.Fatalf("expected drawn segment, got %v", g.Segment)
	}
	drawn := g.Players["alice"].Pending.Card

	g.apply(Action{Type: ActionSwapAndDiscard, PlayerID: "alice", HandIndex: 1})

	if g.Players["alice"].Hand[1].ID != drawn.ID {
		t.Error("expected the drawn card to land at hand index 1")
	}
	if len(g.DiscardPile) == 0 || g.DiscardPile[len(g.DiscardPile)-1].ID != displaced.ID {
		t.Error("expected the displaced card on top of the discard pile")
	}
	if g.Segment != SegmentMatching || g.Matching == nil {
		t.Fatalf("expected an open matching window, got segment %v", g.Segment)
	}
	if g.Matching.Remaining["alice"] {
		t.Error("the discarding player must not be a claimant")
	}
	if !g.Matching.Remaining["bob"] {
		t.Error("expected bob in the matching window")
	}

	g.apply(Action{Type: ActionPassMatch, PlayerID: "bob"})
	if g.Matching != nil {
		t.Error("expected the window to close after the last pass")
	}
	if g.CurrentPlayerID != "bob" || g.Segment != SegmentIdle {
		t.Errorf("expected bob's idle turn, got %q %v", g.CurrentPlayerID, g.Segment)
	}
}

func TestDiscardDrawnFromDiscardForbidden(t *testing.T) {
	g, chans := newTestGame("alice", "bob")
	startPlaying(t, g)

	// Alice puts a non-special card on the discard pile first.
	plantDeckTop(t, g, Five)
	g.apply(Action{Type: ActionDrawDeck, PlayerID: "alice"})
	g.apply(Action{Type: ActionDiscardDrawn, PlayerID: "alice"})
	g.apply(Action{Type: ActionPassMatch, PlayerID: "bob"})

	// Bob takes it from the discard pile and tries to throw it right back.
	g.apply(Action{Type: ActionDrawDiscard, PlayerID: "bob"})
	drainChannel(chans["bob"])
	g.apply(Action{Type: ActionDiscardDrawn, PlayerID: "bob"})

	if code := lastErrorCode(chans["bob"]); code != "MustSwap" {
		t.Errorf("expected MustSwap, got %q", code)
	}
	if g.Players["bob"].Pending == nil || g.Segment != SegmentDrawn {
		t.Error("rejected discard must leave the pending card in place")
	}
}

func TestMatchFirstValidWins(t *testing.T) {
	g, chans := newTestGame("alice", "bob", "carol")
	startPlaying(t, g)

	plantRank(t, g, "bob", 2, Five)
	plantRank(t, g, "carol", 0, Five)
	plantDeckTop(t, g, Five)

	g.apply(Action{Type: ActionDrawDeck, PlayerID: "alice"})
	g.apply(Action{Type: ActionDiscardDrawn, PlayerID: "alice"})
	if g.Segment != SegmentMatching {
		t.Fatalf("expected matching window, got %v", g.Segment)
	}

	g.apply(Action{Type: ActionAttemptMatch, PlayerID: "bob", HandIndex: 2})
	if len(g.Players["bob"].Hand) != 3 {
		t.Errorf("expected bob's hand to shrink to 3, got %d", len(g.Players["bob"].Hand))
	}
	if g.Matching != nil {
		t.Fatal("expected the window to close after a successful match")
	}

	drainChannel(chans["carol"])
	g.apply(Action{Type: ActionAttemptMatch, PlayerID: "carol", HandIndex: 0})
	if code := lastErrorCode(chans["carol"]); code != "WindowClosed" {
		t.Errorf("expected WindowClosed for the late claim, got %q", code)
	}
	if len(g.Players["carol"].Hand) != 4 {
		t.Errorf("late claim must not touch carol's hand, got %d cards", len(g.Players["carol"].Hand))
	}
	if totalCards(g) != DeckSize {
		t.Errorf("expected %d cards in play, got %d", DeckSize, totalCards(g))
	}
}

func TestMatchWrongRankPenalty(t *testing.T) {
	g, _ := newTestGame("alice", "bob", "carol")
	startPlaying(t, g)

	plantRank(t, g, "bob", 0, Two)
	plantDeckTop(t, g, Five)

	g.apply(Action{Type: ActionDrawDeck, PlayerID: "alice"})
	g.apply(Action{Type: ActionDiscardDrawn, PlayerID: "alice"})

	g.apply(Action{Type: ActionAttemptMatch, PlayerID: "bob", HandIndex: 0})
	if len(g.Players["bob"].Hand) != 5 {
		t.Errorf("expected a penalty draw to grow bob's hand to 5, got %d", len(g.Players["bob"].Hand))
	}
	if g.Matching == nil || g.Matching.Remaining["bob"] {
		t.Error("expected bob removed from the window after the failed claim")
	}
	if !g.Matching.Remaining["carol"] {
		t.Error("expected the window to stay open for carol")
	}

	g.apply(Action{Type: ActionPassMatch, PlayerID: "carol"})
	if g.Matching != nil {
		t.Error("expected the window to close once everyone passed or failed")
	}
	if totalCards(g) != DeckSize {
		t.Errorf("expected %d cards in play, got %d", DeckSize, totalCards(g))
	}
}

func TestDiscardedSpecialTriggersAbilityAndSeals(t *testing.T) {
	g, _ := newTestGame("alice", "bob")
	startPlaying(t, g)

	plantDeckTop(t, g, Queen)
	g.apply(Action{Type: ActionDrawDeck, PlayerID: "alice"})
	g.apply(Action{Type: ActionDiscardDrawn, PlayerID: "alice"})

	if g.Segment != SegmentAbility || len(g.AbilityStack) != 1 {
		t.Fatalf("expected one pending ability, got segment %v stack %d", g.Segment, len(g.AbilityStack))
	}
	active := g.AbilityStack[0]
	if active.PlayerID != "alice" || active.Source != AbilityFromDiscard || active.Stage != StageSwapping {
		t.Errorf("unexpected ability entry: %+v", active)
	}

	aliceCard := g.Players["alice"].Hand[0]
	bobCard := g.Players["bob"].Hand[1]
	g.apply(Action{Type: ActionResolveAbility, PlayerID: "alice", Ability: AbilityArgs{
		Targets: []AbilityTarget{{PlayerID: "alice", CardIndex: 0}, {PlayerID: "bob", CardIndex: 1}},
	}})

	if g.Players["alice"].Hand[0].ID != bobCard.ID || g.Players["bob"].Hand[1].ID != aliceCard.ID {
		t.Error("expected the queen to swap the two chosen cards")
	}
	if !g.DiscardSealed {
		t.Error("expected the discard top sealed after a discard-origin ability resolves")
	}
	if g.CurrentPlayerID != "bob" || g.Segment != SegmentIdle {
		t.Errorf("expected the turn to pass to bob, got %q %v", g.CurrentPlayerID, g.Segment)
	}
}

func TestMatchedSpecialPairResolvesBothAbilities(t *testing.T) {
	g, chans := newTestGame("alice", "bob", "carol")
	startPlaying(t, g)

	plantRank(t, g, "alice", 1, King)
	plantRank(t, g, "bob", 0, King)

	// Alice displaces her King through a swap, which opens a window without
	// triggering its ability.
	g.apply(Action{Type: ActionDrawDeck, PlayerID: "alice"})
	g.apply(Action{Type: ActionSwapAndDiscard, PlayerID: "alice", HandIndex: 1})
	if g.Segment != SegmentMatching {
		t.Fatalf("expected matching window on the displaced king, got %v", g.Segment)
	}

	g.apply(Action{Type: ActionAttemptMatch, PlayerID: "bob", HandIndex: 0})
	if len(g.AbilityStack) != 2 {
		t.Fatalf("expected two stacked abilities for the matched pair, got %d", len(g.AbilityStack))
	}
	top := g.AbilityStack[1]
	if top.PlayerID != "bob" || top.Source != AbilityFromStackPair {
		t.Errorf("expected the covered card's ability on top, got %+v", top)
	}

	// Bob resolves both King peeks in LIFO order.
	drainChannel(chans["bob"])
	g.apply(Action{Type: ActionResolveAbility, PlayerID: "bob", Ability: AbilityArgs{
		Targets: []AbilityTarget{{PlayerID: "carol", CardIndex: 0}},
	}})
	if len(g.AbilityStack) != 1 {
		t.Fatalf("expected one ability left, got %d", len(g.AbilityStack))
	}
	g.apply(Action{Type: ActionResolveAbility, PlayerID: "bob", Ability: AbilityArgs{
		Targets: []AbilityTarget{{PlayerID: "alice", CardIndex: 0}},
	}})

	// Completion of a match-origin group opens a fresh window on the played
	// card, with the matcher as its owner.
	if g.Matching == nil {
		t.Fatal("expected a matching window on the played king")
	}
	if g.Matching.OriginalPlayerID != "bob" || g.Matching.Remaining["bob"] {
		t.Error("expected bob to own the new window and be excluded from it")
	}

	reveals := 0
	for _, raw := range drainChannel(chans["bob"]) {
		var msg struct {
			Type string `json:"type"`
		}
		if json.Unmarshal(raw, &msg) == nil && msg.Type == "ability_reveal" {
			reveals++
		}
	}
	if reveals != 2 {
		t.Errorf("expected 2 ability reveals for bob, got %d", reveals)
	}
}

func TestKingPeekRevealsOnlyToResolver(t *testing.T) {
	g, chans := newTestGame("alice", "bob")
	startPlaying(t, g)

	plantDeckTop(t, g, King)
	g.apply(Action{Type: ActionDrawDeck, PlayerID: "alice"})
	g.apply(Action{Type: ActionDiscardDrawn, PlayerID: "alice"})

	drainChannel(chans["alice"])
	drainChannel(chans["bob"])
	g.apply(Action{Type: ActionResolveAbility, PlayerID: "alice", Ability: AbilityArgs{
		Targets: []AbilityTarget{{PlayerID: "bob", CardIndex: 2}},
	}})

	sawReveal := func(msgs [][]byte) bool {
		for _, raw := range msgs {
			var msg struct {
				Type string `json:"type"`
			}
			if json.Unmarshal(raw, &msg) == nil && msg.Type == "ability_reveal" {
				return true
			}
		}
		return false
	}
	if !sawReveal(drainChannel(chans["alice"])) {
		t.Error("expected the resolver to receive the reveal")
	}
	if sawReveal(drainChannel(chans["bob"])) {
		t.Error("the reveal must not reach other players")
	}
}

func TestJackSwapRequiresOneOwnCard(t *testing.T) {
	g, chans := newTestGame("alice", "bob", "carol")
	startPlaying(t, g)

	plantDeckTop(t, g, Jack)
	g.apply(Action{Type: ActionDrawDeck, PlayerID: "alice"})
	g.apply(Action{Type: ActionDiscardDrawn, PlayerID: "alice"})

	drainChannel(chans["alice"])
	g.apply(Action{Type: ActionResolveAbility, PlayerID: "alice", Ability: AbilityArgs{
		Targets: []AbilityTarget{{PlayerID: "bob", CardIndex: 0}, {PlayerID: "carol", CardIndex: 0}},
	}})
	if code := lastErrorCode(chans["alice"]); code != "InvalidTarget" {
		t.Errorf("expected InvalidTarget for a jack swap without an own card, got %q", code)
	}
	if len(g.AbilityStack) != 1 {
		t.Error("a rejected resolution must keep the ability pending")
	}

	bobCard := g.Players["bob"].Hand[0]
	aliceCard := g.Players["alice"].Hand[2]
	g.apply(Action{Type: ActionResolveAbility, PlayerID: "alice", Ability: AbilityArgs{
		Targets: []AbilityTarget{{PlayerID: "alice", CardIndex: 2}, {PlayerID: "bob", CardIndex: 0}},
	}})
	if g.Players["alice"].Hand[2].ID != bobCard.ID || g.Players["bob"].Hand[0].ID != aliceCard.ID {
		t.Error("expected the jack to swap the chosen own and opponent cards")
	}
}

func TestSkipAbility(t *testing.T) {
	g, _ := newTestGame("alice", "bob")
	startPlaying(t, g)

	plantDeckTop(t, g, King)
	g.apply(Action{Type: ActionDrawDeck, PlayerID: "alice"})
	g.apply(Action{Type: ActionDiscardDrawn, PlayerID: "alice"})

	g.apply(Action{Type: ActionResolveAbility, PlayerID: "alice", Ability: AbilityArgs{Skip: true}})
	if len(g.AbilityStack) != 0 {
		t.Error("expected the skipped ability removed from the stack")
	}
	if !g.DiscardSealed {
		t.Error("a skipped discard-origin ability still seals the pile")
	}
	if g.CurrentPlayerID != "bob" {
		t.Errorf("expected the turn to advance to bob, got %q", g.CurrentPlayerID)
	}
}

func TestCallCheckFinalRoundAndScoring(t *testing.T) {
	g, _ := newTestGame("alice", "bob")
	startPlaying(t, g)

	plantRank(t, g, "alice", 0, Ace)
	plantRank(t, g, "alice", 1, Ace)
	plantRank(t, g, "alice", 2, Two)
	plantRank(t, g, "alice", 3, Two)
	plantRank(t, g, "bob", 0, King)
	plantRank(t, g, "bob", 1, Ten)
	plantRank(t, g, "bob", 2, Nine)
	plantRank(t, g, "bob", 3, Eight)

	g.apply(Action{Type: ActionCallCheck, PlayerID: "alice"})
	if g.Phase != PhaseFinalTurns {
		t.Fatalf("expected final_turns, got %v", g.Phase)
	}
	if !g.Players["alice"].Locked || !g.Players["alice"].CalledCheck {
		t.Error("expected the caller locked after calling check")
	}
	if g.CurrentPlayerID != "bob" {
		t.Fatalf("expected bob's final turn, got %q", g.CurrentPlayerID)
	}

	// Bob's final turn; his discard opens no window since alice is locked.
	plantDeckTop(t, g, Three)
	g.apply(Action{Type: ActionDrawDeck, PlayerID: "bob"})
	g.apply(Action{Type: ActionDiscardDrawn, PlayerID: "bob"})

	if g.Phase != PhaseGameOver || g.Results == nil {
		t.Fatalf("expected game over after the final round, got %v", g.Phase)
	}
	if len(g.Results.WinnerIDs) != 1 || g.Results.WinnerIDs[0] != "alice" {
		t.Errorf("expected alice to win, got %v", g.Results.WinnerIDs)
	}
	if g.Results.PlayerScores["alice"] != 2 {
		t.Errorf("expected alice to score 2, got %d", g.Results.PlayerScores["alice"])
	}
	if g.Results.LoserID != "bob" {
		t.Errorf("expected bob as the unique loser, got %q", g.Results.LoserID)
	}
	if !g.Finished {
		t.Error("expected the game marked finished")
	}
}

func TestCallCheckAfterDrawRejected(t *testing.T) {
	g, chans := newTestGame("alice", "bob")
	startPlaying(t, g)

	g.apply(Action{Type: ActionDrawDeck, PlayerID: "alice"})
	drainChannel(chans["alice"])
	g.apply(Action{Type: ActionCallCheck, PlayerID: "alice"})
	if code := lastErrorCode(chans["alice"]); code != "InvalidPhase" {
		t.Errorf("expected InvalidPhase, got %q", code)
	}
	if g.Check != nil {
		t.Error("a rejected check call must not start the final round")
	}
}

func TestJointWinnersNoLoser(t *testing.T) {
	g, _ := newTestGame("alice", "bob")
	startPlaying(t, g)

	plantRank(t, g, "alice", 0, Two)
	plantRank(t, g, "alice", 1, Three)
	plantRank(t, g, "alice", 2, Four)
	plantRank(t, g, "alice", 3, Five)
	plantRank(t, g, "bob", 0, Five)
	plantRank(t, g, "bob", 1, Four)
	plantRank(t, g, "bob", 2, Three)
	plantRank(t, g, "bob", 3, Two)

	g.apply(Action{Type: ActionCallCheck, PlayerID: "alice"})
	plantDeckTop(t, g, Six)
	g.apply(Action{Type: ActionDrawDeck, PlayerID: "bob"})
	g.apply(Action{Type: ActionDiscardDrawn, PlayerID: "bob"})

	if g.Phase != PhaseGameOver {
		t.Fatalf("expected game over, got %v", g.Phase)
	}
	if len(g.Results.WinnerIDs) != 2 {
		t.Errorf("expected joint winners on a tie, got %v", g.Results.WinnerIDs)
	}
	if g.Results.LoserID != "" {
		t.Errorf("expected no loser on a tie, got %q", g.Results.LoserID)
	}
}

func TestDeckExhaustedLeavesStateUntouched(t *testing.T) {
	g, chans := newTestGame("alice", "bob")
	startPlaying(t, g)

	// Move the entire deck into alice's hand so both sources are empty.
	g.Players["alice"].Hand = append(g.Players["alice"].Hand, g.Deck...)
	g.Deck = nil

	handBefore := len(g.Players["alice"].Hand)
	drainChannel(chans["alice"])
	g.apply(Action{Type: ActionDrawDeck, PlayerID: "alice"})

	if code := lastErrorCode(chans["alice"]); code != "DeckExhausted" {
		t.Errorf("expected DeckExhausted, got %q", code)
	}
	if g.ErrorState != "DeckExhausted" {
		t.Errorf("expected the DeckExhausted error state, got %q", g.ErrorState)
	}
	if g.Players["alice"].Pending != nil || g.Segment != SegmentIdle {
		t.Error("a failed draw must not change the turn segment or create a pending card")
	}
	if len(g.Players["alice"].Hand) != handBefore {
		t.Error("a failed draw must not change the hand")
	}
	if g.Corrupted {
		t.Error("deck exhaustion is recoverable, not a corruption")
	}
}

func TestReplenishKeepsDiscardTop(t *testing.T) {
	g, _ := newTestGame("alice", "bob")
	startPlaying(t, g)

	// Empty the deck into the discard pile, keeping conservation intact.
	g.DiscardPile = append(g.DiscardPile, g.Deck...)
	g.Deck = nil
	top := g.DiscardPile[len(g.DiscardPile)-1]
	pileSize := len(g.DiscardPile)

	g.apply(Action{Type: ActionDrawDeck, PlayerID: "alice"})

	if g.Players["alice"].Pending == nil {
		t.Fatal("expected the draw to succeed after the reshuffle")
	}
	if len(g.DiscardPile) != 1 || g.DiscardPile[0].ID != top.ID {
		t.Error("expected the discard top to survive the reshuffle")
	}
	if len(g.Deck) != pileSize-2 {
		t.Errorf("expected %d cards back in the deck, got %d", pileSize-2, len(g.Deck))
	}
	if totalCards(g) != DeckSize {
		t.Errorf("expected %d cards in play, got %d", DeckSize, totalCards(g))
	}
}

func TestStaleTimerTokenIgnored(t *testing.T) {
	g, _ := newTestGame("alice", "bob")
	startPlaying(t, g)

	stale := g.turnToken - 1
	g.apply(Action{Type: ActionTurnTimeout, Token: stale})
	if g.CurrentPlayerID != "alice" || g.Segment != SegmentIdle {
		t.Error("a stale timeout must not advance the turn")
	}
}

func TestTurnTimeoutIdleLosesTurn(t *testing.T) {
	g, _ := newTestGame("alice", "bob")
	startPlaying(t, g)

	g.apply(Action{Type: ActionTurnTimeout, Token: g.turnToken})
	if g.CurrentPlayerID != "bob" {
		t.Errorf("expected the turn to pass to bob, got %q", g.CurrentPlayerID)
	}
}

func TestTurnTimeoutDrawnAutoResolves(t *testing.T) {
	g, _ := newTestGame("alice", "bob")
	startPlaying(t, g)

	g.apply(Action{Type: ActionDrawDeck, PlayerID: "alice"})
	drawn := g.Players["alice"].Pending.Card

	g.apply(Action{Type: ActionTurnTimeout, Token: g.turnToken})
	if g.Players["alice"].Pending != nil {
		t.Error("expected the pending card resolved by the timeout")
	}
	if g.DiscardPile[len(g.DiscardPile)-1].ID != drawn.ID {
		t.Error("expected the deck-drawn card discarded on timeout")
	}
	if !g.DiscardSealed {
		t.Error("a timeout resolution opens no matching window")
	}
	if g.CurrentPlayerID != "bob" {
		t.Errorf("expected the turn to pass to bob, got %q", g.CurrentPlayerID)
	}
	if totalCards(g) != DeckSize {
		t.Errorf("expected %d cards in play, got %d", DeckSize, totalCards(g))
	}
}

func TestDisconnectGraceForfeit(t *testing.T) {
	g, _ := newTestGame("alice", "bob", "carol")
	startPlaying(t, g)

	g.apply(Action{Type: ActionPlayerDisconnected, PlayerID: "alice"})
	if g.Players["alice"].Connected {
		t.Error("expected alice marked disconnected")
	}
	if g.Players["alice"].Status != StatusPlaying {
		t.Error("a disconnect alone must not forfeit")
	}

	g.apply(Action{Type: ActionGraceTimeout, PlayerID: "alice"})
	if g.Players["alice"].Status != StatusForfeited {
		t.Error("expected alice forfeited after the grace period")
	}
	if g.CurrentPlayerID != "bob" {
		t.Errorf("expected the turn to pass to bob, got %q", g.CurrentPlayerID)
	}
	if g.Phase != PhasePlay {
		t.Errorf("two active players remain, expected play to continue, got %v", g.Phase)
	}
}

func TestReconnectCancelsForfeit(t *testing.T) {
	g, _ := newTestGame("alice", "bob")
	startPlaying(t, g)

	g.apply(Action{Type: ActionPlayerDisconnected, PlayerID: "alice"})

	newSend := make(chan []byte, 100)
	g.apply(Action{Type: ActionPlayerReconnected, PlayerID: "alice", NewSend: newSend})
	if !g.Players["alice"].Connected {
		t.Error("expected alice reconnected")
	}

	g.apply(Action{Type: ActionGraceTimeout, PlayerID: "alice"})
	if g.Players["alice"].Status != StatusPlaying {
		t.Error("a grace timeout after reconnect must not forfeit")
	}
}

func TestLastActivePlayerEndsGame(t *testing.T) {
	g, _ := newTestGame("alice", "bob")
	startPlaying(t, g)

	g.apply(Action{Type: ActionPlayerDisconnected, PlayerID: "alice"})
	g.apply(Action{Type: ActionGraceTimeout, PlayerID: "alice"})

	if g.Phase != PhaseGameOver {
		t.Fatalf("expected game over with one active player left, got %v", g.Phase)
	}
	if len(g.Results.WinnerIDs) != 1 || g.Results.WinnerIDs[0] != "bob" {
		t.Errorf("expected bob as the remaining winner, got %v", g.Results.WinnerIDs)
	}
}

func TestConservationAcrossFullRound(t *testing.T) {
	g, _ := newTestGame("alice", "bob", "carol")
	startPlaying(t, g)

	for turn := 0; turn < 6; turn++ {
		current := g.CurrentPlayerID
		g.apply(Action{Type: ActionDrawDeck, PlayerID: current})
		g.apply(Action{Type: ActionSwapAndDiscard, PlayerID: current, HandIndex: 0})
		for g.Matching != nil {
			g.apply(Action{Type: ActionPassMatch, PlayerID: g.Matching.remainingClaimants()[0]})
		}
		for g.Segment == SegmentAbility && len(g.AbilityStack) > 0 {
			g.apply(Action{Type: ActionResolveAbility,
				PlayerID: g.AbilityStack[len(g.AbilityStack)-1].PlayerID,
				Ability:  AbilityArgs{Skip: true}})
		}
		if totalCards(g) != DeckSize {
			t.Fatalf("turn %d: expected %d cards in play, got %d", turn, DeckSize, totalCards(g))
		}
		if g.Corrupted {
			t.Fatal("game unexpectedly corrupted")
		}
	}
}
