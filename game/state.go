package game

// Phase is the top-level game phase.
type Phase int

const (
	PhaseAwaitingPlayers Phase = iota
	PhaseInitialPeek
	PhasePlay
	PhaseFinalTurns
	PhaseScoring
	PhaseGameOver
)

// String returns the protocol string for a Phase.
func (p Phase) String() string {
	switch p {
	case PhaseAwaitingPlayers:
		return "awaiting_players"
	case PhaseInitialPeek:
		return "initial_peek"
	case PhasePlay:
		return "play"
	case PhaseFinalTurns:
		return "final_turns"
	case PhaseScoring:
		return "scoring"
	case PhaseGameOver:
		return "game_over"
	default:
		return "unknown"
	}
}

// TurnSegment is the sub-state within a play or final turn.
type TurnSegment int

const (
	SegmentIdle TurnSegment = iota
	SegmentDrawn
	SegmentMatching
	SegmentAbility
)

// String returns the protocol string for a TurnSegment.
func (ts TurnSegment) String() string {
	switch ts {
	case SegmentIdle:
		return "idle"
	case SegmentDrawn:
		return "drawn"
	case SegmentMatching:
		return "matching"
	case SegmentAbility:
		return "ability_resolution"
	default:
		return "unknown"
	}
}

// MatchingOpportunity is the out-of-turn window opened after a card enters
// the discard pile through a normal turn action. Remaining holds the
// claimants still allowed to act; the first valid match closes the window
// for everyone.
type MatchingOpportunity struct {
	CardToMatch      Card
	OriginalPlayerID string
	Remaining        map[string]bool
}

// AbilityStage is the resolution sub-stage of a pending ability.
type AbilityStage int

const (
	StagePeeking AbilityStage = iota
	StageSwapping
)

// String returns the protocol string for an AbilityStage.
func (as AbilityStage) String() string {
	switch as {
	case StagePeeking:
		return "peeking"
	case StageSwapping:
		return "swapping"
	default:
		return "unknown"
	}
}

// AbilitySource records how a pending ability was triggered.
type AbilitySource int

const (
	// AbilityFromDiscard: a special card was drawn from the deck and
	// discarded directly.
	AbilityFromDiscard AbilitySource = iota
	// AbilityFromStack: a special card was played via a successful match.
	AbilityFromStack
	// AbilityFromStackPair: the covered second card of a matched special
	// pair.
	AbilityFromStackPair
)

// String returns the protocol string for an AbilitySource.
func (s AbilitySource) String() string {
	switch s {
	case AbilityFromDiscard:
		return "discard"
	case AbilityFromStack:
		return "stack"
	case AbilityFromStackPair:
		return "stack_second_of_pair"
	default:
		return "unknown"
	}
}

// PendingAbility is one entry on the LIFO ability stack. The stack resolves
// last-in-first-out, so the second ability of a matched pair resolves first.
type PendingAbility struct {
	PlayerID string
	Card     Card
	Stage    AbilityStage
	Source   AbilitySource
}

// CheckDetails tracks the final round after a player calls Check. Turn
// advancement consumes FinalTurnOrder entries until exhausted, then the
// game moves to scoring.
type CheckDetails struct {
	CallerID       string
	FinalTurnOrder []string
	FinalTurnIndex int
}

// LogEntry is one structured server log line kept on the game and broadcast
// to the room.
type LogEntry struct {
	Message string `json:"message"`
	At      int64  `json:"at"`
}

// stageForRank returns the resolution stage a special rank starts in. Kings
// peek; Queens and Jacks swap.
func stageForRank(r Rank) AbilityStage {
	if r == King {
		return StagePeeking
	}
	return StageSwapping
}
