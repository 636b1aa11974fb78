package gameerrors

import "fmt"

// Kind classifies a rejected event. Validation and RuleViolation are
// surfaced to the originating player only; ResourceExhaustion enters a
// recoverable error state; Fatal means a defensive invariant check failed
// and the game refuses further mutation.
type Kind int

const (
	Validation Kind = iota
	RuleViolation
	ResourceExhaustion
	Fatal
)

// String returns the protocol string for a Kind.
func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case RuleViolation:
		return "rule_violation"
	case ResourceExhaustion:
		return "resource_exhaustion"
	case Fatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Error is a typed game error with a stable wire code.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Game rule and validation errors. Shared between the game, ws and lobby
// packages to avoid circular imports.
var (
	ErrNotYourTurn    = &Error{RuleViolation, "NotYourTurn", "it is not your turn"}
	ErrInvalidPhase   = &Error{RuleViolation, "InvalidPhase", "that action is not allowed in the current phase"}
	ErrWindowClosed   = &Error{RuleViolation, "WindowClosed", "the matching window is closed"}
	ErrHandLocked     = &Error{RuleViolation, "HandLocked", "your hand is locked"}
	ErrMustSwap       = &Error{RuleViolation, "MustSwap", "a card drawn from the discard pile must be swapped into your hand"}
	ErrAlreadyCalled  = &Error{RuleViolation, "CheckAlreadyCalled", "check has already been called"}
	ErrInvalidIndex   = &Error{Validation, "InvalidIndex", "card index out of range"}
	ErrUnknownPlayer  = &Error{Validation, "UnknownPlayer", "you are not part of this game"}
	ErrEmptyDiscard   = &Error{Validation, "EmptyDiscard", "the discard pile is empty"}
	ErrAlreadyJoined  = &Error{Validation, "AlreadyJoined", "a player with this id has already joined"}
	ErrInvalidTarget  = &Error{Validation, "InvalidTarget", "invalid ability target"}
	ErrNameInvalid    = &Error{Validation, "NameInvalid", "invalid player name"}
	ErrGameFull       = &Error{RuleViolation, "GameFull", "the game is full"}
	ErrGameStarted    = &Error{RuleViolation, "GameStarted", "the game has already started"}
	ErrDeckExhausted  = &Error{ResourceExhaustion, "DeckExhausted", "both the deck and the discard pile are exhausted"}
	ErrGameCorrupted  = &Error{Fatal, "GameCorrupted", "the game state failed an invariant check and accepts no further events"}
)

// Lobby sentinel errors for join/rejoin flows.
var (
	ErrGameNotFound = &Error{Validation, "GameNotFound", "game not found"}
	ErrGameFinished = &Error{RuleViolation, "GameFinished", "game finished"}
	ErrInvalidToken = &Error{Validation, "InvalidToken", "invalid rejoin token"}
)
