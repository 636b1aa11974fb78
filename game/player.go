package game

// PlayerStatus distinguishes active players from forfeited ones. A forfeited
// player is permanently out of the turn order and scoring eligibility, but
// their last known hand still appears in terminal results.
type PlayerStatus int

const (
	StatusPlaying PlayerStatus = iota
	StatusForfeited
)

// String returns the protocol string for a PlayerStatus.
func (ps PlayerStatus) String() string {
	switch ps {
	case StatusPlaying:
		return "playing"
	case StatusForfeited:
		return "forfeited"
	default:
		return "unknown"
	}
}

// DrawSource identifies where a pending drawn card came from. A card drawn
// from the discard pile must be swapped into the hand; it cannot be
// discarded as-is.
type DrawSource int

const (
	SourceDeck DrawSource = iota
	SourceDiscard
)

// String returns the protocol string for a DrawSource.
func (ds DrawSource) String() string {
	switch ds {
	case SourceDeck:
		return "deck"
	case SourceDiscard:
		return "discard"
	default:
		return "unknown"
	}
}

// PendingDraw is a card held outside the hand, awaiting a swap-or-discard
// decision. A player has at most one at a time.
type PendingDraw struct {
	Card   Card
	Source DrawSource
}

// Player is one seat in a game. Hand positions are meaningful; swaps are by
// index.
type Player struct {
	ID   string
	Name string
	Send chan []byte // reference to the client's send channel; nil while disconnected

	Hand        []Card
	Ready       bool
	IsDealer    bool
	CalledCheck bool
	Locked      bool
	Score       int
	Connected   bool
	Status      PlayerStatus
	Pending     *PendingDraw

	// PeekIndices are the hand positions (the outer two) revealed to this
	// player during the initial peek. PeekAcked is set once acknowledged.
	PeekIndices []int
	PeekAcked   bool
}

// NewPlayer creates a connected, active player.
func NewPlayer(id, name string, send chan []byte) *Player {
	return &Player{
		ID:        id,
		Name:      name,
		Send:      send,
		Connected: true,
		Status:    StatusPlaying,
	}
}
