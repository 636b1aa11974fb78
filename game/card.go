package game

import (
	"math/rand"

	"github.com/google/uuid"
)

// Suit of a standard playing card.
type Suit int

const (
	Clubs Suit = iota
	Diamonds
	Hearts
	Spades
)

// String returns the protocol string for a Suit.
func (s Suit) String() string {
	switch s {
	case Clubs:
		return "clubs"
	case Diamonds:
		return "diamonds"
	case Hearts:
		return "hearts"
	case Spades:
		return "spades"
	default:
		return "unknown"
	}
}

// Rank of a standard playing card. Ace is low.
type Rank int

const (
	Ace Rank = iota + 1
	Two
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
)

// String returns the protocol string for a Rank.
func (r Rank) String() string {
	switch r {
	case Ace:
		return "ace"
	case Jack:
		return "jack"
	case Queen:
		return "queen"
	case King:
		return "king"
	default:
		if r >= Two && r <= Ten {
			return [...]string{"2", "3", "4", "5", "6", "7", "8", "9", "10"}[r-Two]
		}
		return "unknown"
	}
}

// Value returns the scoring value of the rank: Ace counts -1, number cards
// their face value, Jack 11, Queen 12, King 13.
func (r Rank) Value() int {
	if r == Ace {
		return -1
	}
	return int(r)
}

// IsSpecial reports whether a card of this rank triggers an ability when it
// becomes the discard pile top through a discard or a successful match.
func (r Rank) IsSpecial() bool {
	return r == Jack || r == Queen || r == King
}

// DeckSize is the number of cards in play from deal to game over.
const DeckSize = 52

// Card is a single physical card instance. ID is unique per instance and
// immutable once dealt.
type Card struct {
	ID   string
	Suit Suit
	Rank Rank
}

// Label returns a human-readable card name for log entries.
func (c Card) Label() string {
	return c.Rank.String() + " of " + c.Suit.String()
}

// NewDeck returns an ordered standard 52-card deck with fresh instance IDs.
func NewDeck() []Card {
	deck := make([]Card, 0, DeckSize)
	for s := Clubs; s <= Spades; s++ {
		for r := Ace; r <= King; r++ {
			deck = append(deck, Card{ID: uuid.NewString(), Suit: s, Rank: r})
		}
	}
	return deck
}

// shuffle performs a Fisher-Yates shuffle in place.
func shuffle(cards []Card, rng *rand.Rand) {
	rng.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})
}
