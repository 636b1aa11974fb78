package storage

import (
	"context"
	"time"
)

// PlayerResult is one player's line in a finished game record.
type PlayerResult struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Score  int    `json:"score"`
	Won    bool   `json:"won"`
}

// GameRecord is one finished game as stored and as served by the history API.
type GameRecord struct {
	ID       string         `json:"id"`
	GameID   string         `json:"gameId"`
	PlayedAt time.Time      `json:"playedAt"`
	LoserID  string         `json:"loserId,omitempty"`
	Players  []PlayerResult `json:"players"`
}

// ResultsStore abstracts persistence for finished games. Implementations can
// be swapped for testing or different backends.
type ResultsStore interface {
	InsertGameResult(ctx context.Context, gameID string, players []PlayerResult, loserID string) error
	ListByUserID(ctx context.Context, userID string) ([]GameRecord, error)
	Close()
}

// Ensure *Store implements ResultsStore at compile time.
var _ ResultsStore = (*Store)(nil)
