package storage

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS game_history (
	id UUID PRIMARY KEY,
	game_id TEXT NOT NULL,
	played_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	loser_user_id TEXT
);
CREATE TABLE IF NOT EXISTS game_history_players (
	game_history_id UUID NOT NULL REFERENCES game_history(id),
	user_id TEXT NOT NULL,
	display_name TEXT NOT NULL,
	score INT NOT NULL,
	won BOOLEAN NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_game_history_players_user ON game_history_players(user_id);
CREATE INDEX IF NOT EXISTS idx_game_history_players_game ON game_history_players(game_history_id);
`

// Store persists and retrieves finished games in Postgres.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to Postgres and ensures the history tables exist. If
// databaseURL is empty, NewStore returns (nil, nil) and no persistence occurs.
func NewStore(ctx context.Context, databaseURL string) (*Store, error) {
	if databaseURL == "" {
		return nil, nil
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	if _, err := pool.Exec(ctx, createTableSQL); err != nil {
		pool.Close()
		return nil, err
	}
	slog.Info("connected to Postgres", "tag", "storage")
	return &Store{pool: pool}, nil
}

// Close closes the connection pool.
func (s *Store) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

// InsertGameResult records one finished game and its per-player lines in a
// single transaction.
func (s *Store) InsertGameResult(ctx context.Context, gameID string, players []PlayerResult, loserID string) error {
	if s == nil || s.pool == nil {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	recordID := uuid.NewString()
	if _, err := tx.Exec(ctx,
		`INSERT INTO game_history (id, game_id, loser_user_id) VALUES ($1, $2, NULLIF($3, ''))`,
		recordID, gameID, loserID); err != nil {
		return err
	}
	for _, p := range players {
		if _, err := tx.Exec(ctx,
			`INSERT INTO game_history_players (game_history_id, user_id, display_name, score, won)
			 VALUES ($1, $2, $3, $4, $5)`,
			recordID, p.UserID, p.Name, p.Score, p.Won); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// ListByUserID returns the most recent games the user took part in, newest
// first, each with the full player lines of that game.
func (s *Store) ListByUserID(ctx context.Context, userID string) ([]GameRecord, error) {
	if s == nil || s.pool == nil {
		return []GameRecord{}, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT h.id, h.game_id, h.played_at, COALESCE(h.loser_user_id, ''),
		       p.user_id, p.display_name, p.score, p.won
		FROM game_history h
		JOIN game_history_players p ON p.game_history_id = h.id
		WHERE h.id IN (
			SELECT game_history_id FROM game_history_players
			WHERE user_id = $1
		)
		ORDER BY h.played_at DESC, h.id, p.user_id
		LIMIT 400`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []GameRecord
	index := map[string]int{}
	for rows.Next() {
		var (
			rec GameRecord
			pl  PlayerResult
		)
		if err := rows.Scan(&rec.ID, &rec.GameID, &rec.PlayedAt, &rec.LoserID,
			&pl.UserID, &pl.Name, &pl.Score, &pl.Won); err != nil {
			return nil, err
		}
		i, ok := index[rec.ID]
		if !ok {
			records = append(records, rec)
			i = len(records) - 1
			index[rec.ID] = i
		}
		records[i].Players = append(records[i].Players, pl)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if records == nil {
		records = []GameRecord{}
	}
	return records, nil
}
