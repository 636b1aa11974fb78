package lobby

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"check-game-server/auth"
	"check-game-server/config"
	"check-game-server/game"
	"check-game-server/gameerrors"
	"check-game-server/storage"
)

const persistTimeout = 10 * time.Second

// Registry tracks live games by id. Game creation, lookup and rejoin token
// handling live here; all per-game state stays behind each game's action
// channel.
type Registry struct {
	mu    sync.Mutex
	games map[string]*game.Game

	cfg   *config.Config
	store storage.ResultsStore
}

// NewRegistry creates an empty registry. store may be nil, in which case
// finished games are not persisted.
func NewRegistry(cfg *config.Config, store storage.ResultsStore) *Registry {
	return &Registry{
		games: make(map[string]*game.Game),
		cfg:   cfg,
		store: store,
	}
}

// CreateGame starts a new empty game and its goroutine. The caller joins it
// through the game's action channel like everyone else.
func (r *Registry) CreateGame() *game.Game {
	g := game.NewGame(uuid.NewString(), r.cfg, time.Now().UnixNano())
	g.OnGameEnd = r.onGameEnd

	r.mu.Lock()
	r.games[g.ID] = g
	r.mu.Unlock()

	go g.Run()
	slog.Info("game created", "tag", "lobby", "game", g.ID)
	return g
}

// Find returns the live game with the given id.
func (r *Registry) Find(gameID string) (*game.Game, *gameerrors.Error) {
	r.mu.Lock()
	g, ok := r.games[gameID]
	r.mu.Unlock()
	if !ok {
		return nil, gameerrors.ErrGameNotFound
	}
	return g, nil
}

// RejoinToken issues a token binding a player seat in a game. Handed to the
// client on join so a dropped connection can reclaim the seat.
func (r *Registry) RejoinToken(gameID, playerID string) (string, error) {
	return auth.SignRejoinToken(r.cfg.RejoinSecret, gameID, playerID)
}

// Rejoin validates a rejoin token and returns the live game plus the seat it
// unlocks. The actual seat reclamation goes through the game's action
// channel.
func (r *Registry) Rejoin(gameID, token string) (*game.Game, string, *gameerrors.Error) {
	claims, err := auth.ParseRejoinToken(r.cfg.RejoinSecret, token)
	if err != nil || claims.GameID != gameID {
		return nil, "", gameerrors.ErrInvalidToken
	}
	g, ferr := r.Find(gameID)
	if ferr != nil {
		return nil, "", ferr
	}
	if g.Finished {
		return nil, "", gameerrors.ErrGameFinished
	}
	return g, claims.PlayerID, nil
}

// onGameEnd persists the terminal result and drops the game from the
// registry. Called once by the game goroutine, so reading game state here is
// safe.
func (r *Registry) onGameEnd(g *game.Game, results *game.Results) {
	r.mu.Lock()
	delete(r.games, g.ID)
	r.mu.Unlock()

	if r.store == nil {
		return
	}

	won := make(map[string]bool, len(results.WinnerIDs))
	for _, id := range results.WinnerIDs {
		won[id] = true
	}
	var players []storage.PlayerResult
	for _, id := range g.TurnOrder {
		p := g.Players[id]
		if p == nil {
			continue
		}
		players = append(players, storage.PlayerResult{
			UserID: p.ID,
			Name:   p.Name,
			Score:  p.Score,
			Won:    won[p.ID],
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := r.store.InsertGameResult(ctx, g.ID, players, results.LoserID); err != nil {
		slog.Error("persisting game result", "tag", "lobby", "game", g.ID, "err", err)
	}
}
