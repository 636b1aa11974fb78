package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"check-game-server/api"
	"check-game-server/config"
	"check-game-server/lobby"
	"check-game-server/loghandler"
	"check-game-server/storage"
	"check-game-server/ws"
)

func main() {
	slog.SetDefault(slog.New(loghandler.NewCompactHandler(os.Stdout, slog.LevelInfo)))

	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found; using environment variables", "tag", "main")
	}

	cfg := config.Load()

	if cfg.AuthBaseURL == "" {
		slog.Warn("AUTH_BASE_URL is not set; clients play with anonymous ids", "tag", "main")
	}
	if cfg.RejoinSecret == "" {
		slog.Warn("REJOIN_SECRET is not set; rejoin after reconnect is disabled", "tag", "main")
	}
	slog.Info("configuration loaded", "tag", "main",
		"minPlayers", cfg.MinPlayers, "maxPlayers", cfg.MaxPlayers,
		"cardsPerPlayer", cfg.CardsPerPlayer, "turnLimitSec", cfg.TurnLimitSec,
		"matchWindowSec", cfg.MatchWindowSec, "wsPort", cfg.WSPort)

	ctx := context.Background()

	var store storage.ResultsStore
	pg, err := storage.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("connecting to Postgres", "tag", "main", "err", err)
		os.Exit(1)
	}
	if pg != nil {
		store = pg
		defer pg.Close()
	} else {
		slog.Warn("DATABASE_URL is not set; game history is not persisted", "tag", "main")
	}

	registry := lobby.NewRegistry(cfg, store)

	hub := ws.NewHub(cfg, registry)
	go hub.Run(ctx)

	apiHandler := api.NewHandler(cfg, store)

	http.HandleFunc("/ws", hub.ServeWS)
	http.HandleFunc("/api/history", apiHandler.History)

	addr := fmt.Sprintf(":%d", cfg.WSPort)
	slog.Info("Check! server listening", "tag", "main", "addr", addr)
	if err := http.ListenAndServe(addr, nil); err != nil {
		slog.Error("server stopped", "tag", "main", "err", err)
		os.Exit(1)
	}
}
