package config

import (
	"encoding/json"
	"log/slog"
	"os"
	"strconv"
)

// Config holds all configurable game and server parameters.
type Config struct {
	MinPlayers       int `json:"min_players"`
	MaxPlayers       int `json:"max_players"`
	CardsPerPlayer   int `json:"cards_per_player"`
	PeekSeconds      int `json:"peek_seconds"`
	TurnLimitSec     int `json:"turn_limit_sec"`
	MatchWindowSec   int `json:"match_window_sec"`
	GraceSec         int `json:"grace_sec"`
	PenaltyDrawCount int `json:"penalty_draw_count"`
	MaxNameLength    int `json:"max_name_length"`
	WSPort           int `json:"ws_port"`

	// DatabaseURL enables game history persistence when non-empty.
	DatabaseURL string `json:"database_url"`
	// AuthBaseURL is the identity provider base; its JWKS endpoint verifies
	// identity tokens. Empty disables token verification.
	AuthBaseURL string `json:"auth_base_url"`
	// RejoinSecret signs short-lived rejoin tokens handed out on join.
	RejoinSecret string `json:"rejoin_secret"`
}

// Defaults returns a Config with all default values.
func Defaults() *Config {
	return &Config{
		MinPlayers:       2,
		MaxPlayers:       4,
		CardsPerPlayer:   4,
		PeekSeconds:      10,
		TurnLimitSec:     30,
		MatchWindowSec:   8,
		GraceSec:         60,
		PenaltyDrawCount: 1,
		MaxNameLength:    24,
		WSPort:           8080,
	}
}

// Load reads configuration from an optional config.json file, then applies
// environment variable overrides. Fields not set in either source retain
// their default values.
func Load() *Config {
	cfg := Defaults()

	if f, err := os.Open("config.json"); err == nil {
		defer f.Close()
		if err := json.NewDecoder(f).Decode(cfg); err != nil {
			slog.Warn("failed to parse config.json", "tag", "config", "err", err)
		}
	}

	overrideInt(&cfg.MinPlayers, "MIN_PLAYERS")
	overrideInt(&cfg.MaxPlayers, "MAX_PLAYERS")
	overrideInt(&cfg.CardsPerPlayer, "CARDS_PER_PLAYER")
	overrideInt(&cfg.PeekSeconds, "PEEK_SECONDS")
	overrideInt(&cfg.TurnLimitSec, "TURN_LIMIT_SEC")
	overrideInt(&cfg.MatchWindowSec, "MATCH_WINDOW_SEC")
	overrideInt(&cfg.GraceSec, "GRACE_SEC")
	overrideInt(&cfg.PenaltyDrawCount, "PENALTY_DRAW_COUNT")
	overrideInt(&cfg.MaxNameLength, "MAX_NAME_LENGTH")
	overrideInt(&cfg.WSPort, "WS_PORT")
	overrideString(&cfg.DatabaseURL, "DATABASE_URL")
	overrideString(&cfg.AuthBaseURL, "AUTH_BASE_URL")
	overrideString(&cfg.RejoinSecret, "REJOIN_SECRET")

	return cfg
}

func overrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			*field = n
		} else {
			slog.Warn("invalid config override", "tag", "config", "key", envKey, "value", val)
		}
	}
}

func overrideString(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}
