package ws

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"check-game-server/config"
	"check-game-server/game"
	"check-game-server/lobby"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allow all origins for development; restrict in production.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub maintains the set of active clients and routes connection lifecycle
// into the right game.
type Hub struct {
	Clients    map[*Client]bool
	Register   chan *Client
	Unregister chan *Client
	Lobby      *lobby.Registry
	Config     *config.Config
}

// NewHub creates a new Hub.
func NewHub(cfg *config.Config, reg *lobby.Registry) *Hub {
	return &Hub{
		Clients:    make(map[*Client]bool),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Lobby:      reg,
		Config:     cfg,
	}
}

// Run starts the hub's main loop. Should be run as a goroutine. When ctx is
// cancelled the hub stops accepting registrations.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			slog.Info("hub shutting down", "tag", "ws")
			return
		case client := <-h.Register:
			h.Clients[client] = true
			slog.Info("client connected", "tag", "ws", "total", len(h.Clients))

		case client := <-h.Unregister:
			if _, ok := h.Clients[client]; ok {
				delete(h.Clients, client)
				close(client.Send)
				slog.Info("client disconnected", "tag", "ws", "total", len(h.Clients))

				// An in-game drop starts the reconnection grace window
				// instead of ending the game.
				if client.Game != nil && !client.Game.Finished {
					select {
					case client.Game.Actions <- game.Action{
						Type:     game.ActionPlayerDisconnected,
						PlayerID: client.PlayerID,
					}:
					default:
					}
				}
			}
		}
	}
}

// ServeWS handles WebSocket upgrade requests and creates a new Client.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "tag", "ws", "err", err)
		return
	}

	client := &Client{
		Hub:  h,
		Conn: conn,
		Send: make(chan []byte, 256),
	}

	h.Register <- client

	go client.WritePump()
	go client.ReadPump()
}
