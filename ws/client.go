package ws

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"check-game-server/auth"
	"check-game-server/game"
	"check-game-server/wsutil"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096
)

// Client is a middleman between the websocket connection and a game room.
type Client struct {
	Hub      *Hub
	Conn     *websocket.Conn
	Send     chan []byte
	Name     string
	PlayerID string
	Game     *game.Game
}

// ReadPump pumps messages from the websocket connection into the game's
// action channel. It runs in its own goroutine per connection.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("websocket read error", "tag", "ws", "err", err)
			}
			break
		}
		c.handleMessage(message)
	}
}

// WritePump pumps messages from the send channel to the websocket connection.
// It runs in its own goroutine per connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(data []byte) {
	var envelope InboundEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		c.sendError("Invalid message format.")
		return
	}

	switch envelope.Type {
	case "create_game":
		c.handleCreateGame(envelope.Raw)
	case "join_game":
		c.handleJoinGame(envelope.Raw)
	case "rejoin":
		c.handleRejoin(envelope.Raw)
	case "declare_ready":
		c.dispatch(game.Action{Type: game.ActionDeclareReady})
	case "peek_ack":
		c.dispatch(game.Action{Type: game.ActionPeekAck})
	case "draw_deck":
		c.dispatch(game.Action{Type: game.ActionDrawDeck})
	case "draw_discard":
		c.dispatch(game.Action{Type: game.ActionDrawDiscard})
	case "swap_discard":
		c.handleHandIndex(envelope.Raw, game.ActionSwapAndDiscard)
	case "discard_drawn":
		c.dispatch(game.Action{Type: game.ActionDiscardDrawn})
	case "attempt_match":
		c.handleHandIndex(envelope.Raw, game.ActionAttemptMatch)
	case "pass_match":
		c.dispatch(game.Action{Type: game.ActionPassMatch})
	case "call_check":
		c.dispatch(game.Action{Type: game.ActionCallCheck})
	case "resolve_ability":
		c.handleResolveAbility(envelope.Raw)
	case "chat":
		c.handleChat(envelope.Raw)
	default:
		c.sendError("Unknown message type: " + envelope.Type)
	}
}

// identify resolves the player identity for a create or join. With a
// verified identity token the provider's user id becomes the player id;
// otherwise an anonymous id is assigned for the lifetime of the seat.
func (c *Client) identify(token string) bool {
	if token != "" && c.Hub.Config.AuthBaseURL != "" {
		claims, err := auth.ValidateIdentityToken(c.Hub.Config.AuthBaseURL, token)
		if err != nil {
			c.sendError("Invalid identity token.")
			return false
		}
		c.PlayerID = auth.UserIDFromClaims(claims)
		if c.Name == "" {
			c.Name = auth.NameFromClaims(claims)
		}
		return true
	}
	c.PlayerID = uuid.NewString()
	return true
}

func (c *Client) handleCreateGame(raw json.RawMessage) {
	var msg CreateGameMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.sendError("Invalid create_game message.")
		return
	}
	if c.Game != nil {
		c.sendError("Already in a game.")
		return
	}
	c.Name = msg.Name
	if !c.identify(msg.Token) {
		return
	}

	g := c.Hub.Lobby.CreateGame()
	c.enterGame(g)
}

func (c *Client) handleJoinGame(raw json.RawMessage) {
	var msg JoinGameMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.sendError("Invalid join_game message.")
		return
	}
	if c.Game != nil {
		c.sendError("Already in a game.")
		return
	}
	g, ferr := c.Hub.Lobby.Find(msg.GameID)
	if ferr != nil {
		c.sendError(ferr.Message)
		return
	}
	c.Name = msg.Name
	if !c.identify(msg.Token) {
		return
	}
	c.enterGame(g)
}

// enterGame confirms the seat to the client and delivers the join into the
// game loop. Rule rejections (full room, bad name, started game) come back
// asynchronously on the send channel.
func (c *Client) enterGame(g *game.Game) {
	c.Game = g

	joined := GameJoinedMsg{Type: "game_joined", GameID: g.ID, PlayerID: c.PlayerID}
	if token, err := c.Hub.Lobby.RejoinToken(g.ID, c.PlayerID); err == nil {
		joined.RejoinToken = token
	}
	data, _ := json.Marshal(joined)
	wsutil.SafeSend(c.Send, data)

	c.dispatch(game.Action{Type: game.ActionJoin, Name: c.Name, NewSend: c.Send})
}

func (c *Client) handleRejoin(raw json.RawMessage) {
	var msg RejoinMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.sendError("Invalid rejoin message.")
		return
	}
	g, playerID, rerr := c.Hub.Lobby.Rejoin(msg.GameID, msg.RejoinToken)
	if rerr != nil {
		c.sendError(rerr.Message)
		return
	}
	c.Game = g
	c.PlayerID = playerID

	data, _ := json.Marshal(GameJoinedMsg{Type: "game_joined", GameID: g.ID, PlayerID: playerID})
	wsutil.SafeSend(c.Send, data)

	c.dispatch(game.Action{Type: game.ActionPlayerReconnected, NewSend: c.Send})
}

func (c *Client) handleHandIndex(raw json.RawMessage, t game.ActionType) {
	var msg HandIndexMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.sendError("Invalid message payload.")
		return
	}
	c.dispatch(game.Action{Type: t, HandIndex: msg.HandIndex})
}

func (c *Client) handleResolveAbility(raw json.RawMessage) {
	var msg ResolveAbilityMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.sendError("Invalid resolve_ability message.")
		return
	}
	targets := make([]game.AbilityTarget, len(msg.Targets))
	for i, t := range msg.Targets {
		targets[i] = game.AbilityTarget{PlayerID: t.PlayerID, CardIndex: t.CardIndex}
	}
	c.dispatch(game.Action{
		Type:    game.ActionResolveAbility,
		Ability: game.AbilityArgs{Skip: msg.Skip, Targets: targets},
	})
}

func (c *Client) handleChat(raw json.RawMessage) {
	var msg ChatMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.sendError("Invalid chat message.")
		return
	}
	c.dispatch(game.Action{Type: game.ActionChat, Text: msg.Text})
}

// dispatch stamps the client's player id on an action and delivers it to the
// game loop. A full action buffer drops the message rather than blocking the
// read pump.
func (c *Client) dispatch(a game.Action) {
	if c.Game == nil {
		c.sendError("You are not in a game.")
		return
	}
	a.PlayerID = c.PlayerID
	select {
	case c.Game.Actions <- a:
	default:
		c.sendError("Server busy, try again.")
	}
}

func (c *Client) sendError(message string) {
	data, _ := json.Marshal(ErrorMsg{Type: "error", Message: message})
	wsutil.SafeSend(c.Send, data)
}
