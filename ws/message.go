package ws

import "encoding/json"

// InboundEnvelope is the generic envelope for all client-to-server messages.
// The Type field is used for routing; Raw holds the full JSON payload.
type InboundEnvelope struct {
	Type string          `json:"type"`
	Raw  json.RawMessage `json:"-"`
}

// UnmarshalJSON implements custom unmarshaling to capture the raw payload.
func (e *InboundEnvelope) UnmarshalJSON(data []byte) error {
	type typeOnly struct {
		Type string `json:"type"`
	}
	var t typeOnly
	if err := json.Unmarshal(data, &t); err != nil {
		return err
	}
	e.Type = t.Type
	e.Raw = json.RawMessage(data)
	return nil
}

// --- Client-to-Server message payloads ---

// CreateGameMsg opens a new room. Token is an optional identity provider JWT;
// without one the server assigns an anonymous id.
type CreateGameMsg struct {
	Type  string `json:"type"`
	Name  string `json:"name"`
	Token string `json:"token,omitempty"`
}

// JoinGameMsg joins an existing room by id.
type JoinGameMsg struct {
	Type   string `json:"type"`
	GameID string `json:"gameId"`
	Name   string `json:"name"`
	Token  string `json:"token,omitempty"`
}

// RejoinMsg reclaims a seat after a dropped connection or page refresh.
type RejoinMsg struct {
	Type        string `json:"type"`
	GameID      string `json:"gameId"`
	RejoinToken string `json:"rejoinToken"`
}

// HandIndexMsg carries a hand position, used by swap_discard and
// attempt_match.
type HandIndexMsg struct {
	Type      string `json:"type"`
	HandIndex int    `json:"handIndex"`
}

// ResolveAbilityMsg resolves or skips the active special-card ability.
type ResolveAbilityMsg struct {
	Type    string          `json:"type"`
	Skip    bool            `json:"skip"`
	Targets []AbilityTarget `json:"targets"`
}

// AbilityTarget addresses one card position on the table.
type AbilityTarget struct {
	PlayerID  string `json:"playerId"`
	CardIndex int    `json:"cardIndex"`
}

// ChatMsg relays a chat line to the room.
type ChatMsg struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// --- Server-to-Client messages ---

// ErrorMsg is sent when a client message cannot be routed. Rule rejections
// come from the game engine with a structured code instead.
type ErrorMsg struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// GameJoinedMsg confirms room entry. Sent for create_game, join_game and
// rejoin alike; the game state snapshot follows on the same connection.
type GameJoinedMsg struct {
	Type        string `json:"type"`
	GameID      string `json:"gameId"`
	PlayerID    string `json:"playerId"`
	RejoinToken string `json:"rejoinToken,omitempty"`
}
