package events

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Message types shared between the matchmaker and the WebSocket clients

// MessageType is the value of the "type" discriminator on every frame
type MessageType string

const (
	// client -> server
	TypeJoin     MessageType = "JOIN"
	TypeState    MessageType = "STATE"
	TypeGarbage  MessageType = "GARBAGE"
	TypeGameOver MessageType = "GAME_OVER"

	// server -> client
	TypeWaiting              MessageType = "WAITING"
	TypeMatchStart           MessageType = "MATCH_START"
	TypeOpponentState        MessageType = "OPPONENT_STATE"
	TypeOpponentDisconnected MessageType = "OPPONENT_DISCONNECTED"
	TypeTimeSync             MessageType = "TIME_SYNC"
	TypeGameEnd              MessageType = "GAME_END"
)

var (
	// ErrMalformed is returned when a frame is not a JSON object with a string type
	ErrMalformed = errors.New("malformed message")
	// ErrUnknownType is returned for a well-formed frame whose type is not a client message
	ErrUnknownType = errors.New("unknown message type")
)

// ClientMessage is one of Join, State, Garbage or GameOver.
type ClientMessage interface {
	Type() MessageType
}

// Join asks to be paired with the next player.
type Join struct {
	PlayerName string `json:"player_name,omitempty"`
}

// State is a snapshot of the sender's board. Grid and Piece are opaque to the server.
type State struct {
	Grid  json.RawMessage `json:"grid,omitempty"`
	Score int64           `json:"score"`
	Lines int64           `json:"lines"`
	Piece json.RawMessage `json:"piece,omitempty"`

	// Size is the length of the raw frame the state was decoded from
	Size int `json:"-"`
}

// Garbage sends penalty rows to the opponent.
type Garbage struct {
	Lines int `json:"lines"`
}

// GameOver reports that the sender topped out.
type GameOver struct{}

func (Join) Type() MessageType     { return TypeJoin }
func (State) Type() MessageType    { return TypeState }
func (Garbage) Type() MessageType  { return TypeGarbage }
func (GameOver) Type() MessageType { return TypeGameOver }

type envelope struct {
	Type MessageType `json:"type"`
}

// ParseClientMessage decodes a raw client frame into its variant.
func ParseClientMessage(data []byte) (ClientMessage, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch env.Type {
	case TypeJoin:
		var msg Join
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return msg, nil

	case TypeState:
		var msg State
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		msg.Size = len(data)
		return msg, nil

	case TypeGarbage:
		var msg Garbage
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return msg, nil

	case TypeGameOver:
		return GameOver{}, nil

	case "":
		return nil, fmt.Errorf("%w: missing type", ErrMalformed)

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, env.Type)
	}
}

// Server -> client payloads. Each carries its own type tag so it can be marshalled directly.

// WaitingMessage acknowledges that the player is queued
type WaitingMessage struct {
	Type MessageType `json:"type"`
}

// MatchStartMessage tells a participant its role and opponent
type MatchStartMessage struct {
	Type         MessageType `json:"type"`
	GameID       string      `json:"game_id"`
	Role         int         `json:"role"`
	OpponentName string      `json:"opponent_name"`
	ServerTime   int64       `json:"server_time"` // epoch ms of the match start
}

// OpponentStateMessage is a relayed State
type OpponentStateMessage struct {
	Type  MessageType     `json:"type"`
	Grid  json.RawMessage `json:"grid,omitempty"`
	Score int64           `json:"score"`
	Lines int64           `json:"lines"`
	Piece json.RawMessage `json:"piece,omitempty"`
}

// GarbageMessage is a relayed Garbage
type GarbageMessage struct {
	Type  MessageType `json:"type"`
	Lines int         `json:"lines"`
}

// OpponentDisconnectedMessage is informational; a GAME_END follows it
type OpponentDisconnectedMessage struct {
	Type MessageType `json:"type"`
}

// TimeSyncMessage carries the authoritative time left in milliseconds
type TimeSyncMessage struct {
	Type      MessageType `json:"type"`
	Remaining int64       `json:"remaining"`
}

// GameEndMessage closes a match. Winner is 1, 2 or 0 when unresolved.
type GameEndMessage struct {
	Type   MessageType `json:"type"`
	Reason string      `json:"reason"`
	Winner int         `json:"winner"`
}

func NewWaiting() WaitingMessage {
	return WaitingMessage{Type: TypeWaiting}
}

func NewMatchStart(gameID string, role int, opponentName string, serverTimeMs int64) MatchStartMessage {
	return MatchStartMessage{
		Type:         TypeMatchStart,
		GameID:       gameID,
		Role:         role,
		OpponentName: opponentName,
		ServerTime:   serverTimeMs,
	}
}

// NewOpponentState copies only the relayable fields of a State.
func NewOpponentState(s State) OpponentStateMessage {
	return OpponentStateMessage{
		Type:  TypeOpponentState,
		Grid:  s.Grid,
		Score: s.Score,
		Lines: s.Lines,
		Piece: s.Piece,
	}
}

func NewGarbage(lines int) GarbageMessage {
	return GarbageMessage{Type: TypeGarbage, Lines: lines}
}

func NewOpponentDisconnected() OpponentDisconnectedMessage {
	return OpponentDisconnectedMessage{Type: TypeOpponentDisconnected}
}

func NewTimeSync(remainingMs int64) TimeSyncMessage {
	return TimeSyncMessage{Type: TypeTimeSync, Remaining: remainingMs}
}

func NewGameEnd(reason string, winner int) GameEndMessage {
	return GameEndMessage{Type: TypeGameEnd, Reason: reason, Winner: winner}
}
