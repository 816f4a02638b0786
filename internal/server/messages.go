package server

import "encoding/json"

// Canonical client→server operation names.
const (
	TypeJoinRoom             = "join_room"
	TypeUpdatePaddle         = "update_paddle"
	TypeUpdateGameState      = "update_game_state"
	TypeUpdateGameStateDelta = "update_game_state_delta"
	TypeResetRoom            = "reset_room"
	TypePing                 = "ping"
)

// opcodeAliases maps the compact opcodes the browser client sends on the hot
// path to their canonical names. Adding or removing an alias is a one-line
// change here, mirrored in messages_test.go.
var opcodeAliases = map[string]string{
	"jr":   TypeJoinRoom,
	"up":   TypeUpdatePaddle,
	"ugs":  TypeUpdateGameState,
	"ugsd": TypeUpdateGameStateDelta,
	"rr":   TypeResetRoom,
}

// CanonicalMessageType resolves a compact opcode to its canonical operation
// name; unknown strings pass through untouched.
func CanonicalMessageType(t string) string {
	if canonical, ok := opcodeAliases[t]; ok {
		return canonical
	}
	return t
}

// ClientMessage is the inbound wire envelope. Every field is accepted under
// both its verbose name and its single-letter alias; Type is already
// canonicalized after unmarshaling.
type ClientMessage struct {
	Type     string
	PlayerID string
	RoomID   string
	Data     json.RawMessage
}

func (m *ClientMessage) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type     string          `json:"type"`
		T        string          `json:"t"`
		PlayerID string          `json:"playerId"`
		P        string          `json:"p"`
		RoomID   string          `json:"roomId"`
		R        string          `json:"r"`
		Data     json.RawMessage `json:"data"`
		D        json.RawMessage `json:"d"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	m.Type = raw.Type
	if m.Type == "" {
		m.Type = raw.T
	}
	m.Type = CanonicalMessageType(m.Type)

	m.PlayerID = raw.PlayerID
	if m.PlayerID == "" {
		m.PlayerID = raw.P
	}

	m.RoomID = raw.RoomID
	if m.RoomID == "" {
		m.RoomID = raw.R
	}

	m.Data = raw.Data
	if m.Data == nil {
		m.Data = raw.D
	}

	return nil
}

// ServerMessage is the outbound envelope.
type ServerMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}
