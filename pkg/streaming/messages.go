package streaming

import (
	"encoding/json"

	"github.com/OCAP2/luxreplay/pkg/core"
)

// Message type constants matching the viewer streaming protocol.
const (
	TypeStartReplay = "start_replay"
	TypeEndReplay   = "end_replay"
	TypeFrame       = "frame"
	TypeAck         = "ack"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// StartReplayPayload carries the replay description sent before any frame.
type StartReplayPayload struct {
	Name     string `json:"name"`
	Seed     int64  `json:"seed"`
	MapType  string `json:"mapType"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	MaxTurns int    `json:"maxTurns"`
	Tag      string `json:"tag"`
}

// NewStartReplayPayload builds the start payload from replay metadata.
func NewStartReplayPayload(meta *core.ReplayMeta) StartReplayPayload {
	return StartReplayPayload{
		Name:     meta.Name,
		Seed:     meta.Seed,
		MapType:  meta.MapType,
		Width:    meta.Width,
		Height:   meta.Height,
		MaxTurns: meta.MaxTurns,
		Tag:      meta.Tag,
	}
}
