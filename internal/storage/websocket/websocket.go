package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	v1 "github.com/OCAP2/luxreplay/internal/storage/memory/export/v1"
	"github.com/OCAP2/luxreplay/pkg/core"
	"github.com/OCAP2/luxreplay/pkg/streaming"
)

// Config holds WebSocket backend configuration.
type Config struct {
	URL    string
	Secret string
}

// Backend streams frames over WebSocket to a live replay viewer.
// It implements storage.Backend but not storage.Uploadable.
type Backend struct {
	conn *connection
	cfg  Config
}

// New creates a new WebSocket storage backend.
func New(cfg Config, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		conn: newConnection(logger.With("component", "websocket")),
		cfg:  cfg,
	}
}

// Init connects to the WebSocket server.
func (b *Backend) Init() error {
	return b.conn.dial(b.cfg.URL, b.cfg.Secret)
}

// Close disconnects from the WebSocket server.
func (b *Backend) Close() error {
	return b.conn.close()
}

// marshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	env := streaming.Envelope{Type: msgType, Payload: raw}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// StartReplay opens a new replay on the viewer and waits for its ack.
func (b *Backend) StartReplay(meta *core.ReplayMeta) error {
	data, err := marshalEnvelope(streaming.TypeStartReplay, streaming.NewStartReplayPayload(meta))
	if err != nil {
		return err
	}
	b.conn.begin(data)
	return b.conn.awaitAck(context.Background(), streaming.TypeStartReplay, ackTimeout)
}

// EndReplay sends end_replay after every queued frame and waits for its
// ack. The replay is dropped from the outbox either way.
func (b *Backend) EndReplay() error {
	data, err := marshalEnvelope(streaming.TypeEndReplay, nil)
	if err != nil {
		return err
	}
	b.conn.push(data)
	err = b.conn.awaitAck(context.Background(), streaming.TypeEndReplay, ackTimeout)
	b.conn.reset()
	return err
}

// RecordFrame queues the frame in its export form. It does not wait for
// the viewer.
func (b *Backend) RecordFrame(f *core.Frame) error {
	data, err := marshalEnvelope(streaming.TypeFrame, v1.BuildFrame(f))
	if err != nil {
		return err
	}
	b.conn.push(data)
	return nil
}

// QueueLen reports frames not yet written to the viewer.
func (b *Backend) QueueLen() int {
	return b.conn.unsent()
}
