package worker

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/OCAP2/luxreplay/internal/cache"
	"github.com/OCAP2/luxreplay/internal/channel"
	"github.com/OCAP2/luxreplay/internal/oracle"
	"github.com/OCAP2/luxreplay/internal/replay"
	"github.com/OCAP2/luxreplay/internal/session"
	"github.com/OCAP2/luxreplay/internal/storage"
	"github.com/OCAP2/luxreplay/pkg/core"
)

// DefaultBufferSize is how many frames may wait for the sinks before
// generation blocks.
const DefaultBufferSize = 64

// ErrBusy is returned when Run is called while a replay is being generated.
var ErrBusy = errors.New("a replay is already being generated")

// FrameSink receives every generated frame besides the storage backend.
// influx.Manager implements it.
type FrameSink interface {
	WriteFrame(meta *core.ReplayMeta, f *core.Frame) error
}

// Dependencies holds all dependencies for the worker manager
type Dependencies struct {
	Oracle     oracle.Oracle
	Backend    storage.Backend
	Metrics    FrameSink
	Session    *session.Context
	Logger     *slog.Logger
	BufferSize int
}

// Manager runs the generation pipeline: generator, frame channel and sinks.
type Manager struct {
	deps Dependencies

	running  atomic.Bool
	gen      atomic.Pointer[replay.Generator]
	meta     atomic.Pointer[core.ReplayMeta]
	frames   atomic.Pointer[channel.Channel[*core.Frame]]
	lastTurn atomic.Int64
	lastSeen atomic.Int64

	recorded   cache.SafeCounter
	warnings   cache.SafeCounter
	sinkErrors cache.SafeCounter
}

// NewManager creates a new worker manager
func NewManager(deps Dependencies) *Manager {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Session == nil {
		deps.Session = session.NewContext()
	}
	if deps.BufferSize <= 0 {
		deps.BufferSize = DefaultBufferSize
	}
	return &Manager{deps: deps}
}

// Session returns the session the manager publishes replays to.
func (m *Manager) Session() *session.Context {
	return m.deps.Session
}

// QueueLenProvider is an optional interface for backends that buffer rows
// before writing them.
type QueueLenProvider interface {
	QueueLen() int
}

// WriteDurationProvider is an optional interface that backends can implement
// to expose their last write duration for monitoring.
type WriteDurationProvider interface {
	LastWriteDuration() time.Duration
}

// Status is a snapshot of the pipeline progress.
type Status struct {
	Replay         string
	Phase          replay.Phase
	Turn           int
	MaxTurns       int
	FramesRecorded int
	Warnings       int
	SinkErrors     int
	PendingFrames  int
	WriteQueue     int
	LastTurn       time.Duration
	LastWrite      time.Duration
}

// String renders the status as console lines.
func (s Status) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "replay:     %s\n", s.Replay)
	fmt.Fprintf(&b, "phase:      %s\n", s.Phase)
	fmt.Fprintf(&b, "turn:       %d/%d\n", s.Turn, s.MaxTurns)
	fmt.Fprintf(&b, "recorded:   %d frames, %d warnings, %d sink errors\n", s.FramesRecorded, s.Warnings, s.SinkErrors)
	fmt.Fprintf(&b, "pending:    %d frames, %d rows\n", s.PendingFrames, s.WriteQueue)
	fmt.Fprintf(&b, "last turn:  %s\n", s.LastTurn)
	fmt.Fprintf(&b, "last write: %s", s.LastWrite)
	return b.String()
}

// Status returns the progress of the current or last run.
func (m *Manager) Status() Status {
	s := Status{
		Replay:         "none",
		FramesRecorded: m.recorded.Value(),
		Warnings:       m.warnings.Value(),
		SinkErrors:     m.sinkErrors.Value(),
		LastTurn:       time.Duration(m.lastTurn.Load()),
	}
	if meta := m.meta.Load(); meta != nil {
		s.Replay = meta.Name
	}
	if g := m.gen.Load(); g != nil {
		s.Phase = g.Phase()
		s.Turn = g.Turn()
		if st := g.Store(); st != nil {
			s.MaxTurns = st.MaxTurns()
		}
	}
	if ch := m.frames.Load(); ch != nil {
		s.PendingFrames = (*ch).Len()
	}
	if p, ok := m.deps.Backend.(QueueLenProvider); ok {
		s.WriteQueue = p.QueueLen()
	}
	s.LastWrite = m.LastWriteDuration()
	return s
}

// LastWriteDuration returns the duration of the last storage write cycle.
// Returns 0 if the backend doesn't support this metric.
func (m *Manager) LastWriteDuration() time.Duration {
	if p, ok := m.deps.Backend.(WriteDurationProvider); ok {
		return p.LastWriteDuration()
	}
	return 0
}
