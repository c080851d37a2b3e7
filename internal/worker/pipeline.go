package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/OCAP2/luxreplay/internal/channel"
	"github.com/OCAP2/luxreplay/internal/replay"
	"github.com/OCAP2/luxreplay/pkg/core"
)

// Run generates r as the replay described by meta. Frames are handed to
// the storage backend and the metrics sink through a bounded channel, in
// turn order. On success the backend replay is ended and the store is
// published to the session. A failed or cancelled run leaves the backend
// replay open and incomplete.
func (m *Manager) Run(ctx context.Context, meta *core.ReplayMeta, r *core.Replay) (*replay.Store, error) {
	if !m.running.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer m.running.Store(false)

	logger := m.deps.Logger.With("replay", meta.Name)
	m.reset(meta)

	if m.deps.Backend != nil {
		if err := m.deps.Backend.StartReplay(meta); err != nil {
			return nil, fmt.Errorf("failed to start replay in storage: %w", err)
		}
	}

	frames := channel.New[*core.Frame](m.deps.BufferSize)
	m.frames.Store(&frames)
	sinkDone := make(chan struct{})
	go m.drain(meta, frames, sinkDone)

	var gen *replay.Generator
	gen, err := replay.NewGenerator(m.deps.Oracle,
		replay.WithLogger(logger),
		replay.WithFrameHandler(func(ctx context.Context, f *core.Frame) error {
			m.observeTurn(meta, gen, f)
			return frames.Send(ctx, f)
		}),
	)
	if err != nil {
		frames.Close()
		<-sinkDone
		return nil, err
	}
	m.gen.Store(gen)

	store, genErr := gen.Generate(ctx, r)
	frames.Close()
	<-sinkDone

	if genErr != nil {
		logger.Error("Replay generation failed", "phase", gen.Phase().String(), "turn", gen.Turn(), "error", genErr)
		return nil, genErr
	}

	if m.deps.Backend != nil {
		if err := m.deps.Backend.EndReplay(); err != nil {
			return store, fmt.Errorf("failed to end replay in storage: %w", err)
		}
	}
	m.deps.Session.SetReplay(meta, store)

	logger.Info("Replay pipeline finished",
		"frames", store.Len(),
		"warnings", m.warnings.Value(),
		"sinkErrors", m.sinkErrors.Value())
	return store, nil
}

func (m *Manager) reset(meta *core.ReplayMeta) {
	m.meta.Store(meta)
	m.gen.Store(nil)
	m.frames.Store(nil)
	m.recorded.Set(0)
	m.warnings.Set(0)
	m.sinkErrors.Set(0)
	m.lastTurn.Store(0)
	m.lastSeen.Store(time.Now().UnixNano())
}

// observeTurn runs on the generating goroutine for every new frame.
func (m *Manager) observeTurn(meta *core.ReplayMeta, gen *replay.Generator, f *core.Frame) {
	now := time.Now().UnixNano()
	m.lastTurn.Store(now - m.lastSeen.Swap(now))

	if f.Turn == 0 {
		m.deps.Session.SetReplay(meta, gen.Store())
	}
	m.deps.Session.SetTurn(f.Turn)
}

// drain feeds every frame to the sinks until frames is closed. A failing
// sink is logged and counted; it never stops the pipeline.
func (m *Manager) drain(meta *core.ReplayMeta, frames channel.Receiver[*core.Frame], done chan<- struct{}) {
	defer close(done)

	for f := range frames.Receive() {
		if m.deps.Backend != nil {
			if err := m.deps.Backend.RecordFrame(f); err != nil {
				m.sinkErrors.Inc()
				m.deps.Logger.Error("Failed to record frame", "turn", f.Turn, "error", err)
			}
		}
		if m.deps.Metrics != nil {
			if err := m.deps.Metrics.WriteFrame(meta, f); err != nil {
				m.sinkErrors.Inc()
				m.deps.Logger.Error("Failed to write frame metrics", "turn", f.Turn, "error", err)
			}
		}
		m.recorded.Inc()
		m.warnings.Add(len(f.Errors))
	}
}
