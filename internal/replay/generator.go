// Package replay turns a recorded command log into an indexed sequence of
// frames by driving the simulation engine one turn at a time.
package replay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/OCAP2/luxreplay/internal/frame"
	"github.com/OCAP2/luxreplay/internal/oracle"
	"github.com/OCAP2/luxreplay/internal/parser"
	"github.com/OCAP2/luxreplay/pkg/core"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Phase is the lifecycle state of a Generator.
type Phase int32

const (
	PhaseUninitialized Phase = iota
	PhaseInitializing
	PhaseGenerating
	PhaseComplete
	PhaseFailed
	PhaseCancelled
)

func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseInitializing:
		return "initializing"
	case PhaseGenerating:
		return "generating"
	case PhaseComplete:
		return "complete"
	case PhaseFailed:
		return "failed"
	case PhaseCancelled:
		return "cancelled"
	default:
		return fmt.Sprintf("phase(%d)", int32(p))
	}
}

// FrameHandler is called with every frame right after it is appended.
// Errors are logged and never stop generation.
type FrameHandler func(ctx context.Context, f *core.Frame) error

// Option configures a Generator.
type Option func(*Generator)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(g *Generator) {
		g.logger = l
	}
}

// WithFrameHandler registers a handler receiving each new frame.
func WithFrameHandler(h FrameHandler) Option {
	return func(g *Generator) {
		g.handlers = append(g.handlers, h)
	}
}

// WithMeter overrides the meter used for generation metrics.
func WithMeter(m metric.Meter) Option {
	return func(g *Generator) {
		g.meter = m
	}
}

// Generator replays one match. It is single use: create one per replay.
type Generator struct {
	oracle   oracle.Oracle
	logger   *slog.Logger
	handlers []FrameHandler
	meter    metric.Meter

	phase atomic.Int32
	turn  atomic.Int64
	store atomic.Pointer[Store]

	// OTEL metrics
	turnsGenerated metric.Int64Counter
	turnWarnings   metric.Int64Counter
	turnDuration   metric.Float64Histogram
}

// NewGenerator creates a Generator driving o.
// Uses the global OTel meter for metrics unless WithMeter is given.
func NewGenerator(o oracle.Oracle, opts ...Option) (*Generator, error) {
	g := &Generator{
		oracle: o,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.meter == nil {
		g.meter = meter()
	}

	var err error
	g.turnsGenerated, err = g.meter.Int64Counter(
		"replay.turns.generated",
		metric.WithDescription("Total frames generated"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating turns counter: %w", err)
	}

	g.turnWarnings, err = g.meter.Int64Counter(
		"replay.turn.warnings",
		metric.WithDescription("Total engine warnings recorded on frames"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating warnings counter: %w", err)
	}

	g.turnDuration, err = g.meter.Float64Histogram(
		"replay.turn.duration",
		metric.WithDescription("Time to update the engine and capture one frame"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating turn duration histogram: %w", err)
	}

	return g, nil
}

// Phase returns the current lifecycle phase.
func (g *Generator) Phase() Phase {
	return Phase(g.phase.Load())
}

// Turn returns the turn currently being generated, or the last turn once
// generation has stopped.
func (g *Generator) Turn() int {
	return int(g.turn.Load())
}

// Store returns the store being filled, or nil before initialization
// succeeded. Unlike the result of Generate it is available while
// generation runs and after it failed; check Store.Complete.
func (g *Generator) Store() *Store {
	return g.store.Load()
}

// Generate initializes the engine from r and captures one frame per turn
// up to the engine's last turn. It returns the complete store, or an error
// matching ErrInitialization, ErrMalformedReplay or the context error.
// Engine errors while updating a turn are recorded on that turn's frame
// and do not stop generation.
func (g *Generator) Generate(ctx context.Context, r *core.Replay) (*Store, error) {
	if !g.phase.CompareAndSwap(int32(PhaseUninitialized), int32(PhaseInitializing)) {
		return nil, ErrAlreadyStarted
	}

	start := time.Now()
	cfg := oracle.ConfigFromReplay(r)
	g.logger.Info("Initializing oracle",
		"seed", cfg.Seed,
		"mapType", cfg.MapType,
		"width", cfg.Width,
		"height", cfg.Height)

	st, err := g.oracle.Initialize(ctx, cfg)
	if err != nil {
		g.setPhase(PhaseFailed)
		g.logger.Error("Oracle initialization failed", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrInitialization, err)
	}

	maxTurns := st.MaxTurns()
	store := NewStore(maxTurns)
	g.store.Store(store)
	g.setPhase(PhaseGenerating)

	for turn := 0; turn <= maxTurns; turn++ {
		g.turn.Store(int64(turn))
		if err := ctx.Err(); err != nil {
			return nil, g.cancelled(turn, err)
		}

		cmds, ok := r.Commands(turn)
		if !ok {
			g.setPhase(PhaseFailed)
			err := &MalformedReplayError{Turn: turn}
			g.logger.Error("Replay is missing a turn", "turn", turn, "generated", store.Len())
			return nil, err
		}

		f, err := g.step(ctx, st, turn, cmds)
		if err != nil {
			return nil, g.cancelled(turn, err)
		}
		if err := store.append(f); err != nil {
			g.setPhase(PhaseFailed)
			return nil, err
		}

		for _, h := range g.handlers {
			if err := h(ctx, f); err != nil {
				g.logger.Error("Frame handler failed", "turn", turn, "error", err)
			}
		}
	}

	store.markComplete()
	g.setPhase(PhaseComplete)
	g.logger.Info("Replay generated",
		"frames", store.Len(),
		"duration", time.Since(start).String())
	return store, nil
}

// step advances the engine by one turn and captures the resulting frame.
// The only error it returns is context cancellation.
func (g *Generator) step(ctx context.Context, st oracle.State, turn int, cmds []core.CommandEntry) (*core.Frame, error) {
	start := time.Now()
	annotations, simulation := parser.SplitCommands(cmds)

	var warnings oracle.Warnings
	if err := g.oracle.Update(ctx, st, simulation, &warnings); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return nil, err
		}
		// Best effort: the frame still captures the post-update state.
		warnings.Add(err.Error())
		g.logger.Warn("Oracle update failed", "turn", turn, "error", err)
	}

	f := frame.Build(turn, st, annotations, warnings.List())

	g.turnsGenerated.Add(ctx, 1, metric.WithAttributes(attribute.Bool("warnings", len(f.Errors) > 0)))
	if n := len(f.Errors); n > 0 {
		g.turnWarnings.Add(ctx, int64(n))
		g.logger.Debug("Turn produced warnings", "turn", turn, "count", n)
	}
	g.turnDuration.Record(ctx, float64(time.Since(start).Microseconds())/1000)
	return f, nil
}

func (g *Generator) cancelled(turn int, err error) error {
	g.setPhase(PhaseCancelled)
	g.logger.Info("Replay generation cancelled", "turn", turn)
	return fmt.Errorf("generation stopped at turn %d: %w", turn, err)
}

func (g *Generator) setPhase(p Phase) {
	g.phase.Store(int32(p))
}
