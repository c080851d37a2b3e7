package worker

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/OCAP2/luxreplay/internal/dispatcher"
	"github.com/OCAP2/luxreplay/internal/parser"
	"github.com/OCAP2/luxreplay/pkg/core"
)

// RegisterHandlers adds the generation commands to the console. Runs
// started from the console use ctx.
func (m *Manager) RegisterHandlers(ctx context.Context, d *dispatcher.Dispatcher) {
	d.Register("status", func(e dispatcher.Event) (any, error) {
		return m.Status().String(), nil
	}, dispatcher.Help("status - progress of the current or last generation"))

	d.Register("generate", func(e dispatcher.Event) (any, error) {
		if len(e.Args) != 1 {
			return nil, fmt.Errorf("usage: generate <replay file>")
		}
		if m.running.Load() {
			return nil, ErrBusy
		}
		r, err := parser.NewParser(m.deps.Logger).ParseReplayFile(e.Args[0])
		if err != nil {
			return nil, err
		}
		store, err := m.Run(ctx, core.NewReplayMeta(ReplayName(e.Args[0]), r, time.Now()), r)
		if err != nil {
			return nil, err
		}
		return fmt.Sprintf("generated %d frames", store.Len()), nil
	}, dispatcher.Buffered(1), dispatcher.Logged(),
		dispatcher.Help("generate <replay file> - generate a replay in the background"))
}

// ReplayName derives a replay name from its file path.
func ReplayName(path string) string {
	name := filepath.Base(path)
	for _, ext := range []string{".gz", ".zst", ".json"} {
		name = strings.TrimSuffix(name, ext)
	}
	return name
}
