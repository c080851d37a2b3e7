package oracle

import (
	"fmt"
	"sync"

	"github.com/OCAP2/luxreplay/pkg/core"
)

// Warnings collects the human-readable warnings raised while one turn is
// processed. A fresh collector is used for every turn.
type Warnings struct {
	mu   sync.Mutex
	msgs []string
}

// Add records msg.
func (w *Warnings) Add(msg string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.msgs = append(w.msgs, msg)
}

// Addf records a formatted warning.
func (w *Warnings) Addf(format string, args ...any) {
	w.Add(fmt.Sprintf(format, args...))
}

// AddTeam records a warning caused by a team's command, prefixed with the
// team, e.g. "Team 1 - invalid unit id".
func (w *Warnings) AddTeam(team core.Team, err error) {
	w.Add(fmt.Sprintf("%s - %v", team, err))
}

// Len returns the number of recorded warnings.
func (w *Warnings) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.msgs)
}

// List returns a copy of the recorded warnings in insertion order.
func (w *Warnings) List() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, len(w.msgs))
	copy(out, w.msgs)
	return out
}
