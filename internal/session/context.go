package session

import (
	"log/slog"
	"sync"

	"github.com/OCAP2/luxreplay/internal/replay"
	"github.com/OCAP2/luxreplay/pkg/core"
)

// Context holds the replay currently being generated or inspected
type Context struct {
	mu    sync.RWMutex
	meta  *core.ReplayMeta
	store *replay.Store
	turn  int
}

// NewContext creates a new Context with default values
func NewContext() *Context {
	return &Context{
		meta: &core.ReplayMeta{Name: "No replay loaded"},
		turn: -1,
	}
}

// Meta returns the current replay metadata
func (c *Context) Meta() *core.ReplayMeta {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.meta
}

// Store returns the frame store of the current replay, or nil
func (c *Context) Store() *replay.Store {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.store
}

// SetReplay sets the current replay and resets the turn
func (c *Context) SetReplay(meta *core.ReplayMeta, store *replay.Store) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.meta = meta
	c.store = store
	c.turn = -1
}

// SetTurn records the turn last generated or viewed
func (c *Context) SetTurn(turn int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turn = turn
}

// Turn returns the turn last generated or viewed, -1 if none
func (c *Context) Turn() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.turn
}

// LogAttrs returns the attributes attached to every log record.
// It satisfies logging.ContextProvider.
func (c *Context) LogAttrs() []slog.Attr {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.store == nil {
		return nil
	}
	attrs := []slog.Attr{slog.String("replay", c.meta.Name)}
	if c.meta.ID != 0 {
		attrs = append(attrs, slog.Uint64("replayID", uint64(c.meta.ID)))
	}
	if c.turn >= 0 {
		attrs = append(attrs, slog.Int("turn", c.turn))
	}
	return attrs
}
