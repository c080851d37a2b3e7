package replay

import (
	"sync"

	"github.com/OCAP2/luxreplay/pkg/core"
)

// Cursor is a scrubbing position over a store. Moving to a turn that has
// not been generated leaves the cursor where it was and reports false.
type Cursor struct {
	mu    sync.Mutex
	store *Store
	turn  int
}

// NewCursor returns a cursor positioned on turn 0.
func NewCursor(s *Store) *Cursor {
	return &Cursor{store: s}
}

// Store returns the store the cursor moves over.
func (c *Cursor) Store() *Store {
	return c.store
}

// Turn returns the current turn.
func (c *Cursor) Turn() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.turn
}

// Current returns the frame under the cursor.
func (c *Cursor) Current() (*core.Frame, bool) {
	return c.store.Get(c.Turn())
}

// Seek moves to turn if it has been generated.
func (c *Cursor) Seek(turn int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.store.Get(turn); !ok {
		return false
	}
	c.turn = turn
	return true
}

// Next moves one turn forward.
func (c *Cursor) Next() bool {
	return c.Seek(c.Turn() + 1)
}

// Prev moves one turn back.
func (c *Cursor) Prev() bool {
	return c.Seek(c.Turn() - 1)
}

// First moves to turn 0.
func (c *Cursor) First() bool {
	return c.Seek(0)
}

// Last moves to the latest generated turn.
func (c *Cursor) Last() bool {
	return c.Seek(c.store.Len() - 1)
}
