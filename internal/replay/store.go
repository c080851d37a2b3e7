package replay

import (
	"errors"
	"fmt"
	"sync"

	"github.com/OCAP2/luxreplay/internal/frame"
	"github.com/OCAP2/luxreplay/pkg/core"
)

// Store holds the frames of one replay in turn order. Frames are appended
// by a single generator and may be read concurrently at any time; a read
// for a turn that has not been generated yet reports a miss.
type Store struct {
	mu       sync.RWMutex
	frames   []*core.Frame
	maxTurns int
	complete bool
}

// NewStore creates an empty store for a match whose last turn is maxTurns.
func NewStore(maxTurns int) *Store {
	capacity := 0
	if maxTurns >= 0 {
		capacity = maxTurns + 1
	}
	return &Store{
		frames:   make([]*core.Frame, 0, capacity),
		maxTurns: maxTurns,
	}
}

// NewStoreFromFrames rebuilds a complete store from previously generated
// frames, e.g. ones loaded from a database. frames must be ordered by turn
// starting at 0 with no gaps.
func NewStoreFromFrames(frames []*core.Frame) (*Store, error) {
	if len(frames) == 0 {
		return nil, errors.New("no frames")
	}
	s := NewStore(len(frames) - 1)
	for _, f := range frames {
		if err := s.append(f); err != nil {
			return nil, err
		}
	}
	s.markComplete()
	return s, nil
}

func (s *Store) append(f *core.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.complete {
		return fmt.Errorf("store is complete, cannot append turn %d", f.Turn)
	}
	if f.Turn != len(s.frames) {
		return fmt.Errorf("frame for turn %d appended at index %d", f.Turn, len(s.frames))
	}
	s.frames = append(s.frames, f)
	return nil
}

func (s *Store) markComplete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.complete = true
}

// Get returns the frame of turn. ok is false when the turn has not been
// generated (yet), in which case callers should treat the request as a
// no-op.
func (s *Store) Get(turn int) (f *core.Frame, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if turn < 0 || turn >= len(s.frames) {
		return nil, false
	}
	return s.frames[turn], true
}

// Len returns the number of frames generated so far.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.frames)
}

// Complete reports whether every turn up to MaxTurns has been generated.
func (s *Store) Complete() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.complete
}

// MaxTurns returns the last turn of the match.
func (s *Store) MaxTurns() int {
	return s.maxTurns
}

// Frames returns the frames generated so far in turn order. The slice is a
// copy; the frames are shared and must not be modified.
func (s *Store) Frames() []*core.Frame {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*core.Frame, len(s.frames))
	copy(out, s.frames)
	return out
}

// InitialResources returns the total resources on the map at turn 0.
func (s *Store) InitialResources() (core.ResourceAmounts, bool) {
	f, ok := s.Get(0)
	if !ok {
		return core.ResourceAmounts{}, false
	}
	return frame.TotalResources(f), true
}
