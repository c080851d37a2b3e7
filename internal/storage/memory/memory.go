// internal/storage/memory/memory.go
package memory

import (
	"errors"
	"sync"

	"github.com/OCAP2/luxreplay/internal/config"
	"github.com/OCAP2/luxreplay/pkg/core"
)

// ErrNoReplay is returned when frames arrive before StartReplay.
var ErrNoReplay = errors.New("no replay started")

// Backend keeps the frames of one replay in memory and exports them to JSON
type Backend struct {
	cfg    config.MemoryConfig
	meta   *core.ReplayMeta
	frames []*core.Frame

	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{cfg: cfg}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// StartReplay begins recording a new replay and drops any previous frames
func (b *Backend) StartReplay(meta *core.ReplayMeta) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.meta = meta
	b.frames = nil
	b.lastExportPath = ""
	return nil
}

// RecordFrame stores a generated frame. Frames are immutable, so the
// pointer is kept as is.
func (b *Backend) RecordFrame(f *core.Frame) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.meta == nil {
		return ErrNoReplay
	}
	b.frames = append(b.frames, f)
	return nil
}

// EndReplay finalizes and exports the replay
func (b *Backend) EndReplay() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.meta == nil {
		return ErrNoReplay
	}
	return b.exportJSON()
}

// Frames returns the recorded frames in arrival order
func (b *Backend) Frames() []*core.Frame {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]*core.Frame(nil), b.frames...)
}

// GetExportedFilePath returns the path of the last export, empty before EndReplay
func (b *Backend) GetExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}

// GetExportMetadata returns what the viewer needs alongside the exported file
func (b *Backend) GetExportMetadata() core.UploadMetadata {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.meta == nil {
		return core.UploadMetadata{}
	}
	return core.UploadMetadata{
		ReplayName: b.meta.Name,
		MapType:    b.meta.MapType,
		Width:      b.meta.Width,
		Height:     b.meta.Height,
		Turns:      len(b.frames),
		Tag:        b.meta.Tag,
	}
}
