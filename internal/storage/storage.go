// internal/storage/storage.go
package storage

import (
	"context"

	"github.com/OCAP2/luxreplay/pkg/core"
)

// Backend is the interface all frame persistence implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Replay management. StartReplay may assign meta.ID.
	StartReplay(meta *core.ReplayMeta) error
	EndReplay() error

	// RecordFrame persists one frame. Frames arrive in turn order and
	// must not be modified by the backend.
	RecordFrame(f *core.Frame) error
}

// Uploadable is an optional interface for storage backends that produce
// files suitable for upload to the replay viewer.
type Uploadable interface {
	GetExportedFilePath() string
	GetExportMetadata() core.UploadMetadata
}

// FrameLoader is an optional interface for backends that can read a stored
// replay back.
type FrameLoader interface {
	LoadFrames(ctx context.Context, replayID uint) (*core.ReplayMeta, []*core.Frame, error)
}
