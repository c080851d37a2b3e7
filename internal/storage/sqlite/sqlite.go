// Package sqlitestorage implements the storage.Backend interface using an in-memory
// SQLite database with periodic disk dumps via VACUUM INTO.
// It wraps the GORM backend; the SQLite-specific concerns are creating the
// in-memory DB and dumping it to disk.
package sqlitestorage

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/OCAP2/luxreplay/internal/database"
	gormstorage "github.com/OCAP2/luxreplay/internal/storage/gorm"

	"gorm.io/gorm"
)

// Config holds configuration for the SQLite storage backend.
type Config struct {
	DumpInterval time.Duration
	DumpPath     string // Path for periodic VACUUM INTO dumps
}

var instances atomic.Uint64

// memoryDSN names a private in-memory database so backends never share state.
func memoryDSN() string {
	return fmt.Sprintf("file:luxreplay_%d?mode=memory&cache=shared", instances.Add(1))
}

// Backend wraps the GORM backend for SQLite-specific behavior.
type Backend struct {
	*gormstorage.Backend
	db       *gorm.DB
	cfg      Config
	log      *slog.Logger
	stopChan chan struct{}
	done     chan struct{}
}

// New creates a new SQLite storage backend.
func New(cfg Config, logger *slog.Logger) (*Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := database.OpenSqlite(memoryDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite DB: %w", err)
	}

	gormBackend := gormstorage.New(gormstorage.Dependencies{
		DB:     db,
		Logger: logger,
	})

	return &Backend{
		Backend: gormBackend,
		db:      db,
		cfg:     cfg,
		log:     logger,
	}, nil
}

// Init initializes the embedded GORM backend and starts the dump goroutine.
func (b *Backend) Init() error {
	if err := b.Backend.Init(); err != nil {
		return err
	}

	if b.cfg.DumpPath != "" && b.cfg.DumpInterval > 0 {
		b.stopChan = make(chan struct{})
		b.done = make(chan struct{})
		go b.dumpLoop()
	}

	return nil
}

// EndReplay completes the replay and writes a final dump.
func (b *Backend) EndReplay() error {
	if err := b.Backend.EndReplay(); err != nil {
		return err
	}
	if b.cfg.DumpPath == "" {
		return nil
	}
	return b.Dump()
}

// Dump writes a point-in-time snapshot of the database to the dump path.
func (b *Backend) Dump() error {
	start := time.Now()
	if err := database.DumpMemoryDBToDisk(b.db, b.cfg.DumpPath); err != nil {
		return err
	}
	b.log.Debug("Dumped to disk", "path", b.cfg.DumpPath, "duration", time.Since(start))
	return nil
}

// Close stops the dump goroutine and closes the embedded GORM backend.
func (b *Backend) Close() error {
	if b.stopChan != nil {
		close(b.stopChan)
		<-b.done
		b.stopChan = nil
	}
	if err := b.Backend.Close(); err != nil {
		return err
	}
	sqlDB, err := b.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// dumpLoop periodically dumps the in-memory SQLite database to disk via VACUUM INTO.
// VACUUM INTO creates a point-in-time snapshot, so no pause mechanism is needed.
func (b *Backend) dumpLoop() {
	defer close(b.done)

	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if err := b.Flush(); err != nil {
				b.log.Error("Error flushing before dump", "error", err)
				continue
			}
			if err := b.Dump(); err != nil {
				b.log.Error("Error dumping to disk", "error", err)
			}
		}
	}
}
