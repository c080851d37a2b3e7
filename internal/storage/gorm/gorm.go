// Package gormstorage implements the storage.Backend interface using GORM
// with internal queues and a background DB writer goroutine. It works on
// Postgres and SQLite.
package gormstorage

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/OCAP2/luxreplay/internal/database"
	"github.com/OCAP2/luxreplay/internal/model"
	"github.com/OCAP2/luxreplay/internal/model/convert"
	"github.com/OCAP2/luxreplay/internal/queue"
	"github.com/OCAP2/luxreplay/pkg/core"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultFlushInterval is how often queued rows are written.
const DefaultFlushInterval = 500 * time.Millisecond

// ErrNoReplay is returned when frames arrive before StartReplay.
var ErrNoReplay = errors.New("no replay started")

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB            *gorm.DB
	Logger        *slog.Logger
	FlushInterval time.Duration
}

// queues holds all the write queues for batch DB insertion.
type queues struct {
	Frames      *queue.Queue[model.FrameRecord]
	Units       *queue.Queue[model.UnitState]
	Cities      *queue.Queue[model.CityState]
	CityTiles   *queue.Queue[model.CityTileState]
	Resources   *queue.Queue[model.ResourceState]
	Roads       *queue.Queue[model.RoadState]
	Teams       *queue.Queue[model.TeamState]
	Annotations *queue.Queue[model.Annotation]
	Errors      *queue.Queue[model.TurnError]
}

func newQueues() *queues {
	return &queues{
		Frames:      queue.New[model.FrameRecord](),
		Units:       queue.New[model.UnitState](),
		Cities:      queue.New[model.CityState](),
		CityTiles:   queue.New[model.CityTileState](),
		Resources:   queue.New[model.ResourceState](),
		Roads:       queue.New[model.RoadState](),
		Teams:       queue.New[model.TeamState](),
		Annotations: queue.New[model.Annotation](),
		Errors:      queue.New[model.TurnError](),
	}
}

func (q *queues) len() int {
	return q.Frames.Len() + q.Units.Len() + q.Cities.Len() + q.CityTiles.Len() +
		q.Resources.Len() + q.Roads.Len() + q.Teams.Len() + q.Annotations.Len() + q.Errors.Len()
}

// Backend implements storage.Backend using GORM with queue-based batch writes.
type Backend struct {
	deps     Dependencies
	queues   *queues
	replayID atomic.Uint64
	stopChan chan struct{}
	done     chan struct{}

	writeMu       sync.Mutex
	lastWriteNano atomic.Int64
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = DefaultFlushInterval
	}
	return &Backend{
		deps:   deps,
		queues: newQueues(),
	}
}

// DB returns the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Init runs schema migration and starts the DB writer goroutine.
// If no DB was injected via Dependencies, it creates its own postgres connection.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		db, err := database.OpenPostgres()
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("failed to access sql interface: %w", err)
		}
		if err = sqlDB.Ping(); err != nil {
			return fmt.Errorf("failed to validate connection: %w", err)
		}
		sqlDB.SetMaxOpenConns(10)
		b.deps.DB = db
	}

	b.deps.Logger.Info("Migrating schema", "dialect", b.deps.DB.Dialector.Name())
	if err := database.Migrate(b.deps.DB); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}

	b.stopChan = make(chan struct{})
	b.done = make(chan struct{})
	go b.writeLoop()
	return nil
}

// Close stops the DB writer goroutine and writes what is still queued.
func (b *Backend) Close() error {
	if b.stopChan == nil {
		return nil
	}
	close(b.stopChan)
	<-b.done
	b.stopChan = nil
	return b.Flush()
}

// StartReplay inserts the replay row and assigns its ID to meta.
func (b *Backend) StartReplay(meta *core.ReplayMeta) error {
	if b.deps.DB == nil {
		return fmt.Errorf("backend not initialized")
	}
	r := convert.CoreToReplay(*meta)
	r.ID = 0
	if err := b.deps.DB.Create(&r).Error; err != nil {
		return fmt.Errorf("failed to insert new replay: %w", err)
	}
	meta.ID = r.ID
	b.replayID.Store(uint64(r.ID))
	b.deps.Logger.Info("Replay started", "replayID", r.ID, "name", meta.Name)
	return nil
}

// SetReplayID makes subsequent frames belong to an existing replay.
func (b *Backend) SetReplayID(id uint) {
	b.replayID.Store(uint64(id))
}

// RecordFrame converts a frame into rows and queues them.
func (b *Backend) RecordFrame(f *core.Frame) error {
	id := uint(b.replayID.Load())
	if id == 0 {
		return ErrNoReplay
	}
	rows := convert.CoreToFrameRows(id, f)
	b.queues.Frames.Push(rows.Record)
	b.queues.Units.Push(rows.Units...)
	b.queues.Cities.Push(rows.Cities...)
	b.queues.CityTiles.Push(rows.CityTiles...)
	b.queues.Resources.Push(rows.Resources...)
	b.queues.Roads.Push(rows.Roads...)
	b.queues.Teams.Push(rows.Teams...)
	b.queues.Annotations.Push(rows.Annotations...)
	b.queues.Errors.Push(rows.Errors...)
	return nil
}

// EndReplay writes all queued rows and marks the replay complete.
func (b *Backend) EndReplay() error {
	id := uint(b.replayID.Load())
	if id == 0 {
		return ErrNoReplay
	}
	if err := b.Flush(); err != nil {
		return err
	}
	err := b.deps.DB.Model(&model.Replay{}).Where("id = ?", id).Update("complete", true).Error
	if err != nil {
		return fmt.Errorf("failed to mark replay complete: %w", err)
	}
	return nil
}

// QueueLen returns the number of rows waiting to be written.
func (b *Backend) QueueLen() int {
	return b.queues.len()
}

// LastWriteDuration returns how long the last non-empty flush took.
func (b *Backend) LastWriteDuration() time.Duration {
	return time.Duration(b.lastWriteNano.Load())
}

// writeQueue inserts everything in q inside one transaction. On failure the
// items go back to the head of the queue so the next flush retries them.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string) error {
	if q.Empty() {
		return nil
	}

	items := q.Drain(0)
	tx := db.Begin()
	if err := tx.Omit(clause.Associations).Create(&items).Error; err != nil {
		tx.Rollback()
		q.Requeue(items...)
		return fmt.Errorf("error creating %s: %w", name, err)
	}
	if err := tx.Commit().Error; err != nil {
		q.Requeue(items...)
		return fmt.Errorf("error committing %s: %w", name, err)
	}
	return nil
}

// Flush writes all queued rows. Frame records go first so a reader never
// sees entity rows of a turn without its record.
func (b *Backend) Flush() error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	if b.queues.len() == 0 {
		return nil
	}

	start := time.Now()
	db := b.deps.DB
	q := b.queues
	errs := errors.Join(
		writeQueue(db, q.Frames, "frame records"),
		writeQueue(db, q.Units, "unit states"),
		writeQueue(db, q.Cities, "city states"),
		writeQueue(db, q.CityTiles, "city tile states"),
		writeQueue(db, q.Resources, "resource states"),
		writeQueue(db, q.Roads, "road states"),
		writeQueue(db, q.Teams, "team states"),
		writeQueue(db, q.Annotations, "annotations"),
		writeQueue(db, q.Errors, "turn errors"),
	)
	b.lastWriteNano.Store(int64(time.Since(start)))
	return errs
}

func (b *Backend) writeLoop() {
	defer close(b.done)

	ticker := time.NewTicker(b.deps.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if err := b.Flush(); err != nil {
				b.deps.Logger.Error("DB write failed", "error", err)
			}
		}
	}
}
