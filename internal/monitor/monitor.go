package monitor

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/OCAP2/luxreplay/internal/influx"
	"github.com/OCAP2/luxreplay/internal/model"
	"github.com/OCAP2/luxreplay/internal/replay"
	"github.com/OCAP2/luxreplay/internal/session"
	"github.com/OCAP2/luxreplay/internal/worker"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"gorm.io/gorm"
)

// DefaultInterval is the sampling period when none is configured.
const DefaultInterval = time.Second

// StatusSource reports generation progress. worker.Manager implements it.
type StatusSource interface {
	Status() worker.Status
}

// PointWriter writes one metric point. influx.Manager implements it.
type PointWriter interface {
	WritePoint(bucket string, point *influxdb2_write.Point) error
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Worker  StatusSource
	Session *session.Context
	DB      *gorm.DB
	Metrics PointWriter
	Logger  *slog.Logger
	// StatusFile is rewritten with the status text on every sample.
	StatusFile      string
	Interval        time.Duration
	IsDatabaseValid func() bool
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Interval <= 0 {
		deps.Interval = DefaultInterval
	}
	if deps.IsDatabaseValid == nil {
		deps.IsDatabaseValid = func() bool { return deps.DB != nil }
	}
	return &Service{
		deps:     deps,
		stopChan: make(chan struct{}),
	}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetProgramStatus returns the current status and its performance row.
func (s *Service) GetProgramStatus(now time.Time) (worker.Status, model.GenerationPerformance) {
	st := s.deps.Worker.Status()
	perf := model.GenerationPerformance{
		Time:               now,
		Phase:              st.Phase.String(),
		TurnsGenerated:     st.FramesRecorded,
		Warnings:           st.Warnings,
		WriteQueueLength:   st.WriteQueue,
		LastTurnDurationMs: float32(st.LastTurn.Microseconds()) / 1000,
	}
	if s.deps.Session != nil {
		perf.ReplayID = s.deps.Session.Meta().ID
	}
	return st, perf
}

// Sample records one status sample to every configured sink. Nothing is
// recorded before the first replay starts.
func (s *Service) Sample(now time.Time) {
	st, perf := s.GetProgramStatus(now)
	if st.Phase == replay.PhaseUninitialized {
		return
	}
	logger := s.deps.Logger

	if s.deps.StatusFile != "" {
		if err := os.WriteFile(s.deps.StatusFile, []byte(st.String()+"\n"), 0o644); err != nil {
			logger.Error("Error writing status file", "error", err)
		}
	}

	// Rows need a persisted replay to reference.
	if perf.ReplayID != 0 && s.deps.DB != nil && s.deps.IsDatabaseValid() {
		if err := s.deps.DB.Create(&perf).Error; err != nil {
			logger.Error("Error writing performance row", "error", err)
		}
	}

	if s.deps.Metrics != nil {
		point := influx.PerformancePoint(st.Replay, perf.Phase, perf.TurnsGenerated, perf.Warnings,
			perf.WriteQueueLength, st.LastTurn, now)
		if err := s.deps.Metrics.WritePoint(influx.BucketPerformance, point); err != nil {
			logger.Debug("Performance point not written", "error", err)
		}
	}
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	if s.deps.Worker == nil {
		s.mu.Unlock()
		return fmt.Errorf("monitor needs a status source")
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
			close(done)
		}()

		s.deps.Logger.Debug("Starting status monitor", "interval", s.deps.Interval)
		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case now := <-ticker.C:
				s.Sample(now)
			}
		}
	}()

	return nil
}

// Stop stops the status monitor and waits for the last sample to finish.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	close(s.stopChan)
	done := s.done
	s.isRunning = false
	s.mu.Unlock()
	<-done
}
