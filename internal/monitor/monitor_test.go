package monitor

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/OCAP2/luxreplay/internal/database"
	"github.com/OCAP2/luxreplay/internal/influx"
	"github.com/OCAP2/luxreplay/internal/model"
	"github.com/OCAP2/luxreplay/internal/replay"
	"github.com/OCAP2/luxreplay/internal/session"
	"github.com/OCAP2/luxreplay/internal/worker"
	"github.com/OCAP2/luxreplay/pkg/core"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixedStatus struct {
	mu sync.Mutex
	st worker.Status
}

func (f *fixedStatus) Status() worker.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.st
}

type pointRecorder struct {
	mu      sync.Mutex
	buckets []string
	points  []*influxdb2_write.Point
	err     error
}

func (p *pointRecorder) WritePoint(bucket string, point *influxdb2_write.Point) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.buckets = append(p.buckets, bucket)
	p.points = append(p.points, point)
	return p.err
}

func (p *pointRecorder) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.points)
}

func generating() *fixedStatus {
	return &fixedStatus{st: worker.Status{
		Replay:         "ranked-1",
		Phase:          replay.PhaseGenerating,
		Turn:           41,
		MaxTurns:       360,
		FramesRecorded: 40,
		Warnings:       3,
		WriteQueue:     120,
		LastTurn:       1500 * time.Microsecond,
	}}
}

func TestGetProgramStatus(t *testing.T) {
	sess := session.NewContext()
	sess.SetReplay(&core.ReplayMeta{ID: 9, Name: "ranked-1"}, nil)
	s := NewService(Dependencies{Worker: generating(), Session: sess})

	now := time.Unix(1000, 0)
	st, perf := s.GetProgramStatus(now)
	assert.Equal(t, "ranked-1", st.Replay)
	assert.Equal(t, now, perf.Time)
	assert.Equal(t, uint(9), perf.ReplayID)
	assert.Equal(t, "generating", perf.Phase)
	assert.Equal(t, 40, perf.TurnsGenerated)
	assert.Equal(t, 3, perf.Warnings)
	assert.Equal(t, 120, perf.WriteQueueLength)
	assert.InDelta(t, 1.5, perf.LastTurnDurationMs, 0.001)
}

func TestSample_Idle(t *testing.T) {
	points := &pointRecorder{}
	file := filepath.Join(t.TempDir(), "status.txt")
	s := NewService(Dependencies{Worker: &fixedStatus{}, Metrics: points, StatusFile: file, Logger: quietLogger()})

	s.Sample(time.Now())
	assert.Zero(t, points.count())
	assert.NoFileExists(t, file)
}

func TestSample_WritesEverySink(t *testing.T) {
	db, err := database.OpenSqlite(filepath.Join(t.TempDir(), "monitor.db"))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	r := model.Replay{Name: "ranked-1", StartTime: time.Now()}
	require.NoError(t, db.Create(&r).Error)

	sess := session.NewContext()
	sess.SetReplay(&core.ReplayMeta{ID: r.ID, Name: "ranked-1"}, nil)
	points := &pointRecorder{}
	file := filepath.Join(t.TempDir(), "status.txt")
	s := NewService(Dependencies{
		Worker:     generating(),
		Session:    sess,
		DB:         db,
		Metrics:    points,
		StatusFile: file,
		Logger:     quietLogger(),
	})

	s.Sample(time.Now())

	body, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(body), "phase:      generating")

	var rows []model.GenerationPerformance
	require.NoError(t, db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, r.ID, rows[0].ReplayID)
	assert.Equal(t, 40, rows[0].TurnsGenerated)

	require.Equal(t, 1, points.count())
	assert.Equal(t, influx.BucketPerformance, points.buckets[0])
	assert.Equal(t, "generation", points.points[0].Name())
}

func TestSample_NoPersistedReplaySkipsDB(t *testing.T) {
	db, err := database.OpenSqlite(filepath.Join(t.TempDir(), "monitor.db"))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	s := NewService(Dependencies{Worker: generating(), Session: session.NewContext(), DB: db, Logger: quietLogger()})
	s.Sample(time.Now())

	var n int64
	require.NoError(t, db.Model(&model.GenerationPerformance{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestSample_MetricsErrorIsNotFatal(t *testing.T) {
	points := &pointRecorder{err: errors.New("influx down")}
	s := NewService(Dependencies{Worker: generating(), Metrics: points, Logger: quietLogger()})
	assert.NotPanics(t, func() { s.Sample(time.Now()) })
	assert.Equal(t, 1, points.count())
}

func TestStartStop(t *testing.T) {
	points := &pointRecorder{}
	s := NewService(Dependencies{Worker: generating(), Metrics: points, Interval: 5 * time.Millisecond, Logger: quietLogger()})

	require.NoError(t, s.Start())
	require.NoError(t, s.Start(), "starting twice is a no-op")
	assert.True(t, s.IsRunning())

	assert.Eventually(t, func() bool { return points.count() >= 2 }, time.Second, 5*time.Millisecond)

	s.Stop()
	assert.False(t, s.IsRunning())
	n := points.count()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, n, points.count(), "no samples after Stop")
	s.Stop()
}

func TestStart_NeedsSource(t *testing.T) {
	assert.Error(t, NewService(Dependencies{}).Start())
}
