package sqlitestorage

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/OCAP2/luxreplay/internal/database"
	"github.com/OCAP2/luxreplay/internal/model"
	"github.com/OCAP2/luxreplay/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testFrame(turn int) *core.Frame {
	pos := core.Position{X: 1, Y: 2}
	return &core.Frame{
		Turn:         turn,
		UnitData:     map[string]core.Unit{"u_1": {ID: "u_1", Pos: pos, Type: core.UnitWorker}},
		ResourceData: map[int64]core.ResourceTile{},
		CityData:     map[string]core.City{},
		CellsWithRoads: map[int64]core.Cell{
			pos.Hash(): {Pos: pos, RoadLevel: 1.75},
		},
	}
}

func TestNew_IsolatedDatabases(t *testing.T) {
	a, err := New(Config{}, quietLogger())
	require.NoError(t, err)
	require.NoError(t, a.Init())
	defer a.Close()

	b, err := New(Config{}, quietLogger())
	require.NoError(t, err)
	require.NoError(t, b.Init())
	defer b.Close()

	require.NoError(t, a.StartReplay(&core.ReplayMeta{Name: "a"}))

	var count int64
	require.NoError(t, b.DB().Model(&model.Replay{}).Count(&count).Error)
	assert.Zero(t, count, "a second backend must not see the first one's rows")
}

func TestEndReplay_DumpsToDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dump.db")
	b, err := New(Config{DumpPath: path}, quietLogger())
	require.NoError(t, err)
	require.NoError(t, b.Init())
	defer b.Close()

	meta := &core.ReplayMeta{Name: "dumped", Width: 4, Height: 4}
	require.NoError(t, b.StartReplay(meta))
	require.NoError(t, b.RecordFrame(testFrame(0)))
	require.NoError(t, b.RecordFrame(testFrame(1)))
	require.NoError(t, b.EndReplay())

	_, err = os.Stat(path)
	require.NoError(t, err)

	disk, err := database.OpenSqlite(path)
	require.NoError(t, err)
	var r model.Replay
	require.NoError(t, disk.First(&r, meta.ID).Error)
	assert.True(t, r.Complete)

	var frames int64
	require.NoError(t, disk.Model(&model.FrameRecord{}).Count(&frames).Error)
	assert.Equal(t, int64(2), frames)
}

func TestDumpLoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "periodic.db")
	b, err := New(Config{DumpPath: path, DumpInterval: 20 * time.Millisecond}, quietLogger())
	require.NoError(t, err)
	require.NoError(t, b.Init())

	require.NoError(t, b.StartReplay(&core.ReplayMeta{Name: "periodic"}))
	require.NoError(t, b.RecordFrame(testFrame(0)))

	assert.Eventually(t, func() bool {
		_, err := os.Stat(path)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, b.Close())
}

func TestDump_NoPath(t *testing.T) {
	b, err := New(Config{}, quietLogger())
	require.NoError(t, err)
	require.NoError(t, b.Init())
	defer b.Close()

	assert.Error(t, b.Dump())

	require.NoError(t, b.StartReplay(&core.ReplayMeta{Name: "nodump"}))
	assert.NoError(t, b.EndReplay(), "without a dump path EndReplay only completes the replay")
}
