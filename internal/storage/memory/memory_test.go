package memory

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/OCAP2/luxreplay/internal/config"
	"github.com/OCAP2/luxreplay/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMeta() *core.ReplayMeta {
	return &core.ReplayMeta{
		Name:      "Ranked: seed 7",
		Seed:      7,
		MapType:   "random",
		Width:     12,
		Height:    12,
		MaxTurns:  2,
		StartedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Tag:       "Lux",
	}
}

func emptyFrame(turn int) *core.Frame {
	f := &core.Frame{
		Turn:           turn,
		ResourceData:   map[int64]core.ResourceTile{},
		UnitData:       map[string]core.Unit{},
		CityData:       map[string]core.City{},
		CityTileData:   []core.CityTile{},
		Annotations:    []core.CommandEntry{},
		Errors:         []string{},
		CellsWithRoads: map[int64]core.Cell{},
	}
	for i := range f.TeamStates {
		f.TeamStates[i].CitiesOwned = []string{}
	}
	return f
}

func record(t *testing.T, b *Backend, turns int) {
	t.Helper()
	require.NoError(t, b.StartReplay(testMeta()))
	for turn := 0; turn < turns; turn++ {
		require.NoError(t, b.RecordFrame(emptyFrame(turn)))
	}
}

func TestRecordFrame_BeforeStart(t *testing.T) {
	b := New(config.MemoryConfig{})
	assert.ErrorIs(t, b.RecordFrame(emptyFrame(0)), ErrNoReplay)
	assert.ErrorIs(t, b.EndReplay(), ErrNoReplay)
}

func TestStartReplay_ResetsFrames(t *testing.T) {
	b := New(config.MemoryConfig{OutputDir: t.TempDir()})
	record(t, b, 3)
	assert.Len(t, b.Frames(), 3)

	require.NoError(t, b.StartReplay(testMeta()))
	assert.Empty(t, b.Frames())
	assert.Empty(t, b.GetExportedFilePath())
}

func TestEndReplay_Codecs(t *testing.T) {
	tests := []struct {
		name     string
		compress bool
		codec    string
		suffix   string
	}{
		{"plain", false, "", ".json"},
		{"gzip", true, CodecGzip, ".json.gz"},
		{"zstd", true, CodecZstd, ".json.zst"},
		{"default codec", true, "", ".json.gz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			b := New(config.MemoryConfig{OutputDir: dir, CompressOutput: tt.compress, Codec: tt.codec})
			record(t, b, 3)
			require.NoError(t, b.EndReplay())

			path := b.GetExportedFilePath()
			assert.Equal(t, dir, filepath.Dir(path))
			assert.True(t, strings.HasSuffix(path, tt.suffix), path)
			assert.Equal(t, "Ranked__seed_7_20260102_030405"+tt.suffix, filepath.Base(path))

			export, err := ReadExport(path)
			require.NoError(t, err)
			assert.Equal(t, "Ranked: seed 7", export.Name)
			assert.Len(t, export.Frames, 3)
			assert.Equal(t, 2, export.EndTurn)
			assert.Equal(t, b.Frames(), export.CoreFrames())
		})
	}
}

func TestGetExportMetadata(t *testing.T) {
	b := New(config.MemoryConfig{})
	assert.Equal(t, core.UploadMetadata{}, b.GetExportMetadata())

	record(t, b, 3)
	assert.Equal(t, core.UploadMetadata{
		ReplayName: "Ranked: seed 7",
		MapType:    "random",
		Width:      12,
		Height:     12,
		Turns:      3,
		Tag:        "Lux",
	}, b.GetExportMetadata())
}

func TestReadExport_Missing(t *testing.T) {
	_, err := ReadExport(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
