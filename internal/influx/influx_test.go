package influx

import (
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/OCAP2/luxreplay/pkg/core"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMeta() *core.ReplayMeta {
	return &core.ReplayMeta{Name: "ladder", StartedAt: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func testFrame() *core.Frame {
	f := &core.Frame{
		Turn: 7,
		CityTileData: []core.CityTile{
			{Team: core.TeamA}, {Team: core.TeamA}, {Team: core.TeamB},
		},
		Errors: []string{"Team 1 - bad"},
	}
	f.TeamStates[core.TeamA] = core.TeamState{Workers: 2, Carts: 1, CitiesOwned: []string{"c_1"}, ResearchPoints: 9}
	f.TeamStates[core.TeamA].Statistics.ResourcesCollected.Add(core.ResourceWood, 40)
	f.TeamStates[core.TeamB] = core.TeamState{Workers: 1, CitiesOwned: []string{"c_2"}}
	return f
}

func lineOf(p *influxdb2_write.Point) string {
	return strings.TrimSpace(influxdb2_write.PointToLineProtocol(p, time.Second))
}

func TestTeamStatePoints(t *testing.T) {
	points := TeamStatePoints(testMeta(), testFrame())
	require.Len(t, points, core.NumTeams)

	line := lineOf(points[0])
	assert.True(t, strings.HasPrefix(line, "team_state,replay=ladder,team=0 "), line)
	assert.Contains(t, line, "workers=2i")
	assert.Contains(t, line, "city_tiles=2i")
	assert.Contains(t, line, "wood_collected=40i")
	assert.Contains(t, line, "warnings_this_turn=1i")
	assert.True(t, strings.HasSuffix(line, " 1777636807"), "turn 7 is seven seconds after the start: %s", line)

	line = lineOf(points[1])
	assert.Contains(t, line, "team=1")
	assert.Contains(t, line, "city_tiles=1i")
}

func TestPerformancePoint(t *testing.T) {
	p := PerformancePoint("ladder", "generating", 12, 3, 40, 1500*time.Microsecond, time.Unix(100, 0))
	line := lineOf(p)
	assert.True(t, strings.HasPrefix(line, "generation,phase=generating,replay=ladder "), line)
	assert.Contains(t, line, "last_turn_ms=1.5")
	assert.Contains(t, line, "turns=12i")
	assert.Contains(t, line, "write_queue=40i")
	assert.True(t, strings.HasSuffix(line, " 100"), line)
}

func TestConnect_Disabled(t *testing.T) {
	viper.Reset()
	viper.Set("influx.enabled", false)
	t.Cleanup(viper.Reset)

	m := NewManager(zerolog.Nop(), "")
	assert.Error(t, m.Connect(context.Background()))
}

func TestConnect_BackupWhenUnreachable(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.Set("influx.enabled", true)
	viper.Set("influx.protocol", "http")
	viper.Set("influx.host", "127.0.0.1")
	viper.Set("influx.port", "1")

	path := filepath.Join(t.TempDir(), "influx_backup.log.gz")
	m := NewManager(zerolog.Nop(), path)
	require.NoError(t, m.Connect(context.Background()))
	assert.False(t, m.IsValid)

	require.NoError(t, m.WriteFrame(testMeta(), testFrame()))
	require.NoError(t, m.Close())

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()
	zr, err := gzip.NewReader(file)
	require.NoError(t, err)
	data, err := io.ReadAll(zr)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, core.NumTeams)
	assert.Contains(t, lines[0], "team_state,replay=ladder,team=0")
	assert.Contains(t, lines[1], "team_state,replay=ladder,team=1")
}

func TestWritePoint_NoSink(t *testing.T) {
	m := NewManager(zerolog.Nop(), "")
	p := PerformancePoint("x", "idle", 0, 0, 0, 0, time.Unix(0, 0))
	assert.Error(t, m.WritePoint(BucketPerformance, p))
	assert.NoError(t, m.Close())
}
