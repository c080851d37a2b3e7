package influx

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/OCAP2/luxreplay/pkg/core"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// Bucket names used by the replay pipeline.
const (
	BucketFrames      = "replay_frames"
	BucketPerformance = "generation_performance"
)

// DefaultBucketNames are the buckets created on connect.
var DefaultBucketNames = []string{BucketFrames, BucketPerformance}

// Manager handles InfluxDB connections and writes.
type Manager struct {
	Client       influxdb2.Client
	Writers      map[string]influxdb2_api.WriteAPI
	BackupWriter *gzip.Writer
	IsValid      bool
	BucketNames  []string
	Logger       zerolog.Logger
	BackupPath   string

	mu         sync.Mutex
	backupFile *os.File
}

// NewManager creates a new InfluxDB manager.
func NewManager(log zerolog.Logger, backupPath string) *Manager {
	return &Manager{
		Writers:     make(map[string]influxdb2_api.WriteAPI),
		IsValid:     false,
		BucketNames: DefaultBucketNames,
		Logger:      log,
		BackupPath:  backupPath,
	}
}

// ServerURL builds the InfluxDB URL from configuration.
func ServerURL() string {
	return fmt.Sprintf(
		"%s://%s:%s",
		viper.GetString("influx.protocol"),
		viper.GetString("influx.host"),
		viper.GetString("influx.port"),
	)
}

// Connect establishes a connection to InfluxDB. When the server does not
// answer, points go to the gzip backup file instead.
func (m *Manager) Connect(ctx context.Context) error {
	if !viper.GetBool("influx.enabled") {
		return errors.New("influx.enabled is false")
	}

	m.Client = influxdb2.NewClientWithOptions(
		ServerURL(),
		viper.GetString("influx.token"),
		influxdb2.DefaultOptions().
			SetBatchSize(2500).
			SetFlushInterval(1000),
	)

	// validate client connection health
	running, err := m.Client.Ping(ctx)

	if err != nil || !running {
		m.IsValid = false
		m.Logger.Info().Str("backupPath", m.BackupPath).
			Msg("Failed to initialize InfluxDB client, writing to backup file")
		if err := m.openBackup(); err != nil {
			return err
		}
	} else {
		m.IsValid = true
	}

	if m.IsValid {
		err = m.setupOrganizationAndBuckets(ctx)
		if err != nil {
			return err
		}
		m.CreateWriters()
		m.Logger.Info().Msg("InfluxDB client initialized")
	} else {
		m.Logger.Warn().Msg("InfluxDB client failed to initialize, using backup writer")
	}

	return nil
}

func (m *Manager) openBackup() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.BackupWriter != nil {
		return nil
	}
	if m.BackupPath == "" {
		return errors.New("no influx backup path configured")
	}
	file, err := os.OpenFile(m.BackupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("error creating backup file: %w", err)
	}
	m.backupFile = file
	m.BackupWriter = gzip.NewWriter(file)
	return nil
}

func (m *Manager) setupOrganizationAndBuckets(ctx context.Context) error {
	orgName := viper.GetString("influx.org")

	// ensure org exists
	_, err := m.Client.OrganizationsAPI().FindOrganizationByName(ctx, orgName)
	if err != nil {
		m.Logger.Info().Str("org", orgName).Msg("Organization not found, creating")
		_, err = m.Client.OrganizationsAPI().CreateOrganizationWithName(ctx, orgName)
		if err != nil {
			m.Logger.Error().Err(err).Str("org", orgName).Msg("Error creating organization")
			return err
		}
	}

	influxOrg, err := m.Client.OrganizationsAPI().FindOrganizationByName(ctx, orgName)
	if err != nil {
		m.Logger.Error().Err(err).Str("org", orgName).Msg("Error getting organization")
		return err
	}

	// ensure buckets exist with 90 day retention
	for _, bucket := range m.BucketNames {
		_, err = m.Client.BucketsAPI().FindBucketByName(ctx, bucket)
		if err != nil {
			m.Logger.Info().Str("bucket", bucket).Msg("Bucket not found, creating")

			rule := domain.RetentionRuleTypeExpire
			_, err = m.Client.BucketsAPI().CreateBucketWithName(ctx, influxOrg, bucket, domain.RetentionRule{
				Type:         &rule,
				EverySeconds: 60 * 60 * 24 * 90, // 90 days
			})
			if err != nil {
				m.Logger.Error().Err(err).Str("bucket", bucket).Msg("Error creating bucket")
				return err
			}
		}
	}

	return nil
}

// CreateWriters creates write APIs for all configured buckets.
func (m *Manager) CreateWriters() {
	orgName := viper.GetString("influx.org")
	for _, bucket := range m.BucketNames {
		m.Writers[bucket] = m.Client.WriteAPI(orgName, bucket)

		errorsCh := m.Writers[bucket].Errors()
		go func(bucketName string, errorsCh <-chan error) {
			for writeErr := range errorsCh {
				m.Logger.Error().Err(writeErr).Str("bucket", bucketName).
					Msg("Error sending data to InfluxDB")
			}
		}(bucket, errorsCh)
	}

	m.Logger.Debug().Msg("InfluxDB writers initialized")
}

// WritePoint writes a point to InfluxDB or backup file.
func (m *Manager) WritePoint(bucket string, point *influxdb2_write.Point) error {
	if m.IsValid {
		w, ok := m.Writers[bucket]
		if !ok {
			return fmt.Errorf("influxDB bucket '%s' not registered", bucket)
		}
		w.WritePoint(point)
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.BackupWriter == nil {
		return fmt.Errorf("influxDB client not initialized and backup writer not available")
	}

	lineProtocol := strings.TrimSuffix(influxdb2_write.PointToLineProtocol(point, time.Nanosecond), "\n")
	if _, err := m.BackupWriter.Write([]byte(lineProtocol + "\n")); err != nil {
		return fmt.Errorf("error writing to InfluxDB backup file: %w", err)
	}
	return nil
}

// WriteFrame writes the team_state points of one frame.
func (m *Manager) WriteFrame(meta *core.ReplayMeta, f *core.Frame) error {
	for _, p := range TeamStatePoints(meta, f) {
		if err := m.WritePoint(BucketFrames, p); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes pending points and releases the client and backup file.
func (m *Manager) Close() error {
	for _, w := range m.Writers {
		w.Flush()
	}
	if m.Client != nil {
		m.Client.Close()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.BackupWriter == nil {
		return nil
	}
	err := errors.Join(m.BackupWriter.Close(), m.backupFile.Close())
	m.BackupWriter = nil
	m.backupFile = nil
	return err
}

// TurnTime is the timestamp given to points of a turn: the replay start
// plus one second per turn, so turns keep their order on a time axis.
func TurnTime(meta *core.ReplayMeta, turn int) time.Time {
	return meta.StartedAt.Add(time.Duration(turn) * time.Second)
}

// TeamStatePoints returns one team_state point per team for frame f.
func TeamStatePoints(meta *core.ReplayMeta, f *core.Frame) []*influxdb2_write.Point {
	tiles := [core.NumTeams]int{}
	for _, t := range f.CityTileData {
		if t.Team.Valid() {
			tiles[t.Team]++
		}
	}

	points := make([]*influxdb2_write.Point, 0, core.NumTeams)
	for _, team := range core.Teams {
		ts := f.TeamStates[team]
		collected := ts.Statistics.ResourcesCollected
		p := influxdb2_write.NewPoint(
			"team_state",
			map[string]string{
				"replay": meta.Name,
				"team":   strconv.Itoa(int(team)),
			},
			map[string]interface{}{
				"turn":               f.Turn,
				"workers":            ts.Workers,
				"carts":              ts.Carts,
				"cities":             len(ts.CitiesOwned),
				"city_tiles":         tiles[team],
				"research_points":    ts.ResearchPoints,
				"fuel_generated":     ts.Statistics.FuelGenerated,
				"wood_collected":     collected.Get(core.ResourceWood),
				"coal_collected":     collected.Get(core.ResourceCoal),
				"uranium_collected":  collected.Get(core.ResourceUranium),
				"warnings_this_turn": len(f.Errors),
			},
			TurnTime(meta, f.Turn),
		)
		points = append(points, p)
	}
	return points
}

// PerformancePoint describes one generation progress sample.
func PerformancePoint(replayName string, phase string, turns, warnings, queueLen int, lastTurn time.Duration, at time.Time) *influxdb2_write.Point {
	return influxdb2_write.NewPoint(
		"generation",
		map[string]string{"replay": replayName, "phase": phase},
		map[string]interface{}{
			"turns":        turns,
			"warnings":     warnings,
			"write_queue":  queueLen,
			"last_turn_ms": float64(lastTurn.Microseconds()) / 1000,
		},
		at,
	)
}
