package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/OCAP2/luxreplay/internal/config"
	"github.com/OCAP2/luxreplay/internal/database"
	"github.com/OCAP2/luxreplay/internal/influx"
	"github.com/OCAP2/luxreplay/internal/logging"
	"github.com/OCAP2/luxreplay/internal/monitor"
	"github.com/OCAP2/luxreplay/internal/oracle/process"
	intOtel "github.com/OCAP2/luxreplay/internal/otel"
	"github.com/OCAP2/luxreplay/internal/session"
	"github.com/OCAP2/luxreplay/internal/storage"
	"github.com/OCAP2/luxreplay/internal/worker"

	"gorm.io/gorm"
)

// app holds the services shared by the commands. Everything except logging
// is set up on demand.
type app struct {
	SessionStartTime time.Time

	// SlogManager handles all slog-based logging
	SlogManager *logging.SlogManager
	// Logger is the slog logger (convenience reference)
	Logger *slog.Logger
	// OTelProvider handles OpenTelemetry
	OTelProvider *intOtel.Provider

	LogFile     io.Writer
	LogFilePath string

	Session *session.Context
	DB      *database.Manager
	Influx  *influx.Manager
	Backend storage.Backend
	Oracle  *process.Oracle
	Monitor *monitor.Service
}

// newApp sets up logging. Records go to a per-session file in logsDir,
// OTel and Graylog when enabled.
func newApp(opts *options) *app {
	a := &app{
		SessionStartTime: time.Now(),
		SlogManager:      logging.NewSlogManager(),
		Session:          session.NewContext(),
	}

	logsDir := config.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logs directory: %v\n", err)
	}
	a.LogFilePath = logging.LogFilePath(logsDir, AppName, a.SessionStartTime)
	file, err := os.OpenFile(a.LogFilePath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create log file %s: %v\n", a.LogFilePath, err)
	} else {
		a.LogFile = file
		a.SlogManager.AddCloser(file)
	}

	var extra []slog.Handler
	var otelErr, graylogErr error
	if config.GetBool("graylog.enabled") {
		h, w, err := logging.NewGraylogHandler(config.GetString("graylog.address"), config.GetString("logLevel"))
		if err != nil {
			graylogErr = err
		} else {
			extra = append(extra, h)
			a.SlogManager.AddCloser(w)
		}
	}

	otelCfg := config.GetOTelConfig()
	if otelCfg.Enabled {
		a.OTelProvider, otelErr = intOtel.New(intOtel.Config{
			Enabled:        otelCfg.Enabled,
			ServiceName:    otelCfg.ServiceName,
			BatchTimeout:   otelCfg.BatchTimeout,
			LogWriter:      a.LogFile,
			Endpoint:       otelCfg.Endpoint,
			Insecure:       otelCfg.Insecure,
			ServiceVersion: Version,
		})
	}

	if a.OTelProvider != nil {
		a.SlogManager.Setup(a.LogFile, config.GetString("logLevel"), a.OTelProvider.LoggerProvider(), extra...)
	} else {
		a.SlogManager.Setup(a.LogFile, config.GetString("logLevel"), nil, extra...)
	}
	a.SlogManager.WithContext(a.Session.LogAttrs)
	a.Logger = a.SlogManager.Logger()

	a.Logger.Info("Starting up", "version", Version, "build", BuildDate, "log", a.LogFilePath)
	if opts.configErr != nil {
		a.Logger.Warn("Failed to load config, using defaults!", "error", opts.configErr)
	} else {
		a.Logger.Info("Loaded config", "dir", opts.configDir)
	}
	if otelErr != nil {
		a.Logger.Error("Failed to initialize OTel provider", "error", otelErr)
	}
	if graylogErr != nil {
		a.Logger.Error("Failed to initialize Graylog handler", "error", graylogErr)
	}
	return a
}

// connectDatabase opens the database selected by db.driver and migrates it.
func (a *app) connectDatabase() (*gorm.DB, error) {
	if a.DB != nil {
		return a.DB.DB, nil
	}
	mgr := database.NewManager(logging.NewZerolog(a.Logger, "database"))
	if err := mgr.Connect(); err != nil {
		return nil, err
	}
	if err := mgr.Setup(); err != nil {
		mgr.Close()
		return nil, err
	}
	a.DB = mgr
	return mgr.DB, nil
}

// openStorage creates and initializes the configured storage backend.
func (a *app) openStorage() (storage.Backend, error) {
	cfg := config.GetStorageConfig()

	var db *gorm.DB
	if cfg.Type == "postgres" {
		var err error
		if db, err = a.connectDatabase(); err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
	}

	backend, err := storage.NewBackend(cfg, db, a.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage backend: %w", err)
	}
	if err := backend.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize storage backend: %w", err)
	}
	a.Backend = backend
	a.Logger.Info("Storage backend initialized", "type", cfg.Type)
	return backend, nil
}

// connectMetrics returns the InfluxDB sink, or nil when it is disabled or
// cannot be set up.
func (a *app) connectMetrics(ctx context.Context) *influx.Manager {
	if !config.GetBool("influx.enabled") {
		return nil
	}
	backupPath := filepath.Join(config.GetString("logsDir"),
		fmt.Sprintf("influx_backup_%s.lp.gz", a.SessionStartTime.Format("20060102_150405")))
	mgr := influx.NewManager(logging.NewZerolog(a.Logger, "influx"), backupPath)
	if err := mgr.Connect(ctx); err != nil {
		a.Logger.Error("Failed to set up InfluxDB, metrics disabled", "error", err)
		return nil
	}
	a.Influx = mgr
	return mgr
}

// newWorker creates the generation pipeline around the engine process.
// backend may be nil.
func (a *app) newWorker(ctx context.Context, backend storage.Backend) *worker.Manager {
	a.Oracle = process.New(config.GetOracleConfig(), a.Logger)

	deps := worker.Dependencies{
		Oracle:  a.Oracle,
		Backend: backend,
		Session: a.Session,
		Logger:  a.Logger,
	}
	if m := a.connectMetrics(ctx); m != nil {
		deps.Metrics = m
	}
	return worker.NewManager(deps)
}

// startMonitor samples w into the status file, the performance table of
// the storage database and InfluxDB.
func (a *app) startMonitor(w *worker.Manager) {
	deps := monitor.Dependencies{
		Worker:     w,
		Session:    a.Session,
		Logger:     a.Logger,
		StatusFile: filepath.Join(config.GetString("logsDir"), AppName+".status.txt"),
	}
	if b, ok := a.Backend.(interface{ DB() *gorm.DB }); ok {
		deps.DB = b.DB()
	}
	if a.Influx != nil {
		deps.Metrics = a.Influx
	}

	a.Monitor = monitor.NewService(deps)
	if err := a.Monitor.Start(); err != nil {
		a.Logger.Error("Failed to start status monitor", "error", err)
	}
}

// Close stops every service in reverse start order.
func (a *app) Close() {
	if a.Monitor != nil {
		a.Monitor.Stop()
	}
	if a.Oracle != nil {
		if err := a.Oracle.Close(); err != nil {
			a.Logger.Warn("Engine did not stop cleanly", "error", err)
		}
	}
	if a.Backend != nil {
		if err := a.Backend.Close(); err != nil {
			a.Logger.Error("Failed to close storage backend", "error", err)
		}
	}
	if a.Influx != nil {
		if err := a.Influx.Close(); err != nil {
			a.Logger.Error("Failed to close InfluxDB", "error", err)
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Error("Failed to close database", "error", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	a.Logger.Info("Shutting down")
	a.SlogManager.Flush(ctx)
	if a.OTelProvider != nil {
		if err := a.OTelProvider.Shutdown(ctx); err != nil {
			a.Logger.Warn("Failed to shut down OTel provider", "error", err)
		}
	}
	a.SlogManager.Close(ctx)
}
