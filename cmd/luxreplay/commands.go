package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/OCAP2/luxreplay/internal/api"
	"github.com/OCAP2/luxreplay/internal/config"
	"github.com/OCAP2/luxreplay/internal/dispatcher"
	"github.com/OCAP2/luxreplay/internal/handlers"
	"github.com/OCAP2/luxreplay/internal/logging"
	"github.com/OCAP2/luxreplay/internal/parser"
	"github.com/OCAP2/luxreplay/internal/replay"
	"github.com/OCAP2/luxreplay/internal/server"
	"github.com/OCAP2/luxreplay/internal/storage"
	gormstorage "github.com/OCAP2/luxreplay/internal/storage/gorm"
	"github.com/OCAP2/luxreplay/internal/storage/memory"
	v1 "github.com/OCAP2/luxreplay/internal/storage/memory/export/v1"
	"github.com/OCAP2/luxreplay/internal/worker"
	"github.com/OCAP2/luxreplay/pkg/core"
)

// runGenerate plays a replay log through the engine, persists every frame
// in the configured backend and optionally uploads the export.
func runGenerate(ctx context.Context, args []string, stdout io.Writer) error {
	opts, rest, err := parseFlags("generate", args)
	if err != nil {
		return err
	}
	if len(rest) != 1 {
		return fmt.Errorf("%w: generate takes one replay file", errUsage)
	}
	path := rest[0]

	a := newApp(opts)
	defer a.Close()

	r, err := parser.NewParser(a.Logger).ParseReplayFile(path)
	if err != nil {
		return err
	}
	meta := replayMeta(opts, path, r)

	backend, err := a.openStorage()
	if err != nil {
		return err
	}
	w := a.newWorker(ctx, backend)
	a.startMonitor(w)

	start := time.Now()
	store, err := w.Run(ctx, meta, r)
	if err != nil {
		return err
	}
	a.Monitor.Sample(time.Now())

	status := w.Status()
	fmt.Fprintf(stdout, "generated %d frames of %s in %s (%d warnings, %d sink errors)\n",
		store.Len(), meta.Name, time.Since(start).Round(time.Millisecond), status.Warnings, status.SinkErrors)

	up, ok := backend.(storage.Uploadable)
	if ok && up.GetExportedFilePath() != "" {
		fmt.Fprintf(stdout, "export written to %s\n", up.GetExportedFilePath())
	}
	if !opts.upload {
		return nil
	}
	if !ok {
		return fmt.Errorf("storage type %s does not produce an uploadable export", config.GetString("storage.type"))
	}
	return upload(ctx, a, up, stdout)
}

func replayMeta(opts *options, path string, r *core.Replay) *core.ReplayMeta {
	name := opts.name
	if name == "" {
		name = worker.ReplayName(path)
	}
	meta := core.NewReplayMeta(name, r, time.Now())
	meta.Tag = opts.tag
	return meta
}

// upload sends the export of up to the viewer.
func upload(ctx context.Context, a *app, up storage.Uploadable, stdout io.Writer) error {
	client := api.New(config.GetString("api.serverUrl"), config.GetString("api.apiKey"))
	if err := client.Healthcheck(ctx); err != nil {
		a.Logger.Info("Replay viewer is offline", "error", err)
		return fmt.Errorf("viewer unreachable: %w", err)
	}
	a.Logger.Info("Replay viewer is online")

	path := up.GetExportedFilePath()
	if err := client.Upload(ctx, path, up.GetExportMetadata()); err != nil {
		return err
	}
	a.Logger.Info("Uploaded replay", "path", path)
	fmt.Fprintf(stdout, "uploaded %s\n", filepath.Base(path))
	return nil
}

// runInspect loads a replay and serves the console until ctx ends. A
// replay log is generated in the background so its first turns can be
// inspected while the rest are computed.
func runInspect(ctx context.Context, args []string, stdout io.Writer) error {
	opts, rest, err := parseFlags("inspect", args)
	if err != nil {
		return err
	}
	if (opts.replayID == 0) == (len(rest) != 1) {
		return fmt.Errorf("%w: inspect takes one replay or export file, or --replay-id", errUsage)
	}

	a := newApp(opts)
	defer a.Close()

	d, err := dispatcher.New(logging.NewDispatcherLogger(a.Logger))
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}
	defer d.Close()

	handlers.NewService(handlers.Dependencies{
		Session:         a.Session,
		Logger:          a.Logger,
		ProjectionScale: config.GetFloat("projection.scale"),
		ExportDir:       config.GetStorageConfig().Memory.OutputDir,
	}).Register(d)
	w := a.newWorker(ctx, nil)
	w.RegisterHandlers(ctx, d)

	if opts.replayID != 0 {
		meta, store, err := loadStored(ctx, a, opts.replayID)
		if err != nil {
			return err
		}
		a.Session.SetReplay(meta, store)
	} else if err := a.load(ctx, w, opts, rest[0]); err != nil {
		return err
	}

	srv, err := server.NewSSHServer(config.GetConsoleConfig(), d, a.Logger)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "console listening on %s\n", config.GetConsoleConfig().Address)

	served := make(chan error, 1)
	go func() { served <- srv.ListenAndServe() }()

	select {
	case err := <-served:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		srv.Close()
	}
	return nil
}

// load publishes path to the session. Exports are loaded as they are;
// anything else is parsed as a replay log and generated.
func (a *app) load(ctx context.Context, w *worker.Manager, opts *options, path string) error {
	if export, err := memory.ReadExport(path); err == nil {
		meta := export.Meta()
		store, err := replay.NewStoreFromFrames(export.CoreFrames())
		if err != nil {
			return fmt.Errorf("invalid export %s: %w", path, err)
		}
		a.Session.SetReplay(&meta, store)
		a.Logger.Info("Loaded export", "path", path, "frames", store.Len())
		return nil
	}

	r, err := parser.NewParser(a.Logger).ParseReplayFile(path)
	if err != nil {
		return err
	}
	meta := replayMeta(opts, path, r)
	a.startMonitor(w)
	go func() {
		if _, err := w.Run(ctx, meta, r); err != nil {
			a.Logger.Error("Generation stopped", "error", err)
		}
	}()
	return nil
}

// loadStored reads a replay back from the database.
func loadStored(ctx context.Context, a *app, replayID uint) (*core.ReplayMeta, *replay.Store, error) {
	db, err := a.connectDatabase()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	var loader storage.FrameLoader = gormstorage.New(gormstorage.Dependencies{DB: db, Logger: a.Logger})

	meta, frames, err := loader.LoadFrames(ctx, replayID)
	if err != nil {
		return nil, nil, err
	}
	store, err := replay.NewStoreFromFrames(frames)
	if err != nil {
		return nil, nil, fmt.Errorf("stored replay %d: %w", replayID, err)
	}
	a.Logger.Info("Loaded stored replay", "replayID", replayID, "frames", store.Len())
	return meta, store, nil
}

// runExport writes a stored replay as a v1 export file.
func runExport(ctx context.Context, args []string, stdout io.Writer) error {
	opts, rest, err := parseFlags("export", args)
	if err != nil {
		return err
	}
	if opts.replayID == 0 || len(rest) != 0 {
		return fmt.Errorf("%w: export needs --replay-id", errUsage)
	}

	a := newApp(opts)
	defer a.Close()

	meta, store, err := loadStored(ctx, a, opts.replayID)
	if err != nil {
		return err
	}

	out := opts.out
	if out == "" {
		out = filepath.Join(config.GetStorageConfig().Memory.OutputDir, fmt.Sprintf("replay_%d.json.gz", opts.replayID))
	}
	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := memory.WriteExport(out, v1.Build(*meta, store.Frames())); err != nil {
		return err
	}
	a.Logger.Info("Exported replay", "replayID", opts.replayID, "path", out)
	fmt.Fprintf(stdout, "exported %d frames to %s\n", store.Len(), out)
	return nil
}

// runSchema prints the JSON schema of the export format.
func runSchema(stdout io.Writer) error {
	data, err := json.MarshalIndent(v1.Schema(), "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(stdout, "%s\n", data)
	return err
}
