package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/OCAP2/luxreplay/internal/config"
	"github.com/spf13/pflag"
)

// module defs - Version and BuildDate can be set at build time via ldflags
var (
	Version   string = "0.1.0"
	BuildDate string = "unknown"

	AppName string = "luxreplay"
)

// errUsage marks errors caused by bad arguments rather than a failed run.
var errUsage = errors.New("usage")

const usage = `usage: luxreplay <command> [flags]

commands:
  generate <replay.json>                generate frames, persist them and optionally upload the export
  inspect <replay.json|export> | --replay-id N
                                        load or generate a replay and serve the SSH console
  export --replay-id N [--out file]     write a stored replay as a v1 export
  schema                                print the JSON schema of the v1 export
  version                               print the version
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one command and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usage)
		return 2
	}

	var err error
	switch args[0] {
	case "generate":
		err = runGenerate(ctx, args[1:], stdout)
	case "inspect":
		err = runInspect(ctx, args[1:], stdout)
	case "export":
		err = runExport(ctx, args[1:], stdout)
	case "schema":
		err = runSchema(stdout)
	case "version":
		fmt.Fprintf(stdout, "%s %s (built %s)\n", AppName, Version, BuildDate)
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usage)
		return 2
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage), errors.Is(err, pflag.ErrHelp):
		fmt.Fprintf(stderr, "%v\n\n%s", err, usage)
		return 2
	default:
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
}

// options are the command flags that are not config keys.
type options struct {
	configDir string
	replayID  uint
	out       string
	name      string
	tag       string
	upload    bool
	// configErr is why the config file was not read, logged once logging is up.
	configErr error
}

// parseFlags parses args for command. Config flags are named after the
// config key they override.
func parseFlags(command string, args []string) (*options, []string, error) {
	opts := &options{}
	fs := pflag.NewFlagSet(command, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&opts.configDir, "config", ".", "directory holding "+config.FileName)
	fs.UintVar(&opts.replayID, "replay-id", 0, "database id of a stored replay")
	fs.StringVar(&opts.out, "out", "", "export file path")
	fs.StringVar(&opts.name, "name", "", "replay name, defaults to the file name")
	fs.StringVar(&opts.tag, "tag", "", "replay tag, defaults to defaultTag")
	fs.BoolVar(&opts.upload, "upload", false, "upload the export to the viewer after generating")

	cfgFlags := pflag.NewFlagSet(command+" config", pflag.ContinueOnError)
	cfgFlags.String("logLevel", "info", "log level (debug, info, warn, error)")
	cfgFlags.String("logsDir", "./replaylogs", "directory for log files")
	cfgFlags.String("storage.type", "memory", "storage backend (memory, postgres, sqlite, websocket)")
	cfgFlags.String("storage.memory.outputDir", "./replays", "directory for exported replays")
	cfgFlags.String("console.address", ":2222", "SSH console listen address")
	cfgFlags.String("oracle.command", "node", "simulation engine command")
	cfgFlags.Bool("influx.enabled", false, "write team metrics to InfluxDB")
	cfgFlags.String("db.driver", "postgres", "database driver for stored replays (postgres, sqlite)")
	cfgFlags.String("db.path", "./luxreplay.db", "SQLite database file")
	cfgFlags.String("api.serverUrl", "http://localhost:5000", "viewer URL for uploads")
	fs.AddFlagSet(cfgFlags)

	if err := fs.Parse(args); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", errUsage, err)
	}

	if err := config.Load(opts.configDir); err != nil {
		opts.configErr = err
		config.LoadDefaults()
	}
	if err := config.BindFlags(cfgFlags); err != nil {
		return nil, nil, err
	}
	if opts.tag == "" {
		opts.tag = config.GetString("defaultTag")
	}
	return opts, fs.Args(), nil
}
