// Package process drives an external simulation engine over line-delimited
// JSON on its standard input and output. One engine process plays one match.
//
// Every request is a single line, {"op":"init","config":{...}} or
// {"op":"update","commands":[...]}, and is answered by a single line
// holding the full post-request state:
//
//	{"ok":true,"warnings":["Team 1 - ..."],"state":{...}}
//
// Only cells that carry a resource or a non-default road are reported.
package process

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync"
	"time"

	"github.com/OCAP2/luxreplay/internal/config"
	"github.com/OCAP2/luxreplay/internal/oracle"
	"github.com/OCAP2/luxreplay/pkg/core"
)

// DefaultTimeout bounds one request when the config sets none.
const DefaultTimeout = 30 * time.Second

// maxLine is the largest response accepted from the engine.
const maxLine = 64 << 20

var (
	// ErrEngineExited is returned when the engine process is gone.
	ErrEngineExited = errors.New("engine process exited")
	// ErrTimeout is returned when the engine does not answer in time.
	ErrTimeout = errors.New("engine did not answer in time")
)

type request struct {
	Op       string              `json:"op"`
	Config   *oracle.Config      `json:"config,omitempty"`
	Commands []core.CommandEntry `json:"commands,omitempty"`
}

type response struct {
	OK       bool      `json:"ok"`
	Error    string    `json:"error,omitempty"`
	Warnings []string  `json:"warnings,omitempty"`
	State    *snapshot `json:"state,omitempty"`
}

type snapshot struct {
	Width    int                `json:"width"`
	Height   int                `json:"height"`
	Turn     int                `json:"turn"`
	MaxTurns int                `json:"maxTurns"`
	Units    []core.Unit        `json:"units"`
	Cities   []oracle.City      `json:"cities"`
	Cells    []wireCell         `json:"cells"`
	Teams    []oracle.TeamStats `json:"teams"`
}

// wireCell is a reported cell. A missing road means the default level.
type wireCell struct {
	Pos      core.Position      `json:"pos"`
	Resource *core.ResourceTile `json:"resource,omitempty"`
	Road     *float64           `json:"road,omitempty"`
}

// Oracle starts the configured engine command for every match.
type Oracle struct {
	cfg    config.OracleConfig
	logger *slog.Logger

	mu      sync.Mutex
	current *engine
}

var _ oracle.Oracle = (*Oracle)(nil)

// New returns an oracle that runs cfg.Command.
func New(cfg config.OracleConfig, logger *slog.Logger) *Oracle {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Oracle{cfg: cfg, logger: logger.With("component", "oracle")}
}

// Initialize starts a fresh engine process, stopping any previous one.
func (o *Oracle) Initialize(ctx context.Context, cfg oracle.Config) (oracle.State, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.current != nil {
		o.current.stop()
		o.current = nil
	}

	e, err := o.start()
	if err != nil {
		return nil, err
	}
	resp, err := e.call(ctx, request{Op: "init", Config: &cfg}, o.cfg.Timeout)
	if err != nil {
		e.stop()
		return nil, err
	}
	if !resp.OK || resp.State == nil {
		e.stop()
		return nil, fmt.Errorf("engine rejected match setup: %s", resp.Error)
	}

	o.current = e
	st := &State{engine: e}
	st.load(resp.State)
	return st, nil
}

// Update sends one turn of commands to the engine owning st.
func (o *Oracle) Update(ctx context.Context, s oracle.State, cmds []core.CommandEntry, w *oracle.Warnings) error {
	st, ok := s.(*State)
	if !ok {
		return errors.New("state was not created by this oracle")
	}
	if cmds == nil {
		cmds = []core.CommandEntry{}
	}

	resp, err := st.engine.call(ctx, request{Op: "update", Commands: cmds}, o.cfg.Timeout)
	if err != nil {
		return err
	}
	for _, msg := range resp.Warnings {
		w.Add(msg)
	}
	if resp.State != nil {
		st.load(resp.State)
	}
	if !resp.OK {
		return fmt.Errorf("engine update failed: %s", resp.Error)
	}
	return nil
}

// Close stops the running engine process, if any.
func (o *Oracle) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.current == nil {
		return nil
	}
	err := o.current.stop()
	o.current = nil
	return err
}

func (o *Oracle) start() (*engine, error) {
	cmd := exec.Command(o.cfg.Command, o.cfg.Args...)
	cmd.Dir = o.cfg.Dir

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("engine stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("engine stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("engine stderr: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start engine %q: %w", o.cfg.Command, err)
	}
	o.logger.Debug("Engine started", "command", o.cfg.Command, "pid", cmd.Process.Pid)

	e := &engine{
		cmd:    cmd,
		stdin:  stdin,
		lines:  make(chan []byte),
		exited: make(chan struct{}),
		logger: o.logger,
	}
	go e.readStdout(stdout)
	go e.logStderr(stderr)
	return e, nil
}

// engine is one running engine process. Calls are serialized.
type engine struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	lines  chan []byte
	exited chan struct{}
	logger *slog.Logger

	callMu   sync.Mutex
	stopOnce sync.Once
	stopErr  error
}

func (e *engine) readStdout(r io.Reader) {
	defer close(e.exited)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLine)
	for sc.Scan() {
		line := append([]byte(nil), sc.Bytes()...)
		select {
		case e.lines <- line:
		case <-time.After(time.Minute):
			e.logger.Warn("Dropping unrequested engine output", "bytes", len(line))
		}
	}
	if err := sc.Err(); err != nil {
		e.logger.Error("Engine output unreadable", "error", err)
	}
}

func (e *engine) logStderr(r io.Reader) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		e.logger.Debug("Engine stderr", "line", sc.Text())
	}
}

func (e *engine) call(ctx context.Context, req request, timeout time.Duration) (*response, error) {
	e.callMu.Lock()
	defer e.callMu.Unlock()

	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", req.Op, err)
	}
	if _, err := e.stdin.Write(append(data, '\n')); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEngineExited, err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case line := <-e.lines:
		var resp response
		if err := json.Unmarshal(line, &resp); err != nil {
			return nil, fmt.Errorf("decode %s response: %w", req.Op, err)
		}
		return &resp, nil
	case <-e.exited:
		return nil, ErrEngineExited
	case <-timer.C:
		e.stop()
		return nil, fmt.Errorf("%s: %w after %s", req.Op, ErrTimeout, timeout)
	case <-ctx.Done():
		e.stop()
		return nil, ctx.Err()
	}
}

// stop closes stdin and kills the process if it does not exit promptly.
func (e *engine) stop() error {
	e.stopOnce.Do(func() {
		e.stdin.Close()
		select {
		case <-e.exited:
		case <-time.After(2 * time.Second):
		}
		if e.cmd.ProcessState == nil {
			e.cmd.Process.Kill()
		}
		if err := e.cmd.Wait(); err != nil {
			var exitErr *exec.ExitError
			if !errors.As(err, &exitErr) {
				e.stopErr = err
			}
		}
	})
	return e.stopErr
}

// State is the engine state as of the last response.
type State struct {
	engine *engine

	width, height int
	turn, max     int
	units         [core.NumTeams][]core.Unit
	cities        []oracle.City
	cells         map[core.Position]oracle.Cell
	stats         [core.NumTeams]oracle.TeamStats
}

var _ oracle.State = (*State)(nil)

func (s *State) load(snap *snapshot) {
	s.width, s.height = snap.Width, snap.Height
	s.turn, s.max = snap.Turn, snap.MaxTurns

	for i := range s.units {
		s.units[i] = nil
	}
	for _, u := range snap.Units {
		if u.Team.Valid() {
			s.units[u.Team] = append(s.units[u.Team], u)
		}
	}

	s.cities = snap.Cities

	s.cells = make(map[core.Position]oracle.Cell, len(snap.Cells))
	for _, wc := range snap.Cells {
		c := oracle.Cell{Pos: wc.Pos, Resource: wc.Resource, RoadLevel: oracle.DefaultRoadLevel}
		if wc.Road != nil {
			c.RoadLevel = *wc.Road
		}
		if c.Resource != nil {
			c.Resource.Pos = c.Pos
		}
		s.cells[c.Pos] = c
	}

	s.stats = [core.NumTeams]oracle.TeamStats{}
	for i, t := range snap.Teams {
		if i < core.NumTeams {
			s.stats[i] = t
		}
	}
}

func (s *State) Width() int    { return s.width }
func (s *State) Height() int   { return s.height }
func (s *State) Turn() int     { return s.turn }
func (s *State) MaxTurns() int { return s.max }

func (s *State) Units(team core.Team) []core.Unit {
	if !team.Valid() {
		return nil
	}
	return append([]core.Unit(nil), s.units[team]...)
}

func (s *State) Cities() []oracle.City {
	out := make([]oracle.City, len(s.cities))
	for i, c := range s.cities {
		c.Tiles = append([]core.CityTile(nil), c.Tiles...)
		out[i] = c
	}
	return out
}

func (s *State) Cell(x, y int) oracle.Cell {
	pos := core.Position{X: x, Y: y}
	c, ok := s.cells[pos]
	if !ok {
		return oracle.Cell{Pos: pos, RoadLevel: oracle.DefaultRoadLevel}
	}
	if c.Resource != nil {
		r := *c.Resource
		c.Resource = &r
	}
	return c
}

func (s *State) TeamStats(team core.Team) oracle.TeamStats {
	if !team.Valid() {
		return oracle.TeamStats{}
	}
	return s.stats[team]
}
