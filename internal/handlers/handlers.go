// Package handlers implements the inspection console commands. They scrub
// through the frames of the session's replay and describe what is on the
// board at the current turn.
package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/OCAP2/luxreplay/internal/dispatcher"
	"github.com/OCAP2/luxreplay/internal/frame"
	"github.com/OCAP2/luxreplay/internal/geo"
	"github.com/OCAP2/luxreplay/internal/parser"
	"github.com/OCAP2/luxreplay/internal/replay"
	"github.com/OCAP2/luxreplay/internal/session"
	"github.com/OCAP2/luxreplay/internal/storage/memory"
	v1 "github.com/OCAP2/luxreplay/internal/storage/memory/export/v1"
	"github.com/OCAP2/luxreplay/pkg/core"
)

// inspectorTurns is how many turns of tile and road indexes are kept.
const inspectorTurns = 32

// ErrNoReplay is returned by every frame command while nothing is loaded.
var ErrNoReplay = errors.New("no replay loaded")

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Session         *session.Context
	Logger          *slog.Logger
	ProjectionScale float64
	// ExportDir is where relative export paths are written.
	ExportDir string
}

// Service provides the console commands over the session replay.
type Service struct {
	deps Dependencies

	mu        sync.Mutex
	cursor    *replay.Cursor
	inspector *replay.Inspector
}

// NewService creates a new handler service
func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Session == nil {
		deps.Session = session.NewContext()
	}
	if deps.ProjectionScale <= 0 {
		deps.ProjectionScale = 1
	}
	return &Service{deps: deps}
}

// Register adds every console command to d.
func (s *Service) Register(d *dispatcher.Dispatcher) {
	d.Register("turn", s.handleTurn, dispatcher.Help("turn [n] - show or jump to turn n"))
	d.Register("next", s.step((*replay.Cursor).Next), dispatcher.Help("next - step one turn forward"))
	d.Register("prev", s.step((*replay.Cursor).Prev), dispatcher.Help("prev - step one turn back"))
	d.Register("first", s.step((*replay.Cursor).First), dispatcher.Help("first - jump to turn 0"))
	d.Register("last", s.step((*replay.Cursor).Last), dispatcher.Help("last - jump to the latest generated turn"))
	d.Register("tile", s.handleTile, dispatcher.Help("tile <x> <y> - list what stands on a cell"))
	d.Register("teams", s.handleTeams, dispatcher.Help("teams - team aggregates of the current turn"))
	d.Register("units", s.handleUnits, dispatcher.Help("units [team] - list units"))
	d.Register("cities", s.handleCities, dispatcher.Help("cities - list cities with fuel and size"))
	d.Register("errors", s.handleErrors, dispatcher.Help("errors - engine warnings of the current turn"))
	d.Register("annotations", s.handleAnnotations, dispatcher.Help("annotations - debug annotations of the current turn"))
	d.Register("roads", s.handleRoads, dispatcher.Help("roads - road cells with level and sprite variant"))
	d.Register("project", s.handleProject, dispatcher.Help("project <x> <y> - projected position and depth of a cell"))
	d.Register("pick", s.handlePick, dispatcher.Help("pick <px> <py> - grid cell under a projected point"))
	d.Register("export", s.handleExport, dispatcher.Buffered(4), dispatcher.Logged(),
		dispatcher.Help("export <file> - write the replay as a v1 export (.json, .json.gz, .json.zst)"))
	d.Register("help", func(e dispatcher.Event) (any, error) {
		var b strings.Builder
		for _, cmd := range d.Commands() {
			if text := d.HelpText(cmd); text != "" {
				b.WriteString(text)
			} else {
				b.WriteString(cmd)
			}
			b.WriteString("\n")
		}
		return strings.TrimSuffix(b.String(), "\n"), nil
	}, dispatcher.Help("help - list commands"))
}

// view returns the cursor over the session store, starting a new one when
// the session switched replays.
func (s *Service) view() (*replay.Cursor, *replay.Inspector, error) {
	store := s.deps.Session.Store()
	if store == nil || store.Len() == 0 {
		return nil, nil, ErrNoReplay
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cursor == nil || s.cursor.Store() != store {
		s.cursor = replay.NewCursor(store)
		s.inspector = replay.NewInspector(inspectorTurns)
	}
	return s.cursor, s.inspector, nil
}

func (s *Service) current() (*core.Frame, *replay.Inspector, error) {
	c, insp, err := s.view()
	if err != nil {
		return nil, nil, err
	}
	f, ok := c.Current()
	if !ok {
		return nil, nil, ErrNoReplay
	}
	return f, insp, nil
}

func parseInts(args []string, n int, usage string) ([]int, error) {
	if len(args) != n {
		return nil, fmt.Errorf("usage: %s", usage)
	}
	out := make([]int, n)
	for i, a := range args {
		v, err := strconv.Atoi(a)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", a)
		}
		out[i] = v
	}
	return out, nil
}

func (s *Service) summary(f *core.Frame) string {
	store := s.deps.Session.Store()
	state := "complete"
	if !store.Complete() {
		state = "generating"
	}
	return fmt.Sprintf("turn %d/%d (%s): %d units, %d cities, %d resources, %d roads, %d warnings",
		f.Turn, store.MaxTurns(), state,
		len(f.UnitData), len(f.CityData), len(f.ResourceData), len(f.CellsWithRoads), len(f.Errors))
}

func (s *Service) handleTurn(e dispatcher.Event) (any, error) {
	c, _, err := s.view()
	if err != nil {
		return nil, err
	}
	if len(e.Args) > 0 {
		n, err := parseInts(e.Args, 1, "turn [n]")
		if err != nil {
			return nil, err
		}
		if !c.Seek(n[0]) {
			return nil, fmt.Errorf("turn %d has not been generated", n[0])
		}
		s.deps.Session.SetTurn(n[0])
	}
	f, _ := c.Current()
	return s.summary(f), nil
}

func (s *Service) step(move func(*replay.Cursor) bool) dispatcher.HandlerFunc {
	return func(e dispatcher.Event) (any, error) {
		c, _, err := s.view()
		if err != nil {
			return nil, err
		}
		if !move(c) {
			return nil, fmt.Errorf("no frame there, staying on turn %d", c.Turn())
		}
		s.deps.Session.SetTurn(c.Turn())
		f, _ := c.Current()
		return s.summary(f), nil
	}
}

func (s *Service) handleTile(e dispatcher.Event) (any, error) {
	xy, err := parseInts(e.Args, 2, "tile <x> <y>")
	if err != nil {
		return nil, err
	}
	f, insp, err := s.current()
	if err != nil {
		return nil, err
	}

	pos := core.Position{X: xy[0], Y: xy[1]}
	td := insp.TileAt(f, pos)
	lines := []string{fmt.Sprintf("tile %d,%d on turn %d", pos.X, pos.Y, f.Turn)}
	if td.Resource != nil {
		line := fmt.Sprintf("  resource %s x%d", td.Resource.Type, td.Resource.Amount)
		if td.Resource.Type == core.ResourceWood {
			line += " sprite " + geo.TreeSprite(pos)
		}
		lines = append(lines, line)
	}
	for _, ct := range td.CityTiles {
		lines = append(lines, fmt.Sprintf("  city tile %s of %s (%s) cooldown %g sprite %s",
			ct.TileID, ct.CityID, ct.Team, ct.Cooldown, geo.CitySprite(ct.Team, ct.Pos)))
	}
	for _, id := range sortedKeys(td.Units) {
		u := td.Units[id]
		lines = append(lines, fmt.Sprintf("  %s %s (%s) cargo %d", u.Type, u.ID, u.Team, u.Cargo.Total()))
	}
	if road, ok := f.CellsWithRoads[pos.Hash()]; ok {
		lines = append(lines, fmt.Sprintf("  road %g", road.RoadLevel))
	}
	if len(lines) == 1 {
		lines = append(lines, "  empty")
	}
	return strings.Join(lines, "\n"), nil
}

func (s *Service) handleTeams(e dispatcher.Event) (any, error) {
	f, _, err := s.current()
	if err != nil {
		return nil, err
	}
	lines := make([]string, 0, core.NumTeams)
	for _, team := range core.Teams {
		ts := f.TeamStates[team]
		rc := ts.Statistics.ResourcesCollected
		lines = append(lines, fmt.Sprintf(
			"%s: %d workers, %d carts, %d cities, %d research, %g fuel, collected wood %d coal %d uranium %d",
			team, ts.Workers, ts.Carts, len(ts.CitiesOwned), ts.ResearchPoints, ts.Statistics.FuelGenerated,
			rc.Get(core.ResourceWood), rc.Get(core.ResourceCoal), rc.Get(core.ResourceUranium)))
	}

	left := frame.TotalResources(f)
	line := fmt.Sprintf("map: wood %d coal %d uranium %d left",
		left.Get(core.ResourceWood), left.Get(core.ResourceCoal), left.Get(core.ResourceUranium))
	if initial, ok := s.deps.Session.Store().InitialResources(); ok {
		line += fmt.Sprintf(" of %d, %d, %d at turn 0",
			initial.Get(core.ResourceWood), initial.Get(core.ResourceCoal), initial.Get(core.ResourceUranium))
	}
	lines = append(lines, line)
	return strings.Join(lines, "\n"), nil
}

func (s *Service) handleUnits(e dispatcher.Event) (any, error) {
	filter := -1
	if len(e.Args) > 0 {
		n, err := parseInts(e.Args, 1, "units [team]")
		if err != nil {
			return nil, err
		}
		filter = n[0]
	}
	f, _, err := s.current()
	if err != nil {
		return nil, err
	}

	var lines []string
	for _, id := range sortedKeys(f.UnitData) {
		u := f.UnitData[id]
		if filter >= 0 && int(u.Team) != filter {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s %s %s at %d,%d cooldown %g cargo w%d c%d u%d",
			u.ID, u.Team, u.Type, u.Pos.X, u.Pos.Y, u.Cooldown, u.Cargo.Wood, u.Cargo.Coal, u.Cargo.Uranium))
	}
	if len(lines) == 0 {
		return "no units", nil
	}
	return strings.Join(lines, "\n"), nil
}

func (s *Service) handleCities(e dispatcher.Event) (any, error) {
	f, _, err := s.current()
	if err != nil {
		return nil, err
	}
	var lines []string
	for _, id := range sortedKeys(f.CityData) {
		c := f.CityData[id]
		lines = append(lines, fmt.Sprintf("%s %s: %d tiles, %g fuel", c.ID, c.Team, len(c.CityTilePositions), c.Fuel))
	}
	if len(lines) == 0 {
		return "no cities", nil
	}
	return strings.Join(lines, "\n"), nil
}

func (s *Service) handleErrors(e dispatcher.Event) (any, error) {
	f, _, err := s.current()
	if err != nil {
		return nil, err
	}
	if len(f.Errors) == 0 {
		return "no warnings", nil
	}
	return strings.Join(f.Errors, "\n"), nil
}

func (s *Service) handleAnnotations(e dispatcher.Event) (any, error) {
	f, _, err := s.current()
	if err != nil {
		return nil, err
	}
	if len(f.Annotations) == 0 {
		return "no annotations", nil
	}
	lines := make([]string, 0, len(f.Annotations))
	for _, entry := range f.Annotations {
		a, err := parser.ParseAnnotation(entry)
		if err != nil {
			lines = append(lines, fmt.Sprintf("agent %d %q undrawable: %v", entry.AgentID, entry.Command, err))
			continue
		}
		pts := make([]string, len(a.Points))
		for i, p := range a.Points {
			pts[i] = fmt.Sprintf("%d,%d", p.X, p.Y)
		}
		lines = append(lines, fmt.Sprintf("%s %s %s", a.Team, a.Kind, strings.Join(pts, " ")))
	}
	return strings.Join(lines, "\n"), nil
}

func (s *Service) handleRoads(e dispatcher.Event) (any, error) {
	f, insp, err := s.current()
	if err != nil {
		return nil, err
	}
	variants := insp.Roads(f)
	cells := make([]core.Cell, 0, len(f.CellsWithRoads))
	for _, c := range f.CellsWithRoads {
		cells = append(cells, c)
	}
	slices.SortFunc(cells, func(a, b core.Cell) int {
		if a.Pos.Y != b.Pos.Y {
			return a.Pos.Y - b.Pos.Y
		}
		return a.Pos.X - b.Pos.X
	})
	if len(cells) == 0 {
		return "no roads", nil
	}
	lines := make([]string, 0, len(cells))
	for _, c := range cells {
		lines = append(lines, fmt.Sprintf("%d,%d level %g %s", c.Pos.X, c.Pos.Y, c.RoadLevel, variants[c.Pos.Hash()]))
	}
	return strings.Join(lines, "\n"), nil
}

func (s *Service) projection() geo.Projection {
	meta := s.deps.Session.Meta()
	return geo.Projection{Scale: s.deps.ProjectionScale, Width: meta.Width, Height: meta.Height}
}

func (s *Service) handleProject(e dispatcher.Event) (any, error) {
	xy, err := parseInts(e.Args, 2, "project <x> <y>")
	if err != nil {
		return nil, err
	}
	pos := core.Position{X: xy[0], Y: xy[1]}
	proj := s.projection()
	p := geo.PositionToProjected(pos, proj)
	out := fmt.Sprintf("%d,%d -> (%g, %g) depth %g", pos.X, pos.Y, p.X, p.Y, geo.DepthOf(pos))
	if proj.Width > 0 && proj.Height > 0 {
		b, err := geo.Bounds(proj)
		if err != nil {
			return nil, fmt.Errorf("map bounds: %w", err)
		}
		if lo, hi, ok := b.MinMaxXYs(); ok {
			out += fmt.Sprintf("\nmap bounds (%g, %g) to (%g, %g)", lo.X, lo.Y, hi.X, hi.Y)
		}
	}
	return out, nil
}

func (s *Service) handlePick(e dispatcher.Event) (any, error) {
	if len(e.Args) != 2 {
		return nil, fmt.Errorf("usage: pick <px> <py>")
	}
	px, err := strconv.ParseFloat(e.Args[0], 64)
	if err != nil {
		return nil, fmt.Errorf("invalid number %q", e.Args[0])
	}
	py, err := strconv.ParseFloat(e.Args[1], 64)
	if err != nil {
		return nil, fmt.Errorf("invalid number %q", e.Args[1])
	}
	pos := geo.ProjectedToGrid(px, py, s.projection())
	return fmt.Sprintf("(%g, %g) -> %d,%d", px, py, pos.X, pos.Y), nil
}

// handleExport runs on the dispatcher queue; its result is only logged.
func (s *Service) handleExport(e dispatcher.Event) (any, error) {
	if len(e.Args) != 1 {
		return nil, fmt.Errorf("usage: export <file>")
	}
	store := s.deps.Session.Store()
	if store == nil {
		return nil, ErrNoReplay
	}
	path := e.Args[0]
	if !filepath.IsAbs(path) && s.deps.ExportDir != "" {
		path = filepath.Join(s.deps.ExportDir, path)
	}
	export := v1.Build(*s.deps.Session.Meta(), store.Frames())
	if err := memory.WriteExport(path, export); err != nil {
		return nil, err
	}
	s.deps.Logger.Info("Exported replay", "path", path, "frames", len(export.Frames))
	return path, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
