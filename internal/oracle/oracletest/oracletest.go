// Package oracletest provides a small deterministic in-memory engine for
// exercising the replay pipeline without the real simulation.
//
// Each team starts with one worker standing on one city tile. Supported
// commands are "m <unit> <dir>", "bcity <unit>", "bw <x> <y>", "bc <x> <y>"
// and "r <x> <y>". Anything else is reported as a team warning.
package oracletest

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/OCAP2/luxreplay/internal/oracle"
	"github.com/OCAP2/luxreplay/pkg/core"
)

// Road levels mirror the real engine: city tiles carry the maximum and carts
// wear roads into the cells they drive over.
const (
	CityRoadLevel = 6.0
	CartRoadGain  = 0.75
	gatherRate    = 20
	cargoCapacity = 100
)

var fuelPerUnit = map[core.ResourceType]float64{
	core.ResourceWood:    1,
	core.ResourceCoal:    10,
	core.ResourceUranium: 40,
}

// Oracle is a scripted engine. The zero value is not usable; use New.
type Oracle struct {
	// MaxTurns is reported as the last turn of every match.
	MaxTurns int
	// InitErr makes Initialize fail.
	InitErr error
	// Setup customises the initial state.
	Setup func(st *State)
	// OnUpdate runs after the built-in rules of every turn. turn is the
	// index of the command list that was applied. A returned error is
	// returned from Update.
	OnUpdate func(turn int, st *State, w *oracle.Warnings) error

	mu       sync.Mutex
	received [][]core.CommandEntry
}

var _ oracle.Oracle = (*Oracle)(nil)

// New returns a scripted engine whose matches end after maxTurns.
func New(maxTurns int) *Oracle {
	return &Oracle{MaxTurns: maxTurns}
}

// Received returns the commands passed to each Update call, in call order.
func (o *Oracle) Received() [][]core.CommandEntry {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([][]core.CommandEntry, len(o.received))
	copy(out, o.received)
	return out
}

func (o *Oracle) Initialize(_ context.Context, cfg oracle.Config) (oracle.State, error) {
	if o.InitErr != nil {
		return nil, o.InitErr
	}
	if cfg.Width < 4 || cfg.Height < 4 {
		return nil, fmt.Errorf("map size %dx%d is too small", cfg.Width, cfg.Height)
	}

	st := newState(cfg, o.MaxTurns)
	if o.Setup != nil {
		o.Setup(st)
	}
	return st, nil
}

func (o *Oracle) Update(ctx context.Context, s oracle.State, cmds []core.CommandEntry, w *oracle.Warnings) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	st, ok := s.(*State)
	if !ok {
		return errors.New("state was not created by this oracle")
	}

	o.mu.Lock()
	o.received = append(o.received, append([]core.CommandEntry(nil), cmds...))
	o.mu.Unlock()

	turn := st.turn
	for _, cmd := range cmds {
		if err := st.apply(cmd); err != nil {
			w.AddTeam(core.Team(cmd.AgentID), err)
		}
	}
	st.endTurn()

	if o.OnUpdate != nil {
		return o.OnUpdate(turn, st, w)
	}
	return nil
}

// State is the mutable engine state. Accessors return copies.
type State struct {
	width, height int
	turn, max     int
	nextID        int

	units  []core.Unit
	cities []oracle.City
	cells  [][]oracle.Cell
	stats  [core.NumTeams]oracle.TeamStats
}

var _ oracle.State = (*State)(nil)

func newState(cfg oracle.Config, maxTurns int) *State {
	st := &State{width: cfg.Width, height: cfg.Height, max: maxTurns}

	st.cells = make([][]oracle.Cell, cfg.Height)
	for y := range st.cells {
		st.cells[y] = make([]oracle.Cell, cfg.Width)
		for x := range st.cells[y] {
			st.cells[y][x] = oracle.Cell{Pos: core.Position{X: x, Y: y}, RoadLevel: oracle.DefaultRoadLevel}
		}
	}

	// Deterministic resource layout derived from the seed.
	seed := int(cfg.Seed % 97)
	if seed < 0 {
		seed = -seed
	}
	for y := 0; y < cfg.Height; y++ {
		for x := 0; x < cfg.Width; x++ {
			switch (x*7 + y*13 + seed) % 17 {
			case 0:
				st.SetResource(core.Position{X: x, Y: y}, core.ResourceWood, 500)
			case 5:
				st.SetResource(core.Position{X: x, Y: y}, core.ResourceCoal, 300)
			case 11:
				if x > 1 && y > 1 {
					st.SetResource(core.Position{X: x, Y: y}, core.ResourceUranium, 200)
				}
			}
		}
	}

	a := core.Position{X: 1, Y: 1}
	b := core.Position{X: cfg.Width - 2, Y: cfg.Height - 2}
	st.ClearResource(a)
	st.ClearResource(b)
	st.AddUnit(core.TeamA, core.UnitWorker, a)
	st.AddUnit(core.TeamB, core.UnitWorker, b)
	st.AddCityTile(core.TeamA, a)
	st.AddCityTile(core.TeamB, b)
	return st
}

func (s *State) Width() int    { return s.width }
func (s *State) Height() int   { return s.height }
func (s *State) Turn() int     { return s.turn }
func (s *State) MaxTurns() int { return s.max }

func (s *State) Units(team core.Team) []core.Unit {
	var out []core.Unit
	for _, u := range s.units {
		if u.Team == team {
			out = append(out, u)
		}
	}
	return out
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
	if !s.inBounds(core.Position{X: x, Y: y}) {
		return oracle.Cell{Pos: core.Position{X: x, Y: y}, RoadLevel: oracle.DefaultRoadLevel}
	}
	c := s.cells[y][x]
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

// AddUnit spawns a unit and returns its id.
func (s *State) AddUnit(team core.Team, typ core.UnitType, pos core.Position) string {
	s.nextID++
	id := fmt.Sprintf("u_%d", s.nextID)
	s.units = append(s.units, core.Unit{ID: id, Pos: pos, Team: team, Type: typ})
	return id
}

// RemoveUnit deletes a unit, as when it dies at night.
func (s *State) RemoveUnit(id string) {
	for i, u := range s.units {
		if u.ID == id {
			s.units = append(s.units[:i], s.units[i+1:]...)
			return
		}
	}
}

// AddCityTile builds a city tile at pos. It joins an orthogonally adjacent
// city of the same team or founds a new one.
func (s *State) AddCityTile(team core.Team, pos core.Position) string {
	idx := -1
	for i, c := range s.cities {
		if c.Team != team {
			continue
		}
		for _, t := range c.Tiles {
			if t.Pos.IsAdjacent(pos) {
				idx = i
				break
			}
		}
		if idx >= 0 {
			break
		}
	}
	if idx < 0 {
		s.nextID++
		s.cities = append(s.cities, oracle.City{ID: fmt.Sprintf("c_%d", s.nextID), Team: team})
		idx = len(s.cities) - 1
	}

	city := &s.cities[idx]
	city.Tiles = append(city.Tiles, core.CityTile{
		Pos:    pos,
		Team:   team,
		CityID: city.ID,
		TileID: fmt.Sprintf("%s_%d_%d", city.ID, pos.X, pos.Y),
	})
	if s.inBounds(pos) {
		s.cells[pos.Y][pos.X].RoadLevel = CityRoadLevel
	}
	return city.ID
}

// RemoveCity deletes a whole city, as when it runs out of fuel.
func (s *State) RemoveCity(id string) {
	for i, c := range s.cities {
		if c.ID == id {
			s.cities = append(s.cities[:i], s.cities[i+1:]...)
			return
		}
	}
}

// SetResource places a deposit on pos.
func (s *State) SetResource(pos core.Position, typ core.ResourceType, amount int) {
	if s.inBounds(pos) {
		s.cells[pos.Y][pos.X].Resource = &core.ResourceTile{Type: typ, Amount: amount, Pos: pos}
	}
}

// ClearResource removes any deposit on pos.
func (s *State) ClearResource(pos core.Position) {
	if s.inBounds(pos) {
		s.cells[pos.Y][pos.X].Resource = nil
	}
}

// SetRoad sets the road level of pos.
func (s *State) SetRoad(pos core.Position, level float64) {
	if s.inBounds(pos) {
		s.cells[pos.Y][pos.X].RoadLevel = level
	}
}

func (s *State) inBounds(p core.Position) bool {
	return p.X >= 0 && p.Y >= 0 && p.X < s.width && p.Y < s.height
}

func (s *State) unit(id string) *core.Unit {
	for i := range s.units {
		if s.units[i].ID == id {
			return &s.units[i]
		}
	}
	return nil
}

func (s *State) cityTileAt(pos core.Position) (*oracle.City, bool) {
	for i := range s.cities {
		for _, t := range s.cities[i].Tiles {
			if t.Pos == pos {
				return &s.cities[i], true
			}
		}
	}
	return nil, false
}

func (s *State) apply(cmd core.CommandEntry) error {
	team := core.Team(cmd.AgentID)
	if !team.Valid() {
		return fmt.Errorf("unknown agent %d", cmd.AgentID)
	}
	args := strings.Fields(cmd.Command)
	if len(args) == 0 {
		return errors.New("empty command")
	}

	switch args[0] {
	case "m":
		if len(args) != 3 {
			return fmt.Errorf("invalid move command %q", cmd.Command)
		}
		u, err := s.ownUnit(team, args[1])
		if err != nil {
			return err
		}
		dest := u.Pos.Translate(core.Direction(args[2]), 1)
		if !s.inBounds(dest) {
			return fmt.Errorf("unit %s cannot move off the map", u.ID)
		}
		if c, ok := s.cityTileAt(dest); ok && c.Team != team {
			return fmt.Errorf("unit %s cannot move onto an enemy city", u.ID)
		}
		u.Pos = dest
		if u.Type == core.UnitCart {
			cell := &s.cells[dest.Y][dest.X]
			cell.RoadLevel = min(cell.RoadLevel+CartRoadGain, CityRoadLevel)
		}
	case "bcity":
		if len(args) != 2 {
			return fmt.Errorf("invalid build city command %q", cmd.Command)
		}
		u, err := s.ownUnit(team, args[1])
		if err != nil {
			return err
		}
		if u.Type != core.UnitWorker {
			return fmt.Errorf("unit %s is not a worker", u.ID)
		}
		if _, ok := s.cityTileAt(u.Pos); ok {
			return fmt.Errorf("a city tile already stands at %d,%d", u.Pos.X, u.Pos.Y)
		}
		s.AddCityTile(team, u.Pos)
		s.ClearResource(u.Pos)
	case "bw", "bc", "r":
		pos, err := parsePos(args)
		if err != nil {
			return err
		}
		c, ok := s.cityTileAt(pos)
		if !ok || c.Team != team {
			return fmt.Errorf("no city tile owned by %s at %d,%d", team, pos.X, pos.Y)
		}
		switch args[0] {
		case "bw":
			s.AddUnit(team, core.UnitWorker, pos)
		case "bc":
			s.AddUnit(team, core.UnitCart, pos)
		default:
			s.stats[team].ResearchPoints++
		}
	default:
		return fmt.Errorf("invalid command %q", args[0])
	}
	return nil
}

func (s *State) ownUnit(team core.Team, id string) (*core.Unit, error) {
	u := s.unit(id)
	if u == nil || u.Team != team {
		return nil, fmt.Errorf("invalid unit id %s", id)
	}
	return u, nil
}

func parsePos(args []string) (core.Position, error) {
	if len(args) != 3 {
		return core.Position{}, fmt.Errorf("%s expects 2 coordinates", args[0])
	}
	x, err := strconv.Atoi(args[1])
	if err != nil {
		return core.Position{}, fmt.Errorf("invalid x %q", args[1])
	}
	y, err := strconv.Atoi(args[2])
	if err != nil {
		return core.Position{}, fmt.Errorf("invalid y %q", args[2])
	}
	return core.Position{X: x, Y: y}, nil
}

// endTurn gathers resources for workers and deposits cargo in own cities.
func (s *State) endTurn() {
	for i := range s.units {
		u := &s.units[i]
		if u.Type == core.UnitWorker {
			cell := &s.cells[u.Pos.Y][u.Pos.X]
			if r := cell.Resource; r != nil && u.Cargo.Total() < cargoCapacity {
				n := min(gatherRate, r.Amount, cargoCapacity-u.Cargo.Total())
				addCargo(&u.Cargo, r.Type, n)
				s.stats[u.Team].ResourcesCollected.Add(r.Type, n)
				r.Amount -= n
				if r.Amount <= 0 {
					cell.Resource = nil
				}
			}
		}
		if c, ok := s.cityTileAt(u.Pos); ok && c.Team == u.Team && u.Cargo.Total() > 0 {
			for _, rt := range core.ResourceTypes {
				fuel := float64(u.Cargo.Get(rt)) * fuelPerUnit[rt]
				c.Fuel += fuel
				s.stats[u.Team].FuelGenerated += fuel
			}
			u.Cargo = core.Cargo{}
		}
	}
	s.turn++
}

func addCargo(c *core.Cargo, r core.ResourceType, n int) {
	switch r {
	case core.ResourceWood:
		c.Wood += n
	case core.ResourceCoal:
		c.Coal += n
	case core.ResourceUranium:
		c.Uranium += n
	}
}
