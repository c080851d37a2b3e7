// Package oracle defines the contract between the replay engine and the
// external simulation engine that advances a match one turn at a time.
//
// The engine owns all game rules. Callers only see a read-only State and
// must drive Update in strict turn order.
package oracle

import (
	"context"

	"github.com/OCAP2/luxreplay/pkg/core"
)

// DefaultRoadLevel is the road level of a cell nobody has built on.
const DefaultRoadLevel = 1.0

// Config is what the engine needs to set up a match.
type Config struct {
	Seed    int64  `json:"seed"`
	MapType string `json:"mapType"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
}

// ConfigFromReplay extracts the engine configuration recorded in a replay.
func ConfigFromReplay(r *core.Replay) Config {
	return Config{
		Seed:    r.Seed,
		MapType: r.MapType,
		Width:   r.Width,
		Height:  r.Height,
	}
}

// Oracle is a deterministic simulation engine.
type Oracle interface {
	// Initialize builds the turn 0 state for cfg.
	Initialize(ctx context.Context, cfg Config) (State, error)
	// Update advances st by exactly one turn using cmds. Non-fatal issues
	// with individual commands are reported through warnings; a returned
	// error means the update itself went wrong.
	Update(ctx context.Context, st State, cmds []core.CommandEntry, warnings *Warnings) error
}

// State is a read-only view of the engine state. Values returned by its
// methods are owned by the caller; the engine never mutates them after
// returning.
type State interface {
	Width() int
	Height() int
	// Turn is the number of updates applied so far.
	Turn() int
	// MaxTurns is the last turn of the match.
	MaxTurns() int
	Units(team core.Team) []core.Unit
	Cities() []City
	Cell(x, y int) Cell
	TeamStats(team core.Team) TeamStats
}

// City is a city as the engine reports it, with its tiles.
type City struct {
	ID    string          `json:"id"`
	Team  core.Team       `json:"team"`
	Fuel  float64         `json:"fuel"`
	Tiles []core.CityTile `json:"tiles"`
}

// Cell is one grid cell. Resource is nil on empty cells.
type Cell struct {
	Pos       core.Position      `json:"pos"`
	Resource  *core.ResourceTile `json:"resource,omitempty"`
	RoadLevel float64            `json:"road"`
}

// HasRoad reports whether the road level differs from the untouched value.
func (c Cell) HasRoad() bool {
	return c.RoadLevel != DefaultRoadLevel
}

// TeamStats are the engine-owned cumulative counters of a team.
type TeamStats struct {
	ResearchPoints     int                  `json:"researchPoints"`
	FuelGenerated      float64              `json:"fuelGenerated"`
	ResourcesCollected core.ResourceAmounts `json:"resourcesCollected"`
}
