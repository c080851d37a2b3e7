// pkg/core/frame.go
package core

// ResourceTile is a cell currently holding a resource deposit.
type ResourceTile struct {
	Type   ResourceType `json:"type"`
	Amount int          `json:"amt"`
	Pos    Position     `json:"pos"`
}

// Unit is a worker or cart alive at a given turn.
type Unit struct {
	ID       string   `json:"id"`
	Pos      Position `json:"pos"`
	Team     Team     `json:"team"`
	Type     UnitType `json:"type"`
	Cooldown float64  `json:"cooldown"`
	Cargo    Cargo    `json:"cargo"`
}

// City is a group of connected city tiles sharing one fuel pool.
type City struct {
	ID                string     `json:"id"`
	CityTilePositions []Position `json:"cityTilePositions"`
	Fuel              float64    `json:"fuel"`
	Team              Team       `json:"team"`
}

// CityTile is one standing tile of a city.
type CityTile struct {
	Pos      Position `json:"pos"`
	Team     Team     `json:"team"`
	CityID   string   `json:"cityid"`
	TileID   string   `json:"tileid"`
	Cooldown float64  `json:"cooldown"`
}

// Cell is a grid cell whose road level differs from the untouched default.
type Cell struct {
	Pos       Position `json:"pos"`
	RoadLevel float64  `json:"road"`
}

// TeamStatistics are the engine-owned cumulative counters for a team.
type TeamStatistics struct {
	FuelGenerated      float64         `json:"fuelGenerated"`
	ResourcesCollected ResourceAmounts `json:"resourcesCollected"`
}

// TeamState is the per-team aggregate of one frame.
type TeamState struct {
	Workers        int            `json:"workers"`
	Carts          int            `json:"carts"`
	CitiesOwned    []string       `json:"citiesOwned"`
	ResearchPoints int            `json:"researchPoints"`
	Statistics     TeamStatistics `json:"statistics"`
}

// Frame is the snapshot of the whole world for exactly one turn.
// A frame must not be modified once it has been appended to a store;
// every consumer may read it concurrently.
type Frame struct {
	Turn           int                    `json:"turn"`
	ResourceData   map[int64]ResourceTile `json:"resourceData"`
	UnitData       map[string]Unit        `json:"unitData"`
	CityData       map[string]City        `json:"cityData"`
	CityTileData   []CityTile             `json:"cityTileData"`
	TeamStates     [NumTeams]TeamState    `json:"teamStates"`
	Annotations    []CommandEntry         `json:"annotations"`
	Errors         []string               `json:"errors"`
	CellsWithRoads map[int64]Cell         `json:"cellsWithRoads"`
}

// HasRoad reports whether the cell at p carries a road in this frame.
func (f *Frame) HasRoad(p Position) bool {
	_, ok := f.CellsWithRoads[p.Hash()]
	return ok
}

// ResourceAt returns the resource deposit at p, if any.
func (f *Frame) ResourceAt(p Position) (ResourceTile, bool) {
	r, ok := f.ResourceData[p.Hash()]
	return r, ok
}

// UnitsOnTeam returns the number of units in UnitData owned by team.
func (f *Frame) UnitsOnTeam(team Team) int {
	n := 0
	for _, u := range f.UnitData {
		if u.Team == team {
			n++
		}
	}
	return n
}

// TileData is everything standing on one cell in a frame.
type TileData struct {
	Pos       Position        `json:"pos"`
	Units     map[string]Unit `json:"units"`
	CityTiles []CityTile      `json:"cityTile"`
	Resource  *ResourceTile   `json:"resources,omitempty"`
}
