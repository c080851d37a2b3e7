// Package frame projects engine state into immutable per-turn snapshots.
package frame

import (
	"github.com/OCAP2/luxreplay/internal/oracle"
	"github.com/OCAP2/luxreplay/pkg/core"
)

// Build captures st as the frame for turn. annotations and warnings are the
// turn's side channel; both are copied. Build only reads st, and the
// returned frame shares no mutable memory with it or with the arguments.
func Build(turn int, st oracle.State, annotations []core.CommandEntry, warnings []string) *core.Frame {
	f := &core.Frame{
		Turn:           turn,
		ResourceData:   make(map[int64]core.ResourceTile),
		UnitData:       make(map[string]core.Unit),
		CityData:       make(map[string]core.City),
		CityTileData:   []core.CityTile{},
		Annotations:    append([]core.CommandEntry{}, annotations...),
		Errors:         append([]string{}, warnings...),
		CellsWithRoads: make(map[int64]core.Cell),
	}

	for _, team := range core.Teams {
		ts := &f.TeamStates[team]
		ts.CitiesOwned = []string{}

		stats := st.TeamStats(team)
		ts.ResearchPoints = stats.ResearchPoints
		ts.Statistics = core.TeamStatistics{
			FuelGenerated:      stats.FuelGenerated,
			ResourcesCollected: stats.ResourcesCollected,
		}

		for _, u := range st.Units(team) {
			switch u.Type {
			case core.UnitWorker:
				ts.Workers++
			default:
				ts.Carts++
			}
			u.Team = team
			f.UnitData[u.ID] = u
		}
	}

	for _, c := range st.Cities() {
		city := core.City{
			ID:                c.ID,
			CityTilePositions: make([]core.Position, 0, len(c.Tiles)),
			Fuel:              c.Fuel,
			Team:              c.Team,
		}
		for _, tile := range c.Tiles {
			city.CityTilePositions = append(city.CityTilePositions, tile.Pos)
			f.CityTileData = append(f.CityTileData, tile)
		}
		f.CityData[c.ID] = city
		if c.Team.Valid() {
			f.TeamStates[c.Team].CitiesOwned = append(f.TeamStates[c.Team].CitiesOwned, c.ID)
		}
	}

	for y := 0; y < st.Height(); y++ {
		for x := 0; x < st.Width(); x++ {
			cell := st.Cell(x, y)
			h := cell.Pos.Hash()
			if cell.Resource != nil {
				f.ResourceData[h] = *cell.Resource
			}
			if cell.HasRoad() {
				f.CellsWithRoads[h] = core.Cell{Pos: cell.Pos, RoadLevel: cell.RoadLevel}
			}
		}
	}

	return f
}

// TotalResources sums every deposit of a frame by kind.
func TotalResources(f *core.Frame) core.ResourceAmounts {
	var total core.ResourceAmounts
	for _, r := range f.ResourceData {
		total.Add(r.Type, r.Amount)
	}
	return total
}
