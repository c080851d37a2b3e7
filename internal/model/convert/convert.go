package convert

import (
	"cmp"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/OCAP2/luxreplay/internal/geo"
	"github.com/OCAP2/luxreplay/internal/model"
	"github.com/OCAP2/luxreplay/pkg/core"
)

// ReplayToMeta converts a GORM Replay to replay metadata.
func ReplayToMeta(r model.Replay) core.ReplayMeta {
	return core.ReplayMeta{
		ID:        r.ID,
		Name:      r.Name,
		Seed:      r.Seed,
		MapType:   r.MapType,
		Width:     r.Width,
		Height:    r.Height,
		MaxTurns:  r.MaxTurns,
		StartedAt: r.StartTime,
		Tag:       r.Tag,
	}
}

func byOrdinal[T any](rows []T, ordinal func(T) int) []T {
	out := slices.Clone(rows)
	slices.SortStableFunc(out, func(a, b T) int {
		return cmp.Compare(ordinal(a), ordinal(b))
	})
	return out
}

// FrameRowsToCore rebuilds a frame from its rows. It is the inverse of
// CoreToFrameRows. A team row whose JSON columns do not decode fails the
// whole frame.
func FrameRowsToCore(rows FrameRows) (*core.Frame, error) {
	f := &core.Frame{
		Turn:           rows.Record.Turn,
		ResourceData:   make(map[int64]core.ResourceTile, len(rows.Resources)),
		UnitData:       make(map[string]core.Unit, len(rows.Units)),
		CityData:       make(map[string]core.City, len(rows.Cities)),
		CityTileData:   make([]core.CityTile, 0, len(rows.CityTiles)),
		Annotations:    make([]core.CommandEntry, 0, len(rows.Annotations)),
		Errors:         make([]string, 0, len(rows.Errors)),
		CellsWithRoads: make(map[int64]core.Cell, len(rows.Roads)),
	}
	for i := range f.TeamStates {
		f.TeamStates[i].CitiesOwned = []string{}
	}

	for _, u := range rows.Units {
		f.UnitData[u.UnitID] = core.Unit{
			ID:       u.UnitID,
			Pos:      geo.PointPosition(u.Position),
			Team:     core.Team(u.Team),
			Type:     core.UnitType(u.UnitType),
			Cooldown: u.Cooldown,
			Cargo:    core.Cargo(u.Cargo),
		}
	}

	for _, c := range rows.Cities {
		f.CityData[c.CityID] = core.City{
			ID:                c.CityID,
			CityTilePositions: geo.FootprintPositions(c.Footprint),
			Fuel:              c.Fuel,
			Team:              core.Team(c.Team),
		}
	}

	tiles := byOrdinal(rows.CityTiles, func(t model.CityTileState) int { return t.Ordinal })
	for _, t := range tiles {
		f.CityTileData = append(f.CityTileData, core.CityTile{
			Pos:      geo.PointPosition(t.Position),
			Team:     core.Team(t.Team),
			CityID:   t.CityID,
			TileID:   t.TileID,
			Cooldown: t.Cooldown,
		})
	}

	for _, r := range rows.Resources {
		pos := geo.PointPosition(r.Position)
		f.ResourceData[pos.Hash()] = core.ResourceTile{
			Type:   core.ResourceType(r.ResourceType),
			Amount: r.Amount,
			Pos:    pos,
		}
	}

	for _, r := range rows.Roads {
		pos := geo.PointPosition(r.Position)
		f.CellsWithRoads[pos.Hash()] = core.Cell{Pos: pos, RoadLevel: r.RoadLevel}
	}

	for _, ts := range rows.Teams {
		if !core.Team(ts.Team).Valid() {
			continue
		}
		state := core.TeamState{
			Workers:        ts.Workers,
			Carts:          ts.Carts,
			CitiesOwned:    []string{},
			ResearchPoints: ts.ResearchPoints,
			Statistics:     core.TeamStatistics{FuelGenerated: ts.FuelGenerated},
		}
		if len(ts.CitiesOwned) > 0 {
			if err := json.Unmarshal(ts.CitiesOwned, &state.CitiesOwned); err != nil {
				return nil, fmt.Errorf("turn %d team %d citiesOwned: %w", rows.Record.Turn, ts.Team, err)
			}
		}
		if len(ts.ResourcesCollected) > 0 {
			if err := json.Unmarshal(ts.ResourcesCollected, &state.Statistics.ResourcesCollected); err != nil {
				return nil, fmt.Errorf("turn %d team %d resourcesCollected: %w", rows.Record.Turn, ts.Team, err)
			}
		}
		if state.CitiesOwned == nil {
			state.CitiesOwned = []string{}
		}
		f.TeamStates[ts.Team] = state
	}

	annotations := byOrdinal(rows.Annotations, func(a model.Annotation) int { return a.Ordinal })
	for _, a := range annotations {
		f.Annotations = append(f.Annotations, core.CommandEntry{Command: a.Command, AgentID: a.AgentID})
	}

	errs := byOrdinal(rows.Errors, func(e model.TurnError) int { return e.Ordinal })
	for _, e := range errs {
		f.Errors = append(f.Errors, e.Message)
	}

	return f, nil
}
