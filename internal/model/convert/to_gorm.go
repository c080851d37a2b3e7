// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"cmp"
	"encoding/json"
	"slices"

	"github.com/OCAP2/luxreplay/internal/geo"
	"github.com/OCAP2/luxreplay/internal/model"
	"github.com/OCAP2/luxreplay/internal/parser"
	"github.com/OCAP2/luxreplay/internal/util"
	"github.com/OCAP2/luxreplay/pkg/core"
	"gorm.io/datatypes"
)

// FrameRows holds every row that persists one frame.
type FrameRows struct {
	Record      model.FrameRecord
	Units       []model.UnitState
	Cities      []model.CityState
	CityTiles   []model.CityTileState
	Resources   []model.ResourceState
	Roads       []model.RoadState
	Teams       []model.TeamState
	Annotations []model.Annotation
	Errors      []model.TurnError
}

// toJSON marshals v, falling back to JSON null
func toJSON(v any) datatypes.JSON {
	b, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSON("null")
	}
	return datatypes.JSON(b)
}

// CoreToReplay converts replay metadata to a GORM Replay.
func CoreToReplay(m core.ReplayMeta) model.Replay {
	r := model.Replay{
		Name:      m.Name,
		Seed:      m.Seed,
		MapType:   m.MapType,
		Width:     m.Width,
		Height:    m.Height,
		MaxTurns:  m.MaxTurns,
		StartTime: m.StartedAt,
		Tag:       m.Tag,
	}
	r.ID = m.ID
	return r
}

// CoreToFrameRows flattens a frame into rows for replayID. Map-backed
// collections are emitted in a stable order.
func CoreToFrameRows(replayID uint, f *core.Frame) FrameRows {
	rows := FrameRows{
		Record: model.FrameRecord{ReplayID: replayID, Turn: f.Turn},
	}

	for _, id := range sortedKeys(f.UnitData) {
		u := f.UnitData[id]
		rows.Units = append(rows.Units, model.UnitState{
			ReplayID: replayID,
			Turn:     f.Turn,
			UnitID:   u.ID,
			Team:     uint8(u.Team),
			UnitType: uint8(u.Type),
			Position: geo.CellPoint(u.Pos),
			Cooldown: u.Cooldown,
			Cargo:    model.Cargo(u.Cargo),
		})
	}

	for _, id := range sortedKeys(f.CityData) {
		c := f.CityData[id]
		rows.Cities = append(rows.Cities, model.CityState{
			ReplayID:  replayID,
			Turn:      f.Turn,
			CityID:    c.ID,
			Team:      uint8(c.Team),
			Fuel:      c.Fuel,
			Footprint: geo.Footprint(c.CityTilePositions),
		})
	}

	for i, ct := range f.CityTileData {
		rows.CityTiles = append(rows.CityTiles, model.CityTileState{
			ReplayID: replayID,
			Turn:     f.Turn,
			Ordinal:  i,
			CityID:   ct.CityID,
			TileID:   ct.TileID,
			Team:     uint8(ct.Team),
			Position: geo.CellPoint(ct.Pos),
			Cooldown: ct.Cooldown,
		})
	}

	for _, h := range sortedKeys(f.ResourceData) {
		r := f.ResourceData[h]
		rows.Resources = append(rows.Resources, model.ResourceState{
			ReplayID:     replayID,
			Turn:         f.Turn,
			ResourceType: string(r.Type),
			Amount:       r.Amount,
			Position:     geo.CellPoint(r.Pos),
		})
	}

	variants := geo.ClassifyRoads(f)
	for _, h := range sortedKeys(f.CellsWithRoads) {
		c := f.CellsWithRoads[h]
		rows.Roads = append(rows.Roads, model.RoadState{
			ReplayID:  replayID,
			Turn:      f.Turn,
			Position:  geo.CellPoint(c.Pos),
			RoadLevel: c.RoadLevel,
			Variant:   uint8(variants[h]),
		})
	}

	for i, ts := range f.TeamStates {
		rows.Teams = append(rows.Teams, model.TeamState{
			ReplayID:           replayID,
			Turn:               f.Turn,
			Team:               uint8(i),
			Workers:            ts.Workers,
			Carts:              ts.Carts,
			CitiesOwned:        toJSON(ts.CitiesOwned),
			ResearchPoints:     ts.ResearchPoints,
			FuelGenerated:      ts.Statistics.FuelGenerated,
			ResourcesCollected: toJSON(ts.Statistics.ResourcesCollected),
		})
	}

	for i, a := range f.Annotations {
		row := model.Annotation{
			ReplayID: replayID,
			Turn:     f.Turn,
			Ordinal:  i,
			Command:  a.Command,
			AgentID:  a.AgentID,
			Kind:     util.Verb(a.Command),
		}
		if parsed, err := parser.ParseAnnotation(a); err == nil {
			row.Shape = geo.AnnotationGeometry(parsed.Points)
		}
		rows.Annotations = append(rows.Annotations, row)
	}

	for i, msg := range f.Errors {
		rows.Errors = append(rows.Errors, model.TurnError{
			ReplayID: replayID,
			Turn:     f.Turn,
			Ordinal:  i,
			Message:  msg,
		})
	}

	return rows
}

func sortedKeys[K cmp.Ordered, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
