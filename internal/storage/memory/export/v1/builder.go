package v1

import (
	"cmp"
	"slices"
	"time"

	"github.com/OCAP2/luxreplay/internal/frame"
	"github.com/OCAP2/luxreplay/internal/geo"
	"github.com/OCAP2/luxreplay/pkg/core"
)

// Build converts replay metadata and its frames into the v1 export format.
// frames must be ordered by turn. Map-backed collections are written in a
// stable order so identical replays export byte-identical files.
func Build(meta core.ReplayMeta, frames []*core.Frame) Export {
	export := Export{
		Version:  FormatVersion,
		Name:     meta.Name,
		Seed:     meta.Seed,
		MapType:  meta.MapType,
		Width:    meta.Width,
		Height:   meta.Height,
		MaxTurns: meta.MaxTurns,
		Tag:      meta.Tag,
		Frames:   make([]Frame, 0, len(frames)),
	}
	if !meta.StartedAt.IsZero() {
		export.StartedAt = meta.StartedAt.UTC().Format(time.RFC3339)
	}

	for _, f := range frames {
		export.Frames = append(export.Frames, BuildFrame(f))
	}
	if len(frames) > 0 {
		export.EndTurn = frames[len(frames)-1].Turn
		export.InitialResources = Amounts(frame.TotalResources(frames[0]))
	}

	return export
}

func toPos(p core.Position) Pos {
	return Pos{X: p.X, Y: p.Y}
}

func sortedKeys[K cmp.Ordered, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// BuildFrame converts one frame into its export form with every collection
// sorted by key.
func BuildFrame(f *core.Frame) Frame {
	out := Frame{
		Turn:        f.Turn,
		Resources:   make([]Resource, 0, len(f.ResourceData)),
		Units:       make([]Unit, 0, len(f.UnitData)),
		Cities:      make([]City, 0, len(f.CityData)),
		CityTiles:   make([]CityTile, 0, len(f.CityTileData)),
		Roads:       make([]Road, 0, len(f.CellsWithRoads)),
		Teams:       make([]Team, 0, core.NumTeams),
		Annotations: make([]Annotation, 0, len(f.Annotations)),
		Errors:      append([]string{}, f.Errors...),
	}

	for _, h := range sortedKeys(f.ResourceData) {
		r := f.ResourceData[h]
		out.Resources = append(out.Resources, Resource{Type: string(r.Type), Amount: r.Amount, Pos: toPos(r.Pos)})
	}

	for _, id := range sortedKeys(f.UnitData) {
		u := f.UnitData[id]
		out.Units = append(out.Units, Unit{
			ID:       u.ID,
			Team:     int(u.Team),
			Type:     int(u.Type),
			Pos:      toPos(u.Pos),
			Cooldown: u.Cooldown,
			Cargo:    Amounts(u.Cargo),
		})
	}

	for _, id := range sortedKeys(f.CityData) {
		c := f.CityData[id]
		city := City{ID: c.ID, Team: int(c.Team), Fuel: c.Fuel, Tiles: make([]Pos, 0, len(c.CityTilePositions))}
		for _, p := range c.CityTilePositions {
			city.Tiles = append(city.Tiles, toPos(p))
		}
		out.Cities = append(out.Cities, city)
	}

	for _, ct := range f.CityTileData {
		out.CityTiles = append(out.CityTiles, CityTile{
			CityID:   ct.CityID,
			TileID:   ct.TileID,
			Team:     int(ct.Team),
			Pos:      toPos(ct.Pos),
			Cooldown: ct.Cooldown,
		})
	}

	variants := geo.ClassifyRoads(f)
	for _, h := range sortedKeys(f.CellsWithRoads) {
		c := f.CellsWithRoads[h]
		out.Roads = append(out.Roads, Road{Pos: toPos(c.Pos), Level: c.RoadLevel, Variant: variants[h].String()})
	}

	for i, ts := range f.TeamStates {
		out.Teams = append(out.Teams, Team{
			Team:               i,
			Workers:            ts.Workers,
			Carts:              ts.Carts,
			CitiesOwned:        append([]string{}, ts.CitiesOwned...),
			ResearchPoints:     ts.ResearchPoints,
			FuelGenerated:      ts.Statistics.FuelGenerated,
			ResourcesCollected: Amounts(ts.Statistics.ResourcesCollected),
		})
	}

	for _, a := range f.Annotations {
		out.Annotations = append(out.Annotations, Annotation{Command: a.Command, AgentID: a.AgentID})
	}

	return out
}

// Meta returns the replay metadata recorded in an export.
func (e Export) Meta() core.ReplayMeta {
	meta := core.ReplayMeta{
		Name:     e.Name,
		Seed:     e.Seed,
		MapType:  e.MapType,
		Width:    e.Width,
		Height:   e.Height,
		MaxTurns: e.MaxTurns,
		Tag:      e.Tag,
	}
	if t, err := time.Parse(time.RFC3339, e.StartedAt); err == nil {
		meta.StartedAt = t
	}
	return meta
}

// CoreFrames rebuilds the frames of an export, the inverse of Build.
func (e Export) CoreFrames() []*core.Frame {
	frames := make([]*core.Frame, 0, len(e.Frames))
	for _, ef := range e.Frames {
		frames = append(frames, ef.core())
	}
	return frames
}

func (ef Frame) core() *core.Frame {
	f := &core.Frame{
		Turn:           ef.Turn,
		ResourceData:   make(map[int64]core.ResourceTile, len(ef.Resources)),
		UnitData:       make(map[string]core.Unit, len(ef.Units)),
		CityData:       make(map[string]core.City, len(ef.Cities)),
		CityTileData:   make([]core.CityTile, 0, len(ef.CityTiles)),
		Annotations:    make([]core.CommandEntry, 0, len(ef.Annotations)),
		Errors:         append([]string{}, ef.Errors...),
		CellsWithRoads: make(map[int64]core.Cell, len(ef.Roads)),
	}
	for i := range f.TeamStates {
		f.TeamStates[i].CitiesOwned = []string{}
	}

	for _, r := range ef.Resources {
		pos := core.Position(r.Pos)
		f.ResourceData[pos.Hash()] = core.ResourceTile{Type: core.ResourceType(r.Type), Amount: r.Amount, Pos: pos}
	}
	for _, u := range ef.Units {
		f.UnitData[u.ID] = core.Unit{
			ID:       u.ID,
			Pos:      core.Position(u.Pos),
			Team:     core.Team(u.Team),
			Type:     core.UnitType(u.Type),
			Cooldown: u.Cooldown,
			Cargo:    core.Cargo(u.Cargo),
		}
	}
	for _, c := range ef.Cities {
		city := core.City{ID: c.ID, Team: core.Team(c.Team), Fuel: c.Fuel, CityTilePositions: make([]core.Position, 0, len(c.Tiles))}
		for _, p := range c.Tiles {
			city.CityTilePositions = append(city.CityTilePositions, core.Position(p))
		}
		f.CityData[c.ID] = city
	}
	for _, ct := range ef.CityTiles {
		f.CityTileData = append(f.CityTileData, core.CityTile{
			Pos:      core.Position(ct.Pos),
			Team:     core.Team(ct.Team),
			CityID:   ct.CityID,
			TileID:   ct.TileID,
			Cooldown: ct.Cooldown,
		})
	}
	for _, r := range ef.Roads {
		pos := core.Position(r.Pos)
		f.CellsWithRoads[pos.Hash()] = core.Cell{Pos: pos, RoadLevel: r.Level}
	}
	for _, t := range ef.Teams {
		if !core.Team(t.Team).Valid() {
			continue
		}
		owned := append([]string{}, t.CitiesOwned...)
		f.TeamStates[t.Team] = core.TeamState{
			Workers:        t.Workers,
			Carts:          t.Carts,
			CitiesOwned:    owned,
			ResearchPoints: t.ResearchPoints,
			Statistics: core.TeamStatistics{
				FuelGenerated:      t.FuelGenerated,
				ResourcesCollected: core.ResourceAmounts(t.ResourcesCollected),
			},
		}
	}
	for _, a := range ef.Annotations {
		f.Annotations = append(f.Annotations, core.CommandEntry{Command: a.Command, AgentID: a.AgentID})
	}
	return f
}
