package replay

import (
	"github.com/OCAP2/luxreplay/internal/cache"
	"github.com/OCAP2/luxreplay/internal/geo"
	"github.com/OCAP2/luxreplay/pkg/core"
)

// TileAt collects everything standing on pos in f.
func TileAt(f *core.Frame, pos core.Position) core.TileData {
	td := core.TileData{Pos: pos, Units: make(map[string]core.Unit), CityTiles: []core.CityTile{}}
	for id, u := range f.UnitData {
		if u.Pos == pos {
			td.Units[id] = u
		}
	}
	for _, ct := range f.CityTileData {
		if ct.Pos == pos {
			td.CityTiles = append(td.CityTiles, ct)
		}
	}
	if r, ok := f.ResourceAt(pos); ok {
		td.Resource = &r
	}
	return td
}

func indexTiles(f *core.Frame) map[int64]core.TileData {
	idx := make(map[int64]core.TileData)
	entry := func(pos core.Position) core.TileData {
		td, ok := idx[pos.Hash()]
		if !ok {
			td = core.TileData{Pos: pos, Units: make(map[string]core.Unit), CityTiles: []core.CityTile{}}
		}
		return td
	}
	for id, u := range f.UnitData {
		td := entry(u.Pos)
		td.Units[id] = u
		idx[u.Pos.Hash()] = td
	}
	for _, ct := range f.CityTileData {
		td := entry(ct.Pos)
		td.CityTiles = append(td.CityTiles, ct)
		idx[ct.Pos.Hash()] = td
	}
	for h, r := range f.ResourceData {
		td := entry(r.Pos)
		res := r
		td.Resource = &res
		idx[h] = td
	}
	return idx
}

// Inspector answers per-cell questions about the frames of one store,
// caching the per-turn indexes it builds.
type Inspector struct {
	tiles *cache.TurnCache[map[int64]core.TileData]
	roads *cache.TurnCache[map[int64]geo.RoadVariant]
}

// NewInspector creates an Inspector keeping indexes for up to capacity
// turns.
func NewInspector(capacity int) *Inspector {
	return &Inspector{
		tiles: cache.NewTurnCache[map[int64]core.TileData](capacity),
		roads: cache.NewTurnCache[map[int64]geo.RoadVariant](capacity),
	}
}

// TileAt is the cached equivalent of TileAt.
func (i *Inspector) TileAt(f *core.Frame, pos core.Position) core.TileData {
	idx := i.tiles.GetOrCreate(f.Turn, func() map[int64]core.TileData { return indexTiles(f) })
	if td, ok := idx[pos.Hash()]; ok {
		return td
	}
	return core.TileData{Pos: pos, Units: map[string]core.Unit{}, CityTiles: []core.CityTile{}}
}

// Roads returns the road variant of every road-bearing cell of f.
func (i *Inspector) Roads(f *core.Frame) map[int64]geo.RoadVariant {
	return i.roads.GetOrCreate(f.Turn, func() map[int64]geo.RoadVariant { return geo.ClassifyRoads(f) })
}
