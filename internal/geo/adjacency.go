package geo

import (
	"fmt"

	"github.com/OCAP2/luxreplay/pkg/core"
)

// Connectivity reports whether a cell belongs to a connected set, such as
// the road-bearing cells of a frame.
type Connectivity interface {
	Connected(pos core.Position) bool
}

// ConnectivityFunc adapts a plain membership function to Connectivity.
type ConnectivityFunc func(pos core.Position) bool

func (f ConnectivityFunc) Connected(pos core.Position) bool { return f(pos) }

// PositionSet is a Connectivity backed by position hashes.
type PositionSet map[int64]struct{}

func NewPositionSet(positions ...core.Position) PositionSet {
	s := make(PositionSet, len(positions))
	for _, p := range positions {
		s[p.Hash()] = struct{}{}
	}
	return s
}

func (s PositionSet) Connected(pos core.Position) bool {
	_, ok := s[pos.Hash()]
	return ok
}

// RoadVariant is the 4-bit neighbour mask of a cell: north is the high bit,
// west the low bit. Each of the 16 values names one road sprite.
type RoadVariant uint8

const (
	ConnectWest RoadVariant = 1 << iota
	ConnectSouth
	ConnectEast
	ConnectNorth

	VariantIsolated RoadVariant = 0
	VariantCross    RoadVariant = ConnectNorth | ConnectEast | ConnectSouth | ConnectWest
	NumVariants                 = 16
)

var directionBits = [4]struct {
	dir core.Direction
	bit RoadVariant
}{
	{core.North, ConnectNorth},
	{core.East, ConnectEast},
	{core.South, ConnectSouth},
	{core.West, ConnectWest},
}

// Classify computes the variant of pos from the membership of its four
// orthogonal neighbours. pos itself need not be in the set.
func Classify(pos core.Position, set Connectivity) RoadVariant {
	var v RoadVariant
	for _, d := range directionBits {
		if set.Connected(pos.Translate(d.dir, 1)) {
			v |= d.bit
		}
	}
	return v
}

// Has reports whether the neighbour in direction d is connected.
func (v RoadVariant) Has(d core.Direction) bool {
	for _, db := range directionBits {
		if db.dir == d {
			return v&db.bit != 0
		}
	}
	return false
}

// String returns the sprite key, "path" followed by the N, E, S and W bits,
// e.g. "path1010" for a north-south segment.
func (v RoadVariant) String() string {
	return fmt.Sprintf("path%04b", uint8(v)&0xf)
}

// ClassifyRoads returns the variant of every road-bearing cell of a frame,
// keyed by position hash.
func ClassifyRoads(f *core.Frame) map[int64]RoadVariant {
	set := ConnectivityFunc(f.HasRoad)
	out := make(map[int64]RoadVariant, len(f.CellsWithRoads))
	for h, cell := range f.CellsWithRoads {
		out[h] = Classify(cell.Pos, set)
	}
	return out
}
