// Package geo maps the logical replay grid onto the isometric projected
// space used by viewers, and provides the draw-order and tile adjacency
// helpers renderers need at display time.
//
// Projected points are geom.XY values so they can be fed straight into
// simplefeatures geometries (see shapes.go).
package geo

import (
	"math"

	"github.com/OCAP2/luxreplay/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
)

// Base tile dimensions in projected units at scale 1. A grid cell projects
// to a diamond twice as wide as it is tall.
const (
	TileHalfWidth  = 32.0
	TileHalfHeight = 16.0
)

// Projection parameterizes the grid to projected-space mapping.
// Width and Height are the grid dimensions, used to centre the map on the
// projected origin.
type Projection struct {
	Scale  float64
	Width  int
	Height int
}

func (p Projection) halfWidth() float64 {
	return TileHalfWidth * p.Scale
}

func (p Projection) halfHeight() float64 {
	return TileHalfHeight * p.Scale
}

// centreRow is the diagonal index (x+y) of the map centre.
func (p Projection) centreRow() float64 {
	return float64(p.Width-1+p.Height-1) / 2
}

// GridToProjected maps grid coordinates to projected coordinates. The map
// centre lands on the projected origin. Fractional grid coordinates are
// allowed so that off-cell points (clouds, annotation anchors) can be placed.
func GridToProjected(x, y float64, p Projection) geom.XY {
	return geom.XY{
		X: (x - y) * p.halfWidth(),
		Y: (x + y - p.centreRow()) * p.halfHeight(),
	}
}

// PositionToProjected is GridToProjected for a grid cell.
func PositionToProjected(pos core.Position, p Projection) geom.XY {
	return GridToProjected(float64(pos.X), float64(pos.Y), p)
}

// ProjectedToGridExact returns the continuous grid coordinates of a
// projected point.
func ProjectedToGridExact(px, py float64, p Projection) (x, y float64) {
	// diff is x-y and sum is x+y in grid units.
	diff := px / p.halfWidth()
	sum := py/p.halfHeight() + p.centreRow()
	return (sum + diff) / 2, (sum - diff) / 2
}

// ProjectedToGrid returns the grid cell whose diamond contains the
// projected point. For points produced by GridToProjected from integer
// coordinates it returns those coordinates exactly.
func ProjectedToGrid(px, py float64, p Projection) core.Position {
	x, y := ProjectedToGridExact(px, py, p)
	return core.Position{
		X: int(math.Round(x)),
		Y: int(math.Round(y)),
	}
}

// Bounds returns the projected envelope covering every cell diamond of the
// grid, used by viewers to clamp camera movement.
func Bounds(p Projection) (geom.Envelope, error) {
	corners := []geom.XY{
		GridToProjected(-0.5, -0.5, p),
		GridToProjected(float64(p.Width)-0.5, -0.5, p),
		GridToProjected(-0.5, float64(p.Height)-0.5, p),
		GridToProjected(float64(p.Width)-0.5, float64(p.Height)-0.5, p),
	}
	return geom.NewEnvelope(corners)
}
