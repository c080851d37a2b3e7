package geo

import (
	"github.com/OCAP2/luxreplay/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
)

// CellPoint returns the grid-space point of a cell.
func CellPoint(pos core.Position) geom.Point {
	pt, err := geom.NewPoint(geom.Coordinates{XY: geom.XY{X: float64(pos.X), Y: float64(pos.Y)}})
	if err != nil {
		// Grid coordinates are always finite.
		return geom.Point{}
	}
	return pt
}

// PointPosition converts a grid-space point back to a cell. Empty points
// map to the origin.
func PointPosition(p geom.Point) core.Position {
	coord, ok := p.Coordinates()
	if !ok {
		return core.Position{}
	}
	return core.Position{X: int(coord.XY.X), Y: int(coord.XY.Y)}
}

// PathLineString builds a grid-space line string through the given cells.
// Fewer than two distinct cells give an empty line string.
func PathLineString(cells []core.Position) geom.LineString {
	if len(cells) < 2 {
		return geom.LineString{}
	}
	coords := make([]float64, 0, len(cells)*2)
	for _, c := range cells {
		coords = append(coords, float64(c.X), float64(c.Y))
	}
	ls, err := geom.NewLineString(geom.NewSequence(coords, geom.DimXY))
	if err != nil {
		return geom.LineString{}
	}
	return ls
}

// AnnotationGeometry returns the shape of a drawable annotation: a point
// for a single anchor, a line string for two or more.
func AnnotationGeometry(cells []core.Position) geom.Geometry {
	switch len(cells) {
	case 0:
		return geom.Geometry{}
	case 1:
		return CellPoint(cells[0]).AsGeometry()
	default:
		return PathLineString(cells).AsGeometry()
	}
}

// GeometryPositions flattens a point or line string back into cells.
func GeometryPositions(g geom.Geometry) []core.Position {
	switch g.Type() {
	case geom.TypePoint:
		return []core.Position{PointPosition(g.MustAsPoint())}
	case geom.TypeLineString:
		seq := g.MustAsLineString().Coordinates()
		out := make([]core.Position, seq.Length())
		for i := 0; i < seq.Length(); i++ {
			xy := seq.GetXY(i)
			out[i] = core.Position{X: int(xy.X), Y: int(xy.Y)}
		}
		return out
	default:
		return nil
	}
}

// Footprint returns the tiles of a city as a multi point.
func Footprint(tiles []core.Position) geom.MultiPoint {
	pts := make([]geom.Point, len(tiles))
	for i, t := range tiles {
		pts[i] = CellPoint(t)
	}
	return geom.NewMultiPoint(pts)
}

// FootprintPositions is the inverse of Footprint.
func FootprintPositions(mp geom.MultiPoint) []core.Position {
	out := make([]core.Position, 0, mp.NumPoints())
	for i := 0; i < mp.NumPoints(); i++ {
		out = append(out, PointPosition(mp.PointN(i)))
	}
	return out
}
