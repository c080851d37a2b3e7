package geo

import "github.com/OCAP2/luxreplay/pkg/core"

// Layer is the draw category of an object. Higher layers are drawn in
// front of lower layers standing on the same cell.
type Layer int

const (
	LayerFloor Layer = iota
	LayerRoad
	LayerStructure // resources and city tiles
	LayerUnit
	LayerOverlay // annotations and selection markers
)

const (
	// layerSlots is the number of depth slots per diagonal row.
	layerSlots = 8
	// rowsPerBand covers diagonal rows in (-2^21, 2^21), i.e. |x|,|y| < 2^20.
	rowsPerBand = 1 << 22
	bandSize    = rowsPerBand * layerSlots
)

// band groups layers that are depth-sorted together. Flat ground layers
// never occlude upright objects and overlays are never occluded.
func (l Layer) band() int {
	switch l {
	case LayerFloor, LayerRoad:
		return 0
	case LayerOverlay:
		return 2
	default:
		return 1
	}
}

// Depth returns the draw order key of an object of the given layer on pos.
// Within a band, objects on a later diagonal row (larger x+y, nearer the
// viewer) get a strictly greater depth; on the same row the layer decides.
// The result never depends on insertion order.
func Depth(pos core.Position, layer Layer) float64 {
	row := pos.X + pos.Y
	return float64(layer.band())*bandSize + float64(row)*layerSlots + float64(layer)
}

// DepthOf is the depth of an upright structure on pos.
func DepthOf(pos core.Position) float64 {
	return Depth(pos, LayerStructure)
}
