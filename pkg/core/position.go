// pkg/core/position.go
package core

// Position is a cell on the logical grid. It is a value type; two positions
// are equal when their coordinates are equal.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Direction is one of the four orthogonal grid directions.
type Direction string

const (
	North  Direction = "n"
	East   Direction = "e"
	South  Direction = "s"
	West   Direction = "w"
	Center Direction = "c"
)

// Directions lists the orthogonal directions in NESW order.
var Directions = [4]Direction{North, East, South, West}

// Hash returns the canonical map key for the position. The encoding packs
// both coordinates into one int64 and is collision-free for every pair of
// coordinates in the int32 range.
func (p Position) Hash() int64 {
	return int64(p.X)<<32 | int64(uint32(p.Y))
}

// PositionFromHash inverts Position.Hash.
func PositionFromHash(h int64) Position {
	return Position{
		X: int(int32(h >> 32)),
		Y: int(int32(uint32(h))),
	}
}

// Translate returns the position n cells away in direction d.
// North decreases Y, matching the engine's screen-down Y axis.
func (p Position) Translate(d Direction, n int) Position {
	switch d {
	case North:
		return Position{X: p.X, Y: p.Y - n}
	case East:
		return Position{X: p.X + n, Y: p.Y}
	case South:
		return Position{X: p.X, Y: p.Y + n}
	case West:
		return Position{X: p.X - n, Y: p.Y}
	default:
		return p
	}
}

// IsAdjacent reports whether q is one orthogonal step away from p.
func (p Position) IsAdjacent(q Position) bool {
	dx := p.X - q.X
	dy := p.Y - q.Y
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	return dx+dy == 1
}
