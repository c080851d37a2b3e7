package geo

import (
	"testing"

	"github.com/OCAP2/luxreplay/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_AllSixteenMasksDistinct(t *testing.T) {
	centre := core.Position{X: 10, Y: 10}
	seen := make(map[string]int)

	for mask := 0; mask < NumVariants; mask++ {
		var cells []core.Position
		if mask&8 != 0 {
			cells = append(cells, centre.Translate(core.North, 1))
		}
		if mask&4 != 0 {
			cells = append(cells, centre.Translate(core.East, 1))
		}
		if mask&2 != 0 {
			cells = append(cells, centre.Translate(core.South, 1))
		}
		if mask&1 != 0 {
			cells = append(cells, centre.Translate(core.West, 1))
		}

		v := Classify(centre, NewPositionSet(cells...))
		assert.Equal(t, RoadVariant(mask), v)

		name := v.String()
		prev, dup := seen[name]
		require.False(t, dup, "mask %04b and %04b share %s", mask, prev, name)
		seen[name] = mask

		// Same set, same answer.
		assert.Equal(t, v, Classify(centre, NewPositionSet(cells...)))
	}

	assert.Len(t, seen, NumVariants)
	assert.Equal(t, "path0000", VariantIsolated.String())
	assert.Equal(t, "path1111", VariantCross.String())
}

func TestClassify_IgnoresDiagonalsAndSelf(t *testing.T) {
	centre := core.Position{X: 0, Y: 0}
	set := NewPositionSet(centre, core.Position{X: 1, Y: 1}, core.Position{X: -1, Y: -1})
	assert.Equal(t, VariantIsolated, Classify(centre, set))
}

func TestClassify_Directions(t *testing.T) {
	set := NewPositionSet(core.Position{X: 5, Y: 4}, core.Position{X: 5, Y: 6})
	v := Classify(core.Position{X: 5, Y: 5}, set)

	assert.Equal(t, "path1010", v.String())
	assert.True(t, v.Has(core.North))
	assert.True(t, v.Has(core.South))
	assert.False(t, v.Has(core.East))
	assert.False(t, v.Has(core.West))
}

func TestClassifyRoads(t *testing.T) {
	cells := []core.Position{{2, 2}, {3, 2}, {4, 2}, {3, 3}}
	f := &core.Frame{CellsWithRoads: map[int64]core.Cell{}}
	for _, c := range cells {
		f.CellsWithRoads[c.Hash()] = core.Cell{Pos: c, RoadLevel: 2}
	}

	got := ClassifyRoads(f)
	require.Len(t, got, 4)
	assert.Equal(t, ConnectEast, got[core.Position{X: 2, Y: 2}.Hash()])
	assert.Equal(t, ConnectEast|ConnectSouth|ConnectWest, got[core.Position{X: 3, Y: 2}.Hash()])
	assert.Equal(t, ConnectWest, got[core.Position{X: 4, Y: 2}.Hash()])
	assert.Equal(t, ConnectNorth, got[core.Position{X: 3, Y: 3}.Hash()])
}

func TestConnectivityFunc(t *testing.T) {
	calls := 0
	set := ConnectivityFunc(func(p core.Position) bool {
		calls++
		return p.X > 0
	})
	v := Classify(core.Position{X: 0, Y: 0}, set)
	assert.Equal(t, ConnectEast, v)
	assert.Equal(t, 4, calls)
}
