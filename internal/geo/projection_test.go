package geo

import (
	"testing"

	"github.com/OCAP2/luxreplay/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjection_RoundTrip(t *testing.T) {
	sizes := [][2]int{{12, 12}, {16, 16}, {24, 24}, {32, 32}, {7, 13}}
	scales := []float64{0.25, 0.5, 1, 1.5, 3.7}

	for _, size := range sizes {
		for _, scale := range scales {
			p := Projection{Scale: scale, Width: size[0], Height: size[1]}
			for x := 0; x < p.Width; x++ {
				for y := 0; y < p.Height; y++ {
					xy := GridToProjected(float64(x), float64(y), p)
					got := ProjectedToGrid(xy.X, xy.Y, p)
					if got != (core.Position{X: x, Y: y}) {
						t.Fatalf("round trip of (%d,%d) at %+v gave %v", x, y, p, got)
					}
				}
			}
		}
	}
}

func TestProjection_OutOfGridStillTransforms(t *testing.T) {
	p := Projection{Scale: 1, Width: 12, Height: 12}
	for _, pos := range []core.Position{{-3, 5}, {40, -2}, {100, 100}} {
		xy := PositionToProjected(pos, p)
		assert.Equal(t, pos, ProjectedToGrid(xy.X, xy.Y, p))
	}
}

func TestProjection_CentredOnOrigin(t *testing.T) {
	p := Projection{Scale: 2, Width: 13, Height: 13}
	xy := GridToProjected(6, 6, p)
	assert.InDelta(t, 0, xy.X, 1e-9)
	assert.InDelta(t, 0, xy.Y, 1e-9)
}

func TestProjection_Layout(t *testing.T) {
	p := Projection{Scale: 1, Width: 12, Height: 12}
	origin := GridToProjected(0, 0, p)
	east := GridToProjected(1, 0, p)
	south := GridToProjected(0, 1, p)

	assert.InDelta(t, TileHalfWidth, east.X-origin.X, 1e-9)
	assert.InDelta(t, TileHalfHeight, east.Y-origin.Y, 1e-9)
	assert.InDelta(t, -TileHalfWidth, south.X-origin.X, 1e-9)
	assert.InDelta(t, TileHalfHeight, south.Y-origin.Y, 1e-9)
}

func TestProjectedToGrid_HitTesting(t *testing.T) {
	p := Projection{Scale: 1, Width: 12, Height: 12}
	centre := PositionToProjected(core.Position{X: 4, Y: 7}, p)

	// Points well inside the diamond resolve to the same cell.
	offsets := [][2]float64{{0, 0}, {10, 0}, {-10, 0}, {0, 5}, {0, -5}, {8, 3}}
	for _, o := range offsets {
		got := ProjectedToGrid(centre.X+o[0], centre.Y+o[1], p)
		assert.Equal(t, core.Position{X: 4, Y: 7}, got, "offset %v", o)
	}
}

func TestBounds(t *testing.T) {
	p := Projection{Scale: 1, Width: 12, Height: 12}
	env, err := Bounds(p)
	require.NoError(t, err)
	for x := 0; x < p.Width; x++ {
		for y := 0; y < p.Height; y++ {
			assert.True(t, env.Contains(PositionToProjected(core.Position{X: x, Y: y}, p)))
		}
	}
}
