package core

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPositionHash_RoundTrip(t *testing.T) {
	positions := []Position{
		{0, 0},
		{1, 0},
		{0, 1},
		{-1, 0},
		{0, -1},
		{31, 31},
		{math.MaxInt32, math.MinInt32},
		{math.MinInt32, math.MaxInt32},
		{-5, 1_000_001},
	}

	for _, p := range positions {
		assert.Equal(t, p, PositionFromHash(p.Hash()), "position %v", p)
	}
}

func TestPositionHash_CollisionFree(t *testing.T) {
	seen := make(map[int64]Position)
	for x := -40; x <= 40; x++ {
		for y := -40; y <= 40; y++ {
			p := Position{x, y}
			h := p.Hash()
			if prev, ok := seen[h]; ok {
				t.Fatalf("hash collision between %v and %v", prev, p)
			}
			seen[h] = p
		}
	}
}

func TestPositionTranslate(t *testing.T) {
	p := Position{X: 3, Y: 3}

	assert.Equal(t, Position{3, 2}, p.Translate(North, 1))
	assert.Equal(t, Position{4, 3}, p.Translate(East, 1))
	assert.Equal(t, Position{3, 4}, p.Translate(South, 1))
	assert.Equal(t, Position{2, 3}, p.Translate(West, 1))
	assert.Equal(t, p, p.Translate(Center, 1))
	assert.Equal(t, Position{3, 0}, p.Translate(North, 3))
}

func TestPositionIsAdjacent(t *testing.T) {
	p := Position{X: 0, Y: 0}
	assert.True(t, p.IsAdjacent(Position{1, 0}))
	assert.True(t, p.IsAdjacent(Position{0, -1}))
	assert.False(t, p.IsAdjacent(Position{1, 1}))
	assert.False(t, p.IsAdjacent(p))
}

func TestReplayCommands(t *testing.T) {
	r := &Replay{
		AllCommands: [][]CommandEntry{
			{{Command: "m u_1 n", AgentID: 0}},
			{},
			nil,
		},
	}

	cmds, ok := r.Commands(0)
	require.True(t, ok)
	assert.Len(t, cmds, 1)

	cmds, ok = r.Commands(1)
	require.True(t, ok, "an empty turn is present")
	assert.Empty(t, cmds)

	_, ok = r.Commands(2)
	assert.False(t, ok, "a null turn is missing")

	_, ok = r.Commands(3)
	assert.False(t, ok, "a turn past the end is missing")

	_, ok = r.Commands(-1)
	assert.False(t, ok)
}

func TestFrameQueries(t *testing.T) {
	road := Position{2, 2}
	f := &Frame{
		UnitData: map[string]Unit{
			"u_1": {ID: "u_1", Team: TeamA},
			"u_2": {ID: "u_2", Team: TeamB},
			"u_3": {ID: "u_3", Team: TeamB},
		},
		ResourceData: map[int64]ResourceTile{
			Position{1, 1}.Hash(): {Type: ResourceCoal, Amount: 300, Pos: Position{1, 1}},
		},
		CellsWithRoads: map[int64]Cell{
			road.Hash(): {Pos: road, RoadLevel: 2},
		},
	}

	assert.Equal(t, 1, f.UnitsOnTeam(TeamA))
	assert.Equal(t, 2, f.UnitsOnTeam(TeamB))
	assert.True(t, f.HasRoad(road))
	assert.False(t, f.HasRoad(Position{2, 3}))

	res, ok := f.ResourceAt(Position{1, 1})
	require.True(t, ok)
	assert.Equal(t, ResourceCoal, res.Type)
	_, ok = f.ResourceAt(Position{0, 0})
	assert.False(t, ok)
}

func TestResourceAmounts(t *testing.T) {
	var a ResourceAmounts
	a.Add(ResourceWood, 5)
	a.Add(ResourceUranium, 2)
	a.Add(ResourceWood, 1)

	assert.Equal(t, 6, a.Get(ResourceWood))
	assert.Equal(t, 0, a.Get(ResourceCoal))
	assert.Equal(t, 2, a.Get(ResourceUranium))

	c := Cargo{Wood: 10, Coal: 5}
	assert.Equal(t, 15, c.Total())
	assert.Equal(t, 5, c.Get(ResourceCoal))
}

func TestNewReplayMeta(t *testing.T) {
	r := &Replay{Seed: 9, MapType: "random", Width: 12, Height: 16, AllCommands: make([][]CommandEntry, 361)}
	meta := NewReplayMeta("ranked", r, time.Unix(100, 0))

	assert.Equal(t, "ranked", meta.Name)
	assert.Equal(t, int64(9), meta.Seed)
	assert.Equal(t, 360, meta.MaxTurns)
	assert.Equal(t, 16, meta.Height)
	assert.Equal(t, 0, NewReplayMeta("empty", &Replay{}, time.Time{}).MaxTurns)
}
