package oracletest

import (
	"context"
	"errors"
	"testing"

	"github.com/OCAP2/luxreplay/internal/oracle"
	"github.com/OCAP2/luxreplay/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initState(t *testing.T, o *Oracle) *State {
	t.Helper()
	st, err := o.Initialize(context.Background(), oracle.Config{Seed: 7, Width: 12, Height: 12})
	require.NoError(t, err)
	return st.(*State)
}

func TestInitialize(t *testing.T) {
	st := initState(t, New(20))

	assert.Equal(t, 12, st.Width())
	assert.Equal(t, 20, st.MaxTurns())
	assert.Equal(t, 0, st.Turn())
	require.Len(t, st.Units(core.TeamA), 1)
	require.Len(t, st.Units(core.TeamB), 1)
	require.Len(t, st.Cities(), 2)
	assert.Equal(t, core.Position{X: 1, Y: 1}, st.Units(core.TeamA)[0].Pos)
	assert.Equal(t, CityRoadLevel, st.Cell(1, 1).RoadLevel)
	assert.Equal(t, oracle.DefaultRoadLevel, st.Cell(5, 6).RoadLevel)
}

func TestInitialize_Errors(t *testing.T) {
	o := New(10)
	o.InitErr = errors.New("bad seed")
	_, err := o.Initialize(context.Background(), oracle.Config{Width: 12, Height: 12})
	assert.EqualError(t, err, "bad seed")

	_, err = New(10).Initialize(context.Background(), oracle.Config{Width: 2, Height: 12})
	assert.Error(t, err)
}

func TestInitialize_Deterministic(t *testing.T) {
	a := initState(t, New(5))
	b := initState(t, New(5))
	for y := 0; y < 12; y++ {
		for x := 0; x < 12; x++ {
			assert.Equal(t, a.Cell(x, y), b.Cell(x, y))
		}
	}
}

func TestUpdate_Commands(t *testing.T) {
	o := New(10)
	st := initState(t, o)
	ctx := context.Background()

	var w oracle.Warnings
	require.NoError(t, o.Update(ctx, st, []core.CommandEntry{
		{Command: "m u_1 e", AgentID: 0},
		{Command: "bc 10 10", AgentID: 1},
		{Command: "r 1 1", AgentID: 0},
	}, &w))
	assert.Empty(t, w.List())
	assert.Equal(t, 1, st.Turn())
	assert.Equal(t, core.Position{X: 2, Y: 1}, st.Units(core.TeamA)[0].Pos)
	assert.Len(t, st.Units(core.TeamB), 2)
	assert.Equal(t, 1, st.TeamStats(core.TeamA).ResearchPoints)

	var w2 oracle.Warnings
	require.NoError(t, o.Update(ctx, st, []core.CommandEntry{
		{Command: "bcity u_1", AgentID: 0},
		{Command: "m u_1 n", AgentID: 1},
		{Command: "fly away", AgentID: 0},
	}, &w2))
	assert.Equal(t, []string{"Team 1 - invalid unit id u_1", `Team 0 - invalid command "fly"`}, w2.List())

	// The new tile is adjacent to the starting city and joins it.
	var tiles int
	for _, c := range st.Cities() {
		if c.Team == core.TeamA {
			tiles += len(c.Tiles)
		}
	}
	assert.Equal(t, 2, tiles)
	assert.Len(t, o.Received(), 2)
}

func TestUpdate_CartsBuildRoads(t *testing.T) {
	o := New(10)
	st := initState(t, o)
	cart := st.AddUnit(core.TeamA, core.UnitCart, core.Position{X: 1, Y: 1})

	var w oracle.Warnings
	require.NoError(t, o.Update(context.Background(), st, []core.CommandEntry{{Command: "m " + cart + " s", AgentID: 0}}, &w))
	assert.Equal(t, oracle.DefaultRoadLevel+CartRoadGain, st.Cell(1, 2).RoadLevel)
	assert.True(t, st.Cell(1, 2).HasRoad())
}

func TestUpdate_Gathering(t *testing.T) {
	o := New(10)
	o.Setup = func(st *State) {
		st.SetResource(core.Position{X: 2, Y: 1}, core.ResourceWood, 30)
	}
	st := initState(t, o)
	ctx := context.Background()

	var w oracle.Warnings
	require.NoError(t, o.Update(ctx, st, []core.CommandEntry{{Command: "m u_1 e", AgentID: 0}}, &w))
	assert.Equal(t, 20, st.Units(core.TeamA)[0].Cargo.Wood)
	assert.Equal(t, 10, st.Cell(2, 1).Resource.Amount)

	require.NoError(t, o.Update(ctx, st, []core.CommandEntry{{Command: "m u_1 w", AgentID: 0}}, &w))
	// Back on the city tile: cargo is burned into fuel.
	assert.Equal(t, 0, st.Units(core.TeamA)[0].Cargo.Total())
	assert.Equal(t, 20.0, st.TeamStats(core.TeamA).FuelGenerated)
	assert.Equal(t, 20, st.TeamStats(core.TeamA).ResourcesCollected.Wood)
}

func TestUpdate_HookAndCancel(t *testing.T) {
	o := New(10)
	var seen []int
	o.OnUpdate = func(turn int, _ *State, w *oracle.Warnings) error {
		seen = append(seen, turn)
		if turn == 1 {
			w.Add("hooked")
			return errors.New("boom")
		}
		return nil
	}
	st := initState(t, o)

	var w oracle.Warnings
	require.NoError(t, o.Update(context.Background(), st, nil, &w))
	assert.EqualError(t, o.Update(context.Background(), st, nil, &w), "boom")
	assert.Equal(t, []int{0, 1}, seen)
	assert.Equal(t, []string{"hooked"}, w.List())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, o.Update(ctx, st, nil, &w), context.Canceled)
}

func TestStateAccessorsReturnCopies(t *testing.T) {
	st := initState(t, New(10))
	st.SetResource(core.Position{X: 3, Y: 3}, core.ResourceCoal, 50)

	cell := st.Cell(3, 3)
	cell.Resource.Amount = 1
	assert.Equal(t, 50, st.Cell(3, 3).Resource.Amount)

	cities := st.Cities()
	cities[0].Tiles[0].TileID = "changed"
	assert.NotEqual(t, "changed", st.Cities()[0].Tiles[0].TileID)
}
