package frame

import (
	"context"
	"sort"
	"testing"

	"github.com/OCAP2/luxreplay/internal/oracle"
	"github.com/OCAP2/luxreplay/internal/oracle/oracletest"
	"github.com/OCAP2/luxreplay/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newState(t *testing.T) *oracletest.State {
	t.Helper()
	o := oracletest.New(10)
	o.Setup = func(st *oracletest.State) {
		for y := 0; y < 12; y++ {
			for x := 0; x < 12; x++ {
				st.ClearResource(core.Position{X: x, Y: y})
			}
		}
		st.SetResource(core.Position{X: 4, Y: 4}, core.ResourceWood, 400)
		st.SetResource(core.Position{X: 7, Y: 2}, core.ResourceUranium, 150)
		st.AddUnit(core.TeamA, core.UnitCart, core.Position{X: 2, Y: 2})
		st.AddUnit(core.TeamB, core.UnitWorker, core.Position{X: 9, Y: 9})
		st.AddCityTile(core.TeamA, core.Position{X: 1, Y: 2})
		st.AddCityTile(core.TeamB, core.Position{X: 5, Y: 8})
		st.SetRoad(core.Position{X: 3, Y: 3}, 2.5)
	}
	st, err := o.Initialize(context.Background(), oracle.Config{Seed: 1, Width: 12, Height: 12})
	require.NoError(t, err)
	return st.(*oracletest.State)
}

func TestBuild_Units(t *testing.T) {
	st := newState(t)
	f := Build(0, st, nil, nil)

	assert.Equal(t, 0, f.Turn)
	assert.Len(t, f.UnitData, 4)
	assert.Equal(t, 1, f.TeamStates[core.TeamA].Workers)
	assert.Equal(t, 1, f.TeamStates[core.TeamA].Carts)
	assert.Equal(t, 2, f.TeamStates[core.TeamB].Workers)
	assert.Equal(t, 0, f.TeamStates[core.TeamB].Carts)

	for id, u := range f.UnitData {
		assert.Equal(t, id, u.ID)
	}
}

func TestBuild_Cities(t *testing.T) {
	st := newState(t)
	f := Build(0, st, nil, nil)

	// (1,2) joins the starting city at (1,1); (5,8) founds a new one.
	assert.Len(t, f.CityData, 3)
	assert.Len(t, f.CityTileData, 4)
	assert.Len(t, f.TeamStates[core.TeamA].CitiesOwned, 1)
	assert.Len(t, f.TeamStates[core.TeamB].CitiesOwned, 2)

	for _, tile := range f.CityTileData {
		city, ok := f.CityData[tile.CityID]
		require.True(t, ok, "tile %v references unknown city", tile.Pos)
		assert.Contains(t, city.CityTilePositions, tile.Pos)
		assert.Equal(t, city.Team, tile.Team)
	}
}

func TestBuild_CellsAndRoads(t *testing.T) {
	st := newState(t)
	f := Build(0, st, nil, nil)

	require.Len(t, f.ResourceData, 2)
	res, ok := f.ResourceAt(core.Position{X: 7, Y: 2})
	require.True(t, ok)
	assert.Equal(t, core.ResourceUranium, res.Type)
	assert.Equal(t, 150, res.Amount)

	// Every city tile carries a road, plus the one explicit road.
	assert.Len(t, f.CellsWithRoads, 5)
	assert.True(t, f.HasRoad(core.Position{X: 3, Y: 3}))
	assert.Equal(t, 2.5, f.CellsWithRoads[core.Position{X: 3, Y: 3}.Hash()].RoadLevel)
	assert.False(t, f.HasRoad(core.Position{X: 4, Y: 4}))

	assert.Equal(t, core.ResourceAmounts{Wood: 400, Uranium: 150}, TotalResources(f))
}

func TestBuild_CopiesStatistics(t *testing.T) {
	o := oracletest.New(10)
	o.Setup = func(st *oracletest.State) {
		st.SetResource(core.Position{X: 2, Y: 1}, core.ResourceCoal, 100)
	}
	st, err := o.Initialize(context.Background(), oracle.Config{Seed: 3, Width: 12, Height: 12})
	require.NoError(t, err)

	var w oracle.Warnings
	ctx := context.Background()
	require.NoError(t, o.Update(ctx, st, []core.CommandEntry{{Command: "m u_1 e"}, {Command: "r 1 1"}}, &w))
	require.NoError(t, o.Update(ctx, st, []core.CommandEntry{{Command: "m u_1 w"}}, &w))

	f := Build(1, st, nil, nil)
	stats := st.TeamStats(core.TeamA)
	assert.Equal(t, stats.ResearchPoints, f.TeamStates[core.TeamA].ResearchPoints)
	assert.Equal(t, stats.FuelGenerated, f.TeamStates[core.TeamA].Statistics.FuelGenerated)
	assert.Equal(t, stats.ResourcesCollected, f.TeamStates[core.TeamA].Statistics.ResourcesCollected)
	assert.Equal(t, 1, f.TeamStates[core.TeamA].ResearchPoints)
	assert.Equal(t, 200.0, f.TeamStates[core.TeamA].Statistics.FuelGenerated)
}

func TestBuild_AttachesSideChannel(t *testing.T) {
	st := newState(t)
	annotations := []core.CommandEntry{{Command: "dc 1 1"}, {Command: "dl 0 0 2 2", AgentID: 1}}
	warnings := []string{"Team 0 - invalid unit id u_9"}

	f := Build(3, st, annotations, warnings)
	assert.Equal(t, annotations, f.Annotations)
	assert.Equal(t, warnings, f.Errors)

	annotations[0].Command = "changed"
	warnings[0] = "changed"
	assert.Equal(t, "dc 1 1", f.Annotations[0].Command)
	assert.Equal(t, "Team 0 - invalid unit id u_9", f.Errors[0])

	empty := Build(4, st, nil, nil)
	assert.NotNil(t, empty.Errors)
	assert.Empty(t, empty.Errors)
}

func TestBuild_IndependentOfLaterUpdates(t *testing.T) {
	o := oracletest.New(10)
	st, err := o.Initialize(context.Background(), oracle.Config{Seed: 5, Width: 12, Height: 12})
	require.NoError(t, err)

	before := Build(0, st, nil, nil)
	pos := before.UnitData["u_1"].Pos

	var w oracle.Warnings
	require.NoError(t, o.Update(context.Background(), st, []core.CommandEntry{{Command: "m u_1 s"}, {Command: "bw 1 1"}}, &w))

	assert.Equal(t, pos, before.UnitData["u_1"].Pos)
	assert.Len(t, before.UnitData, 2)
}

func TestBuild_AggregateConsistency(t *testing.T) {
	st := newState(t)
	f := Build(0, st, nil, nil)

	for _, team := range core.Teams {
		var want []string
		for id, c := range f.CityData {
			if c.Team == team {
				want = append(want, id)
			}
		}
		got := append([]string(nil), f.TeamStates[team].CitiesOwned...)
		sort.Strings(want)
		sort.Strings(got)
		assert.Equal(t, want, got)

		ts := f.TeamStates[team]
		assert.Equal(t, f.UnitsOnTeam(team), ts.Workers+ts.Carts)
	}
}
