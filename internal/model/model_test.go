package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTableNames(t *testing.T) {
	tests := []struct {
		name     string
		model    interface{ TableName() string }
		expected string
	}{
		{"ReplayInfo", &ReplayInfo{}, "replay_infos"},
		{"GenerationPerformance", &GenerationPerformance{}, "generation_performances"},
		{"Replay", &Replay{}, "replays"},
		{"FrameRecord", &FrameRecord{}, "frame_records"},
		{"UnitState", &UnitState{}, "unit_states"},
		{"CityState", &CityState{}, "city_states"},
		{"CityTileState", &CityTileState{}, "city_tile_states"},
		{"ResourceState", &ResourceState{}, "resource_states"},
		{"RoadState", &RoadState{}, "road_states"},
		{"TeamState", &TeamState{}, "team_states"},
		{"Annotation", &Annotation{}, "annotations"},
		{"TurnError", &TurnError{}, "turn_errors"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.model.TableName())
		})
	}
}

func TestDatabaseModels_AllRegistered(t *testing.T) {
	assert.Len(t, DatabaseModels, 12)
}
