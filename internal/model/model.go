package model

import (
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []any{
	&ReplayInfo{},
	&Replay{},
	&FrameRecord{},
	&UnitState{},
	&CityState{},
	&CityTileState{},
	&ResourceState{},
	&RoadState{},
	&TeamState{},
	&Annotation{},
	&TurnError{},
	&GenerationPerformance{},
}

////////////////////////
// SYSTEM MODELS
////////////////////////

// ReplayInfo describes the instance that generated the stored replays
type ReplayInfo struct {
	gorm.Model
	InstanceName string `json:"instanceName" gorm:"size:127"`
	Description  string `json:"description" gorm:"size:255"`
	Website      string `json:"website" gorm:"size:255"`
}

func (*ReplayInfo) TableName() string {
	return "replay_infos"
}

// GenerationPerformance is a periodic sample of generation progress
type GenerationPerformance struct {
	Time               time.Time `json:"time" gorm:"type:timestamptz;index:idx_generationperformance_time"`
	ReplayID           uint      `json:"replayId" gorm:"index:idx_generationperformance_replay_id"`
	Replay             Replay    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:ReplayID;"`
	Phase              string    `json:"phase" gorm:"size:32"`
	TurnsGenerated     int       `json:"turnsGenerated"`
	Warnings           int       `json:"warnings"`
	WriteQueueLength   int       `json:"writeQueueLength"`
	LastTurnDurationMs float32   `json:"lastTurnDurationMs"`
}

func (*GenerationPerformance) TableName() string {
	return "generation_performances"
}

////////////////////////
// REPLAY MODELS
////////////////////////

// Replay is one generated replay session
type Replay struct {
	gorm.Model
	Name      string    `json:"name" gorm:"size:200"`
	Seed      int64     `json:"seed"`
	MapType   string    `json:"mapType" gorm:"size:64"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	MaxTurns  int       `json:"maxTurns"`
	StartTime time.Time `json:"startTime" gorm:"type:timestamptz;index:idx_replay_start"`
	Tag       string    `json:"tag" gorm:"size:127"`
	Complete  bool      `json:"complete" gorm:"default:false"`

	Frames []FrameRecord
}

func (*Replay) TableName() string {
	return "replays"
}

// FrameRecord marks a generated turn. Every frame has exactly one record,
// the per-entity rows reference it by (ReplayID, Turn).
type FrameRecord struct {
	ID       uint   `json:"id" gorm:"primarykey;autoIncrement;"`
	ReplayID uint   `json:"replayId" gorm:"uniqueIndex:idx_framerecord_replay_turn"`
	Replay   Replay `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:ReplayID;"`
	Turn     int    `json:"turn" gorm:"uniqueIndex:idx_framerecord_replay_turn"`
}

func (*FrameRecord) TableName() string {
	return "frame_records"
}

// UnitState is a unit alive at a turn
type UnitState struct {
	ID       uint   `json:"id" gorm:"primarykey;autoIncrement;"`
	ReplayID uint   `json:"replayId" gorm:"index:idx_unitstate_replay_turn"`
	Replay   Replay `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:ReplayID;"`
	Turn     int    `json:"turn" gorm:"index:idx_unitstate_replay_turn"`

	UnitID   string     `json:"unitId" gorm:"size:32"`
	Team     uint8      `json:"team"`
	UnitType uint8      `json:"unitType"`
	Position geom.Point `json:"position"`
	Cooldown float64    `json:"cooldown"`
	Cargo    Cargo      `json:"cargo" gorm:"embedded;embeddedPrefix:cargo_"`
}

func (*UnitState) TableName() string {
	return "unit_states"
}

// Cargo is the resources carried by a unit
type Cargo struct {
	Wood    int `json:"wood"`
	Coal    int `json:"coal"`
	Uranium int `json:"uranium"`
}

// CityState is a city at a turn. Footprint holds the cells of all its tiles.
type CityState struct {
	ID       uint   `json:"id" gorm:"primarykey;autoIncrement;"`
	ReplayID uint   `json:"replayId" gorm:"index:idx_citystate_replay_turn"`
	Replay   Replay `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:ReplayID;"`
	Turn     int    `json:"turn" gorm:"index:idx_citystate_replay_turn"`

	CityID    string          `json:"cityId" gorm:"size:32"`
	Team      uint8           `json:"team"`
	Fuel      float64         `json:"fuel"`
	Footprint geom.MultiPoint `json:"footprint"`
}

func (*CityState) TableName() string {
	return "city_states"
}

// CityTileState is one city tile at a turn
type CityTileState struct {
	ID       uint   `json:"id" gorm:"primarykey;autoIncrement;"`
	ReplayID uint   `json:"replayId" gorm:"index:idx_citytilestate_replay_turn"`
	Replay   Replay `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:ReplayID;"`
	Turn     int    `json:"turn" gorm:"index:idx_citytilestate_replay_turn"`
	Ordinal  int    `json:"ordinal"` // position in the frame's tile list

	CityID   string     `json:"cityId" gorm:"size:32"`
	TileID   string     `json:"tileId" gorm:"size:32"`
	Team     uint8      `json:"team"`
	Position geom.Point `json:"position"`
	Cooldown float64    `json:"cooldown"`
}

func (*CityTileState) TableName() string {
	return "city_tile_states"
}

// ResourceState is a resource deposit at a turn
type ResourceState struct {
	ID       uint   `json:"id" gorm:"primarykey;autoIncrement;"`
	ReplayID uint   `json:"replayId" gorm:"index:idx_resourcestate_replay_turn"`
	Replay   Replay `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:ReplayID;"`
	Turn     int    `json:"turn" gorm:"index:idx_resourcestate_replay_turn"`

	ResourceType string     `json:"resourceType" gorm:"size:16"`
	Amount       int        `json:"amount"`
	Position     geom.Point `json:"position"`
}

func (*ResourceState) TableName() string {
	return "resource_states"
}

// RoadState is a cell with a non-default road level at a turn
type RoadState struct {
	ID       uint   `json:"id" gorm:"primarykey;autoIncrement;"`
	ReplayID uint   `json:"replayId" gorm:"index:idx_roadstate_replay_turn"`
	Replay   Replay `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:ReplayID;"`
	Turn     int    `json:"turn" gorm:"index:idx_roadstate_replay_turn"`

	Position  geom.Point `json:"position"`
	RoadLevel float64    `json:"roadLevel"`
	Variant   uint8      `json:"variant"` // connection mask to neighbouring roads
}

func (*RoadState) TableName() string {
	return "road_states"
}

// TeamState is the per-team aggregate at a turn
type TeamState struct {
	ID       uint   `json:"id" gorm:"primarykey;autoIncrement;"`
	ReplayID uint   `json:"replayId" gorm:"index:idx_teamstate_replay_turn"`
	Replay   Replay `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:ReplayID;"`
	Turn     int    `json:"turn" gorm:"index:idx_teamstate_replay_turn"`

	Team               uint8          `json:"team"`
	Workers            int            `json:"workers"`
	Carts              int            `json:"carts"`
	CitiesOwned        datatypes.JSON `json:"citiesOwned"`
	ResearchPoints     int            `json:"researchPoints"`
	FuelGenerated      float64        `json:"fuelGenerated"`
	ResourcesCollected datatypes.JSON `json:"resourcesCollected"`
}

func (*TeamState) TableName() string {
	return "team_states"
}

// Annotation is a debug drawing command recorded at a turn. Shape is empty
// when the arguments cannot be drawn.
type Annotation struct {
	ID       uint   `json:"id" gorm:"primarykey;autoIncrement;"`
	ReplayID uint   `json:"replayId" gorm:"index:idx_annotation_replay_turn"`
	Replay   Replay `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:ReplayID;"`
	Turn     int    `json:"turn" gorm:"index:idx_annotation_replay_turn"`
	Ordinal  int    `json:"ordinal"`

	Command string        `json:"command" gorm:"size:256"`
	AgentID int           `json:"agentId"`
	Kind    string        `json:"kind" gorm:"size:8"`
	Shape   geom.Geometry `json:"shape"`
}

func (*Annotation) TableName() string {
	return "annotations"
}

// TurnError is a warning raised while generating a turn
type TurnError struct {
	ID       uint   `json:"id" gorm:"primarykey;autoIncrement;"`
	ReplayID uint   `json:"replayId" gorm:"index:idx_turnerror_replay_turn"`
	Replay   Replay `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:ReplayID;"`
	Turn     int    `json:"turn" gorm:"index:idx_turnerror_replay_turn"`
	Ordinal  int    `json:"ordinal"`

	Message string `json:"message" gorm:"size:1024"`
}

func (*TurnError) TableName() string {
	return "turn_errors"
}
