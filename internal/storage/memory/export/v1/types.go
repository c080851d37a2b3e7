// Package v1 contains the v1 export format for generated replay frames.
// This format is read by the replay viewer.
package v1

// FormatVersion is written into every v1 export.
const FormatVersion = 1

// Export is the root JSON structure for v1 format
type Export struct {
	Version          int     `json:"version" jsonschema:"required"`
	Name             string  `json:"name" jsonschema:"required"`
	Seed             int64   `json:"seed"`
	MapType          string  `json:"mapType"`
	Width            int     `json:"width" jsonschema:"required,minimum=1"`
	Height           int     `json:"height" jsonschema:"required,minimum=1"`
	MaxTurns         int     `json:"maxTurns"`
	EndTurn          int     `json:"endTurn"`
	Tag              string  `json:"tag,omitempty"`
	StartedAt        string  `json:"startedAt,omitempty"`
	InitialResources Amounts `json:"initialResources"`
	Frames           []Frame `json:"frames" jsonschema:"required"`
}

// Amounts is one counter per resource kind
type Amounts struct {
	Wood    int `json:"wood"`
	Coal    int `json:"coal"`
	Uranium int `json:"uranium"`
}

// Pos is a grid cell
type Pos struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Frame is one turn of the replay
type Frame struct {
	Turn        int          `json:"turn"`
	Resources   []Resource   `json:"resources"`
	Units       []Unit       `json:"units"`
	Cities      []City       `json:"cities"`
	CityTiles   []CityTile   `json:"cityTiles"`
	Roads       []Road       `json:"roads"`
	Teams       []Team       `json:"teams"`
	Annotations []Annotation `json:"annotations"`
	Errors      []string     `json:"errors"`
}

// Resource is a resource deposit
type Resource struct {
	Type   string `json:"type" jsonschema:"enum=wood,enum=coal,enum=uranium"`
	Amount int    `json:"amount"`
	Pos    Pos    `json:"pos"`
}

// Unit is a worker or cart
type Unit struct {
	ID       string  `json:"id"`
	Team     int     `json:"team"`
	Type     int     `json:"type"`
	Pos      Pos     `json:"pos"`
	Cooldown float64 `json:"cooldown"`
	Cargo    Amounts `json:"cargo"`
}

// City is a group of city tiles sharing fuel
type City struct {
	ID    string  `json:"id"`
	Team  int     `json:"team"`
	Fuel  float64 `json:"fuel"`
	Tiles []Pos   `json:"tiles"`
}

// CityTile is one tile of a city
type CityTile struct {
	CityID   string  `json:"cityId"`
	TileID   string  `json:"tileId"`
	Team     int     `json:"team"`
	Pos      Pos     `json:"pos"`
	Cooldown float64 `json:"cooldown"`
}

// Road is a cell whose road level differs from the default. Variant is
// the sprite key of its connections to neighbouring roads.
type Road struct {
	Pos     Pos     `json:"pos"`
	Level   float64 `json:"level"`
	Variant string  `json:"variant"`
}

// Team is the per-team aggregate of a frame
type Team struct {
	Team               int      `json:"team"`
	Workers            int      `json:"workers"`
	Carts              int      `json:"carts"`
	CitiesOwned        []string `json:"citiesOwned"`
	ResearchPoints     int      `json:"researchPoints"`
	FuelGenerated      float64  `json:"fuelGenerated"`
	ResourcesCollected Amounts  `json:"resourcesCollected"`
}

// Annotation is a raw debug drawing command
type Annotation struct {
	Command string `json:"command"`
	AgentID int    `json:"agentID"`
}
