// pkg/core/types.go
package core

import "fmt"

// Team identifies one side of the match.
type Team int

const (
	TeamA Team = 0
	TeamB Team = 1
)

// NumTeams is the number of teams in a match.
const NumTeams = 2

// Teams lists every team in index order.
var Teams = [NumTeams]Team{TeamA, TeamB}

// Valid reports whether t is a known team.
func (t Team) Valid() bool {
	return t == TeamA || t == TeamB
}

func (t Team) String() string {
	return fmt.Sprintf("Team %d", int(t))
}

// UnitType is the kind of a unit.
type UnitType int

const (
	UnitWorker UnitType = 0
	UnitCart   UnitType = 1
)

func (u UnitType) String() string {
	switch u {
	case UnitWorker:
		return "worker"
	case UnitCart:
		return "cart"
	default:
		return fmt.Sprintf("unit(%d)", int(u))
	}
}

// ResourceType is the kind of a resource deposit.
type ResourceType string

const (
	ResourceWood    ResourceType = "wood"
	ResourceCoal    ResourceType = "coal"
	ResourceUranium ResourceType = "uranium"
)

// ResourceTypes lists every resource kind.
var ResourceTypes = [3]ResourceType{ResourceWood, ResourceCoal, ResourceUranium}

// Cargo is the resources carried by a unit.
type Cargo struct {
	Wood    int `json:"wood"`
	Coal    int `json:"coal"`
	Uranium int `json:"uranium"`
}

// Get returns the carried amount of the given resource.
func (c Cargo) Get(r ResourceType) int {
	switch r {
	case ResourceWood:
		return c.Wood
	case ResourceCoal:
		return c.Coal
	case ResourceUranium:
		return c.Uranium
	}
	return 0
}

// Total returns the summed cargo amount.
func (c Cargo) Total() int {
	return c.Wood + c.Coal + c.Uranium
}

// ResourceAmounts holds one counter per resource kind.
type ResourceAmounts struct {
	Wood    int `json:"wood"`
	Coal    int `json:"coal"`
	Uranium int `json:"uranium"`
}

// Add increments the counter for r by n.
func (a *ResourceAmounts) Add(r ResourceType, n int) {
	switch r {
	case ResourceWood:
		a.Wood += n
	case ResourceCoal:
		a.Coal += n
	case ResourceUranium:
		a.Uranium += n
	}
}

// Get returns the counter for r.
func (a ResourceAmounts) Get(r ResourceType) int {
	return Cargo(a).Get(r)
}
