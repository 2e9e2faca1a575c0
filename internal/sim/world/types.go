package world

import (
	"errors"

	"blobcraft.ai/internal/sim/catalogs"
	"blobcraft.ai/internal/sim/world/feature/chem"
	"blobcraft.ai/internal/sim/world/feature/possession"
	"blobcraft.ai/internal/sim/world/feature/tiles"
	"blobcraft.ai/internal/sim/world/logic/fixed"
	"blobcraft.ai/internal/sim/world/logic/grid"
)

type EntityID uint64

type Vec2i = grid.Vec2i
type Box = grid.Box
type Capability = catalogs.Capability
type ChemType = chem.Type
type PossessionState = possession.State

// Tile is the per-cell component of an organism-owned entity.
// Owner is a plain id back-reference; the organism's tile set is the owning side.
type Tile struct {
	Owner       EntityID `json:"owner"`
	Color       string   `json:"color"`
	ReturnsCost bool     `json:"returns_cost"`
	Kind        string   `json:"kind"`
}

type Factory struct {
	Unit EntityID   `json:"unit,omitempty"`
	Pods []EntityID `json:"pods,omitempty"`
}

type CombatUnit struct {
	Color string                  `json:"color"`
	Melee map[string]fixed.Fixed2 `json:"melee"`
}

type Pod struct {
	SmokeColor string `json:"smoke_color"`
}

// Organism is the root growth entity, keyed by its core entity.
type Organism struct {
	Core        EntityID
	TotalHealth fixed.Fixed2
	Chem        ChemType
	Points      fixed.Fixed2
	Observer    EntityID
	Region      string
	Mind        MindID

	tiles       *tiles.Set
	damage      fixed.Fixed2
	terminating bool
}

// OrganismView is a read-only copy for callers outside the loop.
type OrganismView struct {
	Core        EntityID     `json:"core"`
	Region      string       `json:"region"`
	Chem        ChemType     `json:"chem"`
	Points      fixed.Fixed2 `json:"points"`
	TotalHealth fixed.Fixed2 `json:"total_health"`
	Damage      fixed.Fixed2 `json:"damage"`
	Tiles       int          `json:"tiles"`
	Observer    EntityID     `json:"observer,omitempty"`
	Mind        MindID       `json:"mind,omitempty"`
}

func (o *Organism) view() OrganismView {
	return OrganismView{
		Core:        o.Core,
		Region:      o.Region,
		Chem:        o.Chem,
		Points:      o.Points,
		TotalHealth: o.TotalHealth,
		Damage:      o.damage,
		Tiles:       o.tiles.Len(),
		Observer:    o.Observer,
		Mind:        o.Mind,
	}
}

var errWorldStopped = errors.New("world stopped")

func errMissing(what string) error { return errors.New("missing collaborator: " + what) }
