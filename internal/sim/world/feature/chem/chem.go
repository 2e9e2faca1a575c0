package chem

import (
	"sort"

	"blobcraft.ai/internal/sim/world/logic/fixed"
)

type Type string

const (
	ReactiveSpines      Type = "ReactiveSpines"
	BlazingOil          Type = "BlazingOil"
	RegenerativeMateria Type = "RegenerativeMateria"
	ExplosiveLattice    Type = "ExplosiveLattice"
	ElectromagneticWeb  Type = "ElectromagneticWeb"
)

// All lists every mutation state in declaration order.
var All = []Type{ReactiveSpines, BlazingOil, RegenerativeMateria, ExplosiveLattice, ElectromagneticWeb}

const (
	// MeleeScale is applied to the profile damage when arming a factory's combat unit.
	MeleeScale = 0.8
	// ResistanceFallback replaces the blast immunity granted by ExplosiveLattice when leaving it.
	ResistanceFallback = 0.3
)

func Parse(s string) (Type, bool) {
	for _, t := range All {
		if string(t) == s {
			return t, true
		}
	}
	return "", false
}

// Profile is the immutable per-state configuration.
type Profile struct {
	Color               string
	DamageModifier      string
	ExplosionResistance *float64 // nil leaves the entity's resistance untouched
	Damage              map[string]float64
}

// ResistanceSteps returns the explosion resistance values to apply, in order, when an
// entity moves from old to next.
func ResistanceSteps(old, next Type, p Profile) []float64 {
	var out []float64
	if old == ExplosiveLattice && next != ExplosiveLattice {
		out = append(out, ResistanceFallback)
	}
	if p.ExplosionResistance != nil {
		out = append(out, *p.ExplosionResistance)
	}
	return out
}

// ScaleMelee derives a combat unit's melee damage from the profile damage table.
func ScaleMelee(damage map[string]float64) map[string]fixed.Fixed2 {
	out := make(map[string]fixed.Fixed2, len(damage))
	for kind, v := range damage {
		out[kind] = fixed.FromFloat(v).Mul(MeleeScale)
	}
	return out
}

// DamageKinds returns the profile damage kinds sorted for stable output.
func DamageKinds(damage map[string]float64) []string {
	out := make([]string, 0, len(damage))
	for k := range damage {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
