package points

import (
	"math"

	"blobcraft.ai/internal/sim/world/logic/fixed"
)

// Apply returns cur+delta, refusing any result below zero.
func Apply(cur, delta fixed.Fixed2) (fixed.Fixed2, bool) {
	next := cur.Add(delta)
	if next.IsNegative() {
		return cur, false
	}
	return next, true
}

func CanAfford(cur, cost fixed.Fixed2) bool {
	return !cur.Less(cost)
}

// AlertLevel scales v by divisor, rounds half away from zero and clamps to [0,max].
func AlertLevel(v, divisor float64, max int) int {
	if divisor <= 0 {
		return 0
	}
	n := int(math.Round(v / divisor))
	if n < 0 {
		return 0
	}
	if n > max {
		return max
	}
	return n
}

// ResourceLevel is the resource alert shown for a points balance.
func ResourceLevel(p fixed.Fixed2, divisor float64, max int) int {
	return AlertLevel(p.Float(), divisor, max)
}

// HealthLevel is the health alert shown after totalDamage against capacity.
func HealthLevel(capacity, totalDamage fixed.Fixed2, divisor float64, max int) int {
	return AlertLevel(capacity.Sub(totalDamage).Float(), divisor, max)
}
