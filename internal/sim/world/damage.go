package world

import "blobcraft.ai/internal/sim/world/logic/fixed"

// ApplyDamage records the organism's accumulated damage and refreshes the health alert.
// Damage at or above capacity destroys the organism.
func (w *World) ApplyDamage(organism EntityID, totalDamage fixed.Fixed2) bool {
	o := w.resolve(organism)
	if o == nil || totalDamage.IsNegative() {
		return false
	}
	o.damage = totalDamage
	w.showHealth(o)
	if !totalDamage.Less(o.TotalHealth) {
		w.DestroyOrganism(organism)
	}
	return true
}
