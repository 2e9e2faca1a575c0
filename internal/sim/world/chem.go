package world

import "blobcraft.ai/internal/sim/world/feature/chem"

// ChangeChem switches the organism's chemistry and restyles every tile it owns.
// It reports false when the organism or profile is unknown, or next equals the current state.
func (w *World) ChangeChem(organism EntityID, next ChemType) bool {
	o := w.resolve(organism)
	if o == nil {
		return false
	}
	p, ok := w.catalogs.Chem(next)
	if !ok {
		return false
	}
	if o.Chem == next {
		return false
	}
	old := o.Chem
	o.Chem = next

	for _, raw := range o.tiles.IDs() {
		e := w.entities[EntityID(raw)]
		if e == nil || e.tile == nil {
			continue
		}
		e.tile.Color = p.Color
		if e.factory != nil {
			if u := w.entities[e.factory.Unit]; u != nil && u.unit != nil {
				u.unit.Color = p.Color
				u.unit.Melee = chem.ScaleMelee(p.Damage)
				w.applyEntityChem(u, old, next)
			}
			for _, podID := range e.factory.Pods {
				if pe := w.entities[podID]; pe != nil && pe.pod != nil {
					pe.pod.SmokeColor = p.Color
				}
			}
		}
		w.applyEntityChem(e, old, next)
	}

	w.emit(EventChemistryChanged, organism, ChemistryChanged{Organism: organism, Old: old, New: next})
	return true
}

// applyEntityChem pushes a chemistry's defense parameters onto one entity.
func (w *World) applyEntityChem(e *entity, old, next ChemType) {
	p, ok := w.catalogs.Chem(next)
	if !ok {
		return
	}
	for _, r := range chem.ResistanceSteps(old, next, p) {
		w.defense.SetExplosionResistance(e.ID, r)
	}
	w.defense.SetDamageProfile(e.ID, p.DamageModifier)
	e.damageProfile = p.DamageModifier
	e.chem = next
}
