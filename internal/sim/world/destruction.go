package world

import (
	"blobcraft.ai/internal/sim/world/feature/destruction"
)

// DestroyOrganism releases the observer, neutralises every tile and deletes the core.
// Losing the last live organism during an early or critical stage rolls the region back.
func (w *World) DestroyOrganism(organism EntityID) bool {
	o := w.resolve(organism)
	if o == nil {
		return false
	}
	live := w.liveOrganisms()
	o.terminating = true

	if o.Observer != 0 {
		w.queueDelete(o.Observer)
	}
	for _, raw := range o.tiles.IDs() {
		e := w.entities[EntityID(raw)]
		if e == nil || e.tile == nil {
			continue
		}
		e.tile.Owner = 0
		e.tile.Color = destruction.NeutralColor
	}
	o.tiles.Clear()

	rollback := destruction.ShouldRollback(live, w.round.CurrentStage())
	if rollback {
		w.round.SetAlertLevel(o.Region, w.cfg.Tuning.BaselineAlertLevel)
		w.round.CancelPendingRoundEnd()
	}

	w.queueDelete(o.Core)
	delete(w.organisms, organism)
	w.emit(EventOrganismDestroyed, organism, OrganismDestroyed{Organism: organism, Region: o.Region, Rollback: rollback})
	return true
}
