package world

import (
	"blobcraft.ai/internal/sim/world/feature/points"
	"blobcraft.ai/internal/sim/world/logic/fixed"
)

// ChangePoints adds delta to the organism's points. A result below zero is
// refused before anything changes.
func (w *World) ChangePoints(organism EntityID, delta fixed.Fixed2) bool {
	o := w.resolve(organism)
	if o == nil {
		return false
	}
	next, ok := points.Apply(o.Points, delta)
	if !ok {
		return false
	}
	old := o.Points
	o.Points = next
	w.showResource(o)
	w.emit(EventResourceChanged, organism, ResourceChanged{Organism: organism, Old: old, New: next})
	return true
}

// TryUseAbility is the only gate for paid abilities.
func (w *World) TryUseAbility(organism EntityID, cost fixed.Fixed2) bool {
	o := w.resolve(organism)
	if o == nil || cost.IsNegative() {
		return false
	}
	if !points.CanAfford(o.Points, cost) {
		if obs, ok := w.liveObserver(o); ok {
			w.present.Notify(obs, Notice{Key: NoticeNotEnoughResources, Severity: SeverityLarge})
		}
		return false
	}
	return w.ChangePoints(organism, cost.Neg())
}

func (w *World) showResource(o *Organism) {
	obs, ok := w.liveObserver(o)
	if !ok {
		return
	}
	a := w.cfg.Tuning.Alerts
	w.present.ShowResourceLevel(obs, points.ResourceLevel(o.Points, a.ResourceDivisor, a.ResourceMax))
}

func (w *World) showHealth(o *Organism) {
	obs, ok := w.liveObserver(o)
	if !ok {
		return
	}
	a := w.cfg.Tuning.Alerts
	w.present.ShowHealthLevel(obs, points.HealthLevel(o.TotalHealth, o.damage, a.HealthDivisor, a.HealthMax))
}
