package world

import (
	"blobcraft.ai/internal/sim/bus"
	"blobcraft.ai/internal/sim/catalogs"
	"blobcraft.ai/internal/sim/world/feature/tiles"
	"blobcraft.ai/internal/sim/world/logic/fixed"
)

// SpawnOrganism creates a core at pos. The core is its own first tile.
func (w *World) SpawnOrganism(pos Vec2i, region string) (EntityID, bool) {
	kind, ok := w.catalogs.Kind(catalogs.KindCore)
	if !ok {
		return 0, false
	}
	core := w.spawnEntity(kind, pos)
	o := &Organism{
		Core:        core.ID,
		TotalHealth: fixed.FromFloat(w.cfg.Tuning.CoreTotalHealth),
		Region:      region,
		tiles:       tiles.NewSet(),
	}
	w.organisms[core.ID] = o
	w.AddTile(core.ID, core.ID)

	bus.OnTarget(w.bus, EventCreateObserverRequested, uint64(core.ID), w.onCreateObserverRequested)

	w.ChangePoints(core.ID, 0)
	w.ChangeChem(core.ID, w.catalogs.Chems.Default)
	return core.ID, true
}

// liveOrganisms counts organisms that are not already terminating.
func (w *World) liveOrganisms() int {
	n := 0
	for _, o := range w.organisms {
		if !o.terminating {
			n++
		}
	}
	return n
}
