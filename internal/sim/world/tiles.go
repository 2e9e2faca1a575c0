package world

import (
	"blobcraft.ai/internal/sim/catalogs"
	"blobcraft.ai/internal/sim/world/feature/chem"
	"blobcraft.ai/internal/sim/world/feature/tiles"
	"blobcraft.ai/internal/sim/world/logic/fixed"
	"blobcraft.ai/internal/sim/world/logic/grid"
)

// AddTile registers tile under organism and sets its back-reference.
// It reports false when nothing changed: tile already present, owned elsewhere, or unresolvable.
func (w *World) AddTile(organism, tile EntityID) bool {
	o := w.resolve(organism)
	if o == nil {
		return false
	}
	e := w.entities[tile]
	if e == nil || e.dying || e.tile == nil {
		return false
	}
	if !tiles.CanAdopt(uint64(e.tile.Owner), uint64(organism)) {
		return false
	}
	if !o.tiles.Add(uint64(tile)) {
		return false
	}
	e.tile.Owner = organism
	return true
}

// RemoveTile deletes the tile entity and drops it from the set.
// Absent tiles are a no-op; the core's own tile cannot be removed.
func (w *World) RemoveTile(organism, tile EntityID) bool {
	o := w.resolve(organism)
	if o == nil {
		return false
	}
	if !o.tiles.Has(uint64(tile)) {
		return true
	}
	if tile == o.Core {
		return false
	}
	o.tiles.Remove(uint64(tile))
	if e := w.entities[tile]; e != nil && e.tile != nil {
		e.tile.Owner = 0
	}
	w.queueDelete(tile)
	return true
}

// TransformTile replaces old (if non-zero) with a new tile of kind at pos,
// styled for the organism's current chemistry. Nothing changes when old cannot be removed.
func (w *World) TransformTile(old, organism EntityID, kind string, pos Vec2i, returnsCost bool, cost *fixed.Fixed2) (EntityID, bool) {
	o := w.resolve(organism)
	if o == nil {
		return 0, false
	}
	k, ok := w.catalogs.Kind(kind)
	if !ok || !k.Has(catalogs.CapTile) {
		return 0, false
	}
	if old == o.Core {
		return 0, false
	}
	if old != 0 && !w.RemoveTile(organism, old) {
		return 0, false
	}

	e := w.spawnEntity(k, pos)
	e.tile.ReturnsCost = returnsCost
	if p, ok := w.catalogs.Chem(o.Chem); ok {
		e.tile.Color = p.Color
	}
	w.applyEntityChem(e, "", o.Chem)

	if obs, ok := w.liveObserver(o); ok && cost != nil {
		w.present.Notify(obs, Notice{
			Key:      NoticeSpentResource,
			Severity: SeverityLargeCaution,
			Args:     map[string]string{"point": cost.String()},
		})
	}
	w.AddTile(organism, e.ID)
	w.emit(EventTileTransformed, organism, TileTransformed{Old: old, New: e.ID, Organism: organism})
	return e.ID, true
}

// CheckNearNode reports whether a node or core stands within the search radius of pos.
// On failure the observer is told there is no nearby node.
func (w *World) CheckNearNode(observer EntityID, pos Vec2i, organism EntityID) bool {
	if w.resolve(organism) == nil {
		return false
	}
	box := grid.Around(pos, w.cfg.Tuning.NodeSearchRadius)
	for _, cell := range w.spatial.TilesIntersecting(box) {
		for _, id := range w.spatial.StructuresAt(cell) {
			if !w.alive(id) {
				continue
			}
			if w.HasCapability(id, catalogs.CapNode) || w.HasCapability(id, catalogs.CapCore) {
				return true
			}
		}
	}
	if observer != 0 {
		w.present.Notify(observer, Notice{Key: NoticeNoNearbyNode, Severity: SeverityLarge})
	}
	return false
}

// PlaceTile is the paid expansion path: structures need a nearby node,
// then the kind's cost is taken through TryUseAbility.
func (w *World) PlaceTile(organism, old EntityID, kind string, pos Vec2i) (EntityID, bool) {
	o := w.resolve(organism)
	if o == nil {
		return 0, false
	}
	k, ok := w.catalogs.Kind(kind)
	if !ok || !k.Has(catalogs.CapTile) || k.Has(catalogs.CapCore) {
		return 0, false
	}
	if old == o.Core {
		return 0, false
	}
	if k.Has(catalogs.CapStructure) || k.Has(catalogs.CapNode) {
		if !w.CheckNearNode(o.Observer, pos, organism) {
			return 0, false
		}
	}
	var cost *fixed.Fixed2
	if k.Cost > 0 {
		if !w.TryUseAbility(organism, k.Cost) {
			return 0, false
		}
		c := k.Cost
		cost = &c
	}
	return w.TransformTile(old, organism, kind, pos, k.ReturnsCost, cost)
}

// ProduceFromFactory spawns a combat unit or smoke pod next to a factory tile.
// A factory hosts at most one combat unit.
func (w *World) ProduceFromFactory(organism, factory EntityID, kind string) (EntityID, bool) {
	o := w.resolve(organism)
	if o == nil || !o.tiles.Has(uint64(factory)) {
		return 0, false
	}
	fe := w.entities[factory]
	if fe == nil || fe.factory == nil {
		return 0, false
	}
	k, ok := w.catalogs.Kind(kind)
	if !ok {
		return 0, false
	}
	isUnit := k.Has(catalogs.CapCombatUnit)
	if !isUnit && !k.Has(catalogs.CapSmokePod) {
		return 0, false
	}
	if isUnit && fe.factory.Unit != 0 {
		return 0, false
	}
	if k.Cost > 0 && !w.TryUseAbility(organism, k.Cost) {
		return 0, false
	}

	p, _ := w.catalogs.Chem(o.Chem)
	e := w.spawnEntity(k, fe.Pos)
	e.producedBy = factory
	if isUnit {
		fe.factory.Unit = e.ID
		e.unit.Color = p.Color
		e.unit.Melee = chem.ScaleMelee(p.Damage)
		w.applyEntityChem(e, "", o.Chem)
	} else {
		fe.factory.Pods = append(fe.factory.Pods, e.ID)
		e.pod.SmokeColor = p.Color
	}
	return e.ID, true
}
