package world

import (
	"sort"

	"blobcraft.ai/internal/sim/catalogs"
	"blobcraft.ai/internal/sim/world/feature/chem"
)

type entity struct {
	ID   EntityID
	Kind string
	Pos  Vec2i
	caps map[Capability]bool

	chem          chem.Type
	damageProfile string

	tile    *Tile
	factory *Factory
	unit    *CombatUnit
	pod     *Pod

	// Organism this entity serves as observer or factory product for.
	observerOf EntityID
	producedBy EntityID

	dying bool
}

// HasCapability is the single capability predicate of the engine.
func (w *World) HasCapability(id EntityID, c Capability) bool {
	e := w.entities[id]
	return e != nil && e.caps[c]
}

// Exists reports whether id is in the entity table and not queued for deletion.
func (w *World) Exists(id EntityID) bool { return w.alive(id) }

func (w *World) alive(id EntityID) bool {
	e := w.entities[id]
	return e != nil && !e.dying
}

func (w *World) EntityKind(id EntityID) (string, bool) {
	e := w.entities[id]
	if e == nil {
		return "", false
	}
	return e.Kind, true
}

func (w *World) TileOf(id EntityID) (Tile, bool) {
	e := w.entities[id]
	if e == nil || e.tile == nil {
		return Tile{}, false
	}
	return *e.tile, true
}

func (w *World) FactoryOf(id EntityID) (Factory, bool) {
	e := w.entities[id]
	if e == nil || e.factory == nil {
		return Factory{}, false
	}
	f := *e.factory
	f.Pods = append([]EntityID(nil), e.factory.Pods...)
	return f, true
}

func (w *World) UnitOf(id EntityID) (CombatUnit, bool) {
	e := w.entities[id]
	if e == nil || e.unit == nil {
		return CombatUnit{}, false
	}
	return *e.unit, true
}

func (w *World) PodOf(id EntityID) (Pod, bool) {
	e := w.entities[id]
	if e == nil || e.pod == nil {
		return Pod{}, false
	}
	return *e.pod, true
}

func (w *World) spawnEntity(kind catalogs.TileKind, pos Vec2i) *entity {
	w.nextEntity++
	e := &entity{
		ID:   EntityID(w.nextEntity),
		Kind: kind.ID,
		Pos:  pos,
		caps: make(map[Capability]bool, len(kind.Capabilities)),
	}
	for _, c := range kind.Capabilities {
		e.caps[c] = true
	}
	if e.caps[catalogs.CapTile] {
		e.tile = &Tile{Kind: kind.ID}
	}
	if e.caps[catalogs.CapFactory] {
		e.factory = &Factory{}
	}
	if e.caps[catalogs.CapCombatUnit] {
		e.unit = &CombatUnit{}
	}
	if e.caps[catalogs.CapSmokePod] {
		e.pod = &Pod{}
	}
	w.entities[e.ID] = e
	w.spatial.Anchor(e.ID, pos)
	return e
}

// queueDelete marks id for removal at the end of the tick.
func (w *World) queueDelete(id EntityID) {
	e := w.entities[id]
	if e == nil || e.dying {
		return
	}
	e.dying = true
	w.pendingDelete = append(w.pendingDelete, id)
}

// DeleteEntity removes an entity on behalf of an outside system.
// Deleting a core destroys its organism.
func (w *World) DeleteEntity(id EntityID) bool {
	if !w.alive(id) {
		return false
	}
	if _, ok := w.organisms[id]; ok {
		return w.DestroyOrganism(id)
	}
	w.queueDelete(id)
	return true
}

func (w *World) flushDeletes() int {
	if len(w.pendingDelete) == 0 {
		return 0
	}
	ids := w.pendingDelete
	w.pendingDelete = nil
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		e := w.entities[id]
		if e == nil {
			continue
		}
		w.unlink(e)
		delete(w.entities, id)
		w.spatial.Unanchor(id)
		w.bus.ForgetTarget(uint64(id))
	}
	return len(ids)
}

// unlink drops every reference other records hold to e.
func (w *World) unlink(e *entity) {
	if e.tile != nil && e.tile.Owner != 0 {
		if o := w.organisms[e.tile.Owner]; o != nil {
			o.tiles.Remove(uint64(e.ID))
		}
	}
	if e.observerOf != 0 {
		if o := w.organisms[e.observerOf]; o != nil && o.Observer == e.ID {
			o.Observer = 0
		}
	}
	if e.producedBy != 0 {
		if f := w.entities[e.producedBy]; f != nil && f.factory != nil {
			if f.factory.Unit == e.ID {
				f.factory.Unit = 0
			}
			f.factory.Pods = removeID(f.factory.Pods, e.ID)
		}
	}
	if e.factory != nil {
		if u := w.entities[e.factory.Unit]; u != nil {
			u.producedBy = 0
		}
		for _, p := range e.factory.Pods {
			if pe := w.entities[p]; pe != nil {
				pe.producedBy = 0
			}
		}
	}
}

func removeID(ids []EntityID, id EntityID) []EntityID {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
