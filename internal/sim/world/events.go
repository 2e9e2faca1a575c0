package world

import (
	"blobcraft.ai/internal/sim/bus"
	"blobcraft.ai/internal/sim/world/logic/fixed"
)

const (
	EventChemistryChanged  bus.Kind = "CHEMISTRY_CHANGED"
	EventTileTransformed   bus.Kind = "TILE_TRANSFORMED"
	EventResourceChanged   bus.Kind = "RESOURCE_CHANGED"
	EventObserverCreated   bus.Kind = "OBSERVER_CREATED"
	EventOrganismDestroyed bus.Kind = "ORGANISM_DESTROYED"

	// Internal kinds.
	EventCreateObserverRequested bus.Kind = "CREATE_OBSERVER_REQUESTED"
	EventPossessionAdvanced      bus.Kind = "POSSESSION_ADVANCED"
)

type ChemistryChanged struct {
	Organism EntityID
	Old, New ChemType
}

// TileTransformed.Old is zero when nothing was replaced.
type TileTransformed struct {
	Old, New EntityID
	Organism EntityID
}

type ResourceChanged struct {
	Organism EntityID
	Old, New fixed.Fixed2
}

type ObserverCreated struct {
	Organism EntityID
	Observer EntityID
}

type OrganismDestroyed struct {
	Organism EntityID
	Region   string
	Rollback bool
}

// CreateObserverRequested is published as a pointer; a handler sets Cancelled to veto.
type CreateObserverRequested struct {
	Organism  EntityID
	User      UserID
	Observer  EntityID
	Cancelled bool
}

type PossessionAdvanced struct {
	Session  string
	Organism EntityID
	Observer EntityID
	State    PossessionState
}

// EventEntry is the flat record handed to event sinks (log, index, metrics).
type EventEntry struct {
	Tick     uint64         `json:"tick"`
	World    string         `json:"world"`
	Kind     string         `json:"kind"`
	Organism EntityID       `json:"organism"`
	Data     map[string]any `json:"data,omitempty"`
}

// EventSink receives engine events on the world loop goroutine; it must not block.
type EventSink interface {
	WriteEvent(e EventEntry) error
}

// AddEventSink must be called before Run.
func (w *World) AddEventSink(s EventSink) {
	if s != nil {
		w.sinks = append(w.sinks, s)
	}
}

type recordable interface {
	record() (EntityID, map[string]any)
}

func (e ChemistryChanged) record() (EntityID, map[string]any) {
	return e.Organism, map[string]any{"old": string(e.Old), "new": string(e.New)}
}

func (e TileTransformed) record() (EntityID, map[string]any) {
	return e.Organism, map[string]any{"old": uint64(e.Old), "new": uint64(e.New)}
}

func (e ResourceChanged) record() (EntityID, map[string]any) {
	return e.Organism, map[string]any{"old": e.Old.Float(), "new": e.New.Float()}
}

func (e ObserverCreated) record() (EntityID, map[string]any) {
	return e.Organism, map[string]any{"observer": uint64(e.Observer)}
}

func (e OrganismDestroyed) record() (EntityID, map[string]any) {
	return e.Organism, map[string]any{"region": e.Region, "rollback": e.Rollback}
}

func (e PossessionAdvanced) record() (EntityID, map[string]any) {
	return e.Organism, map[string]any{
		"session":  e.Session,
		"observer": uint64(e.Observer),
		"state":    e.State.String(),
	}
}

// emit publishes on the bus and forwards the event to every sink.
func (w *World) emit(kind bus.Kind, target EntityID, payload recordable) {
	w.bus.Publish(kind, uint64(target), payload)
	if len(w.sinks) == 0 {
		return
	}
	org, data := payload.record()
	entry := EventEntry{
		Tick:     w.tick.Load(),
		World:    w.cfg.ID,
		Kind:     string(kind),
		Organism: org,
		Data:     data,
	}
	for _, s := range w.sinks {
		_ = s.WriteEvent(entry)
	}
}
