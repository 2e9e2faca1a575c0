package world

import (
	"errors"
	"sort"
	"sync"
	"sync/atomic"

	"blobcraft.ai/internal/sim/bus"
	"blobcraft.ai/internal/sim/catalogs"
	"blobcraft.ai/internal/sim/timers"
)

// World is a single-threaded authoritative engine.
// All state must be accessed only from the world loop goroutine.
type World struct {
	cfg      WorldConfig
	catalogs *catalogs.Catalogs

	tick atomic.Uint64

	entities      map[EntityID]*entity
	organisms     map[EntityID]*Organism
	pendingDelete []EntityID
	nextEntity    uint64

	sessions map[string]*PossessionSession
	faction  *Faction

	bus    *bus.Bus
	timers *timers.Queue
	sinks  []EventSink

	spatial Spatial
	minds   Minds
	present Presentation
	round   RoundControl
	defense Defense

	reqs     chan worldReq
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	metrics atomic.Value
	resets  uint64
}

func New(cfg WorldConfig, cats *catalogs.Catalogs, c Collaborators) (*World, error) {
	if cats == nil {
		return nil, errors.New("missing catalogs")
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	if _, ok := cats.Chem(cats.Chems.Default); !ok {
		return nil, errors.New("default chem has no profile")
	}
	cfg.applyDefaults()

	w := &World{
		cfg:       cfg,
		catalogs:  cats,
		entities:  map[EntityID]*entity{},
		organisms: map[EntityID]*Organism{},
		sessions:  map[string]*PossessionSession{},
		faction:   newFaction(cfg.Tuning.ObjectiveID),
		bus:       bus.New(),
		spatial:   c.Spatial,
		minds:     c.Minds,
		present:   c.Presentation,
		round:     c.Round,
		defense:   c.Defense,
		reqs:      make(chan worldReq, cfg.RequestQueue),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	w.timers = timers.New(func(guard uint64) bool { return w.alive(EntityID(guard)) })
	w.metrics.Store(WorldMetrics{})
	return w, nil
}

func (w *World) ID() string {
	if w == nil {
		return ""
	}
	return w.cfg.ID
}

func (w *World) TickRateHz() int {
	if w == nil {
		return 0
	}
	return w.cfg.Tuning.TickRateHz
}

func (w *World) CurrentTick() uint64 { return w.tick.Load() }

// Bus exposes the event registry. Subscribe before Run; handlers run on the loop goroutine.
func (w *World) Bus() *bus.Bus { return w.bus }

func (w *World) Catalogs() *catalogs.Catalogs { return w.catalogs }

func (w *World) Faction() *Faction { return w.faction }

// Organism returns a copy of the organism's state.
func (w *World) Organism(id EntityID) (OrganismView, bool) {
	o := w.organisms[id]
	if o == nil {
		return OrganismView{}, false
	}
	return o.view(), true
}

func (w *World) OrganismIDs() []EntityID {
	ids := make([]EntityID, 0, len(w.organisms))
	for id := range w.organisms {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// TileIDs lists the organism's tiles in insertion order.
func (w *World) TileIDs(organism EntityID) []EntityID {
	o := w.organisms[organism]
	if o == nil {
		return nil
	}
	raw := o.tiles.IDs()
	out := make([]EntityID, len(raw))
	for i, id := range raw {
		out[i] = EntityID(id)
	}
	return out
}

func (w *World) resolve(organism EntityID) *Organism {
	o := w.organisms[organism]
	if o == nil || o.terminating {
		return nil
	}
	return o
}

// liveObserver returns the organism's observer if it is still alive.
func (w *World) liveObserver(o *Organism) (EntityID, bool) {
	if o == nil || o.Observer == 0 || !w.alive(o.Observer) {
		return 0, false
	}
	return o.Observer, true
}
