package world

import (
	"sort"

	"github.com/google/uuid"

	"blobcraft.ai/internal/sim/bus"
	"blobcraft.ai/internal/sim/catalogs"
	"blobcraft.ai/internal/sim/world/feature/possession"
)

// PossessionSession links a requesting user, the spawned observer and the identity bound to it.
// Sessions are dropped once they reach Bound or Abandoned.
type PossessionSession struct {
	ID       string                `json:"id"`
	User     UserID                `json:"user"`
	Organism EntityID              `json:"organism"`
	Observer EntityID              `json:"observer"`
	Mind     MindID                `json:"mind"`
	Source   possession.MindSource `json:"source"`
	State    PossessionState       `json:"state"`
}

// CreateObserver starts the faction rule if needed and raises a cancellable
// observer request against the organism. It reports whether an observer was spawned.
func (w *World) CreateObserver(organism EntityID, user UserID) bool {
	if w.resolve(organism) == nil {
		return false
	}
	w.faction.Start()
	ev := &CreateObserverRequested{Organism: organism, User: user}
	w.bus.Publish(EventCreateObserverRequested, uint64(organism), ev)
	return !ev.Cancelled && ev.Observer != 0
}

// OnPlayerAttached handles a player taking control of an organism core.
func (w *World) OnPlayerAttached(organism EntityID, user UserID) bool {
	return w.CreateObserver(organism, user)
}

// Sessions lists possession sessions still in flight.
func (w *World) Sessions() []PossessionSession {
	out := make([]PossessionSession, 0, len(w.sessions))
	for _, s := range w.sessions {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (w *World) onCreateObserverRequested(_ *bus.Envelope, ev *CreateObserverRequested) {
	o := w.resolve(ev.Organism)
	if o == nil {
		ev.Cancelled = true
		return
	}
	if obs, ok := w.liveObserver(o); ok {
		ev.Observer = obs
		ev.Cancelled = true
		return
	}
	kind, ok := w.catalogs.Kind(catalogs.KindObserver)
	core := w.entities[o.Core]
	if !ok || core == nil {
		ev.Cancelled = true
		return
	}
	obs := w.spawnEntity(kind, core.Pos)
	if !obs.caps[catalogs.CapObserver] {
		w.queueDelete(obs.ID)
		ev.Cancelled = true
		return
	}
	obs.observerOf = o.Core
	o.Observer = obs.ID
	ev.Observer = obs.ID

	s := &PossessionSession{
		ID:       uuid.NewString(),
		User:     ev.User,
		Organism: o.Core,
		Observer: obs.ID,
		State:    possession.Requested,
	}
	w.sessions[s.ID] = s
	w.emitSession(s)

	s.Mind, s.Source = w.resolveMind(o, ev.User)
	w.minds.SetOwner(s.Mind, ev.User)
	o.Mind = s.Mind
	w.advance(s, possession.MindResolved)

	member, _ := w.faction.register(s.Mind, ev.User)
	if !member.Briefed {
		if live, ok := w.minds.LiveSessionOf(s.Mind); ok {
			w.present.Brief(live, w.cfg.Tuning.BriefingKey)
			member.Briefed = true
		}
	}

	w.emit(EventObserverCreated, o.Core, ObserverCreated{Organism: o.Core, Observer: obs.ID})

	if possession.NextAfterResolve(s.Source) == possession.Bound {
		w.minds.BindIdentity(s.Mind, obs.ID)
		w.minds.AttachSession(ev.User, obs.ID)
		w.showResource(o)
		w.showHealth(o)
		w.advance(s, possession.Bound)
		return
	}
	// Shown again once the session reattaches to the observer.
	w.showResource(o)
	w.showHealth(o)
	w.advance(s, possession.PendingFirstDetach)
	w.scheduleRebind(s)
}

// resolveMind reuses the organism's identity, then the requester's, else creates one.
func (w *World) resolveMind(o *Organism, user UserID) (MindID, possession.MindSource) {
	orgMind, orgOK := w.minds.ResolveIdentity(o.Core)
	if !orgOK && o.Mind != "" {
		orgMind, orgOK = o.Mind, true
	}
	var reqMind MindID
	reqOK := false
	if sess, ok := w.minds.SessionOfUser(user); ok && sess.Mind != "" {
		reqMind, reqOK = sess.Mind, true
	}
	src := possession.ResolveSource(orgOK, reqOK)
	switch src {
	case possession.FromOrganism:
		return orgMind, src
	case possession.FromRequester:
		return reqMind, src
	default:
		return w.minds.CreateIdentity(user, w.cfg.Tuning.ObserverLabel), src
	}
}

// scheduleRebind chains the detach and reattach phases. Both are guarded by the
// observer entity; if it is gone when a phase comes due the session is abandoned.
func (w *World) scheduleRebind(s *PossessionSession) {
	delay := w.cfg.Tuning.RebindDelayTicks()
	guard := uint64(s.Observer)
	abandon := func() { w.advance(s, possession.Abandoned) }

	w.timers.After(w.tick.Load(), delay, guard, func() {
		w.minds.DetachIdentity(s.Mind)
		w.advance(s, possession.PendingReattach)

		w.timers.After(w.tick.Load(), delay, guard, func() {
			w.minds.BindIdentity(s.Mind, s.Observer)
			if _, ok := w.minds.SessionOfUser(s.User); ok {
				w.minds.AttachSession(s.User, s.Observer)
			}
			if o := w.resolve(s.Organism); o != nil {
				w.showResource(o)
				w.showHealth(o)
			}
			w.advance(s, possession.Bound)
		}, abandon)
	}, abandon)
}

func (w *World) advance(s *PossessionSession, to PossessionState) bool {
	if !possession.CanAdvance(s.State, to) {
		return false
	}
	s.State = to
	w.emitSession(s)
	if to.Terminal() {
		delete(w.sessions, s.ID)
	}
	return true
}

func (w *World) emitSession(s *PossessionSession) {
	w.emit(EventPossessionAdvanced, s.Organism, PossessionAdvanced{
		Session:  s.ID,
		Organism: s.Organism,
		Observer: s.Observer,
		State:    s.State,
	})
}
