package world

import (
	"testing"

	"blobcraft.ai/internal/sim/bus"
	"blobcraft.ai/internal/sim/catalogs"
	"blobcraft.ai/internal/sim/world/feature/possession"
)

func recordStates(w *World) *[]PossessionState {
	var states []PossessionState
	bus.On(w.Bus(), EventPossessionAdvanced, func(_ *bus.Envelope, ev PossessionAdvanced) {
		states = append(states, ev.State)
	})
	return &states
}

func TestPossessionFreshIdentityBindsImmediately(t *testing.T) {
	h := newHarness(t)
	org := h.spawn(t, Vec2i{X: 4, Y: 4})
	states := recordStates(h.w)
	created := 0
	bus.On(h.w.Bus(), EventObserverCreated, func(_ *bus.Envelope, _ ObserverCreated) { created++ })

	obs := h.possess(t, org, "alice")

	if h.minds.created != 1 {
		t.Fatalf("identities created = %d, want 1", h.minds.created)
	}
	if len(h.minds.binds) != 1 || h.minds.binds[0] != obs {
		t.Fatalf("binds = %v, want [%d]", h.minds.binds, obs)
	}
	if len(h.present.briefs) != 1 {
		t.Fatalf("briefings = %d, want 1", len(h.present.briefs))
	}
	if h.minds.detaches != 0 || h.w.timers.Len() != 0 {
		t.Fatalf("fresh identity must not go through the delayed phase")
	}
	want := []PossessionState{possession.Requested, possession.MindResolved, possession.Bound}
	if len(*states) != len(want) {
		t.Fatalf("states = %v", *states)
	}
	for i := range want {
		if (*states)[i] != want[i] {
			t.Fatalf("states = %v, want %v", *states, want)
		}
	}
	if created != 1 {
		t.Fatalf("ObserverCreated = %d", created)
	}
	if !h.w.Faction().Started() || h.w.Faction().Len() != 1 {
		t.Fatalf("faction not started or roster wrong")
	}
	m := h.w.Faction().Members()[0]
	if m.Objective != "BlobCaptureObjective" || m.User != "alice" {
		t.Fatalf("member = %+v", m)
	}
	if !h.w.HasCapability(obs, catalogs.CapObserver) {
		t.Fatalf("observer lacks capability")
	}
	if p := h.spatial.pos[obs]; p != (Vec2i{X: 4, Y: 4}) {
		t.Fatalf("observer spawned at %v", p)
	}
	if len(h.w.Sessions()) != 0 {
		t.Fatalf("bound sessions should be dropped")
	}
	if len(h.present.resource) == 0 || len(h.present.health) == 0 {
		t.Fatalf("alerts not refreshed on possession")
	}
}

func TestPossessionReusedIdentityRebindsInTwoPhases(t *testing.T) {
	h := newHarness(t)
	org := h.spawn(t, Vec2i{})
	h.minds.connect("bob", "mind-bob")
	states := recordStates(h.w)

	if !h.w.CreateObserver(org, "bob") {
		t.Fatalf("CreateObserver failed")
	}
	o, _ := h.w.Organism(org)
	obs := o.Observer
	if h.minds.created != 0 {
		t.Fatalf("requester identity should be reused")
	}
	if o.Mind != "mind-bob" {
		t.Fatalf("organism mind = %q", o.Mind)
	}
	if len(h.minds.binds) != 0 {
		t.Fatalf("bound before delay")
	}

	delay := int(h.w.cfg.Tuning.RebindDelayTicks())
	h.steps(delay)
	if h.minds.detaches != 0 {
		t.Fatalf("detached too early")
	}
	h.steps(1)
	if h.minds.detaches != 1 || len(h.minds.binds) != 0 {
		t.Fatalf("after first phase: detaches=%d binds=%v", h.minds.detaches, h.minds.binds)
	}
	h.steps(delay)
	if len(h.minds.binds) != 1 || h.minds.binds[0] != obs {
		t.Fatalf("after second phase: binds=%v", h.minds.binds)
	}
	if len(h.minds.attaches) != 1 || h.minds.attaches[0] != obs {
		t.Fatalf("session not reattached: %v", h.minds.attaches)
	}
	last := (*states)[len(*states)-1]
	if last != possession.Bound {
		t.Fatalf("final state = %s", last)
	}
}

func TestPossessionObserverDeletedBeforeReattach(t *testing.T) {
	h := newHarness(t)
	org := h.spawn(t, Vec2i{})
	h.minds.connect("bob", "mind-bob")
	states := recordStates(h.w)

	h.w.CreateObserver(org, "bob")
	o, _ := h.w.Organism(org)
	delay := int(h.w.cfg.Tuning.RebindDelayTicks())
	h.steps(delay + 1)
	if h.minds.detaches != 1 {
		t.Fatalf("first phase did not run")
	}

	if !h.w.DeleteEntity(o.Observer) {
		t.Fatalf("delete observer failed")
	}
	h.steps(delay + 2)

	if len(h.minds.binds) != 0 || len(h.minds.attaches) != 0 {
		t.Fatalf("rebind attempted after observer deletion: binds=%v attaches=%v", h.minds.binds, h.minds.attaches)
	}
	if last := (*states)[len(*states)-1]; last != possession.Abandoned {
		t.Fatalf("final state = %s, want ABANDONED", last)
	}
	if n := h.w.timers.Len(); n != 0 {
		t.Fatalf("stale timers left behind: %d", n)
	}
	after, _ := h.w.Organism(org)
	if after.Observer != 0 {
		t.Fatalf("organism still references deleted observer")
	}
}

func TestPossessionReusesOrganismIdentity(t *testing.T) {
	h := newHarness(t)
	org := h.spawn(t, Vec2i{})
	first := h.possess(t, org, "alice")
	o, _ := h.w.Organism(org)
	mind := o.Mind

	h.w.DeleteEntity(first)
	h.w.StepOnce()

	h.minds.connect("carol", "")
	if !h.w.CreateObserver(org, "carol") {
		t.Fatalf("second possession failed")
	}
	o, _ = h.w.Organism(org)
	if o.Mind != mind || h.minds.created != 1 {
		t.Fatalf("organism identity not reused: mind=%q created=%d", o.Mind, h.minds.created)
	}
	if len(h.present.briefs) != 1 {
		t.Fatalf("briefing repeated for a known identity")
	}
	if h.w.Faction().Len() != 1 {
		t.Fatalf("roster = %d", h.w.Faction().Len())
	}
}

func TestCreateObserverRejectsSecondObserver(t *testing.T) {
	h := newHarness(t)
	org := h.spawn(t, Vec2i{})
	h.possess(t, org, "alice")
	if h.w.CreateObserver(org, "alice") {
		t.Fatalf("organism already has a live observer")
	}
	if h.w.CreateObserver(999, "alice") {
		t.Fatalf("unknown organism")
	}
}

func TestCreateObserverCancelledWithoutCapability(t *testing.T) {
	cats := loadCatalogs(t)
	obs := cats.Tiles.ByID[catalogs.KindObserver]
	obs.Capabilities = nil
	cats.Tiles.ByID[catalogs.KindObserver] = obs

	h := newHarnessWith(t, cats)
	org := h.spawn(t, Vec2i{})
	h.minds.connect("alice", "")
	if h.w.CreateObserver(org, "alice") {
		t.Fatalf("observer without capability must cancel")
	}
	if h.minds.created != 0 || len(h.present.briefs) != 0 {
		t.Fatalf("cancelled request had side effects")
	}
	o, _ := h.w.Organism(org)
	if o.Observer != 0 {
		t.Fatalf("cancelled observer left on organism")
	}
	before := len(h.spatial.pos)
	h.w.StepOnce()
	if len(h.spatial.pos) != before-1 {
		t.Fatalf("cancelled observer entity not deleted")
	}
}

func TestOtherHandlersSeeCancellation(t *testing.T) {
	h := newHarness(t)
	org := h.spawn(t, Vec2i{})
	var seen []bool
	bus.On(h.w.Bus(), EventCreateObserverRequested, func(_ *bus.Envelope, ev *CreateObserverRequested) {
		seen = append(seen, ev.Cancelled)
	})
	h.possess(t, org, "alice")
	h.w.CreateObserver(org, "alice")
	if len(seen) != 2 || seen[0] || !seen[1] {
		t.Fatalf("broadcast saw %v", seen)
	}
}
