package world

import (
	"testing"

	"blobcraft.ai/internal/sim/bus"
	"blobcraft.ai/internal/sim/world/feature/destruction"
	"blobcraft.ai/internal/sim/world/logic/fixed"
)

func TestDestroyLastOrganismDuringCriticalRollsBack(t *testing.T) {
	h := newHarness(t)
	h.round.stage = StageCritical
	org := h.spawn(t, Vec2i{})
	obs := h.possess(t, org, "alice")
	tiles := growTiles(t, h, org, 2)

	if !h.w.DestroyOrganism(org) {
		t.Fatalf("DestroyOrganism failed")
	}
	if len(h.round.alerts) != 1 || h.round.alerts[0] != "station=green" {
		t.Fatalf("alerts = %v", h.round.alerts)
	}
	if h.round.cancels != 1 {
		t.Fatalf("round-end cancels = %d", h.round.cancels)
	}
	if h.w.Exists(obs) || h.w.Exists(org) {
		t.Fatalf("observer and core should be queued for deletion")
	}
	for _, id := range tiles {
		tile, ok := h.w.TileOf(id)
		if !ok || tile.Owner != 0 || tile.Color != destruction.NeutralColor {
			t.Fatalf("tile %d not neutralised: %+v", id, tile)
		}
	}
	if _, ok := h.w.Organism(org); ok {
		t.Fatalf("organism still resolvable")
	}
	if h.w.DestroyOrganism(org) {
		t.Fatalf("double destroy should fail")
	}
	h.w.StepOnce()
	if _, ok := h.spatial.pos[org]; ok {
		t.Fatalf("core still anchored after flush")
	}
	if _, ok := h.w.TileOf(tiles[0]); !ok {
		t.Fatalf("neutral tiles stay in the world")
	}
}

func TestDestroyOneOfSeveralDoesNotRollBack(t *testing.T) {
	h := newHarness(t)
	h.round.stage = StageCritical
	a := h.spawn(t, Vec2i{})
	h.spawn(t, Vec2i{X: 30})

	h.w.DestroyOrganism(a)
	if len(h.round.alerts) != 0 || h.round.cancels != 0 {
		t.Fatalf("rollback with survivors: alerts=%v cancels=%d", h.round.alerts, h.round.cancels)
	}
}

func TestDestroyLastOrganismOutsideRollbackStages(t *testing.T) {
	for _, stage := range []Stage{StageDefault, StageMedium, StageEnd} {
		h := newHarness(t)
		h.round.stage = stage
		org := h.spawn(t, Vec2i{})
		h.w.DestroyOrganism(org)
		if len(h.round.alerts) != 0 || h.round.cancels != 0 {
			t.Fatalf("stage %s rolled back", stage)
		}
	}
	h := newHarness(t)
	h.round.stage = StageBegin
	h.w.DestroyOrganism(h.spawn(t, Vec2i{}))
	if h.round.cancels != 1 {
		t.Fatalf("begin stage should roll back")
	}
}

func TestDamageAlertsAndDestroys(t *testing.T) {
	h := newHarness(t)
	org := h.spawn(t, Vec2i{})
	h.possess(t, org, "alice")
	h.present.health = nil

	capacity := h.w.cfg.Tuning.CoreTotalHealth
	if !h.w.ApplyDamage(org, fixed.FromFloat(capacity-60)) {
		t.Fatalf("ApplyDamage failed")
	}
	if len(h.present.health) != 1 || h.present.health[0] != 6 {
		t.Fatalf("health levels = %v", h.present.health)
	}
	if _, ok := h.w.Organism(org); !ok {
		t.Fatalf("organism destroyed too early")
	}
	h.w.ApplyDamage(org, fixed.FromFloat(capacity))
	if _, ok := h.w.Organism(org); ok {
		t.Fatalf("organism should be destroyed at zero health")
	}
	if h.w.ApplyDamage(org, fixed.FromInt(1)) {
		t.Fatalf("damage on a destroyed organism")
	}
}

func TestDeleteCoreDestroysOrganism(t *testing.T) {
	h := newHarness(t)
	org := h.spawn(t, Vec2i{})
	destroyed := 0
	bus.On(h.w.Bus(), EventOrganismDestroyed, func(_ *bus.Envelope, _ OrganismDestroyed) { destroyed++ })
	if !h.w.DeleteEntity(org) || destroyed != 1 {
		t.Fatalf("deleting the core should destroy the organism")
	}
}
