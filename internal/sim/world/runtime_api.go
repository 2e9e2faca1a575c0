package world

import (
	"context"
	"errors"

	"blobcraft.ai/internal/sim/world/logic/fixed"
)

type worldReq interface {
	apply(w *World)
}

type funcReq func(w *World)

func (f funcReq) apply(w *World) { f(w) }

// call runs fn on the loop goroutine at the next tick and waits for its result.
func call[T any](ctx context.Context, w *World, fn func(w *World) T) (T, error) {
	var zero T
	if w == nil || w.reqs == nil {
		return zero, errors.New("world not available")
	}
	resp := make(chan T, 1)
	req := funcReq(func(w *World) { resp <- fn(w) })

	select {
	case w.reqs <- req:
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-w.done:
		return zero, errWorldStopped
	}

	select {
	case r := <-resp:
		return r, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-w.done:
		return zero, errWorldStopped
	}
}

// RequestSpawn creates an organism core. A zero id means the spawn failed.
func (w *World) RequestSpawn(ctx context.Context, pos Vec2i, region string) (EntityID, error) {
	return call(ctx, w, func(w *World) EntityID {
		id, _ := w.SpawnOrganism(pos, region)
		return id
	})
}

func (w *World) RequestPlayerAttach(ctx context.Context, organism EntityID, user UserID) (bool, error) {
	return call(ctx, w, func(w *World) bool { return w.OnPlayerAttached(organism, user) })
}

func (w *World) RequestChangeChem(ctx context.Context, organism EntityID, next ChemType) (bool, error) {
	return call(ctx, w, func(w *World) bool { return w.ChangeChem(organism, next) })
}

type TransformRequest struct {
	Organism EntityID `json:"organism"`
	Old      EntityID `json:"old,omitempty"`
	Kind     string   `json:"kind"`
	Pos      Vec2i    `json:"pos"`
}

// RequestTransformTile runs the paid placement path. A zero id means it was refused.
func (w *World) RequestTransformTile(ctx context.Context, r TransformRequest) (EntityID, error) {
	return call(ctx, w, func(w *World) EntityID {
		id, _ := w.PlaceTile(r.Organism, r.Old, r.Kind, r.Pos)
		return id
	})
}

func (w *World) RequestProduce(ctx context.Context, organism, factory EntityID, kind string) (EntityID, error) {
	return call(ctx, w, func(w *World) EntityID {
		id, _ := w.ProduceFromFactory(organism, factory, kind)
		return id
	})
}

func (w *World) RequestDamage(ctx context.Context, organism EntityID, totalDamage float64) (bool, error) {
	return call(ctx, w, func(w *World) bool { return w.ApplyDamage(organism, fixed.FromFloat(totalDamage)) })
}

type ResetResult struct {
	Tick      uint64 `json:"tick"`
	Destroyed int    `json:"destroyed"`
}

// RequestReset asks the world loop goroutine to destroy every organism and clear the roster.
// It is safe to call from other goroutines (e.g. admin HTTP handlers).
func (w *World) RequestReset(ctx context.Context) (ResetResult, error) {
	return call(ctx, w, func(w *World) ResetResult {
		return ResetResult{Tick: w.tick.Load(), Destroyed: w.resetAll()}
	})
}

type StateView struct {
	World     string              `json:"world"`
	Tick      uint64              `json:"tick"`
	Organisms []OrganismView      `json:"organisms"`
	Sessions  []PossessionSession `json:"sessions,omitempty"`
	Faction   []FactionMember     `json:"faction,omitempty"`
}

func (w *World) RequestState(ctx context.Context) (StateView, error) {
	return call(ctx, w, func(w *World) StateView { return w.stateView() })
}

func (w *World) stateView() StateView {
	v := StateView{World: w.cfg.ID, Tick: w.tick.Load(), Sessions: w.Sessions(), Faction: w.faction.Members()}
	for _, id := range w.OrganismIDs() {
		o, _ := w.Organism(id)
		v.Organisms = append(v.Organisms, o)
	}
	return v
}
