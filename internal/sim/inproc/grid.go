// Package inproc holds in-process implementations of the engine's collaborators.
// They are safe for concurrent use so HTTP handlers can read them while the loop runs.
package inproc

import (
	"sort"
	"sync"

	"blobcraft.ai/internal/sim/world"
)

// Grid is a sparse spatial index of anchored entities.
type Grid struct {
	mu  sync.RWMutex
	at  map[world.Vec2i][]world.EntityID
	pos map[world.EntityID]world.Vec2i
}

func NewGrid() *Grid {
	return &Grid{at: map[world.Vec2i][]world.EntityID{}, pos: map[world.EntityID]world.Vec2i{}}
}

func (g *Grid) Anchor(id world.EntityID, p world.Vec2i) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if old, ok := g.pos[id]; ok {
		g.removeLocked(id, old)
	}
	g.pos[id] = p
	g.at[p] = append(g.at[p], id)
}

func (g *Grid) Unanchor(id world.EntityID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if p, ok := g.pos[id]; ok {
		g.removeLocked(id, p)
		delete(g.pos, id)
	}
}

func (g *Grid) removeLocked(id world.EntityID, p world.Vec2i) {
	ids := g.at[p]
	for i, v := range ids {
		if v == id {
			ids = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(ids) == 0 {
		delete(g.at, p)
		return
	}
	g.at[p] = ids
}

// TilesIntersecting returns occupied cells inside box in row-major order.
func (g *Grid) TilesIntersecting(box world.Box) []world.Vec2i {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []world.Vec2i
	area := (box.Max.X - box.Min.X + 1) * (box.Max.Y - box.Min.Y + 1)
	if area > len(g.at) {
		for p := range g.at {
			if box.Contains(p) {
				out = append(out, p)
			}
		}
		sort.Slice(out, func(i, j int) bool {
			if out[i].Y != out[j].Y {
				return out[i].Y < out[j].Y
			}
			return out[i].X < out[j].X
		})
		return out
	}
	for _, c := range box.Cells() {
		if len(g.at[c]) > 0 {
			out = append(out, c)
		}
	}
	return out
}

func (g *Grid) StructuresAt(p world.Vec2i) []world.EntityID {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]world.EntityID(nil), g.at[p]...)
}

func (g *Grid) Position(id world.EntityID) (world.Vec2i, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	p, ok := g.pos[id]
	return p, ok
}

func (g *Grid) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.pos)
}
