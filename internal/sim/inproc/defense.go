package inproc

import (
	"sync"

	"blobcraft.ai/internal/sim/world"
)

// Defense records the damage modifier and explosion resistance of each entity.
type Defense struct {
	mu         sync.Mutex
	profile    map[world.EntityID]string
	resistance map[world.EntityID]float64
}

func NewDefense() *Defense {
	return &Defense{profile: map[world.EntityID]string{}, resistance: map[world.EntityID]float64{}}
}

func (d *Defense) SetDamageProfile(id world.EntityID, profile string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.profile[id] = profile
}

func (d *Defense) SetExplosionResistance(id world.EntityID, f float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resistance[id] = f
}

func (d *Defense) Profile(id world.EntityID) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.profile[id]
	return p, ok
}

// Resistance is the explosion damage coefficient; untouched entities take full damage (1).
func (d *Defense) Resistance(id world.EntityID) float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if r, ok := d.resistance[id]; ok {
		return r
	}
	return 1
}
