package inproc

import (
	"sync"

	"blobcraft.ai/internal/sim/world"
)

// Round is a minimal round controller: a stage, per-region alert levels and
// an optional pending round end.
type Round struct {
	mu       sync.Mutex
	stage    world.Stage
	alerts   map[string]string
	endArmed bool
}

func NewRound() *Round {
	return &Round{alerts: map[string]string{}}
}

func (r *Round) CurrentStage() world.Stage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stage
}

func (r *Round) SetStage(s world.Stage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stage = s
}

func (r *Round) SetAlertLevel(region, level string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts[region] = level
}

func (r *Round) AlertLevel(region string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.alerts[region]
}

func (r *Round) ScheduleRoundEnd() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.endArmed = true
}

func (r *Round) CancelPendingRoundEnd() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.endArmed = false
}

func (r *Round) RoundEndPending() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.endArmed
}
