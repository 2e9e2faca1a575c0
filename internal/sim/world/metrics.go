package world

import "time"

// WorldMetrics is a thread-safe read-only view of key engine signals.
// It is updated from the world loop goroutine and read from HTTP handlers/tests.
type WorldMetrics struct {
	Tick uint64 `json:"tick"`

	Organisms      int    `json:"organisms"`
	Tiles          int    `json:"tiles"`
	Entities       int    `json:"entities"`
	Sessions       int    `json:"sessions"`
	FactionMembers int    `json:"faction_members"`
	PendingTimers  int    `json:"pending_timers"`
	ResetTotal     uint64 `json:"reset_total"`

	Requests      int `json:"requests"`
	TimersRan     int `json:"timers_ran"`
	TimersSkipped int `json:"timers_skipped"`
	Deleted       int `json:"deleted"`

	QueueDepth int     `json:"queue_depth"`
	StepMS     float64 `json:"step_ms"`
}

type stepStats struct {
	requests      int
	timersRan     int
	timersSkipped int
	deleted       int
	dur           time.Duration
}

func (w *World) Metrics() WorldMetrics {
	if w == nil {
		return WorldMetrics{}
	}
	m, ok := w.metrics.Load().(WorldMetrics)
	if !ok {
		return WorldMetrics{}
	}
	return m
}

func (w *World) publishMetrics(tick uint64, st stepStats) {
	tiles := 0
	for _, o := range w.organisms {
		tiles += o.tiles.Len()
	}
	w.metrics.Store(WorldMetrics{
		Tick:           tick,
		Organisms:      len(w.organisms),
		Tiles:          tiles,
		Entities:       len(w.entities),
		Sessions:       len(w.sessions),
		FactionMembers: w.faction.Len(),
		PendingTimers:  w.timers.Len(),
		ResetTotal:     w.resets,
		Requests:       st.requests,
		TimersRan:      st.timersRan,
		TimersSkipped:  st.timersSkipped,
		Deleted:        st.deleted,
		QueueDepth:     len(w.reqs),
		StepMS:         float64(st.dur.Microseconds()) / 1000,
	})
}
