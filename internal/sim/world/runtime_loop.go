package world

import (
	"context"
	"time"
)

func (w *World) Run(ctx context.Context) error {
	defer close(w.done)
	interval := time.Second / time.Duration(w.cfg.Tuning.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var pending []worldReq
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case req := <-w.reqs:
			pending = append(pending, req)
		case <-ticker.C:
			w.step(pending)
			pending = pending[:0]
		}
	}
}

func (w *World) Stop() { w.stopOnce.Do(func() { close(w.stop) }) }

// StepOnce advances the world by a single tick using the same ordering as Run.
// It is intended for tests and must not be mixed with a running loop.
func (w *World) StepOnce() uint64 {
	tick := w.tick.Load()
	w.step(nil)
	return tick
}

// step applies queued requests, then due timers, then queued deletions.
func (w *World) step(reqs []worldReq) {
	start := time.Now()
	tick := w.tick.Load()

	for _, r := range reqs {
		r.apply(w)
	}
	ran, skipped := w.timers.RunDue(tick)
	deleted := w.flushDeletes()

	w.publishMetrics(tick, stepStats{
		requests:      len(reqs),
		timersRan:     ran,
		timersSkipped: skipped,
		deleted:       deleted,
		dur:           time.Since(start),
	})
	w.tick.Add(1)
}
