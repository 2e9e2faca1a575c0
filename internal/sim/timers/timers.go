// Package timers is a tick-ordered queue of delayed continuations.
//
// Every task may carry a guard id. Before a due task runs the queue asks the
// validator whether the guard is still alive; a dead guard skips the task
// (calling its OnSkip hook) instead of running it. There is no cancel API.
package timers

import "container/heap"

// Validator reports whether a guard id still refers to a live entity.
type Validator func(guard uint64) bool

type Task struct {
	Due    uint64
	Guard  uint64 // 0 means unguarded
	Run    func()
	OnSkip func()

	seq uint64
}

type Queue struct {
	h     taskHeap
	seq   uint64
	alive Validator
}

func New(alive Validator) *Queue {
	return &Queue{alive: alive}
}

// Schedule enqueues t. Tasks with equal Due run in scheduling order.
func (q *Queue) Schedule(t Task) {
	q.seq++
	t.seq = q.seq
	heap.Push(&q.h, &t)
}

// After schedules run at now+delay (delay 0 is bumped to 1 so it never runs in the current pass).
func (q *Queue) After(now, delay uint64, guard uint64, run func(), onSkip func()) {
	if delay == 0 {
		delay = 1
	}
	q.Schedule(Task{Due: now + delay, Guard: guard, Run: run, OnSkip: onSkip})
}

// RunDue runs every task due at or before now.
func (q *Queue) RunDue(now uint64) (ran, skipped int) {
	for q.h.Len() > 0 && q.h[0].Due <= now {
		t := heap.Pop(&q.h).(*Task)
		if t.Guard != 0 && q.alive != nil && !q.alive(t.Guard) {
			skipped++
			if t.OnSkip != nil {
				t.OnSkip()
			}
			continue
		}
		ran++
		if t.Run != nil {
			t.Run()
		}
	}
	return ran, skipped
}

func (q *Queue) Len() int { return q.h.Len() }

// Clear drops every pending task without running or skipping it.
func (q *Queue) Clear() { q.h = q.h[:0] }

type taskHeap []*Task

func (h taskHeap) Len() int { return len(h) }
func (h taskHeap) Less(i, j int) bool {
	if h[i].Due != h[j].Due {
		return h[i].Due < h[j].Due
	}
	return h[i].seq < h[j].seq
}
func (h taskHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *taskHeap) Push(x any)   { *h = append(*h, x.(*Task)) }
func (h *taskHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return t
}
