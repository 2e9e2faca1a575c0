package timers

import (
	"reflect"
	"testing"
)

func TestRunDue_OrdersByDueThenSeq(t *testing.T) {
	q := New(nil)
	var got []string
	q.Schedule(Task{Due: 5, Run: func() { got = append(got, "a5") }})
	q.Schedule(Task{Due: 3, Run: func() { got = append(got, "b3") }})
	q.Schedule(Task{Due: 5, Run: func() { got = append(got, "c5") }})

	if ran, _ := q.RunDue(2); ran != 0 {
		t.Fatalf("ran %d tasks before due", ran)
	}
	ran, skipped := q.RunDue(5)
	if ran != 3 || skipped != 0 {
		t.Fatalf("ran=%d skipped=%d", ran, skipped)
	}
	if !reflect.DeepEqual(got, []string{"b3", "a5", "c5"}) {
		t.Fatalf("order = %v", got)
	}
	if q.Len() != 0 {
		t.Fatalf("Len = %d", q.Len())
	}
}

func TestGuardSkipsDeadTargets(t *testing.T) {
	alive := map[uint64]bool{1: true}
	q := New(func(id uint64) bool { return alive[id] })

	var ran, skipped []uint64
	for _, id := range []uint64{1, 2} {
		id := id
		q.After(0, 1, id, func() { ran = append(ran, id) }, func() { skipped = append(skipped, id) })
	}
	q.RunDue(1)
	if !reflect.DeepEqual(ran, []uint64{1}) || !reflect.DeepEqual(skipped, []uint64{2}) {
		t.Fatalf("ran=%v skipped=%v", ran, skipped)
	}
}

func TestChainedContinuationRunsStrictlyLater(t *testing.T) {
	q := New(nil)
	var got []uint64
	var now uint64
	q.After(now, 2, 0, func() {
		got = append(got, now)
		q.After(now, 2, 0, func() { got = append(got, now) }, nil)
	}, nil)

	for now = 1; now <= 5; now++ {
		q.RunDue(now)
	}
	if !reflect.DeepEqual(got, []uint64{2, 4}) {
		t.Fatalf("ticks = %v, want [2 4]", got)
	}
}

func TestAfterZeroDelayBumped(t *testing.T) {
	q := New(nil)
	ran := false
	q.After(10, 0, 0, func() { ran = true }, nil)
	q.RunDue(10)
	if ran {
		t.Fatalf("zero-delay task ran in the scheduling tick")
	}
	q.RunDue(11)
	if !ran {
		t.Fatalf("task did not run next tick")
	}
}

func TestClear(t *testing.T) {
	q := New(nil)
	q.After(0, 1, 0, func() { t.Fatalf("cleared task ran") }, nil)
	q.Clear()
	q.RunDue(10)
}
