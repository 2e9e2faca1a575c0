package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"testing"

	persistlog "blobcraft.ai/internal/persistence/log"
	"blobcraft.ai/internal/sim/world"
)

func TestDumpEventsFilters(t *testing.T) {
	dir := t.TempDir()
	l := persistlog.NewEventLogger(dir)
	for i, kind := range []string{"RESOURCE_CHANGED", "ORGANISM_DESTROYED", "RESOURCE_CHANGED", "RESOURCE_CHANGED"} {
		org := world.EntityID(1)
		if i == 2 {
			org = 7
		}
		if err := l.WriteEvent(world.EventEntry{Tick: uint64(i + 1), World: "w", Kind: kind, Organism: org}); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	tests := []struct {
		name  string
		f     eventFilter
		limit int
		ticks []uint64
	}{
		{"all", eventFilter{}, 0, []uint64{1, 2, 3, 4}},
		{"kind", eventFilter{Kind: "resource_changed"}, 0, []uint64{1, 3, 4}},
		{"organism", eventFilter{Kind: "RESOURCE_CHANGED", Organism: 1}, 0, []uint64{1, 4}},
		{"range", eventFilter{FromTick: 2, ToTick: 3}, 0, []uint64{2, 3}},
		{"limit", eventFilter{}, 2, []uint64{1, 2}},
	}
	for _, tc := range tests {
		var buf bytes.Buffer
		n, err := dumpEvents(&buf, dir, tc.f, tc.limit)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		var ticks []uint64
		sc := bufio.NewScanner(&buf)
		for sc.Scan() {
			var e world.EventEntry
			if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
				t.Fatalf("%s: decode: %v", tc.name, err)
			}
			ticks = append(ticks, e.Tick)
		}
		if n != len(tc.ticks) || len(ticks) != len(tc.ticks) {
			t.Fatalf("%s: n=%d ticks=%v want %v", tc.name, n, ticks, tc.ticks)
		}
		for i := range ticks {
			if ticks[i] != tc.ticks[i] {
				t.Fatalf("%s: ticks=%v want %v", tc.name, ticks, tc.ticks)
			}
		}
	}
}

func TestDumpEventsEmptyWorld(t *testing.T) {
	var buf bytes.Buffer
	n, err := dumpEvents(&buf, t.TempDir(), eventFilter{}, 0)
	if err != nil || n != 0 || buf.Len() != 0 {
		t.Fatalf("n=%d err=%v out=%q", n, err, buf.String())
	}
}
