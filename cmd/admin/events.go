package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	persistlog "blobcraft.ai/internal/persistence/log"
	"blobcraft.ai/internal/sim/world"
)

type eventFilter struct {
	Kind     string
	Organism uint64
	FromTick uint64
	ToTick   uint64
}

func (f eventFilter) match(e world.EventEntry) bool {
	if f.Kind != "" && !strings.EqualFold(f.Kind, e.Kind) {
		return false
	}
	if f.Organism != 0 && uint64(e.Organism) != f.Organism {
		return false
	}
	if e.Tick < f.FromTick {
		return false
	}
	if f.ToTick != 0 && e.Tick > f.ToTick {
		return false
	}
	return true
}

func eventsCmd(args []string) {
	fs := flag.NewFlagSet("events", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world id")
	kind := fs.String("kind", "", "event kind filter (e.g. ORGANISM_DESTROYED)")
	organism := fs.Uint64("organism", 0, "organism (core entity) filter")
	fromTick := fs.Uint64("from_tick", 0, "first tick (inclusive)")
	toTick := fs.Uint64("to_tick", 0, "last tick (inclusive, 0 = no limit)")
	limit := fs.Int("limit", 0, "stop after n events (0 = no limit)")
	_ = fs.Parse(args)

	if strings.TrimSpace(*worldID) == "" {
		fmt.Fprintln(os.Stderr, "missing -world")
		os.Exit(2)
	}
	worldDir := filepath.Join(*dataDir, "worlds", *worldID)
	f := eventFilter{Kind: *kind, Organism: *organism, FromTick: *fromTick, ToTick: *toTick}
	n, err := dumpEvents(os.Stdout, worldDir, f, *limit)
	if err != nil {
		fmt.Fprintln(os.Stderr, "events:", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "%d events\n", n)
}

// dumpEvents writes matching events as JSON lines, oldest segment first.
func dumpEvents(out io.Writer, worldDir string, f eventFilter, limit int) (int, error) {
	files, err := persistlog.EventFiles(worldDir)
	if err != nil {
		return 0, err
	}
	enc := json.NewEncoder(out)
	n := 0
	var writeErr error
	for _, path := range files {
		err := persistlog.ReadEvents(path, func(e world.EventEntry) bool {
			if !f.match(e) {
				return true
			}
			if writeErr = enc.Encode(e); writeErr != nil {
				return false
			}
			n++
			return limit <= 0 || n < limit
		})
		if err != nil {
			return n, err
		}
		if writeErr != nil {
			return n, writeErr
		}
		if limit > 0 && n >= limit {
			break
		}
	}
	return n, nil
}
