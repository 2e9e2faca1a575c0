package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"blobcraft.ai/internal/persistence/indexdb"
	"blobcraft.ai/internal/sim/world"
)

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world id (required unless -db or -postgres)")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	pgDSN := fs.String("postgres", "", "postgres dsn (defaults to BC_POSTGRES_DSN when BC_INDEX_BACKEND=postgres)")
	kind := fs.String("kind", "", "event kind filter")
	organism := fs.Uint64("organism", 0, "organism filter")
	fromTick := fs.Uint64("from_tick", 0, "first tick (inclusive)")
	limit := fs.Int("limit", 20, "result limit")
	_ = fs.Parse(args)

	q := "counts"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	dsn := strings.TrimSpace(*pgDSN)
	if dsn == "" && strings.EqualFold(os.Getenv("BC_INDEX_BACKEND"), "postgres") {
		dsn = strings.TrimSpace(os.Getenv("BC_POSTGRES_DSN"))
	}

	var (
		idx *indexdb.Index
		err error
	)
	if dsn != "" {
		idx, err = indexdb.OpenPostgres(ctx, dsn)
	} else {
		path := strings.TrimSpace(*dbPath)
		if path == "" {
			if strings.TrimSpace(*worldID) == "" {
				fmt.Fprintln(os.Stderr, "missing -world, -db or -postgres")
				os.Exit(2)
			}
			path = filepath.Join(*dataDir, "worlds", *worldID, "index", "world.sqlite")
		}
		if _, statErr := os.Stat(path); statErr != nil {
			fmt.Fprintln(os.Stderr, "open:", statErr)
			os.Exit(1)
		}
		idx, err = indexdb.OpenSQLite(path)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer idx.Close()

	enc := json.NewEncoder(os.Stdout)
	switch q {
	case "counts":
		counts, err := idx.CountByKind(ctx)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		for _, c := range counts {
			fmt.Printf("%-28s %d\n", c.Kind, c.Count)
		}
	case "events":
		evs, err := idx.Events(ctx, indexdb.Filter{
			World:    *worldID,
			Kind:     *kind,
			Organism: world.EntityID(*organism),
			FromTick: *fromTick,
			Limit:    *limit,
		})
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			os.Exit(1)
		}
		for _, e := range evs {
			_ = enc.Encode(e)
		}
	case "catalogs":
		for _, name := range []string{"chems", "tiles", "tuning"} {
			d, ok, err := idx.CatalogDigest(ctx, name)
			if err != nil {
				fmt.Fprintln(os.Stderr, "query:", err)
				os.Exit(1)
			}
			if !ok {
				d = "-"
			}
			fmt.Printf("%-8s %s\n", name, d)
		}
	default:
		fmt.Fprintln(os.Stderr, "unknown query (use counts|events|catalogs):", q)
		os.Exit(2)
	}
}
