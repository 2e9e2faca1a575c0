package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"blobcraft.ai/internal/persistence/indexdb"
)

func openRuntimeIndex(ctx context.Context, worldDir string, disableDB bool) (*indexdb.Index, error) {
	if disableDB {
		return nil, nil
	}

	backend := strings.ToLower(strings.TrimSpace(os.Getenv("BC_INDEX_BACKEND")))
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "none", "off", "disabled":
		return nil, nil
	case "sqlite":
		return indexdb.OpenSQLite(filepath.Join(worldDir, "index", "world.sqlite"))
	case "postgres", "pg":
		dsn := strings.TrimSpace(os.Getenv("BC_POSTGRES_DSN"))
		if dsn == "" {
			return nil, fmt.Errorf("BC_INDEX_BACKEND=postgres but BC_POSTGRES_DSN is empty")
		}
		return indexdb.OpenPostgres(ctx, dsn)
	default:
		return nil, fmt.Errorf("unsupported BC_INDEX_BACKEND: %s", backend)
	}
}
