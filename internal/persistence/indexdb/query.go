package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"blobcraft.ai/internal/sim/world"
)

type Filter struct {
	World    string
	Kind     string
	Organism world.EntityID
	FromTick uint64
	Limit    int
}

// Events returns matching events ordered by tick then sequence.
func (s *Index) Events(ctx context.Context, f Filter) ([]world.EventEntry, error) {
	var (
		where []string
		args  []any
	)
	if f.World != "" {
		where = append(where, "world = ?")
		args = append(args, f.World)
	}
	if f.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, f.Kind)
	}
	if f.Organism != 0 {
		where = append(where, "organism = ?")
		args = append(args, int64(f.Organism))
	}
	if f.FromTick > 0 {
		where = append(where, "tick >= ?")
		args = append(args, int64(f.FromTick))
	}
	q := "SELECT world, tick, kind, organism, data_json FROM events"
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY tick, seq"
	limit := f.Limit
	if limit <= 0 || limit > 10000 {
		limit = 1000
	}
	q += " LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, s.rebind(q), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []world.EventEntry
	for rows.Next() {
		var (
			e        world.EventEntry
			tick     int64
			organism int64
			data     string
		)
		if err := rows.Scan(&e.World, &tick, &e.Kind, &organism, &data); err != nil {
			return nil, err
		}
		e.Tick = uint64(tick)
		e.Organism = world.EntityID(organism)
		if data != "" && data != "null" {
			if err := json.Unmarshal([]byte(data), &e.Data); err != nil {
				return nil, err
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type KindCount struct {
	Kind  string
	Count int64
}

func (s *Index) CountByKind(ctx context.Context) ([]KindCount, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT kind, COUNT(*) FROM events GROUP BY kind ORDER BY kind`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []KindCount
	for rows.Next() {
		var kc KindCount
		if err := rows.Scan(&kc.Kind, &kc.Count); err != nil {
			return nil, err
		}
		out = append(out, kc)
	}
	return out, rows.Err()
}

// CatalogDigest returns the recorded digest of a catalog ("chems", "tiles", "tuning").
func (s *Index) CatalogDigest(ctx context.Context, name string) (string, bool, error) {
	var digest string
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT digest FROM catalogs WHERE name = ?`), name).Scan(&digest)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return digest, true, nil
}
