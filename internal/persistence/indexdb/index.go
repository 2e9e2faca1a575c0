package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"blobcraft.ai/internal/sim/catalogs"
	"blobcraft.ai/internal/sim/tuning"
	"blobcraft.ai/internal/sim/world"
)

type Dialect int

const (
	SQLite Dialect = iota + 1
	Postgres
)

func (d Dialect) String() string {
	switch d {
	case SQLite:
		return "sqlite"
	case Postgres:
		return "postgres"
	}
	return "unknown"
}

// Index is a queryable read model of engine events. The JSONL logs remain the source of truth;
// writes are queued and dropped when the writer falls behind.
type Index struct {
	db      *sql.DB
	dialect Dialect

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropped   atomic.Uint64
	written   atomic.Uint64
	failed    atomic.Uint64
	commitMax time.Duration
}

type Stats struct {
	Backend       string
	QueueDepth    int
	QueueCapacity int
	WrittenTotal  uint64
	DroppedTotal  uint64
	FailedTotal   uint64
}

type req struct {
	event world.EventEntry
	sync  chan struct{}
}

func OpenSQLite(path string) (*Index, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return open(db, SQLite)
}

// OpenPostgres connects through the pgx database/sql driver.
func OpenPostgres(ctx context.Context, dsn string) (*Index, error) {
	if dsn == "" {
		return nil, fmt.Errorf("empty postgres dsn")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return open(db, Postgres)
}

func open(db *sql.DB, d Dialect) (*Index, error) {
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	s := &Index{
		db:        db,
		dialect:   d,
		ch:        make(chan req, 65536),
		commitMax: time.Second,
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

// The schema is written in the subset sqlite and postgres share.
func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS events (
			world TEXT NOT NULL,
			tick BIGINT NOT NULL,
			seq BIGINT NOT NULL,
			kind TEXT NOT NULL,
			organism BIGINT NOT NULL,
			data_json TEXT NOT NULL,
			PRIMARY KEY (world, tick, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_events_organism_tick ON events(organism, tick);`,
		`CREATE INDEX IF NOT EXISTS idx_events_kind_tick ON events(kind, tick);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *Index) Dialect() Dialect { return s.dialect }

func (s *Index) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *Index) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		Backend:       s.dialect.String(),
		QueueDepth:    len(s.ch),
		QueueCapacity: cap(s.ch),
		WrittenTotal:  s.written.Load(),
		DroppedTotal:  s.dropped.Load(),
		FailedTotal:   s.failed.Load(),
	}
}

// WriteEvent implements world.EventSink. It never blocks the world loop.
func (s *Index) WriteEvent(e world.EventEntry) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	select {
	case s.ch <- req{event: e}:
	default:
		s.dropped.Add(1)
	}
	return nil
}

// Sync waits until everything queued so far is committed.
func (s *Index) Sync(ctx context.Context) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	done := make(chan struct{})
	select {
	case s.ch <- req{sync: done}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// UpsertCatalogs records the catalogs and tuning the engine runs with.
func (s *Index) UpsertCatalogs(ctx context.Context, cats *catalogs.Catalogs, tune tuning.Tuning) error {
	if s == nil || cats == nil {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	type kv struct {
		name   string
		digest string
		json   []byte
	}
	var rows []kv
	if b, err := json.Marshal(cats.Chems.ByID); err == nil {
		rows = append(rows, kv{name: "chems", digest: cats.Chems.Digest, json: b})
	}
	kinds := make([]catalogs.TileKind, 0, len(cats.Tiles.ByID))
	for _, id := range cats.KindIDs() {
		kinds = append(kinds, cats.Tiles.ByID[id])
	}
	if b, err := json.Marshal(kinds); err == nil {
		rows = append(rows, kv{name: "tiles", digest: cats.Tiles.Digest, json: b})
	}
	if b, err := json.Marshal(tune); err == nil {
		sum := sha256.Sum256(b)
		rows = append(rows, kv{name: "tuning", digest: hex.EncodeToString(sum[:]), json: b})
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, s.rebind(`INSERT INTO meta(key,value) VALUES('schema_version',?)
		ON CONFLICT(key) DO UPDATE SET value=excluded.value`), "1"); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, s.rebind(`INSERT INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)
		ON CONFLICT(name) DO UPDATE SET digest=excluded.digest, json=excluded.json, updated_at=excluded.updated_at`))
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, r.name, r.digest, string(r.json), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// rebind rewrites ? placeholders to $n for postgres.
func (s *Index) rebind(q string) string {
	if s.dialect != Postgres {
		return q
	}
	return rebindDollar(q)
}

func rebindDollar(q string) string {
	var b strings.Builder
	n := 0
	for i := 0; i < len(q); i++ {
		if q[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(q[i])
	}
	return b.String()
}

func (s *Index) loop() {
	ctx := context.Background()
	insertEvent, err := s.db.Prepare(s.rebind(`INSERT INTO events(world,tick,seq,kind,organism,data_json) VALUES(?,?,?,?,?,?)
		ON CONFLICT(world,tick,seq) DO NOTHING`))
	if err != nil {
		// Keep draining so producers never block; everything counts as failed.
		for r := range s.ch {
			if r.sync != nil {
				close(r.sync)
				continue
			}
			s.failed.Add(1)
		}
		return
	}
	defer insertEvent.Close()

	var (
		tx          *sql.Tx
		opCount     int
		lastCommit  = time.Now()
		commitEvery = 1000

		lastTick uint64
		seq      int64
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		n := opCount
		if err := tx.Commit(); err != nil {
			s.failed.Add(uint64(n))
		} else {
			s.written.Add(uint64(n))
		}
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	for r := range s.ch {
		if r.sync != nil {
			commit()
			close(r.sync)
			continue
		}
		e := r.event
		if e.Tick != lastTick {
			lastTick = e.Tick
			seq = 0
		}
		rowSeq := seq
		seq++

		begin()
		if tx == nil {
			s.failed.Add(1)
			continue
		}
		data, _ := json.Marshal(e.Data)
		if _, err := tx.Stmt(insertEvent).Exec(e.World, int64(e.Tick), rowSeq, e.Kind, int64(e.Organism), string(data)); err != nil {
			s.failed.Add(uint64(opCount) + 1)
			_ = tx.Rollback()
			tx = nil
			opCount = 0
			continue
		}
		opCount++
		if opCount >= commitEvery || time.Since(lastCommit) >= s.commitMax {
			commit()
		}
	}
	commit()
}
