package indexdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"
)

// RenderRow is the latest rendered image for one (username, shard) pair.
type RenderRow struct {
	Username   string
	Shard      string
	Path       string
	RenderedAt time.Time
	Rooms      int
	Resources  int
	Bytes      int64
}

// SQLiteIndex keeps one row per rendered image file. Writes go through a single goroutine
// so request handlers never wait on the database.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan RenderRow
	wg   sync.WaitGroup
	once sync.Once

	closed  atomic.Bool
	dropped atomic.Uint64
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
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
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan RenderRow, 1024),
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

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS renders (
			username TEXT NOT NULL,
			shard TEXT NOT NULL,
			path TEXT NOT NULL,
			rendered_at TEXT NOT NULL,
			rooms INTEGER NOT NULL,
			resources INTEGER NOT NULL,
			bytes INTEGER NOT NULL,
			PRIMARY KEY (username, shard)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_renders_rendered_at ON renders(rendered_at);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// RecordRender queues an upsert. Rows are dropped if the writer falls behind; the image
// files on disk remain the source of truth.
func (s *SQLiteIndex) RecordRender(r RenderRow) {
	if s == nil || s.closed.Load() {
		return
	}
	if r.RenderedAt.IsZero() {
		r.RenderedAt = time.Now()
	}
	select {
	case s.ch <- r:
	default:
		s.dropped.Add(1)
	}
}

// Dropped returns how many rows were discarded because the queue was full.
func (s *SQLiteIndex) Dropped() uint64 {
	if s == nil {
		return 0
	}
	return s.dropped.Load()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()
	upsert, err := s.db.PrepareContext(ctx, `INSERT INTO renders(username,shard,path,rendered_at,rooms,resources,bytes)
		VALUES(?,?,?,?,?,?,?)
		ON CONFLICT(username,shard) DO UPDATE SET
			path=excluded.path,
			rendered_at=excluded.rendered_at,
			rooms=excluded.rooms,
			resources=excluded.resources,
			bytes=excluded.bytes`)
	if err != nil {
		// Drain so Close does not block.
		for range s.ch {
		}
		return
	}
	defer upsert.Close()

	for r := range s.ch {
		_, _ = upsert.ExecContext(ctx,
			r.Username,
			r.Shard,
			r.Path,
			r.RenderedAt.UTC().Format(time.RFC3339Nano),
			r.Rooms,
			r.Resources,
			r.Bytes,
		)
	}
}

// List returns the most recently rendered rows first.
func (s *SQLiteIndex) List(ctx context.Context, limit int) ([]RenderRow, error) {
	return ListRenders(ctx, s.db, limit)
}

// ListRenders reads the renders table from any open handle (used by the admin tool).
func ListRenders(ctx context.Context, db *sql.DB, limit int) ([]RenderRow, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.QueryContext(ctx, `SELECT username,shard,path,rendered_at,rooms,resources,bytes
		FROM renders ORDER BY rendered_at DESC, username, shard LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RenderRow
	for rows.Next() {
		var (
			r  RenderRow
			at string
		)
		if err := rows.Scan(&r.Username, &r.Shard, &r.Path, &at, &r.Rooms, &r.Resources, &r.Bytes); err != nil {
			return nil, err
		}
		r.RenderedAt, _ = time.Parse(time.RFC3339Nano, at)
		out = append(out, r)
	}
	return out, rows.Err()
}
