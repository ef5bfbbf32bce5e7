// Package store persists encoded TestSession snapshots (the byte stream
// produced by internal/snapshot) keyed by session ID. It is the engine's
// only collaborator with an opinion about durability; the driver and
// codec packages never touch a database directly (core.v1 §5: "the
// persistence backend... must serialize access per session ID").
package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite
)

func nowUnix() int64 { return time.Now().Unix() }

// Driver names a supported SQL backend.
type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Backend is the persistence collaborator a TestSession snapshot is
// written to and read back from. Callers are responsible for serializing
// access per session ID (§5); Backend implementations do not serialize
// operations per session ID (MemoryBackend's mutex guards only its map).
type Backend interface {
	SaveSnapshot(ctx context.Context, sessionID string, data []byte) error
	LoadSnapshot(ctx context.Context, sessionID string) ([]byte, bool, error)
	DeleteSnapshot(ctx context.Context, sessionID string) error
}

// SQLBackend stores snapshots in a single table, keyed by session ID, over
// database/sql — sqlite via modernc.org/sqlite or postgres via the pgx
// stdlib driver, mirroring the teacher's driver-switch-plus-schema-ensure
// pattern.
type SQLBackend struct {
	db     *sql.DB
	driver Driver
}

// Open opens db (ensuring the snapshots table exists) for the given driver
// and DSN.
func Open(ctx context.Context, driver Driver, dsn string) (*SQLBackend, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite"
		if dsn == "" {
			dsn = "file:qtiengine.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"
		}
	case DriverPostgres:
		drvName = "pgx"
		if dsn == "" {
			dsn = "postgres://localhost:5432/qtiengine?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("store: unsupported driver %q", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("store: ping %s: %w", driver, err)
	}
	if _, err := db.ExecContext(ctx, schemaFor(driver)); err != nil {
		return nil, fmt.Errorf("store: ensure schema: %w", err)
	}
	return &SQLBackend{db: db, driver: driver}, nil
}

func schemaFor(driver Driver) string {
	if driver == DriverPostgres {
		return schemaPostgres
	}
	return schemaSQLite
}

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS test_session_snapshots (
  session_id TEXT PRIMARY KEY,
  data       BLOB NOT NULL,
  updated_at INTEGER NOT NULL
);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS test_session_snapshots (
  session_id TEXT PRIMARY KEY,
  data       BYTEA NOT NULL,
  updated_at BIGINT NOT NULL
);
`

func (b *SQLBackend) SaveSnapshot(ctx context.Context, sessionID string, data []byte) error {
	var stmt string
	switch b.driver {
	case DriverPostgres:
		stmt = `INSERT INTO test_session_snapshots (session_id, data, updated_at) VALUES ($1, $2, $3)
			ON CONFLICT (session_id) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`
	default:
		stmt = `INSERT INTO test_session_snapshots (session_id, data, updated_at) VALUES (?, ?, ?)
			ON CONFLICT (session_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`
	}
	_, err := b.db.ExecContext(ctx, stmt, sessionID, data, nowUnix())
	if err != nil {
		return fmt.Errorf("store: save snapshot %s: %w", sessionID, err)
	}
	return nil
}

func (b *SQLBackend) LoadSnapshot(ctx context.Context, sessionID string) ([]byte, bool, error) {
	q := `SELECT data FROM test_session_snapshots WHERE session_id = ?`
	if b.driver == DriverPostgres {
		q = `SELECT data FROM test_session_snapshots WHERE session_id = $1`
	}
	var data []byte
	err := b.db.QueryRowContext(ctx, q, sessionID).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("store: load snapshot %s: %w", sessionID, err)
	}
	return data, true, nil
}

func (b *SQLBackend) DeleteSnapshot(ctx context.Context, sessionID string) error {
	q := `DELETE FROM test_session_snapshots WHERE session_id = ?`
	if b.driver == DriverPostgres {
		q = `DELETE FROM test_session_snapshots WHERE session_id = $1`
	}
	if _, err := b.db.ExecContext(ctx, q, sessionID); err != nil {
		return fmt.Errorf("store: delete snapshot %s: %w", sessionID, err)
	}
	return nil
}

// MemoryBackend is an in-process Backend for tests and single-process
// demos; it never touches a database.
type MemoryBackend struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string][]byte)}
}

func (b *MemoryBackend) SaveSnapshot(_ context.Context, sessionID string, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	b.data[sessionID] = cp
	return nil
}

func (b *MemoryBackend) LoadSnapshot(_ context.Context, sessionID string) ([]byte, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, ok := b.data[sessionID]
	if !ok {
		return nil, false, nil
	}
	cp := make([]byte, len(d))
	copy(cp, d)
	return cp, true, nil
}

func (b *MemoryBackend) DeleteSnapshot(_ context.Context, sessionID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.data, sessionID)
	return nil
}
