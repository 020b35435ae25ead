// Package content implements the external content store: a SQLite-backed,
// content-addressed blob table that holds offloaded packet payloads.
//
// Writes are idempotent. The blob id is a domain-separated SHA-256 of the
// payload bytes, so re-storing identical content is a no-op and a packet's
// external ref can be re-derived from its payload alone.
package content

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/nodeflow/internal/packet"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added index on blobs.kind
const currentSchemaVersion = 1

// refPrefix is the path prefix of external refs minted by this store.
const refPrefix = "content/"

// ErrNotFound is returned by Get when no blob has the given id.
var ErrNotFound = errors.New("content: blob not found")

// Store provides durable storage for offloaded packet content.
// Uses SQLite with WAL mode for concurrent read access.
type Store struct {
	db  *sql.DB
	now func() int64
}

// Option configures a Store.
type Option func(*Store)

// WithNow overrides the blob creation timestamp source (Unix milliseconds).
func WithNow(now func() int64) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Open creates or opens the content database at the given path.
// Applies required pragmas and migrations automatically.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode (balance durability/performance)
//   - 5-second busy timeout for lock contention
//   - Foreign key enforcement
//
// This function is idempotent - safe to call multiple times.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	s := &Store{
		db:  db,
		now: func() int64 { return time.Now().UnixMilli() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Put stores payload bytes under their content id and returns the external
// ref. Identical content stores once: a conflicting insert is a no-op and
// the existing blob's ref is returned.
//
// Implements the engine's content store contract.
func (s *Store) Put(ctx context.Context, kind string, data []byte) (packet.ContentRef, error) {
	id := packet.ContentID(data)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO blobs (id, kind, size, data, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING
	`, id, kind, len(data), data, s.now())
	if err != nil {
		return packet.ContentRef{}, fmt.Errorf("put blob %s: %w", id, err)
	}

	return packet.ContentRef{
		Path: refPrefix + id,
		Size: int64(len(data)),
	}, nil
}

// Get returns the payload bytes for a content id or ref path.
// Returns ErrNotFound when no blob has that id.
func (s *Store) Get(ctx context.Context, idOrPath string) ([]byte, error) {
	id := strings.TrimPrefix(idOrPath, refPrefix)

	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM blobs WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get blob %s: %w", id, err)
	}
	return data, nil
}

// Has reports whether a blob with the given id or ref path exists.
func (s *Store) Has(ctx context.Context, idOrPath string) (bool, error) {
	id := strings.TrimPrefix(idOrPath, refPrefix)

	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM blobs WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat blob %s: %w", id, err)
	}
	return true, nil
}

// Stats summarizes the stored blobs. Used by the inspect command.
type Stats struct {
	Blobs     int64 `json:"blobs"`
	TotalSize int64 `json:"total_size"`
}

// Stats returns blob count and total payload bytes.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(size), 0) FROM blobs`,
	).Scan(&st.Blobs, &st.TotalSize)
	if err != nil {
		return Stats{}, fmt.Errorf("stat blobs: %w", err)
	}
	return st, nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// This function is idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
		version = 1
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// migrateToV1 adds the kind index for databases created before v1.
// New databases get it from schema.sql directly.
func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_blobs_kind ON blobs(kind)`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
