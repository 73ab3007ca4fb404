// Package store implements the durable specification store.
//
// It uses SQLite (pure Go, modernc.org/sqlite) in WAL mode. Every mutation
// runs in a single transaction; reads that feed scoring run in one read
// transaction so they never observe a half-committed specification set.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/HendryAvila/specgate/internal/specs"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// newID is a package-level var so tests can produce predictable ids.
var newID = uuid.NewString

// ─── Store ───────────────────────────────────────────────────────────────────

// Store is the specification store backed by SQLite.
type Store struct {
	db    *sql.DB
	hooks storeHooks
}

type storeHooks struct {
	beginTx func(ctx context.Context, db *sql.DB) (*sql.Tx, error)
	commit  func(tx *sql.Tx) error
}

func (s *Store) beginTxHook(ctx context.Context) (*sql.Tx, error) {
	if s.hooks.beginTx != nil {
		return s.hooks.beginTx(ctx, s.db)
	}
	return s.db.BeginTx(ctx, nil)
}

func (s *Store) commitHook(tx *sql.Tx) error {
	if s.hooks.commit != nil {
		return s.hooks.commit(tx)
	}
	return tx.Commit()
}

// Open opens (or creates) the database at path and runs migrations.
// Pragmas travel in the DSN so every pooled connection gets them.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("store: create data dir: %w", err)
	}

	q := url.Values{}
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "synchronous(NORMAL)")
	q.Add("_pragma", "foreign_keys(1)")
	dsn := "file:" + path + "?" + q.Encode()

	db, err := openDB("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: migration: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ─── Migrations ──────────────────────────────────────────────────────────────

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS projects (
			id            TEXT PRIMARY KEY,
			name          TEXT NOT NULL DEFAULT '',
			current_phase TEXT NOT NULL DEFAULT 'discovery',
			created_at    TEXT NOT NULL,
			updated_at    TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS specifications (
			id            TEXT PRIMARY KEY,
			project_id    TEXT    NOT NULL REFERENCES projects(id),
			category      TEXT    NOT NULL,
			key           TEXT    NOT NULL,
			value         TEXT    NOT NULL,
			confidence    REAL    NOT NULL,
			source        TEXT    NOT NULL,
			is_current    INTEGER NOT NULL DEFAULT 1,
			supersedes    TEXT    NOT NULL DEFAULT '',
			superseded_by TEXT    NOT NULL DEFAULT '',
			created_at    TEXT    NOT NULL
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_specifications_current
			ON specifications(project_id, category, key) WHERE is_current = 1;
		CREATE INDEX IF NOT EXISTS idx_specifications_project
			ON specifications(project_id, category);

		CREATE TABLE IF NOT EXISTS conflicts (
			id                        TEXT PRIMARY KEY,
			project_id                TEXT    NOT NULL REFERENCES projects(id),
			category                  TEXT    NOT NULL,
			old_specification_id      TEXT    NOT NULL,
			proposed_key              TEXT    NOT NULL,
			proposed_value            TEXT    NOT NULL,
			proposed_confidence       REAL    NOT NULL,
			proposed_source           TEXT    NOT NULL,
			conflict_type             TEXT    NOT NULL,
			explanation               TEXT    NOT NULL DEFAULT '',
			judgment_confidence       REAL    NOT NULL DEFAULT 0,
			status                    TEXT    NOT NULL DEFAULT 'pending',
			resolution                TEXT    NOT NULL DEFAULT '',
			resolved_value            TEXT    NOT NULL DEFAULT '',
			resolved_specification_id TEXT    NOT NULL DEFAULT '',
			clarify_count             INTEGER NOT NULL DEFAULT 0,
			detected_at               TEXT    NOT NULL,
			resolved_at               TEXT    NOT NULL DEFAULT ''
		);

		CREATE UNIQUE INDEX IF NOT EXISTS idx_conflicts_pending
			ON conflicts(project_id, category) WHERE status = 'pending';
		CREATE INDEX IF NOT EXISTS idx_conflicts_project
			ON conflicts(project_id, detected_at);

		CREATE TABLE IF NOT EXISTS gate_decisions (
			id                 TEXT PRIMARY KEY,
			project_id         TEXT    NOT NULL REFERENCES projects(id),
			operation_type     TEXT    NOT NULL,
			path_proceed       TEXT    NOT NULL,
			path_remediate     TEXT    NOT NULL,
			blocking           INTEGER NOT NULL,
			would_block        INTEGER NOT NULL,
			severity           TEXT    NOT NULL,
			critical_gap_count INTEGER NOT NULL,
			risk_margin        REAL    NOT NULL,
			gaps               TEXT    NOT NULL,
			alternatives       TEXT    NOT NULL,
			overridden         INTEGER NOT NULL DEFAULT 0,
			decided_at         TEXT    NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_gate_decisions_project
			ON gate_decisions(project_id, decided_at);

		CREATE TABLE IF NOT EXISTS maturity_snapshots (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			project_id  TEXT NOT NULL REFERENCES projects(id),
			category    TEXT NOT NULL,
			score       REAL NOT NULL,
			reason      TEXT NOT NULL,
			computed_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_snapshots_project
			ON maturity_snapshots(project_id, category);

		CREATE TABLE IF NOT EXISTS phase_transitions (
			id               TEXT PRIMARY KEY,
			project_id       TEXT NOT NULL REFERENCES projects(id),
			from_phase       TEXT NOT NULL,
			to_phase         TEXT NOT NULL,
			overall_score    REAL NOT NULL,
			readiness        REAL NOT NULL,
			gate_decision_id TEXT NOT NULL DEFAULT '',
			transitioned_at  TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS architecture_issues (
			id          TEXT PRIMARY KEY,
			project_id  TEXT NOT NULL REFERENCES projects(id),
			summary     TEXT NOT NULL,
			status      TEXT NOT NULL DEFAULT 'open',
			reported_at TEXT NOT NULL,
			resolved_at TEXT NOT NULL DEFAULT ''
		);

		CREATE TABLE IF NOT EXISTS category_revisions (
			project_id TEXT    NOT NULL,
			category   TEXT    NOT NULL,
			revision   INTEGER NOT NULL,
			PRIMARY KEY (project_id, category)
		);
	`
	_, err := s.db.Exec(schema)
	return err
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// inTx runs fn inside a transaction, rolling back on any error.
func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.beginTxHook(ctx)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := s.commitHook(tx); err != nil {
		tx.Rollback()
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, specs.ErrNotFound)
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
