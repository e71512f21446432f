package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // Pure Go SQLite driver, registers as "sqlite".
)

// Embed migration SQL files for schema versioning.
//
//go:embed migrations/*.sql
var migrationsFS embed.FS

// walJournalSizeLimit bounds the WAL journal to 4 MiB; the kv table stays tiny.
const walJournalSizeLimit = 4194304

// SQLite implements KV on an embedded SQLite database with WAL mode.
// All values live in a single kv table managed by goose migrations.
type SQLite struct {
	db     *sql.DB
	logger *slog.Logger

	getStmt    *sql.Stmt
	setStmt    *sql.Stmt
	removeStmt *sql.Stmt
}

// Open creates a SQLite-backed KV store at dbPath, applying migrations and
// preparing statements. Use ":memory:" for tests.
func Open(dbPath string, logger *slog.Logger) (*SQLite, error) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Debug("opening kv database", "path", dbPath)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite: %w", err)
	}

	// Single writer: the store is shared by the credential store and the
	// queue, both of which rewrite whole values.
	db.SetMaxOpenConns(1)

	ctx := context.Background()

	if err := setPragmas(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	s := &SQLite{db: db, logger: logger}

	if err := s.prepareStatements(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: prepare statements: %w", err)
	}

	logger.Debug("kv database ready", "path", dbPath)

	return s, nil
}

// setPragmas configures SQLite for WAL mode and safety.
func setPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = FULL",
		fmt.Sprintf("PRAGMA journal_size_limit = %d", walJournalSizeLimit),
	}

	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("store: set pragma %q: %w", p, err)
		}
	}

	return nil
}

// runMigrations applies all pending schema migrations to the database.
// Uses the goose v3 Provider API (no global state, context-aware).
func runMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	// Strip the "migrations/" prefix so goose sees files at the root of the FS.
	subFS, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("store: creating migration sub-filesystem: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, subFS)
	if err != nil {
		return fmt.Errorf("store: creating migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("store: running migrations: %w", err)
	}

	for _, r := range results {
		logger.Debug("applied migration",
			slog.String("source", r.Source.Path),
			slog.Int64("duration_ms", r.Duration.Milliseconds()),
		)
	}

	return nil
}

// SQL for the kv table.
const (
	sqlGetValue = `SELECT value FROM kv WHERE key = ?`

	sqlSetValue = `INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`

	sqlRemoveValue = `DELETE FROM kv WHERE key = ?`
)

func (s *SQLite) prepareStatements(ctx context.Context) error {
	var err error

	if s.getStmt, err = s.db.PrepareContext(ctx, sqlGetValue); err != nil {
		return fmt.Errorf("prepare get: %w", err)
	}

	if s.setStmt, err = s.db.PrepareContext(ctx, sqlSetValue); err != nil {
		return fmt.Errorf("prepare set: %w", err)
	}

	if s.removeStmt, err = s.db.PrepareContext(ctx, sqlRemoveValue); err != nil {
		return fmt.Errorf("prepare remove: %w", err)
	}

	return nil
}

// Get returns the value for key and whether it exists.
func (s *SQLite) Get(key string) (string, bool, error) {
	var value string

	err := s.getStmt.QueryRow(key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}

	if err != nil {
		return "", false, fmt.Errorf("store: get %q: %w", key, err)
	}

	return value, true, nil
}

// Set writes the value for key, replacing any existing value.
func (s *SQLite) Set(key, value string) error {
	if _, err := s.setStmt.Exec(key, value); err != nil {
		return fmt.Errorf("store: set %q: %w", key, err)
	}

	return nil
}

// Remove deletes key. Removing a missing key is not an error.
func (s *SQLite) Remove(key string) error {
	if _, err := s.removeStmt.Exec(key); err != nil {
		return fmt.Errorf("store: remove %q: %w", key, err)
	}

	return nil
}

// Apply performs all sets and removes in a single transaction.
func (s *SQLite) Apply(sets map[string]string, removes []string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("store: begin apply: %w", err)
	}
	defer tx.Rollback()

	setStmt := tx.Stmt(s.setStmt)
	for key, value := range sets {
		if _, err := setStmt.Exec(key, value); err != nil {
			return fmt.Errorf("store: apply set %q: %w", key, err)
		}
	}

	removeStmt := tx.Stmt(s.removeStmt)
	for _, key := range removes {
		if _, err := removeStmt.Exec(key); err != nil {
			return fmt.Errorf("store: apply remove %q: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit apply: %w", err)
	}

	return nil
}

// Close closes the prepared statements and the database connection.
func (s *SQLite) Close() error {
	for _, stmt := range []*sql.Stmt{s.getStmt, s.setStmt, s.removeStmt} {
		if stmt != nil {
			_ = stmt.Close()
		}
	}

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("store: close database: %w", err)
	}

	return nil
}

// Compile-time interface check.
var _ KV = (*SQLite)(nil)
