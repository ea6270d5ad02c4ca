package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"github.com/Masterminds/semver/v3"
	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/firanno/internal/ir"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added idx_attachments_context
const currentSchemaVersion = 1

const metaIRVersion = "ir_version"

// IncompatibleVersionError is returned by Open when the database was written
// by an IR version with a different major number.
type IncompatibleVersionError struct {
	Stored  string
	Current string
}

func (e *IncompatibleVersionError) Error() string {
	return fmt.Sprintf("store written by IR version %s is incompatible with %s", e.Stored, e.Current)
}

// Store provides durable storage for interned annotations.
type Store struct {
	db *sql.DB
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas, migrations and the IR version check.
//
// This function is idempotent - safe to call multiple times.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time
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

	if err := checkIRVersion(db, ir.IRVersion); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// IRVersion returns the IR version recorded when the database was created.
func (s *Store) IRVersion(ctx context.Context) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, metaIRVersion).Scan(&v)
	if err != nil {
		return "", fmt.Errorf("read ir_version: %w", err)
	}
	return v, nil
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
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// migrateToV1 adds the per-context attachment index for databases created
// before it was part of schema.sql.
func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_attachments_context
		ON attachments(context_id, seq)
	`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

// checkIRVersion records current on a new database, or verifies that the
// recorded version shares current's major version.
func checkIRVersion(db *sql.DB, current string) error {
	cur, err := semver.NewVersion(current)
	if err != nil {
		return fmt.Errorf("parse current IR version %q: %w", current, err)
	}

	var stored string
	err = db.QueryRow(`SELECT value FROM meta WHERE key = ?`, metaIRVersion).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		if _, err := db.Exec(`INSERT INTO meta (key, value) VALUES (?, ?)`, metaIRVersion, cur.String()); err != nil {
			return fmt.Errorf("record ir_version: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("read ir_version: %w", err)
	}

	storedVer, err := semver.NewVersion(stored)
	if err != nil {
		return fmt.Errorf("parse stored IR version %q: %w", stored, err)
	}
	compatible, err := semver.NewConstraint(fmt.Sprintf("^%d.0.0", cur.Major()))
	if err != nil {
		return fmt.Errorf("build version constraint: %w", err)
	}
	if !compatible.Check(storedVer) {
		return &IncompatibleVersionError{Stored: stored, Current: current}
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
