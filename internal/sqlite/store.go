// Package sqlite provides a SQLite-backed quad backend.
//
// Quads live in a single table ordered by an autoincrement seq column, so
// every read returns rows in first-insertion order. Writing a stored quad is
// a no-op and deleting a missing one is ignored. Nested queries are evaluated
// by the graph matcher over parameterized lookups.
//
// Databases run in WAL mode with synchronous=NORMAL and a five second busy
// timeout.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/perstore/internal/ir"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is stored in PRAGMA user_version.
//
//	1: quads and meta tables
const schemaVersion = 1

// pragmas run on every open. A single connection means they hold for every
// statement.
var pragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA busy_timeout = 5000",
}

// Backend stores quads in a SQLite database.
type Backend struct {
	db *sql.DB
}

// Open opens the database at path, creating it if needed. It refuses files
// written by a newer schema or a different quad encoding version.
func Open(path string) (*Backend, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	steps := []struct {
		name string
		run  func(*sql.DB) error
	}{
		{"connect", func(db *sql.DB) error { return db.Ping() }},
		{"pragmas", applyPragmas},
		{"schema", migrate},
		{"encoding version", checkEncodingVersion},
	}
	for _, step := range steps {
		if err := step.run(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", step.name, err)
		}
	}
	return &Backend{db: db}, nil
}

// Close closes the database.
func (b *Backend) Close() error {
	if b.db == nil {
		return nil
	}
	return b.db.Close()
}

func applyPragmas(db *sql.DB) error {
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%q: %w", p, err)
		}
	}
	return nil
}

// migrate creates missing tables and stamps user_version.
func migrate(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return err
	}

	var have int
	if err := db.QueryRow("PRAGMA user_version").Scan(&have); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}
	switch {
	case have > schemaVersion:
		return fmt.Errorf("database schema version %d is newer than supported version %d", have, schemaVersion)
	case have == schemaVersion:
		return nil
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return fmt.Errorf("write user_version: %w", err)
	}
	return nil
}

// checkEncodingVersion records the quad encoding version on first use and
// rejects databases written by an incompatible encoder.
func checkEncodingVersion(db *sql.DB) error {
	var stored string
	err := db.QueryRow(`SELECT value FROM meta WHERE key = 'encoding_version'`).Scan(&stored)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err := db.Exec(`INSERT INTO meta (key, value) VALUES ('encoding_version', ?)`, ir.EncodingVersion)
		if err != nil {
			return fmt.Errorf("record encoding version: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("read encoding version: %w", err)
	case stored != ir.EncodingVersion:
		return fmt.Errorf("database encoding version %q does not match %q", stored, ir.EncodingVersion)
	}
	return nil
}

// pragma reads the current value of a pragma.
func (b *Backend) pragma(name string) (string, error) {
	var value string
	err := b.db.QueryRow("PRAGMA " + name).Scan(&value)
	return value, err
}

// Len reports the number of stored quads.
func (b *Backend) Len(ctx context.Context) (int, error) {
	var n int
	if err := b.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM quads`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count quads: %w", err)
	}
	return n, nil
}

// Count reports how many quads have the given subject.
func (b *Backend) Count(ctx context.Context, subject string) (int, error) {
	var n int
	err := b.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM quads WHERE subject = ?`, subject).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count quads: %w", err)
	}
	return n, nil
}
