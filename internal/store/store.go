package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// timeFormat is how timestamps are stored in the file. UTC, second
// precision is enough for change detection on both remote services.
const timeFormat = "2006-01-02T15:04:05Z07:00"

// Store wraps the SQLite file holding the links table and the singleton
// cursor row. It is not safe for concurrent processes; overlapping runs
// are the caller's responsibility to prevent.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (or creates) the link store at path and applies any pending
// schema migrations.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite file: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Rebuild drops all rows and the cursor, leaving a fresh store. Used by
// the interactive initial sync before the link table is rebuilt.
func (s *Store) Rebuild() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning rebuild: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM links"); err != nil {
		return fmt.Errorf("clearing links: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM cursor"); err != nil {
		return fmt.Errorf("clearing cursor: %w", err)
	}
	return tx.Commit()
}

// Empty reports whether the store holds no link rows.
func (s *Store) Empty() (bool, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM links").Scan(&n); err != nil {
		return false, fmt.Errorf("counting links: %w", err)
	}
	return n == 0, nil
}

// migrate replays pending schema steps inside a single transaction per
// step, recording the reached version.
func (s *Store) migrate() error {
	if _, err := s.db.Exec(createSchemaVersion); err != nil {
		return fmt.Errorf("creating schema_version: %w", err)
	}

	var version int
	err := s.db.QueryRow("SELECT version FROM schema_version").Scan(&version)
	if err == sql.ErrNoRows {
		version = 0
		if _, err := s.db.Exec("INSERT INTO schema_version(version) VALUES (0)"); err != nil {
			return fmt.Errorf("initializing schema_version: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("reading schema_version: %w", err)
	}

	for i := version; i < len(migrations); i++ {
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning migration %d: %w", i+1, err)
		}
		for _, stmt := range migrations[i] {
			if _, err := tx.Exec(stmt); err != nil {
				tx.Rollback()
				return fmt.Errorf("applying migration %d: %w", i+1, err)
			}
		}
		if _, err := tx.Exec("UPDATE schema_version SET version = ?", i+1); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", i+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", i+1, err)
		}
	}
	return nil
}

// formatTime renders a timestamp for storage. Zero times store as NULL.
func formatTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(timeFormat)
}

// parseTime reads a stored timestamp. NULL and unparsable values come back
// as the zero time.
func parseTime(v sql.NullString) time.Time {
	if !v.Valid {
		return time.Time{}
	}
	t, err := time.Parse(timeFormat, v.String)
	if err != nil {
		return time.Time{}
	}
	return t
}
