// Cursor accessors for the singleton sync-token row.
package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/meshline/contactsync/pkg/types"
)

// Cursor returns the stored sync cursor. An absent row comes back as a
// zero Cursor, which reads as expired.
func (s *Store) Cursor() (types.Cursor, error) {
	var token, fetchedAt sql.NullString
	err := s.db.QueryRow("SELECT token, fetched_at FROM cursor WHERE id = 1").
		Scan(&token, &fetchedAt)
	if err == sql.ErrNoRows {
		return types.Cursor{}, nil
	}
	if err != nil {
		return types.Cursor{}, fmt.Errorf("reading cursor: %w", err)
	}
	return types.Cursor{
		Token:     token.String,
		FetchedAt: parseTime(fetchedAt),
	}, nil
}

// SetCursor replaces the singleton cursor row with the given token and
// issuance time.
func (s *Store) SetCursor(token string, fetchedAt time.Time) error {
	_, err := s.db.Exec(
		`INSERT INTO cursor (id, token, fetched_at) VALUES (1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET token = excluded.token, fetched_at = excluded.fetched_at`,
		token, formatTime(fetchedAt),
	)
	if err != nil {
		return fmt.Errorf("storing cursor: %w", err)
	}
	return nil
}
