// Link table accessors. All mutations run inside a transaction so an
// interrupted process never leaves a half-applied pairing.
package store

import (
	"database/sql"
	"fmt"

	"github.com/meshline/contactsync/pkg/types"
)

const linkColumns = "source_id, target_id, source_name, target_name, source_updated_at, target_updated_at"

// Upsert inserts or updates the row keyed by link.SourceID. It fails with
// types.ErrLinkExists if a different row already claims link.TargetID, so
// the 1:1 invariant holds across every code path.
func (s *Store) Upsert(link types.Link) error {
	if link.SourceID == "" || link.TargetID == "" {
		return fmt.Errorf("upserting link: source and target id required")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning upsert: %w", err)
	}
	defer tx.Rollback()

	var claimant string
	err = tx.QueryRow(
		"SELECT source_id FROM links WHERE target_id = ? AND source_id != ?",
		link.TargetID, link.SourceID,
	).Scan(&claimant)
	if err == nil {
		return fmt.Errorf("target %s already linked to source %s: %w",
			link.TargetID, claimant, types.ErrLinkExists)
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("checking target uniqueness: %w", err)
	}

	_, err = tx.Exec(
		`INSERT INTO links (`+linkColumns+`) VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(source_id) DO UPDATE SET
		     target_id = excluded.target_id,
		     source_name = excluded.source_name,
		     target_name = excluded.target_name,
		     source_updated_at = excluded.source_updated_at,
		     target_updated_at = excluded.target_updated_at`,
		link.SourceID, link.TargetID, link.SourceName, link.TargetName,
		formatTime(link.SourceUpdatedAt), formatTime(link.TargetUpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upserting link %s <-> %s: %w", link.SourceID, link.TargetID, err)
	}
	return tx.Commit()
}

// FindBySourceID returns the link row for a directory id, or
// types.ErrNotFound.
func (s *Store) FindBySourceID(sourceID string) (types.Link, error) {
	row := s.db.QueryRow("SELECT "+linkColumns+" FROM links WHERE source_id = ?", sourceID)
	return hydrateLink(row)
}

// FindByTargetID returns the link row for a CRM id, or types.ErrNotFound.
func (s *Store) FindByTargetID(targetID string) (types.Link, error) {
	row := s.db.QueryRow("SELECT "+linkColumns+" FROM links WHERE target_id = ?", targetID)
	return hydrateLink(row)
}

// FindByName returns every link row whose cached source or target name
// equals name. Zero, one, or many rows may match.
func (s *Store) FindByName(name string) ([]types.Link, error) {
	rows, err := s.db.Query(
		"SELECT "+linkColumns+" FROM links WHERE source_name = ? OR target_name = ?",
		name, name,
	)
	if err != nil {
		return nil, fmt.Errorf("querying links by name %q: %w", name, err)
	}
	defer rows.Close()
	return collectLinks(rows)
}

// Delete removes the row pairing the given ids. Deleting an absent row is
// not an error.
func (s *Store) Delete(link types.Link) error {
	_, err := s.db.Exec(
		"DELETE FROM links WHERE source_id = ? AND target_id = ?",
		link.SourceID, link.TargetID,
	)
	if err != nil {
		return fmt.Errorf("deleting link %s <-> %s: %w", link.SourceID, link.TargetID, err)
	}
	return nil
}

// All returns every link row ordered by source id.
func (s *Store) All() ([]types.Link, error) {
	rows, err := s.db.Query("SELECT " + linkColumns + " FROM links ORDER BY source_id")
	if err != nil {
		return nil, fmt.Errorf("querying all links: %w", err)
	}
	defer rows.Close()
	return collectLinks(rows)
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func hydrateLink(row scanner) (types.Link, error) {
	var link types.Link
	var sourceName, targetName, sourceUpdated, targetUpdated sql.NullString

	err := row.Scan(&link.SourceID, &link.TargetID, &sourceName, &targetName,
		&sourceUpdated, &targetUpdated)
	if err == sql.ErrNoRows {
		return types.Link{}, types.ErrNotFound
	}
	if err != nil {
		return types.Link{}, fmt.Errorf("scanning link row: %w", err)
	}

	link.SourceName = sourceName.String
	link.TargetName = targetName.String
	link.SourceUpdatedAt = parseTime(sourceUpdated)
	link.TargetUpdatedAt = parseTime(targetUpdated)
	return link, nil
}

func collectLinks(rows *sql.Rows) ([]types.Link, error) {
	var links []types.Link
	for rows.Next() {
		link, err := hydrateLink(rows)
		if err != nil {
			return nil, err
		}
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating link rows: %w", err)
	}
	return links, nil
}
