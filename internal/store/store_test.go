// Unit tests for the link store: upsert semantics, the 1:1 pairing
// invariant, cursor storage, and reopening an existing file.
package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meshline/contactsync/pkg/types"
)

// setupStore opens a fresh store in a temp dir and closes it on cleanup.
func setupStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUpsertAndFind(t *testing.T) {
	s := setupStore(t)
	link := types.Link{
		SourceID:        "c1",
		TargetID:        "42",
		SourceName:      "John Smith",
		TargetName:      "John Smith",
		SourceUpdatedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		TargetUpdatedAt: time.Date(2026, 8, 1, 12, 5, 0, 0, time.UTC),
	}
	require.NoError(t, s.Upsert(link))

	got, err := s.FindBySourceID("c1")
	require.NoError(t, err)
	assert.Equal(t, link, got)

	got, err = s.FindByTargetID("42")
	require.NoError(t, err)
	assert.Equal(t, link, got)

	_, err = s.FindBySourceID("missing")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestUpsertUpdatesExistingRow(t *testing.T) {
	s := setupStore(t)
	link := types.Link{SourceID: "c1", TargetID: "42", SourceName: "Old Name"}
	require.NoError(t, s.Upsert(link))

	link.SourceName = "New Name"
	link.SourceUpdatedAt = time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.Upsert(link))

	got, err := s.FindBySourceID("c1")
	require.NoError(t, err)
	assert.Equal(t, "New Name", got.SourceName)
	assert.Equal(t, link.SourceUpdatedAt, got.SourceUpdatedAt)

	all, err := s.All()
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestUpsertRejectsConflictingTarget(t *testing.T) {
	s := setupStore(t)
	require.NoError(t, s.Upsert(types.Link{SourceID: "c1", TargetID: "42"}))

	// A second source must not claim the same target.
	err := s.Upsert(types.Link{SourceID: "c2", TargetID: "42"})
	assert.ErrorIs(t, err, types.ErrLinkExists)

	// The original pairing is untouched.
	got, err := s.FindByTargetID("42")
	require.NoError(t, err)
	assert.Equal(t, "c1", got.SourceID)
}

func TestFindByName(t *testing.T) {
	s := setupStore(t)
	require.NoError(t, s.Upsert(types.Link{SourceID: "c1", TargetID: "1", SourceName: "John Smith", TargetName: "John Smith"}))
	require.NoError(t, s.Upsert(types.Link{SourceID: "c2", TargetID: "2", SourceName: "John Smith", TargetName: "John A. Smith"}))
	require.NoError(t, s.Upsert(types.Link{SourceID: "c3", TargetID: "3", SourceName: "Jane Doe", TargetName: "Jane Doe"}))

	links, err := s.FindByName("John Smith")
	require.NoError(t, err)
	assert.Len(t, links, 2)

	links, err = s.FindByName("Nobody")
	require.NoError(t, err)
	assert.Empty(t, links)
}

func TestDelete(t *testing.T) {
	s := setupStore(t)
	link := types.Link{SourceID: "c1", TargetID: "42"}
	require.NoError(t, s.Upsert(link))
	require.NoError(t, s.Delete(link))

	_, err := s.FindBySourceID("c1")
	assert.ErrorIs(t, err, types.ErrNotFound)

	// Deleting again is not an error.
	require.NoError(t, s.Delete(link))
}

func TestCursorRoundTrip(t *testing.T) {
	s := setupStore(t)

	// Absent cursor reads as zero and expired.
	cur, err := s.Cursor()
	require.NoError(t, err)
	assert.True(t, cur.Expired(time.Now()))

	fetched := time.Date(2026, 8, 20, 9, 30, 0, 0, time.UTC)
	require.NoError(t, s.SetCursor("token-abc", fetched))

	cur, err = s.Cursor()
	require.NoError(t, err)
	assert.Equal(t, "token-abc", cur.Token)
	assert.Equal(t, fetched, cur.FetchedAt)
	assert.False(t, cur.Expired(fetched.Add(24*time.Hour)))
	assert.True(t, cur.Expired(fetched.Add(8*24*time.Hour)))

	// Replacing keeps a single row.
	require.NoError(t, s.SetCursor("token-def", fetched.Add(time.Hour)))
	cur, err = s.Cursor()
	require.NoError(t, err)
	assert.Equal(t, "token-def", cur.Token)
}

func TestRebuildAndEmpty(t *testing.T) {
	s := setupStore(t)
	empty, err := s.Empty()
	require.NoError(t, err)
	assert.True(t, empty)

	require.NoError(t, s.Upsert(types.Link{SourceID: "c1", TargetID: "42"}))
	require.NoError(t, s.SetCursor("tok", time.Now()))

	empty, err = s.Empty()
	require.NoError(t, err)
	assert.False(t, empty)

	require.NoError(t, s.Rebuild())
	empty, err = s.Empty()
	require.NoError(t, err)
	assert.True(t, empty)

	cur, err := s.Cursor()
	require.NoError(t, err)
	assert.Empty(t, cur.Token)
}

func TestReopenExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Upsert(types.Link{SourceID: "c1", TargetID: "42", SourceName: "John"}))
	require.NoError(t, s.Close())

	// Reopening replays no migrations and keeps the data.
	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.FindBySourceID("c1")
	require.NoError(t, err)
	assert.Equal(t, "42", got.TargetID)
}

func TestOneToOneInvariantAcrossRows(t *testing.T) {
	s := setupStore(t)
	require.NoError(t, s.Upsert(types.Link{SourceID: "c1", TargetID: "1"}))
	require.NoError(t, s.Upsert(types.Link{SourceID: "c2", TargetID: "2"}))
	require.NoError(t, s.Upsert(types.Link{SourceID: "c3", TargetID: "3"}))

	all, err := s.All()
	require.NoError(t, err)

	seenSource := map[string]bool{}
	seenTarget := map[string]bool{}
	for _, l := range all {
		assert.False(t, seenSource[l.SourceID], "duplicate source id %s", l.SourceID)
		assert.False(t, seenTarget[l.TargetID], "duplicate target id %s", l.TargetID)
		seenSource[l.SourceID] = true
		seenTarget[l.TargetID] = true
	}
}
