// Package store implements the durable link store on a single SQLite file.
package store

// Schema DDL. Migrations are append-only: later steps may add nullable
// columns or new tables, never drop or rewrite existing ones.
const (
	createLinks = `CREATE TABLE IF NOT EXISTS links (
    source_id TEXT NOT NULL UNIQUE,
    target_id TEXT NOT NULL UNIQUE,
    source_name TEXT,
    target_name TEXT,
    source_updated_at TEXT,
    target_updated_at TEXT
);`

	createCursor = `CREATE TABLE IF NOT EXISTS cursor (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    token TEXT,
    fetched_at TEXT
);`

	createSchemaVersion = `CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER NOT NULL
);`
)

// Index DDL for the name lookups used by the matching engine.
const (
	idxLinksSourceName = `CREATE INDEX IF NOT EXISTS idx_links_source_name ON links(source_name);`
	idxLinksTargetName = `CREATE INDEX IF NOT EXISTS idx_links_target_name ON links(target_name);`
)

// migrations lists every schema step in order. Step N brings the file to
// version N+1. Existing files replay only the steps beyond their recorded
// version.
var migrations = [][]string{
	{createLinks, createCursor, idxLinksSourceName, idxLinksTargetName},
}
