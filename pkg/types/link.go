// Link entity represents a persisted 1:1 pairing between a directory
// contact and a CRM contact.
package types

import "time"

// Link is one row of the link store. A row exists if and only if the
// reconciliation engine has established or confirmed the pairing; both ids
// are unique across all rows.
type Link struct {
	// SourceID is the directory-side record identifier.
	SourceID string

	// TargetID is the CRM-side record identifier.
	TargetID string

	// SourceName and TargetName are cached display names for logging and
	// matching. They are refreshed on every pass that touches the row.
	SourceName string
	TargetName string

	// SourceUpdatedAt is the last-seen directory modification time. Used
	// as the idempotence guard against redelivered unchanged records.
	SourceUpdatedAt time.Time

	// TargetUpdatedAt is the last-seen CRM modification time.
	TargetUpdatedAt time.Time
}

// Cursor is the singleton incremental-sync token handed out by the
// directory. Tokens expire; FetchedAt records issuance.
type Cursor struct {
	Token     string
	FetchedAt time.Time
}

// CursorMaxAge is how long a directory sync token stays usable. Older
// cursors are treated as expired and force a full pass.
const CursorMaxAge = 7 * 24 * time.Hour

// Expired reports whether the cursor is absent or older than CursorMaxAge.
func (c Cursor) Expired(now time.Time) bool {
	if c.Token == "" {
		return true
	}
	return now.Sub(c.FetchedAt) > CursorMaxAge
}
