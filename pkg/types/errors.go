// Package types defines the entities, configuration, and standard errors
// shared by the contactsync components.
package types

import (
	"errors"
	"fmt"
)

// Sentinel errors returned across component boundaries. Callers check them
// with errors.Is.
var (
	// ErrNotFound indicates a link row or remote record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrLinkExists indicates an upsert would violate the 1:1 pairing
	// invariant (another row already claims the source or target id).
	ErrLinkExists = errors.New("conflicting link exists")

	// ErrCursorExpired indicates the stored sync cursor is absent, older
	// than CursorMaxAge, or rejected by the directory.
	ErrCursorExpired = errors.New("sync cursor expired")

	// ErrAmbiguousMatch indicates the matching engine found more than one
	// candidate and no decision was made.
	ErrAmbiguousMatch = errors.New("ambiguous match")

	// ErrUnnamedContact indicates a record without a usable name; such
	// records are reported and skipped, never synced.
	ErrUnnamedContact = errors.New("contact has no usable name")

	// ErrEmptyStore indicates a sync mode that needs an existing link
	// table was run before the initial sync.
	ErrEmptyStore = errors.New("link store is empty, run init first")

	// ErrAborted indicates the operator chose to abort at a prompt.
	ErrAborted = errors.New("aborted by user choice")

	// ErrInvalidConfig indicates a malformed or incomplete configuration.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// RemoteError describes a failed call against one of the two remote
// services. Retryable marks transient conditions (network, rate limit,
// 5xx) eligible for bounded backoff.
type RemoteError struct {
	Service   string // "directory" or "crm"
	Status    int    // HTTP status, 0 for transport failures
	Message   string
	Retryable bool
	Err       error
}

func (e *RemoteError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s request failed with status %d: %s", e.Service, e.Status, e.Message)
	}
	return fmt.Sprintf("%s request failed: %s", e.Service, e.Message)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// IsRetryable reports whether err is a transient remote error.
func IsRetryable(err error) bool {
	var re *RemoteError
	return errors.As(err, &re) && re.Retryable
}
