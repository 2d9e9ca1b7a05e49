package match

import (
	"github.com/meshline/contactsync/pkg/types"
)

// Kind is the outcome category of a candidate search.
type Kind int

const (
	// NoMatch means no CRM contact shares the name; a new record should
	// be created.
	NoMatch Kind = iota

	// AutoLinked means exactly one unlinked candidate matched and can be
	// paired without a decision.
	AutoLinked

	// NeedsDecision means several candidates matched, or the only match
	// is already linked to a different source; a resolver must decide.
	NeedsDecision
)

// Result is the outcome of matching one directory contact against the CRM
// contact set.
type Result struct {
	Kind Kind

	// TargetID is set for AutoLinked.
	TargetID string

	// Candidates is set for NeedsDecision: every name-matching CRM
	// contact, linked or not, in listing order.
	Candidates []types.Contact
}

// Find matches one unlinked directory contact against the given CRM
// contacts. isLinked reports whether a CRM id is already paired with some
// source record.
func Find(source types.Contact, targets []types.Contact, isLinked func(targetID string) bool) Result {
	sourceNorm := Normalize(source.DisplayName())
	sourceTokens := Tokens(source.DisplayName())
	if sourceNorm == "" {
		return Result{Kind: NoMatch}
	}

	var candidates []types.Contact
	var unlinked []types.Contact
	for _, target := range targets {
		targetName := target.DisplayName()
		if Normalize(targetName) != sourceNorm && !tokensOverlap(sourceTokens, Tokens(targetName)) {
			continue
		}
		candidates = append(candidates, target)
		if !isLinked(target.ID) {
			unlinked = append(unlinked, target)
		}
	}

	switch {
	case len(candidates) == 0:
		return Result{Kind: NoMatch}
	case len(candidates) == 1 && len(unlinked) == 1:
		return Result{Kind: AutoLinked, TargetID: unlinked[0].ID}
	default:
		return Result{Kind: NeedsDecision, Candidates: candidates}
	}
}
