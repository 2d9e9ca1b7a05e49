// Package match finds CRM candidates for unlinked directory contacts by
// normalized name comparison, and resolves ambiguity through a
// DecisionResolver.
package match

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldCaser lower-cases with full Unicode case folding.
var foldCaser = cases.Fold()

// stripMarks removes diacritics by decomposing and dropping combining
// marks.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize case-folds a display name, strips diacritics and punctuation,
// and collapses whitespace, so "José  Álvarez-Gómez" and "jose alvarez
// gomez" compare equal.
func Normalize(name string) string {
	stripped, _, err := transform.String(stripMarks, name)
	if err != nil {
		stripped = name
	}
	folded := foldCaser.String(stripped)

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			b.WriteRune(r)
		case unicode.IsSpace(r) || unicode.IsPunct(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Tokens returns the normalized name split into its word set.
func Tokens(name string) map[string]bool {
	tokens := make(map[string]bool)
	for _, t := range strings.Fields(Normalize(name)) {
		tokens[t] = true
	}
	return tokens
}

// tokensOverlap reports whether one token set contains the other. Both
// sets must be non-empty; a superset/subset relation counts as a name
// match ("John Smith" vs "Dr John Smith").
func tokensOverlap(a, b map[string]bool) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	for t := range small {
		if !large[t] {
			return false
		}
	}
	return true
}
