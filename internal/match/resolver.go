// DecisionResolver implementations: interactive operator prompts and the
// fixed unattended policy.
package match

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/meshline/contactsync/pkg/types"
)

// DecisionKind is what to do with an unlinked contact after matching.
type DecisionKind int

const (
	// DecisionSkip leaves the record untouched this run.
	DecisionSkip DecisionKind = iota

	// DecisionLink pairs the record with an existing CRM contact.
	DecisionLink

	// DecisionCreate creates a new CRM contact for the record.
	DecisionCreate

	// DecisionAbort stops the whole run.
	DecisionAbort
)

// Decision is a resolver's verdict. TargetID is set for DecisionLink.
type Decision struct {
	Kind     DecisionKind
	TargetID string
}

// DecisionResolver answers the questions the reconciliation engine cannot
// decide on its own: which of several candidates to link, and whether a
// contact without a match should be created.
type DecisionResolver interface {
	// Resolve picks a candidate (or create/skip/abort) for a contact
	// with an ambiguous match.
	Resolve(source types.Contact, candidates []types.Contact) (Decision, error)

	// ConfirmCreate asks whether a contact with no match should be
	// created on the CRM.
	ConfirmCreate(source types.Contact) (Decision, error)
}

// Unattended is the fixed no-prompt policy: ambiguous matches are skipped
// (never guessed), unmatched contacts are created.
type Unattended struct{}

// Resolve always skips; the engine reports the skip as a warning.
func (Unattended) Resolve(types.Contact, []types.Contact) (Decision, error) {
	return Decision{Kind: DecisionSkip}, nil
}

// ConfirmCreate always creates.
func (Unattended) ConfirmCreate(types.Contact) (Decision, error) {
	return Decision{Kind: DecisionCreate}, nil
}

// Interactive prompts the operator on the terminal. It blocks for input
// with no timeout; cancellation is external.
type Interactive struct {
	In  io.Reader
	Out io.Writer

	// createAll is set once the operator answers "yes to all" and
	// suppresses further creation prompts.
	createAll bool

	reader *bufio.Reader
}

// NewInteractive creates a resolver reading choices from in and prompting
// on out.
func NewInteractive(in io.Reader, out io.Writer) *Interactive {
	return &Interactive{In: in, Out: out, reader: bufio.NewReader(in)}
}

// Resolve lists the candidates and asks the operator to pick one or create
// a new CRM contact.
func (r *Interactive) Resolve(source types.Contact, candidates []types.Contact) (Decision, error) {
	bold := color.New(color.Bold).SprintFunc()
	fmt.Fprintf(r.Out, "\nPossible pairing conflict for %s:\n", bold(source.DisplayName()))
	for i, c := range candidates {
		fmt.Fprintf(r.Out, "\t%d: link to %q (id %s)\n", i+1, c.DisplayName(), c.ID)
	}
	fmt.Fprintf(r.Out, "\t%d: create a new contact\n", len(candidates)+1)
	fmt.Fprintf(r.Out, "\t0: abort\n")

	choice, err := r.readChoice(len(candidates) + 1)
	if err != nil {
		return Decision{}, err
	}
	switch {
	case choice == 0:
		return Decision{Kind: DecisionAbort}, nil
	case choice == len(candidates)+1:
		return Decision{Kind: DecisionCreate}, nil
	default:
		return Decision{Kind: DecisionLink, TargetID: candidates[choice-1].ID}, nil
	}
}

// ConfirmCreate asks before creating an unmatched contact, with a "yes to
// all" shortcut.
func (r *Interactive) ConfirmCreate(source types.Contact) (Decision, error) {
	if r.createAll {
		return Decision{Kind: DecisionCreate}, nil
	}
	fmt.Fprintf(r.Out, "\nNo existing contact found for %q.\n", source.DisplayName())
	fmt.Fprintln(r.Out, "\t0: abort")
	fmt.Fprintln(r.Out, "\t1: create a new contact")
	fmt.Fprintln(r.Out, "\t2: yes to all")

	choice, err := r.readChoice(2)
	if err != nil {
		return Decision{}, err
	}
	switch choice {
	case 0:
		return Decision{Kind: DecisionAbort}, nil
	case 2:
		r.createAll = true
	}
	return Decision{Kind: DecisionCreate}, nil
}

// readChoice reads numbers from the operator until one in [0, max] comes
// in.
func (r *Interactive) readChoice(max int) (int, error) {
	for {
		fmt.Fprint(r.Out, "Enter your choice (number only): ")
		line, err := r.reader.ReadString('\n')
		if err != nil && line == "" {
			return 0, fmt.Errorf("reading choice: %w", err)
		}
		n, convErr := strconv.Atoi(strings.TrimSpace(line))
		if convErr == nil && n >= 0 && n <= max {
			return n, nil
		}
		fmt.Fprintln(r.Out, color.YellowString("Bad input, please try again."))
		if err != nil {
			return 0, fmt.Errorf("reading choice: %w", err)
		}
	}
}
