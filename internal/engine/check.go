// Consistency check: a read-only comparison of the link store against
// both remote contact sets.
package engine

import (
	"context"

	"github.com/meshline/contactsync/pkg/types"
)

// Report is the outcome of a consistency check. It is purely descriptive;
// the check never mutates anything.
type Report struct {
	// Counts of the three populations.
	Links   int
	Sources int
	Targets int

	// SourceMissing are link rows whose directory contact no longer
	// exists; TargetMissing are rows whose CRM contact is gone.
	SourceMissing []types.Link
	TargetMissing []types.Link

	// OrphanSources are directory contacts without a link row;
	// OrphanTargets are CRM contacts without one.
	OrphanSources []types.Contact
	OrphanTargets []types.Contact
}

// Clean reports whether the three populations are fully consistent.
func (r Report) Clean() bool {
	return len(r.SourceMissing) == 0 && len(r.TargetMissing) == 0 &&
		len(r.OrphanSources) == 0 && len(r.OrphanTargets) == 0
}

// RunCheck compares the link store against both remote listings and
// reports every inconsistency it finds.
func (e *Engine) RunCheck(ctx context.Context) (Report, error) {
	e.stats.begin()
	defer e.stats.finish()

	links, err := e.store.All()
	if err != nil {
		return Report{}, err
	}
	sources, _, err := e.dir.ListAll(ctx)
	if err != nil {
		return Report{}, err
	}
	if err := e.loadTargets(ctx); err != nil {
		return Report{}, err
	}

	report := Report{Links: len(links), Sources: len(sources), Targets: len(e.targets)}

	sourceIDs := make(map[string]bool, len(sources))
	for _, s := range sources {
		sourceIDs[s.ID] = true
	}
	targetIDs := make(map[string]bool, len(e.targets))
	for _, t := range e.targets {
		targetIDs[t.ID] = true
	}
	linkedSources := make(map[string]bool, len(links))
	linkedTargets := make(map[string]bool, len(links))
	for _, l := range links {
		linkedSources[l.SourceID] = true
		linkedTargets[l.TargetID] = true
		if !sourceIDs[l.SourceID] {
			report.SourceMissing = append(report.SourceMissing, l)
		}
		if !targetIDs[l.TargetID] {
			report.TargetMissing = append(report.TargetMissing, l)
		}
	}
	for _, s := range sources {
		if !linkedSources[s.ID] && !s.Name.Empty() {
			report.OrphanSources = append(report.OrphanSources, s)
		}
	}
	for _, t := range e.targets {
		if !linkedTargets[t.ID] {
			report.OrphanTargets = append(report.OrphanTargets, t)
		}
	}

	e.log.Info().
		Int("links", report.Links).
		Int("source_missing", len(report.SourceMissing)).
		Int("target_missing", len(report.TargetMissing)).
		Int("orphan_sources", len(report.OrphanSources)).
		Int("orphan_targets", len(report.OrphanTargets)).
		Msg("consistency check finished")
	return report, nil
}
