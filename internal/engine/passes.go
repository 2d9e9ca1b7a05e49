// The three forward passes: initial pairing, full reconciliation, and
// the incremental delta driven by the directory's sync cursor.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/meshline/contactsync/internal/match"
	"github.com/meshline/contactsync/pkg/types"
)

// RunInitial wipes the link store and pairs the two contact sets from
// scratch. Matching runs in two phases so that unambiguous pairs never
// depend on resolver answers: automatic links first, then everything the
// resolver has to decide.
func (e *Engine) RunInitial(ctx context.Context) error {
	e.stats.begin()
	defer e.stats.finish()

	if err := e.store.Rebuild(); err != nil {
		return err
	}
	e.linkedTargets = map[string]bool{}

	sources, token, err := e.dir.ListAll(ctx)
	if err != nil {
		return err
	}
	if err := e.loadTargets(ctx); err != nil {
		return err
	}
	e.log.Info().Int("sources", len(sources)).Int("targets", len(e.targets)).
		Msg("starting initial pairing")

	// Phase one: link every source whose match is unambiguous.
	var undecided []types.Contact
	for _, source := range sources {
		if e.skippable(source) {
			continue
		}
		linked, err := e.tryAutoLink(ctx, source)
		if err != nil {
			return e.fail(source, err)
		}
		if !linked {
			undecided = append(undecided, source)
		}
	}

	// Phase two: the resolver decides the rest.
	for _, source := range undecided {
		if err := e.retry(ctx, func() error { return e.pairSource(ctx, source) }); err != nil {
			if errors.Is(err, types.ErrAborted) {
				return err
			}
			if err := e.fail(source, err); err != nil {
				return err
			}
		}
	}

	return e.persistCursor(token)
}

// tryAutoLink pairs a source whose name matches exactly one unlinked CRM
// contact. It reports false when the resolver has to get involved.
func (e *Engine) tryAutoLink(ctx context.Context, source types.Contact) (bool, error) {
	if _, err := e.store.FindBySourceID(source.ID); err == nil {
		return true, nil
	} else if !errors.Is(err, types.ErrNotFound) {
		return false, err
	}

	result := match.Find(source, e.targets, func(id string) bool { return e.linkedTargets[id] })
	if result.Kind != match.AutoLinked {
		return false, nil
	}
	target, err := e.crm.Get(ctx, result.TargetID)
	if err != nil {
		return false, err
	}
	e.log.Info().Str("source_id", source.ID).Str("target_id", target.ID).
		Str("name", source.DisplayName()).Msg("matched existing crm contact")
	return true, e.retry(ctx, func() error { return e.pushContact(ctx, source, target) })
}

// RunFull reconciles every directory contact against the CRM and detects
// source-side deletions by comparing the listed id set against the link
// table. A fresh sync cursor is stored on success.
func (e *Engine) RunFull(ctx context.Context) error {
	e.stats.begin()
	defer e.stats.finish()

	if err := e.requireLinks(); err != nil {
		return err
	}
	if err := e.loadLinkedTargets(); err != nil {
		return err
	}

	sources, token, err := e.dir.ListAll(ctx)
	if err != nil {
		return err
	}
	e.log.Info().Int("sources", len(sources)).Msg("starting full pass")

	// Deletion detection runs against the unfiltered listing so label
	// filters never read as deletions.
	present := make(map[string]bool, len(sources))
	for _, s := range sources {
		present[s.ID] = true
	}
	links, err := e.store.All()
	if err != nil {
		return err
	}
	for _, link := range links {
		if present[link.SourceID] {
			continue
		}
		l := link
		if err := e.retry(ctx, func() error { return e.removeSource(ctx, l) }); err != nil {
			e.log.Error().Err(err).Str("source_id", link.SourceID).Msg("deletion propagation failed")
			e.stats.Errors++
		}
	}

	for _, source := range sources {
		if e.skippable(source) {
			continue
		}
		s := source
		if err := e.retry(ctx, func() error { return e.syncSource(ctx, s) }); err != nil {
			if errors.Is(err, types.ErrAborted) {
				return err
			}
			if err := e.fail(source, err); err != nil {
				return err
			}
		}
	}

	return e.persistCursor(token)
}

// RunDelta applies only the changes since the stored cursor. An absent,
// stale, or rejected cursor falls back to a full pass.
func (e *Engine) RunDelta(ctx context.Context) error {
	e.stats.begin()

	if err := e.requireLinks(); err != nil {
		return err
	}
	cursor, err := e.store.Cursor()
	if err != nil {
		return err
	}
	if cursor.Expired(time.Now()) {
		e.log.Info().Msg("sync cursor absent or stale, running full pass")
		return e.RunFull(ctx)
	}

	changed, token, err := e.dir.ListChanged(ctx, cursor.Token)
	if errors.Is(err, types.ErrCursorExpired) {
		e.log.Info().Msg("directory rejected sync cursor, running full pass")
		return e.RunFull(ctx)
	}
	if err != nil {
		return err
	}
	defer e.stats.finish()
	e.log.Info().Int("changed", len(changed)).Msg("starting delta pass")

	if err := e.loadLinkedTargets(); err != nil {
		return err
	}

	for _, source := range changed {
		if source.Deleted {
			if err := e.removeTombstone(ctx, source); err != nil {
				return err
			}
			continue
		}
		if e.skippable(source) {
			continue
		}
		s := source
		if err := e.retry(ctx, func() error { return e.syncSource(ctx, s) }); err != nil {
			if errors.Is(err, types.ErrAborted) {
				return err
			}
			if err := e.fail(source, err); err != nil {
				return err
			}
		}
	}

	return e.persistCursor(token)
}

// removeTombstone handles a deletion record from the incremental feed.
// Tombstones for never-linked contacts are ignored.
func (e *Engine) removeTombstone(ctx context.Context, source types.Contact) error {
	link, err := e.store.FindBySourceID(source.ID)
	if errors.Is(err, types.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return e.retry(ctx, func() error { return e.removeSource(ctx, link) })
}

// fail records a per-record failure and keeps the pass going. Only store
// failures abort the run; remote trouble with one record must not strand
// the rest.
func (e *Engine) fail(source types.Contact, err error) error {
	if errors.Is(err, types.ErrUnnamedContact) {
		e.stats.Skipped++
		e.log.Warn().Str("source_id", source.ID).Msg("contact has no usable name, skipped")
		return nil
	}
	var re *types.RemoteError
	if errors.As(err, &re) {
		e.stats.Errors++
		e.log.Error().Err(err).Str("source_id", source.ID).
			Str("name", source.DisplayName()).Msg("record sync failed")
		return nil
	}
	return fmt.Errorf("syncing %s: %w", source.ID, err)
}
