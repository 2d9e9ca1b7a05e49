// Package engine drives reconciliation between the contact directory and
// the CRM: the initial pairing pass, full and incremental forward passes,
// the reverse back-sync, and the read-only consistency check.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/meshline/contactsync/internal/crm"
	"github.com/meshline/contactsync/internal/directory"
	"github.com/meshline/contactsync/internal/match"
	"github.com/meshline/contactsync/internal/mapper"
	"github.com/meshline/contactsync/internal/store"
	"github.com/meshline/contactsync/pkg/types"
)

// Engine owns one sync run. It is not safe for concurrent use; runs are
// strictly sequential.
type Engine struct {
	store    *store.Store
	dir      *directory.Client
	crm      *crm.Client
	resolver match.DecisionResolver
	cfg      types.Config
	log      zerolog.Logger

	stats Stats

	// targets caches the full CRM listing within a run; the delta pass
	// fetches it lazily and only when an unlinked source shows up.
	targets       []types.Contact
	targetsLoaded bool

	// linkedTargets tracks which CRM ids are paired, kept in step with
	// the store so matching within one run sees fresh pairings.
	linkedTargets map[string]bool
}

// New creates an engine. Every run gets a fresh engine; state does not
// carry across runs.
func New(st *store.Store, dir *directory.Client, crmClient *crm.Client,
	resolver match.DecisionResolver, cfg types.Config, log zerolog.Logger) *Engine {
	return &Engine{
		store:    st,
		dir:      dir,
		crm:      crmClient,
		resolver: resolver,
		cfg:      cfg,
		log:      log.With().Str("run_id", uuid.NewString()).Logger(),
	}
}

// Stats returns the counters of the finished (or failed) run.
func (e *Engine) Stats() Stats {
	e.stats.DirectoryCalls = e.dir.APICalls()
	e.stats.CRMCalls = e.crm.APICalls()
	return e.stats
}

// requireLinks guards the non-initial modes against an empty store.
func (e *Engine) requireLinks() error {
	empty, err := e.store.Empty()
	if err != nil {
		return err
	}
	if empty {
		return types.ErrEmptyStore
	}
	return nil
}

// loadTargets fetches and caches the full CRM contact listing.
func (e *Engine) loadTargets(ctx context.Context) error {
	if e.targetsLoaded {
		return nil
	}
	targets, err := e.crm.ListAll(ctx)
	if err != nil {
		return err
	}
	e.targets = targets
	e.targetsLoaded = true
	return nil
}

// loadLinkedTargets seeds the in-run view of paired CRM ids from the
// store.
func (e *Engine) loadLinkedTargets() error {
	links, err := e.store.All()
	if err != nil {
		return err
	}
	e.linkedTargets = make(map[string]bool, len(links))
	for _, l := range links {
		e.linkedTargets[l.TargetID] = true
	}
	return nil
}

// syncSource reconciles one directory contact. Linked contacts are
// updated in place (skipped when unchanged); unlinked ones go through
// matching and the resolver.
func (e *Engine) syncSource(ctx context.Context, source types.Contact) error {
	link, err := e.store.FindBySourceID(source.ID)
	switch {
	case err == nil:
		return e.updateLinked(ctx, source, link)
	case errors.Is(err, types.ErrNotFound):
		return e.pairSource(ctx, source)
	default:
		return err
	}
}

// updateLinked pushes a changed directory contact onto its paired CRM
// contact. Unchanged records (same directory timestamp as last seen) are
// skipped without touching the CRM at all.
func (e *Engine) updateLinked(ctx context.Context, source types.Contact, link types.Link) error {
	if !link.SourceUpdatedAt.IsZero() && source.UpdatedAt.Equal(link.SourceUpdatedAt) {
		e.stats.Unchanged++
		e.log.Debug().Str("source_id", source.ID).Str("name", source.DisplayName()).
			Msg("unchanged, skipping")
		return nil
	}

	target, err := e.crm.Get(ctx, link.TargetID)
	if err != nil {
		if isRemoteNotFound(err) {
			// The paired CRM contact is gone; drop the stale row and pair
			// the source again from scratch.
			e.log.Warn().Str("source_id", source.ID).Str("target_id", link.TargetID).
				Msg("linked crm contact vanished, re-pairing")
			if err := e.store.Delete(link); err != nil {
				return err
			}
			delete(e.linkedTargets, link.TargetID)
			return e.pairSource(ctx, source)
		}
		return err
	}

	return e.pushContact(ctx, source, target)
}

// pairSource handles a directory contact with no link row: match, then
// link, create, or skip per the resolver's decision.
func (e *Engine) pairSource(ctx context.Context, source types.Contact) error {
	if err := e.loadTargets(ctx); err != nil {
		return err
	}
	if e.linkedTargets == nil {
		if err := e.loadLinkedTargets(); err != nil {
			return err
		}
	}

	result := match.Find(source, e.targets, func(id string) bool { return e.linkedTargets[id] })
	switch result.Kind {
	case match.AutoLinked:
		target, err := e.crm.Get(ctx, result.TargetID)
		if err != nil {
			return err
		}
		e.log.Info().Str("source_id", source.ID).Str("target_id", target.ID).
			Str("name", source.DisplayName()).Msg("matched existing crm contact")
		return e.pushContact(ctx, source, target)

	case match.NeedsDecision:
		decision, err := e.resolver.Resolve(source, result.Candidates)
		if err != nil {
			return err
		}
		switch decision.Kind {
		case match.DecisionAbort:
			return types.ErrAborted
		case match.DecisionSkip:
			e.stats.Skipped++
			e.log.Warn().Err(types.ErrAmbiguousMatch).
				Str("source_id", source.ID).Str("name", source.DisplayName()).
				Int("candidates", len(result.Candidates)).
				Msg("skipped")
			return nil
		case match.DecisionCreate:
			return e.createTarget(ctx, source)
		case match.DecisionLink:
			target, err := e.crm.Get(ctx, decision.TargetID)
			if err != nil {
				return err
			}
			return e.pushContact(ctx, source, target)
		}
		return fmt.Errorf("unexpected resolver decision %d", decision.Kind)

	default: // match.NoMatch
		decision, err := e.resolver.ConfirmCreate(source)
		if err != nil {
			return err
		}
		switch decision.Kind {
		case match.DecisionAbort:
			return types.ErrAborted
		case match.DecisionSkip:
			e.stats.Skipped++
			return nil
		default:
			return e.createTarget(ctx, source)
		}
	}
}

// createTarget creates a fresh CRM contact for the source and links it.
func (e *Engine) createTarget(ctx context.Context, source types.Contact) error {
	req, err := mapper.ContactPayload(source, nil, e.cfg)
	if err != nil {
		return err
	}
	target, err := e.crm.Create(ctx, req)
	if err != nil {
		return err
	}
	e.targets = append(e.targets, target)
	e.stats.Created++

	if _, err := e.syncDetails(ctx, source, target); err != nil {
		return err
	}
	return e.saveLink(ctx, source, target)
}

// pushContact updates the core fields of a linked pair when they differ,
// runs the detail sync, and refreshes the link row.
func (e *Engine) pushContact(ctx context.Context, source, target types.Contact) error {
	desired, err := mapper.ContactPayload(source, &target, e.cfg)
	if err != nil {
		return err
	}

	mutated := false
	if desired != mapper.PayloadFor(target, e.cfg) {
		target, err = e.crm.Update(ctx, target.ID, desired)
		if err != nil {
			return err
		}
		mutated = true
	}

	detailsMutated, err := e.syncDetails(ctx, source, target)
	if err != nil {
		return err
	}
	if mutated || detailsMutated {
		e.stats.Updated++
	} else {
		e.stats.Unchanged++
	}
	return e.saveLink(ctx, source, target)
}

// saveLink records the pairing with the current names and timestamps.
// When the CRM side was just mutated its listed timestamp is stale, so
// the row is refreshed with the contact the last call returned.
func (e *Engine) saveLink(ctx context.Context, source, target types.Contact) error {
	err := e.store.Upsert(types.Link{
		SourceID:        source.ID,
		TargetID:        target.ID,
		SourceName:      source.DisplayName(),
		TargetName:      target.DisplayName(),
		SourceUpdatedAt: source.UpdatedAt,
		TargetUpdatedAt: target.UpdatedAt,
	})
	if err != nil {
		return err
	}
	if e.linkedTargets != nil {
		e.linkedTargets[target.ID] = true
	}
	return nil
}

// removeSource propagates a source-side deletion. With DeleteOnSync off
// nothing happens at all: the CRM contact and the link row both stay, so
// the pairing survives and later passes keep treating the contact as
// linked.
func (e *Engine) removeSource(ctx context.Context, link types.Link) error {
	if !e.cfg.DeleteOnSync {
		e.log.Info().Str("source_id", link.SourceID).Str("name", link.SourceName).
			Msg("source contact gone, keeping crm contact and pairing (delete_on_sync off)")
		return nil
	}
	if err := e.crm.Delete(ctx, link.TargetID, link.TargetName); err != nil && !isRemoteNotFound(err) {
		return err
	}
	e.stats.Deleted++
	if err := e.store.Delete(link); err != nil {
		return err
	}
	delete(e.linkedTargets, link.TargetID)
	return nil
}

// skippable reports whether a directory contact is filtered out of the
// forward sync, and counts it.
func (e *Engine) skippable(source types.Contact) bool {
	if source.Name.Empty() {
		e.stats.Skipped++
		e.log.Warn().Str("source_id", source.ID).Msg("contact has no name, skipped")
		return true
	}
	if !e.cfg.SourceLabels.Allows(source.Labels) {
		e.stats.Filtered++
		return true
	}
	return false
}

// persistCursor stores a fresh sync token after a successful pass.
func (e *Engine) persistCursor(token string) error {
	if token == "" {
		return nil
	}
	return e.store.SetCursor(token, time.Now().UTC())
}

// isRemoteNotFound reports whether err is a remote 404.
func isRemoteNotFound(err error) bool {
	var re *types.RemoteError
	return errors.As(err, &re) && re.Status == 404
}
