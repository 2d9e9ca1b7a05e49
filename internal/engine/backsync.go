// Back-sync: replicating contacts that exist only on the CRM into the
// directory.
package engine

import (
	"context"
	"errors"

	"github.com/meshline/contactsync/internal/mapper"
	"github.com/meshline/contactsync/pkg/types"
)

// RunBackSync creates a directory contact for every CRM contact that has
// no link row, then links the pair. The target label filter decides which
// CRM contacts are eligible. Existing pairs are never touched.
func (e *Engine) RunBackSync(ctx context.Context) error {
	e.stats.begin()
	defer e.stats.finish()

	if err := e.requireLinks(); err != nil {
		return err
	}
	if err := e.loadTargets(ctx); err != nil {
		return err
	}
	e.log.Info().Int("targets", len(e.targets)).Msg("starting back-sync")

	for _, target := range e.targets {
		_, err := e.store.FindByTargetID(target.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, types.ErrNotFound) {
			return err
		}
		if !e.cfg.TargetLabels.Allows(target.Labels) {
			e.stats.Filtered++
			continue
		}
		t := target
		if err := e.retry(ctx, func() error { return e.replicateTarget(ctx, t) }); err != nil {
			if err := e.fail(target, err); err != nil {
				return err
			}
		}
	}
	return nil
}

// replicateTarget copies one CRM-only contact into the directory and
// records the pairing.
func (e *Engine) replicateTarget(ctx context.Context, target types.Contact) error {
	draft, err := mapper.SourceContact(target, e.cfg)
	if err != nil {
		return err
	}
	source, err := e.dir.Create(ctx, draft)
	if err != nil {
		return err
	}
	e.stats.Created++
	return e.saveLink(ctx, source, target)
}
