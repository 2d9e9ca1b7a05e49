package engine

import (
	"context"
	"time"

	"github.com/meshline/contactsync/pkg/types"
)

// retry runs op, repeating it after transient remote errors up to the
// configured attempt budget. Permanent errors return immediately.
func (e *Engine) retry(ctx context.Context, op func() error) error {
	var err error
	for attempt := 0; attempt <= e.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			e.log.Warn().Err(err).Int("attempt", attempt).Msg("retrying after transient error")
			select {
			case <-time.After(e.cfg.RetryDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err = op(); err == nil || !types.IsRetryable(err) {
			return err
		}
	}
	return err
}
