package sync

import (
	"context"
	"time"

	"github.com/memoria-app/memoria/internal/client/models"
)

// StartPeriodic reconciles every kind on a fixed interval until ctx is
// cancelled. It returns a channel closed when the loop has fully stopped,
// so process teardown can wait for it. Batches started here coalesce with
// any concurrently triggered ones through the same singleflight group.
func (c *Coordinator) StartPeriodic(ctx context.Context, interval time.Duration) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				needed, err := c.NeedsSync(ctx, models.KindRecord)
				if err != nil {
					c.log.Warn(ctx, "periodic staleness check failed", "error", err)
					continue
				}
				if !needed {
					c.log.Debug(ctx, "periodic sync not needed")
					continue
				}
				if _, err := c.SyncAll(ctx); err != nil {
					c.log.Error(ctx, "periodic sync failed", "error", err)
				}
			}
		}
	}()
	return done
}
