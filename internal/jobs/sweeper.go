// Package jobs runs background maintenance on a cron schedule.
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/tbourn/go-shipment-tracker/internal/repo"
)

// IdempotencySweeper deletes expired idempotency records.
type IdempotencySweeper struct {
	DB  *gorm.DB
	Now func() time.Time
}

// Sweep runs one pass and returns the number of rows removed.
func (s *IdempotencySweeper) Sweep(ctx context.Context) (int64, error) {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	n, err := repo.DeleteExpiredIdempotency(ctx, s.DB, now().UTC())
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("idempotency sweep failed")
		return 0, err
	}
	if n > 0 {
		log.Ctx(ctx).Info().Int64("deleted", n).Msg("idempotency sweep")
	}
	return n, nil
}

// Start schedules the sweeper with spec (standard 5-field or a descriptor
// such as "@hourly"). An empty spec disables it and returns a nil stop func.
// The returned stop func waits for a running sweep to finish.
func Start(ctx context.Context, spec string, s *IdempotencySweeper) (stop func(), err error) {
	if spec == "" {
		return nil, nil
	}
	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		_, _ = s.Sweep(ctx)
	}); err != nil {
		return nil, err
	}
	c.Start()
	log.Info().Str("schedule", spec).Msg("idempotency sweeper started")
	return func() { <-c.Stop().Done() }, nil
}
