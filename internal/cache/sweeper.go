package cache

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// StartSweeper schedules periodic removal of expired entries. Stop the returned
// cron when shutting down.
func StartSweeper(ctx context.Context, schedule string, log zerolog.Logger, targets ...Sweeper) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() { sweepAll(ctx, log, targets) })
	if err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	c.Start()
	return c, nil
}

func sweepAll(ctx context.Context, log zerolog.Logger, targets []Sweeper) int {
	total := 0
	for _, t := range targets {
		total += t.Sweep(ctx)
	}
	if total > 0 {
		log.Debug().Int("removed", total).Msg("expired cache entries swept")
	}
	return total
}
