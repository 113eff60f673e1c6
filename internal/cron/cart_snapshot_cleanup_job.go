package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/amaiabotanic/storefront/pkg/logger"
)

const defaultCartRetention = 30 * 24 * time.Hour

type CartSnapshotCleanupJobParams struct {
	Logger    *logger.Logger
	Purger    cartSnapshotPurger
	Retention time.Duration
}

type cartSnapshotPurger interface {
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// NewCartSnapshotCleanupJob removes persisted carts untouched for longer than
// the retention window. Redis carts expire on their own TTL instead.
func NewCartSnapshotCleanupJob(params CartSnapshotCleanupJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Purger == nil {
		return nil, fmt.Errorf("cart snapshot purger required")
	}
	retention := params.Retention
	if retention <= 0 {
		retention = defaultCartRetention
	}
	return &cartSnapshotCleanupJob{
		logg:      params.Logger,
		purger:    params.Purger,
		retention: retention,
		now:       time.Now,
	}, nil
}

type cartSnapshotCleanupJob struct {
	logg      *logger.Logger
	purger    cartSnapshotPurger
	retention time.Duration
	now       func() time.Time
}

func (j *cartSnapshotCleanupJob) Name() string { return "cart-snapshot-cleanup" }

func (j *cartSnapshotCleanupJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)
	deleted, err := j.purger.PurgeBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("cart snapshot cleanup: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"rows_deleted": deleted,
	})
	j.logg.Info(logCtx, "cart snapshot cleanup complete")
	return nil
}
