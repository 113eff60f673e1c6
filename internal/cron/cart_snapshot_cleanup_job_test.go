package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/amaiabotanic/storefront/pkg/logger"
)

type fakePurger struct {
	cutoff time.Time
	rows   int64
	err    error
}

func (f *fakePurger) PurgeBefore(_ context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return f.rows, f.err
}

func TestCartSnapshotCleanupUsesRetention(t *testing.T) {
	purger := &fakePurger{rows: 4}
	job, err := NewCartSnapshotCleanupJob(CartSnapshotCleanupJobParams{
		Logger:    logger.Nop(),
		Purger:    purger,
		Retention: 48 * time.Hour,
	})
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	job.(*cartSnapshotCleanupJob).now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if want := now.Add(-48 * time.Hour); !purger.cutoff.Equal(want) {
		t.Fatalf("expected cutoff %v, got %v", want, purger.cutoff)
	}
	if job.Name() != "cart-snapshot-cleanup" {
		t.Fatalf("unexpected name %q", job.Name())
	}
}

func TestCartSnapshotCleanupWrapsErrors(t *testing.T) {
	boom := errors.New("db down")
	job, err := NewCartSnapshotCleanupJob(CartSnapshotCleanupJobParams{
		Logger: logger.Nop(),
		Purger: &fakePurger{err: boom},
	})
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	if err := job.Run(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestCartSnapshotCleanupRequiresDeps(t *testing.T) {
	if _, err := NewCartSnapshotCleanupJob(CartSnapshotCleanupJobParams{Logger: logger.Nop()}); err == nil {
		t.Fatal("expected purger requirement")
	}
}
