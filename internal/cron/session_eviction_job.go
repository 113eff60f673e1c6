package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/amaiabotanic/storefront/pkg/logger"
)

const defaultSessionIdle = 30 * time.Minute

type SessionEvictionJobParams struct {
	Logger      *logger.Logger
	Sessions    idleSessionEvicter
	IdleTimeout time.Duration
}

type idleSessionEvicter interface {
	EvictIdle(cutoff time.Time) ([]string, error)
}

// NewSessionEvictionJob ends in-memory cart sessions idle for longer than
// IdleTimeout. Persisted carts survive and rehydrate on the next request.
func NewSessionEvictionJob(params SessionEvictionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Sessions == nil {
		return nil, fmt.Errorf("cart sessions required")
	}
	idle := params.IdleTimeout
	if idle <= 0 {
		idle = defaultSessionIdle
	}
	return &sessionEvictionJob{
		logg:     params.Logger,
		sessions: params.Sessions,
		idle:     idle,
		now:      time.Now,
	}, nil
}

type sessionEvictionJob struct {
	logg     *logger.Logger
	sessions idleSessionEvicter
	idle     time.Duration
	now      func() time.Time
}

func (j *sessionEvictionJob) Name() string { return "cart-session-eviction" }

func (j *sessionEvictionJob) Run(ctx context.Context) error {
	cutoff := j.now().Add(-j.idle)
	evicted, err := j.sessions.EvictIdle(cutoff)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":           cutoff.UTC(),
		"sessions_evicted": len(evicted),
	})
	if err != nil {
		return fmt.Errorf("evict idle sessions: %w", err)
	}
	if len(evicted) > 0 {
		j.logg.Info(logCtx, "idle cart sessions evicted")
	}
	return nil
}
