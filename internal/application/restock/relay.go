package restock

import (
	"context"
	"time"

	"assetverse-backend/internal/domain"
	"assetverse-backend/internal/obs"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const defaultBatchSize = 100

// Relay retries pending restock tasks in the background until each one is applied or skipped.
type Relay struct {
	Log         *Log
	Interval    time.Duration
	Limiter     *rate.Limiter
	MaxAttempts int
	BatchSize   int
}

// Run processes pending tasks every Interval until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) {
	interval := r.Interval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info().Dur("interval", interval).Msg("restock relay started")
	for {
		if _, err := r.RunOnce(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("restock relay pass failed")
		}
		select {
		case <-ctx.Done():
			log.Info().Msg("restock relay stopped")
			return
		case <-ticker.C:
		}
	}
}

// RunOnce applies one batch of pending tasks and returns how many were credited.
func (r *Relay) RunOnce(ctx context.Context) (int, error) {
	batch := r.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	tasks, err := r.Log.Pending(ctx, batch, r.MaxAttempts)
	if err != nil {
		return 0, err
	}

	applied := 0
	for _, task := range tasks {
		if r.Limiter != nil {
			if err := r.Limiter.Wait(ctx); err != nil {
				return applied, err
			}
		}
		status, err := r.Log.Apply(ctx, task.Key)
		if err != nil {
			obs.RestockApplied.WithLabelValues("error").Inc()
			log.Error().Str("task_key", task.Key).Str("asset_id", task.AssetID.String()).
				Int("attempts", task.Attempts+1).Err(err).Msg("restock: apply failed, will retry")
			continue
		}
		obs.RestockApplied.WithLabelValues(status).Inc()
		if status == domain.RestockApplied {
			applied++
		}
	}

	pending, err := r.Log.CountPending(ctx)
	if err != nil {
		return applied, err
	}
	obs.RestockPending.Set(float64(pending))
	if r.MaxAttempts > 0 {
		exhausted, err := r.Log.CountExhausted(ctx, r.MaxAttempts)
		if err != nil {
			return applied, err
		}
		if exhausted > 0 {
			log.Error().Int64("exhausted", exhausted).Int("max_attempts", r.MaxAttempts).
				Msg("restock: tasks exhausted their retry budget and need operator attention")
		}
	}
	return applied, nil
}
