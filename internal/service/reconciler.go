package service

import (
	"context"
	"time"

	"chirp/internal/observability"
	"chirp/internal/repository"
)

const reconcileJob = "counter_reconcile"

// CounterReconciler recomputes every denormalized counter from its fact rows
// and repairs the ones that drifted.
type CounterReconciler struct {
	Store    *repository.Store
	Interval time.Duration
	Recounts []repository.Recount
}

func NewCounterReconciler(store *repository.Store, interval time.Duration) *CounterReconciler {
	return &CounterReconciler{
		Store:    store,
		Interval: interval,
		Recounts: repository.Recounts,
	}
}

// Sweep audits all counters once and returns the number of repaired rows per counter.
func (r *CounterReconciler) Sweep(ctx context.Context) (map[string]int, error) {
	start := time.Now()
	observability.LogJobStart(ctx, reconcileJob, nil)
	defer func() {
		observability.ReconcileDuration.Observe(time.Since(start).Seconds())
	}()

	repaired := make(map[string]int, len(r.Recounts))
	for _, rc := range r.Recounts {
		ids, err := r.Store.Counters.Repair(ctx, rc)
		if err != nil {
			observability.LogJobError(ctx, reconcileJob, err, map[string]interface{}{"counter": rc.Name})
			return repaired, err
		}
		repaired[rc.Name] = len(ids)
		if len(ids) > 0 {
			observability.CounterDrift.WithLabelValues(rc.Name).Add(float64(len(ids)))
		}
	}

	observability.LogJobEnd(ctx, reconcileJob, map[string]interface{}{
		"repaired":    repaired,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return repaired, nil
}

// Run sweeps every Interval until ctx is cancelled. A failed sweep is logged
// and retried on the next tick.
func (r *CounterReconciler) Run(ctx context.Context) error {
	if r.Interval <= 0 {
		return nil
	}
	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			_, _ = r.Sweep(ctx)
		}
	}
}
