package dispatch

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Gate admits one dispatch at a time, process-wide. Construct one at startup
// and hand the same Gate to every Dispatcher.
type Gate struct {
	slot *semaphore.Weighted
	pace *rate.Limiter // nil when no minimum spacing is configured
}

// NewGate creates a single-slot gate. minSpacing is the minimum time
// between two outbound model calls made through the gate.
func NewGate(minSpacing time.Duration) *Gate {
	g := &Gate{slot: semaphore.NewWeighted(1)}
	if minSpacing > 0 {
		g.pace = rate.NewLimiter(rate.Every(minSpacing), 1)
	}
	return g
}

// Acquire blocks until the gate is free or ctx is done
func (g *Gate) Acquire(ctx context.Context) error {
	return g.slot.Acquire(ctx, 1)
}

// TryAcquire takes the gate only if it is free, without waiting
func (g *Gate) TryAcquire() bool {
	return g.slot.TryAcquire(1)
}

// Release frees the gate. Call exactly once per successful Acquire.
func (g *Gate) Release() {
	g.slot.Release(1)
}

// Pace waits until the next outbound call is allowed
func (g *Gate) Pace(ctx context.Context) error {
	if g.pace == nil {
		return nil
	}
	return g.pace.Wait(ctx)
}
