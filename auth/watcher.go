package auth

import (
	"context"
	"log/slog"
	"math/rand"
	"time"
)

// StartExpiryWatcher launches a goroutine that periodically runs CheckExpiry
// on the manager. interval defaults to one minute. Checks are jittered so
// multiple instances sharing a store do not wake in lockstep.
func StartExpiryWatcher(ctx context.Context, m *Manager, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	// Randomize initial delay to spread load across instances.
	//nolint:gosec // G404: math/rand is sufficient for scheduling jitter, not used for security
	initialJitter := time.Duration(rand.Int63n(int64(interval / 2)))
	go func() {
		select {
		case <-ctx.Done():
			return
		case <-m.clock.After(initialJitter):
		}
		for {
			// Per-iteration jitter (±20% of interval) for scheduling diversity.
			jitterRange := int64(interval / 5)
			//nolint:gosec // G404: math/rand is sufficient for scheduling jitter, not used for security
			jitter := time.Duration(rand.Int63n(jitterRange*2) - jitterRange)
			nextSleep := interval + jitter
			if nextSleep < interval/2 {
				nextSleep = interval / 2
			}
			select {
			case <-ctx.Done():
				return
			case <-m.clock.After(nextSleep):
			}
			if state := m.CheckExpiry(ctx); state == Expiring {
				slog.Info("expiry watcher flagged token", slog.String("state", state.String()))
			}
		}
	}()
}
