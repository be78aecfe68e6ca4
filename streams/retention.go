package streams

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/milozanoo/streamsupport/backend/db"
	"github.com/milozanoo/streamsupport/backend/telemetry"
)

// StartRetentionJob periodically prunes support records older than maxAge.
// maxAge <= 0 disables the job. Runs once immediately, then every interval.
func StartRetentionJob(ctx context.Context, dbc *sql.DB, maxAge, interval time.Duration) {
	if maxAge <= 0 {
		slog.Info("retention job disabled (no max age configured)", slog.String("component", "retention"))
		return
	}
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	slog.Info("retention job starting",
		slog.Duration("max_age", maxAge),
		slog.Duration("interval", interval),
		slog.String("component", "retention"))

	if _, err := PruneOnce(ctx, dbc, maxAge); err != nil {
		slog.Warn("retention prune failed", slog.Any("err", err), slog.String("component", "retention"))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("retention job stopped", slog.String("component", "retention"))
			return
		case <-ticker.C:
			if _, err := PruneOnce(ctx, dbc, maxAge); err != nil {
				slog.Warn("retention prune failed", slog.Any("err", err), slog.String("component", "retention"))
			}
		}
	}
}

// PruneOnce removes support records older than maxAge and reports how many
// went away.
func PruneOnce(ctx context.Context, dbc *sql.DB, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-maxAge)
	n, err := db.DeleteSupportRecordsBefore(ctx, dbc, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		if telemetry.RecordsPruned != nil {
			telemetry.RecordsPruned.Add(float64(n))
		}
		slog.Info("pruned old support records", slog.Int64("count", n), slog.Time("cutoff", cutoff), slog.String("component", "retention"))
	}
	return n, nil
}
