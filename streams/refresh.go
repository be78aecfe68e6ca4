// Package streams runs the background jobs that keep channel state fresh:
// a live-status poller over the registered channels and a retention sweep
// over old support records.
package streams

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/milozanoo/streamsupport/backend/db"
	"github.com/milozanoo/streamsupport/backend/telemetry"
	"github.com/milozanoo/streamsupport/backend/twitchapi"
)

// helixBatchLimit is the Helix cap on user_login params per streams request.
const helixBatchLimit = 100

// StartLiveRefreshJob polls Helix for the live status of every registered
// channel and caches the result for the /api/twitch/streams endpoint.
// Runs once immediately, then on each tick until ctx is cancelled.
func StartLiveRefreshJob(ctx context.Context, dbc *sql.DB, helix *twitchapi.HelixClient, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	slog.Info("live refresh job starting", slog.Duration("interval", interval), slog.String("component", "stream_refresh"))

	if err := RefreshOnce(ctx, dbc, helix); err != nil {
		slog.Warn("live refresh failed", slog.Any("err", err), slog.String("component", "stream_refresh"))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("live refresh job stopped", slog.String("component", "stream_refresh"))
			return
		case <-ticker.C:
			telemetry.TimeFunc(telemetry.StreamRefreshCycles, func() {
				if err := RefreshOnce(ctx, dbc, helix); err != nil {
					slog.Warn("live refresh failed", slog.Any("err", err), slog.String("component", "stream_refresh"))
				}
			})
		}
	}
}

// RefreshOnce performs a single refresh cycle: fetch live streams for all
// registered channels, cache them, and flip each channel's live flag.
func RefreshOnce(ctx context.Context, dbc *sql.DB, helix *twitchapi.HelixClient) error {
	channels, err := db.ListChannels(ctx, dbc)
	if err != nil {
		return fmt.Errorf("list channels: %w", err)
	}
	if len(channels) == 0 {
		return nil
	}

	logins := make([]string, 0, len(channels))
	for _, c := range channels {
		logins = append(logins, c.Login)
	}

	live := make([]twitchapi.Stream, 0)
	for start := 0; start < len(logins); start += helixBatchLimit {
		end := start + helixBatchLimit
		if end > len(logins) {
			end = len(logins)
		}
		streams, err := helix.GetStreams(ctx, logins[start:end]...)
		if err != nil {
			return fmt.Errorf("get streams: %w", err)
		}
		live = append(live, streams...)
	}

	if err := db.SaveLiveStreams(ctx, dbc, live); err != nil {
		return fmt.Errorf("cache streams: %w", err)
	}

	liveSet := make(map[string]struct{}, len(live))
	for _, s := range live {
		liveSet[s.UserLogin] = struct{}{}
	}
	for _, c := range channels {
		_, isLive := liveSet[c.Login]
		if isLive == c.Live {
			continue
		}
		if err := db.SetChannelLive(ctx, dbc, c.Login, isLive); err != nil {
			slog.Warn("update channel live flag", slog.String("channel", c.Login), slog.Any("err", err))
			continue
		}
		if isLive {
			slog.Info("channel went live", slog.String("channel", c.Login))
		} else {
			slog.Info("channel went offline", slog.String("channel", c.Login))
		}
	}
	telemetry.SetLiveChannels(len(live))
	return nil
}
