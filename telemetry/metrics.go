// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	SessionsStarted     prometheus.Counter
	SessionsCompleted   prometheus.Counter
	PointsAwarded       prometheus.Counter
	InteractionsScored  prometheus.Counter
	SlotsBooked         prometheus.Counter
	TokenValidations    prometheus.Counter
	TokenValidationFail prometheus.Counter
	TokensExpired       prometheus.Counter
	RecordsPruned       prometheus.Counter

	// Histograms (seconds)
	SessionDuration     prometheus.Observer
	StreamRefreshCycles prometheus.Observer

	// Gauges
	LiveChannelsGauge  prometheus.Gauge
	SessionActiveGauge prometheus.Gauge // 1=active,0=idle
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		SessionsStarted = promauto.NewCounter(prometheus.CounterOpts{Name: "support_sessions_started_total", Help: "Number of support sessions started"})
		SessionsCompleted = promauto.NewCounter(prometheus.CounterOpts{Name: "support_sessions_completed_total", Help: "Number of support sessions stopped and folded into the account"})
		PointsAwarded = promauto.NewCounter(prometheus.CounterOpts{Name: "support_points_awarded_total", Help: "Points credited across all sessions"})
		InteractionsScored = promauto.NewCounter(prometheus.CounterOpts{Name: "support_interactions_scored_total", Help: "Chat interactions that earned a point bonus"})
		SlotsBooked = promauto.NewCounter(prometheus.CounterOpts{Name: "support_slots_booked_total", Help: "Weekly support slots booked"})
		TokenValidations = promauto.NewCounter(prometheus.CounterOpts{Name: "auth_token_validations_total", Help: "Token introspection attempts"})
		TokenValidationFail = promauto.NewCounter(prometheus.CounterOpts{Name: "auth_token_validation_failures_total", Help: "Token introspection failures"})
		TokensExpired = promauto.NewCounter(prometheus.CounterOpts{Name: "auth_tokens_expired_total", Help: "Tokens cleared by the expiry watcher"})
		RecordsPruned = promauto.NewCounter(prometheus.CounterOpts{Name: "support_records_pruned_total", Help: "Support records removed by retention"})
		SessionDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "support_session_duration_seconds", Help: "Support session duration seconds", Buckets: prometheus.DefBuckets})
		StreamRefreshCycles = promauto.NewHistogram(prometheus.HistogramOpts{Name: "stream_refresh_duration_seconds", Help: "Live-stream refresh cycle duration seconds", Buckets: prometheus.DefBuckets})
		LiveChannelsGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "stream_live_channels", Help: "Registered channels currently live"})
		SessionActiveGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "support_session_active", Help: "Support session active=1 idle=0"})
	})
}

// AddPoints records points credited, guarding the nil case before Init.
func AddPoints(n int) {
	if PointsAwarded != nil && n > 0 {
		PointsAwarded.Add(float64(n))
	}
}

// UpdateSessionGauge sets gauge to 1 if a session is active else 0.
func UpdateSessionGauge(active bool) {
	if SessionActiveGauge != nil {
		if active {
			SessionActiveGauge.Set(1)
		} else {
			SessionActiveGauge.Set(0)
		}
	}
}

// SetLiveChannels records how many registered channels are live.
func SetLiveChannels(n int) {
	if LiveChannelsGauge != nil {
		LiveChannelsGauge.Set(float64(n))
	}
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------

type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding the correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	v := ctx.Value(corrKey)
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
