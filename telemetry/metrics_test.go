package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestCountersInitialized(t *testing.T) {
	Init()

	if SessionsStarted == nil {
		t.Error("SessionsStarted counter not initialized")
	}
	if PointsAwarded == nil {
		t.Error("PointsAwarded counter not initialized")
	}
	if TokenValidations == nil {
		t.Error("TokenValidations counter not initialized")
	}
	if SessionDuration == nil {
		t.Error("SessionDuration histogram not initialized")
	}
}

func TestInitIdempotent(t *testing.T) {
	Init()
	first := SessionsStarted
	Init()
	if SessionsStarted != first {
		t.Error("second Init() should not re-register metrics")
	}
}

func TestTimeFuncRecordsObservation(t *testing.T) {
	Init()

	testHistogram := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "test_duration_seconds",
		Help:    "Test duration",
		Buckets: prometheus.DefBuckets,
	})
	prometheus.MustRegister(testHistogram)
	defer prometheus.Unregister(testHistogram)

	executed := false
	duration := TimeFunc(testHistogram, func() {
		time.Sleep(10 * time.Millisecond)
		executed = true
	})

	if !executed {
		t.Error("TimeFunc did not execute provided function")
	}
	if duration < 10*time.Millisecond {
		t.Errorf("TimeFunc duration = %v, want >= 10ms", duration)
	}

	metric := &dto.Metric{}
	if err := testHistogram.Write(metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if metric.Histogram == nil {
		t.Fatal("Histogram metric is nil")
	}
	if *metric.Histogram.SampleCount == 0 {
		t.Error("TimeFunc did not record observation in histogram")
	}
}

func TestGaugeHelpers(t *testing.T) {
	Init()

	// Should not panic at any value.
	UpdateSessionGauge(true)
	UpdateSessionGauge(false)
	for _, n := range []int{0, 3, 100} {
		SetLiveChannels(n)
	}
	AddPoints(0)
	AddPoints(15)
}

func TestCorrelation(t *testing.T) {
	ctx := context.Background()
	if got := GetCorrelation(ctx); got != "" {
		t.Errorf("GetCorrelation(empty ctx) = %q, want empty", got)
	}
	ctx = WithCorrelation(ctx, "corr-123")
	if got := GetCorrelation(ctx); got != "corr-123" {
		t.Errorf("GetCorrelation = %q, want corr-123", got)
	}
	if LoggerWithCorr(ctx) == nil {
		t.Error("LoggerWithCorr should never return nil")
	}
	if LoggerWithCorr(context.Background()) == nil {
		t.Error("LoggerWithCorr without corr should fall back to default logger")
	}
}
