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

// Authorization outcomes.
const (
	ResultSuccess        = "success"
	ResultInvalidRequest = "invalid_request"
	ResultExchangeFailed = "exchange_failed"
	ResultIdentityFailed = "identity_failed"
)

// Join list write outcomes.
const (
	JoinAdded     = "added"
	JoinDuplicate = "duplicate"
	JoinError     = "error"
)

var (
	once sync.Once

	// Counters
	AuthorizationsTotal *prometheus.CounterVec // label: result
	JoinListWrites      *prometheus.CounterVec // label: result

	// Histograms (seconds)
	UpstreamDuration *prometheus.HistogramVec // label: call
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		AuthorizationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{Name: "meow_authorizations_total", Help: "Authorization requests by outcome"}, []string{"result"})
		JoinListWrites = promauto.NewCounterVec(prometheus.CounterOpts{Name: "meow_join_list_writes_total", Help: "Join list append attempts by outcome"}, []string{"result"})
		UpstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{Name: "meow_upstream_duration_seconds", Help: "Twitch call duration seconds", Buckets: prometheus.DefBuckets}, []string{"call"})
	})
}

// RecordAuthorization counts one authorization request outcome.
func RecordAuthorization(result string) {
	if AuthorizationsTotal != nil {
		AuthorizationsTotal.WithLabelValues(result).Inc()
	}
}

// RecordJoinListWrite counts one join list append outcome.
func RecordJoinListWrite(result string) {
	if JoinListWrites != nil {
		JoinListWrites.WithLabelValues(result).Inc()
	}
}

// TimeUpstream runs fn and records its duration under call.
func TimeUpstream(call string, fn func() error) error {
	start := time.Now()
	err := fn()
	if UpstreamDuration != nil {
		UpstreamDuration.WithLabelValues(call).Observe(time.Since(start).Seconds())
	}
	return err
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
	if s, ok := ctx.Value(corrKey).(string); ok {
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
