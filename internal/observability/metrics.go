package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"xdao.co/vault/vault"
)

var (
	registerOnce sync.Once

	invocations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vault",
			Name:      "invocations_total",
			Help:      "Vault program invocations by outcome.",
		},
		[]string{"outcome"},
	)
	invocationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "vault",
			Name:      "invocation_duration_seconds",
			Help:      "Vault program invocation duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(invocations, invocationDuration)
	})
}

// Outcome is the metric label for an invocation result: "ok", the vault
// error kind, or "error".
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if k := vault.KindOf(err); k != "" {
		return string(k)
	}
	return "error"
}

func RecordInvocation(err error, took time.Duration) {
	RegisterMetrics()
	invocations.WithLabelValues(Outcome(err)).Inc()
	invocationDuration.Observe(took.Seconds())
}

// MetricsHandler serves the default registry.
func MetricsHandler() http.Handler {
	RegisterMetrics()
	return promhttp.Handler()
}
