package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		providerRequestDuration,
		providerErrorsTotal,
	)
}

var (
	providerRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "momo_provider_request_duration_seconds",
			Help:    "Latency of provider API calls by provider and operation.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "operation"},
	)

	providerErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "momo_provider_errors_total",
			Help: "Provider call failures by canonical error code.",
		},
		[]string{"provider", "code"},
	)
)

func ObserveProviderCall(provider, operation string, elapsed time.Duration) {
	providerRequestDuration.WithLabelValues(norm(provider), norm(operation)).Observe(elapsed.Seconds())
}

func IncProviderError(provider, code string) {
	providerErrorsTotal.WithLabelValues(norm(provider), norm(code)).Inc()
}
