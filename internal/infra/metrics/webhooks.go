package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(webhooksTotal)
}

var webhooksTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "momo_webhooks_total",
		Help: "Webhook deliveries by provider and mapped status (or 'rejected').",
	},
	[]string{"provider", "status"},
)

func IncWebhook(provider, status string) {
	webhooksTotal.WithLabelValues(norm(provider), norm(status)).Inc()
}
