package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		chargesTotal,
		chargeVolumeTotal,
		refundsTotal,
	)
}

var (
	chargesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "momo_charges_total",
			Help: "Charge attempts by provider and outcome status.",
		},
		[]string{"provider", "status"},
	)

	chargeVolumeTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "momo_charge_volume_total",
			Help: "Monetary volume of accepted charges, labeled by provider and currency.",
		},
		[]string{"provider", "currency"},
	)

	refundsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "momo_refunds_total",
			Help: "Refund attempts by provider and outcome.",
		},
		[]string{"provider", "outcome"},
	)
)

func IncCharge(provider, status string) {
	chargesTotal.WithLabelValues(norm(provider), norm(status)).Inc()
}

func AddChargeVolume(provider, currency string, amount float64) {
	chargeVolumeTotal.WithLabelValues(norm(provider), norm(currency)).Add(amount)
}

func IncRefund(provider, outcome string) {
	refundsTotal.WithLabelValues(norm(provider), norm(outcome)).Inc()
}
