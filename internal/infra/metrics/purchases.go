package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		checkoutTotal,
		webhookTotal,
		webhookDuration,
		accessDecisionsTotal,
		purchaseRevenueTotal,
		eventPublishTotal,
	)
}

var (
	// result: session_created|already_purchased|unauthenticated|invalid|not_found|gateway_error|storage_error
	checkoutTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_checkout_total",
			Help: "Checkout initiations by result.",
		},
		[]string{"result"},
	)

	// outcome: recorded|already_recorded|ignored_event_type|ignored_unpaid|ignored_malformed|
	// missing_signature|authenticity_failed|storage_error
	webhookTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_payment_webhook_total",
			Help: "Payment webhook deliveries by provider and outcome.",
		},
		[]string{"provider", "outcome"},
	)

	webhookDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "marketplace_payment_webhook_duration_seconds",
			Help:    "Duration of payment webhook handling in seconds.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2},
		},
		[]string{"outcome"},
	)

	// decision: granted|denied|error
	accessDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_access_decisions_total",
			Help: "Access guard decisions by content type.",
		},
		[]string{"content_type", "decision"},
	)

	purchaseRevenueTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "marketplace_purchase_revenue_total",
			Help: "Sum of amounts of newly recorded purchases, in the smallest currency unit.",
		},
	)

	eventPublishTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_event_publish_total",
			Help: "Purchase notifications published by result.",
		},
		[]string{"result"},
	)
)

func IncCheckout(result string) {
	checkoutTotal.WithLabelValues(norm(result)).Inc()
}

func ObserveWebhook(provider, outcome string, d time.Duration) {
	webhookTotal.WithLabelValues(norm(provider), norm(outcome)).Inc()
	webhookDuration.WithLabelValues(norm(outcome)).Observe(d.Seconds())
}

func IncAccessDecision(contentType, decision string) {
	accessDecisionsTotal.WithLabelValues(norm(contentType), norm(decision)).Inc()
}

func AddPurchaseRevenue(amount int64) {
	if amount > 0 {
		purchaseRevenueTotal.Add(float64(amount))
	}
}

func IncEventPublish(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	eventPublishTotal.WithLabelValues(result).Inc()
}
