package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Checkout outcome labels.
const (
	OutcomeSuccess               = "success"
	OutcomeEmptyCart             = "empty_cart"
	OutcomePaymentFailed         = "payment_failed"
	OutcomeInsufficientInventory = "insufficient_inventory"
	OutcomeError                 = "error"
)

// StorefrontMetrics records checkout, refund and notification activity.
type StorefrontMetrics struct {
	checkoutDuration *prometheus.HistogramVec
	checkouts        *prometheus.CounterVec
	refunds          *prometheus.CounterVec
	notifications    *prometheus.CounterVec
}

// NewStorefrontMetrics registers the collectors on reg. A nil registerer yields a no-op recorder.
func NewStorefrontMetrics(reg prometheus.Registerer) *StorefrontMetrics {
	if reg == nil {
		return &StorefrontMetrics{}
	}
	m := &StorefrontMetrics{
		checkoutDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "storefront",
			Name:      "checkout_duration_seconds",
			Help:      "Duration of checkout attempts in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "checkouts_total",
			Help:      "Checkout attempts by outcome.",
		}, []string{"outcome"}),
		refunds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "payment_refunds_total",
			Help:      "Compensating refunds issued after a captured payment could not be turned into an order.",
		}, []string{"result"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "notifications_total",
			Help:      "Order notifications by channel and result.",
		}, []string{"channel", "result"}),
	}
	reg.MustRegister(m.checkoutDuration, m.checkouts, m.refunds, m.notifications)
	return m
}

// ObserveCheckout counts one checkout attempt and its latency.
func (m *StorefrontMetrics) ObserveCheckout(outcome string, duration time.Duration) {
	if m == nil || m.checkouts == nil {
		return
	}
	outcome = normalizeLabel(outcome)
	m.checkouts.WithLabelValues(outcome).Inc()
	m.checkoutDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// IncRefund counts a compensating refund attempt; ok reports whether the gateway accepted it.
func (m *StorefrontMetrics) IncRefund(ok bool) {
	if m == nil || m.refunds == nil {
		return
	}
	m.refunds.WithLabelValues(resultLabel(ok)).Inc()
}

// IncNotification counts a delivery attempt on channel.
func (m *StorefrontMetrics) IncNotification(channel string, ok bool) {
	if m == nil || m.notifications == nil {
		return
	}
	m.notifications.WithLabelValues(normalizeLabel(channel), resultLabel(ok)).Inc()
}

func resultLabel(ok bool) string {
	if ok {
		return "succeeded"
	}
	return "failed"
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
