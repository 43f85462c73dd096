package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StorefrontMetrics records checkout and fulfillment outcomes.
type StorefrontMetrics struct {
	ordersPlaced     *prometheus.CounterVec
	checkoutFailures *prometheus.CounterVec
	emailsSent       prometheus.Counter
	checkoutDuration *prometheus.HistogramVec
}

// NewStorefrontMetrics registers the storefront metrics on the provided registerer.
func NewStorefrontMetrics(reg prometheus.Registerer) *StorefrontMetrics {
	if reg == nil {
		return &StorefrontMetrics{}
	}
	ordersPlaced := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_placed_total",
		Help: "Orders placed, by payment method.",
	}, []string{"payment_method"})
	checkoutFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_failures_total",
		Help: "Checkout attempts that ended in a failure state.",
	}, []string{"reason"})
	emailsSent := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "order_emails_sent_total",
		Help: "Order confirmation emails delivered.",
	})
	checkoutDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checkout_duration_seconds",
		Help:    "Duration of checkout submissions in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"payment_method"})
	reg.MustRegister(ordersPlaced, checkoutFailures, emailsSent, checkoutDuration)
	return &StorefrontMetrics{
		ordersPlaced:     ordersPlaced,
		checkoutFailures: checkoutFailures,
		emailsSent:       emailsSent,
		checkoutDuration: checkoutDuration,
	}
}

// IncOrderPlaced increments the placed order counter for the payment method.
func (m *StorefrontMetrics) IncOrderPlaced(paymentMethod string) {
	if m == nil || m.ordersPlaced == nil {
		return
	}
	m.ordersPlaced.WithLabelValues(normalizeLabel(paymentMethod)).Inc()
}

// IncCheckoutFailure increments the failure counter for the given reason.
func (m *StorefrontMetrics) IncCheckoutFailure(reason string) {
	if m == nil || m.checkoutFailures == nil {
		return
	}
	m.checkoutFailures.WithLabelValues(normalizeLabel(reason)).Inc()
}

// IncEmailSent increments the confirmation email counter.
func (m *StorefrontMetrics) IncEmailSent() {
	if m == nil || m.emailsSent == nil {
		return
	}
	m.emailsSent.Inc()
}

// ObserveCheckoutDuration records how long a checkout submission took.
func (m *StorefrontMetrics) ObserveCheckoutDuration(paymentMethod string, duration time.Duration) {
	if m == nil || m.checkoutDuration == nil {
		return
	}
	m.checkoutDuration.WithLabelValues(normalizeLabel(paymentMethod)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
