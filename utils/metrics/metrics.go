// Package metrics holds the prometheus collectors of the API.
package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "lessionprm"

// Outcome labels for PaymentCallbacks
const (
	CallbackPaid             = "paid"
	CallbackFailed           = "failed"
	CallbackReplay           = "replay"
	CallbackInvalidSignature = "invalid_signature"
	CallbackRejected         = "rejected"
)

var (
	PaymentCallbacks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payment_callbacks_total",
		Help:      "Provider callbacks by outcome.",
	}, []string{"outcome"})

	InvoiceTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "invoice_transitions_total",
		Help:      "Invoice status changes by source and target status.",
	}, []string{"from", "to"})

	InvoicesExpired = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "invoices_expired_total",
		Help:      "Pending invoices cancelled by the expiry sweep.",
	})

	RateLimitRejections = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ratelimit_rejections_total",
		Help:      "Requests answered with 429.",
	})

	Registry = prometheus.NewRegistry()
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		PaymentCallbacks,
		InvoiceTransitions,
		InvoicesExpired,
		RateLimitRejections,
	)
}

// Transition records an invoice status change
func Transition(from, to string) {
	InvoiceTransitions.WithLabelValues(from, to).Inc()
}

// Handler serves the registry in the prometheus text format
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(Registry, promhttp.HandlerOpts{}))
}
