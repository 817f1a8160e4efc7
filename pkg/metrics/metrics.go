package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "storefront"

// Pipeline groups the collectors the fulfillment pipeline reports to.
type Pipeline struct {
	Requests      *prometheus.CounterVec
	LatencyMS     *prometheus.HistogramVec
	Fulfillments  *prometheus.CounterVec
	ShippingQuote *prometheus.CounterVec
	Payments      *prometheus.CounterVec
	Notifications *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Pipeline {
	p := &Pipeline{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"handler", "status"}),
		LatencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"handler"}),
		Fulfillments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fulfillments_total",
			Help:      "Fulfillment requests processed, by outcome.",
		}, []string{"outcome"}),
		ShippingQuote: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shipping_quotes_total",
			Help:      "Shipping quotes resolved, by pricing tier.",
		}, []string{"tier"}),
		Payments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_captures_total",
			Help:      "Payment capture attempts, by result.",
		}, []string{"result"}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Customer notifications, by kind and result.",
		}, []string{"kind", "result"}),
	}
	reg.MustRegister(p.Requests, p.LatencyMS, p.Fulfillments, p.ShippingQuote, p.Payments, p.Notifications)
	return p
}

// NewNop returns collectors registered nowhere. Tests and tools use it.
func NewNop() *Pipeline {
	return New(prometheus.NewRegistry())
}

func Handler() http.Handler {
	return promhttp.Handler()
}
