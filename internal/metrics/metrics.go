package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/go_pos/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pos"

// Metrics holds every collector the service exports. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	latencyMS       *prometheus.HistogramVec
	salesCompleted  *prometheus.CounterVec
	salesAmount     *prometheus.CounterVec
	cartMutations   *prometheus.CounterVec
	checkoutResults *prometheus.CounterVec
	outboxEvents    *prometheus.CounterVec
}

func New(service string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: service,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"handler", "method", "status"}),
		latencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: service,
			Name:      "http_request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"handler"}),
		salesCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: service,
			Name:      "sales_completed_total",
			Help:      "Sales recorded, by payment method.",
		}, []string{"payment_method"}),
		salesAmount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: service,
			Name:      "sales_amount_total",
			Help:      "Sum of recorded sale totals, by payment method.",
		}, []string{"payment_method"}),
		cartMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: service,
			Name:      "cart_mutations_total",
			Help:      "Cart operations applied through POS sessions.",
		}, []string{"operation"}),
		checkoutResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: service,
			Name:      "checkout_transitions_total",
			Help:      "Checkout flow actions, by action and outcome.",
		}, []string{"action", "result"}),
		outboxEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: service,
			Name:      "outbox_events_total",
			Help:      "Outbox events handled by the publisher, by result.",
		}, []string{"result"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests, m.latencyMS,
		m.salesCompleted, m.salesAmount,
		m.cartMutations, m.checkoutResults,
		m.outboxEvents,
	)
	return m
}

// Registry exposes the underlying registry, mostly for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveRequest(handler, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(handler, method, strconv.Itoa(status)).Inc()
	m.latencyMS.WithLabelValues(handler).Observe(float64(elapsed.Milliseconds()))
}

func (m *Metrics) ObserveSale(sale *domain.Sale) {
	if m == nil || sale == nil {
		return
	}
	method := sale.PaymentMethod.String()
	m.salesCompleted.WithLabelValues(method).Inc()
	m.salesAmount.WithLabelValues(method).Add(sale.Total.InexactFloat64())
}

func (m *Metrics) CartMutation(operation string) {
	if m == nil {
		return
	}
	m.cartMutations.WithLabelValues(operation).Inc()
}

func (m *Metrics) CheckoutAction(action string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.checkoutResults.WithLabelValues(action, result).Inc()
}

func (m *Metrics) OutboxEvent(result string) {
	if m == nil {
		return
	}
	m.outboxEvents.WithLabelValues(result).Inc()
}

// RegisterSessionGauge exports the number of live POS sessions as reported by fn.
func (m *Metrics) RegisterSessionGauge(service string, fn func() float64) {
	if m == nil {
		return
	}
	m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: service,
		Name:      "active_sessions",
		Help:      "POS sessions currently held in memory.",
	}, fn))
}
