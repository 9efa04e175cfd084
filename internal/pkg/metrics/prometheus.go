package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all prometheus metrics. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	gatherer prometheus.Gatherer

	HTTPRequestDuration *prometheus.HistogramVec
	BookingTransitions  *prometheus.CounterVec
	PaymentInitiations  *prometheus.CounterVec
	PaymentsSettled     *prometheus.CounterVec
	CallbacksReceived   *prometheus.CounterVec
	PollOutcomes        *prometheus.CounterVec
	ReconcileOutcomes   *prometheus.CounterVec
	GatewayLatency      *prometheus.HistogramVec
	CircuitBreakerState *prometheus.GaugeVec
	NotificationsSent   *prometheus.CounterVec
	EventsPublished     *prometheus.CounterVec
}

// NewMetrics registers metrics on reg. Passing nil uses a fresh registry.
func NewMetrics(namespace string, reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	factory := promauto.With(reg)

	return &Metrics{
		gatherer: reg,
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		BookingTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_transitions_total",
			Help:      "Applied booking status transitions",
		}, []string{"from", "to"}),
		PaymentInitiations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_initiations_total",
			Help:      "STK push initiations by outcome",
		}, []string{"outcome"}),
		PaymentsSettled: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_settled_total",
			Help:      "Payments moved to a terminal status",
		}, []string{"method", "status", "source"}),
		CallbacksReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mpesa_callbacks_total",
			Help:      "Daraja callbacks by outcome",
		}, []string{"outcome"}),
		PollOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_poll_outcomes_total",
			Help:      "Status poller results",
		}, []string{"outcome"}),
		ReconcileOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_reconcile_outcomes_total",
			Help:      "Manual and swept reconciliation results",
		}, []string{"outcome"}),
		GatewayLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "mpesa_gateway_request_seconds",
			Help:      "Daraja API latency",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"operation", "result"}),
		CircuitBreakerState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "0 closed, 1 open, 2 half-open",
		}, []string{"name"}),
		NotificationsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notification deliveries by channel and status",
		}, []string{"channel", "type", "status"}),
		EventsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Domain events published to NATS",
		}, []string{"subject", "result"}),
	}
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Register mounts GET /metrics
func (m *Metrics) Register(e *echo.Echo) {
	e.GET("/metrics", echo.WrapHandler(m.Handler()))
}

// EchoMiddleware records request latency labelled by route template
func (m *Metrics) EchoMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if m == nil || c.Path() == "/metrics" {
				return next(c)
			}

			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}

			m.HTTPRequestDuration.
				WithLabelValues(c.Request().Method, c.Path(), strconv.Itoa(status)).
				Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// BookingTransition counts an applied transition
func (m *Metrics) BookingTransition(from, to string) {
	if m == nil {
		return
	}
	m.BookingTransitions.WithLabelValues(from, to).Inc()
}

// PaymentInitiation counts an initiation attempt
func (m *Metrics) PaymentInitiation(outcome string) {
	if m == nil {
		return
	}
	m.PaymentInitiations.WithLabelValues(outcome).Inc()
}

// PaymentSettled counts a CAS win
func (m *Metrics) PaymentSettled(method, status, source string) {
	if m == nil {
		return
	}
	m.PaymentsSettled.WithLabelValues(method, status, source).Inc()
}

// Callback counts a webhook delivery
func (m *Metrics) Callback(outcome string) {
	if m == nil {
		return
	}
	m.CallbacksReceived.WithLabelValues(outcome).Inc()
}

// Poll counts a poller result
func (m *Metrics) Poll(outcome string) {
	if m == nil {
		return
	}
	m.PollOutcomes.WithLabelValues(outcome).Inc()
}

// Reconcile counts a reconciliation result
func (m *Metrics) Reconcile(outcome string) {
	if m == nil {
		return
	}
	m.ReconcileOutcomes.WithLabelValues(outcome).Inc()
}

// ObserveGateway records a Daraja call
func (m *Metrics) ObserveGateway(operation string, err error, d time.Duration) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.GatewayLatency.WithLabelValues(operation, result).Observe(d.Seconds())
}

// SetBreakerState exports a breaker state
func (m *Metrics) SetBreakerState(name string, state int) {
	if m == nil {
		return
	}
	m.CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}

// Notification counts a delivery attempt
func (m *Metrics) Notification(channel, notificationType, status string) {
	if m == nil {
		return
	}
	m.NotificationsSent.WithLabelValues(channel, notificationType, status).Inc()
}

// EventPublished counts a NATS publish
func (m *Metrics) EventPublished(subject string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.EventsPublished.WithLabelValues(subject, result).Inc()
}
