package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	m := NewMetrics("trackwash", prometheus.NewRegistry())

	m.PaymentInitiation("accepted")
	m.PaymentInitiation("accepted")
	m.Callback("duplicate")
	m.BookingTransition("pending_payment", "payment_confirmed")
	m.PaymentSettled("mpesa", "completed", "callback")
	m.Poll("timeout")
	m.Reconcile("still_processing")
	m.Notification("email", "payment_confirmed", "sent")
	m.EventPublished("booking.transition", errors.New("nats down"))
	m.ObserveGateway("stk_push", nil, 150*time.Millisecond)
	m.SetBreakerState("mpesa", 1)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.PaymentInitiations.WithLabelValues("accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CallbacksReceived.WithLabelValues("duplicate")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BookingTransitions.WithLabelValues("pending_payment", "payment_confirmed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsPublished.WithLabelValues("booking.transition", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CircuitBreakerState.WithLabelValues("mpesa")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.PaymentInitiation("accepted")
	m.Callback("completed")
	m.BookingTransition("a", "b")
	m.PaymentSettled("mpesa", "failed", "callback")
	m.Poll("completed")
	m.Reconcile("applied")
	m.Notification("whatsapp", "car_ready", "failed")
	m.EventPublished("x", nil)
	m.ObserveGateway("oauth", nil, time.Second)
	m.SetBreakerState("mpesa", 0)

	e := echo.New()
	e.Use(m.EchoMiddleware())
	e.GET("/ok", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestEchoMiddlewareAndHandler(t *testing.T) {
	m := NewMetrics("trackwash", nil)

	e := echo.New()
	e.Use(m.EchoMiddleware())
	m.Register(e)
	e.GET("/api/v1/bookings/:bookingID", func(c echo.Context) error { return c.NoContent(http.StatusNotFound) })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/bookings/abc", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	assert.Equal(t, 1, testutil.CollectAndCount(m.HTTPRequestDuration))

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `trackwash_http_request_duration_seconds_count{method="GET",route="/api/v1/bookings/:bookingID",status="404"} 1`)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
