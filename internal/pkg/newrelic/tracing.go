package newrelic

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/newrelic/go-agent/v3/integrations/nrecho-v4"
	"github.com/newrelic/go-agent/v3/newrelic"
)

// Every helper here accepts a nil transaction so callers never branch on
// whether the agent is enabled.

// FromEchoContext returns the transaction started by nrecho, or nil
func FromEchoContext(c echo.Context) *newrelic.Transaction {
	return nrecho.FromContext(c)
}

// FromContext returns the transaction carried by ctx, or nil
func FromContext(ctx context.Context) *newrelic.Transaction {
	return newrelic.FromContext(ctx)
}

func SetTransactionName(txn *newrelic.Transaction, name string) {
	if txn == nil {
		return
	}
	txn.SetName(name)
}

func AddTransactionAttribute(txn *newrelic.Transaction, key string, value interface{}) {
	if txn == nil {
		return
	}
	txn.AddAttribute(key, value)
}

func NoticeTransactionError(txn *newrelic.Transaction, err error) {
	if txn == nil || err == nil {
		return
	}
	txn.NoticeError(err)
}

// StartBackgroundTransaction starts a non-web transaction for the sweeper
// and other loops. end is always safe to call.
func StartBackgroundTransaction(ctx context.Context, app *newrelic.Application, name string) (_ context.Context, end func()) {
	if app == nil {
		return ctx, func() {}
	}
	txn := app.StartTransaction(name)
	return newrelic.NewContext(ctx, txn), txn.End
}

// WithSegment times fn as a named segment of ctx's transaction
func WithSegment(ctx context.Context, name string, fn func() error) error {
	txn := FromContext(ctx)
	if txn == nil {
		return fn()
	}
	seg := txn.StartSegment(name)
	err := fn()
	seg.End()
	return err
}

// InstrumentHTTPRequest records an outbound call (Daraja, Resend, WhatsApp,
// booking-service) as an external segment
func InstrumentHTTPRequest(ctx context.Context, req *http.Request, do func() (*http.Response, error)) (*http.Response, error) {
	txn := FromContext(ctx)
	if txn == nil {
		return do()
	}

	seg := newrelic.StartExternalSegment(txn, req)
	resp, err := do()
	seg.Response = resp
	seg.End()
	return resp, err
}
