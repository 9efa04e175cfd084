package poller

import (
	"context"
	"time"

	"github.com/piresc/trackwash/internal/pkg/logger"
	"github.com/piresc/trackwash/internal/pkg/metrics"
	"github.com/piresc/trackwash/internal/pkg/models"
	nrpkg "github.com/piresc/trackwash/internal/pkg/newrelic"
)

const (
	DefaultAttempts = 24
	DefaultInterval = 2500 * time.Millisecond
)

// StatusQuerier reads the stored status of a payment attempt
type StatusQuerier interface {
	GetPaymentStatus(ctx context.Context, checkoutRequestID string) (*models.PaymentStatusResponse, error)
}

// Poller waits for a payment attempt to reach a terminal status. It only
// reads; settling is left to the webhook and reconciliation paths.
type Poller struct {
	Attempts int
	Interval time.Duration

	querier StatusQuerier
	metrics *metrics.Metrics
}

// New creates a poller over querier. Zero attempts or interval take the defaults.
func New(querier StatusQuerier, cfg models.PaymentConfig, m *metrics.Metrics) *Poller {
	p := &Poller{
		Attempts: cfg.PollAttempts,
		Interval: cfg.PollInterval,
		querier:  querier,
		metrics:  m,
	}
	if p.Attempts <= 0 {
		p.Attempts = DefaultAttempts
	}
	if p.Interval <= 0 {
		p.Interval = DefaultInterval
	}
	return p
}

// Await polls until the attempt is terminal, attempts run out or ctx ends.
// Running out yields a synthetic timeout and leaves the stored attempt as is.
func (p *Poller) Await(ctx context.Context, checkoutRequestID string) (*models.PaymentStatusResponse, error) {
	var last *models.PaymentStatusResponse

	for attempt := 1; attempt <= p.Attempts; attempt++ {
		var status *models.PaymentStatusResponse
		err := nrpkg.WithSegment(ctx, "Poller.CheckStatus", func() (err error) {
			status, err = p.querier.GetPaymentStatus(ctx, checkoutRequestID)
			return err
		})
		switch {
		case err != nil:
			if ctx.Err() != nil {
				p.metrics.Poll("cancelled")
				return nil, ctx.Err()
			}
			logger.WarnCtx(ctx, "Payment status check failed",
				logger.String("checkout_request_id", checkoutRequestID),
				logger.Int("attempt", attempt),
				logger.Err(err))
		case status.Status.IsTerminal():
			p.metrics.Poll(string(status.Status))
			return status, nil
		default:
			last = status
		}

		if attempt == p.Attempts {
			break
		}

		timer := time.NewTimer(p.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			p.metrics.Poll("cancelled")
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	p.metrics.Poll("exhausted")
	logger.InfoCtx(ctx, "Payment still processing after polling",
		logger.String("checkout_request_id", checkoutRequestID),
		logger.Int("attempts", p.Attempts))

	timedOut := &models.PaymentStatusResponse{
		CheckoutRequestID: checkoutRequestID,
		Status:            models.PaymentStatusTimeout,
		ResultDesc:        "Payment confirmation timed out",
	}
	if last != nil {
		timedOut.BookingID = last.BookingID
		timedOut.Amount = last.Amount
	}
	return timedOut, nil
}
