// Package reconcile settles M-Pesa attempts whose callback never arrived.
// It asks the booking service for stale processing payments and triggers a
// provider status query for each of them.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	pkghttp "github.com/piresc/trackwash/internal/pkg/http"
	"github.com/piresc/trackwash/internal/pkg/logger"
	"github.com/piresc/trackwash/internal/pkg/metrics"
	"github.com/piresc/trackwash/internal/pkg/models"
	nrpkg "github.com/piresc/trackwash/internal/pkg/newrelic"
	"github.com/piresc/trackwash/internal/pkg/retry"
)

const (
	stalePath     = "/internal/payments/mpesa/stale"
	reconcilePath = "/internal/payments/mpesa/%s/reconcile"
)

type staleEnvelope struct {
	Success bool             `json:"success"`
	Data    []models.Payment `json:"data"`
}

type reconcileEnvelope struct {
	Success bool                         `json:"success"`
	Data    models.PaymentStatusResponse `json:"data"`
}

// Result summarises one sweep
type Result struct {
	Found   int
	Settled int
	Pending int
	Failed  int
}

// Sweeper periodically reconciles stale payments through the booking service
type Sweeper struct {
	lister     *pkghttp.APIKeyClient
	reconciler *pkghttp.EnhancedClient
	cfg        models.ReconcileConfig
	nrApp      *newrelic.Application
	metrics    *metrics.Metrics
}

// NewSweeper builds a sweeper on top of an authenticated booking service client
func NewSweeper(client *pkghttp.APIKeyClient, cfg models.ReconcileConfig, nrApp *newrelic.Application, m *metrics.Metrics) *Sweeper {
	retrier := retry.New(retry.Config{
		MaxRetries: 2,
		BaseDelay:  200 * time.Millisecond,
		MaxDelay:   2 * time.Second,
		Multiplier: 2,
		Jitter:     true,
	}, logger.GetGlobalLogger())

	return &Sweeper{
		lister:     client,
		reconciler: pkghttp.NewEnhancedClient(client.Client, retrier, nil),
		cfg:        cfg,
		nrApp:      nrApp,
		metrics:    m,
	}
}

// Run sweeps immediately and then on every interval until ctx is done
func (s *Sweeper) Run(ctx context.Context) error {
	interval := s.cfg.Interval
	if interval <= 0 {
		interval = time.Minute
	}

	logger.InfoCtx(ctx, "Reconcile sweeper started",
		logger.Duration("interval", interval),
		logger.Duration("stale_after", s.cfg.StaleAfter),
		logger.Int("batch_size", s.cfg.BatchSize))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		s.sweepOnce(ctx)

		select {
		case <-ctx.Done():
			logger.InfoCtx(ctx, "Reconcile sweeper stopped")
			return nil
		case <-ticker.C:
		}
	}
}

func (s *Sweeper) sweepOnce(ctx context.Context) {
	ctx, end := nrpkg.StartBackgroundTransaction(ctx, s.nrApp, "Reconcile.Sweep")
	defer end()

	res, err := s.Sweep(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		nrpkg.NoticeTransactionError(nrpkg.FromContext(ctx), err)
		logger.ErrorCtx(ctx, "Reconcile sweep failed", logger.Err(err))
		return
	}
	if res.Found > 0 {
		logger.InfoCtx(ctx, "Reconcile sweep finished",
			logger.Int("found", res.Found),
			logger.Int("settled", res.Settled),
			logger.Int("pending", res.Pending),
			logger.Int("failed", res.Failed))
	}
}

// Sweep lists stale payments once and reconciles each. A failed item does
// not stop the batch.
func (s *Sweeper) Sweep(ctx context.Context) (Result, error) {
	stale, err := s.listStale(ctx)
	if err != nil {
		s.metrics.Reconcile("sweep_list_error")
		return Result{}, err
	}

	res := Result{Found: len(stale)}
	for _, p := range stale {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}

		status, err := s.reconcile(ctx, p.CorrelationID)
		switch {
		case err != nil:
			res.Failed++
			s.metrics.Reconcile("sweep_error")
			logger.WarnCtx(ctx, "Failed to reconcile payment",
				logger.String("checkout_request_id", p.CorrelationID),
				logger.String("booking_id", p.BookingID.String()),
				logger.Err(err))
		case status.Status.IsTerminal():
			res.Settled++
			s.metrics.Reconcile("sweep_settled")
		default:
			res.Pending++
			s.metrics.Reconcile("sweep_pending")
		}
	}
	return res, nil
}

func (s *Sweeper) listStale(ctx context.Context) ([]models.Payment, error) {
	q := url.Values{}
	if s.cfg.StaleAfter > 0 {
		q.Set("olderThan", s.cfg.StaleAfter.String())
	}
	if s.cfg.BatchSize > 0 {
		q.Set("limit", strconv.Itoa(s.cfg.BatchSize))
	}
	endpoint := stalePath
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}

	var env staleEnvelope
	if err := s.lister.GetJSON(ctx, endpoint, &env); err != nil {
		return nil, fmt.Errorf("failed to list stale payments: %w", err)
	}
	return env.Data, nil
}

func (s *Sweeper) reconcile(ctx context.Context, checkoutRequestID string) (models.PaymentStatusResponse, error) {
	var env reconcileEnvelope
	endpoint := fmt.Sprintf(reconcilePath, url.PathEscape(checkoutRequestID))
	if err := s.reconciler.PostJSON(ctx, endpoint, nil, &env); err != nil {
		return models.PaymentStatusResponse{}, err
	}
	return env.Data, nil
}
