package gateway

import (
	"context"
	"fmt"

	"github.com/piresc/trackwash/internal/pkg/constants"
	"github.com/piresc/trackwash/internal/pkg/logger"
	"github.com/piresc/trackwash/internal/pkg/metrics"
	"github.com/piresc/trackwash/internal/pkg/models"
	natspkg "github.com/piresc/trackwash/internal/pkg/nats"
	"github.com/piresc/trackwash/services/payment"
)

type paymentEventGW struct {
	natsClient *natspkg.Client
	metrics    *metrics.Metrics
}

// NewPaymentEventGW creates the NATS publisher for settled payments
func NewPaymentEventGW(client *natspkg.Client, m *metrics.Metrics) payment.PaymentEventGW {
	return &paymentEventGW{
		natsClient: client,
		metrics:    m,
	}
}

func (g *paymentEventGW) publish(ctx context.Context, subject string, event models.PaymentEvent) error {
	err := g.natsClient.PublishJSONCtx(ctx, subject, event)
	g.metrics.EventPublished(subject, err)
	if err != nil {
		logger.ErrorCtx(ctx, "Failed to publish payment event",
			logger.String("subject", subject),
			logger.String("correlation_id", event.CorrelationID),
			logger.Err(err))
		return fmt.Errorf("failed to publish %s: %w", subject, err)
	}
	return nil
}

func (g *paymentEventGW) PublishPaymentCompleted(ctx context.Context, event models.PaymentEvent) error {
	return g.publish(ctx, constants.SubjectPaymentCompleted, event)
}

func (g *paymentEventGW) PublishPaymentFailed(ctx context.Context, event models.PaymentEvent) error {
	return g.publish(ctx, constants.SubjectPaymentFailed, event)
}
