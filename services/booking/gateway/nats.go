package gateway

import (
	"context"
	"fmt"

	"github.com/piresc/trackwash/internal/pkg/constants"
	"github.com/piresc/trackwash/internal/pkg/logger"
	"github.com/piresc/trackwash/internal/pkg/metrics"
	"github.com/piresc/trackwash/internal/pkg/models"
	natspkg "github.com/piresc/trackwash/internal/pkg/nats"
	"github.com/piresc/trackwash/services/booking"
)

// bookingGW publishes booking events on NATS
type bookingGW struct {
	natsClient *natspkg.Client
	metrics    *metrics.Metrics
}

// NewBookingGW creates the booking event gateway. m may be nil.
func NewBookingGW(client *natspkg.Client, m *metrics.Metrics) booking.BookingGW {
	return &bookingGW{
		natsClient: client,
		metrics:    m,
	}
}

func (g *bookingGW) publish(ctx context.Context, subject string, v interface{}) error {
	err := g.natsClient.PublishJSONCtx(ctx, subject, v)
	g.metrics.EventPublished(subject, err)
	if err != nil {
		logger.ErrorCtx(ctx, "Failed to publish event",
			logger.String("subject", subject),
			logger.Err(err))
		return fmt.Errorf("failed to publish %s: %w", subject, err)
	}
	return nil
}

// PublishBookingCreated publishes the new booking
func (g *bookingGW) PublishBookingCreated(ctx context.Context, b *models.Booking) error {
	return g.publish(ctx, constants.SubjectBookingCreated, b)
}

// PublishBookingTransition publishes a committed status change
func (g *bookingGW) PublishBookingTransition(ctx context.Context, event models.BookingTransitionEvent) error {
	return g.publish(ctx, constants.SubjectBookingTransition, event)
}

// PublishNotification hands an explicit notification request to the dispatcher
func (g *bookingGW) PublishNotification(ctx context.Context, event models.NotificationEvent) error {
	return g.publish(ctx, constants.SubjectNotification, event)
}
