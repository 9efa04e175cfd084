package booking

import (
	"context"

	"github.com/piresc/trackwash/internal/pkg/models"
)

// BookingGW publishes booking events
// go:generate mockgen -destination=../mocks/mock_gateway.go -package=mocks github.com/piresc/trackwash/services/booking BookingGW
type BookingGW interface {
	PublishBookingCreated(ctx context.Context, booking *models.Booking) error
	PublishBookingTransition(ctx context.Context, event models.BookingTransitionEvent) error
	PublishNotification(ctx context.Context, event models.NotificationEvent) error
}
