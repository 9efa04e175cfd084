package booking

import (
	"context"

	"github.com/google/uuid"
	"github.com/piresc/trackwash/internal/pkg/models"
)

// BookingUC defines the booking state machine and the operations built on it
// go:generate mockgen -destination=../mocks/mock_usecase.go -package=mocks github.com/piresc/trackwash/services/booking BookingUC
type BookingUC interface {
	CreateBooking(ctx context.Context, req models.CreateBookingRequest) (*models.Booking, error)
	GetBooking(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error)
	ApplyTransition(ctx context.Context, req models.TransitionRequest) (*models.Booking, error)
	CancelBooking(ctx context.Context, bookingID uuid.UUID, actorID *uuid.UUID) (*models.Booking, error)
	AssignDetailer(ctx context.Context, req models.AssignDetailerRequest) (*models.Booking, error)
	RateBooking(ctx context.Context, req models.RateBookingRequest) (*models.Booking, error)
	RequestNotification(ctx context.Context, bookingID uuid.UUID, notificationType models.NotificationType, data map[string]interface{}) error
}
