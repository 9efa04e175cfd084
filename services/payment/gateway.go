package payment

import (
	"context"

	"github.com/google/uuid"
	"github.com/piresc/trackwash/internal/pkg/models"
)

// MpesaGW talks to the Daraja STK push API
// go:generate mockgen -destination=../mocks/mock_gateway.go -package=mocks github.com/piresc/trackwash/services/payment MpesaGW,PaymentEventGW,BookingGW
type MpesaGW interface {
	InitiatePushPayment(ctx context.Context, req models.STKPushRequest) (*models.STKPushResult, error)
	QueryPushPayment(ctx context.Context, checkoutRequestID string) (*models.STKQueryResult, error)
}

// PaymentEventGW publishes settled payments
type PaymentEventGW interface {
	PublishPaymentCompleted(ctx context.Context, event models.PaymentEvent) error
	PublishPaymentFailed(ctx context.Context, event models.PaymentEvent) error
}

// BookingGW is the part of the booking state machine payments drive.
// booking.BookingUC satisfies it in-process.
type BookingGW interface {
	GetBooking(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error)
	ApplyTransition(ctx context.Context, req models.TransitionRequest) (*models.Booking, error)
}
