package payment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/piresc/trackwash/internal/pkg/models"
)

// PaymentRepo defines data access for payment attempts.
// TransitionTo is the only way a stored status changes.
// go:generate mockgen -destination=../mocks/mock_repository.go -package=mocks github.com/piresc/trackwash/services/payment PaymentRepo
type PaymentRepo interface {
	Create(ctx context.Context, p *models.Payment) error
	GetByCorrelationID(ctx context.Context, correlationID string) (*models.Payment, error)
	GetProcessingByBookingID(ctx context.Context, bookingID uuid.UUID) (*models.Payment, error)
	ListByBookingID(ctx context.Context, bookingID uuid.UUID) ([]models.Payment, error)
	// TransitionTo moves a processing attempt to a terminal status. applied is
	// false when the attempt was already terminal.
	TransitionTo(ctx context.Context, correlationID string, t models.PaymentTransition) (applied bool, err error)
	// AttachReceipt fills the receipt of a completed attempt that was settled
	// without one. Status is never touched.
	AttachReceipt(ctx context.Context, correlationID, receipt string, paidAt *time.Time) (applied bool, err error)
	ListStaleProcessing(ctx context.Context, createdBefore time.Time, limit int) ([]models.Payment, error)
}
