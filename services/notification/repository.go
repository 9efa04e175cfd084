package notification

import (
	"context"

	"github.com/google/uuid"
	"github.com/piresc/trackwash/internal/pkg/models"
)

// NotificationRepo reads template data and records deliveries
// go:generate mockgen -destination=../mocks/mock_repository.go -package=mocks github.com/piresc/trackwash/services/notification NotificationRepo
type NotificationRepo interface {
	GetBookingRecipient(ctx context.Context, bookingID uuid.UUID) (*models.BookingRecipient, error)
	InsertLog(ctx context.Context, log *models.NotificationLog) error
}
