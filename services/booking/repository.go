package booking

import (
	"context"

	"github.com/google/uuid"
	"github.com/piresc/trackwash/internal/pkg/models"
)

// BookingUpdate is what a TransitionFunc decides to write
type BookingUpdate struct {
	Status     models.BookingStatus
	Note       string
	ActorID    *uuid.UUID
	DetailerID *uuid.UUID
	Rating     *int
}

// TransitionFunc inspects the locked row and returns the update to apply.
// Returning nil, nil commits without writing.
type TransitionFunc func(current *models.Booking) (*BookingUpdate, error)

// TransitionResult reports what UpdateStatus did. Booking.StatusHistory is the
// full history read under the row lock, ending with any entry this call appended.
type TransitionResult struct {
	Booking *models.Booking
	From    models.BookingStatus
	Applied bool
}

// BookingRepo defines data access for bookings and their activity log
// go:generate mockgen -destination=../mocks/mock_repository.go -package=mocks github.com/piresc/trackwash/services/booking BookingRepo
type BookingRepo interface {
	CreateBooking(ctx context.Context, booking *models.Booking) error
	GetBooking(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error)
	GetStatusHistory(ctx context.Context, bookingID uuid.UUID) ([]models.StatusChange, error)
	// UpdateStatus runs decide under a row lock and appends the history
	// entry in the same transaction
	UpdateStatus(ctx context.Context, bookingID uuid.UUID, decide TransitionFunc) (*TransitionResult, error)
}
