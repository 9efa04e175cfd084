package booking

import (
	"errors"
	"fmt"

	"github.com/piresc/trackwash/internal/pkg/models"
)

var (
	// ErrBookingNotFound is returned for unknown booking ids
	ErrBookingNotFound = errors.New("booking not found")
	// ErrIllegalTransition matches every *IllegalTransitionError
	ErrIllegalTransition = errors.New("illegal booking transition")
	// ErrInvalidBooking wraps request validation failures
	ErrInvalidBooking = errors.New("invalid booking request")
	// ErrInvalidRating is returned for ratings outside 1..5
	ErrInvalidRating = errors.New("rating must be between 1 and 5")
)

// IllegalTransitionError carries the rejected edge
type IllegalTransitionError struct {
	From models.BookingStatus
	To   models.BookingStatus
}

func (e *IllegalTransitionError) Error() string {
	if !e.To.IsValid() {
		return fmt.Sprintf("%s: unknown status %q", ErrIllegalTransition, e.To)
	}
	return fmt.Sprintf("%s: %s -> %s", ErrIllegalTransition, e.From, e.To)
}

// Is makes errors.Is(err, ErrIllegalTransition) hold
func (e *IllegalTransitionError) Is(target error) bool {
	return target == ErrIllegalTransition
}
