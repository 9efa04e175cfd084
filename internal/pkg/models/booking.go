package models

import (
	"time"

	"github.com/google/uuid"
)

// BookingStatus represents the lifecycle state of a booking
type BookingStatus string

const (
	BookingStatusPendingPayment   BookingStatus = "pending_payment"
	BookingStatusPaymentConfirmed BookingStatus = "payment_confirmed"
	BookingStatusBookingConfirmed BookingStatus = "booking_confirmed"
	BookingStatusDetailerAssigned BookingStatus = "detailer_assigned"
	BookingStatusEnRoute          BookingStatus = "en_route"
	BookingStatusInProgress       BookingStatus = "in_progress"
	BookingStatusCompleted        BookingStatus = "completed"
	BookingStatusRated            BookingStatus = "rated"
	BookingStatusCancelled        BookingStatus = "cancelled"
)

// bookingTransitions is the allowed-transition table. Happy path moves one step
// forward; cancelled is reachable from everything before completed.
var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPendingPayment:   {BookingStatusPaymentConfirmed, BookingStatusCancelled},
	BookingStatusPaymentConfirmed: {BookingStatusBookingConfirmed, BookingStatusCancelled},
	BookingStatusBookingConfirmed: {BookingStatusDetailerAssigned, BookingStatusCancelled},
	BookingStatusDetailerAssigned: {BookingStatusEnRoute, BookingStatusCancelled},
	BookingStatusEnRoute:          {BookingStatusInProgress, BookingStatusCancelled},
	BookingStatusInProgress:       {BookingStatusCompleted, BookingStatusCancelled},
	BookingStatusCompleted:        {BookingStatusRated},
	BookingStatusRated:            {},
	BookingStatusCancelled:        {},
}

// IsValid reports whether s is a member of the closed status set
func (s BookingStatus) IsValid() bool {
	_, ok := bookingTransitions[s]
	return ok
}

// IsTerminal reports whether no further transition is possible
func (s BookingStatus) IsTerminal() bool {
	next, ok := bookingTransitions[s]
	return ok && len(next) == 0
}

// CanTransitionTo reports whether target is reachable from s in one step
func (s BookingStatus) CanTransitionTo(target BookingStatus) bool {
	for _, next := range bookingTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// AllowedTransitions returns a copy of the statuses reachable from s
func (s BookingStatus) AllowedTransitions() []BookingStatus {
	next := bookingTransitions[s]
	out := make([]BookingStatus, len(next))
	copy(out, next)
	return out
}

// AllBookingStatuses lists every status in happy-path order, cancelled last
func AllBookingStatuses() []BookingStatus {
	return []BookingStatus{
		BookingStatusPendingPayment,
		BookingStatusPaymentConfirmed,
		BookingStatusBookingConfirmed,
		BookingStatusDetailerAssigned,
		BookingStatusEnRoute,
		BookingStatusInProgress,
		BookingStatusCompleted,
		BookingStatusRated,
		BookingStatusCancelled,
	}
}

// Booking is a customer's car-wash order
type Booking struct {
	ID            uuid.UUID      `json:"id" db:"id"`
	BookingCode   string         `json:"bookingCode" db:"booking_code"`
	CustomerID    uuid.UUID      `json:"customerId" db:"customer_id"`
	VehicleID     *uuid.UUID     `json:"vehicleId,omitempty" db:"vehicle_id"`
	ServiceID     *uuid.UUID     `json:"serviceId,omitempty" db:"service_id"`
	DetailerID    *uuid.UUID     `json:"detailerId,omitempty" db:"detailer_id"`
	ScheduledDate *time.Time     `json:"scheduledDate,omitempty" db:"scheduled_date"`
	ScheduledTime string         `json:"scheduledTime" db:"scheduled_time"`
	Location      *Location      `json:"location,omitempty"`
	TotalAmount   float64        `json:"totalAmount" db:"total_amount"`
	Currency      string         `json:"currency" db:"currency"`
	Status        BookingStatus  `json:"status" db:"status"`
	Rating        *int           `json:"rating,omitempty" db:"rating"`
	StatusHistory []StatusChange `json:"statusHistory,omitempty"`
	CreatedAt     time.Time      `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time      `json:"updatedAt" db:"updated_at"`
}

// ScheduleASAP marks a booking with no fixed slot
const ScheduleASAP = "asap"

// Location is where the wash takes place
type Location struct {
	Address   string   `json:"address"`
	Area      string   `json:"area,omitempty"`
	Latitude  *float64 `json:"lat,omitempty"`
	Longitude *float64 `json:"lng,omitempty"`
	Geohash   string   `json:"geohash,omitempty"`
}

// StatusChange is one append-only row of a booking's history
type StatusChange struct {
	ID        uuid.UUID     `json:"id" db:"id"`
	BookingID uuid.UUID     `json:"bookingId" db:"booking_id"`
	Status    BookingStatus `json:"status" db:"status"`
	Note      string        `json:"note,omitempty" db:"note"`
	ActorID   *uuid.UUID    `json:"actorId,omitempty" db:"actor_id"`
	CreatedAt time.Time     `json:"createdAt" db:"created_at"`
}

// CreateBookingRequest is the input for a new booking
type CreateBookingRequest struct {
	CustomerID    uuid.UUID  `json:"-"`
	VehicleID     *uuid.UUID `json:"vehicleId,omitempty"`
	ServiceID     *uuid.UUID `json:"serviceId,omitempty"`
	ScheduledDate string     `json:"scheduledDate,omitempty"` // YYYY-MM-DD
	ScheduledTime string     `json:"scheduledTime,omitempty"`
	Location      *Location  `json:"location,omitempty"`
	TotalAmount   float64    `json:"totalAmount"`
	Currency      string     `json:"currency,omitempty"`
}

// TransitionRequest asks the state machine to move a booking
type TransitionRequest struct {
	BookingID    uuid.UUID     `json:"bookingId"`
	TargetStatus BookingStatus `json:"targetStatus"`
	Note         string        `json:"note,omitempty"`
	ActorID      *uuid.UUID    `json:"-"`
}

// AssignDetailerRequest assigns a fulfiller to a confirmed booking
type AssignDetailerRequest struct {
	BookingID  uuid.UUID `json:"-"`
	DetailerID uuid.UUID `json:"detailerId"`
	Note       string    `json:"note,omitempty"`
}

// RateBookingRequest records the customer's rating
type RateBookingRequest struct {
	BookingID uuid.UUID `json:"-"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
}

// BookingTransitionEvent is published after every committed transition
type BookingTransitionEvent struct {
	BookingID   uuid.UUID     `json:"bookingId"`
	BookingCode string        `json:"bookingCode"`
	CustomerID  uuid.UUID     `json:"customerId"`
	From        BookingStatus `json:"from"`
	To          BookingStatus `json:"to"`
	Note        string        `json:"note,omitempty"`
	OccurredAt  time.Time     `json:"occurredAt"`
}
