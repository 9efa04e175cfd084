package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/piresc/trackwash/internal/pkg/logger"
	"github.com/piresc/trackwash/internal/pkg/metrics"
	"github.com/piresc/trackwash/internal/pkg/models"
	"github.com/piresc/trackwash/internal/utils"
	"github.com/piresc/trackwash/services/booking"
)

const (
	defaultCurrency  = "KES"
	cancelledByUser  = "Cancelled by user"
	bookingCodeChars = 8
)

// bookingUC implements booking.BookingUC
type bookingUC struct {
	cfg         *models.Config
	bookingRepo booking.BookingRepo
	bookingGW   booking.BookingGW
	metrics     *metrics.Metrics
}

// NewBookingUC creates the booking use case. m may be nil.
func NewBookingUC(
	cfg *models.Config,
	bookingRepo booking.BookingRepo,
	bookingGW booking.BookingGW,
	m *metrics.Metrics,
) (booking.BookingUC, error) {
	return &bookingUC{
		cfg:         cfg,
		bookingRepo: bookingRepo,
		bookingGW:   bookingGW,
		metrics:     m,
	}, nil
}

// CreateBooking stores a new booking in pending_payment
func (uc *bookingUC) CreateBooking(ctx context.Context, req models.CreateBookingRequest) (*models.Booking, error) {
	if req.CustomerID == uuid.Nil {
		return nil, fmt.Errorf("%w: customer is required", booking.ErrInvalidBooking)
	}
	if req.TotalAmount <= 0 {
		return nil, fmt.Errorf("%w: total amount must be positive", booking.ErrInvalidBooking)
	}

	now := models.Now()
	id := uuid.New()
	b := &models.Booking{
		ID:            id,
		BookingCode:   "TW-" + utils.ShortRef(id.String(), bookingCodeChars),
		CustomerID:    req.CustomerID,
		VehicleID:     req.VehicleID,
		ServiceID:     req.ServiceID,
		ScheduledTime: strings.TrimSpace(req.ScheduledTime),
		Location:      req.Location,
		TotalAmount:   req.TotalAmount,
		Currency:      strings.ToUpper(strings.TrimSpace(req.Currency)),
		Status:        models.BookingStatusPendingPayment,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if req.ScheduledDate != "" {
		d, err := time.Parse("2006-01-02", req.ScheduledDate)
		if err != nil {
			return nil, fmt.Errorf("%w: scheduledDate must be YYYY-MM-DD", booking.ErrInvalidBooking)
		}
		b.ScheduledDate = &d
	}
	if b.ScheduledTime == "" {
		b.ScheduledTime = models.ScheduleASAP
	}
	if b.Currency == "" {
		b.Currency = uc.currency()
	}
	if err := utils.AnnotateLocation(b.Location); err != nil {
		return nil, fmt.Errorf("%w: %v", booking.ErrInvalidBooking, err)
	}

	b.StatusHistory = []models.StatusChange{{
		ID:        uuid.New(),
		BookingID: id,
		Status:    models.BookingStatusPendingPayment,
		Note:      "Booking created",
		ActorID:   &req.CustomerID,
		CreatedAt: now,
	}}

	if err := uc.bookingRepo.CreateBooking(ctx, b); err != nil {
		logger.ErrorCtx(ctx, "Failed to create booking",
			logger.Stringer("customer_id", req.CustomerID),
			logger.Err(err))
		return nil, err
	}

	if err := uc.bookingGW.PublishBookingCreated(ctx, b); err != nil {
		logger.WarnCtx(ctx, "Failed to publish booking created event",
			logger.Stringer("booking_id", b.ID),
			logger.Err(err))
	}

	logger.InfoCtx(ctx, "Booking created",
		logger.Stringer("booking_id", b.ID),
		logger.String("booking_code", b.BookingCode))
	return b, nil
}

func (uc *bookingUC) currency() string {
	if uc.cfg != nil && uc.cfg.Payment.Currency != "" {
		return uc.cfg.Payment.Currency
	}
	return defaultCurrency
}

// GetBooking returns the booking with its full status history
func (uc *bookingUC) GetBooking(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error) {
	b, err := uc.bookingRepo.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	history, err := uc.bookingRepo.GetStatusHistory(ctx, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to load status history: %w", err)
	}
	b.StatusHistory = history
	return b, nil
}

// ApplyTransition moves a booking along the allowed-transition table.
// Requesting the current status is a no-op.
func (uc *bookingUC) ApplyTransition(ctx context.Context, req models.TransitionRequest) (*models.Booking, error) {
	target := req.TargetStatus
	return uc.transition(ctx, req.BookingID, func(current *models.Booking) (*booking.BookingUpdate, error) {
		if current.Status == target {
			return nil, nil
		}
		if !current.Status.CanTransitionTo(target) {
			return nil, &booking.IllegalTransitionError{From: current.Status, To: target}
		}
		return &booking.BookingUpdate{Status: target, Note: req.Note, ActorID: req.ActorID}, nil
	})
}

// CancelBooking moves any non-finished booking to cancelled
func (uc *bookingUC) CancelBooking(ctx context.Context, bookingID uuid.UUID, actorID *uuid.UUID) (*models.Booking, error) {
	return uc.ApplyTransition(ctx, models.TransitionRequest{
		BookingID:    bookingID,
		TargetStatus: models.BookingStatusCancelled,
		Note:         cancelledByUser,
		ActorID:      actorID,
	})
}

// AssignDetailer records the fulfiller and moves the booking to detailer_assigned
func (uc *bookingUC) AssignDetailer(ctx context.Context, req models.AssignDetailerRequest) (*models.Booking, error) {
	if req.DetailerID == uuid.Nil {
		return nil, fmt.Errorf("%w: detailerId is required", booking.ErrInvalidBooking)
	}

	detailerID := req.DetailerID
	note := req.Note
	if note == "" {
		note = "Detailer assigned"
	}

	return uc.transition(ctx, req.BookingID, func(current *models.Booking) (*booking.BookingUpdate, error) {
		target := models.BookingStatusDetailerAssigned
		if current.Status == target && current.DetailerID != nil && *current.DetailerID == detailerID {
			return nil, nil
		}
		if !current.Status.CanTransitionTo(target) {
			return nil, &booking.IllegalTransitionError{From: current.Status, To: target}
		}
		return &booking.BookingUpdate{Status: target, Note: note, DetailerID: &detailerID}, nil
	})
}

// RateBooking stores the customer's 1-5 rating and closes the booking
func (uc *bookingUC) RateBooking(ctx context.Context, req models.RateBookingRequest) (*models.Booking, error) {
	if req.Rating < 1 || req.Rating > 5 {
		return nil, booking.ErrInvalidRating
	}

	rating := req.Rating
	note := req.Comment
	if note == "" {
		note = fmt.Sprintf("Rated %d/5", rating)
	}

	return uc.transition(ctx, req.BookingID, func(current *models.Booking) (*booking.BookingUpdate, error) {
		target := models.BookingStatusRated
		if !current.Status.CanTransitionTo(target) {
			return nil, &booking.IllegalTransitionError{From: current.Status, To: target}
		}
		return &booking.BookingUpdate{Status: target, Note: note, Rating: &rating}, nil
	})
}

// RequestNotification asks the dispatcher to send a templated message about a booking
func (uc *bookingUC) RequestNotification(ctx context.Context, bookingID uuid.UUID, notificationType models.NotificationType, data map[string]interface{}) error {
	if !notificationType.IsValid() {
		return fmt.Errorf("%w: unknown notification type %q", booking.ErrInvalidBooking, notificationType)
	}
	if _, err := uc.bookingRepo.GetBooking(ctx, bookingID); err != nil {
		return err
	}

	return uc.bookingGW.PublishNotification(ctx, models.NotificationEvent{
		Type:      notificationType,
		BookingID: bookingID,
		Data:      data,
	})
}

// transition runs decide under the booking row lock and publishes the
// resulting event once the write has committed
func (uc *bookingUC) transition(ctx context.Context, bookingID uuid.UUID, decide booking.TransitionFunc) (*models.Booking, error) {
	result, err := uc.bookingRepo.UpdateStatus(ctx, bookingID, decide)
	if err != nil {
		return nil, err
	}
	if !result.Applied {
		return result.Booking, nil
	}

	b := result.Booking
	uc.metrics.BookingTransition(string(result.From), string(b.Status))

	last := models.StatusChange{}
	if n := len(b.StatusHistory); n > 0 {
		last = b.StatusHistory[n-1]
	}

	event := models.BookingTransitionEvent{
		BookingID:   b.ID,
		BookingCode: b.BookingCode,
		CustomerID:  b.CustomerID,
		From:        result.From,
		To:          b.Status,
		Note:        last.Note,
		OccurredAt:  b.UpdatedAt,
	}
	if err := uc.bookingGW.PublishBookingTransition(ctx, event); err != nil {
		logger.WarnCtx(ctx, "Failed to publish booking transition event",
			logger.Stringer("booking_id", b.ID),
			logger.String("to", string(b.Status)),
			logger.Err(err))
	}

	logger.InfoCtx(ctx, "Booking transitioned",
		logger.Stringer("booking_id", b.ID),
		logger.String("from", string(result.From)),
		logger.String("to", string(b.Status)))
	return b, nil
}
