package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/piresc/trackwash/internal/pkg/models"
	"github.com/piresc/trackwash/services/booking"
)

const selectBooking = `
	SELECT id, booking_code, customer_id, vehicle_id, service_id, detailer_id,
		scheduled_date, scheduled_time, location_address, location_area,
		latitude, longitude, geohash, total_amount, currency, status, rating,
		created_at, updated_at
	FROM bookings`

// BookingRepo implements booking.BookingRepo on PostgreSQL
type BookingRepo struct {
	cfg *models.Config
	db  *sqlx.DB
}

// NewBookingRepository creates a booking repository
func NewBookingRepository(cfg *models.Config, db *sqlx.DB) *BookingRepo {
	return &BookingRepo{
		cfg: cfg,
		db:  db,
	}
}

// bookingRow flattens the location columns
type bookingRow struct {
	ID              uuid.UUID            `db:"id"`
	BookingCode     string               `db:"booking_code"`
	CustomerID      uuid.UUID            `db:"customer_id"`
	VehicleID       *uuid.UUID           `db:"vehicle_id"`
	ServiceID       *uuid.UUID           `db:"service_id"`
	DetailerID      *uuid.UUID           `db:"detailer_id"`
	ScheduledDate   *time.Time           `db:"scheduled_date"`
	ScheduledTime   string               `db:"scheduled_time"`
	LocationAddress *string              `db:"location_address"`
	LocationArea    *string              `db:"location_area"`
	Latitude        *float64             `db:"latitude"`
	Longitude       *float64             `db:"longitude"`
	Geohash         *string              `db:"geohash"`
	TotalAmount     float64              `db:"total_amount"`
	Currency        string               `db:"currency"`
	Status          models.BookingStatus `db:"status"`
	Rating          *int                 `db:"rating"`
	CreatedAt       time.Time            `db:"created_at"`
	UpdatedAt       time.Time            `db:"updated_at"`
}

func (r *bookingRow) toModel() *models.Booking {
	b := &models.Booking{
		ID:            r.ID,
		BookingCode:   r.BookingCode,
		CustomerID:    r.CustomerID,
		VehicleID:     r.VehicleID,
		ServiceID:     r.ServiceID,
		DetailerID:    r.DetailerID,
		ScheduledDate: r.ScheduledDate,
		ScheduledTime: r.ScheduledTime,
		TotalAmount:   r.TotalAmount,
		Currency:      r.Currency,
		Status:        r.Status,
		Rating:        r.Rating,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
	if r.LocationAddress != nil || r.Latitude != nil {
		loc := &models.Location{Latitude: r.Latitude, Longitude: r.Longitude}
		if r.LocationAddress != nil {
			loc.Address = *r.LocationAddress
		}
		if r.LocationArea != nil {
			loc.Area = *r.LocationArea
		}
		if r.Geohash != nil {
			loc.Geohash = *r.Geohash
		}
		b.Location = loc
	}
	return b
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// CreateBooking inserts the booking and its initial history rows in one transaction
func (r *BookingRepo) CreateBooking(ctx context.Context, b *models.Booking) error {
	var address, area, hash *string
	var lat, lng *float64
	if b.Location != nil {
		address = nullable(b.Location.Address)
		area = nullable(b.Location.Area)
		hash = nullable(b.Location.Geohash)
		lat, lng = b.Location.Latitude, b.Location.Longitude
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO bookings (
			id, booking_code, customer_id, vehicle_id, service_id,
			scheduled_date, scheduled_time, location_address, location_area,
			latitude, longitude, geohash, total_amount, currency, status,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`
	_, err = tx.ExecContext(ctx, query,
		b.ID, b.BookingCode, b.CustomerID, b.VehicleID, b.ServiceID,
		b.ScheduledDate, b.ScheduledTime, address, area,
		lat, lng, hash, b.TotalAmount, b.Currency, b.Status,
		b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert booking: %w", err)
	}

	for _, change := range b.StatusHistory {
		if err := insertStatusChange(ctx, tx, change); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit booking: %w", err)
	}
	return nil
}

func insertStatusChange(ctx context.Context, tx *sqlx.Tx, change models.StatusChange) error {
	query := `
		INSERT INTO booking_activity_logs (id, booking_id, status, note, actor_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := tx.ExecContext(ctx, query,
		change.ID, change.BookingID, change.Status, change.Note, change.ActorID, change.CreatedAt,
	); err != nil {
		return fmt.Errorf("failed to append status history: %w", err)
	}
	return nil
}

// GetBooking retrieves a booking by ID without its history
func (r *BookingRepo) GetBooking(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error) {
	var row bookingRow
	err := r.db.GetContext(ctx, &row, selectBooking+" WHERE id = $1", bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, booking.ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return row.toModel(), nil
}

// GetStatusHistory returns the booking's history oldest first
func (r *BookingRepo) GetStatusHistory(ctx context.Context, bookingID uuid.UUID) ([]models.StatusChange, error) {
	return statusHistory(ctx, r.db, bookingID)
}

// statusHistory orders by seq. Entries for one booking are inserted under its
// row lock, so seq follows commit order whatever the writers' clocks say.
func statusHistory(ctx context.Context, q sqlx.QueryerContext, bookingID uuid.UUID) ([]models.StatusChange, error) {
	query := `
		SELECT id, booking_id, status, note, actor_id, created_at
		FROM booking_activity_logs
		WHERE booking_id = $1
		ORDER BY seq ASC
	`
	history := []models.StatusChange{}
	if err := sqlx.SelectContext(ctx, q, &history, query, bookingID); err != nil {
		return nil, fmt.Errorf("failed to get status history: %w", err)
	}
	return history, nil
}

// UpdateStatus locks the booking row, lets decide choose the update, then
// writes the status and the history entry before releasing the lock
func (r *BookingRepo) UpdateStatus(ctx context.Context, bookingID uuid.UUID, decide booking.TransitionFunc) (*booking.TransitionResult, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var row bookingRow
	if err := tx.GetContext(ctx, &row, selectBooking+" WHERE id = $1 FOR UPDATE", bookingID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, booking.ErrBookingNotFound
		}
		return nil, fmt.Errorf("failed to lock booking: %w", err)
	}
	current := row.toModel()
	from := current.Status

	update, err := decide(current)
	if err != nil {
		return nil, err
	}
	if update == nil {
		if current.StatusHistory, err = statusHistory(ctx, tx, bookingID); err != nil {
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit: %w", err)
		}
		return &booking.TransitionResult{Booking: current, From: from}, nil
	}

	now := models.Now()
	query := `
		UPDATE bookings
		SET status = $2,
			detailer_id = COALESCE($3, detailer_id),
			rating = COALESCE($4, rating),
			updated_at = $5
		WHERE id = $1
	`
	if _, err := tx.ExecContext(ctx, query, bookingID, update.Status, update.DetailerID, update.Rating, now); err != nil {
		return nil, fmt.Errorf("failed to update booking status: %w", err)
	}

	change := models.StatusChange{
		ID:        uuid.New(),
		BookingID: bookingID,
		Status:    update.Status,
		Note:      update.Note,
		ActorID:   update.ActorID,
		CreatedAt: now,
	}
	if err := insertStatusChange(ctx, tx, change); err != nil {
		return nil, err
	}
	history, err := statusHistory(ctx, tx, bookingID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transition: %w", err)
	}

	current.Status = update.Status
	current.UpdatedAt = now
	if update.DetailerID != nil {
		current.DetailerID = update.DetailerID
	}
	if update.Rating != nil {
		current.Rating = update.Rating
	}
	current.StatusHistory = history

	return &booking.TransitionResult{Booking: current, From: from, Applied: true}, nil
}
