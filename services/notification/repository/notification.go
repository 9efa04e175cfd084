package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/piresc/trackwash/internal/pkg/models"
	"github.com/piresc/trackwash/services/notification"
)

// NotificationRepo implements notification.NotificationRepo on PostgreSQL
type NotificationRepo struct {
	db *sqlx.DB
}

// NewNotificationRepository creates a notification repository
func NewNotificationRepository(db *sqlx.DB) *NotificationRepo {
	return &NotificationRepo{db: db}
}

// GetBookingRecipient loads the booking together with the customer contact,
// service name and assigned detailer
func (r *NotificationRepo) GetBookingRecipient(ctx context.Context, bookingID uuid.UUID) (*models.BookingRecipient, error) {
	query := `
		SELECT b.id AS booking_id, b.booking_code, b.customer_id,
			COALESCE(c.full_name, '') AS customer_name,
			COALESCE(c.email, '') AS email,
			COALESCE(c.phone, '') AS phone,
			COALESCE(s.name, '') AS service_name,
			b.scheduled_date, b.scheduled_time,
			COALESCE(b.location_address, '') AS location_address,
			b.total_amount, b.currency,
			COALESCE(d.full_name, '') AS detailer_name
		FROM bookings b
		LEFT JOIN profiles c ON c.id = b.customer_id
		LEFT JOIN services s ON s.id = b.service_id
		LEFT JOIN profiles d ON d.id = b.detailer_id
		WHERE b.id = $1
	`
	var recipient models.BookingRecipient
	if err := r.db.GetContext(ctx, &recipient, query, bookingID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notification.ErrRecipientNotFound
		}
		return nil, fmt.Errorf("failed to get booking recipient: %w", err)
	}
	return &recipient, nil
}

// InsertLog records one delivery attempt
func (r *NotificationRepo) InsertLog(ctx context.Context, log *models.NotificationLog) error {
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = models.Now()
	}

	query := `
		INSERT INTO notification_logs (id, user_id, booking_id, template, channel, recipient, status, error, created_at)
		VALUES (:id, :user_id, :booking_id, :template, :channel, :recipient, :status, :error, :created_at)
	`
	if _, err := r.db.NamedExecContext(ctx, query, log); err != nil {
		return fmt.Errorf("failed to insert notification log: %w", err)
	}
	return nil
}
