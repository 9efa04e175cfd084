package models

import (
	"time"

	"github.com/google/uuid"
)

// NotificationType selects the message template
type NotificationType string

const (
	NotificationBookingCreated   NotificationType = "booking_created"
	NotificationPaymentConfirmed NotificationType = "payment_confirmed"
	NotificationPaymentFailed    NotificationType = "payment_failed"
	NotificationJobAssigned      NotificationType = "job_assigned"
	NotificationJobStarted       NotificationType = "job_started"
	NotificationJobCompleted     NotificationType = "job_completed"
	NotificationCarReady         NotificationType = "car_ready"
	NotificationBookingCancelled NotificationType = "booking_cancelled"
)

// NotificationChannel is a delivery medium
type NotificationChannel string

const (
	ChannelEmail    NotificationChannel = "email"
	ChannelWhatsApp NotificationChannel = "whatsapp"
)

// NotificationEvent is the fire-and-forget envelope handed to the dispatcher.
// An empty Channels means email only.
type NotificationEvent struct {
	Type      NotificationType       `json:"type"`
	BookingID uuid.UUID              `json:"bookingId"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Channels  []NotificationChannel  `json:"channels,omitempty"`
}

// IsValid reports whether t has a template
func (t NotificationType) IsValid() bool {
	switch t {
	case NotificationBookingCreated, NotificationPaymentConfirmed, NotificationPaymentFailed,
		NotificationJobAssigned, NotificationJobStarted, NotificationJobCompleted,
		NotificationCarReady, NotificationBookingCancelled:
		return true
	}
	return false
}

// NotificationLog records one delivery attempt
type NotificationLog struct {
	ID        uuid.UUID           `db:"id"`
	UserID    uuid.UUID           `db:"user_id"`
	BookingID uuid.UUID           `db:"booking_id"`
	Template  NotificationType    `db:"template"`
	Channel   NotificationChannel `db:"channel"`
	Recipient string              `db:"recipient"`
	Status    string              `db:"status"`
	Error     string              `db:"error"`
	CreatedAt time.Time           `db:"created_at"`
}

// Notification log statuses
const (
	NotificationStatusSent    = "sent"
	NotificationStatusFailed  = "failed"
	NotificationStatusSkipped = "skipped"
)

// BookingRecipient is the booking and customer data a template needs
type BookingRecipient struct {
	BookingID       uuid.UUID  `db:"booking_id"`
	BookingCode     string     `db:"booking_code"`
	CustomerID      uuid.UUID  `db:"customer_id"`
	CustomerName    string     `db:"customer_name"`
	Email           string     `db:"email"`
	Phone           string     `db:"phone"`
	ServiceName     string     `db:"service_name"`
	ScheduledDate   *time.Time `db:"scheduled_date"`
	ScheduledTime   string     `db:"scheduled_time"`
	LocationAddress string     `db:"location_address"`
	TotalAmount     float64    `db:"total_amount"`
	Currency        string     `db:"currency"`
	DetailerName    string     `db:"detailer_name"`
}

// Message is a rendered notification ready to send
type Message struct {
	Subject string
	HTML    string
	Text    string
}
