package constants

// NATS Subjects
const (
	// Booking state machine
	SubjectBookingCreated    = "booking.created"
	SubjectBookingTransition = "booking.transition"

	// Payment reconciliation
	SubjectPaymentCompleted = "payment.completed"
	SubjectPaymentFailed    = "payment.failed"

	// Notification dispatcher input
	SubjectNotification = "notification.dispatch"
)

// QueueNotificationService load-balances notification consumers
const QueueNotificationService = "notification-service"

// HeaderRequestID carries the originating request ID on published events
const HeaderRequestID = "X-Request-ID"
