package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/piresc/trackwash/internal/pkg/constants"
	reqctx "github.com/piresc/trackwash/internal/pkg/context"
	"github.com/piresc/trackwash/internal/pkg/logger"
	"github.com/piresc/trackwash/internal/pkg/models"
	natspkg "github.com/piresc/trackwash/internal/pkg/nats"
	"github.com/piresc/trackwash/services/notification"
)

const dispatchTimeout = 2 * time.Minute

// transitionNotifications maps booking statuses to the message sent on entry
var transitionNotifications = map[models.BookingStatus]models.NotificationType{
	models.BookingStatusDetailerAssigned: models.NotificationJobAssigned,
	models.BookingStatusInProgress:       models.NotificationJobStarted,
	models.BookingStatusCompleted:        models.NotificationJobCompleted,
	models.BookingStatusCancelled:        models.NotificationBookingCancelled,
}

// NotificationHandler turns domain events into notifications
type NotificationHandler struct {
	notificationUC notification.NotificationUC
	natsClient     *natspkg.Client
	subs           []*nats.Subscription
}

// NewNotificationHandler creates the NATS consumer
func NewNotificationHandler(uc notification.NotificationUC, client *natspkg.Client) *NotificationHandler {
	return &NotificationHandler{
		notificationUC: uc,
		natsClient:     client,
	}
}

// InitNATSConsumers joins the notification queue group on every input subject
func (h *NotificationHandler) InitNATSConsumers() error {
	handlers := map[string]func(context.Context, []byte) error{
		constants.SubjectBookingCreated:    h.handleBookingCreated,
		constants.SubjectBookingTransition: h.handleBookingTransition,
		constants.SubjectPaymentCompleted:  h.handlePaymentEvent,
		constants.SubjectPaymentFailed:     h.handlePaymentEvent,
		constants.SubjectNotification:      h.handleNotification,
	}

	for subject, handle := range handlers {
		subject, handle := subject, handle
		sub, err := h.natsClient.QueueSubscribe(subject, constants.QueueNotificationService, func(msg *nats.Msg) {
			ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
			defer cancel()
			ctx = reqctx.WithRequestID(ctx, msg.Header.Get(constants.HeaderRequestID))
			if err := handle(ctx, msg.Data); err != nil {
				logger.ErrorCtx(ctx, "Error handling notification event",
					logger.String("subject", subject),
					logger.Err(err))
			}
		})
		if err != nil {
			h.Close()
			return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
		}
		h.subs = append(h.subs, sub)
	}
	return nil
}

// Close unsubscribes from every subject
func (h *NotificationHandler) Close() {
	for _, sub := range h.subs {
		if err := sub.Unsubscribe(); err != nil {
			logger.Warn("Failed to unsubscribe", logger.String("subject", sub.Subject), logger.Err(err))
		}
	}
	h.subs = nil
}

func (h *NotificationHandler) handleBookingCreated(ctx context.Context, data []byte) error {
	var b models.Booking
	if err := json.Unmarshal(data, &b); err != nil {
		return fmt.Errorf("failed to unmarshal booking: %w", err)
	}

	logger.InfoCtx(ctx, "Received booking created event",
		logger.String("booking_id", b.ID.String()),
		logger.String("booking_code", b.BookingCode))

	return h.notificationUC.Dispatch(ctx, models.NotificationEvent{
		Type:      models.NotificationBookingCreated,
		BookingID: b.ID,
	})
}

func (h *NotificationHandler) handleBookingTransition(ctx context.Context, data []byte) error {
	var event models.BookingTransitionEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return fmt.Errorf("failed to unmarshal booking transition: %w", err)
	}

	t, ok := transitionNotifications[event.To]
	if !ok {
		// payment_confirmed is announced by the payment event
		return nil
	}

	logger.InfoCtx(ctx, "Received booking transition event",
		logger.String("booking_id", event.BookingID.String()),
		logger.String("from", string(event.From)),
		logger.String("to", string(event.To)))

	var extra map[string]interface{}
	if event.Note != "" {
		extra = map[string]interface{}{"note": event.Note}
	}
	return h.notificationUC.Dispatch(ctx, models.NotificationEvent{
		Type:      t,
		BookingID: event.BookingID,
		Data:      extra,
	})
}

func (h *NotificationHandler) handlePaymentEvent(ctx context.Context, data []byte) error {
	var event models.PaymentEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return fmt.Errorf("failed to unmarshal payment event: %w", err)
	}

	logger.InfoCtx(ctx, "Received payment event",
		logger.String("booking_id", event.BookingID.String()),
		logger.String("correlation_id", event.CorrelationID),
		logger.String("status", string(event.Status)))

	n := models.NotificationEvent{
		BookingID: event.BookingID,
		Data: map[string]interface{}{
			"amount":   event.Amount,
			"currency": event.Currency,
		},
	}
	switch event.Status {
	case models.PaymentStatusCompleted:
		n.Type = models.NotificationPaymentConfirmed
		if event.Method == models.PaymentMethodCrypto {
			n.Data["txHash"] = event.Receipt
		} else if event.Receipt != "" {
			n.Data["receipt"] = event.Receipt
		}
	case models.PaymentStatusFailed, models.PaymentStatusTimeout:
		n.Type = models.NotificationPaymentFailed
		n.Data["resultDesc"] = event.ResultDesc
	default:
		return fmt.Errorf("unexpected payment status %q", event.Status)
	}
	return h.notificationUC.Dispatch(ctx, n)
}

func (h *NotificationHandler) handleNotification(ctx context.Context, data []byte) error {
	var event models.NotificationEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return fmt.Errorf("failed to unmarshal notification event: %w", err)
	}
	return h.notificationUC.Dispatch(ctx, event)
}
