package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/piresc/trackwash/internal/pkg/logger"
	"github.com/piresc/trackwash/internal/pkg/metrics"
	"github.com/piresc/trackwash/internal/pkg/models"
	"github.com/piresc/trackwash/internal/utils"
	"github.com/piresc/trackwash/services/notification"
)

// defaultChannels is used when an event names none
var defaultChannels = []models.NotificationChannel{models.ChannelEmail}

// dispatcher renders notifications and fans them out to the configured senders
type dispatcher struct {
	cfg      *models.Config
	repo     notification.NotificationRepo
	senders  map[models.NotificationChannel]notification.SenderGW
	renderer *renderer
	metrics  *metrics.Metrics
}

// NewNotificationUC creates the dispatcher. Channels without a sender are
// skipped and logged.
func NewNotificationUC(
	cfg *models.Config,
	repo notification.NotificationRepo,
	senders []notification.SenderGW,
	m *metrics.Metrics,
) (notification.NotificationUC, error) {
	r, err := newRenderer()
	if err != nil {
		return nil, err
	}

	byChannel := make(map[models.NotificationChannel]notification.SenderGW, len(senders))
	for _, s := range senders {
		byChannel[s.Channel()] = s
	}

	return &dispatcher{
		cfg:      cfg,
		repo:     repo,
		senders:  byChannel,
		renderer: r,
		metrics:  m,
	}, nil
}

// Dispatch delivers event on each requested channel and records every
// attempt. Delivery errors are joined and returned for logging only.
func (d *dispatcher) Dispatch(ctx context.Context, event models.NotificationEvent) error {
	if !event.Type.IsValid() {
		return fmt.Errorf("%w: %s", notification.ErrUnknownTemplate, event.Type)
	}

	recipient, err := d.repo.GetBookingRecipient(ctx, event.BookingID)
	if err != nil {
		return fmt.Errorf("failed to load recipient for booking %s: %w", event.BookingID, err)
	}

	data := templateData(recipient, event.Data)
	if d.cfg != nil && d.cfg.Notification.AppURL != "" {
		data["bookingURL"] = d.cfg.Notification.AppURL + "/bookings/" + event.BookingID.String()
	}
	msg, err := d.renderer.render(event.Type, data)
	if err != nil {
		return err
	}

	channels := event.Channels
	if len(channels) == 0 {
		channels = defaultChannels
	}

	var errs []error
	for _, ch := range channels {
		if err := d.deliver(ctx, event.Type, ch, recipient, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (d *dispatcher) deliver(
	ctx context.Context,
	t models.NotificationType,
	ch models.NotificationChannel,
	r *models.BookingRecipient,
	msg models.Message,
) error {
	entry := &models.NotificationLog{
		UserID:    r.CustomerID,
		BookingID: r.BookingID,
		Template:  t,
		Channel:   ch,
	}

	sender, ok := d.senders[ch]
	address, addrErr := recipientAddress(ch, r)
	switch {
	case !ok:
		entry.Status = models.NotificationStatusSkipped
		entry.Error = "channel not configured"
	case addrErr != nil:
		entry.Status = models.NotificationStatusSkipped
		entry.Error = addrErr.Error()
	default:
		entry.Recipient = address
		if err := sender.Send(ctx, address, msg); err != nil {
			entry.Status = models.NotificationStatusFailed
			entry.Error = utils.Truncate(err.Error(), 500)
		} else {
			entry.Status = models.NotificationStatusSent
		}
	}

	d.metrics.Notification(string(ch), string(t), entry.Status)
	d.record(ctx, entry)

	switch entry.Status {
	case models.NotificationStatusFailed:
		logger.WarnCtx(ctx, "Notification delivery failed",
			logger.String("booking_id", r.BookingID.String()),
			logger.String("channel", string(ch)),
			logger.String("type", string(t)),
			logger.String("error", entry.Error))
		return fmt.Errorf("%s delivery failed: %s", ch, entry.Error)
	case models.NotificationStatusSkipped:
		logger.InfoCtx(ctx, "Notification skipped",
			logger.String("booking_id", r.BookingID.String()),
			logger.String("channel", string(ch)),
			logger.String("reason", entry.Error))
	default:
		logger.InfoCtx(ctx, "Notification sent",
			logger.String("booking_id", r.BookingID.String()),
			logger.String("channel", string(ch)),
			logger.String("type", string(t)))
	}
	return nil
}

func (d *dispatcher) record(ctx context.Context, entry *models.NotificationLog) {
	if err := d.repo.InsertLog(ctx, entry); err != nil {
		logger.WarnCtx(ctx, "Failed to record notification log",
			logger.String("booking_id", entry.BookingID.String()),
			logger.Err(err))
	}
}

func recipientAddress(ch models.NotificationChannel, r *models.BookingRecipient) (string, error) {
	switch ch {
	case models.ChannelEmail:
		if !utils.IsValidEmail(r.Email) {
			return "", notification.ErrNoRecipient
		}
		return r.Email, nil
	case models.ChannelWhatsApp:
		msisdn, err := utils.ValidateKenyanMSISDN(r.Phone)
		if err != nil {
			return "", notification.ErrNoRecipient
		}
		return msisdn, nil
	}
	return "", fmt.Errorf("unsupported channel %q", ch)
}
