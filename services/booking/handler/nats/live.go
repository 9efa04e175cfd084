package nats

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/piresc/trackwash/internal/pkg/constants"
	"github.com/piresc/trackwash/internal/pkg/logger"
	natspkg "github.com/piresc/trackwash/internal/pkg/nats"
	"github.com/piresc/trackwash/internal/pkg/websocket"
)

// liveSubjects are relayed to websocket subscribers of the booking
var liveSubjects = []string{
	constants.SubjectBookingTransition,
	constants.SubjectPaymentCompleted,
	constants.SubjectPaymentFailed,
}

// LiveFeed relays booking and payment events to the websocket hub.
// Every replica subscribes without a queue group since each holds its own sockets.
type LiveFeed struct {
	natsClient *natspkg.Client
	hub        *websocket.Hub
	subs       []*nats.Subscription
}

// NewLiveFeed creates the relay
func NewLiveFeed(client *natspkg.Client, hub *websocket.Hub) *LiveFeed {
	return &LiveFeed{
		natsClient: client,
		hub:        hub,
	}
}

// Start subscribes to every relayed subject
func (f *LiveFeed) Start() error {
	for _, subject := range liveSubjects {
		sub, err := f.natsClient.Subscribe(subject, f.relay)
		if err != nil {
			f.Close()
			return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
		}
		f.subs = append(f.subs, sub)
	}
	return nil
}

func (f *LiveFeed) relay(msg *nats.Msg) {
	var envelope struct {
		BookingID uuid.UUID `json:"bookingId"`
	}
	if err := json.Unmarshal(msg.Data, &envelope); err != nil || envelope.BookingID == uuid.Nil {
		logger.Warn("Ignoring live event without booking",
			logger.String("subject", msg.Subject))
		return
	}
	f.hub.Broadcast(envelope.BookingID.String(), msg.Subject, json.RawMessage(msg.Data))
}

// Close unsubscribes from every subject
func (f *LiveFeed) Close() {
	for _, sub := range f.subs {
		if err := sub.Unsubscribe(); err != nil {
			logger.Warn("Failed to unsubscribe live feed",
				logger.String("subject", sub.Subject),
				logger.Err(err))
		}
	}
	f.subs = nil
}
