package gateway

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/piresc/trackwash/internal/pkg/constants"
	"github.com/piresc/trackwash/internal/pkg/metrics"
	"github.com/piresc/trackwash/internal/pkg/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	natsserver "github.com/nats-io/nats-server/v2/test"
	natspkg "github.com/piresc/trackwash/internal/pkg/nats"
)

var testNatsServer *server.Server

func TestMain(m *testing.M) {
	opts := natsserver.DefaultTestOptions
	opts.Port = -1
	testNatsServer = natsserver.RunServer(&opts)
	code := m.Run()
	testNatsServer.Shutdown()
	os.Exit(code)
}

func subscribe(t *testing.T, nc *natspkg.Client, subject string) chan *nats.Msg {
	t.Helper()
	msgCh := make(chan *nats.Msg, 1)
	sub, err := nc.Subscribe(subject, func(msg *nats.Msg) {
		msgCh <- msg
	})
	require.NoError(t, err)
	t.Cleanup(func() { sub.Unsubscribe() })
	require.NoError(t, nc.Flush())
	return msgCh
}

func receive(t *testing.T, msgCh chan *nats.Msg, v interface{}) {
	t.Helper()
	select {
	case msg := <-msgCh:
		require.NoError(t, json.Unmarshal(msg.Data, v))
	case <-time.After(2 * time.Second):
		t.Fatal("Did not receive published message")
	}
}

func TestPublishBookingCreated(t *testing.T) {
	nc, err := natspkg.NewClient(testNatsServer.ClientURL(), "booking-test")
	require.NoError(t, err)
	defer nc.Close()

	msgCh := subscribe(t, nc, constants.SubjectBookingCreated)

	b := &models.Booking{
		ID:          uuid.New(),
		BookingCode: "TW-1A2B3C4D",
		CustomerID:  uuid.New(),
		Status:      models.BookingStatusPendingPayment,
		TotalAmount: 1200,
		Currency:    "KES",
	}
	err = NewBookingGW(nc, nil).PublishBookingCreated(context.Background(), b)
	require.NoError(t, err)

	var published models.Booking
	receive(t, msgCh, &published)
	assert.Equal(t, b.ID, published.ID)
	assert.Equal(t, b.BookingCode, published.BookingCode)
	assert.Equal(t, models.BookingStatusPendingPayment, published.Status)
}

func TestPublishBookingTransition(t *testing.T) {
	nc, err := natspkg.NewClient(testNatsServer.ClientURL(), "booking-test")
	require.NoError(t, err)
	defer nc.Close()

	msgCh := subscribe(t, nc, constants.SubjectBookingTransition)

	m := metrics.NewMetrics("test", prometheus.NewRegistry())
	event := models.BookingTransitionEvent{
		BookingID:  uuid.New(),
		CustomerID: uuid.New(),
		From:       models.BookingStatusEnRoute,
		To:         models.BookingStatusInProgress,
		OccurredAt: time.Now().UTC(),
	}
	err = NewBookingGW(nc, m).PublishBookingTransition(context.Background(), event)
	require.NoError(t, err)

	var published models.BookingTransitionEvent
	receive(t, msgCh, &published)
	assert.Equal(t, event.BookingID, published.BookingID)
	assert.Equal(t, models.BookingStatusEnRoute, published.From)
	assert.Equal(t, models.BookingStatusInProgress, published.To)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsPublished.WithLabelValues(constants.SubjectBookingTransition, "ok")))
}

func TestPublishNotification(t *testing.T) {
	nc, err := natspkg.NewClient(testNatsServer.ClientURL(), "booking-test")
	require.NoError(t, err)
	defer nc.Close()

	msgCh := subscribe(t, nc, constants.SubjectNotification)

	event := models.NotificationEvent{
		Type:      models.NotificationCarReady,
		BookingID: uuid.New(),
		Channels:  []models.NotificationChannel{models.ChannelWhatsApp},
	}
	err = NewBookingGW(nc, nil).PublishNotification(context.Background(), event)
	require.NoError(t, err)

	var published models.NotificationEvent
	receive(t, msgCh, &published)
	assert.Equal(t, models.NotificationCarReady, published.Type)
	assert.Equal(t, []models.NotificationChannel{models.ChannelWhatsApp}, published.Channels)
}

func TestPublish_ClosedConnection(t *testing.T) {
	nc, err := natspkg.NewClient(testNatsServer.ClientURL(), "booking-test")
	require.NoError(t, err)
	nc.Close()

	err = NewBookingGW(nc, nil).PublishBookingCreated(context.Background(), &models.Booking{ID: uuid.New()})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), constants.SubjectBookingCreated)
}
