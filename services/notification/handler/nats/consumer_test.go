package nats

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/nats-io/nats-server/v2/server"
	natsserver "github.com/nats-io/nats-server/v2/test"
	"github.com/piresc/trackwash/internal/pkg/constants"
	"github.com/piresc/trackwash/internal/pkg/models"
	natspkg "github.com/piresc/trackwash/internal/pkg/nats"
	"github.com/piresc/trackwash/services/notification/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
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

func setup(t *testing.T) (*natspkg.Client, *mocks.MockNotificationUC, chan models.NotificationEvent) {
	t.Helper()
	client, err := natspkg.NewClient(testNatsServer.ClientURL(), "notification-test")
	require.NoError(t, err)
	t.Cleanup(client.Close)

	ctrl := gomock.NewController(t)
	uc := mocks.NewMockNotificationUC(ctrl)
	dispatched := make(chan models.NotificationEvent, 4)
	uc.EXPECT().Dispatch(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, e models.NotificationEvent) error {
			dispatched <- e
			return nil
		}).AnyTimes()

	h := NewNotificationHandler(uc, client)
	require.NoError(t, h.InitNATSConsumers())
	t.Cleanup(func() {
		h.Close()
		client.Flush()
	})
	require.NoError(t, client.Flush())
	return client, uc, dispatched
}

func await(t *testing.T, ch chan models.NotificationEvent) models.NotificationEvent {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("No notification dispatched")
	}
	return models.NotificationEvent{}
}

func TestBookingCreated(t *testing.T) {
	client, _, dispatched := setup(t)
	id := uuid.New()

	require.NoError(t, client.PublishJSON(constants.SubjectBookingCreated, models.Booking{ID: id, BookingCode: "TW-1"}))

	e := await(t, dispatched)
	assert.Equal(t, models.NotificationBookingCreated, e.Type)
	assert.Equal(t, id, e.BookingID)
}

func TestBookingTransition(t *testing.T) {
	tests := []struct {
		to   models.BookingStatus
		want models.NotificationType
	}{
		{models.BookingStatusDetailerAssigned, models.NotificationJobAssigned},
		{models.BookingStatusInProgress, models.NotificationJobStarted},
		{models.BookingStatusCompleted, models.NotificationJobCompleted},
		{models.BookingStatusCancelled, models.NotificationBookingCancelled},
	}
	for _, tt := range tests {
		t.Run(string(tt.to), func(t *testing.T) {
			client, _, dispatched := setup(t)
			id := uuid.New()

			require.NoError(t, client.PublishJSON(constants.SubjectBookingTransition, models.BookingTransitionEvent{
				BookingID: id, To: tt.to, Note: "Cancelled by user",
			}))

			e := await(t, dispatched)
			assert.Equal(t, tt.want, e.Type)
			assert.Equal(t, id, e.BookingID)
			assert.Equal(t, "Cancelled by user", e.Data["note"])
		})
	}
}

func TestBookingTransitionWithoutNotification(t *testing.T) {
	client, _, dispatched := setup(t)

	require.NoError(t, client.PublishJSON(constants.SubjectBookingTransition, models.BookingTransitionEvent{
		BookingID: uuid.New(), From: models.BookingStatusPendingPayment, To: models.BookingStatusPaymentConfirmed,
	}))
	require.NoError(t, client.Flush())

	select {
	case e := <-dispatched:
		t.Fatalf("unexpected notification %s", e.Type)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestPaymentEvents(t *testing.T) {
	t.Run("mpesa completed", func(t *testing.T) {
		client, _, dispatched := setup(t)
		id := uuid.New()

		require.NoError(t, client.PublishJSON(constants.SubjectPaymentCompleted, models.PaymentEvent{
			BookingID: id, Method: models.PaymentMethodMpesa, Status: models.PaymentStatusCompleted,
			Amount: 1450, Currency: "KES", Receipt: "QK43HS7612",
		}))

		e := await(t, dispatched)
		assert.Equal(t, models.NotificationPaymentConfirmed, e.Type)
		assert.Equal(t, "QK43HS7612", e.Data["receipt"])
		assert.Equal(t, 1450.0, e.Data["amount"])
	})

	t.Run("crypto completed", func(t *testing.T) {
		client, _, dispatched := setup(t)

		require.NoError(t, client.PublishJSON(constants.SubjectPaymentCompleted, models.PaymentEvent{
			BookingID: uuid.New(), Method: models.PaymentMethodCrypto, Status: models.PaymentStatusCompleted,
			Amount: 11.5, Currency: "USD", Receipt: "0xabc",
		}))

		e := await(t, dispatched)
		assert.Equal(t, "0xabc", e.Data["txHash"])
		assert.NotContains(t, e.Data, "receipt")
	})

	t.Run("timed out", func(t *testing.T) {
		client, _, dispatched := setup(t)

		require.NoError(t, client.PublishJSON(constants.SubjectPaymentFailed, models.PaymentEvent{
			BookingID: uuid.New(), Status: models.PaymentStatusTimeout, ResultDesc: "DS timeout user cannot be reached",
		}))

		e := await(t, dispatched)
		assert.Equal(t, models.NotificationPaymentFailed, e.Type)
		assert.Equal(t, "DS timeout user cannot be reached", e.Data["resultDesc"])
	})
}

func TestExplicitNotification(t *testing.T) {
	client, _, dispatched := setup(t)
	id := uuid.New()

	require.NoError(t, client.PublishJSON(constants.SubjectNotification, models.NotificationEvent{
		Type:      models.NotificationCarReady,
		BookingID: id,
		Channels:  []models.NotificationChannel{models.ChannelWhatsApp},
	}))

	e := await(t, dispatched)
	assert.Equal(t, models.NotificationCarReady, e.Type)
	assert.Equal(t, []models.NotificationChannel{models.ChannelWhatsApp}, e.Channels)
}

func TestHandlersRejectMalformedPayloads(t *testing.T) {
	h := NewNotificationHandler(nil, nil)
	ctx := context.Background()

	assert.Error(t, h.handleBookingCreated(ctx, []byte("{")))
	assert.Error(t, h.handleBookingTransition(ctx, []byte("{")))
	assert.Error(t, h.handlePaymentEvent(ctx, []byte("{")))
	assert.Error(t, h.handleNotification(ctx, []byte("{")))
	assert.Error(t, h.handlePaymentEvent(ctx, []byte(`{"status":"processing"}`)))
}
