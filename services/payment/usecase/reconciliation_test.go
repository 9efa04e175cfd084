package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/piresc/trackwash/internal/pkg/models"
	"github.com/piresc/trackwash/services/booking"
	"github.com/piresc/trackwash/services/payment"
	"github.com/piresc/trackwash/services/payment/mocks"
	"github.com/piresc/trackwash/services/payment/poller"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memPayments keeps payments in memory with the same conditional write
// semantics as the SQL store
type memPayments struct {
	mu       sync.Mutex
	payments map[string]models.Payment
}

func newMemPayments() *memPayments {
	return &memPayments{payments: map[string]models.Payment{}}
}

func (r *memPayments) Create(_ context.Context, p *models.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.payments[p.CorrelationID]; ok {
		return payment.ErrDuplicateCorrelationID
	}
	for _, existing := range r.payments {
		if existing.BookingID == p.BookingID && existing.Status == models.PaymentStatusProcessing {
			return payment.ErrPaymentInProgress
		}
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	p.CreatedAt = time.Now().UTC()
	r.payments[p.CorrelationID] = *p
	return nil
}

func (r *memPayments) GetByCorrelationID(_ context.Context, id string) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok {
		return nil, payment.ErrPaymentNotFound
	}
	return &p, nil
}

func (r *memPayments) GetProcessingByBookingID(_ context.Context, bookingID uuid.UUID) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payments {
		if p.BookingID == bookingID && p.Status == models.PaymentStatusProcessing {
			p := p
			return &p, nil
		}
	}
	return nil, payment.ErrPaymentNotFound
}

func (r *memPayments) ListByBookingID(_ context.Context, bookingID uuid.UUID) ([]models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Payment
	for _, p := range r.payments {
		if p.BookingID == bookingID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *memPayments) TransitionTo(_ context.Context, id string, t models.PaymentTransition) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok || p.Status != models.PaymentStatusProcessing {
		return false, nil
	}
	p.Status = t.Status
	p.Receipt = t.Receipt
	p.ResultCode = t.ResultCode
	p.ResultDesc = t.ResultDesc
	p.PaidAt = t.PaidAt
	r.payments[id] = p
	return true, nil
}

func (r *memPayments) AttachReceipt(_ context.Context, id, receipt string, paidAt *time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok || receipt == "" || p.Status != models.PaymentStatusCompleted || p.Receipt != "" {
		return false, nil
	}
	p.Receipt = receipt
	if p.PaidAt == nil {
		p.PaidAt = paidAt
	}
	r.payments[id] = p
	return true, nil
}

func (r *memPayments) ListStaleProcessing(context.Context, time.Time, int) ([]models.Payment, error) {
	return nil, nil
}

// memBookings applies booking transitions under a lock and counts them
type memBookings struct {
	mu          sync.Mutex
	bookings    map[uuid.UUID]models.Booking
	transitions int
}

func (g *memBookings) GetBooking(_ context.Context, id uuid.UUID) (*models.Booking, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	b, ok := g.bookings[id]
	if !ok {
		return nil, booking.ErrBookingNotFound
	}
	return &b, nil
}

func (g *memBookings) ApplyTransition(_ context.Context, req models.TransitionRequest) (*models.Booking, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	b, ok := g.bookings[req.BookingID]
	if !ok {
		return nil, booking.ErrBookingNotFound
	}
	if b.Status == req.TargetStatus {
		return &b, nil
	}
	if !b.Status.CanTransitionTo(req.TargetStatus) {
		return nil, &booking.IllegalTransitionError{From: b.Status, To: req.TargetStatus}
	}
	b.Status = req.TargetStatus
	g.bookings[b.ID] = b
	g.transitions++
	return &b, nil
}

// memEvents counts published payment events
type memEvents struct {
	mu        sync.Mutex
	completed int
	failed    int
}

func (e *memEvents) PublishPaymentCompleted(context.Context, models.PaymentEvent) error {
	e.mu.Lock()
	e.completed++
	e.mu.Unlock()
	return nil
}

func (e *memEvents) PublishPaymentFailed(context.Context, models.PaymentEvent) error {
	e.mu.Lock()
	e.failed++
	e.mu.Unlock()
	return nil
}

type world struct {
	uc       payment.PaymentUC
	payments *memPayments
	bookings *memBookings
	events   *memEvents
	mpesa    *mocks.MockMpesaGW
	booking  models.Booking
}

func newWorld(t *testing.T) *world {
	b := *pendingBooking()
	w := &world{
		payments: newMemPayments(),
		bookings: &memBookings{bookings: map[uuid.UUID]models.Booking{b.ID: b}},
		events:   &memEvents{},
		mpesa:    mocks.NewMockMpesaGW(gomock.NewController(t)),
		booking:  b,
	}
	uc, err := NewPaymentUC(testConfig(), w.payments, w.mpesa, w.events, w.bookings, nil)
	require.NoError(t, err)
	w.uc = uc
	return w
}

func (w *world) initiate(t *testing.T, checkoutID string) {
	t.Helper()
	w.mpesa.EXPECT().InitiatePushPayment(gomock.Any(), gomock.Any()).
		Return(&models.STKPushResult{CheckoutRequestID: checkoutID, MerchantRequestID: "29115-1", NormalizedPhone: "254712345678"}, nil)
	_, err := w.uc.InitiatePayment(context.Background(), models.InitiatePaymentRequest{
		BookingID: w.booking.ID, Phone: "0712345678", AmountKES: 1450,
	})
	require.NoError(t, err)
}

func (w *world) bookingStatus(t *testing.T) models.BookingStatus {
	b, err := w.bookings.GetBooking(context.Background(), w.booking.ID)
	require.NoError(t, err)
	return b.Status
}

func TestHappyPathEndToEnd(t *testing.T) {
	w := newWorld(t)
	w.initiate(t, "ws_CO_A")

	status, err := w.uc.GetPaymentStatus(context.Background(), "ws_CO_A")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusProcessing, status.Status)

	require.NoError(t, w.uc.HandleCallback(context.Background(), successCallback("ws_CO_A")))

	status, err = w.uc.GetPaymentStatus(context.Background(), "ws_CO_A")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, status.Status)
	assert.Equal(t, "QK43HS7612", status.Receipt)
	assert.Equal(t, models.BookingStatusPaymentConfirmed, w.bookingStatus(t))
	assert.Equal(t, 1, w.events.completed)
}

func TestDuplicateCallbacksApplyOnce(t *testing.T) {
	w := newWorld(t)
	w.initiate(t, "ws_CO_B")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, w.uc.HandleCallback(context.Background(), successCallback("ws_CO_B")))
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, w.bookings.transitions)
	assert.Equal(t, 1, w.events.completed)
	assert.Equal(t, models.BookingStatusPaymentConfirmed, w.bookingStatus(t))
}

func TestCallbackAndReconcileRace(t *testing.T) {
	w := newWorld(t)
	w.initiate(t, "ws_CO_C")

	ok := 0
	w.mpesa.EXPECT().QueryPushPayment(gomock.Any(), "ws_CO_C").
		Return(&models.STKQueryResult{CheckoutRequestID: "ws_CO_C", ResultCode: &ok}, nil).AnyTimes()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.NoError(t, w.uc.HandleCallback(context.Background(), successCallback("ws_CO_C")))
		}()
		go func() {
			defer wg.Done()
			resp, err := w.uc.ReconcilePayment(context.Background(), "ws_CO_C")
			if assert.NoError(t, err) {
				assert.Equal(t, models.PaymentStatusCompleted, resp.Status)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, w.bookings.transitions)
	assert.Equal(t, 1, w.events.completed)
}

func TestConflictingResultsFirstWriterWins(t *testing.T) {
	w := newWorld(t)
	w.initiate(t, "ws_CO_D")

	require.NoError(t, w.uc.HandleCallback(context.Background(), models.MpesaCallback{
		CheckoutRequestID: "ws_CO_D", ResultCode: 1032, ResultDesc: "Request cancelled by user",
	}))
	require.NoError(t, w.uc.HandleCallback(context.Background(), successCallback("ws_CO_D")))

	status, err := w.uc.GetPaymentStatus(context.Background(), "ws_CO_D")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusFailed, status.Status)
	assert.Equal(t, models.BookingStatusPendingPayment, w.bookingStatus(t))
	assert.Equal(t, 1, w.events.failed)
	assert.Zero(t, w.events.completed)
}

func TestFailedPaymentAllowsRetry(t *testing.T) {
	w := newWorld(t)
	w.initiate(t, "ws_CO_E1")

	require.NoError(t, w.uc.HandleCallback(context.Background(), models.MpesaCallback{
		CheckoutRequestID: "ws_CO_E1", ResultCode: 1037, ResultDesc: "DS timeout user cannot be reached",
	}))
	status, err := w.uc.GetPaymentStatus(context.Background(), "ws_CO_E1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusTimeout, status.Status)

	w.initiate(t, "ws_CO_E2")
	require.NoError(t, w.uc.HandleCallback(context.Background(), successCallback("ws_CO_E2")))
	assert.Equal(t, models.BookingStatusPaymentConfirmed, w.bookingStatus(t))

	attempts, err := w.payments.ListByBookingID(context.Background(), w.booking.ID)
	require.NoError(t, err)
	assert.Len(t, attempts, 2)
}

func TestLateCallbackAfterCancellation(t *testing.T) {
	w := newWorld(t)
	w.initiate(t, "ws_CO_F")

	_, err := w.bookings.ApplyTransition(context.Background(), models.TransitionRequest{
		BookingID: w.booking.ID, TargetStatus: models.BookingStatusCancelled,
	})
	require.NoError(t, err)

	require.NoError(t, w.uc.HandleCallback(context.Background(), successCallback("ws_CO_F")))

	status, err := w.uc.GetPaymentStatus(context.Background(), "ws_CO_F")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, status.Status)
	assert.Equal(t, models.BookingStatusCancelled, w.bookingStatus(t))
}

func TestReconciledPaymentKeepsLateReceipt(t *testing.T) {
	w := newWorld(t)
	w.initiate(t, "ws_CO_G")

	ok := 0
	w.mpesa.EXPECT().QueryPushPayment(gomock.Any(), "ws_CO_G").
		Return(&models.STKQueryResult{CheckoutRequestID: "ws_CO_G", ResultCode: &ok}, nil)

	resp, err := w.uc.ReconcilePayment(context.Background(), "ws_CO_G")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, resp.Status)
	assert.Empty(t, resp.Receipt)

	require.NoError(t, w.uc.HandleCallback(context.Background(), successCallback("ws_CO_G")))
	require.NoError(t, w.uc.HandleCallback(context.Background(), models.MpesaCallback{
		CheckoutRequestID: "ws_CO_G", ResultCode: 1032, ResultDesc: "Request cancelled by user",
	}))

	status, err := w.uc.GetPaymentStatus(context.Background(), "ws_CO_G")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, status.Status)
	assert.Equal(t, "QK43HS7612", status.Receipt)
	assert.Equal(t, models.BookingStatusPaymentConfirmed, w.bookingStatus(t))
	assert.Equal(t, 1, w.bookings.transitions)
	assert.Equal(t, 1, w.events.completed)
}

func TestPollerTimeoutThenLateCallback(t *testing.T) {
	w := newWorld(t)
	w.initiate(t, "ws_CO_H")
	p := poller.New(w.uc, models.PaymentConfig{PollAttempts: 3, PollInterval: time.Millisecond}, nil)

	result, err := p.Await(context.Background(), "ws_CO_H")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusTimeout, result.Status)

	// the timeout is only reported, never stored
	stored, err := w.uc.GetPaymentStatus(context.Background(), "ws_CO_H")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusProcessing, stored.Status)
	assert.Equal(t, models.BookingStatusPendingPayment, w.bookingStatus(t))
	assert.Zero(t, w.events.completed+w.events.failed)

	require.NoError(t, w.uc.HandleCallback(context.Background(), successCallback("ws_CO_H")))

	stored, err = w.uc.GetPaymentStatus(context.Background(), "ws_CO_H")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, stored.Status)
	assert.Equal(t, "QK43HS7612", stored.Receipt)
	assert.Equal(t, models.BookingStatusPaymentConfirmed, w.bookingStatus(t))
	assert.Equal(t, 1, w.events.completed)
}

// observedQuerier signals once a poll has seen the attempt still processing
type observedQuerier struct {
	poller.StatusQuerier
	once       sync.Once
	processing chan struct{}
}

func (q *observedQuerier) GetPaymentStatus(ctx context.Context, id string) (*models.PaymentStatusResponse, error) {
	resp, err := q.StatusQuerier.GetPaymentStatus(ctx, id)
	if err == nil && resp.Status == models.PaymentStatusProcessing {
		q.once.Do(func() { close(q.processing) })
	}
	return resp, err
}

func TestCallbackArrivesWhilePolling(t *testing.T) {
	w := newWorld(t)
	w.initiate(t, "ws_CO_I")

	q := &observedQuerier{StatusQuerier: w.uc, processing: make(chan struct{})}
	p := poller.New(q, models.PaymentConfig{PollAttempts: 500, PollInterval: 2 * time.Millisecond}, nil)

	type outcome struct {
		status *models.PaymentStatusResponse
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		status, err := p.Await(context.Background(), "ws_CO_I")
		done <- outcome{status, err}
	}()

	select {
	case <-q.processing:
	case <-time.After(2 * time.Second):
		t.Fatal("poller never observed the processing attempt")
	}
	require.NoError(t, w.uc.HandleCallback(context.Background(), successCallback("ws_CO_I")))

	var got outcome
	select {
	case got = <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not return after the callback")
	}
	require.NoError(t, got.err)
	assert.Equal(t, models.PaymentStatusCompleted, got.status.Status)
	assert.Equal(t, "QK43HS7612", got.status.Receipt)

	assert.Equal(t, 1, w.bookings.transitions)
	assert.Equal(t, 1, w.events.completed)
	assert.Equal(t, models.BookingStatusPaymentConfirmed, w.bookingStatus(t))
}
