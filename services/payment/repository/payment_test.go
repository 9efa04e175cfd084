package repository_test

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/piresc/trackwash/internal/pkg/models"
	"github.com/piresc/trackwash/services/payment"
	"github.com/piresc/trackwash/services/payment/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var paymentColumns = []string{
	"id", "booking_id", "correlation_id", "merchant_request_id", "method", "amount", "currency",
	"phone_number", "wallet_address", "chain_id", "token_symbol", "status", "receipt",
	"result_code", "result_desc", "paid_at", "created_at", "updated_at",
}

func setupMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return sqlx.NewDb(mockDB, "sqlmock"), mock
}

func paymentRows(bookingID uuid.UUID, correlationID string, status models.PaymentStatus) *sqlmock.Rows {
	now := time.Now().UTC()
	var receipt interface{} = ""
	var code interface{}
	var paidAt interface{}
	if status == models.PaymentStatusCompleted {
		receipt, code, paidAt = "QK43HS7612", 0, now
	}
	return sqlmock.NewRows(paymentColumns).AddRow(
		uuid.New().String(), bookingID.String(), correlationID, "29115-34620561-1", "mpesa", 1450.0, "KES",
		"254712345678", "", nil, "", string(status), receipt,
		code, "", paidAt, now, now,
	)
}

func newPayment() *models.Payment {
	return &models.Payment{
		BookingID:         uuid.New(),
		CorrelationID:     "ws_CO_191220191020363925",
		MerchantRequestID: "29115-34620561-1",
		Method:            models.PaymentMethodMpesa,
		Amount:            1450,
		Currency:          "KES",
		PhoneNumber:       "254712345678",
		Status:            models.PaymentStatusProcessing,
	}
}

func TestCreate(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := repository.NewPaymentRepository(&models.Config{}, db)
		p := newPayment()

		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO payments")).
			WithArgs(sqlmock.AnyArg(), p.BookingID, p.CorrelationID, p.MerchantRequestID, models.PaymentMethodMpesa,
				1450.0, "KES", "254712345678", "", nil, "", models.PaymentStatusProcessing, "",
				nil, "", nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))

		require.NoError(t, repo.Create(context.Background(), p))
		assert.NotEqual(t, uuid.Nil, p.ID)
		assert.False(t, p.CreatedAt.IsZero())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("second processing attempt for booking", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := repository.NewPaymentRepository(&models.Config{}, db)

		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO payments")).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: repository.ConstraintOneProcessingPerBooking})

		err := repo.Create(context.Background(), newPayment())
		assert.ErrorIs(t, err, payment.ErrPaymentInProgress)
	})

	t.Run("duplicate correlation id", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := repository.NewPaymentRepository(&models.Config{}, db)

		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO payments")).
			WillReturnError(fmt.Errorf("exec: %w", &pgconn.PgError{Code: "23505", ConstraintName: "payments_correlation_id_key"}))

		err := repo.Create(context.Background(), newPayment())
		assert.ErrorIs(t, err, payment.ErrDuplicateCorrelationID)
	})

	t.Run("other error", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := repository.NewPaymentRepository(&models.Config{}, db)

		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO payments")).WillReturnError(errors.New("connection reset"))

		err := repo.Create(context.Background(), newPayment())
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to insert payment")
	})
}

func TestGetByCorrelationID(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := repository.NewPaymentRepository(&models.Config{}, db)
		bookingID := uuid.New()

		mock.ExpectQuery(regexp.QuoteMeta("FROM payments WHERE correlation_id = $1")).
			WithArgs("CR1").
			WillReturnRows(paymentRows(bookingID, "CR1", models.PaymentStatusCompleted))

		p, err := repo.GetByCorrelationID(context.Background(), "CR1")
		require.NoError(t, err)
		assert.Equal(t, bookingID, p.BookingID)
		assert.Equal(t, models.PaymentStatusCompleted, p.Status)
		assert.Equal(t, "QK43HS7612", p.Receipt)
		require.NotNil(t, p.ResultCode)
		assert.Equal(t, 0, *p.ResultCode)
		assert.Nil(t, p.ChainID)
	})

	t.Run("not found", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := repository.NewPaymentRepository(&models.Config{}, db)

		mock.ExpectQuery(regexp.QuoteMeta("FROM payments WHERE correlation_id = $1")).
			WithArgs("missing").
			WillReturnRows(sqlmock.NewRows(paymentColumns))

		_, err := repo.GetByCorrelationID(context.Background(), "missing")
		assert.ErrorIs(t, err, payment.ErrPaymentNotFound)
	})
}

func TestGetProcessingByBookingID(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := repository.NewPaymentRepository(&models.Config{}, db)
	bookingID := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE booking_id = $1 AND status = $2")).
		WithArgs(bookingID, models.PaymentStatusProcessing).
		WillReturnRows(paymentRows(bookingID, "CR9", models.PaymentStatusProcessing))

	p, err := repo.GetProcessingByBookingID(context.Background(), bookingID)
	require.NoError(t, err)
	assert.Equal(t, "CR9", p.CorrelationID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListByBookingID(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := repository.NewPaymentRepository(&models.Config{}, db)
	bookingID := uuid.New()

	rows := paymentRows(bookingID, "CR2", models.PaymentStatusProcessing)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE booking_id = $1 ORDER BY created_at DESC")).
		WithArgs(bookingID).
		WillReturnRows(rows)

	payments, err := repo.ListByBookingID(context.Background(), bookingID)
	require.NoError(t, err)
	assert.Len(t, payments, 1)
}

func TestTransitionTo(t *testing.T) {
	code := 0
	paidAt := time.Now().UTC()
	completed := models.PaymentTransition{
		Status:     models.PaymentStatusCompleted,
		Receipt:    "QK43HS7612",
		ResultCode: &code,
		ResultDesc: "The service request is processed successfully.",
		PaidAt:     &paidAt,
	}

	t.Run("applied while processing", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := repository.NewPaymentRepository(&models.Config{}, db)

		mock.ExpectExec(regexp.QuoteMeta("WHERE correlation_id = $1 AND status = 'processing'")).
			WithArgs("CR1", models.PaymentStatusCompleted, "QK43HS7612", 0, completed.ResultDesc, paidAt, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		applied, err := repo.TransitionTo(context.Background(), "CR1", completed)
		require.NoError(t, err)
		assert.True(t, applied)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already terminal", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := repository.NewPaymentRepository(&models.Config{}, db)

		mock.ExpectExec(regexp.QuoteMeta("UPDATE payments")).
			WillReturnResult(sqlmock.NewResult(0, 0))

		applied, err := repo.TransitionTo(context.Background(), "CR1", completed)
		require.NoError(t, err)
		assert.False(t, applied)
	})

	t.Run("rejects non-terminal target", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := repository.NewPaymentRepository(&models.Config{}, db)

		_, err := repo.TransitionTo(context.Background(), "CR1", models.PaymentTransition{Status: models.PaymentStatusProcessing})
		assert.Error(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("database error", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := repository.NewPaymentRepository(&models.Config{}, db)

		mock.ExpectExec(regexp.QuoteMeta("UPDATE payments")).WillReturnError(errors.New("deadlock"))

		_, err := repo.TransitionTo(context.Background(), "CR1", completed)
		assert.Error(t, err)
	})
}

func TestAttachReceipt(t *testing.T) {
	paidAt := time.Now().UTC()

	t.Run("fills an empty receipt on a completed attempt", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := repository.NewPaymentRepository(&models.Config{}, db)

		mock.ExpectExec(regexp.QuoteMeta("WHERE correlation_id = $1 AND status = 'completed' AND receipt = ''")).
			WithArgs("CR1", "QK43HS7612", paidAt, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		applied, err := repo.AttachReceipt(context.Background(), "CR1", "QK43HS7612", &paidAt)
		require.NoError(t, err)
		assert.True(t, applied)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("receipt already recorded", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := repository.NewPaymentRepository(&models.Config{}, db)

		mock.ExpectExec(regexp.QuoteMeta("UPDATE payments")).
			WillReturnResult(sqlmock.NewResult(0, 0))

		applied, err := repo.AttachReceipt(context.Background(), "CR1", "QK43HS7612", &paidAt)
		require.NoError(t, err)
		assert.False(t, applied)
	})

	t.Run("empty receipt is not written", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := repository.NewPaymentRepository(&models.Config{}, db)

		applied, err := repo.AttachReceipt(context.Background(), "CR1", "", &paidAt)
		require.NoError(t, err)
		assert.False(t, applied)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestListStaleProcessing(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := repository.NewPaymentRepository(&models.Config{}, db)
	cutoff := time.Now().Add(-2 * time.Minute)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE status = $1 AND method = $2 AND created_at < $3 ORDER BY created_at ASC LIMIT $4")).
		WithArgs(models.PaymentStatusProcessing, models.PaymentMethodMpesa, cutoff, 50).
		WillReturnRows(paymentRows(uuid.New(), "CR3", models.PaymentStatusProcessing))

	payments, err := repo.ListStaleProcessing(context.Background(), cutoff, 50)
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, "CR3", payments[0].CorrelationID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
