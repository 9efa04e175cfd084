package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/piresc/trackwash/internal/pkg/database"
	"github.com/piresc/trackwash/internal/pkg/models"
	"github.com/piresc/trackwash/services/payment"
)

// ConstraintOneProcessingPerBooking is the partial unique index on processing attempts
const ConstraintOneProcessingPerBooking = "payments_one_processing_per_booking"

const selectPayment = `
	SELECT id, booking_id, correlation_id, merchant_request_id, method, amount, currency,
		phone_number, wallet_address, chain_id, token_symbol, status, receipt,
		result_code, result_desc, paid_at, created_at, updated_at
	FROM payments`

// PaymentRepo implements payment.PaymentRepo on PostgreSQL
type PaymentRepo struct {
	cfg *models.Config
	db  *sqlx.DB
}

// NewPaymentRepository creates a payment repository
func NewPaymentRepository(cfg *models.Config, db *sqlx.DB) *PaymentRepo {
	return &PaymentRepo{
		cfg: cfg,
		db:  db,
	}
}

// Create inserts a new payment attempt
func (r *PaymentRepo) Create(ctx context.Context, p *models.Payment) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := models.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	query := `
		INSERT INTO payments (
			id, booking_id, correlation_id, merchant_request_id, method, amount, currency,
			phone_number, wallet_address, chain_id, token_symbol, status, receipt,
			result_code, result_desc, paid_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`
	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.BookingID, p.CorrelationID, p.MerchantRequestID, p.Method, p.Amount, p.Currency,
		p.PhoneNumber, p.WalletAddress, p.ChainID, p.TokenSymbol, p.Status, p.Receipt,
		p.ResultCode, p.ResultDesc, p.PaidAt, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		if constraint, ok := database.UniqueViolation(err); ok {
			if constraint == ConstraintOneProcessingPerBooking {
				return payment.ErrPaymentInProgress
			}
			return payment.ErrDuplicateCorrelationID
		}
		return fmt.Errorf("failed to insert payment: %w", err)
	}
	return nil
}

func (r *PaymentRepo) getOne(ctx context.Context, where string, args ...interface{}) (*models.Payment, error) {
	var p models.Payment
	if err := r.db.GetContext(ctx, &p, selectPayment+" "+where, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, payment.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return &p, nil
}

// GetByCorrelationID retrieves the attempt matching a provider correlation id
func (r *PaymentRepo) GetByCorrelationID(ctx context.Context, correlationID string) (*models.Payment, error) {
	return r.getOne(ctx, "WHERE correlation_id = $1", correlationID)
}

// GetProcessingByBookingID returns the booking's in-flight attempt, if any
func (r *PaymentRepo) GetProcessingByBookingID(ctx context.Context, bookingID uuid.UUID) (*models.Payment, error) {
	return r.getOne(ctx, "WHERE booking_id = $1 AND status = $2", bookingID, models.PaymentStatusProcessing)
}

// ListByBookingID returns every attempt for a booking, newest first
func (r *PaymentRepo) ListByBookingID(ctx context.Context, bookingID uuid.UUID) ([]models.Payment, error) {
	payments := []models.Payment{}
	err := r.db.SelectContext(ctx, &payments, selectPayment+" WHERE booking_id = $1 ORDER BY created_at DESC", bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return payments, nil
}

// TransitionTo applies a terminal status only if the attempt is still processing
func (r *PaymentRepo) TransitionTo(ctx context.Context, correlationID string, t models.PaymentTransition) (bool, error) {
	if !t.Status.IsTerminal() {
		return false, fmt.Errorf("cannot transition payment to non-terminal status %q", t.Status)
	}

	query := `
		UPDATE payments
		SET status = $2,
			receipt = $3,
			result_code = $4,
			result_desc = $5,
			paid_at = $6,
			updated_at = $7
		WHERE correlation_id = $1 AND status = 'processing'
	`
	res, err := r.db.ExecContext(ctx, query,
		correlationID, t.Status, t.Receipt, t.ResultCode, t.ResultDesc, t.PaidAt, models.Now(),
	)
	if err != nil {
		return false, fmt.Errorf("failed to transition payment: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return rows == 1, nil
}

// AttachReceipt backfills the receipt on a completed attempt whose receipt is still empty
func (r *PaymentRepo) AttachReceipt(ctx context.Context, correlationID, receipt string, paidAt *time.Time) (bool, error) {
	if receipt == "" {
		return false, nil
	}

	query := `
		UPDATE payments
		SET receipt = $2,
			paid_at = COALESCE(paid_at, $3),
			updated_at = $4
		WHERE correlation_id = $1 AND status = 'completed' AND receipt = ''
	`
	res, err := r.db.ExecContext(ctx, query, correlationID, receipt, paidAt, models.Now())
	if err != nil {
		return false, fmt.Errorf("failed to attach receipt: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return rows == 1, nil
}

// ListStaleProcessing returns M-Pesa attempts still processing that were created before createdBefore
func (r *PaymentRepo) ListStaleProcessing(ctx context.Context, createdBefore time.Time, limit int) ([]models.Payment, error) {
	payments := []models.Payment{}
	err := r.db.SelectContext(ctx, &payments,
		selectPayment+" WHERE status = $1 AND method = $2 AND created_at < $3 ORDER BY created_at ASC LIMIT $4",
		models.PaymentStatusProcessing, models.PaymentMethodMpesa, createdBefore, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale payments: %w", err)
	}
	return payments, nil
}
