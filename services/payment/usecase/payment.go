package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/piresc/trackwash/internal/pkg/logger"
	"github.com/piresc/trackwash/internal/pkg/metrics"
	"github.com/piresc/trackwash/internal/pkg/models"
	"github.com/piresc/trackwash/internal/utils"
	"github.com/piresc/trackwash/services/booking"
	"github.com/piresc/trackwash/services/payment"
)

const (
	resultSuccess   = 0
	resultDSTimeout = 1037

	defaultCurrency       = "KES"
	defaultCryptoCurrency = "USD"
	defaultStaleAfter     = 2 * time.Minute
	defaultStaleLimit     = 50
)

// paymentUC implements payment.PaymentUC
type paymentUC struct {
	cfg         *models.Config
	paymentRepo payment.PaymentRepo
	mpesaGW     payment.MpesaGW
	eventGW     payment.PaymentEventGW
	bookingGW   payment.BookingGW
	metrics     *metrics.Metrics
}

// NewPaymentUC creates the payment use case. m may be nil.
func NewPaymentUC(
	cfg *models.Config,
	paymentRepo payment.PaymentRepo,
	mpesaGW payment.MpesaGW,
	eventGW payment.PaymentEventGW,
	bookingGW payment.BookingGW,
	m *metrics.Metrics,
) (payment.PaymentUC, error) {
	return &paymentUC{
		cfg:         cfg,
		paymentRepo: paymentRepo,
		mpesaGW:     mpesaGW,
		eventGW:     eventGW,
		bookingGW:   bookingGW,
		metrics:     m,
	}, nil
}

func (uc *paymentUC) currency() string {
	if uc.cfg.Payment.Currency != "" {
		return uc.cfg.Payment.Currency
	}
	return defaultCurrency
}

func (uc *paymentUC) cryptoCurrency() string {
	if uc.cfg.Payment.CryptoCurrency != "" {
		return uc.cfg.Payment.CryptoCurrency
	}
	return defaultCryptoCurrency
}

// InitiatePayment sends an STK push for a booking awaiting payment and
// records the attempt once the provider has accepted it
func (uc *paymentUC) InitiatePayment(ctx context.Context, req models.InitiatePaymentRequest) (*models.InitiatePaymentResponse, error) {
	phone, err := utils.ValidateKenyanMSISDN(req.Phone)
	if err != nil {
		uc.metrics.PaymentInitiation("invalid")
		return nil, payment.ErrInvalidPhone
	}
	// Daraja charges whole shillings
	amount := math.Round(req.AmountKES)
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount < 1 {
		uc.metrics.PaymentInitiation("invalid")
		return nil, payment.ErrInvalidAmount
	}

	b, err := uc.bookingGW.GetBooking(ctx, req.BookingID)
	if err != nil {
		return nil, err
	}
	if b.Status != models.BookingStatusPendingPayment {
		return nil, payment.ErrBookingNotPayable
	}
	if err := uc.resolveInFlight(ctx, b.ID); err != nil {
		return nil, err
	}

	res, err := uc.mpesaGW.InitiatePushPayment(ctx, models.STKPushRequest{
		Phone:            phone,
		Amount:           amount,
		BookingID:        b.ID,
		AccountReference: b.BookingCode,
	})
	if err != nil {
		outcome := "error"
		var gwErr *payment.GatewayError
		if errors.As(err, &gwErr) {
			outcome = gwErr.Kind.String()
		}
		uc.metrics.PaymentInitiation(outcome)
		return nil, err
	}

	if res.NormalizedPhone != "" {
		phone = res.NormalizedPhone
	}
	p := &models.Payment{
		BookingID:         b.ID,
		CorrelationID:     res.CheckoutRequestID,
		MerchantRequestID: res.MerchantRequestID,
		Method:            models.PaymentMethodMpesa,
		Amount:            amount,
		Currency:          uc.currency(),
		PhoneNumber:       phone,
		Status:            models.PaymentStatusProcessing,
	}
	if err := uc.paymentRepo.Create(ctx, p); err != nil {
		uc.metrics.PaymentInitiation("store_failed")
		logger.ErrorCtx(ctx, "STK push accepted but payment not recorded",
			logger.Stringer("booking_id", b.ID),
			logger.String("checkout_request_id", res.CheckoutRequestID),
			logger.Err(err))
		return nil, fmt.Errorf("failed to record payment: %w", err)
	}

	uc.metrics.PaymentInitiation("accepted")
	logger.InfoCtx(ctx, "Payment initiated",
		logger.Stringer("booking_id", b.ID),
		logger.String("checkout_request_id", p.CorrelationID),
		logger.Float64("amount", p.Amount))

	return &models.InitiatePaymentResponse{
		Success:             true,
		CheckoutRequestID:   res.CheckoutRequestID,
		MerchantRequestID:   res.MerchantRequestID,
		ResponseDescription: res.ResponseDescription,
	}, nil
}

// resolveInFlight makes sure the booking has no attempt still processing.
// A stale attempt is reconciled against the provider first.
func (uc *paymentUC) resolveInFlight(ctx context.Context, bookingID uuid.UUID) error {
	existing, err := uc.paymentRepo.GetProcessingByBookingID(ctx, bookingID)
	if errors.Is(err, payment.ErrPaymentNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if existing.Method != models.PaymentMethodMpesa {
		return payment.ErrPaymentInProgress
	}

	status, err := uc.reconcile(ctx, existing, "initiate")
	if err != nil {
		logger.WarnCtx(ctx, "Could not resolve in-flight payment",
			logger.String("checkout_request_id", existing.CorrelationID),
			logger.Err(err))
		return payment.ErrPaymentInProgress
	}

	switch status {
	case models.PaymentStatusProcessing:
		return payment.ErrPaymentInProgress
	case models.PaymentStatusCompleted:
		return payment.ErrBookingNotPayable
	}
	return nil
}

func toStatusResponse(p *models.Payment) *models.PaymentStatusResponse {
	bookingID := p.BookingID
	return &models.PaymentStatusResponse{
		CheckoutRequestID: p.CorrelationID,
		BookingID:         &bookingID,
		Status:            p.Status,
		Receipt:           p.Receipt,
		Amount:            p.Amount,
		PaidAt:            p.PaidAt,
		ResultDesc:        p.ResultDesc,
	}
}

// GetPaymentStatus reads the stored status of an attempt
func (uc *paymentUC) GetPaymentStatus(ctx context.Context, checkoutRequestID string) (*models.PaymentStatusResponse, error) {
	p, err := uc.paymentRepo.GetByCorrelationID(ctx, checkoutRequestID)
	if err != nil {
		return nil, err
	}
	return toStatusResponse(p), nil
}

// HandleCallback applies a provider result. Unknown and duplicate callbacks
// are absorbed.
func (uc *paymentUC) HandleCallback(ctx context.Context, cb models.MpesaCallback) error {
	if cb.CheckoutRequestID == "" {
		uc.metrics.Callback("invalid")
		return fmt.Errorf("%w: missing CheckoutRequestID", payment.ErrInvalidCallback)
	}

	p, err := uc.paymentRepo.GetByCorrelationID(ctx, cb.CheckoutRequestID)
	if errors.Is(err, payment.ErrPaymentNotFound) {
		uc.metrics.Callback("unknown")
		logger.WarnCtx(ctx, "Callback for unknown payment",
			logger.String("checkout_request_id", cb.CheckoutRequestID),
			logger.Int("result_code", cb.ResultCode))
		return nil
	}
	if err != nil {
		uc.metrics.Callback("error")
		return err
	}

	if p.Status.IsTerminal() {
		attached, err := uc.attachReceipt(ctx, p, cb)
		if err != nil {
			uc.metrics.Callback("error")
			return err
		}
		if attached {
			uc.metrics.Callback("receipt_attached")
		} else {
			uc.metrics.Callback("duplicate")
			logger.InfoCtx(ctx, "Duplicate callback ignored",
				logger.String("checkout_request_id", p.CorrelationID),
				logger.String("status", string(p.Status)))
		}
		uc.healBooking(ctx, p)
		return nil
	}

	applied, err := uc.settle(ctx, p, callbackTransition(cb), "callback")
	if err != nil {
		uc.metrics.Callback("error")
		return err
	}
	if !applied {
		uc.metrics.Callback("duplicate")
		return nil
	}
	uc.metrics.Callback("applied")
	return nil
}

// attachReceipt stores the receipt from a success callback that arrived after
// reconciliation already completed the attempt without one
func (uc *paymentUC) attachReceipt(ctx context.Context, p *models.Payment, cb models.MpesaCallback) (bool, error) {
	if p.Status != models.PaymentStatusCompleted || p.Receipt != "" || cb.ResultCode != resultSuccess {
		return false, nil
	}
	t := callbackTransition(cb)
	if t.Receipt == "" {
		return false, nil
	}

	applied, err := uc.paymentRepo.AttachReceipt(ctx, p.CorrelationID, t.Receipt, t.PaidAt)
	if err != nil {
		return false, err
	}
	if applied {
		p.Receipt = t.Receipt
		if p.PaidAt == nil {
			p.PaidAt = t.PaidAt
		}
		logger.InfoCtx(ctx, "Receipt attached to reconciled payment",
			logger.String("checkout_request_id", p.CorrelationID),
			logger.Stringer("booking_id", p.BookingID),
			logger.String("receipt", t.Receipt))
	}
	return applied, nil
}

func callbackTransition(cb models.MpesaCallback) models.PaymentTransition {
	code := cb.ResultCode
	t := models.PaymentTransition{
		Status:     resultStatus(code),
		ResultCode: &code,
		ResultDesc: cb.ResultDesc,
	}
	if t.Status == models.PaymentStatusCompleted {
		t.Receipt = metadataString(cb.Metadata, "MpesaReceiptNumber")
		paidAt := models.Now()
		if ts, ok := models.ParseDarajaTime(metadataValue(cb.Metadata, "TransactionDate")); ok {
			paidAt = ts
		}
		t.PaidAt = &paidAt
	}
	return t
}

func resultStatus(code int) models.PaymentStatus {
	switch code {
	case resultSuccess:
		return models.PaymentStatusCompleted
	case resultDSTimeout:
		return models.PaymentStatusTimeout
	}
	return models.PaymentStatusFailed
}

func metadataValue(items []models.MpesaCallbackItem, name string) interface{} {
	for _, item := range items {
		if item.Name == name {
			return item.Value
		}
	}
	return nil
}

func metadataString(items []models.MpesaCallbackItem, name string) string {
	switch v := metadataValue(items, name).(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprint(v)
	}
}

// settle writes a terminal status through the conditional update. Only the
// winner drives the booking and publishes.
func (uc *paymentUC) settle(ctx context.Context, p *models.Payment, t models.PaymentTransition, source string) (bool, error) {
	applied, err := uc.paymentRepo.TransitionTo(ctx, p.CorrelationID, t)
	if err != nil {
		return false, err
	}
	if !applied {
		logger.InfoCtx(ctx, "Payment already settled",
			logger.String("checkout_request_id", p.CorrelationID),
			logger.String("source", source))
		return false, nil
	}

	p.Status = t.Status
	p.Receipt = t.Receipt
	p.ResultCode = t.ResultCode
	p.ResultDesc = t.ResultDesc
	p.PaidAt = t.PaidAt
	p.UpdatedAt = models.Now()

	uc.metrics.PaymentSettled(string(p.Method), string(p.Status), source)
	logger.InfoCtx(ctx, "Payment settled",
		logger.String("checkout_request_id", p.CorrelationID),
		logger.Stringer("booking_id", p.BookingID),
		logger.String("status", string(p.Status)),
		logger.String("source", source))

	if p.Status == models.PaymentStatusCompleted {
		uc.confirmBooking(ctx, p)
	}
	uc.publish(ctx, p)
	return true, nil
}

func (uc *paymentUC) confirmBooking(ctx context.Context, p *models.Payment) {
	note := "M-Pesa payment"
	if p.Method == models.PaymentMethodCrypto {
		note = "Crypto payment"
	}
	if p.Receipt != "" {
		note += " " + p.Receipt
	}

	_, err := uc.bookingGW.ApplyTransition(ctx, models.TransitionRequest{
		BookingID:    p.BookingID,
		TargetStatus: models.BookingStatusPaymentConfirmed,
		Note:         note,
	})
	switch {
	case err == nil:
	case errors.Is(err, booking.ErrIllegalTransition):
		logger.ErrorCtx(ctx, "Payment completed for a booking that cannot be confirmed, refund required",
			logger.Stringer("booking_id", p.BookingID),
			logger.String("correlation_id", p.CorrelationID),
			logger.Float64("amount", p.Amount),
			logger.Err(err))
	default:
		logger.ErrorCtx(ctx, "Failed to confirm booking after payment",
			logger.Stringer("booking_id", p.BookingID),
			logger.String("correlation_id", p.CorrelationID),
			logger.Err(err))
	}
}

// healBooking confirms a booking whose payment completed but whose
// transition never landed
func (uc *paymentUC) healBooking(ctx context.Context, p *models.Payment) {
	if p.Status != models.PaymentStatusCompleted {
		return
	}
	b, err := uc.bookingGW.GetBooking(ctx, p.BookingID)
	if err != nil {
		logger.WarnCtx(ctx, "Failed to load booking for completed payment",
			logger.Stringer("booking_id", p.BookingID),
			logger.Err(err))
		return
	}
	if b.Status == models.BookingStatusPendingPayment {
		uc.confirmBooking(ctx, p)
	}
}

func (uc *paymentUC) publish(ctx context.Context, p *models.Payment) {
	event := models.PaymentEvent{
		PaymentID:     p.ID,
		BookingID:     p.BookingID,
		CorrelationID: p.CorrelationID,
		Method:        p.Method,
		Status:        p.Status,
		Amount:        p.Amount,
		Currency:      p.Currency,
		Receipt:       p.Receipt,
		ResultDesc:    p.ResultDesc,
		OccurredAt:    p.UpdatedAt,
	}

	var err error
	if p.Status == models.PaymentStatusCompleted {
		err = uc.eventGW.PublishPaymentCompleted(ctx, event)
	} else {
		err = uc.eventGW.PublishPaymentFailed(ctx, event)
	}
	if err != nil {
		logger.WarnCtx(ctx, "Payment event not published",
			logger.String("correlation_id", p.CorrelationID),
			logger.Err(err))
	}
}

// ReconcilePayment asks the provider for the result of an attempt and
// applies it through the same conditional write as the webhook
func (uc *paymentUC) ReconcilePayment(ctx context.Context, checkoutRequestID string) (*models.PaymentStatusResponse, error) {
	p, err := uc.paymentRepo.GetByCorrelationID(ctx, checkoutRequestID)
	if err != nil {
		return nil, err
	}

	status, err := uc.reconcile(ctx, p, "reconcile")
	if err != nil {
		return nil, err
	}
	if status == p.Status {
		return toStatusResponse(p), nil
	}
	return uc.GetPaymentStatus(ctx, checkoutRequestID)
}

func (uc *paymentUC) reconcile(ctx context.Context, p *models.Payment, source string) (models.PaymentStatus, error) {
	if p.Status.IsTerminal() {
		uc.metrics.Reconcile("terminal")
		uc.healBooking(ctx, p)
		return p.Status, nil
	}
	if p.Method != models.PaymentMethodMpesa {
		uc.metrics.Reconcile("skipped")
		return p.Status, nil
	}

	q, err := uc.mpesaGW.QueryPushPayment(ctx, p.CorrelationID)
	if err != nil {
		uc.metrics.Reconcile("error")
		return "", err
	}
	if q.ResultCode == nil {
		uc.metrics.Reconcile("pending")
		return models.PaymentStatusProcessing, nil
	}

	code := *q.ResultCode
	t := models.PaymentTransition{
		Status:     resultStatus(code),
		ResultCode: &code,
		ResultDesc: q.ResultDesc,
	}
	if t.Status == models.PaymentStatusCompleted {
		// the query API carries no receipt number
		paidAt := models.Now()
		t.PaidAt = &paidAt
	}

	applied, err := uc.settle(ctx, p, t, source)
	if err != nil {
		uc.metrics.Reconcile("error")
		return "", err
	}
	if !applied {
		uc.metrics.Reconcile("duplicate")
		current, err := uc.paymentRepo.GetByCorrelationID(ctx, p.CorrelationID)
		if err != nil {
			return "", err
		}
		return current.Status, nil
	}
	uc.metrics.Reconcile("applied")
	return t.Status, nil
}

// ConfirmCryptoPayment records an on-chain transfer as a completed payment.
// Replaying the same transaction hash returns the stored payment.
func (uc *paymentUC) ConfirmCryptoPayment(ctx context.Context, req models.CryptoPaymentRequest) (*models.Payment, error) {
	hash := strings.ToLower(strings.TrimSpace(req.TxHash))
	wallet := strings.ToLower(strings.TrimSpace(req.WalletAddress))
	token := strings.ToUpper(strings.TrimSpace(req.TokenSymbol))

	switch {
	case !utils.IsTxHash(hash):
		return nil, fmt.Errorf("%w: invalid transaction hash", payment.ErrInvalidCryptoPayment)
	case !utils.IsEVMAddress(wallet):
		return nil, fmt.Errorf("%w: invalid wallet address", payment.ErrInvalidCryptoPayment)
	case req.ChainID <= 0:
		return nil, fmt.Errorf("%w: chain id is required", payment.ErrInvalidCryptoPayment)
	case token == "":
		return nil, fmt.Errorf("%w: token symbol is required", payment.ErrInvalidCryptoPayment)
	case req.AmountUSD <= 0:
		return nil, payment.ErrInvalidAmount
	}

	p, err := uc.paymentRepo.GetByCorrelationID(ctx, hash)
	switch {
	case err == nil:
		if p.BookingID != req.BookingID {
			return nil, payment.ErrDuplicateCorrelationID
		}
		if p.Status == models.PaymentStatusCompleted {
			uc.healBooking(ctx, p)
			return p, nil
		}
		if p.Status.IsTerminal() {
			return nil, fmt.Errorf("%w: transaction already settled as %s", payment.ErrInvalidCryptoPayment, p.Status)
		}
	case errors.Is(err, payment.ErrPaymentNotFound):
		b, err := uc.bookingGW.GetBooking(ctx, req.BookingID)
		if err != nil {
			return nil, err
		}
		if b.Status != models.BookingStatusPendingPayment {
			return nil, payment.ErrBookingNotPayable
		}
		if err := uc.resolveInFlight(ctx, b.ID); err != nil {
			return nil, err
		}

		chainID := req.ChainID
		p = &models.Payment{
			BookingID:     b.ID,
			CorrelationID: hash,
			Method:        models.PaymentMethodCrypto,
			Amount:        req.AmountUSD,
			Currency:      uc.cryptoCurrency(),
			WalletAddress: wallet,
			ChainID:       &chainID,
			TokenSymbol:   token,
			Status:        models.PaymentStatusProcessing,
		}
		if err := uc.paymentRepo.Create(ctx, p); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	paidAt := models.Now()
	t := models.PaymentTransition{
		Status:     models.PaymentStatusCompleted,
		Receipt:    hash,
		ResultDesc: fmt.Sprintf("%s transfer confirmed on chain %d", token, req.ChainID),
		PaidAt:     &paidAt,
	}
	if _, err := uc.settle(ctx, p, t, "crypto"); err != nil {
		return nil, err
	}
	return uc.paymentRepo.GetByCorrelationID(ctx, hash)
}

// ListStalePayments returns M-Pesa attempts processing for longer than olderThan
func (uc *paymentUC) ListStalePayments(ctx context.Context, olderThan time.Duration, limit int) ([]models.Payment, error) {
	if olderThan <= 0 {
		olderThan = uc.cfg.Reconcile.StaleAfter
	}
	if olderThan <= 0 {
		olderThan = defaultStaleAfter
	}
	if limit <= 0 {
		limit = defaultStaleLimit
	}
	return uc.paymentRepo.ListStaleProcessing(ctx, models.Now().Add(-olderThan), limit)
}
