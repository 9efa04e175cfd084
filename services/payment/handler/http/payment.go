package http

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/piresc/trackwash/internal/pkg/logger"
	"github.com/piresc/trackwash/internal/pkg/middleware"
	"github.com/piresc/trackwash/internal/pkg/models"
	nrpkg "github.com/piresc/trackwash/internal/pkg/newrelic"
	"github.com/piresc/trackwash/internal/utils"
	"github.com/piresc/trackwash/services/booking"
	"github.com/piresc/trackwash/services/payment"
	"github.com/piresc/trackwash/services/payment/poller"
)

// callbackAck is the only body the provider ever receives
var callbackAck = models.CallbackAck{ResultCode: 0, ResultDesc: "Accepted"}

// errNotOwner is returned when a customer acts on another customer's booking
var errNotOwner = errors.New("booking belongs to another customer")

// PaymentHandler handles HTTP requests for payments and provider callbacks
type PaymentHandler struct {
	paymentUC payment.PaymentUC
	bookings  payment.BookingGW
	poller    *poller.Poller
}

// NewPaymentHandler creates a new payment HTTP handler. bookings is used to
// check that the caller owns the booking being paid for.
func NewPaymentHandler(paymentUC payment.PaymentUC, bookings payment.BookingGW, p *poller.Poller) *PaymentHandler {
	return &PaymentHandler{
		paymentUC: paymentUC,
		bookings:  bookings,
		poller:    p,
	}
}

// authorize allows staff, or the customer who owns the booking
func (h *PaymentHandler) authorize(c echo.Context, bookingID uuid.UUID) error {
	if middleware.IsStaff(c) {
		return nil
	}
	userID, ok := middleware.UserID(c)
	if !ok {
		return errNotOwner
	}
	b, err := h.bookings.GetBooking(c.Request().Context(), bookingID)
	if err != nil {
		return err
	}
	if b.CustomerID != userID {
		return errNotOwner
	}
	return nil
}

// authorizedStatus reads an attempt and checks the caller may see it
func (h *PaymentHandler) authorizedStatus(c echo.Context, checkoutRequestID string) (*models.PaymentStatusResponse, error) {
	status, err := h.paymentUC.GetPaymentStatus(c.Request().Context(), checkoutRequestID)
	if err != nil {
		return nil, err
	}
	if status.BookingID == nil {
		if middleware.IsStaff(c) {
			return status, nil
		}
		return nil, errNotOwner
	}
	if err := h.authorize(c, *status.BookingID); err != nil {
		return nil, err
	}
	return status, nil
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, errNotOwner):
		return http.StatusForbidden
	case errors.Is(err, payment.ErrInvalidPhone),
		errors.Is(err, payment.ErrInvalidAmount),
		errors.Is(err, payment.ErrInvalidCryptoPayment):
		return http.StatusBadRequest
	case errors.Is(err, payment.ErrPaymentNotFound), errors.Is(err, booking.ErrBookingNotFound):
		return http.StatusNotFound
	case errors.Is(err, payment.ErrPaymentInProgress),
		errors.Is(err, payment.ErrBookingNotPayable),
		errors.Is(err, payment.ErrDuplicateCorrelationID):
		return http.StatusConflict
	case errors.Is(err, payment.ErrGatewayRejected):
		return http.StatusPaymentRequired
	case errors.Is(err, payment.ErrGatewayAuth), errors.Is(err, payment.ErrNetwork):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func respondError(c echo.Context, txn *newrelic.Transaction, err error) error {
	status := errorStatus(err)
	if status < http.StatusInternalServerError {
		return utils.ErrorResponseHandler(c, status, err.Error())
	}

	nrpkg.NoticeTransactionError(txn, err)
	logger.ErrorCtx(c.Request().Context(), "Payment request failed",
		logger.String("path", c.Path()),
		logger.Err(err))
	if status == http.StatusBadGateway {
		return utils.BadGatewayResponse(c, "M-Pesa is unavailable, try again or pay with crypto")
	}
	return utils.InternalServerErrorResponse(c, "Internal server error")
}

// InitiatePayment handles POST /api/v1/payments/mpesa
func (h *PaymentHandler) InitiatePayment(c echo.Context) error {
	txn := nrpkg.FromEchoContext(c)
	nrpkg.SetTransactionName(txn, "Payment.InitiatePayment")

	var req models.InitiatePaymentRequest
	if err := c.Bind(&req); err != nil {
		nrpkg.NoticeTransactionError(txn, err)
		return c.JSON(http.StatusBadRequest, models.InitiatePaymentResponse{Error: "Invalid request body"})
	}

	err := h.authorize(c, req.BookingID)
	var resp *models.InitiatePaymentResponse
	if err == nil {
		resp, err = h.paymentUC.InitiatePayment(c.Request().Context(), req)
	}
	if err != nil {
		status := errorStatus(err)
		body := models.InitiatePaymentResponse{Error: err.Error()}
		switch status {
		case http.StatusPaymentRequired:
			body.AlternateMethod = string(models.PaymentMethodCrypto)
		case http.StatusBadGateway:
			body.Error = "M-Pesa is unavailable, try again or pay with crypto"
			body.AlternateMethod = string(models.PaymentMethodCrypto)
		case http.StatusInternalServerError:
			body.Error = "Internal server error"
		}
		if status >= http.StatusInternalServerError {
			nrpkg.NoticeTransactionError(txn, err)
			logger.ErrorCtx(c.Request().Context(), "Payment initiation failed",
				logger.Stringer("booking_id", req.BookingID),
				logger.Err(err))
		}
		return c.JSON(status, body)
	}

	nrpkg.AddTransactionAttribute(txn, "checkout_request_id", resp.CheckoutRequestID)
	return c.JSON(http.StatusOK, resp)
}

// GetPaymentStatus handles GET /api/v1/payments/mpesa/status?checkoutRequestId=
func (h *PaymentHandler) GetPaymentStatus(c echo.Context) error {
	txn := nrpkg.FromEchoContext(c)
	nrpkg.SetTransactionName(txn, "Payment.GetPaymentStatus")

	id := c.QueryParam("checkoutRequestId")
	if id == "" {
		return utils.BadRequestResponse(c, "checkoutRequestId is required")
	}

	status, err := h.authorizedStatus(c, id)
	if err != nil {
		return respondError(c, txn, err)
	}
	return utils.SuccessResponse(c, http.StatusOK, "Payment status retrieved", status)
}

// AwaitPayment handles GET /api/v1/payments/mpesa/:checkoutRequestID/await
func (h *PaymentHandler) AwaitPayment(c echo.Context) error {
	txn := nrpkg.FromEchoContext(c)
	nrpkg.SetTransactionName(txn, "Payment.AwaitPayment")

	id := c.Param("checkoutRequestID")
	ctx := c.Request().Context()

	// unknown ids would otherwise poll until exhaustion
	if _, err := h.authorizedStatus(c, id); err != nil {
		return respondError(c, txn, err)
	}

	status, err := h.poller.Await(ctx, id)
	if err != nil {
		logger.InfoCtx(ctx, "Payment wait abandoned",
			logger.String("checkout_request_id", id),
			logger.Err(err))
		return utils.ErrorResponseHandler(c, http.StatusRequestTimeout, "Request cancelled")
	}
	return utils.SuccessResponse(c, http.StatusOK, "Payment status retrieved", status)
}

// ConfirmCryptoPayment handles POST /api/v1/payments/crypto
func (h *PaymentHandler) ConfirmCryptoPayment(c echo.Context) error {
	txn := nrpkg.FromEchoContext(c)
	nrpkg.SetTransactionName(txn, "Payment.ConfirmCryptoPayment")

	var req models.CryptoPaymentRequest
	if err := c.Bind(&req); err != nil {
		nrpkg.NoticeTransactionError(txn, err)
		return utils.BadRequestResponse(c, "Invalid request body")
	}

	if err := h.authorize(c, req.BookingID); err != nil {
		return respondError(c, txn, err)
	}

	p, err := h.paymentUC.ConfirmCryptoPayment(c.Request().Context(), req)
	if err != nil {
		return respondError(c, txn, err)
	}
	return utils.SuccessResponse(c, http.StatusOK, "Payment confirmed", p)
}

// MpesaCallback handles POST /webhooks/mpesa/callback. The provider always
// gets the acknowledgement; failures are only logged.
func (h *PaymentHandler) MpesaCallback(c echo.Context) error {
	txn := nrpkg.FromEchoContext(c)
	nrpkg.SetTransactionName(txn, "Payment.MpesaCallback")
	ctx := c.Request().Context()

	body, err := io.ReadAll(io.LimitReader(c.Request().Body, 64<<10))
	if err != nil {
		logger.WarnCtx(ctx, "Failed to read M-Pesa callback", logger.Err(err))
		return c.JSON(http.StatusOK, callbackAck)
	}

	cb, err := parseCallback(body)
	if err != nil {
		logger.WarnCtx(ctx, "Malformed M-Pesa callback",
			logger.String("body", utils.Truncate(string(body), 512)),
			logger.Err(err))
		return c.JSON(http.StatusOK, callbackAck)
	}

	nrpkg.AddTransactionAttribute(txn, "checkout_request_id", cb.CheckoutRequestID)
	logger.InfoCtx(ctx, "M-Pesa callback received",
		logger.String("checkout_request_id", cb.CheckoutRequestID),
		logger.Int("result_code", cb.ResultCode),
		logger.String("result_desc", cb.ResultDesc))

	if err := h.paymentUC.HandleCallback(ctx, cb); err != nil {
		nrpkg.NoticeTransactionError(txn, err)
		logger.ErrorCtx(ctx, "Failed to process M-Pesa callback",
			logger.String("checkout_request_id", cb.CheckoutRequestID),
			logger.Err(err))
	}
	return c.JSON(http.StatusOK, callbackAck)
}

// ReconcilePayment handles POST /internal/payments/mpesa/:checkoutRequestID/reconcile
func (h *PaymentHandler) ReconcilePayment(c echo.Context) error {
	txn := nrpkg.FromEchoContext(c)
	nrpkg.SetTransactionName(txn, "Payment.ReconcilePayment")

	status, err := h.paymentUC.ReconcilePayment(c.Request().Context(), c.Param("checkoutRequestID"))
	if err != nil {
		return respondError(c, txn, err)
	}
	return utils.SuccessResponse(c, http.StatusOK, "Payment reconciled", status)
}

// ListStalePayments handles GET /internal/payments/mpesa/stale?olderThan=&limit=
func (h *PaymentHandler) ListStalePayments(c echo.Context) error {
	txn := nrpkg.FromEchoContext(c)
	nrpkg.SetTransactionName(txn, "Payment.ListStalePayments")

	var olderThan time.Duration
	if v := c.QueryParam("olderThan"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return utils.BadRequestResponse(c, "olderThan must be a positive duration such as 2m")
		}
		olderThan = d
	}
	var limit int
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return utils.BadRequestResponse(c, "limit must be a positive integer")
		}
		limit = n
	}

	payments, err := h.paymentUC.ListStalePayments(c.Request().Context(), olderThan, limit)
	if err != nil {
		return respondError(c, txn, err)
	}
	return utils.SuccessResponse(c, http.StatusOK, "Stale payments retrieved", payments)
}
