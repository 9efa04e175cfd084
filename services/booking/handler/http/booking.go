package http

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/piresc/trackwash/internal/pkg/logger"
	"github.com/piresc/trackwash/internal/pkg/middleware"
	"github.com/piresc/trackwash/internal/pkg/models"
	nrpkg "github.com/piresc/trackwash/internal/pkg/newrelic"
	"github.com/piresc/trackwash/internal/utils"
	"github.com/piresc/trackwash/services/booking"
)

// BookingHandler handles HTTP requests for booking operations
type BookingHandler struct {
	bookingUC booking.BookingUC
}

// NewBookingHandler creates a new booking HTTP handler
func NewBookingHandler(bookingUC booking.BookingUC) *BookingHandler {
	return &BookingHandler{
		bookingUC: bookingUC,
	}
}

func bookingID(c echo.Context) (uuid.UUID, error) {
	return uuid.Parse(c.Param("bookingID"))
}

// respondError maps use case errors to HTTP statuses
func respondError(c echo.Context, txn *newrelic.Transaction, err error) error {
	switch {
	case errors.Is(err, booking.ErrInvalidBooking), errors.Is(err, booking.ErrInvalidRating):
		return utils.BadRequestResponse(c, err.Error())
	case errors.Is(err, booking.ErrBookingNotFound):
		return utils.NotFoundResponse(c, err.Error())
	case errors.Is(err, booking.ErrIllegalTransition):
		return utils.ConflictResponse(c, err.Error())
	}

	nrpkg.NoticeTransactionError(txn, err)
	logger.ErrorCtx(c.Request().Context(), "Booking request failed",
		logger.String("path", c.Path()),
		logger.Err(err))
	return utils.InternalServerErrorResponse(c, "Internal server error")
}

// ownedBooking loads the booking and enforces that the caller owns it.
// When ok is false the response has already been written.
func (h *BookingHandler) ownedBooking(c echo.Context, txn *newrelic.Transaction) (b *models.Booking, ok bool, err error) {
	id, err := bookingID(c)
	if err != nil {
		return nil, false, utils.BadRequestResponse(c, "Invalid booking ID")
	}

	b, err = h.bookingUC.GetBooking(c.Request().Context(), id)
	if err != nil {
		return nil, false, respondError(c, txn, err)
	}

	userID, _ := middleware.UserID(c)
	if b.CustomerID != userID && !middleware.IsStaff(c) {
		return nil, false, utils.ForbiddenResponse(c, "Booking belongs to another customer")
	}
	return b, true, nil
}

// CreateBooking handles POST /api/v1/bookings
func (h *BookingHandler) CreateBooking(c echo.Context) error {
	txn := nrpkg.FromEchoContext(c)
	nrpkg.SetTransactionName(txn, "Booking.CreateBooking")

	userID, ok := middleware.UserID(c)
	if !ok {
		return utils.UnauthorizedResponse(c, "Authentication required")
	}

	var req models.CreateBookingRequest
	if err := c.Bind(&req); err != nil {
		nrpkg.NoticeTransactionError(txn, err)
		return utils.BadRequestResponse(c, "Invalid request body")
	}
	req.CustomerID = userID

	b, err := h.bookingUC.CreateBooking(c.Request().Context(), req)
	if err != nil {
		return respondError(c, txn, err)
	}

	nrpkg.AddTransactionAttribute(txn, "booking_id", b.ID.String())
	return utils.SuccessResponse(c, http.StatusCreated, "Booking created", b)
}

// GetBooking handles GET /api/v1/bookings/:bookingID
func (h *BookingHandler) GetBooking(c echo.Context) error {
	txn := nrpkg.FromEchoContext(c)
	nrpkg.SetTransactionName(txn, "Booking.GetBooking")

	b, ok, err := h.ownedBooking(c, txn)
	if !ok {
		return err
	}
	return utils.SuccessResponse(c, http.StatusOK, "Booking retrieved", b)
}

// CancelBooking handles POST /api/v1/bookings/:bookingID/cancel
func (h *BookingHandler) CancelBooking(c echo.Context) error {
	txn := nrpkg.FromEchoContext(c)
	nrpkg.SetTransactionName(txn, "Booking.CancelBooking")

	b, ok, err := h.ownedBooking(c, txn)
	if !ok {
		return err
	}

	userID, _ := middleware.UserID(c)
	updated, err := h.bookingUC.CancelBooking(c.Request().Context(), b.ID, &userID)
	if err != nil {
		return respondError(c, txn, err)
	}
	return utils.SuccessResponse(c, http.StatusOK, "Booking cancelled", updated)
}

// RateBooking handles POST /api/v1/bookings/:bookingID/rate
func (h *BookingHandler) RateBooking(c echo.Context) error {
	txn := nrpkg.FromEchoContext(c)
	nrpkg.SetTransactionName(txn, "Booking.RateBooking")

	var req models.RateBookingRequest
	if err := c.Bind(&req); err != nil {
		nrpkg.NoticeTransactionError(txn, err)
		return utils.BadRequestResponse(c, "Invalid request body")
	}

	b, ok, err := h.ownedBooking(c, txn)
	if !ok {
		return err
	}
	req.BookingID = b.ID

	updated, err := h.bookingUC.RateBooking(c.Request().Context(), req)
	if err != nil {
		return respondError(c, txn, err)
	}
	return utils.SuccessResponse(c, http.StatusOK, "Booking rated", updated)
}

// ApplyTransition handles POST /internal/bookings/:bookingID/transition
func (h *BookingHandler) ApplyTransition(c echo.Context) error {
	txn := nrpkg.FromEchoContext(c)
	nrpkg.SetTransactionName(txn, "Booking.ApplyTransition")

	id, err := bookingID(c)
	if err != nil {
		return utils.BadRequestResponse(c, "Invalid booking ID")
	}

	var req models.TransitionRequest
	if err := c.Bind(&req); err != nil {
		nrpkg.NoticeTransactionError(txn, err)
		return utils.BadRequestResponse(c, "Invalid request body")
	}
	if req.TargetStatus == "" {
		return utils.BadRequestResponse(c, "targetStatus is required")
	}
	req.BookingID = id

	b, err := h.bookingUC.ApplyTransition(c.Request().Context(), req)
	if err != nil {
		return respondError(c, txn, err)
	}

	nrpkg.AddTransactionAttribute(txn, "booking_status", string(b.Status))
	return utils.SuccessResponse(c, http.StatusOK, "Booking status updated", b)
}

// AssignDetailer handles POST /internal/bookings/:bookingID/assign
func (h *BookingHandler) AssignDetailer(c echo.Context) error {
	txn := nrpkg.FromEchoContext(c)
	nrpkg.SetTransactionName(txn, "Booking.AssignDetailer")

	id, err := bookingID(c)
	if err != nil {
		return utils.BadRequestResponse(c, "Invalid booking ID")
	}

	var req models.AssignDetailerRequest
	if err := c.Bind(&req); err != nil {
		nrpkg.NoticeTransactionError(txn, err)
		return utils.BadRequestResponse(c, "Invalid request body")
	}
	req.BookingID = id

	b, err := h.bookingUC.AssignDetailer(c.Request().Context(), req)
	if err != nil {
		return respondError(c, txn, err)
	}
	return utils.SuccessResponse(c, http.StatusOK, "Detailer assigned", b)
}

type notifyRequest struct {
	Type models.NotificationType `json:"type"`
	Data map[string]interface{}  `json:"data,omitempty"`
}

// RequestNotification handles POST /internal/bookings/:bookingID/notify
func (h *BookingHandler) RequestNotification(c echo.Context) error {
	txn := nrpkg.FromEchoContext(c)
	nrpkg.SetTransactionName(txn, "Booking.RequestNotification")

	id, err := bookingID(c)
	if err != nil {
		return utils.BadRequestResponse(c, "Invalid booking ID")
	}

	var req notifyRequest
	if err := c.Bind(&req); err != nil {
		nrpkg.NoticeTransactionError(txn, err)
		return utils.BadRequestResponse(c, "Invalid request body")
	}

	if err := h.bookingUC.RequestNotification(c.Request().Context(), id, req.Type, req.Data); err != nil {
		return respondError(c, txn, err)
	}
	return utils.SuccessResponse(c, http.StatusAccepted, "Notification queued", nil)
}
