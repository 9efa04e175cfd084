package handler

import (
	"github.com/labstack/echo/v4"
	"github.com/piresc/trackwash/internal/pkg/middleware"
	"github.com/piresc/trackwash/internal/pkg/websocket"
	"github.com/piresc/trackwash/services/booking"
	httpHandler "github.com/piresc/trackwash/services/booking/handler/http"
)

// Handler combines all handlers for the booking service
type Handler struct {
	bookingHTTP *httpHandler.BookingHandler
	live        *httpHandler.LiveHandler
}

// NewHandler creates a new combined handler. A nil hub disables the live
// booking stream.
func NewHandler(bookingUC booking.BookingUC, hub *websocket.Hub) *Handler {
	h := &Handler{
		bookingHTTP: httpHandler.NewBookingHandler(bookingUC),
	}
	if hub != nil {
		h.live = httpHandler.NewLiveHandler(bookingUC, hub)
	}
	return h
}

// RegisterRoutes registers all HTTP routes
func (h *Handler) RegisterRoutes(e *echo.Echo, authMW echo.MiddlewareFunc, apiKeyMW *middleware.APIKeyMiddleware) {
	bookings := e.Group("/api/v1/bookings", authMW)
	bookings.POST("", h.bookingHTTP.CreateBooking)
	bookings.GET("/:bookingID", h.bookingHTTP.GetBooking)
	bookings.POST("/:bookingID/cancel", h.bookingHTTP.CancelBooking)
	bookings.POST("/:bookingID/rate", h.bookingHTTP.RateBooking)
	if h.live != nil {
		bookings.GET("/:bookingID/live", h.live.WatchBooking)
	}

	// Operator and detailer tooling
	internal := e.Group("/internal/bookings", apiKeyMW.APIKeyHandler("admin", "booking-service"))
	internal.POST("/:bookingID/transition", h.bookingHTTP.ApplyTransition)
	internal.POST("/:bookingID/assign", h.bookingHTTP.AssignDetailer)
	internal.POST("/:bookingID/notify", h.bookingHTTP.RequestNotification)
}
