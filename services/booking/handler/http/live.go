package http

import (
	"github.com/labstack/echo/v4"
	nrpkg "github.com/piresc/trackwash/internal/pkg/newrelic"
	"github.com/piresc/trackwash/internal/pkg/websocket"
	"github.com/piresc/trackwash/services/booking"
)

// EventBookingSnapshot is the first frame of a live booking stream
const EventBookingSnapshot = "booking.snapshot"

// LiveHandler streams booking updates over a websocket
type LiveHandler struct {
	*BookingHandler
	hub *websocket.Hub
}

// NewLiveHandler creates the live booking handler
func NewLiveHandler(bookingUC booking.BookingUC, hub *websocket.Hub) *LiveHandler {
	return &LiveHandler{
		BookingHandler: NewBookingHandler(bookingUC),
		hub:            hub,
	}
}

// WatchBooking handles GET /api/v1/bookings/:bookingID/live. The socket
// receives the current booking first, then every transition and settled
// payment for it.
func (h *LiveHandler) WatchBooking(c echo.Context) error {
	txn := nrpkg.FromEchoContext(c)
	nrpkg.SetTransactionName(txn, "Booking.WatchBooking")

	b, ok, err := h.ownedBooking(c, txn)
	if !ok {
		return err
	}
	return h.hub.Serve(c, b.ID.String(), EventBookingSnapshot, b)
}
