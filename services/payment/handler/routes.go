package handler

import (
	"github.com/labstack/echo/v4"
	"github.com/piresc/trackwash/internal/pkg/middleware"
	"github.com/piresc/trackwash/services/payment"
	httpHandler "github.com/piresc/trackwash/services/payment/handler/http"
	"github.com/piresc/trackwash/services/payment/poller"
)

// Handler combines all handlers for the payment service
type Handler struct {
	paymentHTTP *httpHandler.PaymentHandler
}

// NewHandler creates a new combined handler
func NewHandler(paymentUC payment.PaymentUC, bookings payment.BookingGW, p *poller.Poller) *Handler {
	return &Handler{
		paymentHTTP: httpHandler.NewPaymentHandler(paymentUC, bookings, p),
	}
}

// RegisterRoutes registers all HTTP routes. initiateLimit guards STK push
// initiation and may be nil.
func (h *Handler) RegisterRoutes(e *echo.Echo, authMW echo.MiddlewareFunc, apiKeyMW *middleware.APIKeyMiddleware, initiateLimit echo.MiddlewareFunc) {
	payments := e.Group("/api/v1/payments", authMW)
	if initiateLimit != nil {
		payments.POST("/mpesa", h.paymentHTTP.InitiatePayment, initiateLimit)
	} else {
		payments.POST("/mpesa", h.paymentHTTP.InitiatePayment)
	}
	payments.GET("/mpesa/status", h.paymentHTTP.GetPaymentStatus)
	payments.GET("/mpesa/:checkoutRequestID/await", h.paymentHTTP.AwaitPayment)
	payments.POST("/crypto", h.paymentHTTP.ConfirmCryptoPayment)

	// Safaricom cannot authenticate, the callback URL is public
	e.POST("/webhooks/mpesa/callback", h.paymentHTTP.MpesaCallback)

	internal := e.Group("/internal/payments", apiKeyMW.APIKeyHandler("reconcile-service", "admin"))
	internal.POST("/mpesa/:checkoutRequestID/reconcile", h.paymentHTTP.ReconcilePayment)
	internal.GET("/mpesa/stale", h.paymentHTTP.ListStalePayments)
}
