package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/piresc/trackwash/internal/pkg/models"
	"github.com/piresc/trackwash/internal/utils"
)

const (
	APIKeyHeader = "X-API-Key"
)

// APIKeyMiddleware guards /internal routes with per-caller keys
type APIKeyMiddleware struct {
	keys map[string]string
}

// NewAPIKeyMiddleware maps caller names to their configured keys
func NewAPIKeyMiddleware(cfg *models.APIKeyConfig) *APIKeyMiddleware {
	return &APIKeyMiddleware{
		keys: map[string]string{
			"booking-service":      cfg.BookingService,
			"notification-service": cfg.NotificationService,
			"reconcile-service":    cfg.ReconcileService,
			"admin":                cfg.Admin,
		},
	}
}

// APIKeyHandler accepts requests carrying the key of any allowed caller
func (m *APIKeyMiddleware) APIKeyHandler(allowedServices ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			apiKey := c.Request().Header.Get(APIKeyHeader)
			if apiKey == "" {
				return utils.ErrorResponseHandler(c, http.StatusUnauthorized, "API key is required")
			}

			for _, service := range allowedServices {
				expected := m.keys[service]
				if expected != "" && subtle.ConstantTimeCompare([]byte(apiKey), []byte(expected)) == 1 {
					c.Set("caller_service", service)
					return next(c)
				}
			}

			return utils.ErrorResponseHandler(c, http.StatusUnauthorized, "Invalid API key")
		}
	}
}
