package http

import (
	"github.com/piresc/trackwash/internal/pkg/logger"
	"github.com/piresc/trackwash/internal/pkg/models"
)

// APIKeyHeader is the header name for API key
const APIKeyHeader = "X-API-Key"

// APIKeyClient calls /internal routes of another TrackWash service
type APIKeyClient struct {
	*Client
	serviceName string
}

// NewAPIKeyClient picks the key configured for serviceName and attaches it
// to every request
func NewAPIKeyClient(config *models.APIKeyConfig, serviceName, baseURL string) *APIKeyClient {
	var apiKey string

	switch serviceName {
	case "booking-service":
		apiKey = config.BookingService
	case "notification-service":
		apiKey = config.NotificationService
	case "reconcile-service":
		apiKey = config.ReconcileService
	case "admin":
		apiKey = config.Admin
	default:
		logger.Warn("Unknown service name for API key", logger.String("service", serviceName))
	}

	headers := map[string]string{}
	if apiKey != "" {
		headers[APIKeyHeader] = apiKey
	}

	return &APIKeyClient{
		Client:      NewClient(Config{BaseURL: baseURL, Timeout: DefaultTimeout, Headers: headers}),
		serviceName: serviceName,
	}
}

// ServiceName returns the caller identity this client authenticates as
func (c *APIKeyClient) ServiceName() string {
	return c.serviceName
}
