package constants

// Redis key formats
const (
	// M-Pesa OAuth access token, shared across booking-service replicas
	KeyMpesaAccessToken = "mpesa:oauth:token:%s" // Format: mpesa:oauth:token:{shortcode}

	// Rate Limiting
	KeyRateLimit = "rate:limit:%s:%s" // Format: rate:limit:{resource}:{identifier}
)
