package gateway

import (
	"errors"
	"time"

	"github.com/piresc/trackwash/internal/pkg/circuitbreaker"
	pkghttp "github.com/piresc/trackwash/internal/pkg/http"
	"github.com/piresc/trackwash/internal/pkg/logger"
	"github.com/piresc/trackwash/internal/pkg/metrics"
	"github.com/piresc/trackwash/internal/pkg/retry"
)

const (
	defaultMaxRetries = 3
	sendTimeout       = 15 * time.Second
)

// newDeliveryClient builds a retrying client with a per-channel breaker
func newDeliveryClient(name, baseURL string, maxRetries int, baseDelay time.Duration, m *metrics.Metrics) *pkghttp.EnhancedClient {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	if baseDelay <= 0 {
		baseDelay = 500 * time.Millisecond
	}

	retrier := retry.New(retry.Config{
		MaxRetries: maxRetries,
		BaseDelay:  baseDelay,
		MaxDelay:   10 * time.Second,
		Multiplier: 2,
		Jitter:     true,
	}, logger.GetGlobalLogger())

	breakerCfg := circuitbreaker.DefaultConfig(name)
	// a rejected message says nothing about provider health
	breakerCfg.IsFailure = func(err error) bool {
		var httpErr *pkghttp.HTTPError
		if errors.As(err, &httpErr) {
			return httpErr.Temporary()
		}
		return err != nil
	}
	breakerCfg.OnStateChange = func(name string, _, to circuitbreaker.State) {
		m.SetBreakerState(name, int(to))
	}
	breaker := circuitbreaker.New(breakerCfg, logger.GetGlobalLogger())

	client := pkghttp.NewClient(pkghttp.Config{BaseURL: baseURL, Timeout: sendTimeout})
	return pkghttp.NewEnhancedClient(client, retrier, breaker)
}
