package http

import (
	"context"
	"errors"

	"github.com/piresc/trackwash/internal/pkg/circuitbreaker"
	"github.com/piresc/trackwash/internal/pkg/retry"
)

// EnhancedClient adds retry and an optional circuit breaker on top of Client.
// 4xx responses other than 429 are never retried.
type EnhancedClient struct {
	client  *Client
	retrier *retry.Retrier
	breaker *circuitbreaker.CircuitBreaker
}

// NewEnhancedClient wraps client; breaker may be nil
func NewEnhancedClient(client *Client, retrier *retry.Retrier, breaker *circuitbreaker.CircuitBreaker) *EnhancedClient {
	return &EnhancedClient{
		client:  client,
		retrier: retrier,
		breaker: breaker,
	}
}

// PostJSON posts with retries
func (c *EnhancedClient) PostJSON(ctx context.Context, endpoint string, body interface{}, result interface{}, opts ...RequestOption) error {
	return c.retrier.Execute(ctx, func(ctx context.Context) error {
		call := func(ctx context.Context) error {
			return c.client.PostJSON(ctx, endpoint, body, result, opts...)
		}

		var err error
		if c.breaker != nil {
			err = c.breaker.Execute(ctx, call)
		} else {
			err = call(ctx)
		}

		var httpErr *HTTPError
		if errors.As(err, &httpErr) && !httpErr.Temporary() {
			return retry.Permanent(err)
		}
		return err
	})
}
