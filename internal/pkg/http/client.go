package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	nethttp "net/http"
	"strings"
	"time"

	"github.com/piresc/trackwash/internal/pkg/logger"
	nrpkg "github.com/piresc/trackwash/internal/pkg/newrelic"
)

// DefaultTimeout for HTTP requests
const DefaultTimeout = 30 * time.Second

// Config configures a Client
type Config struct {
	BaseURL string
	Timeout time.Duration
	Headers map[string]string
}

// Client is a JSON HTTP client for provider and service-to-service calls
type Client struct {
	baseURL    string
	httpClient *nethttp.Client
	headers    map[string]string
}

// NewClient creates a new HTTP client
func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	headers := make(map[string]string, len(cfg.Headers))
	for k, v := range cfg.Headers {
		headers[k] = v
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &nethttp.Client{
			Timeout: cfg.Timeout,
		},
		headers: headers,
	}
}

// BaseURL returns the configured base URL without trailing slash
func (c *Client) BaseURL() string {
	return c.baseURL
}

// RequestOption mutates an outgoing request
type RequestOption func(*nethttp.Request)

// WithBearerToken sets Authorization: Bearer
func WithBearerToken(token string) RequestOption {
	return func(r *nethttp.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	}
}

// WithBasicAuth sets Authorization: Basic
func WithBasicAuth(username, password string) RequestOption {
	return func(r *nethttp.Request) {
		r.SetBasicAuth(username, password)
	}
}

// WithHeader sets an arbitrary header
func WithHeader(key, value string) RequestOption {
	return func(r *nethttp.Request) {
		r.Header.Set(key, value)
	}
}

// HTTPError is returned by the JSON helpers for 4xx and 5xx responses
type HTTPError struct {
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	body := string(e.Body)
	if len(body) > 256 {
		body = body[:256]
	}
	return fmt.Sprintf("HTTP error: %d %s", e.StatusCode, body)
}

// Temporary reports whether the status is worth retrying
func (e *HTTPError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == nethttp.StatusTooManyRequests
}

// Do sends a request with a JSON body. The caller owns the response body.
func (c *Client) Do(ctx context.Context, method, endpoint string, body interface{}, opts ...RequestOption) (*nethttp.Response, error) {
	url := c.baseURL + endpoint

	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := nethttp.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	for _, opt := range opts {
		opt(req)
	}

	resp, err := nrpkg.InstrumentHTTPRequest(ctx, req, func() (*nethttp.Response, error) {
		return c.httpClient.Do(req)
	})
	if err != nil {
		logger.Debug("HTTP request failed",
			logger.String("method", method),
			logger.String("url", url),
			logger.Err(err))
		return nil, fmt.Errorf("request failed: %w", err)
	}

	logger.Debug("HTTP request completed",
		logger.String("method", method),
		logger.String("url", url),
		logger.Int("status_code", resp.StatusCode))

	return resp, nil
}

// Get performs a GET request
func (c *Client) Get(ctx context.Context, endpoint string, opts ...RequestOption) (*nethttp.Response, error) {
	return c.Do(ctx, nethttp.MethodGet, endpoint, nil, opts...)
}

// Post performs a POST request
func (c *Client) Post(ctx context.Context, endpoint string, body interface{}, opts ...RequestOption) (*nethttp.Response, error) {
	return c.Do(ctx, nethttp.MethodPost, endpoint, body, opts...)
}

// GetJSON performs a GET request and decodes the JSON response into result
func (c *Client) GetJSON(ctx context.Context, endpoint string, result interface{}, opts ...RequestOption) error {
	resp, err := c.Get(ctx, endpoint, opts...)
	if err != nil {
		return err
	}
	return decodeJSON(resp, result)
}

// PostJSON performs a POST request and decodes the JSON response into result
func (c *Client) PostJSON(ctx context.Context, endpoint string, body interface{}, result interface{}, opts ...RequestOption) error {
	resp, err := c.Post(ctx, endpoint, body, opts...)
	if err != nil {
		return err
	}
	return decodeJSON(resp, result)
}

func decodeJSON(resp *nethttp.Response, result interface{}) error {
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return &HTTPError{StatusCode: resp.StatusCode, Body: data}
	}

	if result == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
