package poller

import (
	"context"
	"fmt"
	"io"
	nethttp "net/http"
	"net/url"

	pkghttp "github.com/piresc/trackwash/internal/pkg/http"
	"github.com/piresc/trackwash/internal/pkg/models"
	"github.com/piresc/trackwash/internal/utils"
	"github.com/piresc/trackwash/services/payment"
)

const statusPath = "/api/v1/payments/mpesa/status"

// StatusClient reads payment status from a remote booking service
type StatusClient struct {
	client *pkghttp.Client
	token  string
}

// NewStatusClient creates a status client authenticating with a customer JWT
func NewStatusClient(baseURL, token string) *StatusClient {
	return &StatusClient{
		client: pkghttp.NewClient(pkghttp.Config{BaseURL: baseURL}),
		token:  token,
	}
}

// GetPaymentStatus implements StatusQuerier over HTTP
func (c *StatusClient) GetPaymentStatus(ctx context.Context, checkoutRequestID string) (*models.PaymentStatusResponse, error) {
	endpoint := statusPath + "?checkoutRequestId=" + url.QueryEscape(checkoutRequestID)

	var opts []pkghttp.RequestOption
	if c.token != "" {
		opts = append(opts, pkghttp.WithBearerToken(c.token))
	}
	resp, err := c.client.Get(ctx, endpoint, opts...)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return nil, fmt.Errorf("failed to read status response: %w", err)
	}
	if resp.StatusCode == nethttp.StatusNotFound {
		return nil, payment.ErrPaymentNotFound
	}
	if resp.StatusCode >= 400 {
		return nil, &pkghttp.HTTPError{StatusCode: resp.StatusCode, Body: body}
	}

	var status models.PaymentStatusResponse
	if err := utils.ParseJSONResponse(body, &status); err != nil {
		return nil, err
	}
	return &status, nil
}
