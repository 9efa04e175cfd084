package gateway

import (
	"context"
	"fmt"
	"strings"
	"time"

	pkghttp "github.com/piresc/trackwash/internal/pkg/http"
	"github.com/piresc/trackwash/internal/pkg/logger"
	"github.com/piresc/trackwash/internal/pkg/metrics"
	"github.com/piresc/trackwash/internal/pkg/models"
	"github.com/piresc/trackwash/internal/utils"
	"github.com/piresc/trackwash/services/notification"
)

const (
	ResendBaseURL    = "https://api.resend.com"
	defaultFromEmail = "TrackWash <noreply@trackwash.co.ke>"
)

type resendEmail struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	Text    string   `json:"text,omitempty"`
}

type resendResponse struct {
	ID string `json:"id"`
}

// resendGW sends email through the Resend API
type resendGW struct {
	client  *pkghttp.EnhancedClient
	apiKey  string
	from    string
	metrics *metrics.Metrics
}

// NewResendGW creates the email sender
func NewResendGW(cfg models.NotificationConfig, m *metrics.Metrics) notification.SenderGW {
	baseURL := cfg.ResendBaseURL
	if baseURL == "" {
		baseURL = ResendBaseURL
	}
	from := cfg.FromEmail
	if from == "" {
		from = defaultFromEmail
	}
	return &resendGW{
		client:  newDeliveryClient("resend", baseURL, cfg.MaxRetries, 0, m),
		apiKey:  cfg.ResendAPIKey,
		from:    from,
		metrics: m,
	}
}

func (g *resendGW) Channel() models.NotificationChannel {
	return models.ChannelEmail
}

func (g *resendGW) Send(ctx context.Context, recipient string, msg models.Message) error {
	start := time.Now()
	var resp resendResponse
	err := g.client.PostJSON(ctx, "/emails", resendEmail{
		From:    g.from,
		To:      []string{recipient},
		Subject: msg.Subject,
		HTML:    msg.HTML,
		Text:    msg.Text,
	}, &resp, pkghttp.WithBearerToken(g.apiKey))
	g.metrics.ObserveGateway("resend_send", err, time.Since(start))
	if err != nil {
		return fmt.Errorf("resend: %w", err)
	}

	logger.DebugCtx(ctx, "Email accepted by Resend",
		logger.String("email_id", resp.ID),
		logger.String("to", utils.MaskEmail(recipient)),
		logger.String("subject", strings.TrimSpace(msg.Subject)))
	return nil
}
