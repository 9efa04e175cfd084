package gateway

import (
	"context"
	"fmt"
	"net/url"
	"time"

	pkghttp "github.com/piresc/trackwash/internal/pkg/http"
	"github.com/piresc/trackwash/internal/pkg/logger"
	"github.com/piresc/trackwash/internal/pkg/metrics"
	"github.com/piresc/trackwash/internal/pkg/models"
	"github.com/piresc/trackwash/internal/utils"
	"github.com/piresc/trackwash/services/notification"
)

const WhatsAppBaseURL = "https://graph.facebook.com/v19.0"

type whatsAppText struct {
	Body       string `json:"body"`
	PreviewURL bool   `json:"preview_url"`
}

type whatsAppMessage struct {
	MessagingProduct string       `json:"messaging_product"`
	RecipientType    string       `json:"recipient_type"`
	To               string       `json:"to"`
	Type             string       `json:"type"`
	Text             whatsAppText `json:"text"`
}

type whatsAppResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// whatsAppGW sends text messages through the WhatsApp Cloud API
type whatsAppGW struct {
	client   *pkghttp.EnhancedClient
	token    string
	senderID string
	metrics  *metrics.Metrics
}

// NewWhatsAppGW creates the WhatsApp sender
func NewWhatsAppGW(cfg models.NotificationConfig, m *metrics.Metrics) notification.SenderGW {
	baseURL := cfg.WhatsAppBaseURL
	if baseURL == "" {
		baseURL = WhatsAppBaseURL
	}
	return &whatsAppGW{
		client:   newDeliveryClient("whatsapp", baseURL, cfg.MaxRetries, 0, m),
		token:    cfg.WhatsAppToken,
		senderID: cfg.WhatsAppSenderID,
		metrics:  m,
	}
}

func (g *whatsAppGW) Channel() models.NotificationChannel {
	return models.ChannelWhatsApp
}

func (g *whatsAppGW) Send(ctx context.Context, recipient string, msg models.Message) error {
	start := time.Now()
	var resp whatsAppResponse
	err := g.client.PostJSON(ctx, "/"+url.PathEscape(g.senderID)+"/messages", whatsAppMessage{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               recipient,
		Type:             "text",
		Text:             whatsAppText{Body: msg.Text, PreviewURL: false},
	}, &resp, pkghttp.WithBearerToken(g.token))
	g.metrics.ObserveGateway("whatsapp_send", err, time.Since(start))
	if err != nil {
		return fmt.Errorf("whatsapp: %w", err)
	}

	var id string
	if len(resp.Messages) > 0 {
		id = resp.Messages[0].ID
	}
	logger.DebugCtx(ctx, "WhatsApp message accepted",
		logger.String("message_id", id),
		logger.String("to", utils.MaskPhoneNumber(recipient)))
	return nil
}
