package notification

import (
	"context"

	"github.com/piresc/trackwash/internal/pkg/models"
)

// SenderGW delivers a rendered message over one channel
// go:generate mockgen -destination=../mocks/mock_gateway.go -package=mocks github.com/piresc/trackwash/services/notification SenderGW
type SenderGW interface {
	Channel() models.NotificationChannel
	Send(ctx context.Context, recipient string, msg models.Message) error
}
