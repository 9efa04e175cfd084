package notification

import (
	"context"

	"github.com/piresc/trackwash/internal/pkg/models"
)

// NotificationUC renders and delivers customer notifications
// go:generate mockgen -destination=../mocks/mock_usecase.go -package=mocks github.com/piresc/trackwash/services/notification NotificationUC
type NotificationUC interface {
	Dispatch(ctx context.Context, event models.NotificationEvent) error
}
