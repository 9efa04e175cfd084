package payment

import (
	"context"
	"time"

	"github.com/piresc/trackwash/internal/pkg/models"
)

// PaymentUC defines payment initiation and reconciliation
// go:generate mockgen -destination=../mocks/mock_usecase.go -package=mocks github.com/piresc/trackwash/services/payment PaymentUC
type PaymentUC interface {
	InitiatePayment(ctx context.Context, req models.InitiatePaymentRequest) (*models.InitiatePaymentResponse, error)
	GetPaymentStatus(ctx context.Context, checkoutRequestID string) (*models.PaymentStatusResponse, error)
	HandleCallback(ctx context.Context, callback models.MpesaCallback) error
	ReconcilePayment(ctx context.Context, checkoutRequestID string) (*models.PaymentStatusResponse, error)
	ConfirmCryptoPayment(ctx context.Context, req models.CryptoPaymentRequest) (*models.Payment, error)
	ListStalePayments(ctx context.Context, olderThan time.Duration, limit int) ([]models.Payment, error)
}
