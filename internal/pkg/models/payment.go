package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentStatus is the state of a single payment attempt
type PaymentStatus string

const (
	// PaymentStatusPending belongs to the status-query contract; stored attempts
	// start in processing and never carry it
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusCompleted  PaymentStatus = "completed"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusTimeout    PaymentStatus = "timeout"
)

// IsTerminal reports whether the status is write-once final
func (s PaymentStatus) IsTerminal() bool {
	switch s {
	case PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusTimeout:
		return true
	}
	return false
}

// PaymentMethod is how the customer pays
type PaymentMethod string

const (
	PaymentMethodMpesa  PaymentMethod = "mpesa"
	PaymentMethodCrypto PaymentMethod = "crypto"
)

// Payment is one payment attempt, keyed by the provider correlation id
type Payment struct {
	ID                uuid.UUID     `json:"id" db:"id"`
	BookingID         uuid.UUID     `json:"bookingId" db:"booking_id"`
	CorrelationID     string        `json:"correlationId" db:"correlation_id"`
	MerchantRequestID string        `json:"merchantRequestId,omitempty" db:"merchant_request_id"`
	Method            PaymentMethod `json:"method" db:"method"`
	Amount            float64       `json:"amount" db:"amount"`
	Currency          string        `json:"currency" db:"currency"`
	PhoneNumber       string        `json:"phoneNumber,omitempty" db:"phone_number"`
	WalletAddress     string        `json:"walletAddress,omitempty" db:"wallet_address"`
	ChainID           *int64        `json:"chainId,omitempty" db:"chain_id"`
	TokenSymbol       string        `json:"tokenSymbol,omitempty" db:"token_symbol"`
	Status            PaymentStatus `json:"status" db:"status"`
	Receipt           string        `json:"receipt,omitempty" db:"receipt"`
	ResultCode        *int          `json:"resultCode,omitempty" db:"result_code"`
	ResultDesc        string        `json:"resultDesc,omitempty" db:"result_desc"`
	PaidAt            *time.Time    `json:"paidAt,omitempty" db:"paid_at"`
	CreatedAt         time.Time     `json:"createdAt" db:"created_at"`
	UpdatedAt         time.Time     `json:"updatedAt" db:"updated_at"`
}

// PaymentTransition is the payload of a conditional terminal write
type PaymentTransition struct {
	Status     PaymentStatus
	Receipt    string
	ResultCode *int
	ResultDesc string
	PaidAt     *time.Time
}

// InitiatePaymentRequest is the client request for an STK push
type InitiatePaymentRequest struct {
	BookingID uuid.UUID `json:"bookingId"`
	Phone     string    `json:"phone"`
	AmountKES float64   `json:"amountKes"`
}

// InitiatePaymentResponse mirrors the provider's acceptance
type InitiatePaymentResponse struct {
	Success             bool   `json:"success"`
	CheckoutRequestID   string `json:"checkoutRequestId,omitempty"`
	MerchantRequestID   string `json:"merchantRequestId,omitempty"`
	ResponseDescription string `json:"responseDescription,omitempty"`
	Error               string `json:"error,omitempty"`
	AlternateMethod     string `json:"alternateMethod,omitempty"`
}

// PaymentStatusResponse is what the status query and poller return
type PaymentStatusResponse struct {
	CheckoutRequestID string        `json:"checkoutRequestId"`
	BookingID         *uuid.UUID    `json:"bookingId,omitempty"`
	Status            PaymentStatus `json:"status"`
	Receipt           string        `json:"receipt,omitempty"`
	Amount            float64       `json:"amount,omitempty"`
	PaidAt            *time.Time    `json:"paidAt,omitempty"`
	ResultDesc        string        `json:"resultDesc,omitempty"`
}

// STKPushRequest is the gateway-level push request
type STKPushRequest struct {
	Phone            string
	Amount           float64
	BookingID        uuid.UUID
	AccountReference string
	Description      string
}

// STKPushResult is the provider's acceptance of a push request
type STKPushResult struct {
	CheckoutRequestID   string
	MerchantRequestID   string
	ResponseDescription string
	CustomerMessage     string
	NormalizedPhone     string
}

// STKQueryResult is the provider's answer to a direct status query
type STKQueryResult struct {
	CheckoutRequestID string
	ResultCode        *int // nil while the provider is still processing
	ResultDesc        string
}

// MpesaCallbackItem is one name/value pair of callback metadata
type MpesaCallbackItem struct {
	Name  string      `json:"Name"`
	Value interface{} `json:"Value,omitempty"`
}

// MpesaCallback is the provider result normalised from either payload shape
type MpesaCallback struct {
	MerchantRequestID string
	CheckoutRequestID string
	ResultCode        int
	ResultDesc        string
	Metadata          []MpesaCallbackItem
}

// CallbackAck is the fixed acknowledgement the provider expects
type CallbackAck struct {
	ResultCode int    `json:"ResultCode"`
	ResultDesc string `json:"ResultDesc"`
}

// CryptoPaymentRequest confirms an on-chain stablecoin transfer
type CryptoPaymentRequest struct {
	BookingID     uuid.UUID `json:"bookingId"`
	TxHash        string    `json:"txHash"`
	WalletAddress string    `json:"walletAddress"`
	ChainID       int64     `json:"chainId"`
	TokenSymbol   string    `json:"tokenSymbol"`
	AmountUSD     float64   `json:"amountUsd"`
}

// PaymentEvent is published when a payment attempt reaches a terminal status
type PaymentEvent struct {
	PaymentID     uuid.UUID     `json:"paymentId"`
	BookingID     uuid.UUID     `json:"bookingId"`
	CorrelationID string        `json:"correlationId"`
	Method        PaymentMethod `json:"method"`
	Status        PaymentStatus `json:"status"`
	Amount        float64       `json:"amount"`
	Currency      string        `json:"currency"`
	Receipt       string        `json:"receipt,omitempty"`
	ResultDesc    string        `json:"resultDesc,omitempty"`
	OccurredAt    time.Time     `json:"occurredAt"`
}
