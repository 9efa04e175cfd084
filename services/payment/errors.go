package payment

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidPhone           = errors.New("invalid phone number, use 07XXXXXXXX or 2547XXXXXXXX")
	ErrInvalidAmount          = errors.New("amount must be positive")
	ErrPaymentNotFound        = errors.New("payment not found")
	ErrPaymentInProgress      = errors.New("a payment for this booking is already in progress")
	ErrDuplicateCorrelationID = errors.New("payment with this correlation id already exists")
	ErrInvalidCryptoPayment   = errors.New("invalid crypto payment")
	ErrBookingNotPayable      = errors.New("booking is not awaiting payment")
	ErrInvalidCallback        = errors.New("invalid payment callback")

	ErrGatewayAuth     = errors.New("payment gateway authentication failed")
	ErrGatewayRejected = errors.New("payment gateway rejected the request")
	ErrNetwork         = errors.New("payment gateway unreachable")
)

// GatewayErrorKind classifies provider failures
type GatewayErrorKind int

const (
	GatewayAuth GatewayErrorKind = iota + 1
	GatewayRejected
	GatewayNetwork
)

func (k GatewayErrorKind) String() string {
	switch k {
	case GatewayAuth:
		return "auth"
	case GatewayRejected:
		return "rejected"
	case GatewayNetwork:
		return "network"
	}
	return "unknown"
}

// GatewayError is a normalised provider failure
type GatewayError struct {
	Kind    GatewayErrorKind
	Code    string // provider errorCode or ResponseCode
	Message string
	Err     error
}

func (e *GatewayError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Code != "" {
		return fmt.Sprintf("mpesa %s error [%s]: %s", e.Kind, e.Code, msg)
	}
	return fmt.Sprintf("mpesa %s error: %s", e.Kind, msg)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// Is maps each kind onto its sentinel
func (e *GatewayError) Is(target error) bool {
	switch target {
	case ErrGatewayAuth:
		return e.Kind == GatewayAuth
	case ErrGatewayRejected:
		return e.Kind == GatewayRejected
	case ErrNetwork:
		return e.Kind == GatewayNetwork
	}
	return false
}
