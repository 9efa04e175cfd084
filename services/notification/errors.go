package notification

import "errors"

var (
	ErrRecipientNotFound = errors.New("booking recipient not found")
	ErrUnknownTemplate   = errors.New("unknown notification type")
	ErrNoRecipient       = errors.New("recipient has no address for channel")
)
