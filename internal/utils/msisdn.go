package utils

import (
	"errors"
	"regexp"
	"strings"
)

// ErrInvalidMSISDN is returned for numbers that are not Kenyan mobile numbers
var ErrInvalidMSISDN = errors.New("invalid phone number format. Use 254XXXXXXXXX")

// Safaricom and Airtel mobile ranges start with 7 or 1
var kenyanMSISDN = regexp.MustCompile(`^(?:254|\+254|0)?([17]\d{8})$`)

// ValidateKenyanMSISDN accepts 07XXXXXXXX, 01XXXXXXXX, 7XXXXXXXX, 254XXXXXXXXX
// and +254XXXXXXXXX (spaces and dashes ignored) and returns 254XXXXXXXXX
func ValidateKenyanMSISDN(msisdn string) (string, error) {
	stripped := strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(msisdn))

	m := kenyanMSISDN.FindStringSubmatch(stripped)
	if m == nil {
		return "", ErrInvalidMSISDN
	}

	return "254" + m[1], nil
}
