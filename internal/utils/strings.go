package utils

import (
	"regexp"
	"strings"
)

var (
	emailRegex      = regexp.MustCompile(`^[a-zA-Z0-9_%+\-]([a-zA-Z0-9._%+\-]*[a-zA-Z0-9_%+\-])?@[a-zA-Z0-9]([a-zA-Z0-9\-]*[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9\-]*[a-zA-Z0-9])?)*\.[a-zA-Z]{2,}$`)
	txHashRegex     = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)
	evmAddressRegex = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
	controlChars    = regexp.MustCompile(`[\p{Cc}\p{Cf}\p{Co}\p{Cs}]`)
	whitespaceRun   = regexp.MustCompile(`\s+`)
	nonDigits       = regexp.MustCompile(`[^0-9]`)
)

// IsValidEmail checks if a string is a valid email address
func IsValidEmail(email string) bool {
	return emailRegex.MatchString(email)
}

// IsTxHash reports whether s is a 0x-prefixed 32-byte transaction hash
func IsTxHash(s string) bool {
	return txHashRegex.MatchString(s)
}

// IsEVMAddress reports whether s is a 0x-prefixed 20-byte account address
func IsEVMAddress(s string) bool {
	return evmAddressRegex.MatchString(s)
}

// ShortRef returns the first n characters of id upper-cased, used for
// booking codes and M-Pesa account references
func ShortRef(id string, n int) string {
	id = strings.ReplaceAll(id, "-", "")
	if len(id) > n {
		id = id[:n]
	}
	return strings.ToUpper(id)
}

// Truncate truncates a string to maxLength runes adding an ellipsis
func Truncate(s string, maxLength int) string {
	runes := []rune(s)
	if len(runes) <= maxLength {
		return s
	}
	if maxLength <= 3 {
		return "..."
	}
	return string(runes[:maxLength-3]) + "..."
}

// SanitizeString strips control characters and collapses whitespace
func SanitizeString(s string) string {
	result := controlChars.ReplaceAllString(s, " ")
	result = whitespaceRun.ReplaceAllString(result, " ")
	return strings.TrimSpace(result)
}

// MaskEmail masks the local part of an email address
func MaskEmail(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return email
	}

	localPart := parts[0]
	if len(localPart) > 2 {
		localPart = localPart[:2] + strings.Repeat("*", len(localPart)-2)
	}

	return localPart + "@" + parts[1]
}

// MaskPhoneNumber keeps only the last 4 digits visible
func MaskPhoneNumber(phone string) string {
	cleanPhone := nonDigits.ReplaceAllString(phone, "")
	if len(cleanPhone) <= 4 {
		return cleanPhone
	}

	return strings.Repeat("*", len(cleanPhone)-4) + cleanPhone[len(cleanPhone)-4:]
}
