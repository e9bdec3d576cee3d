// Package phone canonicalizes Kenyan mobile numbers for OTP delivery and
// M-Pesa payment requests.
package phone

import (
	"errors"
	"regexp"
	"strings"
)

const countryCode = "254"

// ErrInvalidPhone is returned when a number is not a valid Kenyan mobile MSISDN
var ErrInvalidPhone = errors.New("please enter a valid Kenyan phone number (e.g., 254712345678)")

var msisdnPattern = regexp.MustCompile(`^254[17]\d{8}$`)

func digitsOnly(value string) string {
	var b strings.Builder
	b.Grow(len(value))
	for _, r := range value {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// MSISDN strips formatting and prefixes the country code: "0712345678",
// "712345678" and "254712345678" all become "254712345678".
func MSISDN(value string) string {
	cleaned := digitsOnly(value)
	switch {
	case strings.HasPrefix(cleaned, countryCode):
		return cleaned
	case strings.HasPrefix(cleaned, "0"):
		return countryCode + cleaned[1:]
	default:
		return countryCode + cleaned
	}
}

// Normalize returns the E.164 form used by the auth provider ("+254712345678").
func Normalize(value string) string {
	return "+" + MSISDN(value)
}

// ValidMSISDN reports whether msisdn is a Safaricom/Airtel style number the
// payment processor accepts.
func ValidMSISDN(msisdn string) bool {
	return msisdnPattern.MatchString(msisdn)
}

// ParseMSISDN normalizes value and validates the result.
func ParseMSISDN(value string) (string, error) {
	msisdn := MSISDN(value)
	if !ValidMSISDN(msisdn) {
		return "", ErrInvalidPhone
	}
	return msisdn, nil
}

// Parse is ParseMSISDN for the auth provider: it returns the E.164 form.
func Parse(value string) (string, error) {
	if _, err := ParseMSISDN(value); err != nil {
		return "", err
	}
	return Normalize(value), nil
}

// Mask hides the middle of a phone number for logging (e.g., +2*********78)
func Mask(phone string) string {
	if len(phone) <= 4 {
		return "****"
	}
	return phone[:2] + strings.Repeat("*", len(phone)-4) + phone[len(phone)-2:]
}
