package util

import "strings"

const venezuelaCountryCode = "58"

// Digits strips every non-digit character from s.
func Digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizePhone converts a Venezuelan phone number to its international
// digits-only form, e.g. "0414-123.45.67" becomes "584141234567". Numbers
// already carrying the country code are returned as digits.
func NormalizePhone(phone string) string {
	d := Digits(phone)
	switch {
	case len(d) == 11 && strings.HasPrefix(d, "0"):
		return venezuelaCountryCode + d[1:]
	case len(d) == 10 && !strings.HasPrefix(d, "0"):
		return venezuelaCountryCode + d
	default:
		return d
	}
}
