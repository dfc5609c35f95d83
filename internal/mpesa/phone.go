package mpesa

import "strings"

const countryCodePrefix = "254"

// NormalizePhone converts a phone number to the 2547XXXXXXXX form the
// gateway expects. Whitespace and non-digits (including a leading +) are
// stripped, a leading 0 is replaced with the country code, and the
// country code is prefixed if absent.
//
// The transform is pure and idempotent: normalizing an already
// normalized number is a no-op.
func NormalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}

	digits := b.String()
	if digits == "" {
		return digits
	}

	if strings.HasPrefix(digits, "0") {
		return countryCodePrefix + digits[1:]
	}

	if !strings.HasPrefix(digits, countryCodePrefix) {
		return countryCodePrefix + digits
	}

	return digits
}
