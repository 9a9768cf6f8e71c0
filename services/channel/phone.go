package channel

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// NormalizePhone converts a sender id ("919876543210", "+91 98765 43210" or a
// national "9876543210") into E.164. Numbers that do not parse fall back to
// their digits so the customer is still addressable.
func NormalizePhone(raw, defaultRegion string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	digits := onlyDigits(raw)

	candidates := []struct{ number, region string }{
		{raw, defaultRegion},
	}
	// WhatsApp sends international numbers without the leading plus.
	if !strings.HasPrefix(raw, "+") && len(digits) > 10 {
		candidates = append([]struct{ number, region string }{{"+" + digits, ""}}, candidates...)
	}
	for _, c := range candidates {
		num, err := phonenumbers.Parse(c.number, c.region)
		if err != nil || !phonenumbers.IsValidNumber(num) {
			continue
		}
		return phonenumbers.Format(num, phonenumbers.E164)
	}
	if digits == "" {
		return ""
	}
	return "+" + digits
}

// WireNumber is the recipient form the Cloud API expects: digits only.
func WireNumber(e164 string) string {
	return onlyDigits(e164)
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
