package utils

import (
	"net/url"
	"strings"
)

const countryCode = "90"

// WhatsAppNumber turns a local phone number into the international digits
// wa.me expects: "0532 123 45 67" becomes "905321234567".
func WhatsAppNumber(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return ""
	}
	if strings.HasPrefix(digits, "0") {
		return countryCode + digits[1:]
	}
	if !strings.HasPrefix(digits, countryCode) {
		return countryCode + digits
	}
	return digits
}

// WhatsAppLink builds a wa.me deep link carrying a prefilled message.
func WhatsAppLink(phone, text string) string {
	number := WhatsAppNumber(phone)
	if number == "" {
		return ""
	}
	encoded := strings.ReplaceAll(url.QueryEscape(text), "+", "%20")
	return "https://wa.me/" + number + "?text=" + encoded
}
