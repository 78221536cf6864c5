package utils

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var feePrinter = message.NewPrinter(language.Turkish)

// ParseFee reads a fee typed in Turkish notation ("1.500,00"). Thousands dots
// are dropped and the decimal comma becomes a point. Anything that does not
// parse, or parses negative, is 0.
func ParseFee(text string) float64 {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.ReplaceAll(cleaned, ".", "")
	cleaned = strings.ReplaceAll(cleaned, ",", ".")
	if cleaned == "" {
		return 0
	}
	fee, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || fee < 0 || math.IsNaN(fee) || math.IsInf(fee, 0) {
		return 0
	}
	return fee
}

// FormatFee renders fee with Turkish grouping and two fraction digits, e.g. "1.500,00".
func FormatFee(fee float64) string {
	return feePrinter.Sprintf("%.2f", fee)
}
