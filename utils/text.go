package utils

import (
	"regexp"
	"strings"
)

var asciiReplacer = strings.NewReplacer(
	"ç", "c", "Ç", "C",
	"ğ", "g", "Ğ", "G",
	"ı", "i", "İ", "I",
	"ö", "o", "Ö", "O",
	"ş", "s", "Ş", "S",
	"ü", "u", "Ü", "U",
)

// ToASCII replaces Turkish letters with their closest ASCII counterparts.
func ToASCII(s string) string {
	return asciiReplacer.Replace(s)
}

var whitespace = regexp.MustCompile(`\s`)

// ServiceFormFileName is the download name of a record's PDF form. Every
// whitespace character becomes one dash.
func ServiceFormFileName(plate string) string {
	return whitespace.ReplaceAllString(plate, "-") + "-hizmet-formu.pdf"
}

var mobileAgent = regexp.MustCompile(`iPhone|iPad|iPod|Android`)

// IsMobileAgent reports whether the user agent belongs to a touch device.
func IsMobileAgent(userAgent string) bool {
	return mobileAgent.MatchString(userAgent)
}

// NormalizePlate trims and upper-cases a plate. No format is enforced.
func NormalizePlate(plate string) string {
	return strings.ToUpper(strings.TrimSpace(plate))
}
