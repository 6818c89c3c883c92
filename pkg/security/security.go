// Package security provides validation, sanitization, and limits for the dialer packages.
package security

import (
	"crypto/subtle"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/callops/batch-dialer/pkg/core"
)

// Security limits and configuration
const (
	// MaxErrorMessageLength is the maximum length for stored error messages
	MaxErrorMessageLength = 4096

	// MaxContactNameLength is the maximum length for stored contact names
	MaxContactNameLength = 255

	// MaxListLimit is the hard limit for run history queries
	MaxListLimit = 500

	// DefaultListLimit is used when a caller asks for no particular limit
	DefaultListLimit = 20
)

// dialable matches an optional leading plus and 7 to 15 digits. National
// formats with a leading 0 pass; the gateway decides whether it can route them.
var dialable = regexp.MustCompile(`^\+?[0-9]{7,15}$`)

// phoneSeparators are stripped before validation
var phoneSeparators = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "")

// ValidatePhoneNumber rejects cells that cannot be a phone number at all,
// such as free text or too few digits. Common separators (spaces, dashes,
// dots, parentheses) are ignored.
func ValidatePhoneNumber(phone string) error {
	if !dialable.MatchString(phoneSeparators.Replace(strings.TrimSpace(phone))) {
		return core.ErrInvalidPhoneNumber
	}
	return nil
}

// MaskPhone hides all but the last four digits of a phone number.
func MaskPhone(phone string) string {
	phone = strings.TrimSpace(phone)
	n := utf8.RuneCountInString(phone)
	if n <= 4 {
		return strings.Repeat("*", n)
	}
	runes := []rune(phone)
	return strings.Repeat("*", n-4) + string(runes[n-4:])
}

// SanitizeErrorMessage truncates and sanitizes error messages for storage
func SanitizeErrorMessage(msg string) string {
	return truncate(stripControl(msg), MaxErrorMessageLength)
}

// SanitizeContactName strips control characters and truncates a contact name for storage
func SanitizeContactName(name string) string {
	return truncate(stripControl(name), MaxContactNameLength)
}

// TokenEqual compares a presented bearer token against the configured one in constant time.
// An empty configured token never matches.
func TokenEqual(presented, configured string) bool {
	if configured == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(configured)) == 1
}

// ClampListLimit ensures a history query limit is within limits
func ClampListLimit(n int) int {
	if n < 1 {
		return DefaultListLimit
	}
	if n > MaxListLimit {
		return MaxListLimit
	}
	return n
}

func stripControl(msg string) string {
	if msg == "" {
		return ""
	}

	// Remove any null bytes or control characters (except newlines)
	var sanitized strings.Builder
	sanitized.Grow(len(msg))

	for _, r := range msg {
		if r == '\n' || r == '\r' || r == '\t' || (r >= 32 && r != 127) {
			sanitized.WriteRune(r)
		}
	}
	return sanitized.String()
}

func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) > limit {
		runes := []rune(s)
		return string(runes[:limit-3]) + "..."
	}
	return s
}
