package validation

import (
	"regexp"
	"strings"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// IsValidEmail matches the local@domain.tld shape used across the service.
func IsValidEmail(email string) bool {
	return emailPattern.MatchString(strings.TrimSpace(email))
}

// NormalizeUSPhone strips separators, a leading '+' and the country code 1,
// returning the 10 remaining digits. ok is false for anything else.
func NormalizeUSPhone(phone string) (digits string, ok bool) {
	var b strings.Builder
	for _, r := range strings.TrimSpace(phone) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '.' || r == '(' || r == ')' || r == '+':
		default:
			return "", false
		}
	}
	d := b.String()
	if len(d) == 11 && d[0] == '1' {
		d = d[1:]
	}
	if len(d) != 10 {
		return "", false
	}
	return d, true
}

// SanitizeInput drops markup-significant characters and NULs from free text.
func SanitizeInput(s string) string {
	if s == "" {
		return s
	}
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		switch r {
		case '<', '>', '"', '\'', '&', 0:
			return -1
		}
		return r
	}, s))
}
