package service

import (
	"net/mail"
	"strings"
)

// normalizeEmail trims and lowercases an address and rejects anything that
// is not a bare addr-spec.
func normalizeEmail(raw string) (string, bool) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return "", false
	}
	return email, true
}
