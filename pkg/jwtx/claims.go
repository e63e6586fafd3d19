package jwtx

import (
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/aussiebroadwan/notes/pkg/cryptox"
)

// DefaultSessionTTL is the lifetime of a session token. Sessions are not
// refreshed; clients sign in again after expiry.
const DefaultSessionTTL = time.Hour

// Authentication method references carried in the "amr" claim.
const (
	AMROTP    = "otp"
	AMRGoogle = "google"
	AMRTOTP   = "totp"
)

// Claims are the session token claims.
type Claims struct {
	jwt.RegisteredClaims

	// AMR records how the session was established, e.g. ["otp"].
	AMR []string `json:"amr,omitempty"`
}

// NewSessionClaims builds session claims for subject, valid from now for ttl.
func NewSessionClaims(subject string, amr []string, ttl time.Duration, issuer string, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		AMR: amr,
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	// Only fails if the system entropy source does.
	jti, _ := cryptox.GenerateToken(cryptox.TokenSize128)
	return jti
}

// ValidateIssuer checks the issuer. An empty expectation accepts anything.
func (c *Claims) ValidateIssuer(expected ...string) error {
	if len(expected) == 0 {
		return nil
	}
	if !slices.Contains(expected, c.Issuer) {
		return ErrIssuer
	}
	return nil
}

// ValidateAudience checks that at least one expected audience is present.
func (c *Claims) ValidateAudience(expected []string) error {
	if len(expected) == 0 {
		return nil
	}
	for _, want := range expected {
		if slices.Contains(c.Audience, want) {
			return nil
		}
	}
	return ErrAudience
}

// ValidateExpiryAt checks exp and nbf against now, tolerating leeway of
// clock skew in both directions. A token without exp is rejected.
func (c *Claims) ValidateExpiryAt(now time.Time, leeway time.Duration) error {
	if c.ExpiresAt == nil || !now.Before(c.ExpiresAt.Add(leeway)) {
		return ErrExpired
	}
	if c.NotBefore != nil && now.Before(c.NotBefore.Add(-leeway)) {
		return ErrNotYetValid
	}
	return nil
}
