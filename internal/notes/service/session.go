package service

import (
	"fmt"
	"time"

	"github.com/aussiebroadwan/notes/internal/notes/domain"
	"github.com/aussiebroadwan/notes/pkg/jwtx"
)

// Session is the result of a successful sign-in.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      domain.User
}

// SessionService issues stateless session tokens. Tokens are not stored and
// cannot be revoked; they lapse after TTL.
type SessionService struct {
	Signer jwtx.Signer
	Issuer string
	TTL    time.Duration
	Now    func() time.Time
}

// Issue signs a token whose subject is userID. amr records how the user
// authenticated.
func (s *SessionService) Issue(userID string, amr ...string) (string, time.Time, error) {
	ttl := s.TTL
	if ttl <= 0 {
		ttl = jwtx.DefaultSessionTTL
	}
	now := clock(s.Now)

	claims := jwtx.NewSessionClaims(userID, amr, ttl, s.Issuer, now)
	token, err := s.Signer.Sign(claims)
	if err != nil {
		return "", time.Time{}, domain.Dependencyf(err, "sign session token")
	}
	return token, claims.ExpiresAt.Time, nil
}

func (s *SessionService) start(u domain.User, amr string) (Session, error) {
	token, exp, err := s.Issue(u.ID, amr)
	if err != nil {
		return Session{}, fmt.Errorf("session for %s: %w", u.ID, err)
	}
	return Session{Token: token, ExpiresAt: exp, User: u}, nil
}

func clock(now func() time.Time) time.Time {
	if now != nil {
		return now().UTC()
	}
	return time.Now().UTC()
}
