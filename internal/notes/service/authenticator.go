package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"github.com/aussiebroadwan/notes/internal/notes/domain"
	"github.com/aussiebroadwan/notes/internal/notes/store"
	"github.com/aussiebroadwan/notes/pkg/cryptox"
	"github.com/aussiebroadwan/notes/pkg/jwtx"
	"github.com/aussiebroadwan/notes/pkg/slogx"
)

// DefaultTOTPIssuer labels the account in authenticator apps.
const DefaultTOTPIssuer = "Noteapp"

var totpOpts = totp.ValidateOpts{
	Period:    30,
	Skew:      1,
	Digits:    otp.DigitsSix,
	Algorithm: otp.AlgorithmSHA1,
}

// AuthenticatorService lets a user sign in with an authenticator app code
// instead of an emailed one. Secrets are sealed with the user id as
// additional data, so a sealed secret copied to another row does not open.
type AuthenticatorService struct {
	Store    store.Store
	Sealer   *cryptox.Sealer
	Issuer   string
	Sessions *SessionService
	Now      func() time.Time
}

// Enroll generates a new secret for the user. Sign-in with it is not
// possible until Confirm succeeds. Enrolling again before confirming
// replaces the pending secret.
func (s *AuthenticatorService) Enroll(ctx context.Context, userID string) (domain.AuthenticatorEnrollment, error) {
	u, err := s.user(ctx, userID)
	if err != nil {
		return domain.AuthenticatorEnrollment{}, err
	}
	if u.AuthenticatorEnabled() {
		return domain.AuthenticatorEnrollment{}, domain.ErrAuthenticatorEnabled
	}

	issuer := s.issuer()
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: u.Email,
		Period:      totpOpts.Period,
		Digits:      totpOpts.Digits,
		Algorithm:   totpOpts.Algorithm,
	})
	if err != nil {
		return domain.AuthenticatorEnrollment{}, domain.Dependencyf(err, "generate totp key")
	}

	sealed, err := s.Sealer.Seal([]byte(key.Secret()), []byte(u.ID))
	if err != nil {
		return domain.AuthenticatorEnrollment{}, domain.Dependencyf(err, "seal totp secret")
	}
	if err := s.Store.Users().SetTOTPSecret(ctx, u.ID, sealed, clock(s.Now)); err != nil {
		return domain.AuthenticatorEnrollment{}, domain.Dependencyf(err, "store totp secret")
	}

	return domain.AuthenticatorEnrollment{
		Secret:     key.Secret(),
		OTPAuthURL: key.URL(),
		Issuer:     issuer,
		Account:    u.Email,
	}, nil
}

// Confirm activates a pending enrollment once the user proves the app
// produces valid codes.
func (s *AuthenticatorService) Confirm(ctx context.Context, userID, code string) error {
	if strings.TrimSpace(code) == "" {
		return domain.ErrCodeRequired
	}
	u, err := s.user(ctx, userID)
	if err != nil {
		return err
	}
	switch {
	case u.AuthenticatorEnabled():
		return domain.ErrAuthenticatorEnabled
	case u.TOTPSecret == nil:
		return domain.ErrAuthenticatorNoEnroll
	}

	now := clock(s.Now)
	ok, err := s.validate(u, code, now)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrInvalidAuthenticator
	}
	if err := s.Store.Users().EnableTOTP(ctx, u.ID, now); err != nil {
		return domain.Dependencyf(err, "enable totp for %s", u.ID)
	}

	slogx.FromContext(ctx).Info("authenticator enabled", "user_id", u.ID)
	return nil
}

// Remove disables authenticator sign-in. A current code is required.
func (s *AuthenticatorService) Remove(ctx context.Context, userID, code string) error {
	if strings.TrimSpace(code) == "" {
		return domain.ErrCodeRequired
	}
	u, err := s.user(ctx, userID)
	if err != nil {
		return err
	}
	if !u.AuthenticatorEnabled() {
		return domain.ErrAuthenticatorNotActive
	}

	now := clock(s.Now)
	ok, err := s.validate(u, code, now)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrInvalidAuthenticator
	}
	if err := s.Store.Users().DisableTOTP(ctx, u.ID, now); err != nil {
		return domain.Dependencyf(err, "disable totp for %s", u.ID)
	}

	slogx.FromContext(ctx).Info("authenticator removed", "user_id", u.ID)
	return nil
}

// SignIn exchanges an authenticator code for a session. Unknown accounts,
// accounts without an active authenticator and wrong codes all fail the
// same way.
func (s *AuthenticatorService) SignIn(ctx context.Context, rawEmail, code string) (Session, error) {
	if strings.TrimSpace(rawEmail) == "" {
		return Session{}, domain.ErrEmailRequired
	}
	if strings.TrimSpace(code) == "" {
		return Session{}, domain.ErrCodeRequired
	}
	email, ok := normalizeEmail(rawEmail)
	if !ok {
		return Session{}, domain.ErrInvalidAuthenticator
	}

	u, err := s.Store.Users().GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return Session{}, domain.ErrInvalidAuthenticator
	}
	if err != nil {
		return Session{}, domain.Dependencyf(err, "lookup %s", email)
	}
	if !u.AuthenticatorEnabled() {
		return Session{}, domain.ErrInvalidAuthenticator
	}

	valid, err := s.validate(u, code, clock(s.Now))
	if err != nil {
		return Session{}, err
	}
	if !valid {
		return Session{}, domain.ErrInvalidAuthenticator
	}
	return s.Sessions.start(u, jwtx.AMRTOTP)
}

func (s *AuthenticatorService) user(ctx context.Context, userID string) (domain.User, error) {
	u, err := s.Store.Users().GetUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, domain.Dependencyf(err, "get user %s", userID)
	}
	return u, nil
}

func (s *AuthenticatorService) validate(u domain.User, code string, now time.Time) (bool, error) {
	secret, err := s.Sealer.Open(*u.TOTPSecret, []byte(u.ID))
	if err != nil {
		return false, domain.Dependencyf(err, "open totp secret for %s", u.ID)
	}
	ok, err := totp.ValidateCustom(strings.TrimSpace(code), string(secret), now, totpOpts)
	if err != nil {
		// Malformed codes are just wrong codes.
		return false, nil
	}
	return ok, nil
}

func (s *AuthenticatorService) issuer() string {
	if s.Issuer != "" {
		return s.Issuer
	}
	return DefaultTOTPIssuer
}
