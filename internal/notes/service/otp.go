package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/aussiebroadwan/notes/internal/notes/domain"
	"github.com/aussiebroadwan/notes/internal/notes/store"
	"github.com/aussiebroadwan/notes/pkg/cryptox"
	"github.com/aussiebroadwan/notes/pkg/idx"
	"github.com/aussiebroadwan/notes/pkg/jwtx"
	"github.com/aussiebroadwan/notes/pkg/slogx"
)

// OTPService runs the email one-time-code flow: sign-up and sign-in issue a
// code, Verify exchanges it for a session.
//
// Concurrent issuances for one account are last-write-wins; only the most
// recently stored code verifies.
type OTPService struct {
	Store    store.Store
	Mailer   Mailer
	Sessions *SessionService
	Now      func() time.Time

	// NewCode defaults to cryptox.SixDigitCode.
	NewCode func() (string, error)
}

type SignupInput struct {
	Email string
	Name  string
	DOB   string
}

// IssueSignup creates an account with a pending code and emails the code.
// It returns the new user's id.
func (s *OTPService) IssueSignup(ctx context.Context, in SignupInput) (string, error) {
	name, dob := strings.TrimSpace(in.Name), strings.TrimSpace(in.DOB)
	if strings.TrimSpace(in.Email) == "" || name == "" || dob == "" {
		return "", domain.ErrMissingFields
	}
	email, ok := normalizeEmail(in.Email)
	if !ok {
		return "", domain.ErrInvalidEmail
	}

	_, err := s.Store.Users().GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		return "", domain.ErrEmailInUse
	case !errors.Is(err, store.ErrNotFound):
		return "", domain.Dependencyf(err, "lookup %s", email)
	}

	code, err := s.newCode()
	if err != nil {
		return "", err
	}
	now := clock(s.Now)
	expires := now.Add(domain.OTPTTL)

	u := domain.User{
		ID:           idx.NewAt(now).String(),
		Email:        email,
		Name:         name,
		DOB:          dob,
		OTPCode:      &code,
		OTPExpiresAt: &expires,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Store.Users().CreateUser(ctx, u); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return "", domain.ErrEmailInUse
		}
		return "", domain.Dependencyf(err, "create user")
	}

	slogx.FromContext(ctx).Info("user signed up", "user_id", u.ID)
	if err := s.send(ctx, email, code); err != nil {
		return "", err
	}
	return u.ID, nil
}

// IssueSignin replaces the account's pending code and emails the new one.
func (s *OTPService) IssueSignin(ctx context.Context, rawEmail string) error {
	if strings.TrimSpace(rawEmail) == "" {
		return domain.ErrEmailRequired
	}
	email, ok := normalizeEmail(rawEmail)
	if !ok {
		return domain.ErrUnknownUser
	}

	u, err := s.Store.Users().GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return domain.ErrUnknownUser
	}
	if err != nil {
		return domain.Dependencyf(err, "lookup %s", email)
	}

	code, err := s.newCode()
	if err != nil {
		return err
	}
	now := clock(s.Now)
	if err := s.Store.Users().SetOTP(ctx, u.ID, code, now.Add(domain.OTPTTL), now); err != nil {
		return domain.Dependencyf(err, "store code for %s", u.ID)
	}

	slogx.FromContext(ctx).Info("sign-in code issued", "user_id", u.ID)
	return s.send(ctx, email, code)
}

// Verify exchanges a pending code for a session. The code is consumed on
// success, so each code verifies at most once.
func (s *OTPService) Verify(ctx context.Context, rawEmail, code string) (Session, error) {
	if strings.TrimSpace(rawEmail) == "" || strings.TrimSpace(code) == "" {
		return Session{}, domain.ErrOTPRequired
	}
	email, ok := normalizeEmail(rawEmail)
	if !ok {
		return Session{}, domain.ErrInvalidOTP
	}

	u, err := s.Store.Users().GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return Session{}, domain.ErrInvalidOTP
	}
	if err != nil {
		return Session{}, domain.Dependencyf(err, "lookup %s", email)
	}

	now := clock(s.Now)
	if u.OTPCode == nil || u.OTPExpiresAt == nil ||
		!cryptox.EqualConstantTime(*u.OTPCode, code) ||
		!now.Before(*u.OTPExpiresAt) {
		return Session{}, domain.ErrInvalidOTP
	}

	consumed, err := s.Store.Users().ConsumeOTP(ctx, u.ID, code, now)
	if err != nil {
		return Session{}, domain.Dependencyf(err, "consume code for %s", u.ID)
	}
	if !consumed {
		// Another request verified or replaced the code first.
		return Session{}, domain.ErrInvalidOTP
	}
	u.OTPCode, u.OTPExpiresAt = nil, nil

	return s.Sessions.start(u, jwtx.AMROTP)
}

func (s *OTPService) newCode() (string, error) {
	gen := s.NewCode
	if gen == nil {
		gen = cryptox.SixDigitCode
	}
	code, err := gen()
	if err != nil {
		return "", domain.Dependencyf(err, "generate code")
	}
	return code, nil
}

// send delivers the code. The code is already stored; on failure the caller
// asks for a new one.
func (s *OTPService) send(ctx context.Context, email, code string) error {
	if err := s.Mailer.SendOTP(ctx, email, code); err != nil {
		return domain.Dependencyf(err, "send code")
	}
	return nil
}
