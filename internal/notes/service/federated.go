package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aussiebroadwan/notes/internal/notes/domain"
	"github.com/aussiebroadwan/notes/internal/notes/store"
	"github.com/aussiebroadwan/notes/pkg/googleid"
	"github.com/aussiebroadwan/notes/pkg/idx"
	"github.com/aussiebroadwan/notes/pkg/jwtx"
	"github.com/aussiebroadwan/notes/pkg/slogx"
)

// IDTokenVerifier verifies a Google ID token. *googleid.Verifier
// implements it.
type IDTokenVerifier interface {
	Verify(ctx context.Context, raw string) (googleid.Identity, error)
}

// FederatedService signs users in with a Google ID token, creating the
// account on first use.
type FederatedService struct {
	Store    store.Store
	Verifier IDTokenVerifier // nil disables Google sign-in
	Sessions *SessionService
	Now      func() time.Time
}

// Login verifies idToken and returns a session for the account with the
// token's email.
//
// An existing account bound to a different Google subject is refused. An
// existing account with no bound subject is signed in but left unbound, so a
// later sign-in from another Google account with the same email also works.
func (s *FederatedService) Login(ctx context.Context, idToken string) (Session, error) {
	if strings.TrimSpace(idToken) == "" {
		return Session{}, domain.ErrIDTokenRequired
	}
	if s.Verifier == nil {
		return Session{}, domain.ErrFederationDisabled
	}

	id, err := s.Verifier.Verify(ctx, idToken)
	switch {
	case errors.Is(err, googleid.ErrNoAudience):
		return Session{}, domain.ErrFederationDisabled
	case errors.Is(err, googleid.ErrFetchKeys):
		return Session{}, domain.Dependencyf(err, "google keys")
	case err != nil:
		slogx.FromContext(ctx).Info("google id token rejected", "error", err)
		return Session{}, fmt.Errorf("%w: %v", domain.ErrInvalidIDToken, err)
	}

	if id.Email == "" {
		return Session{}, domain.ErrMissingEmailClaim
	}
	if !id.EmailVerified {
		return Session{}, domain.ErrEmailNotVerified
	}
	email, ok := normalizeEmail(id.Email)
	if !ok {
		return Session{}, domain.ErrMissingEmailClaim
	}

	u, err := s.findOrCreate(ctx, email, id)
	if err != nil {
		return Session{}, err
	}
	return s.Sessions.start(u, jwtx.AMRGoogle)
}

func (s *FederatedService) findOrCreate(ctx context.Context, email string, id googleid.Identity) (domain.User, error) {
	u, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err == nil {
		return u, checkSubject(u, id.Subject)
	}
	if !errors.Is(err, store.ErrNotFound) {
		return domain.User{}, domain.Dependencyf(err, "lookup %s", email)
	}

	now := clock(s.Now)
	sub := id.Subject
	u = domain.User{
		ID:            idx.NewAt(now).String(),
		Email:         email,
		Name:          strings.TrimSpace(id.Name),
		GoogleSubject: &sub,
		NoteIDs:       []string{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	err = s.Store.Users().CreateUser(ctx, u)
	if err == nil {
		slogx.FromContext(ctx).Info("user created from google sign-in", "user_id", u.ID)
		return u, nil
	}
	if !errors.Is(err, store.ErrAlreadyExists) {
		return domain.User{}, domain.Dependencyf(err, "create user")
	}

	// Lost a race for the email, or the subject is bound to another email.
	u, err = s.Store.Users().GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, domain.ErrIdentityConflict
	}
	if err != nil {
		return domain.User{}, domain.Dependencyf(err, "lookup %s", email)
	}
	return u, checkSubject(u, id.Subject)
}

func checkSubject(u domain.User, sub string) error {
	if u.GoogleLinked() && *u.GoogleSubject != sub {
		return domain.ErrIdentityConflict
	}
	return nil
}
