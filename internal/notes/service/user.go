package service

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/notes/internal/notes/domain"
	"github.com/aussiebroadwan/notes/internal/notes/store"
)

type UserService struct {
	Store store.Store
}

// Profile returns the authenticated user's account.
func (s *UserService) Profile(ctx context.Context, userID string) (domain.User, error) {
	u, err := s.Store.Users().GetUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, domain.Dependencyf(err, "get user %s", userID)
	}
	return u, nil
}
