package auth

import (
	"context"
	"errors"

	"github.com/estateplan/apiv1/models"
	"github.com/estateplan/apiv1/store"
	"github.com/estateplan/apiv1/utils"
)

// issueSession mints the 24h access token and the 7d refresh token; the
// refresh token is persisted so it can be revoked.
func (s *Service) issueSession(ctx context.Context, user *models.User) (string, string, error) {
	accessToken, err := utils.CreateToken(user.ID, user.Email, utils.ACCESS_TYPE)
	if err != nil {
		return "", "", err
	}
	refreshToken, err := utils.CreateToken(user.ID, user.Email, utils.REFRESH_TYPE)
	if err != nil {
		return "", "", err
	}
	err = s.store.CreateRefreshToken(ctx, &models.RefreshToken{
		UserID:      user.ID,
		TokenString: refreshToken.TokenString,
		ExpiresAt:   refreshToken.ExpireTime,
	})
	if err != nil {
		return "", "", err
	}
	return accessToken.TokenString, refreshToken.TokenString, nil
}

// VerifySession validates a bearer token and re-fetches the account, so a
// token never outlives a deactivation in observable behavior.
func (s *Service) VerifySession(ctx context.Context, tokenString string) (*models.User, error) {
	claims, err := utils.VerifyToken(utils.ACCESS_TYPE, tokenString)
	if err != nil {
		return nil, err
	}
	user, err := s.store.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrAccountDeactivated
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrAccountDeactivated
	}
	return user, nil
}

// Refresh exchanges a stored, unexpired refresh token for a fresh access
// token. Anything revoked by a password reset or deactivation no longer
// exists server-side and is rejected.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := utils.VerifyToken(utils.REFRESH_TYPE, refreshToken)
	if err != nil {
		return "", err
	}
	stored, err := s.store.FindRefreshToken(ctx, claims.UserID, refreshToken)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrRefreshInvalid
		}
		return "", err
	}
	if s.now().After(stored.ExpiresAt) {
		return "", ErrRefreshInvalid
	}
	user, err := s.store.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrAccountDeactivated
		}
		return "", err
	}
	if !user.IsActive {
		return "", ErrAccountDeactivated
	}
	accessToken, err := utils.CreateToken(user.ID, user.Email, utils.ACCESS_TYPE)
	if err != nil {
		return "", err
	}
	return accessToken.TokenString, nil
}
