package auth

import (
	"context"
	"crypto/subtle"
	"errors"

	"github.com/estateplan/apiv1/models"
	"github.com/estateplan/apiv1/store"
	"github.com/estateplan/apiv1/utils"
)

// VerifyTwoFactor completes a pending two-factor login. The temp token only
// binds the submission to the user; the code stored on the account is
// authoritative and is cleared on first successful use. An expired code is
// reported distinctly from a wrong one.
func (s *Service) VerifyTwoFactor(ctx context.Context, email, code, tempToken string) (*LoginResult, error) {
	email = normalizeEmail(email)
	claims, err := utils.VerifyToken(utils.TWO_FACTOR_TYPE, tempToken)
	if err != nil {
		return nil, err
	}
	if normalizeEmail(claims.Email) != email {
		return nil, utils.ErrTokenInvalid
	}
	user, err := s.store.Mutate(ctx, email, func(u *models.User) error {
		if u.TwoFactorCode == nil || u.TwoFactorCodeExpiry == nil {
			return ErrCodeMismatch
		}
		if s.now().After(*u.TwoFactorCodeExpiry) {
			u.TwoFactorCode = nil
			u.TwoFactorCodeExpiry = nil
			return ErrCodeExpired
		}
		if subtle.ConstantTimeCompare([]byte(*u.TwoFactorCode), []byte(code)) != 1 {
			return ErrCodeMismatch
		}
		u.TwoFactorCode = nil
		u.TwoFactorCodeExpiry = nil
		u.FailedLoginAttempts = 0
		u.LastFailedAttempt = nil
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrCodeMismatch
		}
		return nil, err
	}
	if claims.UserID != user.ID {
		return nil, utils.ErrTokenInvalid
	}
	accessToken, refreshToken, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}
	return &LoginResult{User: user, AccessToken: accessToken, RefreshToken: refreshToken}, nil
}
