package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"

	"github.com/estateplan/apiv1/models"
	"github.com/estateplan/apiv1/notifier"
	"github.com/estateplan/apiv1/store"
	"github.com/estateplan/apiv1/utils"
)

// ForgotPassword issues a single-use reset token, overwriting any token still
// outstanding. Unknown emails return nil so the HTTP response is identical
// either way; a failed email send is logged but never surfaced.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	token, err := utils.GenerateResetToken()
	if err != nil {
		return err
	}
	user, err := s.store.Mutate(ctx, email, func(u *models.User) error {
		expiry := s.now().Add(utils.RESET_TOKEN_DURATION)
		u.PasswordResetToken = &token
		u.PasswordResetExpiry = &expiry
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}
	result := s.notifier.Send(ctx, notifier.ResetLinkEmail(user.Email, user.DisplayName, token))
	if !result.Success {
		slog.Warn("password reset email failed", "userId", user.ID, "error", result.Err)
	}
	return nil
}

// ValidateResetToken is the read-only check used before the user submits a
// new password. It does not consume the token, but it does clear one that
// turns out to be expired.
func (s *Service) ValidateResetToken(ctx context.Context, token string) (*models.User, error) {
	user, err := s.store.FindByResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrResetTokenInvalid
		}
		return nil, err
	}
	if user.PasswordResetExpiry == nil || s.now().After(*user.PasswordResetExpiry) {
		_, clearErr := s.store.Mutate(ctx, user.Email, func(u *models.User) error {
			u.PasswordResetToken = nil
			u.PasswordResetExpiry = nil
			return nil
		})
		if clearErr != nil {
			slog.Warn("expired reset token cleanup failed", "userId", user.ID, "error", clearErr)
		}
		return nil, ErrResetTokenInvalid
	}
	return user, nil
}

// ResetPassword consumes the token: it re-validates under the row lock, sets
// the new password hash, and clears the token together with all lockout and
// failed-attempt state, so a successful reset always unlocks the account.
// Outstanding refresh tokens are revoked.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) (*models.User, error) {
	if err := utils.ValidatePassword(newPassword); err != nil {
		return nil, err
	}
	passwordHash, err := utils.HashPassword(newPassword)
	if err != nil {
		return nil, err
	}
	candidate, err := s.store.FindByResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrResetTokenInvalid
		}
		return nil, err
	}
	user, err := s.store.Mutate(ctx, candidate.Email, func(u *models.User) error {
		// re-check under the lock: the token may have been consumed or
		// replaced between the lookup and now
		if u.PasswordResetToken == nil ||
			subtle.ConstantTimeCompare([]byte(*u.PasswordResetToken), []byte(token)) != 1 {
			return ErrResetTokenInvalid
		}
		if u.PasswordResetExpiry == nil || s.now().After(*u.PasswordResetExpiry) {
			u.PasswordResetToken = nil
			u.PasswordResetExpiry = nil
			return ErrResetTokenInvalid
		}
		u.PasswordHash = passwordHash
		u.PasswordResetToken = nil
		u.PasswordResetExpiry = nil
		u.FailedLoginAttempts = 0
		u.AccountLocked = false
		u.LockoutExpiry = nil
		u.LastFailedAttempt = nil
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrResetTokenInvalid
		}
		return nil, err
	}
	if revokeErr := s.store.DeleteRefreshTokens(ctx, user.ID); revokeErr != nil {
		slog.Warn("refresh token revocation failed", "userId", user.ID, "error", revokeErr)
	}
	return user, nil
}
