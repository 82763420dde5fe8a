package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/estateplan/apiv1/models"
	"github.com/estateplan/apiv1/notifier"
	"github.com/estateplan/apiv1/store"
	"github.com/estateplan/apiv1/utils"
)

// dummyHash costs the same to compare against as a real stored hash, so a
// login for an unknown or deactivated email takes as long as a wrong
// password for a known one.
var dummyHash = func() string {
	h, _ := utils.HashPassword("not-a-real-password")
	return h
}()

// LoginResult carries either a full session or the pending-2FA state, never
// both.
type LoginResult struct {
	User              *models.User
	AccessToken       string
	RefreshToken      string
	RequiresTwoFactor bool
	TempToken         string
}

// Login runs the whole attempt against one consistent snapshot of the
// account: lockout gate (with lazy expiry), password check, attempt
// accounting, and 2FA code issuance all commit in a single Mutate. The
// attempt that reaches the threshold reports the lockout itself.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = normalizeEmail(email)
	var lockedNow bool
	var code string
	user, err := s.store.Mutate(ctx, email, func(u *models.User) error {
		now := s.now()
		if u.AccountLocked {
			if u.LockoutExpiry != nil && !now.Before(*u.LockoutExpiry) {
				u.AccountLocked = false
				u.LockoutExpiry = nil
				u.FailedLoginAttempts = 0
				u.LastFailedAttempt = nil
			} else {
				return ErrAccountLocked
			}
		}
		if !u.IsActive {
			_ = utils.ComparePasswords(dummyHash, password)
			return ErrInvalidCredentials
		}
		if utils.ComparePasswords(u.PasswordHash, password) != nil {
			u.FailedLoginAttempts++
			failedAt := now
			u.LastFailedAttempt = &failedAt
			if u.FailedLoginAttempts >= utils.MAX_NUM_LOGIN_ATTEMPTS {
				u.AccountLocked = true
				expiry := now.Add(utils.LOCKOUT_DURATION)
				u.LockoutExpiry = &expiry
				lockedNow = true
				return ErrAccountLocked
			}
			return ErrInvalidCredentials
		}
		u.FailedLoginAttempts = 0
		u.AccountLocked = false
		u.LockoutExpiry = nil
		u.LastFailedAttempt = nil
		if u.TwoFactorEnabled {
			generated, genErr := utils.GenerateVerificationCode()
			if genErr != nil {
				return genErr
			}
			code = generated
			expiry := now.Add(utils.TWO_FACTOR_CODE_DURATION)
			u.TwoFactorCode = &code
			u.TwoFactorCodeExpiry = &expiry
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			_ = utils.ComparePasswords(dummyHash, password)
			return nil, ErrInvalidCredentials
		}
		if lockedNow {
			// the lockout already committed; the notice is best effort
			s.notifyLockout(ctx, user)
		}
		return nil, err
	}
	if user.TwoFactorEnabled {
		tempToken, tokenErr := utils.CreateToken(user.ID, user.Email, utils.TWO_FACTOR_TYPE)
		if tokenErr != nil {
			return nil, tokenErr
		}
		result := s.notifier.Send(ctx, notifier.VerificationCodeEmail(user.Email, user.DisplayName, code))
		if !result.Success {
			// the user can retry login to get a fresh code
			slog.Warn("verification code email failed", "userId", user.ID, "error", result.Err)
		}
		return &LoginResult{User: user, RequiresTwoFactor: true, TempToken: tempToken.TokenString}, nil
	}
	accessToken, refreshToken, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}
	return &LoginResult{User: user, AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func (s *Service) notifyLockout(ctx context.Context, user *models.User) {
	if user == nil {
		return
	}
	result := s.notifier.Send(ctx, notifier.LockoutNoticeEmail(user.Email, user.DisplayName))
	if !result.Success {
		slog.Warn("lockout notice email failed", "userId", user.ID, "error", result.Err)
	}
}
