package auth

import "errors"

var (
	// ErrInvalidCredentials covers unknown email and wrong password alike;
	// callers must not distinguish the two.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account locked")
	ErrAccountDeactivated = errors.New("account deactivated")
	ErrEmailTaken         = errors.New("email already registered")
	ErrCodeExpired        = errors.New("verification code expired")
	ErrCodeMismatch       = errors.New("verification code mismatch")
	ErrResetTokenInvalid  = errors.New("password reset token invalid or expired")
	ErrRefreshInvalid     = errors.New("invalid refresh token")
)
