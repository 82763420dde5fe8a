package models

import (
	"time"
)

// User is the account record behind every authentication flow. The auth-state
// columns are zeroed at registration and only ever mutated by the login, 2FA,
// and password-reset flows.
//
// Invariants: AccountLocked implies a non-nil LockoutExpiry; only the failed
// attempt counter reaching the threshold sets AccountLocked; a non-nil
// TwoFactorCode carries a non-nil TwoFactorCodeExpiry until explicitly
// cleared; PasswordResetToken is cleared on first successful use or expiry.
type User struct {
	ID           string `gorm:"primaryKey;size:36" json:"id"`
	Email        string `gorm:"uniqueIndex;size:255" json:"email"`
	DisplayName  string `gorm:"size:64" json:"name"`
	PasswordHash string `json:"-"`
	IsActive     bool   `json:"-"`

	FailedLoginAttempts int        `json:"-"`
	AccountLocked       bool       `json:"-"`
	LockoutExpiry       *time.Time `json:"-"`
	LastFailedAttempt   *time.Time `json:"-"`

	TwoFactorEnabled    bool       `json:"twoFactorEnabled"`
	TwoFactorCode       *string    `gorm:"size:6" json:"-"`
	TwoFactorCodeExpiry *time.Time `json:"-"`

	PasswordResetToken  *string    `gorm:"index;size:64" json:"-"`
	PasswordResetExpiry *time.Time `json:"-"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// RefreshToken rows exist so long-lived sessions can be revoked server-side
// on password reset or account deactivation.
type RefreshToken struct {
	ID          uint   `gorm:"primaryKey"`
	UserID      string `gorm:"index;size:36"`
	TokenString string `gorm:"size:512"`
	ExpiresAt   time.Time
	CreatedAt   time.Time
}
