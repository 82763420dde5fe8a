// Package auth implements the account-lifecycle core: registration, login
// with failed-attempt tracking and lockout, email-code second factor,
// password reset, and session issuance.
package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/estateplan/apiv1/models"
	"github.com/estateplan/apiv1/notifier"
	"github.com/estateplan/apiv1/store"
	"github.com/estateplan/apiv1/utils"
	"github.com/google/uuid"
)

// Service wires the credential store and notifier together. The clock is a
// field so tests can walk expiry boundaries; everything reads it through
// s.now to keep lockout and expiry comparisons on one source.
type Service struct {
	store    store.UserStore
	notifier notifier.Notifier
	now      func() time.Time
}

func NewService(s store.UserStore, n notifier.Notifier) *Service {
	return &Service{
		store:    s,
		notifier: n,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Emails are case-insensitive: lower-cased once here, before any store call,
// so storage and lookup always agree.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an account with all auth-state fields zeroed and logs the
// user straight in.
func (s *Service) Register(ctx context.Context, email, displayName, password string) (*models.User, string, string, error) {
	email = normalizeEmail(email)
	if err := utils.ValidatePassword(password); err != nil {
		return nil, "", "", err
	}
	passwordHash, err := utils.HashPassword(password)
	if err != nil {
		return nil, "", "", err
	}
	user, err := s.store.Create(ctx, &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: passwordHash,
		IsActive:     true,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicateEmail) {
			return nil, "", "", ErrEmailTaken
		}
		return nil, "", "", err
	}
	accessToken, refreshToken, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, "", "", err
	}
	return user, accessToken, refreshToken, nil
}

// DeactivateAccount soft-deletes the account and revokes its refresh tokens,
// so no outstanding session outlives the deactivation.
func (s *Service) DeactivateAccount(ctx context.Context, userID string) error {
	if _, err := s.store.Deactivate(ctx, userID); err != nil {
		return err
	}
	return s.store.DeleteRefreshTokens(ctx, userID)
}
