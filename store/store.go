package store

import (
	"context"
	"errors"

	"github.com/estateplan/apiv1/models"
)

var ErrNotFound = errors.New("record not found")
var ErrDuplicateEmail = errors.New("email already registered")

// UserStore is the pluggable credential store. The gorm and in-memory
// backings must behave identically; the in-memory one exists for tests and
// local demos. All timestamps are written in UTC.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByResetToken(ctx context.Context, token string) (*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// Mutate runs fn against a single consistent snapshot of the account and
	// persists whatever fn changed, even when fn returns an error: a failed
	// login still has to commit its attempt accounting. The fn error is
	// returned to the caller as-is. CreatedAt is restored after fn runs, so
	// no caller can reset it.
	Mutate(ctx context.Context, email string, fn func(u *models.User) error) (*models.User, error)

	// Deactivate soft-deletes the account: the row is kept, IsActive flips
	// false.
	Deactivate(ctx context.Context, id string) (*models.User, error)

	CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error
	FindRefreshToken(ctx context.Context, userID, tokenString string) (*models.RefreshToken, error)
	DeleteRefreshTokens(ctx context.Context, userID string) error
}
