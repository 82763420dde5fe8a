package store

import (
	"context"
	"sync"
	"time"

	"github.com/estateplan/apiv1/models"
)

// MemoryStore keeps accounts in a map. It mirrors the GormStore contract,
// including Mutate's commit-even-on-error behavior; the mutex stands in for
// the database's row lock.
type MemoryStore struct {
	mu            sync.Mutex
	users         map[string]*models.User // keyed by email
	refreshTokens []models.RefreshToken
	nextTokenID   uint
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:       make(map[string]*models.User),
		nextTokenID: 1,
	}
}

func copyUser(u *models.User) *models.User {
	clone := *u
	return &clone
}

func (s *MemoryStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[email]
	if !ok {
		return nil, ErrNotFound
	}
	return copyUser(user), nil
}

func (s *MemoryStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.ID == id {
			return copyUser(user), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) FindByResetToken(ctx context.Context, token string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.PasswordResetToken != nil && *user.PasswordResetToken == token {
			return copyUser(user), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) Create(ctx context.Context, user *models.User) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.Email]; ok {
		return nil, ErrDuplicateEmail
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	s.users[user.Email] = copyUser(user)
	return copyUser(user), nil
}

func (s *MemoryStore) Mutate(ctx context.Context, email string, fn func(u *models.User) error) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[email]
	if !ok {
		return nil, ErrNotFound
	}
	createdAt := user.CreatedAt
	fnErr := fn(user)
	user.CreatedAt = createdAt
	user.UpdatedAt = time.Now().UTC()
	return copyUser(user), fnErr
}

func (s *MemoryStore) Deactivate(ctx context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.ID == id {
			user.IsActive = false
			user.UpdatedAt = time.Now().UTC()
			return copyUser(user), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	token.ID = s.nextTokenID
	s.nextTokenID++
	token.CreatedAt = time.Now().UTC()
	s.refreshTokens = append(s.refreshTokens, *token)
	return nil
}

func (s *MemoryStore) FindRefreshToken(ctx context.Context, userID, tokenString string) (*models.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, token := range s.refreshTokens {
		if token.UserID == userID && token.TokenString == tokenString {
			clone := token
			return &clone, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) DeleteRefreshTokens(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.refreshTokens[:0]
	for _, token := range s.refreshTokens {
		if token.UserID != userID {
			kept = append(kept, token)
		}
	}
	s.refreshTokens = kept
	return nil
}
