package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/estateplan/apiv1/models"
	"github.com/estateplan/apiv1/utils"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// GormStore is the production credential store backed by MySQL.
type GormStore struct {
	db *gorm.DB
}

func OpenGormStore() (*GormStore, error) {
	dsn := fmt.Sprintf(
		"%s:%s@tcp(%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		os.Getenv(utils.DBUSER),
		os.Getenv(utils.DBPASS),
		os.Getenv(utils.DBHOST),
		os.Getenv(utils.DBNAME),
	)
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&models.User{}, &models.RefreshToken{}); err != nil {
		return nil, err
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	result := s.db.WithContext(ctx).Where("email = ?", email).First(&user)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, result.Error
	}
	return &user, nil
}

func (s *GormStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	result := s.db.WithContext(ctx).Where("id = ?", id).First(&user)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, result.Error
	}
	return &user, nil
}

func (s *GormStore) FindByResetToken(ctx context.Context, token string) (*models.User, error) {
	var user models.User
	result := s.db.WithContext(ctx).Where("password_reset_token = ?", token).First(&user)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, result.Error
	}
	return &user, nil
}

func (s *GormStore) Create(ctx context.Context, user *models.User) (*models.User, error) {
	result := s.db.WithContext(ctx).Create(user)
	if result.Error != nil {
		if strings.HasPrefix(result.Error.Error(), utils.GORM_ERR_CODE_DUPLICATE_KEY) {
			return nil, ErrDuplicateEmail
		}
		return nil, result.Error
	}
	return user, nil
}

func (s *GormStore) Mutate(ctx context.Context, email string, fn func(u *models.User) error) (*models.User, error) {
	var user models.User
	var fnErr error
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Raw("SELECT * FROM users WHERE email = ? FOR UPDATE", email).Scan(&user)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		createdAt := user.CreatedAt
		fnErr = fn(&user)
		user.CreatedAt = createdAt
		return tx.Save(&user).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, fnErr
}

func (s *GormStore) Deactivate(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Raw("SELECT * FROM users WHERE id = ? FOR UPDATE", id).Scan(&user)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		user.IsActive = false
		return tx.Save(&user).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *GormStore) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	return s.db.WithContext(ctx).Create(token).Error
}

func (s *GormStore) FindRefreshToken(ctx context.Context, userID, tokenString string) (*models.RefreshToken, error) {
	var token models.RefreshToken
	result := s.db.WithContext(ctx).
		Where("user_id = ? AND token_string = ?", userID, tokenString).
		First(&token)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, result.Error
	}
	return &token, nil
}

func (s *GormStore) DeleteRefreshTokens(ctx context.Context, userID string) error {
	return s.db.WithContext(ctx).Exec("DELETE FROM refresh_tokens WHERE user_id = ?", userID).Error
}
