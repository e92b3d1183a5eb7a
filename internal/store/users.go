package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jimdaga/meetup/internal/models"
	"gorm.io/gorm"
)

type userRepo struct {
	db *gorm.DB
}

func (r *userRepo) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", translate(err))
	}
	return nil
}

func (r *userRepo) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", id, translate(err))
	}
	return &user, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", translate(err))
	}
	return &user, nil
}

func (r *userRepo) TouchLastLogin(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	err := r.db.WithContext(ctx).Model(user).UpdateColumn("last_login_at", now).Error
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", translate(err))
	}
	user.LastLoginAt = &now
	return nil
}
