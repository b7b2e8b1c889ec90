package repository

import (
	"context"

	"referrals/internal/models"

	"gorm.io/gorm"
)

// UserRepository reads identities from the users table owned by the user service.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	err := r.db.WithContext(ctx).First(&u, id).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByReferralCode returns the user owning code.
func (r *UserRepository) GetByReferralCode(ctx context.Context, code string) (*models.User, error) {
	var u models.User
	err := r.db.WithContext(ctx).Where("referral_code = ?", code).First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}
