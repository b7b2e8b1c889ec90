package repository

import (
	"context"

	"referrals/internal/models"

	"gorm.io/gorm"
)

type SlabRepository struct {
	db *gorm.DB
}

func NewSlabRepository(db *gorm.DB) *SlabRepository {
	return &SlabRepository{db: db}
}

func (r *SlabRepository) Create(ctx context.Context, s *models.CommissionSlab) error {
	return r.db.WithContext(ctx).Create(s).Error
}

// Save writes every column, including zero values such as Active=false.
func (r *SlabRepository) Save(ctx context.Context, s *models.CommissionSlab) error {
	return r.db.WithContext(ctx).Save(s).Error
}

func (r *SlabRepository) GetByID(ctx context.Context, id uint) (*models.CommissionSlab, error) {
	var s models.CommissionSlab
	if err := r.db.WithContext(ctx).First(&s, id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// ListActive returns active slabs ordered by lower bound.
func (r *SlabRepository) ListActive(ctx context.Context) ([]models.CommissionSlab, error) {
	var list []models.CommissionSlab
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("min_amount ASC, id ASC").
		Find(&list).Error
	return list, err
}

func (r *SlabRepository) CountAll(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.CommissionSlab{}).Count(&n).Error
	return n, err
}
