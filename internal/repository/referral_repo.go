package repository

import (
	"context"

	"referrals/internal/domain"
	"referrals/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ReferralRepository struct {
	db *gorm.DB
}

func NewReferralRepository(db *gorm.DB) *ReferralRepository {
	return &ReferralRepository{db: db}
}

// Transaction runs fn against a repository bound to a single DB transaction.
func (r *ReferralRepository) Transaction(ctx context.Context, fn func(tx *ReferralRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&ReferralRepository{db: tx})
	})
}

// CreateReferral persists a new referral relationship.
func (r *ReferralRepository) CreateReferral(ctx context.Context, referral *models.Referral) error {
	return r.db.WithContext(ctx).Create(referral).Error
}

// Save writes every column of an existing referral.
func (r *ReferralRepository) Save(ctx context.Context, referral *models.Referral) error {
	return r.db.WithContext(ctx).Save(referral).Error
}

func (r *ReferralRepository) GetByID(ctx context.Context, id uint) (*models.Referral, error) {
	var ref models.Referral
	if err := r.db.WithContext(ctx).First(&ref, id).Error; err != nil {
		return nil, err
	}
	return &ref, nil
}

// GetByIDForUpdate loads a referral and row-locks it until the surrounding
// transaction ends. Only meaningful inside Transaction.
func (r *ReferralRepository) GetByIDForUpdate(ctx context.Context, id uint) (*models.Referral, error) {
	var ref models.Referral
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&ref, id).Error
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

// GetReferralByReferredUserID returns the Referral record for a user that was referred by someone.
// Returns nil, gorm.ErrRecordNotFound if the user was not referred.
func (r *ReferralRepository) GetReferralByReferredUserID(ctx context.Context, userID uint) (*models.Referral, error) {
	var ref models.Referral
	err := r.db.WithContext(ctx).Where("referred_user_id = ?", userID).First(&ref).Error
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

// ListByReferrerID returns one page of a referrer's referrals ordered by
// referral date, plus the referrer's total referral count.
func (r *ReferralRepository) ListByReferrerID(ctx context.Context, referrerID uint, limit, offset int, desc bool) ([]models.Referral, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Referral{}).Where("referrer_user_id = ?", referrerID)
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	order := "referral_date ASC, id ASC"
	if desc {
		order = "referral_date DESC, id DESC"
	}
	var list []models.Referral
	err := r.db.WithContext(ctx).
		Where("referrer_user_id = ?", referrerID).
		Order(order).
		Limit(limit).Offset(offset).
		Find(&list).Error
	return list, total, err
}

// ListByReferrerAndPeriod returns a referrer's referrals anchored to quarter/year.
func (r *ReferralRepository) ListByReferrerAndPeriod(ctx context.Context, referrerID uint, quarter, year int) ([]models.Referral, error) {
	var list []models.Referral
	err := r.db.WithContext(ctx).
		Where("referrer_user_id = ? AND quarter = ? AND year = ?", referrerID, quarter, year).
		Order("referral_date DESC, id DESC").
		Find(&list).Error
	return list, err
}

// ListForPeriod returns every referral anchored to quarter/year, highest commission first.
func (r *ReferralRepository) ListForPeriod(ctx context.Context, quarter, year int) ([]models.Referral, error) {
	var list []models.Referral
	err := r.db.WithContext(ctx).
		Where("quarter = ? AND year = ?", quarter, year).
		Order("cumulative_commission DESC, id ASC").
		Find(&list).Error
	return list, err
}

func (r *ReferralRepository) CountByReferrer(ctx context.Context, referrerID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Referral{}).
		Where("referrer_user_id = ?", referrerID).
		Count(&n).Error
	return n, err
}

// RecordAccrual appends a journal line for an applied increment.
func (r *ReferralRepository) RecordAccrual(ctx context.Context, entry *models.CommissionAccrual) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// ListAccruals returns a referral's journal, oldest first.
func (r *ReferralRepository) ListAccruals(ctx context.Context, referralID uint, limit, offset int) ([]models.CommissionAccrual, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.CommissionAccrual{}).Where("referral_id = ?", referralID)
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var list []models.CommissionAccrual
	err := r.db.WithContext(ctx).
		Where("referral_id = ?", referralID).
		Order("id ASC").
		Limit(limit).Offset(offset).
		Find(&list).Error
	return list, total, err
}

// CountAccrualsBySlab counts journal lines that used slabID.
func (r *ReferralRepository) CountAccrualsBySlab(ctx context.Context, slabID uint) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.CommissionAccrual{}).
		Where("slab_id = ?", slabID).
		Count(&n).Error
	return n, err
}

// SumCommission totals commission over all of a referrer's referrals.
func (r *ReferralRepository) SumCommission(ctx context.Context, referrerID uint) (decimal.Decimal, error) {
	return r.sumCommission(r.db.WithContext(ctx).Model(&models.Referral{}).
		Where("referrer_user_id = ?", referrerID))
}

// SumPendingCommission totals commission not yet paid out.
func (r *ReferralRepository) SumPendingCommission(ctx context.Context, referrerID uint) (decimal.Decimal, error) {
	return r.sumCommission(r.db.WithContext(ctx).Model(&models.Referral{}).
		Where("referrer_user_id = ? AND paid = ?", referrerID, false))
}

// SumCommissionForPeriod totals commission on referrals anchored to quarter/year.
func (r *ReferralRepository) SumCommissionForPeriod(ctx context.Context, referrerID uint, quarter, year int) (decimal.Decimal, error) {
	return r.sumCommission(r.db.WithContext(ctx).Model(&models.Referral{}).
		Where("referrer_user_id = ? AND quarter = ? AND year = ?", referrerID, quarter, year))
}

func (r *ReferralRepository) sumCommission(q *gorm.DB) (decimal.Decimal, error) {
	var out struct{ Total decimal.Decimal }
	if err := q.Select("COALESCE(SUM(cumulative_commission), 0) AS total").Scan(&out).Error; err != nil {
		return decimal.Zero, err
	}
	// Column scale is 2; some drivers hand back the sum as a float.
	return out.Total.Round(domain.CommissionScale), nil
}
