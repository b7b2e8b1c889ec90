package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CommissionSlab is an admin-managed commission tier. Slabs are never deleted;
// Active=false retires one while keeping it for history.
type CommissionSlab struct {
	ID                   uint                `gorm:"primaryKey" json:"id"`
	Name                 string              `gorm:"size:100;not null" json:"name"`
	Description          string              `gorm:"size:255" json:"description"`
	MinAmount            decimal.Decimal     `gorm:"type:decimal(19,2);not null;index" json:"min_amount"`
	MaxAmount            decimal.NullDecimal `gorm:"type:decimal(19,2)" json:"max_amount"` // NULL is unbounded
	CommissionPercentage decimal.Decimal     `gorm:"type:decimal(5,2);not null" json:"commission_percentage"`
	Active               bool                `gorm:"not null;index" json:"active"`
	ApplicableQuarter    *int                `json:"applicable_quarter"`
	ApplicableYear       *int                `json:"applicable_year"`
	CreatedAt            time.Time           `json:"created_at"`
	UpdatedAt            time.Time           `json:"updated_at"`
}

func (CommissionSlab) TableName() string { return "commission_slabs" }

// Covers reports whether amount falls inside [MinAmount, MaxAmount].
func (s *CommissionSlab) Covers(amount decimal.Decimal) bool {
	if amount.LessThan(s.MinAmount) {
		return false
	}
	return !s.MaxAmount.Valid || amount.LessThanOrEqual(s.MaxAmount.Decimal)
}

// AppliesTo reports whether the slab's quarter/year scope admits the given
// period. A nil argument skips that part of the check.
func (s *CommissionSlab) AppliesTo(quarter, year *int) bool {
	if quarter != nil && s.ApplicableQuarter != nil && *s.ApplicableQuarter != *quarter {
		return false
	}
	if year != nil && s.ApplicableYear != nil && *s.ApplicableYear != *year {
		return false
	}
	return true
}

// Scoped reports whether the slab is restricted to a quarter or year.
func (s *CommissionSlab) Scoped() bool {
	return s.ApplicableQuarter != nil || s.ApplicableYear != nil
}
