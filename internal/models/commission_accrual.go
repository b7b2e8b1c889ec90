package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CommissionAccrual is one journal line per investment increment applied to a
// referral. SlabID is nil when no slab covered the new cumulative amount.
type CommissionAccrual struct {
	ID              uint                `gorm:"primaryKey" json:"id"`
	ReferralID      uint                `gorm:"not null;index" json:"referral_id"`
	SlabID          *uint               `gorm:"index" json:"slab_id"`
	Increment       decimal.Decimal     `gorm:"type:decimal(19,2);not null" json:"increment"`
	CumulativeAfter decimal.Decimal     `gorm:"type:decimal(19,2);not null" json:"cumulative_after"`
	Rate            decimal.NullDecimal `gorm:"type:decimal(5,2)" json:"rate"`
	Commission      decimal.Decimal     `gorm:"type:decimal(19,2);not null" json:"commission"`
	CreatedAt       time.Time           `json:"created_at"`
}

func (CommissionAccrual) TableName() string { return "commission_accruals" }
