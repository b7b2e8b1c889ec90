package models

import (
	"time"

	"referrals/internal/domain"

	"github.com/shopspring/decimal"
)

// Referral tracks the relationship between a referrer and a referred user and
// the commission the referrer has earned on the referred user's investments.
// A user can only be referred once. Quarter and Year are anchored to the
// referral date at creation and never recomputed.
type Referral struct {
	ID                   uint                `gorm:"primaryKey" json:"id"`
	ReferrerUserID       uint                `gorm:"not null;index;index:idx_referrals_referrer_period,priority:1" json:"referrer_user_id"`
	ReferredUserID       uint                `gorm:"uniqueIndex;not null" json:"referred_user_id"`
	ReferredUserName     string              `gorm:"size:255" json:"referred_user_name"`
	ReferralDate         time.Time           `gorm:"type:date;not null" json:"referral_date"`
	Quarter              int                 `gorm:"not null;index:idx_referrals_period,priority:1;index:idx_referrals_referrer_period,priority:2" json:"quarter"`
	Year                 int                 `gorm:"not null;index:idx_referrals_period,priority:2;index:idx_referrals_referrer_period,priority:3" json:"year"`
	CumulativeInvestment decimal.Decimal     `gorm:"type:decimal(19,2);not null" json:"referred_user_investment"`
	CommissionRate       decimal.NullDecimal `gorm:"type:decimal(5,2)" json:"commission_rate"` // rate of the last accrual
	CumulativeCommission decimal.Decimal     `gorm:"type:decimal(19,2);not null" json:"commission_earned"`
	Status               domain.Status       `gorm:"size:16;not null;index" json:"status"`
	Paid                 bool                `gorm:"not null" json:"paid"`
	PaidDate             *time.Time          `gorm:"type:date" json:"paid_date"`
	CreatedAt            time.Time           `json:"created_at"`
	UpdatedAt            time.Time           `json:"updated_at"`
}

func (Referral) TableName() string { return "referrals" }

// NewReferral builds a PENDING referral anchored to date's quarter.
func NewReferral(referrerID, referredID uint, displayName string, date time.Time) *Referral {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	q, y := domain.QuarterOf(day)
	return &Referral{
		ReferrerUserID:       referrerID,
		ReferredUserID:       referredID,
		ReferredUserName:     displayName,
		ReferralDate:         day,
		Quarter:              q,
		Year:                 y,
		CumulativeInvestment: decimal.Zero,
		CumulativeCommission: decimal.Zero,
		Status:               domain.StatusPending,
	}
}
