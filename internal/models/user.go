package models

import "time"

// User mirrors the identity fields this service reads from the shared users
// table. Registration and profile changes happen in the user service.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"size:255" json:"name"`
	Email        string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	ReferralCode string    `gorm:"uniqueIndex;size:20;not null" json:"referral_code"`
	Role         string    `gorm:"size:20;not null;index" json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (User) TableName() string { return "users" }
