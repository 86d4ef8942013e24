package models

import (
	"time"

	"github.com/google/uuid"
)

// Retailer is a venue hosting Tapify display units. Only converted retailers
// that finished onboarding participate in payout reporting.
type Retailer struct {
	ID                  uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name                string    `gorm:"column:name;not null"`
	Email               *string   `gorm:"column:email"`
	Phone               *string   `gorm:"column:phone"`
	Converted           bool      `gorm:"column:converted;not null;default:false"`
	OnboardingCompleted bool      `gorm:"column:onboarding_completed;not null;default:false"`
	CreatedAt           time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Retailer) TableName() string { return "retailers" }
