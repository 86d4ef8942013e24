package models

import (
	"time"

	"github.com/google/uuid"
)

// UID is a physical display unit. Claimed units are bound to a retailer.
type UID struct {
	UID          string     `gorm:"column:uid;primaryKey"`
	RetailerID   *uuid.UUID `gorm:"column:retailer_id;type:uuid"`
	IsClaimed    bool       `gorm:"column:is_claimed;not null;default:false"`
	AffiliateURL *string    `gorm:"column:affiliate_url"`
	RegisteredAt *time.Time `gorm:"column:registered_at"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (UID) TableName() string { return "uids" }
