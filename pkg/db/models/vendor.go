package models

import (
	"time"

	"github.com/google/uuid"
)

// Vendor carries the four-way commission split applied to its sales. The
// percent columns are written together by the commission service only.
type Vendor struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name            string    `gorm:"column:name;not null"`
	Email           *string   `gorm:"column:email"`
	RetailerPercent int       `gorm:"column:retailer_percent;not null;default:0"`
	SourcerPercent  int       `gorm:"column:sourcer_percent;not null;default:0"`
	TapifyPercent   int       `gorm:"column:tapify_percent;not null;default:0"`
	VendorPercent   int       `gorm:"column:vendor_percent;not null;default:100"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Vendor) TableName() string { return "vendors" }
