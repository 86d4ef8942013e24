package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order is a completed sale attributed to a retailer's display unit.
type Order struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	RetailerID  *uuid.UUID      `gorm:"column:retailer_id;type:uuid"`
	VendorID    *uuid.UUID      `gorm:"column:vendor_id;type:uuid"`
	ProductID   *uuid.UUID      `gorm:"column:product_id;type:uuid"`
	SourceUID   *string         `gorm:"column:source_uid"`
	Amount      decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null"`
	ProcessedAt time.Time       `gorm:"column:processed_at;not null"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (Order) TableName() string { return "orders" }
