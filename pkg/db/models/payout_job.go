package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tapify/tapify-backend/pkg/enums"
)

// PayoutJob is one disbursement owed to a retailer. Status moves from pending
// to paid through the disbursement provider only.
type PayoutJob struct {
	ID          uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VendorID    uuid.UUID             `gorm:"column:vendor_id;type:uuid;not null"`
	RetailerID  uuid.UUID             `gorm:"column:retailer_id;type:uuid;not null"`
	SourcerID   *uuid.UUID            `gorm:"column:sourcer_id;type:uuid"`
	Status      enums.PayoutJobStatus `gorm:"column:status;type:payout_job_status;not null;default:'pending'"`
	TotalAmount decimal.Decimal       `gorm:"column:total_amount;type:numeric(12,2);not null"`
	RetailerCut decimal.Decimal       `gorm:"column:retailer_cut;type:numeric(12,2);not null"`
	SourceUID   *string               `gorm:"column:source_uid"`
	OrderID     *uuid.UUID            `gorm:"column:order_id;type:uuid"`
	DatePaid    *time.Time            `gorm:"column:date_paid"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime"`
}

func (PayoutJob) TableName() string { return "payout_jobs" }
