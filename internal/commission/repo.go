package commission

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tapify/tapify-backend/pkg/db/models"
)

// Repository persists vendor commission splits.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindVendor(ctx context.Context, vendorID uuid.UUID) (*models.Vendor, error)
	UpdateSplit(ctx context.Context, vendorID uuid.UUID, split Split) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a commission repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindVendor(ctx context.Context, vendorID uuid.UUID) (*models.Vendor, error) {
	var vendor models.Vendor
	if err := r.db.WithContext(ctx).
		Where("id = ?", vendorID).
		First(&vendor).Error; err != nil {
		return nil, err
	}
	return &vendor, nil
}

// UpdateSplit writes all four percent columns in a single statement. It
// returns gorm.ErrRecordNotFound when the vendor does not exist.
func (r *repository) UpdateSplit(ctx context.Context, vendorID uuid.UUID, split Split) error {
	res := r.db.WithContext(ctx).
		Model(&models.Vendor{}).
		Where("id = ?", vendorID).
		Updates(map[string]any{
			"retailer_percent": split.RetailerPercent,
			"sourcer_percent":  split.SourcerPercent,
			"tapify_percent":   split.TapifyPercent,
			"vendor_percent":   split.VendorPercent,
			"updated_at":       time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
