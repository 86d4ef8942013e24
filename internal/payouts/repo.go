package payouts

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tapify/tapify-backend/pkg/db/models"
	"github.com/tapify/tapify-backend/pkg/enums"
)

// Repository reads the records behind the retailer ledger. Each list method
// is a single query; grouping happens in memory.
type Repository interface {
	ListEligibleRetailers(ctx context.Context) ([]models.Retailer, error)
	ListPayoutJobs(ctx context.Context, status *enums.PayoutJobStatus) ([]models.PayoutJob, error)
	ListClaimedUIDs(ctx context.Context) ([]models.UID, error)
	ListRecentOrders(ctx context.Context, limit int) ([]models.Order, error)
	FindPayoutJob(ctx context.Context, jobID uuid.UUID) (*models.PayoutJob, error)
	FindRetailer(ctx context.Context, retailerID uuid.UUID) (*models.Retailer, error)
	ListPendingJobIDs(ctx context.Context, retailerID uuid.UUID) ([]uuid.UUID, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a payouts repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) ListEligibleRetailers(ctx context.Context) ([]models.Retailer, error) {
	var retailers []models.Retailer
	if err := r.db.WithContext(ctx).
		Where("converted = ? AND onboarding_completed = ?", true, true).
		Order("name ASC").
		Order("id ASC").
		Find(&retailers).Error; err != nil {
		return nil, err
	}
	return retailers, nil
}

// ListPayoutJobs returns every payout job, restricted to status when provided.
func (r *repository) ListPayoutJobs(ctx context.Context, status *enums.PayoutJobStatus) ([]models.PayoutJob, error) {
	query := r.db.WithContext(ctx).Model(&models.PayoutJob{})
	if status != nil {
		query = query.Where("status = ?", *status)
	}

	var jobs []models.PayoutJob
	if err := query.
		Order("created_at DESC").
		Order("id ASC").
		Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *repository) ListClaimedUIDs(ctx context.Context) ([]models.UID, error) {
	var uids []models.UID
	if err := r.db.WithContext(ctx).
		Where("is_claimed = ?", true).
		Order("uid ASC").
		Find(&uids).Error; err != nil {
		return nil, err
	}
	return uids, nil
}

// ListRecentOrders returns the newest orders that are attributed to a retailer.
func (r *repository) ListRecentOrders(ctx context.Context, limit int) ([]models.Order, error) {
	var orders []models.Order
	if err := r.db.WithContext(ctx).
		Where("retailer_id IS NOT NULL").
		Order("processed_at DESC").
		Order("id ASC").
		Limit(limit).
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) FindPayoutJob(ctx context.Context, jobID uuid.UUID) (*models.PayoutJob, error) {
	var job models.PayoutJob
	if err := r.db.WithContext(ctx).
		Where("id = ?", jobID).
		First(&job).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *repository) FindRetailer(ctx context.Context, retailerID uuid.UUID) (*models.Retailer, error) {
	var retailer models.Retailer
	if err := r.db.WithContext(ctx).
		Where("id = ?", retailerID).
		First(&retailer).Error; err != nil {
		return nil, err
	}
	return &retailer, nil
}

func (r *repository) ListPendingJobIDs(ctx context.Context, retailerID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.PayoutJob{}).
		Where("retailer_id = ? AND status = ?", retailerID, enums.PayoutJobStatusPending).
		Order("created_at ASC").
		Order("id ASC").
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
