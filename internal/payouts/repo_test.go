package payouts

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tapify/tapify-backend/pkg/db/models"
	"github.com/tapify/tapify-backend/pkg/enums"
)

func setupPayoutsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{`
CREATE TABLE retailers (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  email TEXT,
  phone TEXT,
  converted BOOLEAN NOT NULL DEFAULT 0,
  onboarding_completed BOOLEAN NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE payout_jobs (
  id TEXT PRIMARY KEY,
  vendor_id TEXT NOT NULL,
  retailer_id TEXT NOT NULL,
  sourcer_id TEXT,
  status TEXT NOT NULL DEFAULT 'pending',
  total_amount TEXT NOT NULL,
  retailer_cut TEXT NOT NULL,
  source_uid TEXT,
  order_id TEXT,
  date_paid DATETIME,
  created_at DATETIME
);`, `
CREATE TABLE uids (
  uid TEXT PRIMARY KEY,
  retailer_id TEXT,
  is_claimed BOOLEAN NOT NULL DEFAULT 0,
  affiliate_url TEXT,
  registered_at DATETIME,
  created_at DATETIME
);`, `
CREATE TABLE orders (
  id TEXT PRIMARY KEY,
  retailer_id TEXT,
  vendor_id TEXT,
  product_id TEXT,
  source_uid TEXT,
  amount TEXT NOT NULL,
  processed_at DATETIME NOT NULL,
  created_at DATETIME
);`}
	for _, stmt := range statements {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func seedJob(t *testing.T, db *gorm.DB, retailerID uuid.UUID, status enums.PayoutJobStatus, cut string, createdAt time.Time) models.PayoutJob {
	t.Helper()
	job := models.PayoutJob{
		ID:          uuid.New(),
		VendorID:    uuid.New(),
		RetailerID:  retailerID,
		Status:      status,
		TotalAmount: decimal.RequireFromString(cut).Mul(decimal.NewFromInt(4)),
		RetailerCut: decimal.RequireFromString(cut),
		CreatedAt:   createdAt,
	}
	require.NoError(t, db.Create(&job).Error)
	return job
}

func TestRepositoryListEligibleRetailers(t *testing.T) {
	db := setupPayoutsTestDB(t)
	repo := NewRepository(db)

	eligible := models.Retailer{ID: uuid.New(), Name: "Eligible", Converted: true, OnboardingCompleted: true}
	unconverted := models.Retailer{ID: uuid.New(), Name: "Lead", Converted: false, OnboardingCompleted: true}
	onboarding := models.Retailer{ID: uuid.New(), Name: "Onboarding", Converted: true, OnboardingCompleted: false}
	for _, r := range []*models.Retailer{&eligible, &unconverted, &onboarding} {
		require.NoError(t, db.Create(r).Error)
	}

	got, err := repo.ListEligibleRetailers(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, eligible.ID, got[0].ID)
}

func TestRepositoryListPayoutJobsFiltersStatus(t *testing.T) {
	db := setupPayoutsTestDB(t)
	repo := NewRepository(db)
	retailerID := uuid.New()
	now := time.Now().UTC()

	pending := seedJob(t, db, retailerID, enums.PayoutJobStatusPending, "10.25", now)
	seedJob(t, db, retailerID, enums.PayoutJobStatusPaid, "3.50", now.Add(-time.Hour))

	status := enums.PayoutJobStatusPending
	jobs, err := repo.ListPayoutJobs(context.Background(), &status)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	require.Equal(t, pending.ID, jobs[0].ID)
	require.True(t, jobs[0].RetailerCut.Equal(decimal.RequireFromString("10.25")))

	all, err := repo.ListPayoutJobs(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, pending.ID, all[0].ID)
}

func TestRepositoryListClaimedUIDsAndRecentOrders(t *testing.T) {
	db := setupPayoutsTestDB(t)
	repo := NewRepository(db)
	retailerID := uuid.New()

	require.NoError(t, db.Create(&models.UID{UID: "TAP-1", RetailerID: &retailerID, IsClaimed: true}).Error)
	require.NoError(t, db.Create(&models.UID{UID: "TAP-2"}).Error)

	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, db.Create(&models.Order{
			ID:          uuid.New(),
			RetailerID:  &retailerID,
			Amount:      decimal.NewFromInt(int64(10 + i)),
			ProcessedAt: base.Add(time.Duration(i) * time.Hour),
		}).Error)
	}
	require.NoError(t, db.Create(&models.Order{ID: uuid.New(), Amount: decimal.NewFromInt(99), ProcessedAt: base.Add(24 * time.Hour)}).Error)

	uids, err := repo.ListClaimedUIDs(context.Background())
	require.NoError(t, err)
	require.Len(t, uids, 1)
	require.Equal(t, "TAP-1", uids[0].UID)

	orders, err := repo.ListRecentOrders(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	require.True(t, orders[0].Amount.Equal(decimal.NewFromInt(12)))
	require.True(t, orders[1].Amount.Equal(decimal.NewFromInt(11)))
}

func TestRepositoryFindAndListPending(t *testing.T) {
	db := setupPayoutsTestDB(t)
	repo := NewRepository(db)
	retailer := models.Retailer{ID: uuid.New(), Name: "Finder", Converted: true, OnboardingCompleted: true}
	require.NoError(t, db.Create(&retailer).Error)
	now := time.Now().UTC()

	older := seedJob(t, db, retailer.ID, enums.PayoutJobStatusPending, "1", now.Add(-2*time.Hour))
	newer := seedJob(t, db, retailer.ID, enums.PayoutJobStatusPending, "2", now)
	seedJob(t, db, retailer.ID, enums.PayoutJobStatusPaid, "3", now)
	seedJob(t, db, uuid.New(), enums.PayoutJobStatusPending, "4", now)

	ids, err := repo.ListPendingJobIDs(context.Background(), retailer.ID)
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{older.ID, newer.ID}, ids)

	job, err := repo.FindPayoutJob(context.Background(), newer.ID)
	require.NoError(t, err)
	require.Equal(t, enums.PayoutJobStatusPending, job.Status)

	_, err = repo.FindPayoutJob(context.Background(), uuid.New())
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)

	found, err := repo.FindRetailer(context.Background(), retailer.ID)
	require.NoError(t, err)
	require.Equal(t, "Finder", found.Name)
}
