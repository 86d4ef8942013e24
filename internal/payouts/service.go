package payouts

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tapify/tapify-backend/pkg/disbursement"
	"github.com/tapify/tapify-backend/pkg/enums"
	"github.com/tapify/tapify-backend/pkg/logger"
	"github.com/tapify/tapify-backend/pkg/metrics"
	"github.com/tapify/tapify-backend/pkg/outbox"
)

const (
	defaultRecentOrderLimit = 200
	defaultTriggerTimeout   = 30 * time.Second
	defaultBatchConcurrency = 5
	defaultMaxBatchSize     = 200
)

// Service aggregates the retailer ledger and dispatches payout jobs to the
// disbursement provider.
type Service interface {
	Aggregate(ctx context.Context, filter enums.LedgerStatusFilter) (*Ledger, error)
	TriggerPayout(ctx context.Context, input TriggerInput) (*disbursement.Receipt, error)
	TriggerBatch(ctx context.Context, input BatchInput) (*BatchResult, error)
	PayAllForRetailer(ctx context.Context, input PayAllInput) (*BatchResult, error)
}

// Disburser executes a payout job with the external provider.
type Disburser interface {
	Execute(ctx context.Context, jobID uuid.UUID) (*disbursement.Receipt, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Config bounds aggregation and dispatch.
type Config struct {
	RecentOrderLimit int
	TriggerTimeout   time.Duration
	BatchConcurrency int
	MaxBatchSize     int
}

// ServiceParams groups the payouts service dependencies.
type ServiceParams struct {
	Repo      Repository
	Disburser Disburser
	Guard     InFlightGuard
	Tx        txRunner
	Outbox    outboxPublisher
	Metrics   *metrics.PayoutMetrics
	Logger    *logger.Logger
	Config    Config
}

type service struct {
	repo      Repository
	disburser Disburser
	guard     InFlightGuard
	tx        txRunner
	outbox    outboxPublisher
	metrics   *metrics.PayoutMetrics
	logg      *logger.Logger
	cfg       Config
}

// NewService wires the payouts service. A nil guard falls back to a
// process-local one and nil metrics record nothing.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("payouts repository required")
	}
	if params.Disburser == nil {
		return nil, fmt.Errorf("disbursement client required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	guard := params.Guard
	if guard == nil {
		guard = NewLocalGuard()
	}
	return &service{
		repo:      params.Repo,
		disburser: params.Disburser,
		guard:     guard,
		tx:        params.Tx,
		outbox:    params.Outbox,
		metrics:   params.Metrics,
		logg:      params.Logger,
		cfg:       params.Config.withDefaults(),
	}, nil
}

func (c Config) withDefaults() Config {
	if c.RecentOrderLimit <= 0 {
		c.RecentOrderLimit = defaultRecentOrderLimit
	}
	if c.TriggerTimeout <= 0 {
		c.TriggerTimeout = defaultTriggerTimeout
	}
	if c.BatchConcurrency <= 0 {
		c.BatchConcurrency = defaultBatchConcurrency
	}
	if c.MaxBatchSize <= 0 {
		c.MaxBatchSize = defaultMaxBatchSize
	}
	return c
}
