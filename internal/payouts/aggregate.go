package payouts

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tapify/tapify-backend/pkg/enums"
	pkgerrors "github.com/tapify/tapify-backend/pkg/errors"
)

// Aggregate builds the retailer ledger for filter. The four record sets are
// fetched concurrently and any failure fails the whole request.
func (s *service) Aggregate(ctx context.Context, filter enums.LedgerStatusFilter) (*Ledger, error) {
	if !filter.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "status must be one of pending, paid, all").
			WithDetails(map[string]any{"status": filter.String()})
	}

	start := time.Now()
	defer func() { s.metrics.ObserveAggregate(filter.String(), time.Since(start)) }()

	var input LedgerInput
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		retailers, err := s.repo.ListEligibleRetailers(gctx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list retailers")
		}
		input.Retailers = retailers
		return nil
	})
	g.Go(func() error {
		var status *enums.PayoutJobStatus
		if jobStatus, ok := filter.JobStatus(); ok {
			status = &jobStatus
		}
		jobs, err := s.repo.ListPayoutJobs(gctx, status)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payout jobs")
		}
		input.Jobs = jobs
		return nil
	})
	g.Go(func() error {
		uids, err := s.repo.ListClaimedUIDs(gctx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list claimed uids")
		}
		input.UIDs = uids
		return nil
	})
	g.Go(func() error {
		orders, err := s.repo.ListRecentOrders(gctx, s.cfg.RecentOrderLimit)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list recent orders")
		}
		input.Orders = orders
		return nil
	})
	if err := g.Wait(); err != nil {
		s.logg.Error(ctx, "ledger aggregation failed", err)
		return nil, err
	}

	ledger := BuildLedger(filter, input)
	return &ledger, nil
}
