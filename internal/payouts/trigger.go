package payouts

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/tapify/tapify-backend/pkg/db/models"
	"github.com/tapify/tapify-backend/pkg/disbursement"
	"github.com/tapify/tapify-backend/pkg/enums"
	pkgerrors "github.com/tapify/tapify-backend/pkg/errors"
	"github.com/tapify/tapify-backend/pkg/metrics"
	"github.com/tapify/tapify-backend/pkg/outbox"
	"github.com/tapify/tapify-backend/pkg/outbox/payloads"
)

var (
	ErrJobNotFound       = errors.New("payout job not found")
	ErrAlreadyProcessed  = errors.New("payout job already processed")
	ErrJobNotPending     = errors.New("payout job is not pending")
	ErrRetailerMismatch  = errors.New("payout job belongs to another retailer")
	ErrBatchEmpty        = errors.New("payout batch is empty")
	ErrBatchTooLarge     = errors.New("payout batch too large")
	errRetailerNotFound  = errors.New("retailer not found")
	errProviderTimedOut  = errors.New("provider call exceeded trigger timeout")
	errUnclassifiedError = errors.New("unclassified provider error")
)

// Batch job statuses.
const (
	JobStatusSucceeded = "succeeded"
	JobStatusFailed    = "failed"
)

// Actor identifies who requested a trigger.
type Actor struct {
	UserID uuid.UUID
	Role   string
}

type TriggerInput struct {
	PayoutJobID uuid.UUID
	Actor       Actor
}

// BatchInput lists the jobs to dispatch. When RetailerID is set every job
// must belong to that retailer.
type BatchInput struct {
	PayoutJobIDs []uuid.UUID
	RetailerID   *uuid.UUID
	Actor        Actor
}

type PayAllInput struct {
	RetailerID uuid.UUID
	Actor      Actor
}

// JobOutcome is the result of one job within a batch.
type JobOutcome struct {
	PayoutJobID    uuid.UUID             `json:"payout_job_id"`
	Status         string                `json:"status"`
	ErrorCode      pkgerrors.Code        `json:"error_code,omitempty"`
	Message        string                `json:"message,omitempty"`
	Retryable      bool                  `json:"retryable"`
	UnknownOutcome bool                  `json:"unknown_outcome"`
	Receipt        *disbursement.Receipt `json:"receipt,omitempty"`
}

// BatchResult reports every job of a batch. A failed job never rolls back
// the others; Success is true only when every job succeeded.
type BatchResult struct {
	Success        bool         `json:"success"`
	Results        []JobOutcome `json:"results"`
	Succeeded      []uuid.UUID  `json:"succeeded"`
	Failed         []uuid.UUID  `json:"failed"`
	UnknownOutcome []uuid.UUID  `json:"unknown_outcome"`
}

// TriggerPayout asks the provider to execute one pending payout job. The
// provider call is detached from ctx cancellation and bounded by the
// configured trigger timeout.
func (s *service) TriggerPayout(ctx context.Context, input TriggerInput) (*disbursement.Receipt, error) {
	if input.PayoutJobID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payoutJobId is required")
	}
	return s.trigger(ctx, input.PayoutJobID, nil, input.Actor)
}

// TriggerBatch dispatches each job independently with bounded parallelism.
func (s *service) TriggerBatch(ctx context.Context, input BatchInput) (*BatchResult, error) {
	ids, err := s.normalizeBatch(input.PayoutJobIDs)
	if err != nil {
		return nil, err
	}
	return s.runBatch(ctx, ids, input.RetailerID, input.Actor), nil
}

// PayAllForRetailer dispatches every pending job of one retailer.
func (s *service) PayAllForRetailer(ctx context.Context, input PayAllInput) (*BatchResult, error) {
	if input.RetailerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "retailerId is required")
	}
	ctx = s.logg.WithRetailerID(ctx, input.RetailerID.String())

	if _, err := s.repo.FindRetailer(ctx, input.RetailerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, errRetailerNotFound, "retailer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load retailer")
	}

	ids, err := s.repo.ListPendingJobIDs(ctx, input.RetailerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pending payout jobs")
	}
	if len(ids) == 0 {
		s.logg.Info(ctx, "no pending payout jobs for retailer")
		return &BatchResult{
			Success:        true,
			Results:        []JobOutcome{},
			Succeeded:      []uuid.UUID{},
			Failed:         []uuid.UUID{},
			UnknownOutcome: []uuid.UUID{},
		}, nil
	}
	if len(ids) > s.cfg.MaxBatchSize {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, ErrBatchTooLarge, "too many pending payout jobs for one batch").
			WithDetails(map[string]any{"pending": len(ids), "max": s.cfg.MaxBatchSize})
	}

	retailerID := input.RetailerID
	return s.runBatch(ctx, ids, &retailerID, input.Actor), nil
}

func (s *service) normalizeBatch(ids []uuid.UUID) ([]uuid.UUID, error) {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	unique := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "payoutJobIds must not contain empty ids")
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	if len(unique) == 0 {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, ErrBatchEmpty, "payoutJobIds must not be empty")
	}
	if len(unique) > s.cfg.MaxBatchSize {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, ErrBatchTooLarge, "too many payout jobs in one batch").
			WithDetails(map[string]any{"count": len(unique), "max": s.cfg.MaxBatchSize})
	}
	return unique, nil
}

func (s *service) runBatch(ctx context.Context, ids []uuid.UUID, retailerID *uuid.UUID, actor Actor) *BatchResult {
	// the batch keeps running if the caller goes away
	ctx = context.WithoutCancel(ctx)

	outcomes := make([]JobOutcome, len(ids))
	var g errgroup.Group
	g.SetLimit(s.cfg.BatchConcurrency)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			receipt, err := s.trigger(ctx, id, retailerID, actor)
			outcomes[i] = newJobOutcome(id, receipt, err)
			return nil
		})
	}
	_ = g.Wait()

	result := &BatchResult{
		Success:        true,
		Results:        outcomes,
		Succeeded:      []uuid.UUID{},
		Failed:         []uuid.UUID{},
		UnknownOutcome: []uuid.UUID{},
	}
	var failures error
	for _, outcome := range outcomes {
		if outcome.Status == JobStatusSucceeded {
			result.Succeeded = append(result.Succeeded, outcome.PayoutJobID)
			continue
		}
		result.Success = false
		result.Failed = append(result.Failed, outcome.PayoutJobID)
		if outcome.UnknownOutcome {
			result.UnknownOutcome = append(result.UnknownOutcome, outcome.PayoutJobID)
		}
		failures = multierr.Append(failures, pkgerrors.New(outcome.ErrorCode, outcome.PayoutJobID.String()+": "+outcome.Message))
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"batch_size": len(ids),
		"succeeded":  len(result.Succeeded),
		"failed":     len(result.Failed),
	})
	if failures != nil {
		s.logg.Error(logCtx, "payout batch completed with failures", failures)
	} else {
		s.logg.Info(logCtx, "payout batch completed")
	}
	return result
}

func newJobOutcome(jobID uuid.UUID, receipt *disbursement.Receipt, err error) JobOutcome {
	if err == nil {
		return JobOutcome{PayoutJobID: jobID, Status: JobStatusSucceeded, Receipt: receipt}
	}
	outcome := JobOutcome{
		PayoutJobID: jobID,
		Status:      JobStatusFailed,
		ErrorCode:   pkgerrors.CodeInternal,
		Message:     err.Error(),
		Retryable:   pkgerrors.MetadataFor(pkgerrors.CodeInternal).Retryable,
	}
	if typed := pkgerrors.As(err); typed != nil {
		outcome.ErrorCode = typed.Code()
		outcome.Message = typed.Message()
		outcome.Retryable = typed.Retryable()
	}
	outcome.UnknownOutcome = outcome.ErrorCode == pkgerrors.CodeUnknownOutcome
	return outcome
}

func (s *service) trigger(ctx context.Context, jobID uuid.UUID, retailerID *uuid.UUID, actor Actor) (*disbursement.Receipt, error) {
	ctx = s.logg.WithPayoutJobID(ctx, jobID.String())

	release, err := s.guard.Acquire(ctx, jobID)
	if err != nil {
		if errors.Is(err, ErrTriggerInFlight) {
			s.metrics.ObserveTrigger(metrics.OutcomeInFlight, 0)
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "payout trigger already in flight").
				WithDetails(map[string]any{"payout_job_id": jobID.String()})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire payout trigger guard")
	}
	defer release()

	job, err := s.precheck(ctx, jobID, retailerID)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.TriggerTimeout)
	defer cancel()

	s.logg.Info(ctx, "dispatching payout job")
	s.metrics.IncInFlight()
	start := time.Now()
	receipt, err := s.disburser.Execute(callCtx, jobID)
	elapsed := time.Since(start)
	s.metrics.DecInFlight()

	if err != nil {
		err = classifyProviderError(callCtx, err)
		s.metrics.ObserveTrigger(outcomeLabel(err), elapsed)
		if pkgerrors.CodeOf(err) == pkgerrors.CodeUnknownOutcome {
			s.logg.Error(ctx, "payout trigger outcome unknown; reconcile before retrying", err)
		} else {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "payout trigger rejected")
		}
		return nil, err
	}

	s.metrics.ObserveTrigger(metrics.OutcomeSucceeded, elapsed)
	s.logg.Info(ctx, "payout job accepted by provider")
	s.recordTriggered(ctx, job, receipt, actor)
	return receipt, nil
}

// precheck refuses jobs the provider must not see: unknown ids, jobs that
// are already paid and jobs outside the pending state.
func (s *service) precheck(ctx context.Context, jobID uuid.UUID, retailerID *uuid.UUID) (*models.PayoutJob, error) {
	details := map[string]any{"payout_job_id": jobID.String()}

	job, err := s.repo.FindPayoutJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.metrics.ObserveTrigger(metrics.OutcomeNotFound, 0)
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, ErrJobNotFound, "payout job not found").WithDetails(details)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payout job")
	}

	if retailerID != nil && job.RetailerID != *retailerID {
		details["retailer_id"] = retailerID.String()
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, ErrRetailerMismatch, "payout job does not belong to retailer").WithDetails(details)
	}

	switch job.Status {
	case enums.PayoutJobStatusPending:
		return job, nil
	case enums.PayoutJobStatusPaid:
		s.metrics.ObserveTrigger(metrics.OutcomeAlreadyProcessed, 0)
		details["status"] = job.Status.String()
		return nil, pkgerrors.Wrap(pkgerrors.CodeAlreadyProcessed, ErrAlreadyProcessed, "payout job already paid").WithDetails(details)
	default:
		details["status"] = job.Status.String()
		return nil, pkgerrors.Wrap(pkgerrors.CodeStateConflict, ErrJobNotPending, "payout job is not pending").WithDetails(details)
	}
}

// classifyProviderError makes sure every provider failure carries a code and
// that a blown trigger deadline is always reported as an unknown outcome.
func classifyProviderError(callCtx context.Context, err error) error {
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) && pkgerrors.CodeOf(err) != pkgerrors.CodeUnknownOutcome {
		return pkgerrors.Wrap(pkgerrors.CodeUnknownOutcome, multierr.Append(errProviderTimedOut, err), "payout request timed out; verify job status before retrying").
			WithDetails(map[string]any{"unknown_outcome": true})
	}
	if pkgerrors.As(err) == nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, multierr.Append(errUnclassifiedError, err), "payout provider failed")
	}
	return err
}

func outcomeLabel(err error) string {
	switch pkgerrors.CodeOf(err) {
	case pkgerrors.CodeNotFound:
		return metrics.OutcomeNotFound
	case pkgerrors.CodeAlreadyProcessed:
		return metrics.OutcomeAlreadyProcessed
	case pkgerrors.CodeForbidden, pkgerrors.CodeUnauthorized:
		return metrics.OutcomeUnauthorized
	case pkgerrors.CodeUnknownOutcome:
		return metrics.OutcomeUnknown
	default:
		return metrics.OutcomeProviderError
	}
}

// recordTriggered writes the payout_triggered audit event. The provider has
// already accepted the job, so a failure here is logged and not returned.
func (s *service) recordTriggered(ctx context.Context, job *models.PayoutJob, receipt *disbursement.Receipt, actor Actor) {
	if job == nil || receipt == nil {
		return
	}
	event := outbox.DomainEvent{
		EventType:     enums.EventPayoutTriggered,
		AggregateType: enums.AggregatePayoutJob,
		AggregateID:   job.ID,
		Data: payloads.PayoutTriggeredEvent{
			PayoutJobID:       job.ID,
			RetailerID:        job.RetailerID,
			RetailerCut:       job.RetailerCut.StringFixed(2),
			ProviderStatus:    receipt.Status,
			ProviderReference: receipt.ProviderReference,
			AcceptedAt:        receipt.AcceptedAt,
		},
	}
	if actor.UserID != uuid.Nil {
		event.Actor = &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role}
	}

	emitCtx := context.WithoutCancel(ctx)
	if err := s.tx.WithTx(emitCtx, func(tx *gorm.DB) error {
		return s.outbox.Emit(emitCtx, tx, event)
	}); err != nil {
		s.logg.Error(ctx, "failed to record payout_triggered event", err)
	}
}
