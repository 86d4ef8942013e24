package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/tapify/tapify-backend/api/middleware"
	"github.com/tapify/tapify-backend/api/responses"
	"github.com/tapify/tapify-backend/api/validators"
	"github.com/tapify/tapify-backend/internal/payouts"
	pkgerrors "github.com/tapify/tapify-backend/pkg/errors"
	"github.com/tapify/tapify-backend/pkg/logger"
)

type ledgerResponse struct {
	Success bool `json:"success"`
	*payouts.Ledger
}

// PayoutLedger returns the per-retailer payout ledger for the requested status.
func PayoutLedger(svc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payout service unavailable"))
			return
		}

		filter, err := validators.ParseLedgerStatus(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ledger, err := svc.Aggregate(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteJSON(w, http.StatusOK, ledgerResponse{Success: true, Ledger: ledger})
	}
}

type triggerPayoutRequest struct {
	PayoutJobID string `json:"payoutJobId" validate:"required,uuid"`
}

// TriggerPayout dispatches a single pending payout job to the provider.
func TriggerPayout(svc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payout service unavailable"))
			return
		}

		var req triggerPayoutRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		jobID := uuid.MustParse(req.PayoutJobID)
		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithPayoutJobID(ctx, jobID.String())
		}

		receipt, err := svc.TriggerPayout(ctx, payouts.TriggerInput{
			PayoutJobID: jobID,
			Actor:       actorFromContext(ctx),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, receipt)
	}
}

type triggerBatchRequest struct {
	PayoutJobIDs []string `json:"payoutJobIds" validate:"required,min=1,dive,uuid"`
	RetailerID   *string  `json:"retailerId,omitempty" validate:"omitempty,uuid"`
}

// TriggerPayoutBatch dispatches every listed job; individual failures never
// roll back the others.
func TriggerPayoutBatch(svc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payout service unavailable"))
			return
		}

		var req triggerBatchRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := payouts.BatchInput{
			PayoutJobIDs: make([]uuid.UUID, 0, len(req.PayoutJobIDs)),
			Actor:        actorFromContext(r.Context()),
		}
		for _, raw := range req.PayoutJobIDs {
			input.PayoutJobIDs = append(input.PayoutJobIDs, uuid.MustParse(raw))
		}
		ctx := r.Context()
		if req.RetailerID != nil {
			retailerID := uuid.MustParse(*req.RetailerID)
			input.RetailerID = &retailerID
			if logg != nil {
				ctx = logg.WithRetailerID(ctx, retailerID.String())
			}
		}

		result, err := svc.TriggerBatch(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteJSON(w, http.StatusOK, result)
	}
}

// PayAllForRetailer dispatches every pending job of the retailer in the path.
func PayAllForRetailer(svc payouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payout service unavailable"))
			return
		}

		retailerID, err := validators.ParseUUIDParam(r, "retailerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithRetailerID(ctx, retailerID.String())
		}

		result, err := svc.PayAllForRetailer(ctx, payouts.PayAllInput{
			RetailerID: retailerID,
			Actor:      actorFromContext(ctx),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteJSON(w, http.StatusOK, result)
	}
}

func actorFromContext(ctx context.Context) payouts.Actor {
	return payouts.Actor{
		UserID: actorUserID(ctx),
		Role:   middleware.RoleFromContext(ctx),
	}
}

func actorUserID(ctx context.Context) uuid.UUID {
	id, err := uuid.Parse(middleware.UserIDFromContext(ctx))
	if err != nil {
		return uuid.Nil
	}
	return id
}
