package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/tapify/tapify-backend/api/middleware"
	"github.com/tapify/tapify-backend/api/responses"
	"github.com/tapify/tapify-backend/api/validators"
	"github.com/tapify/tapify-backend/internal/commission"
	pkgerrors "github.com/tapify/tapify-backend/pkg/errors"
	"github.com/tapify/tapify-backend/pkg/logger"
)

type updateCommissionRequest struct {
	VendorID        string             `json:"vendorId" validate:"required,uuid"`
	RetailerPercent commission.Percent `json:"retailerPercent"`
	SourcerPercent  commission.Percent `json:"sourcerPercent"`
	TapifyPercent   commission.Percent `json:"tapifyPercent"`
}

// UpdateVendorCommission replaces a vendor's split; the vendor share is derived.
func UpdateVendorCommission(svc commission.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "commission service unavailable"))
			return
		}

		var req updateCommissionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		vendorID := uuid.MustParse(req.VendorID)
		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithVendorID(ctx, vendorID.String())
		}

		result, err := svc.UpdateVendorCommission(ctx, commission.UpdateVendorCommissionInput{
			VendorID:        vendorID,
			RetailerPercent: req.RetailerPercent.Int(),
			SourcerPercent:  req.SourcerPercent.Int(),
			TapifyPercent:   req.TapifyPercent.Int(),
			ActorUserID:     actorUserID(ctx),
			ActorRole:       middleware.RoleFromContext(ctx),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			logg.Info(ctx, "commission.updated")
		}
		responses.WriteSuccess(w, result)
	}
}

func VendorCommission(svc commission.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "commission service unavailable"))
			return
		}

		vendorID, err := validators.ParseUUIDParam(r, "vendorId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.GetVendorCommission(r.Context(), vendorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
