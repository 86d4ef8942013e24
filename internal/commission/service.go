package commission

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tapify/tapify-backend/pkg/db/models"
	"github.com/tapify/tapify-backend/pkg/enums"
	pkgerrors "github.com/tapify/tapify-backend/pkg/errors"
	"github.com/tapify/tapify-backend/pkg/outbox"
	"github.com/tapify/tapify-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service owns every write to a vendor's commission split.
type Service interface {
	UpdateVendorCommission(ctx context.Context, input UpdateVendorCommissionInput) (*VendorCommission, error)
	GetVendorCommission(ctx context.Context, vendorID uuid.UUID) (*VendorCommission, error)
}

// UpdateVendorCommissionInput carries the three configured shares.
type UpdateVendorCommissionInput struct {
	VendorID        uuid.UUID
	RetailerPercent int
	SourcerPercent  int
	TapifyPercent   int
	ActorUserID     uuid.UUID
	ActorRole       string
}

// VendorCommission is a vendor's split with its display breakdown.
type VendorCommission struct {
	VendorID uuid.UUID `json:"vendorId"`
	Split
	Breakdown Breakdown `json:"breakdown"`
	Total     int       `json:"total"`
	Valid     bool      `json:"valid"`
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
}

// NewService wires the commission service.
func NewService(repo Repository, tx txRunner, outbox outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("commission repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{repo: repo, tx: tx, outbox: outbox}, nil
}

func (s *service) UpdateVendorCommission(ctx context.Context, input UpdateVendorCommissionInput) (*VendorCommission, error) {
	if input.VendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendorId is required")
	}

	split, err := DeriveSplit(input.RetailerPercent, input.SourcerPercent, input.TapifyPercent)
	if err != nil {
		return nil, err
	}
	if err := ValidateTotal(split); err != nil {
		return nil, err
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		vendor, err := repo.FindVendor(ctx, input.VendorID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "vendor not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor")
		}

		if err := repo.UpdateSplit(ctx, input.VendorID, split); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "vendor not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update vendor commission")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventCommissionSplitUpdated,
			AggregateType: enums.AggregateVendor,
			AggregateID:   input.VendorID,
			Actor:         buildActor(input.ActorUserID, input.ActorRole),
			Data: payloads.CommissionSplitUpdatedEvent{
				VendorID: input.VendorID,
				Previous: splitPayload(splitFromVendor(vendor)),
				Current:  splitPayload(split),
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit commission event")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return newVendorCommission(input.VendorID, split), nil
}

func (s *service) GetVendorCommission(ctx context.Context, vendorID uuid.UUID) (*VendorCommission, error) {
	if vendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendorId is required")
	}
	vendor, err := s.repo.FindVendor(ctx, vendorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vendor not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor")
	}
	return newVendorCommission(vendorID, splitFromVendor(vendor)), nil
}

func newVendorCommission(vendorID uuid.UUID, split Split) *VendorCommission {
	return &VendorCommission{
		VendorID:  vendorID,
		Split:     split,
		Breakdown: split.Breakdown(),
		Total:     split.Total(),
		Valid:     ValidateTotal(split) == nil,
	}
}

func splitFromVendor(vendor *models.Vendor) Split {
	if vendor == nil {
		return Split{}
	}
	return Split{
		RetailerPercent: vendor.RetailerPercent,
		SourcerPercent:  vendor.SourcerPercent,
		TapifyPercent:   vendor.TapifyPercent,
		VendorPercent:   vendor.VendorPercent,
	}
}

func splitPayload(split Split) payloads.CommissionSplit {
	return payloads.CommissionSplit{
		RetailerPercent: split.RetailerPercent,
		SourcerPercent:  split.SourcerPercent,
		TapifyPercent:   split.TapifyPercent,
		VendorPercent:   split.VendorPercent,
	}
}

func buildActor(userID uuid.UUID, role string) *outbox.ActorRef {
	if userID == uuid.Nil {
		return nil
	}
	return &outbox.ActorRef{UserID: userID, Role: role}
}
