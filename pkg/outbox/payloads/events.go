package payloads

import (
	"time"

	"github.com/google/uuid"
)

// CommissionSplitUpdatedEvent records a vendor's split before and after an update.
type CommissionSplitUpdatedEvent struct {
	VendorID uuid.UUID       `json:"vendor_id"`
	Previous CommissionSplit `json:"previous"`
	Current  CommissionSplit `json:"current"`
}

// CommissionSplit mirrors the four percent columns on the vendor row.
type CommissionSplit struct {
	RetailerPercent int `json:"retailer_percent"`
	SourcerPercent  int `json:"sourcer_percent"`
	TapifyPercent   int `json:"tapify_percent"`
	VendorPercent   int `json:"vendor_percent"`
}

// PayoutTriggeredEvent is emitted once the disbursement provider accepts a job.
type PayoutTriggeredEvent struct {
	PayoutJobID       uuid.UUID `json:"payout_job_id"`
	RetailerID        uuid.UUID `json:"retailer_id"`
	RetailerCut       string    `json:"retailer_cut"`
	ProviderStatus    string    `json:"provider_status"`
	ProviderReference string    `json:"provider_reference,omitempty"`
	AcceptedAt        time.Time `json:"accepted_at"`
}
