package payouts

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tapify/tapify-backend/pkg/db/models"
	"github.com/tapify/tapify-backend/pkg/enums"
)

// Ledger is the per-retailer view of payout jobs for one status filter.
type Ledger struct {
	Status    enums.LedgerStatusFilter `json:"status"`
	Retailers []RetailerLedgerEntry    `json:"retailers"`
	Totals    LedgerTotals             `json:"totals"`
}

// LedgerTotals summarizes the retailers included in a ledger. TotalPayouts
// counts every job matching the status filter, including jobs of retailers
// that are not eligible.
type LedgerTotals struct {
	TotalRetailers int             `json:"total_retailers"`
	TotalPending   decimal.Decimal `json:"total_pending"`
	TotalPaid      decimal.Decimal `json:"total_paid"`
	TotalPayouts   int             `json:"total_payouts"`
}

type RetailerLedgerEntry struct {
	Retailer   RetailerSummary `json:"retailer"`
	UIDs       []LedgerUID     `json:"uids"`
	PayoutJobs []LedgerJob     `json:"payout_jobs"`
	Orders     []LedgerOrder   `json:"orders"`
	Summary    LedgerSummary   `json:"summary"`
}

type RetailerSummary struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email *string   `json:"email,omitempty"`
	Phone *string   `json:"phone,omitempty"`
}

type LedgerUID struct {
	UID          string     `json:"uid"`
	RegisteredAt *time.Time `json:"registered_at,omitempty"`
	AffiliateURL *string    `json:"affiliate_url,omitempty"`
}

type LedgerJob struct {
	ID          uuid.UUID             `json:"id"`
	VendorID    uuid.UUID             `json:"vendor_id"`
	SourcerID   *uuid.UUID            `json:"sourcer_id,omitempty"`
	Status      enums.PayoutJobStatus `json:"status"`
	TotalAmount decimal.Decimal       `json:"total_amount"`
	RetailerCut decimal.Decimal       `json:"retailer_cut"`
	SourceUID   *string               `json:"source_uid,omitempty"`
	OrderID     *uuid.UUID            `json:"order_id,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
	DatePaid    *time.Time            `json:"date_paid,omitempty"`
}

type LedgerOrder struct {
	ID          uuid.UUID       `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	VendorID    *uuid.UUID      `json:"vendor_id,omitempty"`
	ProductID   *uuid.UUID      `json:"product_id,omitempty"`
	SourceUID   *string         `json:"source_uid,omitempty"`
	ProcessedAt time.Time       `json:"processed_at"`
}

// LedgerSummary holds a retailer's earnings. Earnings are sums of retailer
// cuts; TotalEarnings is always PendingEarnings plus PaidEarnings.
type LedgerSummary struct {
	PendingEarnings decimal.Decimal `json:"pending_earnings"`
	PaidEarnings    decimal.Decimal `json:"paid_earnings"`
	TotalEarnings   decimal.Decimal `json:"total_earnings"`
	PendingCount    int             `json:"pending_count"`
	PaidCount       int             `json:"paid_count"`
	TotalOrders     int             `json:"total_orders"`
	UIDCount        int             `json:"uid_count"`
}

// LedgerInput is one consistent set of fetched records.
type LedgerInput struct {
	Retailers []models.Retailer
	Jobs      []models.PayoutJob
	UIDs      []models.UID
	Orders    []models.Order
}

// BuildLedger groups the fetched records by retailer. Records that reference
// a retailer outside input.Retailers are ignored. Retailers are ordered by
// name, then id.
func BuildLedger(filter enums.LedgerStatusFilter, input LedgerInput) Ledger {
	entries := make(map[uuid.UUID]*RetailerLedgerEntry, len(input.Retailers))
	for _, retailer := range input.Retailers {
		if _, seen := entries[retailer.ID]; seen {
			continue
		}
		entries[retailer.ID] = &RetailerLedgerEntry{
			Retailer: RetailerSummary{
				ID:    retailer.ID,
				Name:  retailer.Name,
				Email: retailer.Email,
				Phone: retailer.Phone,
			},
			UIDs:       []LedgerUID{},
			PayoutJobs: []LedgerJob{},
			Orders:     []LedgerOrder{},
		}
	}

	for _, uid := range input.UIDs {
		if uid.RetailerID == nil {
			continue
		}
		entry, ok := entries[*uid.RetailerID]
		if !ok {
			continue
		}
		entry.UIDs = append(entry.UIDs, LedgerUID{
			UID:          uid.UID,
			RegisteredAt: uid.RegisteredAt,
			AffiliateURL: uid.AffiliateURL,
		})
	}

	for _, job := range input.Jobs {
		entry, ok := entries[job.RetailerID]
		if !ok {
			continue
		}
		entry.PayoutJobs = append(entry.PayoutJobs, LedgerJob{
			ID:          job.ID,
			VendorID:    job.VendorID,
			SourcerID:   job.SourcerID,
			Status:      job.Status,
			TotalAmount: job.TotalAmount,
			RetailerCut: job.RetailerCut,
			SourceUID:   job.SourceUID,
			OrderID:     job.OrderID,
			CreatedAt:   job.CreatedAt,
			DatePaid:    job.DatePaid,
		})
		switch job.Status {
		case enums.PayoutJobStatusPending:
			entry.Summary.PendingEarnings = entry.Summary.PendingEarnings.Add(job.RetailerCut)
			entry.Summary.PendingCount++
		case enums.PayoutJobStatusPaid:
			entry.Summary.PaidEarnings = entry.Summary.PaidEarnings.Add(job.RetailerCut)
			entry.Summary.PaidCount++
		}
	}

	for _, order := range input.Orders {
		if order.RetailerID == nil {
			continue
		}
		entry, ok := entries[*order.RetailerID]
		if !ok {
			continue
		}
		entry.Orders = append(entry.Orders, LedgerOrder{
			ID:          order.ID,
			Amount:      order.Amount,
			VendorID:    order.VendorID,
			ProductID:   order.ProductID,
			SourceUID:   order.SourceUID,
			ProcessedAt: order.ProcessedAt,
		})
	}

	ledger := Ledger{
		Status:    filter,
		Retailers: make([]RetailerLedgerEntry, 0, len(entries)),
		Totals: LedgerTotals{
			TotalPending: decimal.Zero,
			TotalPaid:    decimal.Zero,
			TotalPayouts: len(input.Jobs),
		},
	}
	for _, entry := range entries {
		if filter != enums.LedgerStatusAll && len(entry.PayoutJobs) == 0 {
			continue
		}
		entry.Summary.TotalEarnings = entry.Summary.PendingEarnings.Add(entry.Summary.PaidEarnings)
		entry.Summary.TotalOrders = len(entry.Orders)
		entry.Summary.UIDCount = len(entry.UIDs)

		ledger.Totals.TotalPending = ledger.Totals.TotalPending.Add(entry.Summary.PendingEarnings)
		ledger.Totals.TotalPaid = ledger.Totals.TotalPaid.Add(entry.Summary.PaidEarnings)
		ledger.Retailers = append(ledger.Retailers, *entry)
	}
	ledger.Totals.TotalRetailers = len(ledger.Retailers)

	sort.Slice(ledger.Retailers, func(i, j int) bool {
		return retailerLess(ledger.Retailers[i].Retailer, ledger.Retailers[j].Retailer)
	})
	return ledger
}

func retailerLess(a, b RetailerSummary) bool {
	la, lb := strings.ToLower(a.Name), strings.ToLower(b.Name)
	if la != lb {
		return la < lb
	}
	if a.Name != b.Name {
		return a.Name < b.Name
	}
	return a.ID.String() < b.ID.String()
}
