package enums

import (
	"fmt"
	"strings"
)

// LedgerStatusFilter selects which payout jobs feed the retailer ledger.
type LedgerStatusFilter string

const (
	LedgerStatusPending LedgerStatusFilter = "pending"
	LedgerStatusPaid    LedgerStatusFilter = "paid"
	LedgerStatusAll     LedgerStatusFilter = "all"
)

var validLedgerStatusFilters = []LedgerStatusFilter{
	LedgerStatusPending,
	LedgerStatusPaid,
	LedgerStatusAll,
}

func (f LedgerStatusFilter) String() string {
	return string(f)
}

// IsValid reports whether the value is a known LedgerStatusFilter.
func (f LedgerStatusFilter) IsValid() bool {
	for _, candidate := range validLedgerStatusFilters {
		if candidate == f {
			return true
		}
	}
	return false
}

// JobStatus returns the payout job status the filter restricts to. ok is
// false for LedgerStatusAll.
func (f LedgerStatusFilter) JobStatus() (PayoutJobStatus, bool) {
	switch f {
	case LedgerStatusPending:
		return PayoutJobStatusPending, true
	case LedgerStatusPaid:
		return PayoutJobStatusPaid, true
	default:
		return "", false
	}
}

// ParseLedgerStatusFilter converts raw query input, defaulting blank to pending.
func ParseLedgerStatusFilter(value string) (LedgerStatusFilter, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return LedgerStatusPending, nil
	}
	for _, candidate := range validLedgerStatusFilters {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ledger status filter %q", value)
}
