package enums

import "fmt"

// PayoutJobStatus maps to the payout_job_status enum in Postgres.
type PayoutJobStatus string

const (
	PayoutJobStatusPending         PayoutJobStatus = "pending"
	PayoutJobStatusPaid            PayoutJobStatus = "paid"
	PayoutJobStatusPriorityDisplay PayoutJobStatus = "priority_display"
	PayoutJobStatusFailed          PayoutJobStatus = "failed"
)

var validPayoutJobStatuses = []PayoutJobStatus{
	PayoutJobStatusPending,
	PayoutJobStatusPaid,
	PayoutJobStatusPriorityDisplay,
	PayoutJobStatusFailed,
}

// String implements fmt.Stringer.
func (s PayoutJobStatus) String() string {
	return string(s)
}

// IsValid reports whether the value matches the canonical payout job status enum.
func (s PayoutJobStatus) IsValid() bool {
	for _, candidate := range validPayoutJobStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParsePayoutJobStatus converts raw input into PayoutJobStatus.
func ParsePayoutJobStatus(value string) (PayoutJobStatus, error) {
	for _, candidate := range validPayoutJobStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payout job status %q", value)
}
