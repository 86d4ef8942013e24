package enums

import "fmt"

// OutboxAggregateType maps to the outbox_aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateVendor    OutboxAggregateType = "vendor"
	AggregatePayoutJob OutboxAggregateType = "payout_job"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateVendor,
	AggregatePayoutJob,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the outbox_event_type enum in Postgres.
type OutboxEventType string

const (
	EventCommissionSplitUpdated OutboxEventType = "commission_split_updated"
	EventPayoutTriggered        OutboxEventType = "payout_triggered"
)

var validOutboxEventTypes = []OutboxEventType{
	EventCommissionSplitUpdated,
	EventPayoutTriggered,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
