package enums

import (
	"fmt"
	"slices"
)

// OutboxAggregateType is the outbox_events.aggregate_type column; the relay
// keys ordering on aggregate id within a type.
type OutboxAggregateType string

const (
	AggregateSpin  OutboxAggregateType = "spin"
	AggregateOrder OutboxAggregateType = "order"
)

// OutboxEventType is the outbox_events.event_type column and the Pub/Sub
// "event_type" attribute.
type OutboxEventType string

const (
	EventSpinIssued     OutboxEventType = "spin_issued"
	EventPaymentSettled OutboxEventType = "payment_settled"
)

// OutboxDLQErrorReason records why an event left the outbox for the dead
// letter table.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)

var (
	aggregateTypes = []OutboxAggregateType{AggregateSpin, AggregateOrder}
	eventTypes     = []OutboxEventType{EventSpinIssued, EventPaymentSettled}
	dlqReasons     = []OutboxDLQErrorReason{OutboxDLQReasonMaxAttempts, OutboxDLQReasonNonRetryable}
)

func (a OutboxAggregateType) IsValid() bool { return slices.Contains(aggregateTypes, a) }
func (e OutboxEventType) IsValid() bool { return slices.Contains(eventTypes, e) }
func (r OutboxDLQErrorReason) IsValid() bool { return slices.Contains(dlqReasons, r) }

func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	return parseMember(aggregateTypes, value, "aggregate type")
}

func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return parseMember(eventTypes, value, "event type")
}

func parseMember[T ~string](members []T, value, label string) (T, error) {
	if candidate := T(value); slices.Contains(members, candidate) {
		return candidate, nil
	}
	return "", fmt.Errorf("invalid %s %q", label, value)
}
