package ports

import (
	"context"

	"dynamo-eventstore/domain/events"
)

// EventStore is the append-only log of events keyed by aggregate identity.
// Aggregate state is never stored; callers rebuild it by replaying GetEvents.
type EventStore[K comparable] interface {
	// AppendEvent writes one event. A second event with the same aggregate id
	// and version replaces the first.
	AppendEvent(ctx context.Context, event events.AggregateEvent[K]) error

	// GetAggregateIDs returns every aggregate id that has at least one event,
	// in no particular order. It reads the whole table.
	GetAggregateIDs(ctx context.Context) ([]K, error)

	// GetEvents returns the history of one aggregate in ascending version order.
	// An aggregate with no events yields an empty slice.
	GetEvents(ctx context.Context, aggregateID K) ([]events.AggregateEvent[K], error)
}
