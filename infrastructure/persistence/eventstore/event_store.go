// Package eventstore implements the aggregate event log over an event table.
package eventstore

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"dynamo-eventstore/application/ports"
	"dynamo-eventstore/domain/events"
	"dynamo-eventstore/infrastructure/persistence/abstractions"
	"dynamo-eventstore/infrastructure/persistence/codec"
	"dynamo-eventstore/infrastructure/persistence/keys"
	appErrors "dynamo-eventstore/pkg/errors"
)

// Operation names used in errors, logs and metrics
const (
	OperationAppendEvent     = "AppendEvent"
	OperationGetAggregateIDs = "GetAggregateIDs"
	OperationGetEvents       = "GetEvents"
)

// EventStore persists the events of one aggregate type in one table.
// It holds no mutable state and is safe for concurrent use.
type EventStore[K comparable] struct {
	table abstractions.Table
	codec *codec.Codec[K]
	opts  options[K]
}

var _ ports.EventStore[string] = (*EventStore[string])(nil)

// New creates an event store. It fails with an UNSUPPORTED_KEY_TYPE error when
// K has no key codec and none was supplied with WithKeyCodec.
func New[K comparable](table abstractions.Table, registry *codec.Registry[K], opts ...Option[K]) (*EventStore[K], error) {
	if table == nil {
		return nil, fmt.Errorf("event table is required")
	}
	if registry == nil {
		return nil, fmt.Errorf("event registry is required")
	}

	var o options[K]
	for _, opt := range opts {
		opt(&o)
	}

	if o.keyCodec == nil {
		keyCodec, err := keys.For[K]()
		if err != nil {
			return nil, err
		}
		o.keyCodec = keyCodec
	}

	return &EventStore[K]{
		table: table,
		codec: codec.New(registry, o.keyCodec),
		opts:  o,
	}, nil
}

// TableName returns the name of the backing table
func (s *EventStore[K]) TableName() string {
	return s.table.Name()
}

// AppendEvent encodes the event and writes it with a single unconditional put
func (s *EventStore[K]) AppendEvent(ctx context.Context, event events.AggregateEvent[K]) error {
	doc, err := s.codec.Encode(event)
	if err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return appErrors.NewCancelledError(OperationAppendEvent, err)
	}

	if err := s.table.PutItem(ctx, doc); err != nil {
		return classify(OperationAppendEvent, err)
	}
	return nil
}

// GetAggregateIDs scans the whole table and returns each aggregate id once
func (s *EventStore[K]) GetAggregateIDs(ctx context.Context) ([]K, error) {
	cursor := s.table.Scan(abstractions.ScanOptions{
		PageSize:   s.opts.scanPageSize,
		Projection: []string{abstractions.PartitionKeyAttribute},
	})

	seen := make(map[K]struct{})
	ids := make([]K, 0)

	for !cursor.Done() {
		if err := ctx.Err(); err != nil {
			return nil, appErrors.NewCancelledError(OperationGetAggregateIDs, err)
		}

		page, err := cursor.Next(ctx)
		if err != nil {
			return nil, classify(OperationGetAggregateIDs, err)
		}

		for _, doc := range page {
			id, err := s.codec.DecodeKey(doc)
			if err != nil {
				return nil, err
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}

	return ids, nil
}

// GetEvents reads the full history of one aggregate and returns it in
// ascending version order. Any failure discards the partial history.
func (s *EventStore[K]) GetEvents(ctx context.Context, aggregateID K) ([]events.AggregateEvent[K], error) {
	pk, err := s.codec.EncodeKey(aggregateID)
	if err != nil {
		return nil, err
	}

	cursor := s.table.Query(pk, abstractions.QueryOptions{
		PageSize:       s.opts.queryPageSize,
		ConsistentRead: s.opts.consistentRead,
	})

	history := make([]events.AggregateEvent[K], 0)

	for !cursor.Done() {
		if err := ctx.Err(); err != nil {
			return nil, appErrors.NewCancelledError(OperationGetEvents, err)
		}

		page, err := cursor.Next(ctx)
		if err != nil {
			return nil, classify(OperationGetEvents, err)
		}

		for _, doc := range page {
			event, err := s.codec.Decode(doc)
			if err != nil {
				return nil, err
			}
			history = append(history, event)
		}
	}

	// The table's own ordering is not trusted across pages
	sort.SliceStable(history, func(i, j int) bool {
		return history[i].AggregateVersion() < history[j].AggregateVersion()
	})

	return history, nil
}

// classify maps a table failure onto the store's error taxonomy
func classify(operation string, err error) error {
	if appErrors.IsAppError(err) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return appErrors.NewCancelledError(operation, err)
	}
	return appErrors.NewStoreUnavailableError(operation, err)
}
