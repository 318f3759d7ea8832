package eventstore

import (
	"context"
	"fmt"
	"time"

	"dynamo-eventstore/application/ports"
	"dynamo-eventstore/domain/events"
	"dynamo-eventstore/pkg/observability"

	"go.uber.org/zap"
)

// Instrumented decorates an event store with logging, tracing and metrics.
// Errors from the wrapped store are returned unchanged.
type Instrumented[K comparable] struct {
	next    ports.EventStore[K]
	table   string
	logger  *zap.Logger
	tracer  *observability.Tracer
	metrics *observability.Metrics
}

var _ ports.EventStore[string] = (*Instrumented[string])(nil)

// NewInstrumented wraps next. tracer and metrics may be nil.
func NewInstrumented[K comparable](next ports.EventStore[K], table string, logger *zap.Logger, tracer *observability.Tracer, metrics *observability.Metrics) *Instrumented[K] {
	return &Instrumented[K]{
		next:    next,
		table:   table,
		logger:  logger.With(zap.String("table", table)),
		tracer:  tracer,
		metrics: metrics,
	}
}

func (s *Instrumented[K]) AppendEvent(ctx context.Context, event events.AggregateEvent[K]) error {
	return s.observe(ctx, OperationAppendEvent, func(ctx context.Context) error {
		err := s.next.AppendEvent(ctx, event)
		if err == nil {
			s.tracer.AddAnnotation(ctx, "aggregate_id", fmt.Sprint(event.AggregateID()))
			s.tracer.AddMetadata(ctx, "event", map[string]interface{}{
				"type":    fmt.Sprintf("%T", event),
				"version": event.AggregateVersion(),
			})
			s.logger.Debug("Event appended",
				zap.String("aggregate_id", fmt.Sprint(event.AggregateID())),
				zap.Int64("version", event.AggregateVersion()),
				zap.String("event_type", fmt.Sprintf("%T", event)),
			)
		}
		return err
	})
}

func (s *Instrumented[K]) GetAggregateIDs(ctx context.Context) ([]K, error) {
	var ids []K
	err := s.observe(ctx, OperationGetAggregateIDs, func(ctx context.Context) error {
		var err error
		ids, err = s.next.GetAggregateIDs(ctx)
		if err == nil {
			s.logger.Debug("Aggregate ids listed", zap.Int("count", len(ids)))
		}
		return err
	})
	return ids, err
}

func (s *Instrumented[K]) GetEvents(ctx context.Context, aggregateID K) ([]events.AggregateEvent[K], error) {
	var history []events.AggregateEvent[K]
	err := s.observe(ctx, OperationGetEvents, func(ctx context.Context) error {
		s.tracer.AddAnnotation(ctx, "aggregate_id", fmt.Sprint(aggregateID))

		var err error
		history, err = s.next.GetEvents(ctx, aggregateID)
		if err == nil {
			s.logger.Debug("Events loaded",
				zap.String("aggregate_id", fmt.Sprint(aggregateID)),
				zap.Int("count", len(history)),
			)
		}
		return err
	})
	return history, err
}

func (s *Instrumented[K]) observe(ctx context.Context, operation string, fn func(context.Context) error) error {
	start := time.Now()

	err := s.tracer.TraceFunction(ctx, operation, fn)

	duration := time.Since(start)
	s.metrics.RecordStoreOperation(ctx, s.table, operation, duration, err)

	if err != nil {
		s.logger.Warn("Event store operation failed",
			zap.String("operation", operation),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
	}
	return err
}
