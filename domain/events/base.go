package events

// AggregateEvent is the base interface for all persisted domain events.
// An event records something that happened to exactly one aggregate and is
// immutable once appended.
type AggregateEvent[K comparable] interface {
	AggregateID() K
	// AggregateVersion is the caller-assigned, per-aggregate sequence number
	AggregateVersion() int64
}

// Base provides the identity fields every event carries.
// Concrete events embed it and are handled through pointers.
type Base[K comparable] struct {
	// ID is written and read through the store's key codec, not the attribute marshaler
	ID      K     `dynamodbav:"-" json:"aggregateId"`
	Version int64 `dynamodbav:"aggregateVersion" json:"aggregateVersion"`
}

// NewBase creates the identity part of an event
func NewBase[K comparable](id K, version int64) Base[K] {
	return Base[K]{ID: id, Version: version}
}

func (b Base[K]) AggregateID() K          { return b.ID }
func (b Base[K]) AggregateVersion() int64 { return b.Version }

// SetAggregateID is used by the codec when rebuilding an event from storage
func (b *Base[K]) SetAggregateID(id K) { b.ID = id }
