package eventstore

import (
	"dynamo-eventstore/infrastructure/persistence/keys"
)

// Option configures an EventStore
type Option[K comparable] func(*options[K])

type options[K comparable] struct {
	keyCodec       keys.Codec[K]
	scanPageSize   int32
	queryPageSize  int32
	consistentRead bool
}

// WithKeyCodec overrides the key codec chosen from K.
// Use it for keys whose Go type is shared by two kinds, such as keys.Rune.
func WithKeyCodec[K comparable](codec keys.Codec[K]) Option[K] {
	return func(o *options[K]) {
		o.keyCodec = codec
	}
}

// WithScanPageSize limits how many items each page of GetAggregateIDs evaluates
func WithScanPageSize[K comparable](size int32) Option[K] {
	return func(o *options[K]) {
		o.scanPageSize = size
	}
}

// WithQueryPageSize limits how many items each page of GetEvents evaluates
func WithQueryPageSize[K comparable](size int32) Option[K] {
	return func(o *options[K]) {
		o.queryPageSize = size
	}
}

// WithConsistentRead makes GetEvents use strongly consistent reads
func WithConsistentRead[K comparable](enabled bool) Option[K] {
	return func(o *options[K]) {
		o.consistentRead = enabled
	}
}
