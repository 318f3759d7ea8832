package abstractions

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Attribute names shared by every event table
const (
	PartitionKeyAttribute = "aggregateId"
	SortKeyAttribute      = "aggregateVersion"
)

// Document is one stored item: attribute name to DynamoDB attribute value
type Document = map[string]types.AttributeValue

// Table provides the storage-engine-agnostic operations the event store needs.
// Implementations must be safe for concurrent use.
type Table interface {
	// Name returns the physical table name
	Name() string

	// PutItem writes the document, replacing any item with the same key
	PutItem(ctx context.Context, doc Document) error

	// Query returns a cursor over every item whose partition key equals partitionKey.
	// Item order is not guaranteed.
	Query(partitionKey types.AttributeValue, opts QueryOptions) Cursor

	// Scan returns a cursor over every item in the table. Item order is not guaranteed.
	Scan(opts ScanOptions) Cursor
}

// Cursor pages through the results of a query or scan.
// A cursor is owned by one caller and is not safe for concurrent use.
type Cursor interface {
	// Next fetches the next page. It may return an empty page while more remain.
	Next(ctx context.Context) ([]Document, error)

	// Done reports whether the cursor is exhausted
	Done() bool
}

// QueryOptions narrows a partition query
type QueryOptions struct {
	// PageSize limits the items evaluated per page; zero uses the engine default
	PageSize int32
	// ConsistentRead requests strongly consistent reads where supported
	ConsistentRead bool
}

// ScanOptions narrows a full-table scan
type ScanOptions struct {
	// PageSize limits the items evaluated per page; zero uses the engine default
	PageSize int32
	// Projection restricts the returned attributes; empty returns all attributes
	Projection []string
}
