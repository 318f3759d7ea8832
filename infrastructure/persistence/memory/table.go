// Package memory provides an in-process event table for tests and local runs.
package memory

import (
	"context"
	"fmt"
	"sync"

	"dynamo-eventstore/infrastructure/persistence/abstractions"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DefaultPageSize is used when a request does not set one
const DefaultPageSize = 100

// Table keeps items in insertion order. Re-putting a key replaces the item in place.
type Table struct {
	mu    sync.RWMutex
	name  string
	items []abstractions.Document
	index map[string]int
}

// NewTable creates an empty table
func NewTable(name string) *Table {
	return &Table{
		name:  name,
		index: make(map[string]int),
	}
}

// Name returns the table name
func (t *Table) Name() string {
	return t.name
}

// PutItem stores a copy of the document
func (t *Table) PutItem(ctx context.Context, doc abstractions.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key, err := itemKey(doc)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	stored := clone(doc)
	if i, ok := t.index[key]; ok {
		t.items[i] = stored
		return nil
	}
	t.index[key] = len(t.items)
	t.items = append(t.items, stored)
	return nil
}

// Len returns the number of stored items
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.items)
}

// Query pages through the items whose partition key equals partitionKey
func (t *Table) Query(partitionKey types.AttributeValue, opts abstractions.QueryOptions) abstractions.Cursor {
	want := scalarText(partitionKey)
	return &cursor{
		table:    t,
		pageSize: pageSize(opts.PageSize),
		match: func(doc abstractions.Document) bool {
			return scalarText(doc[abstractions.PartitionKeyAttribute]) == want
		},
	}
}

// Scan pages through every item, optionally projected
func (t *Table) Scan(opts abstractions.ScanOptions) abstractions.Cursor {
	return &cursor{
		table:      t,
		pageSize:   pageSize(opts.PageSize),
		projection: opts.Projection,
	}
}

// cursor walks the live table by position, so items appended mid-walk are seen.
// Like a DynamoDB page limit, pageSize counts evaluated items and a page
// may hold fewer matches than pageSize.
type cursor struct {
	table      *Table
	pageSize   int
	match      func(abstractions.Document) bool
	projection []string
	offset     int
	done       bool
}

func (c *cursor) Next(ctx context.Context) ([]abstractions.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.done {
		return nil, nil
	}

	c.table.mu.RLock()
	defer c.table.mu.RUnlock()

	end := c.offset + c.pageSize
	if end >= len(c.table.items) {
		end = len(c.table.items)
		c.done = true
	}

	var page []abstractions.Document
	for _, doc := range c.table.items[c.offset:end] {
		if c.match != nil && !c.match(doc) {
			continue
		}
		page = append(page, project(doc, c.projection))
	}
	c.offset = end
	return page, nil
}

func (c *cursor) Done() bool {
	return c.done
}

func pageSize(size int32) int {
	if size <= 0 {
		return DefaultPageSize
	}
	return int(size)
}

func itemKey(doc abstractions.Document) (string, error) {
	pk, ok := doc[abstractions.PartitionKeyAttribute]
	if !ok {
		return "", fmt.Errorf("item is missing key attribute %s", abstractions.PartitionKeyAttribute)
	}
	sk, ok := doc[abstractions.SortKeyAttribute]
	if !ok {
		return "", fmt.Errorf("item is missing key attribute %s", abstractions.SortKeyAttribute)
	}
	return scalarText(pk) + "\x00" + scalarText(sk), nil
}

// scalarText renders a key attribute so equal keys compare equal
func scalarText(av types.AttributeValue) string {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return "S:" + v.Value
	case *types.AttributeValueMemberN:
		return "N:" + v.Value
	case *types.AttributeValueMemberB:
		return "B:" + string(v.Value)
	default:
		return fmt.Sprintf("%T", av)
	}
}

func project(doc abstractions.Document, names []string) abstractions.Document {
	if len(names) == 0 {
		return clone(doc)
	}
	out := make(abstractions.Document, len(names))
	for _, name := range names {
		if av, ok := doc[name]; ok {
			out[name] = av
		}
	}
	return out
}

// clone copies the top-level map; attribute values are treated as immutable
func clone(doc abstractions.Document) abstractions.Document {
	out := make(abstractions.Document, len(doc))
	for name, av := range doc {
		out[name] = av
	}
	return out
}
