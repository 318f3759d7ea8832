package dynamodb

import (
	"context"
	"fmt"

	"dynamo-eventstore/infrastructure/persistence/abstractions"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Client is the subset of the DynamoDB API an event table uses
type Client interface {
	dynamodb.QueryAPIClient
	dynamodb.ScanAPIClient
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// Table is an event table stored in DynamoDB.
// Items are keyed by aggregateId (HASH) and aggregateVersion (RANGE).
type Table struct {
	client Client
	name   string
}

// NewTable creates a table bound to the named DynamoDB table
func NewTable(client Client, name string) *Table {
	return &Table{
		client: client,
		name:   name,
	}
}

// Name returns the DynamoDB table name
func (t *Table) Name() string {
	return t.name
}

// PutItem writes the document unconditionally; an item with the same key is replaced
func (t *Table) PutItem(ctx context.Context, doc abstractions.Document) error {
	input := &dynamodb.PutItemInput{
		TableName: aws.String(t.name),
		Item:      doc,
	}

	if _, err := t.client.PutItem(ctx, input); err != nil {
		return fmt.Errorf("failed to put item into %s: %w", t.name, err)
	}
	return nil
}

// Query pages through every item of one partition
func (t *Table) Query(partitionKey types.AttributeValue, opts abstractions.QueryOptions) abstractions.Cursor {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(t.name),
		KeyConditionExpression: aws.String("#pk = :pk"),
		ExpressionAttributeNames: map[string]string{
			"#pk": abstractions.PartitionKeyAttribute,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": partitionKey,
		},
		ScanIndexForward: aws.Bool(true),
	}
	if opts.ConsistentRead {
		input.ConsistentRead = aws.Bool(true)
	}
	if opts.PageSize > 0 {
		input.Limit = aws.Int32(opts.PageSize)
	}

	return &queryCursor{
		table:     t.name,
		paginator: dynamodb.NewQueryPaginator(t.client, input),
	}
}

// Scan pages through the whole table
func (t *Table) Scan(opts abstractions.ScanOptions) abstractions.Cursor {
	input := &dynamodb.ScanInput{
		TableName: aws.String(t.name),
	}
	if opts.PageSize > 0 {
		input.Limit = aws.Int32(opts.PageSize)
	}

	if len(opts.Projection) > 0 {
		projection := expression.NamesList(expression.Name(opts.Projection[0]))
		for _, name := range opts.Projection[1:] {
			projection = projection.AddNames(expression.Name(name))
		}

		expr, err := expression.NewBuilder().WithProjection(projection).Build()
		if err != nil {
			return &failedCursor{err: fmt.Errorf("failed to build projection for %s: %w", t.name, err)}
		}
		input.ProjectionExpression = expr.Projection()
		input.ExpressionAttributeNames = expr.Names()
	}

	return &scanCursor{
		table:     t.name,
		paginator: dynamodb.NewScanPaginator(t.client, input),
	}
}

type queryCursor struct {
	table     string
	paginator *dynamodb.QueryPaginator
}

func (c *queryCursor) Next(ctx context.Context) ([]abstractions.Document, error) {
	page, err := c.paginator.NextPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", c.table, err)
	}
	return page.Items, nil
}

func (c *queryCursor) Done() bool {
	return !c.paginator.HasMorePages()
}

type scanCursor struct {
	table     string
	paginator *dynamodb.ScanPaginator
}

func (c *scanCursor) Next(ctx context.Context) ([]abstractions.Document, error) {
	page, err := c.paginator.NextPage(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", c.table, err)
	}
	return page.Items, nil
}

func (c *scanCursor) Done() bool {
	return !c.paginator.HasMorePages()
}

// failedCursor reports a request that could not be built
type failedCursor struct {
	err      error
	returned bool
}

func (c *failedCursor) Next(context.Context) ([]abstractions.Document, error) {
	c.returned = true
	return nil, c.err
}

func (c *failedCursor) Done() bool {
	return c.returned
}
