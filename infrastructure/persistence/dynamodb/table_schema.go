package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dynamo-eventstore/infrastructure/persistence/abstractions"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// DefaultTableWait bounds how long EnsureTable waits for a new table to become active
const DefaultTableWait = 2 * time.Minute

// SchemaClient is the subset of the DynamoDB API used for provisioning
type SchemaClient interface {
	dynamodb.DescribeTableAPIClient
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
}

// EnsureTable creates the event table when it does not exist and waits until it is active.
// keyType is the scalar type of the aggregate key, as reported by its key codec.
func EnsureTable(ctx context.Context, client SchemaClient, name string, keyType types.ScalarAttributeType, maxWait time.Duration, logger *zap.Logger) error {
	_, err := client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(name),
	})
	if err == nil {
		logger.Debug("Event table exists", zap.String("table", name))
		return nil
	}

	var notFound *types.ResourceNotFoundException
	if !errors.As(err, &notFound) {
		return fmt.Errorf("failed to describe table %s: %w", name, err)
	}

	logger.Info("Creating event table",
		zap.String("table", name),
		zap.String("key_type", string(keyType)),
	)

	_, err = client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(name),
		AttributeDefinitions: []types.AttributeDefinition{
			{
				AttributeName: aws.String(abstractions.PartitionKeyAttribute),
				AttributeType: keyType,
			},
			{
				AttributeName: aws.String(abstractions.SortKeyAttribute),
				AttributeType: types.ScalarAttributeTypeN,
			},
		},
		KeySchema: []types.KeySchemaElement{
			{
				AttributeName: aws.String(abstractions.PartitionKeyAttribute),
				KeyType:       types.KeyTypeHash,
			},
			{
				AttributeName: aws.String(abstractions.SortKeyAttribute),
				KeyType:       types.KeyTypeRange,
			},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	if err != nil {
		var inUse *types.ResourceInUseException
		if !errors.As(err, &inUse) {
			return fmt.Errorf("failed to create table %s: %w", name, err)
		}
		// created concurrently by another instance
	}

	if maxWait <= 0 {
		maxWait = DefaultTableWait
	}

	waiter := dynamodb.NewTableExistsWaiter(client)
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(name)}, maxWait); err != nil {
		return fmt.Errorf("table %s did not become active: %w", name, err)
	}

	logger.Info("Event table active", zap.String("table", name))
	return nil
}
