package di

import (
	"context"
	"fmt"

	"dynamo-eventstore/application/ports"
	"dynamo-eventstore/application/services"
	"dynamo-eventstore/domain/events"
	"dynamo-eventstore/infrastructure/config"
	"dynamo-eventstore/infrastructure/persistence/abstractions"
	"dynamo-eventstore/infrastructure/persistence/codec"
	"dynamo-eventstore/infrastructure/persistence/dynamodb"
	"dynamo-eventstore/infrastructure/persistence/eventstore"
	"dynamo-eventstore/infrastructure/persistence/keys"
	"dynamo-eventstore/infrastructure/persistence/memory"
	"dynamo-eventstore/interfaces/http/rest"
	"dynamo-eventstore/interfaces/http/rest/handlers"
	appErrors "dynamo-eventstore/pkg/errors"
	"dynamo-eventstore/pkg/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscloudwatch "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"go.uber.org/zap"
)

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.LogLevel, err)
	}
	zapCfg.Level = level

	return zapCfg.Build()
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client, pointed at DYNAMODB_ENDPOINT when set
func ProvideDynamoDBClient(awsCfg aws.Config, cfg *config.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg, func(o *awsdynamodb.Options) {
		if cfg.DynamoDBEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.DynamoDBEndpoint)
		}
	})
}

// ProvideCloudWatchClient creates a CloudWatch client
func ProvideCloudWatchClient(awsCfg aws.Config) *awscloudwatch.Client {
	return awscloudwatch.NewFromConfig(awsCfg)
}

// ProvideMetrics creates the metrics recorder; publishing is off unless ENABLE_METRICS is set
func ProvideMetrics(client *awscloudwatch.Client, cfg *config.Config, logger *zap.Logger) *observability.Metrics {
	if !cfg.EnableMetrics {
		return observability.NewMetrics(cfg.MetricsNamespace, nil, logger)
	}
	return observability.NewMetrics(cfg.MetricsNamespace, client, logger)
}

// ProvideTracer creates the X-Ray tracer
func ProvideTracer(cfg *config.Config) *observability.Tracer {
	return observability.NewTracer("eventstore", cfg.EnableTracing)
}

// ProvideAccountRegistry registers the account event types
func ProvideAccountRegistry() (*codec.Registry[string], error) {
	registry := codec.NewRegistry[string]()

	registrations := []func() error{
		func() error { return codec.Register[string, events.AccountOpened](registry, events.AccountOpenedType) },
		func() error { return codec.Register[string, events.MoneyDeposited](registry, events.MoneyDepositedType) },
		func() error { return codec.Register[string, events.MoneyWithdrawn](registry, events.MoneyWithdrawnType) },
		func() error { return codec.Register[string, events.AccountClosed](registry, events.AccountClosedType) },
	}
	for _, register := range registrations {
		if err := register(); err != nil {
			return nil, err
		}
	}

	return registry, nil
}

// AccountTable is the event table of the account aggregate
type AccountTable abstractions.Table

// ProvideAccountTable selects the table backend and provisions the DynamoDB table when asked to
func ProvideAccountTable(ctx context.Context, cfg *config.Config, client *awsdynamodb.Client, logger *zap.Logger) (AccountTable, error) {
	name := cfg.EventTableName(events.AccountAggregateType)

	if cfg.StoreBackend == config.BackendMemory {
		logger.Warn("Using in-memory event table; events are lost on restart", zap.String("table", name))
		return memory.NewTable(name), nil
	}

	if cfg.CreateTables {
		if err := dynamodb.EnsureTable(ctx, client, name, keys.String.ScalarType(), cfg.TableWait, logger); err != nil {
			return nil, err
		}
	}

	return dynamodb.NewTable(client, name), nil
}

// ProvideAccountEventStore creates the instrumented account event store
func ProvideAccountEventStore(
	table AccountTable,
	registry *codec.Registry[string],
	cfg *config.Config,
	logger *zap.Logger,
	tracer *observability.Tracer,
	metrics *observability.Metrics,
) (ports.EventStore[string], error) {
	store, err := eventstore.New[string](table, registry,
		eventstore.WithScanPageSize[string](cfg.ScanPageSize),
		eventstore.WithConsistentRead[string](cfg.ConsistentReads),
	)
	if err != nil {
		return nil, err
	}

	return eventstore.NewInstrumented[string](store, store.TableName(), logger, tracer, metrics), nil
}

// ProvideErrorHandler creates the HTTP error handler; stack traces are exposed in development only
func ProvideErrorHandler(cfg *config.Config, logger *zap.Logger) *appErrors.ErrorHandler {
	return appErrors.NewErrorHandler(logger, cfg.IsDevelopment())
}

// ProvideAccountService creates the account service
func ProvideAccountService(store ports.EventStore[string], logger *zap.Logger) *services.AccountService {
	return services.NewAccountService(store, logger)
}

// ProvideAccountHandler creates the account HTTP handler
func ProvideAccountHandler(
	service *services.AccountService,
	registry *codec.Registry[string],
	errorHandler *appErrors.ErrorHandler,
	logger *zap.Logger,
) *handlers.AccountHandler {
	return handlers.NewAccountHandler(service, registry, errorHandler, logger)
}

// ProvideRouter creates the HTTP router
func ProvideRouter(handler *handlers.AccountHandler, errorHandler *appErrors.ErrorHandler, cfg *config.Config, logger *zap.Logger) *rest.Router {
	return rest.NewRouter(handler, errorHandler, logger, cfg.EnableCORS)
}
