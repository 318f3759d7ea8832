package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends
const (
	BackendDynamoDB = "dynamodb"
	BackendMemory   = "memory"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string
	Environment   string

	// AWS configuration
	AWSRegion        string
	DynamoDBEndpoint string // local DynamoDB, empty for the AWS endpoint

	// Event store configuration
	StoreBackend     string
	EventTablePrefix string
	CreateTables     bool
	TableWait        time.Duration
	ScanPageSize     int32
	ConsistentReads  bool

	// Lambda configuration
	IsLambda           bool
	LambdaFunctionName string

	// Logging
	LogLevel string

	// Feature flags
	EnableMetrics    bool
	EnableTracing    bool
	EnableCORS       bool
	MetricsNamespace string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerAddress:    getEnv("SERVER_ADDRESS", ":8080"),
		Environment:      getEnv("ENVIRONMENT", "development"),
		AWSRegion:        getEnv("AWS_REGION", "us-west-2"),
		DynamoDBEndpoint: getEnv("DYNAMODB_ENDPOINT", ""),

		StoreBackend:     strings.ToLower(getEnv("STORE_BACKEND", BackendDynamoDB)),
		EventTablePrefix: getEnv("EVENT_TABLE_PREFIX", "events-"),
		CreateTables:     getEnvBool("CREATE_TABLES", false),
		TableWait:        time.Duration(getEnvInt("TABLE_WAIT_SECONDS", 120)) * time.Second,
		ScanPageSize:     int32(getEnvInt("SCAN_PAGE_SIZE", 0)),
		ConsistentReads:  getEnvBool("CONSISTENT_READS", false),

		IsLambda:           getEnv("AWS_LAMBDA_FUNCTION_NAME", "") != "",
		LambdaFunctionName: getEnv("AWS_LAMBDA_FUNCTION_NAME", ""),

		LogLevel:         getEnv("LOG_LEVEL", "info"),
		EnableMetrics:    getEnvBool("ENABLE_METRICS", false),
		EnableTracing:    getEnvBool("ENABLE_TRACING", false),
		EnableCORS:       getEnvBool("ENABLE_CORS", true),
		MetricsNamespace: getEnv("METRICS_NAMESPACE", "EventStore"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendDynamoDB, BackendMemory:
	default:
		return fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", BackendDynamoDB, BackendMemory, c.StoreBackend)
	}

	if c.StoreBackend == BackendDynamoDB && c.AWSRegion == "" {
		return fmt.Errorf("AWS_REGION is required for the dynamodb backend")
	}
	if c.ScanPageSize < 0 {
		return fmt.Errorf("SCAN_PAGE_SIZE cannot be negative")
	}
	if c.IsProduction() && c.StoreBackend == BackendMemory {
		return fmt.Errorf("the memory backend cannot be used in production")
	}

	return nil
}

// EventTableName resolves the table holding the events of one aggregate type.
// EVENT_TABLE_<AGGREGATE> overrides the prefixed default.
func (c *Config) EventTableName(aggregateType string) string {
	key := "EVENT_TABLE_" + strings.ToUpper(strings.ReplaceAll(aggregateType, "-", "_"))
	if name := os.Getenv(key); name != "" {
		return name
	}
	return c.EventTablePrefix + aggregateType
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
