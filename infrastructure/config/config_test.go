package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	for _, key := range []string{
		"SERVER_ADDRESS", "ENVIRONMENT", "AWS_REGION", "DYNAMODB_ENDPOINT", "STORE_BACKEND",
		"EVENT_TABLE_PREFIX", "CREATE_TABLES", "TABLE_WAIT_SECONDS", "SCAN_PAGE_SIZE",
		"CONSISTENT_READS", "AWS_LAMBDA_FUNCTION_NAME", "LOG_LEVEL", "ENABLE_CORS",
	} {
		t.Setenv(key, "")
	}

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ServerAddress)
	assert.Equal(t, BackendDynamoDB, cfg.StoreBackend)
	assert.Equal(t, "events-", cfg.EventTablePrefix)
	assert.Equal(t, 120*time.Second, cfg.TableWait)
	assert.Equal(t, int32(0), cfg.ScanPageSize)
	assert.False(t, cfg.IsLambda)
	assert.True(t, cfg.EnableCORS)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoadConfig_FromEnvironment(t *testing.T) {
	t.Setenv("STORE_BACKEND", "Memory")
	t.Setenv("SCAN_PAGE_SIZE", "250")
	t.Setenv("CONSISTENT_READS", "yes")
	t.Setenv("TABLE_WAIT_SECONDS", "5")
	t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "event-store-api")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, BackendMemory, cfg.StoreBackend)
	assert.Equal(t, int32(250), cfg.ScanPageSize)
	assert.True(t, cfg.ConsistentReads)
	assert.Equal(t, 5*time.Second, cfg.TableWait)
	assert.True(t, cfg.IsLambda)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Environment:  "development",
			AWSRegion:    "eu-west-1",
			StoreBackend: BackendDynamoDB,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "unknown backend", mutate: func(c *Config) { c.StoreBackend = "redis" }, wantErr: true},
		{name: "dynamodb without region", mutate: func(c *Config) { c.AWSRegion = "" }, wantErr: true},
		{name: "memory without region", mutate: func(c *Config) {
			c.AWSRegion = ""
			c.StoreBackend = BackendMemory
		}},
		{name: "negative page size", mutate: func(c *Config) { c.ScanPageSize = -1 }, wantErr: true},
		{name: "memory in production", mutate: func(c *Config) {
			c.Environment = "production"
			c.StoreBackend = BackendMemory
		}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_EventTableName(t *testing.T) {
	cfg := &Config{EventTablePrefix: "events-"}

	t.Setenv("EVENT_TABLE_ACCOUNT", "")
	assert.Equal(t, "events-account", cfg.EventTableName("account"))

	t.Setenv("EVENT_TABLE_ACCOUNT", "prod-accounts")
	assert.Equal(t, "prod-accounts", cfg.EventTableName("account"))

	t.Setenv("EVENT_TABLE_CREDIT_CARD", "cards")
	assert.Equal(t, "cards", cfg.EventTableName("credit-card"))
}
