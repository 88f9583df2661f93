package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_HappyPath(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "config_test")
	require.NoError(t, err)
	defer os.RemoveAll(tempDir)

	tempConfigsSubDir := filepath.Join(tempDir, "configs")
	err = os.Mkdir(tempConfigsSubDir, 0755)
	require.NoError(t, err)

	testAppName := "TestApp"
	testPort := 9090
	testLogLevel := "debug"
	testKafkaBrokers := "kafka1:9092,kafka2:9092"

	envContent := fmt.Sprintf(
		"APP_NAME=%s\nSERVER_PORT=%d\nLOG_LEVEL=%s\nKAFKA_BROKERS=%s\nKEYCLUB_WEBHOOK_SECRET=kc-secret\nDEFAULT_WITHDRAW_FEE_PERCENT=5.5\n",
		testAppName, testPort, testLogLevel, testKafkaBrokers,
	)
	envFilePath := filepath.Join(tempConfigsSubDir, "test_happy.env")
	err = os.WriteFile(envFilePath, []byte(envContent), 0644)
	require.NoError(t, err)

	originalWD, err := os.Getwd()
	require.NoError(t, err)
	defer func() {
		_ = os.Chdir(originalWD)
	}()

	err = os.Chdir(tempDir)
	require.NoError(t, err)

	cfg, err := LoadConfig("test_happy")
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, testAppName, cfg.Application.Name)
	assert.Equal(t, testPort, cfg.Server.Port)
	assert.Equal(t, testLogLevel, cfg.Logging.Level)
	assert.Equal(t, testKafkaBrokers, cfg.Kafka.Brokers)
	assert.Equal(t, "kc-secret", cfg.Gateways.KeyClubWebhookSecret)
	assert.Equal(t, "5.5", cfg.Fees.WithdrawPercent)

	assert.Equal(t, "development", cfg.Application.Env)
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "ledger_events", cfg.Kafka.LedgerEventsTopic)
	assert.Equal(t, "mongodb://localhost:27017", cfg.MongoDB.URI)
	assert.Equal(t, 10, cfg.WorkerPool.Size)
	assert.Equal(t, 15*time.Second, cfg.Gateways.HTTPTimeout)
	assert.Equal(t, "keyclub", cfg.Gateways.DepositGateway)
	assert.Equal(t, "xflow", cfg.Gateways.WithdrawalGateway)
	assert.Equal(t, "2.00", cfg.Fees.WithdrawFixed)
	assert.Equal(t, int64(100), cfg.Fees.MinWithdrawNetCents)
	assert.Equal(t, 72*time.Hour, cfg.Outbox.Retention)
	assert.Equal(t, time.Hour, cfg.Outbox.PurgeInterval)
	assert.Empty(t, cfg.Gateways.XFlowWebhookSecret)

	cfgWithName, err := LoadConfigWithName("configs/test_happy") // Viper will look for configs/test_happy.env
	require.NoError(t, err)
	require.NotNil(t, cfgWithName)
	assert.Equal(t, testAppName, cfgWithName.Application.Name)

	cfgWithNameAndType, err := LoadConfigWithNameAndType("configs/test_happy", "env")
	require.NoError(t, err)
	require.NotNil(t, cfgWithNameAndType)
	assert.Equal(t, testAppName, cfgWithNameAndType.Application.Name)
}

func TestConfig_Validate_HappyPath(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	cfg := buildConfig(v)

	err := cfg.validate()
	assert.NoError(t, err, "Default config should be valid")
}

func TestConfig_Validate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantMsg string
	}{
		{
			name:    "unknown deposit gateway",
			mutate:  func(c *Config) { c.Gateways.DepositGateway = "acme" },
			wantMsg: "DEPOSIT_GATEWAY must be one of keyclub, xflow",
		},
		{
			name:    "zero gateway timeout",
			mutate:  func(c *Config) { c.Gateways.HTTPTimeout = 0 },
			wantMsg: "GATEWAY_HTTP_TIMEOUT must be greater than 0",
		},
		{
			name:    "missing fee percent",
			mutate:  func(c *Config) { c.Fees.WithdrawPercent = "" },
			wantMsg: "DEFAULT_WITHDRAW_FEE_PERCENT is required",
		},
		{
			name:    "missing ledger topic",
			mutate:  func(c *Config) { c.Kafka.LedgerEventsTopic = "" },
			wantMsg: "KAFKA_LEDGER_EVENTS_TOPIC is required",
		},
		{
			name:    "non positive port",
			mutate:  func(c *Config) { c.Server.Port = 0 },
			wantMsg: "SERVER_PORT must be greater than 0",
		},
		{
			name:    "negative outbox retention",
			mutate:  func(c *Config) { c.Outbox.Retention = -time.Hour },
			wantMsg: "OUTBOX_RETENTION cannot be negative",
		},
		{
			name:    "retention without purge interval",
			mutate:  func(c *Config) { c.Outbox.PurgeInterval = 0 },
			wantMsg: "OUTBOX_PURGE_INTERVAL must be greater than 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			setDefaults(v)
			cfg := buildConfig(v)
			tt.mutate(cfg)

			err := cfg.validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestIsKnownGateway(t *testing.T) {
	assert.True(t, isKnownGateway("keyclub"))
	assert.True(t, isKnownGateway("XFlow"))
	assert.False(t, isKnownGateway(""))
	assert.False(t, isKnownGateway("stripe"))
}
