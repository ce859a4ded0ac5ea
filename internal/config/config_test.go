package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "0123456789abcdef0123456789abcdef"

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", secret)

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, BackendMemory, cfg.ProfileBackend)
	assert.Equal(t, time.Second, cfg.CartDebounce)
	assert.Equal(t, 30*time.Second, cfg.CartSyncInterval)
	assert.Equal(t, 194, cfg.CatalogLimit)
	assert.Equal(t, "cart-sync", cfg.KafkaTopic)
	assert.False(t, cfg.KafkaEnabled)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", secret)
	t.Setenv("PROFILE_BACKEND", "Redis")
	t.Setenv("REDIS_ADDR", "cache:6379")
	t.Setenv("CART_DEBOUNCE", "250ms")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, BackendRedis, cfg.ProfileBackend)
	assert.Equal(t, "cache:6379", cfg.RedisAddr)
	assert.Equal(t, 250*time.Millisecond, cfg.CartDebounce)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cart.yaml")
	require.NoError(t, os.WriteFile(path, []byte("JWT_SECRET: "+secret+"\nHTTP_ADDR: \":9000\"\n"), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_SecretRequired(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := Load()
	assert.ErrorIs(t, err, ErrMissingSecret)

	t.Setenv("JWT_SECRET", "short")
	_, err = Load()
	assert.ErrorIs(t, err, ErrWeakSecret)
}

func TestValidate_Backends(t *testing.T) {
	base := func() Config {
		return Config{JWTSecret: secret, CartDebounce: time.Second, CartSyncInterval: time.Second}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"memory", func(c *Config) { c.ProfileBackend = BackendMemory }, ""},
		{"postgres needs url", func(c *Config) { c.ProfileBackend = BackendPostgres }, "DATABASE_URL"},
		{"dynamo needs table", func(c *Config) { c.ProfileBackend = BackendDynamoDB }, "DYNAMO_TABLE"},
		{"identity api needs key", func(c *Config) {
			c.ProfileBackend = BackendIdentityAPI
			c.IdentityAPIURL = "https://api.example.com"
		}, "IDENTITY_API_KEY"},
		{"unknown backend", func(c *Config) { c.ProfileBackend = "mongo" }, `unknown PROFILE_BACKEND "mongo"`},
		{"kafka needs brokers", func(c *Config) {
			c.ProfileBackend = BackendMemory
			c.KafkaEnabled = true
		}, "KAFKA_BROKERS"},
		{"non-positive debounce", func(c *Config) {
			c.ProfileBackend = BackendMemory
			c.CartDebounce = 0
		}, "CART_DEBOUNCE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
