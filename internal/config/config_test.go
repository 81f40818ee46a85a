package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsAndEnvOverlay(t *testing.T) {
	t.Setenv("CHECKOUT_AUTH__JWT_SECRET", "s3cret")
	t.Setenv("CHECKOUT_KAFKA__BROKERS", "k1:9092, k2:9092")
	t.Setenv("CHECKOUT_HTTP__ADDR", ":9000")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "checkout-api", cfg.ServiceName)
	assert.Equal(t, ":9000", cfg.HTTP.Addr)
	assert.Equal(t, 15*time.Second, cfg.HTTP.RequestTimeout)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "order.events", cfg.Kafka.Topic)
	assert.Equal(t, "s3cret", cfg.Auth.JWTSecret)
	assert.True(t, cfg.RedisEnabled())
}

func TestLoad_YAMLFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := `
store:
  driver: memory
kafka:
  enabled: false
auth:
  jwt_secret: from-file
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	t.Setenv("CHECKOUT_LOG__LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.False(t, cfg.Kafka.Enabled)
	assert.Equal(t, "from-file", cfg.Auth.JWTSecret)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoad_RedisOptional(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
store:
  driver: memory
redis:
  addr: ""
kafka:
  enabled: false
auth:
  jwt_secret: x
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.False(t, cfg.RedisEnabled())

	t.Setenv("CHECKOUT_REDIS__ADDR", "cache:6379")
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.RedisEnabled())
	assert.Equal(t, "cache:6379", cfg.Redis.Addr)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		var c Config
		c.HTTP.Addr = ":8081"
		c.Store.Driver = "postgres"
		c.Postgres.DSN = "postgres://x"
		c.Auth.JWTSecret = "k"
		c.Kafka.Enabled = true
		c.Kafka.Brokers = []string{"k:9092"}
		return c
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "ok", mutate: func(*Config) {}},
		{name: "missing dsn", mutate: func(c *Config) { c.Postgres.DSN = "" }, wantErr: "postgres.dsn"},
		{name: "memory without dsn", mutate: func(c *Config) { c.Store.Driver = "memory"; c.Postgres.DSN = "" }},
		{name: "unknown driver", mutate: func(c *Config) { c.Store.Driver = "sqlite" }, wantErr: "store.driver"},
		{name: "missing secret", mutate: func(c *Config) { c.Auth.JWTSecret = "" }, wantErr: "jwt_secret"},
		{name: "no brokers", mutate: func(c *Config) { c.Kafka.Brokers = nil }, wantErr: "kafka.brokers"},
		{name: "no brokers events off", mutate: func(c *Config) { c.Kafka.Brokers = nil; c.Kafka.Enabled = false }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
