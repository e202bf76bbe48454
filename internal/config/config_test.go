package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, BusMemory, cfg.Server.Bus.Kind)
	assert.Equal(t, 10, cfg.Client.MaxAttempts)
}

func TestLoad_DefaultsOnly(t *testing.T) {
	cfg, err := Load(NewViper(), "")
	require.NoError(t, err)
	assert.Equal(t, Default(), *cfg)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fieldsync.yaml")

	content := `
server:
  listen_addr: ":9090"
  commutative:
    stock_item: [increment]
    work_order: []
  log_retention: 72h
  heartbeat_interval: 5s
  heartbeat_timeout: 20s
client:
  max_attempts: 3
  entity_types: [stock_item, work_order]
backoff:
  base: 250ms
  cap: 10s
  jitter: 0.5
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	// Окружение перекрывает файл
	t.Setenv("FIELDSYNC_SERVER_IDEMPOTENCY_TTL", "48h")
	t.Setenv("FIELDSYNC_CLIENT_CONCURRENCY", "8")

	cfg, err := Load(NewViper(), path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.ListenAddr)
	assert.Equal(t, 72*time.Hour, cfg.Server.LogRetention)
	assert.Equal(t, 5*time.Second, cfg.Server.HeartbeatInterval)
	assert.Equal(t, 20*time.Second, cfg.Server.HeartbeatTimeout)
	assert.Equal(t, 48*time.Hour, cfg.Server.IdempotencyTTL)
	assert.Equal(t, []string{"increment"}, cfg.Server.Commutative["stock_item"])
	assert.Empty(t, cfg.Server.Commutative["work_order"])
	assert.Equal(t, 3, cfg.Client.MaxAttempts)
	assert.Equal(t, 8, cfg.Client.Concurrency)
	assert.Equal(t, []string{"stock_item", "work_order"}, cfg.Client.EntityTypes)
	assert.Equal(t, 250*time.Millisecond, cfg.Backoff.Base)
	assert.Equal(t, 0.5, cfg.Backoff.Jitter)
	assert.Equal(t, 10*time.Second, cfg.Backoff.Policy().Cap)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(NewViper(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		mutate func(c *Config)
		name   string
	}{
		{name: "zero retention", mutate: func(c *Config) { c.Server.LogRetention = 0 }},
		{name: "timeout below interval", mutate: func(c *Config) { c.Server.HeartbeatTimeout = c.Server.HeartbeatInterval }},
		{name: "unknown bus", mutate: func(c *Config) { c.Server.Bus.Kind = "kafka" }},
		{name: "zmq without endpoints", mutate: func(c *Config) { c.Server.Bus.Kind = BusZMQ }},
		{name: "zero attempts", mutate: func(c *Config) { c.Client.MaxAttempts = 0 }},
		{name: "cap below base", mutate: func(c *Config) { c.Backoff.Cap = c.Backoff.Base / 2 }},
		{name: "jitter above one", mutate: func(c *Config) { c.Backoff.Jitter = 1.5 }},
		{name: "commutative delete", mutate: func(c *Config) {
			c.Server.Commutative = map[string][]string{"stock_item": {"increment", "delete"}}
		}},
		{name: "commutative unknown op", mutate: func(c *Config) {
			c.Server.Commutative = map[string][]string{"stock_item": {"merge"}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
