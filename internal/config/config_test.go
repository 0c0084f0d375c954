package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "dlx", cfg.Solver.Kind)
	assert.Equal(t, 2*time.Second, cfg.Solver.Timeout)
	assert.Equal(t, "fs", cfg.Storage.Driver)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, "meldsolver.solve", cfg.NATS.Subject)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9090"
solver:
  kind: backtrack
  max_nodes: 500
  timeout: 250ms
redis:
  enabled: true
  addr: "cache:6379"
  ttl: 1h
logging:
  level: debug
  format: json
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "backtrack", cfg.Solver.Kind)
	assert.Equal(t, 500, cfg.Solver.MaxNodes)
	assert.Equal(t, 250*time.Millisecond, cfg.Solver.Timeout)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "cache:6379", cfg.Redis.Addr)
	assert.Equal(t, time.Hour, cfg.Redis.TTL)
	assert.Equal(t, "json", cfg.Logging.Format)
	// untouched sections keep their defaults
	assert.Equal(t, 4, cfg.Solver.Workers)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("MELDSOLVER_SOLVER_MAX_NODES", "42")
	t.Setenv("MELDSOLVER_REDIS_ENABLED", "true")
	t.Setenv("MELDSOLVER_REDIS_PASSWORD", "hunter2")
	t.Setenv("MELDSOLVER_REDIS_DB", "3")
	t.Setenv("MELDSOLVER_NATS_ENABLED", "true")
	t.Setenv("MELDSOLVER_STORAGE_DRIVER", "postgres")
	t.Setenv("MELDSOLVER_STORAGE_DSN", "postgres://meld@db/meld")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 42, cfg.Solver.MaxNodes)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "hunter2", cfg.Redis.Password)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.True(t, cfg.NATS.Enabled)
	assert.Equal(t, "postgres", cfg.Storage.Driver)
	assert.Equal(t, "postgres://meld@db/meld", cfg.Storage.DSN)
}

// Every mapstructure key must have a default, or its environment
// variable is ignored.
func TestEveryKeyHasDefault(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	keys := v.AllKeys()
	for _, want := range []string{
		"server.addr", "server.read_header_timeout",
		"solver.kind", "solver.max_nodes", "solver.timeout", "solver.workers", "solver.queue",
		"storage.driver", "storage.path", "storage.dsn", "storage.max_conns",
		"redis.enabled", "redis.addr", "redis.password", "redis.db", "redis.pool_size", "redis.ttl",
		"nats.enabled", "nats.url", "nats.subject", "nats.queue", "nats.max_reconnects", "nats.reconnect_wait",
		"logging.level", "logging.format",
	} {
		assert.Contains(t, keys, want)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"solver kind":  "solver:\n  kind: sat\n",
		"storage":      "storage:\n  driver: s3\n",
		"postgres dsn": "storage:\n  driver: postgres\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
