package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))

	require.NoError(t, err)
	assert.Equal(t, 8181, cfg.Port)
	assert.Equal(t, "klokku", cfg.Database.Name)
	assert.Equal(t, 31, cfg.Layout.MaxDays)
	assert.Equal(t, MemoryCache, cfg.Layout.Cache)
	assert.Equal(t, 10*time.Minute, cfg.Layout.CacheTTL)
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "application.yaml")
	content := []byte(`
db:
  host: db.internal
  port: 6543
layout:
  maxdays: 7
  cache: redis
  cachettl: 90s
redis:
  addr: redis.internal:6379
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))
	t.Setenv("KLOKKU_DB_NAME", "layouts")
	t.Setenv("KLOKKU_LAYOUT_MAXDAYS", "14")

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 6543, cfg.Database.Port)
	assert.Equal(t, "layouts", cfg.Database.Name)
	assert.Equal(t, 14, cfg.Layout.MaxDays)
	assert.Equal(t, RedisCache, cfg.Layout.Cache)
	assert.Equal(t, 90*time.Second, cfg.Layout.CacheTTL)
	assert.Equal(t, "redis.internal:6379", cfg.Redis.Addr)
}
