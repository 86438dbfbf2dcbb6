package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("S3_BUCKET", "websites")
	t.Setenv("REGISTRY_URL", "https://registry.example")
	t.Setenv("LLM_BASE_URL", "https://llm.example/v1")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "file", cfg.Store.Backend)
	assert.Equal(t, "data/projects.json", cfg.Store.FilePath)
	assert.Equal(t, "us-east-1", cfg.Storage.Region)
	assert.Equal(t, 15*time.Second, cfg.Storage.Timeout)
	assert.Equal(t, "example", cfg.Registry.Zone)
	assert.Equal(t, float64(1), cfg.Generator.RPS)
	assert.Equal(t, 2, cfg.Generator.Burst)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Equal(t, "@hourly", cfg.App.JanitorCron)
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "9090")
	t.Setenv("S3_TIMEOUT", "30s")
	t.Setenv("LLM_RPS", "2.5")
	t.Setenv("LLM_BURST", "5")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Storage.Timeout)
	assert.Equal(t, 2.5, cfg.Generator.RPS)
	assert.Equal(t, 5, cfg.Generator.Burst)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	setRequired(t)
	t.Setenv("LLM_BURST", "not-a-number")
	t.Setenv("S3_TIMEOUT", "soon")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Generator.Burst)
	assert.Equal(t, 15*time.Second, cfg.Storage.Timeout)
}

func TestValidate(t *testing.T) {
	t.Run("missing bucket", func(t *testing.T) {
		t.Setenv("S3_BUCKET", "")
		t.Setenv("REGISTRY_URL", "https://registry.example")
		t.Setenv("LLM_BASE_URL", "https://llm.example/v1")
		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "S3_BUCKET")
	})

	t.Run("postgres backend needs dsn", func(t *testing.T) {
		setRequired(t)
		t.Setenv("STORE_BACKEND", "postgres")
		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "STORE_DSN")
	})

	t.Run("unknown backend", func(t *testing.T) {
		setRequired(t)
		t.Setenv("STORE_BACKEND", "etcd")
		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "STORE_BACKEND")
	})
}
