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
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, BackendSQLite, cfg.StorageBackend)
	assert.Equal(t, 0.08, cfg.TaxRate)
	assert.Equal(t, 50.0, cfg.FreeShippingThreshold)
	assert.Equal(t, 5.99, cfg.ShippingFee)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.False(t, cfg.NeedsRedis())
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("STORAGE_BACKEND", "redis")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("CATALOG_TIMEOUT", "2s")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 2*time.Second, cfg.CatalogTimeout)
	assert.True(t, cfg.NeedsRedis())
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("JWT_SECRET=from-file\nHTTP_PORT=9090\n"), 0o600))
	t.Setenv("HTTP_PORT", "7070")
	// godotenv sets variables for the rest of the process
	t.Cleanup(func() { os.Unsetenv("JWT_SECRET") })

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.JWTSecret)
	assert.Equal(t, "7070", cfg.HTTPPort)
}

func TestLoad_MissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	os.Unsetenv("JWT_SECRET")

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.ErrorContains(t, err, "JWT_SECRET")
}

func TestLoad_UnknownBackend(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("STORAGE_BACKEND", "postgres")

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.ErrorContains(t, err, "unknown STORAGE_BACKEND")
}
