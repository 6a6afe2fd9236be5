package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("PRAXIS_POSTGRES_URL", "postgres://localhost/praxis_test?sslmode=disable")
	t.Setenv("PRAXIS_JWT_SECRET", "test-secret")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "9090", cfg.Server.HealthPort)
	assert.Equal(t, 24*time.Hour, cfg.Auth.LoginTokenTTL)
	assert.Equal(t, time.Hour, cfg.Auth.ImpersonationTokenTTL)
	assert.Equal(t, 1024, cfg.Auth.PrincipalCacheSize)
	assert.Equal(t, 30*time.Second, cfg.Auth.PrincipalCacheTTL)
	assert.Equal(t, "@every 1m", cfg.Usage.FlushSchedule)
	assert.True(t, cfg.Observability.MetricsEnabled)
}

func TestLoad_MissingSecret(t *testing.T) {
	t.Setenv("PRAXIS_POSTGRES_URL", "postgres://localhost/praxis_test")
	t.Setenv("PRAXIS_JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT signing secret")
}

func TestLoad_MissingDatabaseURL(t *testing.T) {
	t.Setenv("PRAXIS_POSTGRES_URL", "")
	t.Setenv("PRAXIS_JWT_SECRET", "test-secret")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres URL")
}

func TestLoad_EnvOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PRAXIS_PORT", "3000")
	t.Setenv("PRAXIS_LOGIN_TOKEN_TTL", "48h")
	t.Setenv("PRAXIS_IMPERSONATION_TOKEN_TTL", "30m")
	t.Setenv("PRAXIS_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, 48*time.Hour, cfg.Auth.LoginTokenTTL)
	assert.Equal(t, 30*time.Minute, cfg.Auth.ImpersonationTokenTTL)
}

// The short impersonation tier is a hard invariant; an inverted config is
// rejected at startup rather than silently honored.
func TestLoad_RejectsInvertedTTLTiers(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PRAXIS_IMPERSONATION_TOKEN_TTL", "48h")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be shorter")
}

func TestLoad_RejectsSharedPorts(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PRAXIS_PORT", "8080")
	t.Setenv("PRAXIS_HEALTH_PORT", "8080")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be different")
}

func TestLoad_YAMLFileWithEnvPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "praxis.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: "4000"
auth:
  jwt_secret: file-secret
  bcrypt_cost: 12
database:
  url: postgres://file-host/praxis
`), 0o600))

	t.Setenv("PRAXIS_CONFIG_FILE", path)
	t.Setenv("PRAXIS_JWT_SECRET", "env-secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "4000", cfg.Server.Port)
	assert.Equal(t, 12, cfg.Auth.BcryptCost)
	assert.Equal(t, "postgres://file-host/praxis", cfg.Database.URL)
	// Environment wins over the file
	assert.Equal(t, "env-secret", cfg.Auth.JWTSecret)
}
