package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, "memory", cfg.Cache.Driver)
	assert.Equal(t, time.Hour, cfg.Auth.TokenTTL)
	require.NotNil(t, cfg.Auth.LockoutThreshold)
	assert.Equal(t, 5, *cfg.Auth.LockoutThreshold)
	assert.Equal(t, 60*time.Minute, cfg.Auth.Reset.TTL)
	assert.Equal(t, 24*time.Hour, cfg.Auth.Verify.TTL)
	assert.Equal(t, 8, cfg.Security.PasswordPolicy.MinLength)
	assert.Equal(t, time.Minute, cfg.LoginWindow())
	assert.Equal(t, 10*time.Minute, cfg.ForgotWindow())
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9090"
  base_url: "https://id.example.com"
storage:
  driver: postgres
  dsn: "postgres://localhost/iridium"
auth:
  token_ttl: 30m
  lockout_threshold: 3
admin:
  api_key: "s3cret"
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "https://id.example.com", cfg.Server.BaseURL)
	assert.Equal(t, "postgres", cfg.Storage.Driver)
	assert.Equal(t, 30*time.Minute, cfg.Auth.TokenTTL)
	assert.Equal(t, 3, *cfg.Auth.LockoutThreshold)
	assert.Equal(t, "s3cret", cfg.Admin.APIKey)
}

func TestLockoutZeroDisablesInsteadOfDefaulting(t *testing.T) {
	path := writeConfig(t, "auth:\n  lockout_threshold: 0\n")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, cfg.Auth.LockoutThreshold)
	assert.Equal(t, 0, *cfg.Auth.LockoutThreshold, "cero explícito no debe pisarse con el default")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_ADDR", ":7070")
	t.Setenv("STORAGE_DRIVER", "postgres")
	t.Setenv("AUTH_TOKEN_TTL", "15m")
	t.Setenv("AUTH_LOCKOUT_THRESHOLD", "0")
	t.Setenv("ADMIN_API_KEY", "from-env")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Server.Addr)
	assert.Equal(t, "postgres", cfg.Storage.Driver)
	assert.Equal(t, 15*time.Minute, cfg.Auth.TokenTTL)
	assert.Equal(t, 0, *cfg.Auth.LockoutThreshold)
	assert.Equal(t, "from-env", cfg.Admin.APIKey)
}

func TestInvalidRateWindow(t *testing.T) {
	path := writeConfig(t, "rate:\n  login:\n    window: \"not-a-duration\"\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestMissingFile(t *testing.T) {
	_, err := Load("/does/not/exist.yaml")
	assert.Error(t, err)
}
