package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Tests here set process environment, so they do not run in parallel.

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, "development", cfg.Environment)
	require.Equal(t, 15*time.Second, cfg.RequestTimeout)
	require.Equal(t, 30, cfg.MaxConnections)
	require.Equal(t, "auto", cfg.PrimaryProvider)
	require.Equal(t, "https://api.ote-godaddy.com", cfg.GoDaddy.BaseURL)
	require.Equal(t, "/metrics", cfg.HTTP.MetricsPath)
	require.True(t, cfg.Preload)
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("GODADDY_API_KEY", "gk")
	t.Setenv("PORKBUN_API_SECRET", "legacy-secret")
	t.Setenv("DIRECT_LOOKUPS", "always")
	t.Setenv("REQUEST_TIMEOUT", "20s")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	require.Equal(t, "gk", cfg.GoDaddy.APIKey)
	require.Equal(t, "legacy-secret", cfg.Porkbun.SecretAPIKey)
	require.Equal(t, "always", cfg.DirectLookups)
	require.Equal(t, 20*time.Second, cfg.RequestTimeout)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dotquote.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
environment: production
primaryProvider: rdap
dynadot:
  apiKey: from-file
http:
  addr: ":9090"
`), 0o600))

	t.Setenv("DYNADOT_API_KEY", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "production", cfg.Environment)
	require.Equal(t, "rdap", cfg.PrimaryProvider)
	require.Equal(t, ":9090", cfg.HTTP.Addr)
	require.Equal(t, "from-env", cfg.Dynadot.APIKey)
	require.Equal(t, 10*time.Second, cfg.GracefulShutdownTimeout)
}
