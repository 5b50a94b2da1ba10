package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	repo := NewConfigRepository()

	t.Run("toml", func(t *testing.T) {
		t.Parallel()
		path := writeTempConfig(t, "config.toml", `
log_group_name = "/aws/gateway/telemetry"
bucket = "finops-data-bucket"
allocation_method = "token-based"
lookback_hours = 2
`)
		cfg, err := repo.LoadConfigFile(path)
		require.NoError(t, err)
		require.Equal(t, "/aws/gateway/telemetry", cfg.LogGroupName)
		require.Equal(t, "token-based", cfg.AllocationMethod)
		require.Equal(t, 2, cfg.LookbackHours)
		// Untouched fields keep their defaults.
		require.Equal(t, 60, cfg.TimeWindowMinutes)
		require.Equal(t, []string{"Amazon Bedrock"}, cfg.CostServices)
	})

	t.Run("yaml", func(t *testing.T) {
		t.Parallel()
		path := writeTempConfig(t, "config.yaml", `
log_group_name: /aws/gateway/telemetry
bucket: finops-data-bucket
auto_select_method: true
decay_hours: 4.5
`)
		cfg, err := repo.LoadConfigFile(path)
		require.NoError(t, err)
		require.Equal(t, "finops-data-bucket", cfg.Bucket)
		require.True(t, cfg.AutoSelectMethod)
		require.Equal(t, 4.5, cfg.DecayHours)
	})

	t.Run("json", func(t *testing.T) {
		t.Parallel()
		path := writeTempConfig(t, "config.json", `{
  "log_group_name": "/aws/gateway/telemetry",
  "bucket": "finops-data-bucket",
  "time_window_minutes": 30
}`)
		cfg, err := repo.LoadConfigFile(path)
		require.NoError(t, err)
		require.Equal(t, 30, cfg.TimeWindowMinutes)
	})

	t.Run("unsupported extension", func(t *testing.T) {
		t.Parallel()
		path := writeTempConfig(t, "config.ini", "a=b")
		_, err := repo.LoadConfigFile(path)
		require.ErrorContains(t, err, "unsupported config file format")
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		_, err := repo.LoadConfigFile(filepath.Join(t.TempDir(), "nope.toml"))
		require.Error(t, err)
	})

	t.Run("directory rejected", func(t *testing.T) {
		t.Parallel()
		_, err := repo.LoadConfigFile(t.TempDir())
		require.ErrorContains(t, err, "is a directory")
	})

	t.Run("malformed toml", func(t *testing.T) {
		t.Parallel()
		path := writeTempConfig(t, "bad.toml", "log_group_name = [broken")
		_, err := repo.LoadConfigFile(path)
		require.ErrorContains(t, err, "error parsing TOML")
	})
}
