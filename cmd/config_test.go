package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadRunConfig_OverlaysDefaults(t *testing.T) {
	// GIVEN a config that sets only some fields
	path := writeFile(t, "run.yaml", `
optimizer:
  freq: 50
  seed: 7
model:
  kind: sgd
  learning_rate: 0.05
  epochs: 10
sql:
  dsn: runs.db
storage:
  s3:
    bucket: results
    prefix: planbandit
`)

	// WHEN loaded
	cfg, err := loadRunConfig(path)
	require.NoError(t, err)

	// THEN set fields override and unset fields keep their defaults
	assert.Equal(t, 50, cfg.Optimizer.Freq)
	assert.Equal(t, defaultRunConfig().Optimizer.LookBack, cfg.Optimizer.LookBack)
	require.NotNil(t, cfg.Optimizer.Seed)
	assert.Equal(t, int64(7), *cfg.Optimizer.Seed)
	assert.Equal(t, "sgd", cfg.Model.Kind)
	assert.True(t, cfg.Model.LogTarget, "log_target default must survive a partial model section")
	assert.Equal(t, "sqlite", cfg.SQL.Driver)
	assert.True(t, cfg.SQL.Enabled())
	assert.Equal(t, "results", cfg.Storage.S3.Bucket)
	assert.False(t, cfg.Storage.S3.Enabled)
	assert.NoError(t, cfg.Validate())
}

func TestLoadRunConfig_RejectsUnknownFields(t *testing.T) {
	path := writeFile(t, "run.yaml", "optimizer:\n  frequency: 50\n")
	_, err := loadRunConfig(path)
	assert.ErrorContains(t, err, "frequency")
}

func TestRunConfig_Validate(t *testing.T) {
	cfg := defaultRunConfig()
	cfg.TraceLevel = "verbose"
	assert.ErrorContains(t, cfg.Validate(), "trace level")

	cfg = defaultRunConfig()
	cfg.Model.Kind = "forest"
	assert.Error(t, cfg.Validate())

	cfg = defaultRunConfig()
	cfg.SQL = SQLConfig{Driver: "postgres", DSN: "x"}
	assert.ErrorContains(t, cfg.Validate(), "sql driver")
}

func TestRunConfig_BanditConfigSeedPrecedence(t *testing.T) {
	headerSeed, configSeed := int64(11), int64(22)

	cfg := defaultRunConfig()
	assert.Equal(t, int64(42), cfg.BanditConfig(nil, 0).Seed, "default seed")
	assert.Equal(t, headerSeed, cfg.BanditConfig(&headerSeed, 0).Seed, "dataset header seed")

	cfg.Optimizer.Seed = &configSeed
	assert.Equal(t, configSeed, cfg.BanditConfig(&headerSeed, 0).Seed, "config seed wins")
}

func TestRunConfig_BanditConfigScaleFactor(t *testing.T) {
	cfg := defaultRunConfig()
	assert.Equal(t, 1000.0, cfg.BanditConfig(nil, 0).ScaleFactor)
	assert.Equal(t, 1.0, cfg.BanditConfig(nil, 1).ScaleFactor)
}

func TestApplyRunFlags_OnlyChangedFlagsOverride(t *testing.T) {
	// GIVEN a config file value and a fresh run command
	cfg := defaultRunConfig()
	cfg.Optimizer.Freq = 50
	cfg.Optimizer.LookBack = 300
	cmd := &cobra.Command{Use: "run"}
	registerRunFlags(cmd)

	// WHEN only --look-back and --sqlite are passed
	require.NoError(t, cmd.Flags().Set("look-back", "200"))
	require.NoError(t, cmd.Flags().Set("sqlite", "out/runs.db"))
	applyRunFlags(cmd, &cfg)

	// THEN look-back is overridden and freq keeps the config-file value
	assert.Equal(t, 200, cfg.Optimizer.LookBack)
	assert.Equal(t, 50, cfg.Optimizer.Freq)
	assert.Nil(t, cfg.Optimizer.Seed)
	assert.Equal(t, SQLConfig{Driver: "sqlite", DSN: "out/runs.db"}, cfg.SQL)
}

func TestApplyRunFlags_SeedFlag(t *testing.T) {
	cfg := defaultRunConfig()
	cmd := &cobra.Command{Use: "run"}
	registerRunFlags(cmd)

	require.NoError(t, cmd.Flags().Set("seed", "0"))
	applyRunFlags(cmd, &cfg)

	require.NotNil(t, cfg.Optimizer.Seed)
	assert.Equal(t, int64(0), *cfg.Optimizer.Seed)
}

func TestRunConfig_RedactsCredentials(t *testing.T) {
	cfg := defaultRunConfig()
	cfg.Storage.S3.AccessKeyID = "AKIA"
	cfg.Storage.S3.SecretAccessKey = "secret"
	cfg.SQL = SQLConfig{Driver: "mysql", DSN: "user:pw@tcp(db:3306)/runs"}

	dir := t.TempDir()
	require.NoError(t, writeEffectiveConfig(dir, cfg))
	data, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)

	assert.Contains(t, string(data), "secret_access_key: REDACTED")
	assert.Contains(t, string(data), "access_key_id: REDACTED")
	assert.NotContains(t, string(data), "user:pw")
	assert.NotContains(t, string(data), "AKIA")
	// The original is untouched
	assert.Equal(t, "secret", cfg.Storage.S3.SecretAccessKey)
	assert.Equal(t, "AKIA", cfg.Storage.S3.AccessKeyID)
}
