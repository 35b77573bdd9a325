package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/planbandit/planbandit/bandit"
	"github.com/planbandit/planbandit/bandit/costmodel"
	"github.com/planbandit/planbandit/bandit/results"
	"github.com/planbandit/planbandit/bandit/trace"
	"github.com/planbandit/planbandit/internal/uploader"
)

// OptimizerConfig is the window section of a run config.
// Seed is a pointer so an unset seed can fall back to the dataset header.
type OptimizerConfig struct {
	LookBack int    `yaml:"look_back"`
	Samples  int    `yaml:"samples"`
	Freq     int    `yaml:"freq"`
	Seed     *int64 `yaml:"seed,omitempty"`
}

// SQLConfig names an optional database/sql sink for result records.
type SQLConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// Enabled reports whether a sink is configured.
func (c SQLConfig) Enabled() bool {
	return c.DSN != ""
}

// OutputConfig controls where run directories are written.
type OutputConfig struct {
	Dir      string `yaml:"dir"`
	Compress bool   `yaml:"compress"`
}

// RunConfig is the YAML file accepted by `planbandit run --config`.
// All top-level sections must be listed to satisfy KnownFields(true) strict parsing.
type RunConfig struct {
	Optimizer  OptimizerConfig  `yaml:"optimizer"`
	Model      costmodel.Config `yaml:"model"`
	TraceLevel string           `yaml:"trace_level"`
	Output     OutputConfig     `yaml:"output"`
	SQL        SQLConfig        `yaml:"sql"`
	Storage    uploader.Config  `yaml:"storage"`
}

// defaultRunConfig returns the settings used when neither a config file nor a
// flag overrides them.
func defaultRunConfig() RunConfig {
	d := bandit.DefaultConfig()
	return RunConfig{
		Optimizer: OptimizerConfig{
			LookBack: d.LookBack,
			Samples:  d.Samples,
			Freq:     d.Freq,
		},
		Model:      costmodel.DefaultConfig(),
		TraceLevel: string(trace.TraceLevelNone),
		Output:     OutputConfig{Dir: "runs"},
		SQL:        SQLConfig{Driver: "sqlite"},
	}
}

// loadRunConfig overlays the YAML file at path onto the defaults.
// Uses strict field checking: typos must cause errors.
func loadRunConfig(path string) (RunConfig, error) {
	cfg := defaultRunConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading run config: %w", err)
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing run config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the sections that are not validated downstream.
func (c RunConfig) Validate() error {
	if !trace.IsValidTraceLevel(c.TraceLevel) {
		return fmt.Errorf("unknown trace level %q", c.TraceLevel)
	}
	if err := c.Model.Validate(); err != nil {
		return err
	}
	if c.SQL.Enabled() && !results.ValidSQLDrivers[c.SQL.Driver] {
		return fmt.Errorf("unknown sql driver %q", c.SQL.Driver)
	}
	return nil
}

// BanditConfig resolves the optimizer section into a bandit.Config.
// The seed falls back to the dataset header, then to the default.
func (c RunConfig) BanditConfig(datasetSeed *int64, scaleFactor float64) bandit.Config {
	out := bandit.DefaultConfig()
	out.LookBack = c.Optimizer.LookBack
	out.Samples = c.Optimizer.Samples
	out.Freq = c.Optimizer.Freq
	switch {
	case c.Optimizer.Seed != nil:
		out.Seed = *c.Optimizer.Seed
	case datasetSeed != nil:
		out.Seed = *datasetSeed
	}
	if scaleFactor > 0 {
		out.ScaleFactor = scaleFactor
	}
	return out
}

// applyRunFlags copies explicitly set flags over cfg. Flags that were not
// Changed never override config-file values.
func applyRunFlags(cmd *cobra.Command, cfg *RunConfig) {
	flags := cmd.Flags()
	if flags.Changed("look-back") {
		cfg.Optimizer.LookBack = lookBack
	}
	if flags.Changed("samples") {
		cfg.Optimizer.Samples = samples
	}
	if flags.Changed("freq") {
		cfg.Optimizer.Freq = freq
	}
	if flags.Changed("seed") {
		s := seed
		cfg.Optimizer.Seed = &s
	}
	if flags.Changed("model") {
		cfg.Model.Kind = modelKind
	}
	if flags.Changed("trace-level") {
		cfg.TraceLevel = traceLevel
	}
	if flags.Changed("out") {
		cfg.Output.Dir = outDir
	}
	if flags.Changed("compress") {
		cfg.Output.Compress = compress
	}
	if flags.Changed("sqlite") {
		cfg.SQL = SQLConfig{Driver: "sqlite", DSN: sqlitePath}
	}
	if flags.Changed("sql-driver") {
		cfg.SQL.Driver = sqlDriver
	}
	if flags.Changed("sql-dsn") {
		cfg.SQL.DSN = sqlDSN
	}
}

// redacted returns a copy of c with credentials removed.
func (c RunConfig) redacted() RunConfig {
	out := c
	if out.Storage.S3.AccessKeyID != "" {
		out.Storage.S3.AccessKeyID = "REDACTED"
	}
	if out.Storage.S3.SecretAccessKey != "" {
		out.Storage.S3.SecretAccessKey = "REDACTED"
	}
	if out.Storage.S3.SessionToken != "" {
		out.Storage.S3.SessionToken = "REDACTED"
	}
	if out.SQL.Driver == "mysql" && out.SQL.DSN != "" {
		out.SQL.DSN = "REDACTED"
	}
	return out
}

// writeEffectiveConfig stores the resolved run config as dir/config.yaml.
func writeEffectiveConfig(dir string, cfg RunConfig) error {
	data, err := yaml.Marshal(cfg.redacted())
	if err != nil {
		return fmt.Errorf("marshaling run config: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), data, 0o644); err != nil {
		return fmt.Errorf("writing run config: %w", err)
	}
	return nil
}
