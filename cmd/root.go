package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/planbandit/planbandit/bandit"
	"github.com/planbandit/planbandit/bandit/costmodel"
	"github.com/planbandit/planbandit/bandit/replay"
	"github.com/planbandit/planbandit/bandit/results"
	"github.com/planbandit/planbandit/bandit/trace"
	"github.com/planbandit/planbandit/internal/uploader"
)

var (
	// CLI flags for the run command
	datasetPath string  // Path to dataset.yaml
	configPath  string  // Optional run config YAML
	lookBack    int     // Trailing window size in queries
	samples     int     // Training samples drawn per step
	freq        int     // Chunk size in queries
	seed        int64   // Master seed
	modelKind   string  // Cost model name
	outDir      string  // Parent directory for run directories
	compress    bool    // Write results.csv.zst instead of results.csv
	traceLevel  string  // Decision trace verbosity
	sqlitePath  string  // Shorthand for --sql-driver sqlite --sql-dsn <path>
	sqlDriver   string  // database/sql driver for the result sink
	sqlDSN      string  // DSN for the result sink
	logLevel    string  // Log verbosity level
	scaleFlag   float64 // Overrides the dataset scale factor when > 0
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "planbandit",
	Short: "Replay contextual-bandit query plan selection",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			return fmt.Errorf("invalid log level %q", logLevel)
		}
		logrus.SetLevel(level)
		return nil
	},
}

// runCmd replays a dataset through the optimizer and writes a run directory.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Replay a dataset through the plan selector",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := defaultRunConfig()
		if configPath != "" {
			var err error
			if cfg, err = loadRunConfig(configPath); err != nil {
				logrus.Fatalf("%v", err)
			}
		}
		applyRunFlags(cmd, &cfg)

		outcome, err := runReplay(cmd.Context(), cfg, datasetPath, scaleFlag, os.Stdout)
		if err != nil {
			logrus.Fatalf("run failed: %v", err)
		}
		logrus.Infof("Run %s complete: %s", outcome.RunID, outcome.Dir)
	},
}

// runOutcome describes where a finished run was persisted.
type runOutcome struct {
	RunID     string
	Dir       string
	Records   []bandit.Record
	Result    *bandit.RunResult
	Uploaded  []string
	SQLStored bool
}

// runReplay loads the dataset, runs the optimizer to completion and persists
// the results. Metrics are printed to stdout.
func runReplay(ctx context.Context, cfg RunConfig, dataset string, scaleOverride float64, stdout io.Writer) (*runOutcome, error) {
	if dataset == "" {
		return nil, fmt.Errorf("--dataset is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ds, err := replay.LoadDataset(dataset)
	if err != nil {
		return nil, err
	}
	scale := ds.Spec.ScaleFactor
	if scaleOverride > 0 {
		scale = scaleOverride
	}
	bcfg := cfg.BanditConfig(ds.Spec.Seed, scale)
	logrus.Infof("Starting replay of %s: arms=%d queries=%d freq=%d look_back=%d samples=%d seed=%d model=%s",
		dataset, ds.Latencies.Arms(), ds.Latencies.Len(), bcfg.Freq, bcfg.LookBack, bcfg.Samples, bcfg.Seed, cfg.Model.Kind)

	rngs := bandit.NewPartitionedRNG(bandit.NewRunKey(bcfg.Seed))
	norm, err := costmodel.FitNormalizer(ds.Plans)
	if err != nil {
		return nil, err
	}
	builder := costmodel.NewFeatureBuilder(norm)
	model, err := costmodel.New(cfg.Model, rngs.ForSubsystem(bandit.SubsystemModel))
	if err != nil {
		return nil, err
	}

	opts := []bandit.Option{bandit.WithRand(rngs.ForSubsystem(bandit.SubsystemWindow))}
	if cfg.TraceLevel != "" && cfg.TraceLevel != string(trace.TraceLevelNone) {
		opts = append(opts, bandit.WithTrace(trace.NewRunTrace(trace.TraceConfig{Level: trace.TraceLevel(cfg.TraceLevel)})))
	}
	opt, err := bandit.NewOptimizer(bcfg, ds.Plans, ds.Latencies, opts...)
	if err != nil {
		return nil, err
	}

	res, err := opt.Run(model, builder)
	if err != nil {
		return nil, err
	}
	if res.Exhausted {
		logrus.Warnf("sample schedule exhausted after %d of %d queries", len(res.Selections), ds.Latencies.Len())
	}
	res.Metrics.Print(stdout)

	var ts *trace.TraceSummary
	if res.Trace != nil {
		ts = trace.Summarize(res.Trace)
		fmt.Fprintf(stdout, "Decisions: %d, optimal rate %.3f, mean regret %.4f, max regret %.4f, arms used %d\n",
			ts.TotalDecisions, ts.OptimalRate(), ts.MeanRegret, ts.MaxRegret, ts.UniqueArms)
	}

	records, err := bandit.BuildRecords(res, ds.Latencies, bcfg.ScaleFactor)
	if err != nil {
		return nil, err
	}

	out := &runOutcome{RunID: results.NewRunID(), Records: records, Result: res}
	modelName := cfg.Model.Kind
	if modelName == "" {
		modelName = "ridge"
	}
	summary := results.NewRunSummary(out.RunID, dataset, modelName, bcfg, res, ts)
	if out.Dir, err = results.WriteRunDir(cfg.Output.Dir, summary, records, cfg.Output.Compress); err != nil {
		return nil, err
	}
	if err := writeEffectiveConfig(out.Dir, cfg); err != nil {
		return nil, err
	}

	if cfg.SQL.Enabled() {
		if err := storeSQL(cfg.SQL, out.RunID, records); err != nil {
			return nil, err
		}
		out.SQLStored = true
	}

	ups, err := uploader.New(cfg.Storage)
	if err != nil {
		return nil, err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if out.Uploaded, err = uploadRun(ctx, ups, out.RunID, out.Dir); err != nil {
		return nil, err
	}
	return out, nil
}

// uploadRun publishes dir to every enabled target and returns their URLs.
func uploadRun(ctx context.Context, ups []uploader.Uploader, runID, dir string) ([]string, error) {
	var urls []string
	for _, up := range ups {
		if !up.Enabled() {
			logrus.Debugf("Skipping disabled upload target %T", up)
			continue
		}
		url, err := up.UploadDir(ctx, dir)
		if err != nil {
			return nil, err
		}
		logrus.Infof("Uploaded run %s to %s", runID, url)
		urls = append(urls, url)
	}
	return urls, nil
}

func storeSQL(cfg SQLConfig, runID string, records []bandit.Record) error {
	if cfg.Driver == "sqlite" {
		if err := os.MkdirAll(filepath.Dir(cfg.DSN), 0o755); err != nil {
			return fmt.Errorf("creating sqlite dir: %w", err)
		}
	}
	sink, err := results.OpenSQLSink(cfg.Driver, cfg.DSN)
	if err != nil {
		return err
	}
	defer func() {
		if err := sink.Close(); err != nil {
			logrus.Warnf("closing sql sink: %v", err)
		}
	}()
	if err := sink.WriteRun(runID, records); err != nil {
		return err
	}
	logrus.Infof("Stored %d records for run %s in %s sink", len(records), runID, cfg.Driver)
	return nil
}

// registerRunFlags binds the run flags to cmd.
func registerRunFlags(cmd *cobra.Command) {
	defaults := defaultRunConfig()
	cmd.Flags().StringVar(&datasetPath, "dataset", "", "Path to dataset.yaml")
	cmd.Flags().StringVar(&configPath, "config", "", "Run config YAML; flags override its values")
	cmd.Flags().Float64Var(&scaleFlag, "scale-factor", 0, "Latency divisor for reporting (0 uses the dataset header)")

	// Window parameters
	cmd.Flags().IntVar(&lookBack, "look-back", defaults.Optimizer.LookBack, "Trailing window size in queries")
	cmd.Flags().IntVar(&samples, "samples", defaults.Optimizer.Samples, "Training samples drawn per scheduling step")
	cmd.Flags().IntVar(&freq, "freq", defaults.Optimizer.Freq, "Queries selected per chunk")
	cmd.Flags().Int64Var(&seed, "seed", bandit.DefaultConfig().Seed, "Master seed for the sample schedule and model")

	// Model and tracing
	cmd.Flags().StringVar(&modelKind, "model", defaults.Model.Kind, "Cost model (ridge, sgd, oracle)")
	cmd.Flags().StringVar(&traceLevel, "trace-level", defaults.TraceLevel, "Decision trace level (none, decisions)")

	// Output
	cmd.Flags().StringVar(&outDir, "out", defaults.Output.Dir, "Directory that receives <run_id>/")
	cmd.Flags().BoolVar(&compress, "compress", false, "Write zstd-compressed results")
	cmd.Flags().StringVar(&sqlitePath, "sqlite", "", "Also store records in this sqlite database")
	cmd.Flags().StringVar(&sqlDriver, "sql-driver", defaults.SQL.Driver, "Result sink driver (sqlite, mysql)")
	cmd.Flags().StringVar(&sqlDSN, "sql-dsn", "", "Result sink DSN")
	_ = cmd.MarkFlagRequired("dataset")
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "info", "Log level (trace, debug, info, warn, error, fatal, panic)")

	registerRunFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}
