package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/planbandit/planbandit/bandit"
	"github.com/planbandit/planbandit/bandit/replay"
	"github.com/planbandit/planbandit/bandit/results"
)

var (
	evalDataset string
	evalResults string
	evalScale   float64
	evalDriver  string
	evalDSN     string
	evalRunID   string
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Compare a run's selections against the best and baseline plans",
	Run: func(cmd *cobra.Command, args []string) {
		ds, err := replay.LoadDataset(evalDataset)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		records, err := loadRecords(evalResults, SQLConfig{Driver: evalDriver, DSN: evalDSN}, evalRunID)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		scale := ds.Spec.ScaleFactor
		if evalScale > 0 {
			scale = evalScale
		}
		ev, err := results.Evaluate(records, ds.Latencies, scale)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		printEvaluation(os.Stdout, ev)
	},
}

// loadRecords reads records from a results CSV, or from a SQL sink when a
// run ID is given.
func loadRecords(path string, sqlCfg SQLConfig, runID string) ([]bandit.Record, error) {
	if runID == "" {
		if path == "" {
			return nil, fmt.Errorf("either --results or --run-id is required")
		}
		return results.ReadCSV(path)
	}
	if !sqlCfg.Enabled() {
		return nil, fmt.Errorf("--run-id requires --sql-dsn")
	}
	sink, err := results.OpenSQLSink(sqlCfg.Driver, sqlCfg.DSN)
	if err != nil {
		return nil, err
	}
	defer func() { _ = sink.Close() }()
	records, err := sink.LoadRun(runID)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		runs, _ := sink.Runs()
		return nil, fmt.Errorf("run %s not found in sink (known runs: %v)", runID, runs)
	}
	return records, nil
}

func printEvaluation(w io.Writer, ev *results.Evaluation) {
	fmt.Fprintln(w, "=== Evaluation ===")
	fmt.Fprintf(w, "Queries              : %d\n", ev.Queries)
	if ev.Queries == 0 {
		return
	}
	fmt.Fprintf(w, "Optimal Selections   : %d (%.1f%%)\n", ev.OptimalCount, 100*float64(ev.OptimalCount)/float64(ev.Queries))
	fmt.Fprintf(w, "Best (min)           : %.3f\n", ev.CumBest[ev.Queries-1])
	fmt.Fprintf(w, "Baseline (min)       : %.3f\n", ev.CumBaseline[ev.Queries-1])
	fmt.Fprintf(w, "Selected (min)       : %.3f\n", ev.CumSelected[ev.Queries-1])
	fmt.Fprintf(w, "Overhead (s)         : %.3f\n", ev.Overhead)
	fmt.Fprintf(w, "Selected + Overhead  : %.3f s\n", ev.Total())
}

func init() {
	evaluateCmd.Flags().StringVar(&evalDataset, "dataset", "", "Path to dataset.yaml")
	evaluateCmd.Flags().StringVar(&evalResults, "results", "", "Path to results.csv or results.csv.zst")
	evaluateCmd.Flags().Float64Var(&evalScale, "scale-factor", 0, "Latency divisor (0 uses the dataset header)")
	evaluateCmd.Flags().StringVar(&evalDriver, "sql-driver", "sqlite", "Result sink driver (sqlite, mysql)")
	evaluateCmd.Flags().StringVar(&evalDSN, "sql-dsn", "", "Result sink DSN")
	evaluateCmd.Flags().StringVar(&evalRunID, "run-id", "", "Load this run from the result sink instead of --results")
	_ = evaluateCmd.MarkFlagRequired("dataset")

	rootCmd.AddCommand(evaluateCmd)
}
