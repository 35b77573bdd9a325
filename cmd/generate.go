package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/planbandit/planbandit/bandit"
	"github.com/planbandit/planbandit/bandit/replay"
)

var (
	genArms     int
	genQueries  int
	genFeatures int
	genSeed     int64
	genBaseCost float64
	genNoise    float64
	genSkew     float64
	genOut      string
	genCompress bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write a synthetic replay dataset",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := replay.GenerateConfig{
			Arms:     genArms,
			Queries:  genQueries,
			Features: genFeatures,
			BaseCost: genBaseCost,
			Noise:    genNoise,
			ArmSkew:  genSkew,
		}
		header, err := generateDataset(cfg, genSeed, genOut, genCompress)
		if err != nil {
			logrus.Fatalf("generate failed: %v", err)
		}
		fmt.Println(header)
	},
}

// generateDataset draws a dataset from the generator subsystem of seed and
// writes it under dir. Returns the dataset.yaml path.
func generateDataset(cfg replay.GenerateConfig, seed int64, dir string, compressed bool) (string, error) {
	rng := bandit.NewPartitionedRNG(bandit.NewRunKey(seed)).ForSubsystem(bandit.SubsystemGenerator)
	latencies, plans, err := replay.Generate(cfg, rng)
	if err != nil {
		return "", err
	}
	spec := replay.DatasetSpec{
		Version:     "1",
		Name:        fmt.Sprintf("synthetic-%da-%dq", cfg.Arms, cfg.Queries),
		TimeUnit:    "ms",
		ScaleFactor: 1000,
		Seed:        &seed,
	}
	if compressed {
		spec.Latencies = "latencies.csv" + replay.ZstdSuffix
		spec.Plans = "plans.csv" + replay.ZstdSuffix
	}
	header, err := replay.WriteDataset(dir, spec, latencies, plans)
	if err != nil {
		return "", err
	}
	logrus.Infof("Generated %d arms x %d queries (%d features) into %s", cfg.Arms, cfg.Queries, cfg.Features, dir)
	return header, nil
}

func init() {
	d := replay.DefaultGenerateConfig()
	generateCmd.Flags().IntVar(&genArms, "arms", d.Arms, "Number of candidate plans per query")
	generateCmd.Flags().IntVar(&genQueries, "queries", d.Queries, "Number of queries in the stream")
	generateCmd.Flags().IntVar(&genFeatures, "features", d.Features, "Plan feature dimension")
	generateCmd.Flags().Int64Var(&genSeed, "seed", bandit.DefaultConfig().Seed, "Generator seed, recorded in the dataset header")
	generateCmd.Flags().Float64Var(&genBaseCost, "base-cost", d.BaseCost, "Median plan latency in milliseconds")
	generateCmd.Flags().Float64Var(&genNoise, "noise", d.Noise, "Log-normal latency noise stddev")
	generateCmd.Flags().Float64Var(&genSkew, "arm-skew", d.ArmSkew, "Per-arm feature offset stddev")
	generateCmd.Flags().StringVar(&genOut, "out", "dataset", "Output directory")
	generateCmd.Flags().BoolVar(&genCompress, "compress", false, "Write zstd-compressed tables")

	rootCmd.AddCommand(generateCmd)
}
