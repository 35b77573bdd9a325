package results

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/planbandit/planbandit/bandit"
	"github.com/planbandit/planbandit/bandit/trace"
)

// RunSummary is persisted as summary.yaml next to a run's results table.
type RunSummary struct {
	RunID     string `yaml:"run_id"`
	CreatedAt string `yaml:"created_at"`
	Dataset   string `yaml:"dataset"`

	LookBack int    `yaml:"look_back"`
	Samples  int    `yaml:"samples"`
	Freq     int    `yaml:"freq"`
	Seed     int64  `yaml:"seed"`
	Model    string `yaml:"model"`

	Queries       int     `yaml:"queries"`
	TrainingSteps int     `yaml:"training_steps"`
	Exhausted     bool    `yaml:"schedule_exhausted"`
	WallTimeS     float64 `yaml:"wall_time_s"`
	BestS         float64 `yaml:"best_s"`
	BaselineS     float64 `yaml:"baseline_s"`
	SelectedS     float64 `yaml:"selected_s"`
	Speedup       float64 `yaml:"speedup"`

	MeanRegret  *float64 `yaml:"mean_regret,omitempty"`
	OptimalRate *float64 `yaml:"optimal_rate,omitempty"`
}

// NewRunSummary fills a summary from a finished run. ts may be nil.
func NewRunSummary(runID, dataset, model string, cfg bandit.Config, res *bandit.RunResult, ts *trace.TraceSummary) RunSummary {
	m := res.Metrics
	s := RunSummary{
		RunID:         runID,
		CreatedAt:     time.Now().UTC().Format(time.RFC3339),
		Dataset:       dataset,
		LookBack:      cfg.LookBack,
		Samples:       cfg.Samples,
		Freq:          cfg.Freq,
		Seed:          cfg.Seed,
		Model:         model,
		Queries:       len(res.Selections),
		TrainingSteps: res.TrainingSteps,
		Exhausted:     res.Exhausted,
		WallTimeS:     res.WallTime.Seconds(),
		BestS:         m.BestTotal / m.Scale,
		BaselineS:     m.BaselineTotal / m.Scale,
		SelectedS:     m.SelectedTotal / m.Scale,
		Speedup:       m.Speedup(),
	}
	if ts != nil && ts.TotalDecisions > 0 {
		regret, rate := ts.MeanRegret, ts.OptimalRate()
		s.MeanRegret, s.OptimalRate = &regret, &rate
	}
	return s
}

// ResultsFileName returns the results table name, compressed or not.
func ResultsFileName(compress bool) string {
	if compress {
		return "results.csv.zst"
	}
	return "results.csv"
}

// WriteRunDir writes results and summary.yaml into outDir/<run_id>/ and
// returns that directory.
func WriteRunDir(outDir string, summary RunSummary, records []bandit.Record, compress bool) (string, error) {
	if summary.RunID == "" {
		return "", fmt.Errorf("write run dir: empty run id")
	}
	dir := filepath.Join(outDir, summary.RunID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating run dir: %w", err)
	}
	if err := WriteCSV(filepath.Join(dir, ResultsFileName(compress)), records); err != nil {
		return "", err
	}
	data, err := yaml.Marshal(&summary)
	if err != nil {
		return "", fmt.Errorf("marshaling run summary: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "summary.yaml"), data, 0o644); err != nil {
		return "", fmt.Errorf("writing run summary: %w", err)
	}
	return dir, nil
}
