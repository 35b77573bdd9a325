// Package replay loads and generates replay datasets: a YAML header naming a
// latency table and a plan table, both CSV (optionally zstd-compressed).
package replay

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/planbandit/planbandit/bandit"
)

// DatasetSpec is the dataset.yaml header.
type DatasetSpec struct {
	Version     string  `yaml:"version"`
	Name        string  `yaml:"name"`
	TimeUnit    string  `yaml:"time_unit"`    // unit of raw latencies, e.g. "ms"
	ScaleFactor float64 `yaml:"scale_factor"` // divisor turning raw latencies into seconds
	Latencies   string  `yaml:"latencies"`    // path relative to the header
	Plans       string  `yaml:"plans"`        // path relative to the header
	Seed        *int64  `yaml:"seed,omitempty"`
}

// Validate checks required fields.
func (s *DatasetSpec) Validate() error {
	if s.Latencies == "" {
		return fmt.Errorf("dataset: latencies path is required")
	}
	if s.Plans == "" {
		return fmt.Errorf("dataset: plans path is required")
	}
	if s.ScaleFactor < 0 {
		return fmt.Errorf("dataset: scale_factor must be non-negative, got %v", s.ScaleFactor)
	}
	return nil
}

// Dataset is a loaded replay dataset.
type Dataset struct {
	Spec      DatasetSpec
	Dir       string
	Latencies *bandit.LatencyTable
	Plans     *bandit.PlanTable
}

// LoadDatasetSpec parses a dataset header with strict field checking.
func LoadDatasetSpec(path string) (*DatasetSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading dataset header: %w", err)
	}
	var spec DatasetSpec
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&spec); err != nil {
		return nil, fmt.Errorf("parsing dataset header: %w", err)
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}

// LoadDataset reads the header at path and the two tables it names.
func LoadDataset(path string) (*Dataset, error) {
	spec, err := LoadDatasetSpec(path)
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(path)
	latencies, err := LoadLatencyTable(resolve(dir, spec.Latencies))
	if err != nil {
		return nil, err
	}
	plans, err := LoadPlans(resolve(dir, spec.Plans), latencies.Arms(), latencies.Len())
	if err != nil {
		return nil, err
	}
	return &Dataset{Spec: *spec, Dir: dir, Latencies: latencies, Plans: plans}, nil
}

// WriteDataset exports both tables into dir and writes dir/dataset.yaml
// pointing at them. Returns the header path.
func WriteDataset(dir string, spec DatasetSpec, latencies *bandit.LatencyTable, plans bandit.PlanStore) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating dataset dir: %w", err)
	}
	if spec.Latencies == "" {
		spec.Latencies = "latencies.csv"
	}
	if spec.Plans == "" {
		spec.Plans = "plans.csv"
	}
	if err := ExportLatencyTable(latencies, resolve(dir, spec.Latencies)); err != nil {
		return "", err
	}
	if err := ExportPlans(plans, resolve(dir, spec.Plans)); err != nil {
		return "", err
	}
	data, err := yaml.Marshal(&spec)
	if err != nil {
		return "", fmt.Errorf("marshaling dataset header: %w", err)
	}
	headerPath := filepath.Join(dir, "dataset.yaml")
	if err := os.WriteFile(headerPath, data, 0o644); err != nil {
		return "", fmt.Errorf("writing dataset header: %w", err)
	}
	return headerPath, nil
}

func resolve(dir, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}
