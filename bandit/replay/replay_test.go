package replay

import (
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planbandit/planbandit/bandit"
	"github.com/planbandit/planbandit/bandit/costmodel"
)

func smallDataset(t *testing.T) (*bandit.LatencyTable, *bandit.PlanTable) {
	t.Helper()
	cfg := GenerateConfig{Arms: 3, Queries: 25, Features: 4, BaseCost: 1000, Noise: 0.1, ArmSkew: 0.5}
	lat, plans, err := Generate(cfg, rand.New(rand.NewSource(3)))
	require.NoError(t, err)
	return lat, plans
}

func assertSameTables(t *testing.T, wantLat, gotLat *bandit.LatencyTable, wantPlans, gotPlans bandit.PlanStore) {
	t.Helper()
	require.Equal(t, wantLat.Arms(), gotLat.Arms())
	require.Equal(t, wantLat.Len(), gotLat.Len())
	for a := 0; a < wantLat.Arms(); a++ {
		for q := 0; q < wantLat.Len(); q++ {
			assert.Equal(t, wantLat.At(a, q), gotLat.At(a, q), "latency[%d][%d]", a, q)
			assert.Equal(t, wantPlans.Plan(a, q), gotPlans.Plan(a, q), "plan[%d][%d]", a, q)
		}
	}
}

func TestTables_RoundTrip(t *testing.T) {
	for _, suffix := range []string{"", ZstdSuffix} {
		t.Run("suffix="+suffix, func(t *testing.T) {
			// GIVEN a generated dataset
			lat, plans := smallDataset(t)
			dir := t.TempDir()
			latPath := filepath.Join(dir, "latencies.csv"+suffix)
			planPath := filepath.Join(dir, "plans.csv"+suffix)

			// WHEN both tables are exported and loaded back
			require.NoError(t, ExportLatencyTable(lat, latPath))
			require.NoError(t, ExportPlans(plans, planPath))
			gotLat, err := LoadLatencyTable(latPath)
			require.NoError(t, err)
			gotPlans, err := LoadPlans(planPath, gotLat.Arms(), gotLat.Len())
			require.NoError(t, err)

			// THEN every value survives bit-for-bit
			assertSameTables(t, lat, gotLat, plans, gotPlans)
		})
	}
}

func TestCompressedTable_WritesZstdFrame(t *testing.T) {
	// GIVEN the same table exported plain and compressed
	lat, _ := smallDataset(t)
	dir := t.TempDir()
	plain := filepath.Join(dir, "l.csv")
	packed := filepath.Join(dir, "l.csv"+ZstdSuffix)
	require.NoError(t, ExportLatencyTable(lat, plain))
	require.NoError(t, ExportLatencyTable(lat, packed))

	// THEN the compressed file is a zstd frame
	raw, err := os.ReadFile(packed)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(raw), 4)
	assert.Equal(t, []byte{0x28, 0xb5, 0x2f, 0xfd}, raw[:4])
	assert.True(t, IsCompressed(packed))
	assert.False(t, IsCompressed(plain))

	// AND it decodes to exactly the plain CSV bytes
	in, err := OpenTable(packed)
	require.NoError(t, err)
	defer func() { _ = in.Close() }()
	decoded, err := io.ReadAll(in)
	require.NoError(t, err)
	want, err := os.ReadFile(plain)
	require.NoError(t, err)
	assert.Equal(t, want, decoded)
}

func TestLoadLatencyTable_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"no arm columns", "query_index\n0\n"},
		{"out of order", "query_index,arm_0\n1,5\n"},
		{"bad float", "query_index,arm_0\n0,fast\n"},
		{"ragged row", "query_index,arm_0,arm_1\n0,1\n"},
		{"negative latency", "query_index,arm_0\n0,-1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "lat.csv")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))
			_, err := LoadLatencyTable(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadPlans_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing plan", "arm,query_index,f_0\n0,0,1\n"},
		{"duplicate plan", "arm,query_index,f_0\n0,0,1\n0,0,2\n"},
		{"arm out of range", "arm,query_index,f_0\n0,0,1\n3,0,1\n"},
		{"query out of range", "arm,query_index,f_0\n0,0,1\n0,9,1\n"},
		{"no feature columns", "arm,query_index\n0,0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "plans.csv")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))
			_, err := LoadPlans(path, 1, 2)
			assert.Error(t, err)
		})
	}
}

func TestLoadPlans_AnyRowOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plans.csv")
	content := "arm,query_index,f_0,f_1\n1,1,4,4.5\n0,1,2,2.5\n1,0,3,3.5\n0,0,1,1.5\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	plans, err := LoadPlans(path, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, costmodel.Features{1, 1.5}, plans.Plan(0, 0))
	assert.Equal(t, costmodel.Features{4, 4.5}, plans.Plan(1, 1))
}

func TestDataset_WriteAndLoad(t *testing.T) {
	lat, plans := smallDataset(t)
	dir := t.TempDir()
	seed := int64(3)

	header, err := WriteDataset(dir, DatasetSpec{Version: "1", Name: "small", TimeUnit: "ms", ScaleFactor: 1000, Seed: &seed}, lat, plans)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "dataset.yaml"), header)

	ds, err := LoadDataset(header)
	require.NoError(t, err)
	assert.Equal(t, "small", ds.Spec.Name)
	assert.Equal(t, "latencies.csv", ds.Spec.Latencies)
	assert.Equal(t, 1000.0, ds.Spec.ScaleFactor)
	require.NotNil(t, ds.Spec.Seed)
	assert.Equal(t, seed, *ds.Spec.Seed)
	assertSameTables(t, lat, ds.Latencies, plans, ds.Plans)
}

func TestLoadDatasetSpec_StrictFields(t *testing.T) {
	// GIVEN a header with a misspelled key
	path := filepath.Join(t.TempDir(), "dataset.yaml")
	require.NoError(t, os.WriteFile(path, []byte("latencies: l.csv\nplans: p.csv\nscale_factr: 1000\n"), 0o644))

	// THEN parsing fails instead of silently ignoring it
	_, err := LoadDatasetSpec(path)
	assert.ErrorContains(t, err, "scale_factr")
}

func TestLoadDatasetSpec_RequiresTables(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dataset.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: empty\n"), 0o644))
	_, err := LoadDatasetSpec(path)
	assert.ErrorContains(t, err, "latencies path is required")
}

func TestGenerate_Deterministic(t *testing.T) {
	cfg := DefaultGenerateConfig()
	cfg.Queries = 50

	lat1, plans1, err := Generate(cfg, rand.New(rand.NewSource(9)))
	require.NoError(t, err)
	lat2, plans2, err := Generate(cfg, rand.New(rand.NewSource(9)))
	require.NoError(t, err)

	assertSameTables(t, lat1, lat2, plans1, plans2)
	assert.Equal(t, cfg.Arms, lat1.Arms())
	assert.Equal(t, 50, lat1.Len())
	assert.Len(t, plans1.Plan(0, 0), cfg.Features)
}

func TestGenerateConfig_Validate(t *testing.T) {
	assert.NoError(t, DefaultGenerateConfig().Validate())
	for _, mutate := range []func(*GenerateConfig){
		func(c *GenerateConfig) { c.Arms = 0 },
		func(c *GenerateConfig) { c.Queries = 0 },
		func(c *GenerateConfig) { c.Features = 0 },
		func(c *GenerateConfig) { c.BaseCost = 0 },
		func(c *GenerateConfig) { c.Noise = -1 },
	} {
		cfg := DefaultGenerateConfig()
		mutate(&cfg)
		assert.Error(t, cfg.Validate())
	}
}
