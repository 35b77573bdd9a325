package replay

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/planbandit/planbandit/bandit"
	"github.com/planbandit/planbandit/bandit/costmodel"
)

// Latency tables are stored wide: one row per query, one column per arm.
//
//	query_index,arm_0,arm_1,...
//
// Plan tables are stored long: one row per (arm, query) with its feature vector.
//
//	arm,query_index,f_0,f_1,...

// ExportLatencyTable writes t as a wide CSV (zstd-compressed for ".zst" paths).
// Latencies use shortest round-trip float formatting.
func ExportLatencyTable(t *bandit.LatencyTable, path string) (err error) {
	out, err := CreateTable(path)
	if err != nil {
		return fmt.Errorf("creating latency table: %w", err)
	}
	defer func() {
		if cerr := out.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("closing latency table: %w", cerr)
		}
	}()

	writer := csv.NewWriter(out)
	header := make([]string, 0, t.Arms()+1)
	header = append(header, "query_index")
	for a := 0; a < t.Arms(); a++ {
		header = append(header, fmt.Sprintf("arm_%d", a))
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}
	row := make([]string, t.Arms()+1)
	for q := 0; q < t.Len(); q++ {
		row[0] = strconv.Itoa(q)
		for a := 0; a < t.Arms(); a++ {
			row[a+1] = strconv.FormatFloat(t.At(a, q), 'g', -1, 64)
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("writing CSV row %d: %w", q, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// LoadLatencyTable reads a wide latency CSV. Rows must appear in query order
// starting at 0, and every row must carry one latency per arm column.
func LoadLatencyTable(path string) (*bandit.LatencyTable, error) {
	in, err := OpenTable(path)
	if err != nil {
		return nil, fmt.Errorf("opening latency table: %w", err)
	}
	defer func() { _ = in.Close() }()

	reader := csv.NewReader(in)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	arms := len(header) - 1
	if arms < 1 {
		return nil, fmt.Errorf("latency table %s: header has no arm columns", path)
	}

	lat := make([][]float64, arms)
	for q := 0; ; q++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV row: %w", err)
		}
		idx, err := strconv.Atoi(row[0])
		if err != nil {
			return nil, fmt.Errorf("row %d: query_index %q: %w", q, row[0], err)
		}
		if idx != q {
			return nil, fmt.Errorf("row %d: query_index %d out of order", q, idx)
		}
		for a := 0; a < arms; a++ {
			v, err := strconv.ParseFloat(row[a+1], 64)
			if err != nil {
				return nil, fmt.Errorf("row %d: arm_%d %q: %w", q, a, row[a+1], err)
			}
			lat[a] = append(lat[a], v)
		}
	}
	return bandit.NewLatencyTable(lat)
}

// ExportPlans writes every plan in store as a long CSV. Plans must be
// costmodel.Features of identical length.
func ExportPlans(store bandit.PlanStore, path string) (err error) {
	out, err := CreateTable(path)
	if err != nil {
		return fmt.Errorf("creating plan table: %w", err)
	}
	defer func() {
		if cerr := out.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("closing plan table: %w", cerr)
		}
	}()

	first, ok := store.Plan(0, 0).(costmodel.Features)
	if !ok {
		return fmt.Errorf("plan table: unsupported plan representation %T", store.Plan(0, 0))
	}
	dim := len(first)

	writer := csv.NewWriter(out)
	header := []string{"arm", "query_index"}
	for j := 0; j < dim; j++ {
		header = append(header, fmt.Sprintf("f_%d", j))
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}
	row := make([]string, dim+2)
	for a := 0; a < store.Arms(); a++ {
		for q := 0; q < store.Len(); q++ {
			f, ok := store.Plan(a, q).(costmodel.Features)
			if !ok || len(f) != dim {
				return fmt.Errorf("plan[%d][%d]: want %d features", a, q, dim)
			}
			row[0] = strconv.Itoa(a)
			row[1] = strconv.Itoa(q)
			for j, v := range f {
				row[j+2] = strconv.FormatFloat(v, 'g', -1, 64)
			}
			if err := writer.Write(row); err != nil {
				return fmt.Errorf("writing CSV row (%d, %d): %w", a, q, err)
			}
		}
	}
	writer.Flush()
	return writer.Error()
}

// LoadPlans reads a long plan CSV into an arms x total PlanTable of
// costmodel.Features. Rows may appear in any order, but every (arm, query)
// pair must appear exactly once.
func LoadPlans(path string, arms, total int) (*bandit.PlanTable, error) {
	in, err := OpenTable(path)
	if err != nil {
		return nil, fmt.Errorf("opening plan table: %w", err)
	}
	defer func() { _ = in.Close() }()

	reader := csv.NewReader(in)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	dim := len(header) - 2
	if dim < 1 {
		return nil, fmt.Errorf("plan table %s: header has no feature columns", path)
	}

	plans := make([][]bandit.Plan, arms)
	for a := range plans {
		plans[a] = make([]bandit.Plan, total)
	}
	seen := 0
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV row: %w", err)
		}
		arm, err := strconv.Atoi(row[0])
		if err != nil || arm < 0 || arm >= arms {
			return nil, fmt.Errorf("line %d: arm %q not in [0, %d)", line, row[0], arms)
		}
		q, err := strconv.Atoi(row[1])
		if err != nil || q < 0 || q >= total {
			return nil, fmt.Errorf("line %d: query_index %q not in [0, %d)", line, row[1], total)
		}
		if plans[arm][q] != nil {
			return nil, fmt.Errorf("line %d: duplicate plan for arm %d query %d", line, arm, q)
		}
		f := make(costmodel.Features, dim)
		for j := range f {
			if f[j], err = strconv.ParseFloat(row[j+2], 64); err != nil {
				return nil, fmt.Errorf("line %d: f_%d %q: %w", line, j, row[j+2], err)
			}
		}
		plans[arm][q] = f
		seen++
	}
	if seen != arms*total {
		return nil, fmt.Errorf("plan table %s: %d plans, want %d (%d arms x %d queries)", path, seen, arms*total, arms, total)
	}
	return bandit.NewPlanTable(plans)
}
