// Package results persists per-query plan selection records and evaluates
// them against a replay dataset.
package results

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/planbandit/planbandit/bandit"
	"github.com/planbandit/planbandit/bandit/replay"
)

// CSV column headers for result tables.
var resultColumns = []string{
	"query_index", "selection", "exec_latency", "train_time", "inf_time", "preprocess_time", "total",
}

// WriteCSV writes one row per record. Paths ending in ".zst" are compressed.
func WriteCSV(path string, records []bandit.Record) (err error) {
	out, err := replay.CreateTable(path)
	if err != nil {
		return fmt.Errorf("creating results file: %w", err)
	}
	defer func() {
		if cerr := out.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("closing results file: %w", cerr)
		}
	}()

	writer := csv.NewWriter(out)
	if err := writer.Write(resultColumns); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}
	for _, r := range records {
		row := []string{
			strconv.Itoa(r.QueryIndex),
			strconv.Itoa(r.Arm),
			formatFloat(r.ExecLatency),
			formatFloat(r.TrainTime),
			formatFloat(r.InferenceTime),
			formatFloat(r.PreprocessTime),
			formatFloat(r.Total()),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("writing CSV row %d: %w", r.QueryIndex, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// ReadCSV reads a results table written by WriteCSV. The derived total column
// is ignored.
func ReadCSV(path string) ([]bandit.Record, error) {
	in, err := replay.OpenTable(path)
	if err != nil {
		return nil, fmt.Errorf("opening results file: %w", err)
	}
	defer func() { _ = in.Close() }()

	reader := csv.NewReader(in)
	if _, err := reader.Read(); err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	var records []bandit.Record
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV row: %w", err)
		}
		if len(row) < len(resultColumns)-1 {
			return nil, fmt.Errorf("CSV row has %d columns, expected %d", len(row), len(resultColumns))
		}
		r, err := parseRecord(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", len(records), err)
		}
		records = append(records, r)
	}
	return records, nil
}

func parseRecord(row []string) (bandit.Record, error) {
	var r bandit.Record
	var err error
	if r.QueryIndex, err = strconv.Atoi(row[0]); err != nil {
		return r, fmt.Errorf("query_index: %w", err)
	}
	if r.Arm, err = strconv.Atoi(row[1]); err != nil {
		return r, fmt.Errorf("selection: %w", err)
	}
	fields := []*float64{&r.ExecLatency, &r.TrainTime, &r.InferenceTime, &r.PreprocessTime}
	for i, dst := range fields {
		if *dst, err = strconv.ParseFloat(row[i+2], 64); err != nil {
			return r, fmt.Errorf("%s: %w", resultColumns[i+2], err)
		}
	}
	return r, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
