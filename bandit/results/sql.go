package results

import (
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"

	"github.com/planbandit/planbandit/bandit"
)

// ValidSQLDrivers is the set of database/sql drivers a SQLSink accepts.
var ValidSQLDrivers = map[string]bool{"sqlite": true, "mysql": true}

const createRecordsTable = `
CREATE TABLE IF NOT EXISTS plan_selections (
	run_id          VARCHAR(64) NOT NULL,
	query_index     INTEGER     NOT NULL,
	arm             INTEGER     NOT NULL,
	exec_latency    DOUBLE      NOT NULL,
	train_time      DOUBLE      NOT NULL,
	inf_time        DOUBLE      NOT NULL,
	preprocess_time DOUBLE      NOT NULL,
	PRIMARY KEY (run_id, query_index)
)`

// SQLSink stores result records in a SQL database, keyed by run ID.
// Works with the embedded sqlite driver and with MySQL-compatible servers.
type SQLSink struct {
	db     *sql.DB
	driver string
}

// OpenSQLSink opens dsn with driver and creates the records table if needed.
func OpenSQLSink(driver, dsn string) (*SQLSink, error) {
	if !ValidSQLDrivers[driver] {
		return nil, fmt.Errorf("unknown sql driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s sink: %w", driver, err)
	}
	if driver == "sqlite" {
		if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("configuring sqlite sink: %w", err)
		}
	}
	if _, err := db.Exec(createRecordsTable); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating records table: %w", err)
	}
	return &SQLSink{db: db, driver: driver}, nil
}

// WriteRun inserts all records of a run in one transaction.
func (s *SQLSink) WriteRun(runID string, records []bandit.Record) error {
	if strings.TrimSpace(runID) == "" {
		return fmt.Errorf("write run: empty run id")
	}
	if len(records) == 0 {
		return nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("write run %s: %w", runID, err)
	}
	stmt, err := tx.Prepare(`INSERT INTO plan_selections
		(run_id, query_index, arm, exec_latency, train_time, inf_time, preprocess_time)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("write run %s: %w", runID, err)
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range records {
		if _, err := stmt.Exec(runID, r.QueryIndex, r.Arm, r.ExecLatency, r.TrainTime, r.InferenceTime, r.PreprocessTime); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("write run %s: query %d: %w", runID, r.QueryIndex, err)
		}
	}
	return tx.Commit()
}

// LoadRun returns the records of runID ordered by query index.
func (s *SQLSink) LoadRun(runID string) ([]bandit.Record, error) {
	rows, err := s.db.Query(`SELECT query_index, arm, exec_latency, train_time, inf_time, preprocess_time
		FROM plan_selections WHERE run_id = ? ORDER BY query_index ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", runID, err)
	}
	defer func() { _ = rows.Close() }()

	var records []bandit.Record
	for rows.Next() {
		var r bandit.Record
		if err := rows.Scan(&r.QueryIndex, &r.Arm, &r.ExecLatency, &r.TrainTime, &r.InferenceTime, &r.PreprocessTime); err != nil {
			return nil, fmt.Errorf("load run %s: %w", runID, err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Runs lists the distinct run IDs in the sink.
func (s *SQLSink) Runs() ([]string, error) {
	rows, err := s.db.Query("SELECT DISTINCT run_id FROM plan_selections ORDER BY run_id")
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Close closes the underlying database.
func (s *SQLSink) Close() error {
	return s.db.Close()
}
