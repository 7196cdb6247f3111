package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id       TEXT PRIMARY KEY,
	scenario     TEXT NOT NULL,
	seed         INTEGER NOT NULL,
	horizon      INTEGER NOT NULL,
	config_json  TEXT NOT NULL,
	created_at   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS control_records (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id        TEXT NOT NULL,
	t             INTEGER NOT NULL,
	latent_state  REAL NOT NULL,
	reading       REAL NOT NULL,
	estimate      REAL NOT NULL,
	uncertainty   REAL NOT NULL,
	anomaly       INTEGER NOT NULL,
	corrupted     INTEGER NOT NULL,
	overridden    INTEGER NOT NULL,
	action        TEXT NOT NULL,
	efe_maintain  REAL,
	efe_epistemic REAL,
	efe_pragmatic REAL,
	velocity      REAL NOT NULL,
	reason        TEXT,
	UNIQUE(run_id, t),
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);

CREATE INDEX IF NOT EXISTS idx_records_run ON control_records(run_id);
`

// #endregion schema

// #region store-struct
// Store persists runs and their control records in SQLite.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// One connection: pragmas are per-connection and concurrent runs
	// (sim.Compare, the collector) serialize their writes here.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// #endregion constructor

// #region close
// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// #endregion close

// #region runs
// CreateRun inserts a run, assigning a fresh run ID and creation time.
func (s *Store) CreateRun(run Run) (Run, error) {
	run.RunID = uuid.New().String()
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.Exec(
		`INSERT INTO runs (run_id, scenario, seed, horizon, config_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		run.RunID, run.Scenario, int64(run.Seed), run.Horizon, run.ConfigJSON,
		run.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return Run{}, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// GetRun retrieves a run by ID.
func (s *Store) GetRun(id string) (Run, error) {
	row := s.db.QueryRow(
		`SELECT run_id, scenario, seed, horizon, config_json, created_at
		 FROM runs WHERE run_id = ?`, id,
	)
	run, err := scanRun(row)
	if err != nil {
		return Run{}, fmt.Errorf("get run %s: %w", id, err)
	}
	return run, nil
}

// LatestRun returns the most recently created run.
func (s *Store) LatestRun() (Run, error) {
	row := s.db.QueryRow(
		`SELECT run_id, scenario, seed, horizon, config_json, created_at
		 FROM runs ORDER BY created_at DESC LIMIT 1`,
	)
	run, err := scanRun(row)
	if err != nil {
		return Run{}, fmt.Errorf("latest run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs with per-run record counts.
func (s *Store) ListRuns(limit int) ([]RunWithCounts, error) {
	rows, err := s.db.Query(
		`SELECT r.run_id, r.scenario, r.seed, r.horizon, r.config_json, r.created_at,
		        COUNT(c.id),
		        COALESCE(SUM(c.anomaly), 0),
		        COALESCE(SUM(CASE WHEN c.action = 'pragmatic_stop' THEN 1 ELSE 0 END), 0)
		 FROM runs r LEFT JOIN control_records c ON c.run_id = r.run_id
		 GROUP BY r.run_id
		 ORDER BY r.created_at DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunWithCounts
	for rows.Next() {
		var rc RunWithCounts
		var seed int64
		var createdStr string
		if err := rows.Scan(&rc.RunID, &rc.Scenario, &seed, &rc.Horizon, &rc.ConfigJSON, &createdStr,
			&rc.Steps, &rc.Anomalies, &rc.Stops); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		rc.Seed = uint64(seed)
		rc.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		runs = append(runs, rc)
	}
	return runs, rows.Err()
}

func scanRun(row *sql.Row) (Run, error) {
	var run Run
	var seed int64
	var createdStr string
	if err := row.Scan(&run.RunID, &run.Scenario, &seed, &run.Horizon, &run.ConfigJSON, &createdStr); err != nil {
		return Run{}, err
	}
	run.Seed = uint64(seed)
	run.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	return run, nil
}

// #endregion runs

// #region records
// AppendRecord writes one control step for an existing run.
func (s *Store) AppendRecord(rec Record) error {
	_, err := s.db.Exec(
		`INSERT INTO control_records (run_id, t, latent_state, reading, estimate, uncertainty,
		   anomaly, corrupted, overridden, action, efe_maintain, efe_epistemic, efe_pragmatic, velocity, reason)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.T, rec.LatentState, rec.Reading, rec.Estimate, rec.Uncertainty,
		boolInt(rec.Anomaly), boolInt(rec.Corrupted), boolInt(rec.Overridden), rec.Action,
		rec.EFEMaintain, rec.EFEEpistemic, rec.EFEPragmatic, rec.Velocity, nullIfEmpty(rec.Reason),
	)
	if err != nil {
		return fmt.Errorf("append record t=%d: %w", rec.T, err)
	}
	return nil
}

// ListRecords returns every record of a run ordered by time step.
func (s *Store) ListRecords(runID string) ([]Record, error) {
	rows, err := s.db.Query(
		`SELECT run_id, t, latent_state, reading, estimate, uncertainty, anomaly, corrupted, overridden,
		        action, efe_maintain, efe_epistemic, efe_pragmatic, velocity, reason
		 FROM control_records WHERE run_id = ? ORDER BY t ASC`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		var anomaly, corrupted, overridden int
		var efeM, efeE, efeP sql.NullFloat64
		var reason sql.NullString
		if err := rows.Scan(&rec.RunID, &rec.T, &rec.LatentState, &rec.Reading, &rec.Estimate, &rec.Uncertainty,
			&anomaly, &corrupted, &overridden, &rec.Action, &efeM, &efeE, &efeP, &rec.Velocity, &reason); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec.Anomaly = anomaly != 0
		rec.Corrupted = corrupted != 0
		rec.Overridden = overridden != 0
		rec.EFEMaintain = efeM.Float64
		rec.EFEEpistemic = efeE.Float64
		rec.EFEPragmatic = efeP.Float64
		if reason.Valid {
			rec.Reason = reason.String
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// #endregion records

// #region helpers
func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
