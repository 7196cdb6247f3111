package store

import "time"

// #region run
// Run describes one simulation run: enough to reproduce it exactly.
type Run struct {
	RunID      string
	Scenario   string
	Seed       uint64
	Horizon    int
	ConfigJSON string
	CreatedAt  time.Time
}

// #endregion run

// #region record
// Record is one persisted control step.
type Record struct {
	RunID        string
	T            int
	LatentState  float64
	Reading      float64
	Estimate     float64
	Uncertainty  float64
	Anomaly      bool
	Corrupted    bool
	Overridden   bool
	Action       string
	EFEMaintain  float64
	EFEEpistemic float64
	EFEPragmatic float64
	Velocity     float64
	Reason       string
}

// #endregion record

// #region run-summary
// RunWithCounts pairs a run with aggregate counts over its records.
type RunWithCounts struct {
	Run
	Steps     int
	Anomalies int
	Stops     int
}

// #endregion run-summary
