package telemetry

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"sync"

	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/store"
)

// #region sink
// Sink receives one key/value record per control step. The simulator treats
// sinks as fire-and-forget: errors are logged, never retried.
type Sink interface {
	Log(fields map[string]any) error
}

// Nop discards every record.
type Nop struct{}

func (Nop) Log(map[string]any) error { return nil }

// #endregion sink

// #region multi
// Multi fans a record out to several sinks. Every sink sees every record;
// errors are joined.
type Multi []Sink

func (m Multi) Log(fields map[string]any) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Log(fields); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// #endregion multi

// #region memory
// Memory keeps records in memory. Safe for concurrent use.
type Memory struct {
	mu      sync.Mutex
	records []map[string]any
}

func (m *Memory) Log(fields map[string]any) error {
	m.mu.Lock()
	m.records = append(m.records, maps.Clone(fields))
	m.mu.Unlock()
	return nil
}

// Records returns a copy of everything logged so far.
func (m *Memory) Records() []map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]map[string]any, len(m.records))
	copy(out, m.records)
	return out
}

// #endregion memory

// #region jsonl
// JSONLines writes each record as one JSON object per line.
type JSONLines struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewJSONLines creates a sink writing to w.
func NewJSONLines(w io.Writer) *JSONLines {
	return &JSONLines{enc: json.NewEncoder(w)}
}

func (j *JSONLines) Log(fields map[string]any) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.enc.Encode(fields); err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	return nil
}

// #endregion jsonl

// #region store-sink
// StoreSink appends records to one run in the SQLite store.
type StoreSink struct {
	store *store.Store
	runID string
}

// NewStoreSink creates a sink bound to an existing run.
func NewStoreSink(s *store.Store, runID string) *StoreSink {
	return &StoreSink{store: s, runID: runID}
}

// RunID returns the run this sink writes to.
func (s *StoreSink) RunID() string {
	return s.runID
}

func (s *StoreSink) Log(fields map[string]any) error {
	return s.store.AppendRecord(RecordFromFields(s.runID, fields))
}

// RecordFromFields maps a telemetry record onto a store row.
func RecordFromFields(runID string, fields map[string]any) store.Record {
	return store.Record{
		RunID:        runID,
		T:            Int(fields, FieldTime),
		LatentState:  Float(fields, FieldSwitchReal),
		Reading:      Float(fields, FieldSensorReading),
		Estimate:     Float(fields, FieldSwitchEstimated),
		Uncertainty:  Float(fields, FieldUncertainty),
		Anomaly:      Bool(fields, FieldAnomaly),
		Corrupted:    Bool(fields, FieldCorrupted),
		Overridden:   Bool(fields, FieldOverridden),
		Action:       String(fields, FieldAction),
		EFEMaintain:  Float(fields, FieldEFEMaintain),
		EFEEpistemic: Float(fields, FieldEFEEpistemic),
		EFEPragmatic: Float(fields, FieldEFEPragmatic),
		Velocity:     Float(fields, FieldTrainVelocity),
		Reason:       String(fields, FieldReason),
	}
}

// #endregion store-sink
