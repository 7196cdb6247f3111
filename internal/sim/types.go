package sim

import (
	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/belief"
	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/controller"
	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/environment"
	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/telemetry"
)

// #region record
// ControlRecord is the full outcome of one control step.
type ControlRecord struct {
	T           int
	Scenario    environment.Scenario
	LatentState float64
	Reading     float64
	Corrupted   bool
	Belief      belief.Belief
	Decision    controller.Decision
	Action      controller.Action
	Velocity    float64
}

// Fields renders the record as a telemetry key/value map.
func (r ControlRecord) Fields() map[string]any {
	return map[string]any{
		telemetry.FieldTime:            r.T,
		telemetry.FieldSwitchReal:      r.LatentState,
		telemetry.FieldSensorReading:   r.Reading,
		telemetry.FieldSwitchEstimated: r.Belief.Estimate,
		telemetry.FieldUncertainty:     r.Belief.Uncertainty,
		telemetry.FieldAnomaly:         r.Belief.AnomalyDetected,
		telemetry.FieldCorrupted:       r.Corrupted,
		telemetry.FieldOverridden:      r.Decision.Overridden,
		telemetry.FieldAction:          string(r.Action),
		telemetry.FieldReason:          r.Decision.Reason,
		telemetry.FieldEFEMaintain:     r.Decision.Scores.Maintain,
		telemetry.FieldEFEEpistemic:    r.Decision.Scores.EpistemicSlow,
		telemetry.FieldEFEPragmatic:    r.Decision.Scores.PragmaticStop,
		telemetry.FieldTrainVelocity:   r.Velocity,
	}
}

// #endregion record

// #region summary
// Summary aggregates a run.
type Summary struct {
	Scenario      environment.Scenario
	Steps         int
	Actions       map[controller.Action]int
	Anomalies     int
	Overrides     int
	Corrupted     int
	FirstOverride int // -1 when the override never fired
	MeanVelocity  float64
}

// Summarize counts actions, anomalies and overrides over records.
func Summarize(records []ControlRecord) Summary {
	s := Summary{
		Actions:       make(map[controller.Action]int, len(controller.Actions())),
		FirstOverride: -1,
	}
	for _, a := range controller.Actions() {
		s.Actions[a] = 0
	}
	var velocity float64
	for _, r := range records {
		if s.Scenario == "" {
			s.Scenario = r.Scenario
		}
		s.Steps++
		s.Actions[r.Action]++
		velocity += r.Velocity
		if r.Belief.AnomalyDetected {
			s.Anomalies++
		}
		if r.Corrupted {
			s.Corrupted++
		}
		if r.Decision.Overridden {
			s.Overrides++
			if s.FirstOverride < 0 {
				s.FirstOverride = r.T
			}
		}
	}
	if s.Steps > 0 {
		s.MeanVelocity = velocity / float64(s.Steps)
	}
	return s
}

// #endregion summary
