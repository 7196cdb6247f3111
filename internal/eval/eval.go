package eval

import (
	"fmt"

	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/controller"
	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/environment"
	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/sim"
)

// Metric names.
const (
	MetricUnsafeSteps   = "unsafe_steps"
	MetricDetection     = "attack_detection"
	MetricFalseStops    = "false_stops"
	MetricAnomalies     = "anomalies"
	MetricTransitionRun = "transition_maintain"
)

// #region eval-harness
// EvalHarness judges a finished run from its control records.
type EvalHarness struct {
	config EvalConfig
}

// NewEvalHarness creates an eval harness with the given configuration.
func NewEvalHarness(config EvalConfig) *EvalHarness {
	return &EvalHarness{config: config}
}

// Run evaluates records. Only unsafe steps and attack detection can fail a
// run; the other metrics are informational.
func (h *EvalHarness) Run(records []sim.ControlRecord) EvalResult {
	var (
		unsafe, transitionMaintain int
		spoofed, detected          int
		falseStops, anomalies      int
	)
	for _, r := range records {
		inTransition := r.LatentState == environment.Transition
		if r.Action == controller.Maintain && inTransition {
			transitionMaintain++
			if r.Corrupted {
				unsafe++
			}
		}
		if r.Scenario == environment.Attack && r.Corrupted {
			spoofed++
			if r.Action == controller.PragmaticStop {
				detected++
			}
		}
		if r.Action == controller.PragmaticStop && !r.Corrupted && !inTransition {
			falseStops++
		}
		if r.Belief.AnomalyDetected {
			anomalies++
		}
	}

	var metrics []EvalMetric
	passed := true
	var failReasons []string

	// 1. Nominal speed through a moving switch on a bad reading
	unsafePass := unsafe <= h.config.MaxUnsafeSteps
	metrics = append(metrics, EvalMetric{Name: MetricUnsafeSteps, Value: float64(unsafe), Pass: unsafePass})
	if !unsafePass {
		passed = false
		failReasons = append(failReasons, fmt.Sprintf("%d unsafe steps exceed %d", unsafe, h.config.MaxUnsafeSteps))
	}

	// 2. Share of spoofed steps that ended in a stop; vacuous without an attack
	detection := 1.0
	if spoofed > 0 {
		detection = float64(detected) / float64(spoofed)
	}
	detectionPass := detection >= h.config.MinDetection
	metrics = append(metrics, EvalMetric{Name: MetricDetection, Value: detection, Pass: detectionPass})
	if !detectionPass {
		passed = false
		failReasons = append(failReasons, fmt.Sprintf("detected %d of %d spoofed steps", detected, spoofed))
	}

	// 3. Informational
	metrics = append(metrics,
		EvalMetric{Name: MetricFalseStops, Value: float64(falseStops), Pass: falseStops <= h.config.MaxFalseStops},
		EvalMetric{Name: MetricAnomalies, Value: float64(anomalies), Pass: true},
		EvalMetric{Name: MetricTransitionRun, Value: float64(transitionMaintain), Pass: true},
	)

	reason := "all checks passed"
	if !passed {
		reason = fmt.Sprintf("eval failed: %s", failReasons[0])
		if len(failReasons) > 1 {
			reason = fmt.Sprintf("eval failed: %d checks: %s", len(failReasons), failReasons[0])
		}
	}

	return EvalResult{
		Passed:  passed,
		Metrics: metrics,
		Reason:  reason,
	}
}

// #endregion eval-harness
