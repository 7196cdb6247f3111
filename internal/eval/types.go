package eval

// #region eval-config
// EvalConfig holds the thresholds a finished run is judged against.
type EvalConfig struct {
	MaxUnsafeSteps int     // fail if more corrupted transition steps ran at nominal speed
	MinDetection   float64 // fail if fewer spoofed steps ended in a stop
	MaxFalseStops  int     // warn only: stops on a clean sensor with a stable switch
}

// DefaultEvalConfig returns the acceptance bar for the reference scenarios.
func DefaultEvalConfig() EvalConfig {
	return EvalConfig{
		MaxUnsafeSteps: 0,
		MinDetection:   1.0,
		MaxFalseStops:  0,
	}
}

// #endregion eval-config

// #region eval-metric
// EvalMetric captures a single check result.
type EvalMetric struct {
	Name  string
	Value float64
	Pass  bool
}

// #endregion eval-metric

// #region eval-result
// EvalResult is the outcome of evaluating one run.
type EvalResult struct {
	Passed  bool
	Metrics []EvalMetric
	Reason  string
}

// Metric returns the named metric and whether it exists.
func (r EvalResult) Metric(name string) (EvalMetric, bool) {
	for _, m := range r.Metrics {
		if m.Name == name {
			return m, true
		}
	}
	return EvalMetric{}, false
}

// #endregion eval-result
