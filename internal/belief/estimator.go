package belief

import (
	"math"

	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/environment"
)

// #region estimator

// Estimator fuses a sensor reading with the internal predictive model. It
// never sees the true latent state.
type Estimator struct {
	config Config
}

// NewEstimator creates an Estimator with the given configuration.
func NewEstimator(config Config) *Estimator {
	return &Estimator{config: config}
}

// Expected is the internal model's prior for step t.
func (e *Estimator) Expected(t int) float64 {
	return environment.Timeline(e.config.Transition, t)
}

// #endregion estimator

// #region update

// Update turns a single reading into a belief for step t.
func (e *Estimator) Update(reading float64, t int) Belief {
	expected := e.Expected(t)

	predictionError := math.Inf(1)
	if e.sane(reading) {
		predictionError = math.Abs(reading - expected)
	}

	if predictionError > e.config.AnomalyThreshold {
		// Sensor judged unreliable: fall back to the model, admit full uncertainty.
		return Belief{
			Estimate:        clamp(expected),
			Uncertainty:     1.0,
			AnomalyDetected: true,
			PredictionError: predictionError,
			Expected:        expected,
		}
	}

	w := e.config.FusionWeight
	estimate := w*reading + (1-w)*expected

	uncertainty := predictionError*e.config.UncertaintyGain + e.config.UncertaintyFloor
	uncertainty = math.Max(e.config.UncertaintyFloor, math.Min(e.config.UncertaintyCeiling, uncertainty))

	return Belief{
		Estimate:        clamp(estimate),
		Uncertainty:     clamp(uncertainty),
		AnomalyDetected: false,
		PredictionError: predictionError,
		Expected:        expected,
	}
}

// #endregion update

// #region helpers

// sane rejects NaN, infinities and readings outside the configured range.
func (e *Estimator) sane(reading float64) bool {
	if math.IsNaN(reading) || math.IsInf(reading, 0) {
		return false
	}
	return reading >= e.config.SaneMin && reading <= e.config.SaneMax
}

// clamp restricts v to [0, 1].
func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// #endregion helpers
