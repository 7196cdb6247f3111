package environment

// #region timeline
// Timeline returns the latent switch position at step t for the given
// transition window. It is shared by the simulator and by the estimator's
// internal model, each holding its own copy of the window.
func Timeline(transition Window, t int) float64 {
	switch {
	case t < transition.Start:
		return StableA
	case t <= transition.End:
		return Transition
	default:
		return StableB
	}
}

// #endregion timeline

// #region simulator
// Simulator produces ground truth and scenario-corrupted sensor readings.
type Simulator struct {
	config   Config
	scenario Scenario
}

// NewSimulator creates a simulator for one scenario.
func NewSimulator(config Config, scenario Scenario) *Simulator {
	return &Simulator{config: config, scenario: scenario}
}

// Scenario returns the scenario this simulator corrupts readings for.
func (s *Simulator) Scenario() Scenario {
	return s.scenario
}

// GroundTruth returns the true switch position at step t.
func (s *Simulator) GroundTruth(t int) float64 {
	return Timeline(s.config.Transition, t)
}

// Reading samples the sensor at step t. Exactly one value is drawn from rng
// per call in every scenario, so runs sharing a seed share their noise stream.
func (s *Simulator) Reading(t int, rng Source) Sample {
	truth := s.GroundTruth(t)
	u := 2*rng.Float64() - 1 // uniform in [-1, 1)

	sample := Sample{Truth: truth}
	switch s.scenario {
	case Degraded:
		if s.config.Degraded.Contains(t) {
			sample.Reading = clamp01(truth + u*s.config.DegradedNoise)
			sample.Corrupted = true
			return sample
		}
	case Attack:
		if s.config.Attack.Contains(t) {
			sample.Reading = StableA
			sample.Corrupted = true
			return sample
		}
	}
	sample.Reading = clamp01(truth + u*s.config.SensorNoise)
	return sample
}

// #endregion simulator

// #region helpers
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// #endregion helpers
