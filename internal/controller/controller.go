package controller

import (
	"fmt"
	"math"

	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/belief"
	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/environment"
)

// #region controller
// Controller selects the action minimizing expected free energy, subject to
// the attack safety override.
type Controller struct {
	config Config
}

// NewController creates a controller with the given configuration.
func NewController(config Config) *Controller {
	return &Controller{config: config}
}

// Decide checks the safety override first, then scores every action.
func (c *Controller) Decide(b belief.Belief, scenario environment.Scenario) Decision {
	// --- Hard override ---
	if b.AnomalyDetected && scenario == environment.Attack {
		return Decision{
			Action:     PragmaticStop,
			Reason:     fmt.Sprintf("safety override: anomaly under attack (prediction error %.4f)", b.PredictionError),
			Overridden: true,
		}
	}

	// --- EFE scoring ---
	scores := c.Score(b)
	best := Maintain
	for _, a := range Actions() {
		if scores.Get(a) < scores.Get(best) {
			best = a
		}
	}

	return Decision{
		Action: best,
		Reason: fmt.Sprintf("min efe=%.4f", scores.Get(best)),
		Scores: scores,
	}
}

// Score computes the expected free energy of every action.
func (c *Controller) Score(b belief.Belief) Scores {
	var s Scores
	for _, a := range Actions() {
		s.set(a, c.EFE(b, a))
	}
	return s
}

// EFE returns risk*weight + cost - epistemic value for one action.
func (c *Controller) EFE(b belief.Belief, a Action) float64 {
	switch a {
	case Maintain:
		return Risk(b, c.config.RiskScale)*c.config.RiskWeights.Maintain + c.config.Costs.Maintain
	case EpistemicSlow:
		return Risk(b, c.config.RiskScale)*c.config.RiskWeights.EpistemicSlow + c.config.Costs.EpistemicSlow - b.Uncertainty
	case PragmaticStop:
		return c.config.Costs.PragmaticStop
	default:
		panic(fmt.Sprintf("controller: unhandled action %q", a))
	}
}

// #endregion controller

// #region risk
// Risk is the physical danger of the estimate weighted by uncertainty.
func Risk(b belief.Belief, scale float64) float64 {
	return Danger(b.Estimate) * b.Uncertainty * scale
}

// Danger peaks at the transition position and falls to zero at either stable end.
func Danger(estimate float64) float64 {
	return math.Max(0, 1-2*math.Abs(estimate-environment.Transition))
}

// #endregion risk
