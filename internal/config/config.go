package config

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/actuator"
	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/belief"
	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/controller"
	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/environment"
)

// #region errors

// ErrInvalid is wrapped by every configuration error.
var ErrInvalid = errors.New("invalid configuration")

// Error reports one rejected configuration field.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrInvalid, e.Field, e.Reason)
}

func (e *Error) Unwrap() error { return ErrInvalid }

func invalid(field, format string, args ...any) error {
	return &Error{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// #endregion errors

// #region config

// DefaultHorizon is the number of steps in the reference scenario.
const DefaultHorizon = 50

// Config bundles the per-component configs for one simulation run.
type Config struct {
	Horizon     int                `yaml:"horizon" json:"horizon"`
	Environment environment.Config `yaml:"environment" json:"environment"`
	Belief      belief.Config      `yaml:"belief" json:"belief"`
	Controller  controller.Config  `yaml:"controller" json:"controller"`
	Velocity    actuator.Config    `yaml:"velocity" json:"velocity"`
}

// Default returns the reference configuration.
func Default() Config {
	return Config{
		Horizon:     DefaultHorizon,
		Environment: environment.DefaultConfig(),
		Belief:      belief.DefaultConfig(),
		Controller:  controller.DefaultConfig(),
		Velocity:    actuator.DefaultConfig(),
	}
}

// #endregion config

// #region load

// Load reads a YAML (or JSON) config file. Keys missing from the file keep
// their default values. The result is validated.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML config bytes over the defaults and validates the result.
// The estimator's model follows environment.transition unless
// belief.transition is given explicitly.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	var explicit struct {
		Belief struct {
			Transition *environment.Window `yaml:"transition"`
		} `yaml:"belief"`
	}
	if err := yaml.Unmarshal(data, &explicit); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if explicit.Belief.Transition == nil {
		cfg.Belief.Transition = cfg.Environment.Transition
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// #endregion load

// #region validate

// Validate rejects configurations that cannot drive a run. It is called
// before any step executes.
func (c Config) Validate() error {
	if c.Horizon < 0 {
		return invalid("horizon", "must be non-negative, got %d", c.Horizon)
	}

	windows := []struct {
		field string
		w     environment.Window
	}{
		{"environment.transition", c.Environment.Transition},
		{"environment.degraded", c.Environment.Degraded},
		{"environment.attack", c.Environment.Attack},
		{"belief.transition", c.Belief.Transition},
	}
	for _, w := range windows {
		if w.w.Start < 0 {
			return invalid(w.field, "start %d is negative", w.w.Start)
		}
		if w.w.End < w.w.Start {
			return invalid(w.field, "end %d before start %d", w.w.End, w.w.Start)
		}
	}

	nonNegative := []struct {
		field string
		v     float64
	}{
		{"environment.sensor_noise", c.Environment.SensorNoise},
		{"environment.degraded_noise", c.Environment.DegradedNoise},
		{"belief.anomaly_threshold", c.Belief.AnomalyThreshold},
		{"belief.uncertainty_gain", c.Belief.UncertaintyGain},
		{"controller.risk_scale", c.Controller.RiskScale},
		{"controller.risk_weights.maintain", c.Controller.RiskWeights.Maintain},
		{"controller.risk_weights.epistemic_slow", c.Controller.RiskWeights.EpistemicSlow},
		{"velocity.nominal", c.Velocity.Nominal},
		{"velocity.slow", c.Velocity.Slow},
		{"velocity.stop", c.Velocity.Stop},
	}
	for _, n := range nonNegative {
		if math.IsNaN(n.v) || math.IsInf(n.v, 0) || n.v < 0 {
			return invalid(n.field, "must be a finite non-negative number, got %v", n.v)
		}
	}

	for _, f := range []struct {
		field string
		v     float64
	}{
		{"controller.costs.maintain", c.Controller.Costs.Maintain},
		{"controller.costs.epistemic_slow", c.Controller.Costs.EpistemicSlow},
		{"controller.costs.pragmatic_stop", c.Controller.Costs.PragmaticStop},
		{"belief.sane_min", c.Belief.SaneMin},
		{"belief.sane_max", c.Belief.SaneMax},
		{"belief.fusion_weight", c.Belief.FusionWeight},
		{"belief.uncertainty_floor", c.Belief.UncertaintyFloor},
		{"belief.uncertainty_ceiling", c.Belief.UncertaintyCeiling},
	} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return invalid(f.field, "must be finite, got %v", f.v)
		}
	}

	b := c.Belief
	if b.FusionWeight < 0 || b.FusionWeight > 1 {
		return invalid("belief.fusion_weight", "must be in [0, 1], got %v", b.FusionWeight)
	}
	if b.UncertaintyFloor < 0 || b.UncertaintyCeiling > 1 {
		return invalid("belief.uncertainty_floor", "floor and ceiling must lie in [0, 1], got [%v, %v]", b.UncertaintyFloor, b.UncertaintyCeiling)
	}
	if b.UncertaintyFloor > b.UncertaintyCeiling {
		return invalid("belief.uncertainty_ceiling", "ceiling %v below floor %v", b.UncertaintyCeiling, b.UncertaintyFloor)
	}
	if b.SaneMin > b.SaneMax {
		return invalid("belief.sane_max", "sane range [%v, %v] is empty", b.SaneMin, b.SaneMax)
	}
	return nil
}

// ValidateScenario checks a scenario selected outside the config file.
func ValidateScenario(s environment.Scenario) error {
	if !s.Valid() {
		return invalid("scenario", "unknown scenario %q", s)
	}
	return nil
}

// #endregion validate
