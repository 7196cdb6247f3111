package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/config"
	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/eval"
	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/environment"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture.
type Fixture struct {
	Description     string                  `json:"description"`
	Scenario        string                  `json:"scenario"`
	Seed            uint64                  `json:"seed"`
	Horizon         int                     `json:"horizon"`
	Config          json.RawMessage         `json:"config,omitempty"`
	EvalConfig      *FixtureEvalConfig      `json:"eval_config,omitempty"`
	ExpectedResults []FixtureExpectedResult `json:"expected_results"`
}

// FixtureExpectedResult pins the action at one step. Steps without an entry
// are not checked.
type FixtureExpectedResult struct {
	T        int      `json:"t"`
	Action   string   `json:"action"`
	Velocity *float64 `json:"velocity,omitempty"`
}

// FixtureEvalConfig mirrors eval.EvalConfig with JSON tags.
type FixtureEvalConfig struct {
	MaxUnsafeSteps int     `json:"max_unsafe_steps"`
	MinDetection   float64 `json:"min_detection"`
	MaxFalseStops  int     `json:"max_false_stops"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// ToScenario parses the fixture scenario.
func (f *Fixture) ToScenario() (environment.Scenario, error) {
	return environment.ParseScenario(f.Scenario)
}

// ToConfig merges the fixture config over the defaults. A positive fixture
// horizon wins over the config's.
func (f *Fixture) ToConfig() (config.Config, error) {
	cfg := config.Default()
	if len(f.Config) > 0 {
		var err error
		if cfg, err = config.Parse(f.Config); err != nil {
			return config.Config{}, err
		}
	}
	if f.Horizon > 0 {
		cfg.Horizon = f.Horizon
	}
	return cfg, cfg.Validate()
}

// ToEvalConfig returns the fixture eval thresholds, or the defaults.
func (f *Fixture) ToEvalConfig() eval.EvalConfig {
	if f.EvalConfig == nil {
		return eval.DefaultEvalConfig()
	}
	return eval.EvalConfig{
		MaxUnsafeSteps: f.EvalConfig.MaxUnsafeSteps,
		MinDetection:   f.EvalConfig.MinDetection,
		MaxFalseStops:  f.EvalConfig.MaxFalseStops,
	}
}

// #endregion fixture-loader
