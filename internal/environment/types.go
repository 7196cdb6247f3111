package environment

import (
	"fmt"
	"strings"
)

// #region latent-states
// Latent switch positions.
const (
	StableA    = 0.0
	Transition = 0.5
	StableB    = 1.0
)

// #endregion latent-states

// #region scenario
// Scenario selects the corruption model applied to sensor readings.
type Scenario string

const (
	Nominal  Scenario = "nominal"
	Degraded Scenario = "degraded"
	Attack   Scenario = "attack"
)

// Scenarios lists every supported scenario in canonical order.
func Scenarios() []Scenario {
	return []Scenario{Nominal, Degraded, Attack}
}

// ParseScenario maps a scenario name to its Scenario value.
func ParseScenario(name string) (Scenario, error) {
	switch s := Scenario(strings.TrimSpace(strings.ToLower(name))); s {
	case Nominal, Degraded, Attack:
		return s, nil
	default:
		return "", fmt.Errorf("unknown scenario %q (want nominal, degraded or attack)", name)
	}
}

// Valid reports whether s is one of the supported scenarios.
func (s Scenario) Valid() bool {
	switch s {
	case Nominal, Degraded, Attack:
		return true
	}
	return false
}

// #endregion scenario

// #region window
// Window is an inclusive time-step range [Start, End].
type Window struct {
	Start int `yaml:"start" json:"start"`
	End   int `yaml:"end" json:"end"`
}

// Contains reports whether t lies inside the window, both ends inclusive.
func (w Window) Contains(t int) bool {
	return t >= w.Start && t <= w.End
}

// #endregion window

// #region config
// Config holds the switch timeline and the sensor corruption model.
type Config struct {
	Transition    Window  `yaml:"transition" json:"transition"`
	SensorNoise   float64 `yaml:"sensor_noise" json:"sensor_noise"`     // nominal uniform noise half-width
	Degraded      Window  `yaml:"degraded" json:"degraded"`             // wide faulty-sensor window
	DegradedNoise float64 `yaml:"degraded_noise" json:"degraded_noise"` // noise half-width inside Degraded
	Attack        Window  `yaml:"attack" json:"attack"`                 // FDIA window, reading forced to StableA
}

// DefaultConfig returns the reference timeline: transition over steps 15-35,
// degraded sensor over 15-30 and the spoofing attack over 20-30.
func DefaultConfig() Config {
	return Config{
		Transition:    Window{Start: 15, End: 35},
		SensorNoise:   0.05,
		Degraded:      Window{Start: 15, End: 30},
		DegradedNoise: 0.25,
		Attack:        Window{Start: 20, End: 30},
	}
}

// #endregion config

// #region sample
// Sample is one environment output: the hidden truth and what the sensor reports.
type Sample struct {
	Truth     float64
	Reading   float64
	Corrupted bool // reading produced inside the scenario's degraded or attack window
}

// #endregion sample

// #region source
// Source is the random stream consumed by the simulator. *rand.Rand from
// math/rand/v2 satisfies it.
type Source interface {
	Float64() float64
}

// #endregion source
