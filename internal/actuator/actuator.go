package actuator

import (
	"fmt"

	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/controller"
)

// #region config
// Config is the velocity table, one entry per action.
type Config struct {
	Nominal float64 `yaml:"nominal" json:"nominal"`
	Slow    float64 `yaml:"slow" json:"slow"`
	Stop    float64 `yaml:"stop" json:"stop"`
}

// DefaultConfig returns the reference train velocities.
func DefaultConfig() Config {
	return Config{Nominal: 10, Slow: 4, Stop: 0}
}

// #endregion config

// #region velocity
// Velocity maps an action to its train velocity.
func (c Config) Velocity(a controller.Action) float64 {
	switch a {
	case controller.Maintain:
		return c.Nominal
	case controller.EpistemicSlow:
		return c.Slow
	case controller.PragmaticStop:
		return c.Stop
	default:
		panic(fmt.Sprintf("actuator: unhandled action %q", a))
	}
}

// #endregion velocity

// #region train
// Train holds the velocity set by the last applied action.
type Train struct {
	config   Config
	velocity float64
}

// NewTrain creates a train running at nominal velocity.
func NewTrain(config Config) *Train {
	return &Train{config: config, velocity: config.Nominal}
}

// Apply sets the train velocity for a and returns it.
func (t *Train) Apply(a controller.Action) float64 {
	t.velocity = t.config.Velocity(a)
	return t.velocity
}

// Velocity returns the current velocity.
func (t *Train) Velocity() float64 {
	return t.velocity
}

// #endregion train
