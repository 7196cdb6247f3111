package controller

import "fmt"

// #region action
// Action enumerates the train control actions.
type Action string

const (
	Maintain      Action = "maintain"
	EpistemicSlow Action = "epistemic_slow"
	PragmaticStop Action = "pragmatic_stop"
)

// Actions returns every action in tie-break priority order.
func Actions() []Action {
	return []Action{Maintain, EpistemicSlow, PragmaticStop}
}

// ParseAction maps an action name to its Action value.
func ParseAction(name string) (Action, error) {
	switch a := Action(name); a {
	case Maintain, EpistemicSlow, PragmaticStop:
		return a, nil
	default:
		return "", fmt.Errorf("unknown action %q", name)
	}
}

// #endregion action

// #region scores
// Scores holds the expected free energy of each action. Lower is better.
type Scores struct {
	Maintain      float64 `json:"maintain"`
	EpistemicSlow float64 `json:"epistemic_slow"`
	PragmaticStop float64 `json:"pragmatic_stop"`
}

// Get returns the score recorded for a.
func (s Scores) Get(a Action) float64 {
	switch a {
	case Maintain:
		return s.Maintain
	case EpistemicSlow:
		return s.EpistemicSlow
	case PragmaticStop:
		return s.PragmaticStop
	default:
		panic(fmt.Sprintf("controller: unhandled action %q", a))
	}
}

func (s *Scores) set(a Action, v float64) {
	switch a {
	case Maintain:
		s.Maintain = v
	case EpistemicSlow:
		s.EpistemicSlow = v
	case PragmaticStop:
		s.PragmaticStop = v
	default:
		panic(fmt.Sprintf("controller: unhandled action %q", a))
	}
}

// #endregion scores

// #region config
// Costs is the prior-preference cost per action.
type Costs struct {
	Maintain      float64 `yaml:"maintain" json:"maintain"`
	EpistemicSlow float64 `yaml:"epistemic_slow" json:"epistemic_slow"`
	PragmaticStop float64 `yaml:"pragmatic_stop" json:"pragmatic_stop"`
}

// RiskWeights scales the belief risk per moving action. Stopping carries no risk.
type RiskWeights struct {
	Maintain      float64 `yaml:"maintain" json:"maintain"`
	EpistemicSlow float64 `yaml:"epistemic_slow" json:"epistemic_slow"`
}

// Config holds the EFE scoring parameters.
type Config struct {
	Costs       Costs       `yaml:"costs" json:"costs"`
	RiskWeights RiskWeights `yaml:"risk_weights" json:"risk_weights"`
	RiskScale   float64     `yaml:"risk_scale" json:"risk_scale"`
}

// DefaultConfig returns the reference cost table and risk scaling.
func DefaultConfig() Config {
	return Config{
		Costs: Costs{
			Maintain:      0.1,
			EpistemicSlow: 0.4,
			PragmaticStop: 0.8,
		},
		RiskWeights: RiskWeights{
			Maintain:      1.0,
			EpistemicSlow: 0.5,
		},
		RiskScale: 2.0,
	}
}

// #endregion config

// #region decision
// Decision is the output of one controller evaluation.
type Decision struct {
	Action     Action
	Reason     string
	Overridden bool   // safety override bypassed scoring
	Scores     Scores // zero when Overridden
}

// #endregion decision
