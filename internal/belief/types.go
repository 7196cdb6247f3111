package belief

import "github.com/danielpatrickdp/switch-interlock/go-controller/internal/environment"

// #region belief
// Belief is the estimator's per-step view of the switch. It is derived from a
// single reading and the step index; nothing is carried between steps.
type Belief struct {
	Estimate        float64 // [0, 1]
	Uncertainty     float64 // [0, 1]
	AnomalyDetected bool
	PredictionError float64 // |reading - Expected|, +Inf for rejected readings
	Expected        float64 // internal model prediction for this step
}

// #endregion belief

// #region config
// Config holds the fusion and anomaly-detection parameters.
type Config struct {
	Transition         environment.Window `yaml:"transition" json:"transition"`                   // internal model's own copy of the timeline
	AnomalyThreshold   float64            `yaml:"anomaly_threshold" json:"anomaly_threshold"`     // prediction error above this trips the anomaly branch
	FusionWeight       float64            `yaml:"fusion_weight" json:"fusion_weight"`             // weight on the reading; 1-w on the model
	UncertaintyGain    float64            `yaml:"uncertainty_gain" json:"uncertainty_gain"`       // uncertainty per unit of prediction error
	UncertaintyFloor   float64            `yaml:"uncertainty_floor" json:"uncertainty_floor"`     // minimum fused uncertainty
	UncertaintyCeiling float64            `yaml:"uncertainty_ceiling" json:"uncertainty_ceiling"` // maximum fused uncertainty
	SaneMin            float64            `yaml:"sane_min" json:"sane_min"`                       // readings below are rejected
	SaneMax            float64            `yaml:"sane_max" json:"sane_max"`                       // readings above are rejected
}

// DefaultConfig returns the reference estimator parameters.
func DefaultConfig() Config {
	return Config{
		Transition:         environment.DefaultConfig().Transition,
		AnomalyThreshold:   0.3,
		FusionWeight:       0.6,
		UncertaintyGain:    2.5,
		UncertaintyFloor:   0.1,
		UncertaintyCeiling: 0.9,
		SaneMin:            -1,
		SaneMax:            2,
	}
}

// #endregion config
