package sim

import (
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/actuator"
	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/belief"
	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/config"
	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/controller"
	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/environment"
	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/logging"
	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/telemetry"
)

// #region simulator

// Simulator wires environment, estimator, controller and train for one
// scenario. It is not safe for concurrent use; run one per goroutine.
type Simulator struct {
	config     config.Config
	scenario   environment.Scenario
	env        *environment.Simulator
	estimator  *belief.Estimator
	controller *controller.Controller
	train      *actuator.Train
	logger     *slog.Logger
}

// NewSimulator validates cfg and scenario before building the components.
func NewSimulator(cfg config.Config, scenario environment.Scenario) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := config.ValidateScenario(scenario); err != nil {
		return nil, err
	}
	return &Simulator{
		config:     cfg,
		scenario:   scenario,
		env:        environment.NewSimulator(cfg.Environment, scenario),
		estimator:  belief.NewEstimator(cfg.Belief),
		controller: controller.NewController(cfg.Controller),
		train:      actuator.NewTrain(cfg.Velocity),
		logger:     logging.New("sim").With("scenario", string(scenario)),
	}, nil
}

// Config returns the validated configuration.
func (s *Simulator) Config() config.Config { return s.config }

// Scenario returns the scenario this simulator runs.
func (s *Simulator) Scenario() environment.Scenario { return s.scenario }

// NewSource returns a deterministic random source for seed.
func NewSource(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, 0))
}

// #endregion simulator

// #region step

// Step runs one control cycle at time t: environment, belief, controller,
// actuator, in that order. Exactly one value is drawn from rng.
func (s *Simulator) Step(t int, rng environment.Source) ControlRecord {
	sample := s.env.Reading(t, rng)
	b := s.estimator.Update(sample.Reading, t)
	decision := s.controller.Decide(b, s.scenario)
	velocity := s.train.Apply(decision.Action)

	return ControlRecord{
		T:           t,
		Scenario:    s.scenario,
		LatentState: sample.Truth,
		Reading:     sample.Reading,
		Corrupted:   sample.Corrupted,
		Belief:      b,
		Decision:    decision,
		Action:      decision.Action,
		Velocity:    velocity,
	}
}

// #endregion step

// #region run

// Run steps t = 0..horizon-1 and hands every record to sink before the next
// step starts. A nil sink discards records. Sink failures are logged and
// never stop the run.
func (s *Simulator) Run(horizon int, rng environment.Source, sink telemetry.Sink) ([]ControlRecord, error) {
	if horizon < 0 {
		return nil, &config.Error{Field: "horizon", Reason: fmt.Sprintf("must be >= 0, got %d", horizon)}
	}
	if sink == nil {
		sink = telemetry.Nop{}
	}

	records := make([]ControlRecord, 0, horizon)
	for t := 0; t < horizon; t++ {
		rec := s.Step(t, rng)
		records = append(records, rec)

		s.logger.Debug("step",
			"t", t,
			"real", rec.LatentState,
			"reading", rec.Reading,
			"estimate", rec.Belief.Estimate,
			"uncertainty", rec.Belief.Uncertainty,
			"anomaly", rec.Belief.AnomalyDetected,
			"action", string(rec.Action),
			"velocity", rec.Velocity,
		)
		if rec.Decision.Overridden {
			s.logger.Info("safety override", "t", t, "reason", rec.Decision.Reason)
		}

		if err := sink.Log(rec.Fields()); err != nil {
			s.logger.Warn("telemetry sink failed", "t", t, "error", err)
		}
	}
	return records, nil
}

// #endregion run
