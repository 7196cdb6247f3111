package sim

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/config"
	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/controller"
	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/environment"
	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/telemetry"
)

type fixedSource float64

func (f fixedSource) Float64() float64 { return float64(f) }

type failingSink struct{ calls int }

func (f *failingSink) Log(map[string]any) error {
	f.calls++
	return errors.New("collector down")
}

func mustSimulator(t *testing.T, scenario environment.Scenario) *Simulator {
	t.Helper()
	s, err := NewSimulator(config.Default(), scenario)
	if err != nil {
		t.Fatalf("NewSimulator(%s): %v", scenario, err)
	}
	return s
}

func TestStepNominalMaintains(t *testing.T) {
	s := mustSimulator(t, environment.Nominal)
	rec := s.Step(5, NewSource(42))

	if rec.LatentState != environment.StableA {
		t.Fatalf("expected StableA at t=5, got %v", rec.LatentState)
	}
	if rec.Corrupted || rec.Belief.AnomalyDetected || rec.Decision.Overridden {
		t.Fatalf("nominal step should be clean: %+v", rec)
	}
	if rec.Action != controller.Maintain {
		t.Fatalf("expected maintain, got %s", rec.Action)
	}
	if rec.Velocity != 10 {
		t.Fatalf("expected velocity 10, got %v", rec.Velocity)
	}
}

func TestStepAttackOverridesToStop(t *testing.T) {
	s := mustSimulator(t, environment.Attack)
	rec := s.Step(25, NewSource(42))

	if rec.LatentState != environment.Transition {
		t.Fatalf("expected Transition at t=25, got %v", rec.LatentState)
	}
	if rec.Reading != environment.StableA || !rec.Corrupted {
		t.Fatalf("expected spoofed StableA reading, got %v (corrupted=%v)", rec.Reading, rec.Corrupted)
	}
	if rec.Belief.Estimate != 0.5 || rec.Belief.Uncertainty != 1.0 || !rec.Belief.AnomalyDetected {
		t.Fatalf("unexpected belief: %+v", rec.Belief)
	}
	if !rec.Decision.Overridden || rec.Action != controller.PragmaticStop {
		t.Fatalf("expected overridden stop, got %+v", rec.Decision)
	}
	if rec.Velocity != 0 {
		t.Fatalf("expected velocity 0, got %v", rec.Velocity)
	}
}

func TestStepDegradedRaisesUncertainty(t *testing.T) {
	rng := fixedSource(0.9) // noise draw +0.8

	nominal := mustSimulator(t, environment.Nominal).Step(18, rng)
	degraded := mustSimulator(t, environment.Degraded).Step(18, rng)

	if !degraded.Corrupted {
		t.Fatal("degraded reading should be marked corrupted")
	}
	if degraded.Belief.AnomalyDetected || degraded.Decision.Overridden {
		t.Fatalf("degraded noise must stay below the anomaly threshold: %+v", degraded.Belief)
	}
	if degraded.Belief.Uncertainty <= nominal.Belief.Uncertainty {
		t.Fatalf("degraded uncertainty %v should exceed nominal %v",
			degraded.Belief.Uncertainty, nominal.Belief.Uncertainty)
	}
	if math.Abs(degraded.Belief.Uncertainty-0.6) > 1e-9 {
		t.Fatalf("expected uncertainty 0.6, got %v", degraded.Belief.Uncertainty)
	}
	if degraded.Action != controller.EpistemicSlow || degraded.Velocity != 4 {
		t.Fatalf("expected epistemic_slow at 4, got %s at %v", degraded.Action, degraded.Velocity)
	}
}

func TestRunDeterministic(t *testing.T) {
	for _, sc := range environment.Scenarios() {
		a, err := mustSimulator(t, sc).Run(50, NewSource(7), nil)
		if err != nil {
			t.Fatalf("run a: %v", err)
		}
		b, err := mustSimulator(t, sc).Run(50, NewSource(7), nil)
		if err != nil {
			t.Fatalf("run b: %v", err)
		}
		if diff := cmp.Diff(a, b); diff != "" {
			t.Fatalf("%s: runs with the same seed differ (-a +b):\n%s", sc, diff)
		}
	}
}

func TestRunOverrideImpliesStop(t *testing.T) {
	for _, sc := range environment.Scenarios() {
		records, err := mustSimulator(t, sc).Run(50, NewSource(11), nil)
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		for _, r := range records {
			if r.Decision.Overridden {
				if sc != environment.Attack || !r.Belief.AnomalyDetected {
					t.Fatalf("%s t=%d: override outside attack+anomaly", sc, r.T)
				}
				if r.Action != controller.PragmaticStop || r.Velocity != 0 {
					t.Fatalf("%s t=%d: override without stop", sc, r.T)
				}
			}
			if sc == environment.Attack && r.Belief.AnomalyDetected && !r.Decision.Overridden {
				t.Fatalf("attack t=%d: anomaly without override", r.T)
			}
		}
	}
}

func TestRunAttackWindowAlwaysStops(t *testing.T) {
	records, err := mustSimulator(t, environment.Attack).Run(50, NewSource(3), nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	for _, r := range records[20:31] {
		if r.Reading != environment.StableA {
			t.Fatalf("t=%d: attack reading %v, want StableA", r.T, r.Reading)
		}
		if r.Action != controller.PragmaticStop {
			t.Fatalf("t=%d: expected stop, got %s", r.T, r.Action)
		}
	}
}

func TestRunBeliefBounds(t *testing.T) {
	for seed := uint64(0); seed < 20; seed++ {
		for _, sc := range environment.Scenarios() {
			records, err := mustSimulator(t, sc).Run(50, NewSource(seed), nil)
			if err != nil {
				t.Fatalf("run: %v", err)
			}
			for _, r := range records {
				b := r.Belief
				if b.Estimate < 0 || b.Estimate > 1 || b.Uncertainty < 0 || b.Uncertainty > 1 {
					t.Fatalf("seed %d %s t=%d: belief out of bounds %+v", seed, sc, r.T, b)
				}
				if r.Reading < 0 || r.Reading > 1 {
					t.Fatalf("seed %d %s t=%d: reading %v out of [0,1]", seed, sc, r.T, r.Reading)
				}
			}
		}
	}
}

func TestRunFeedsSinkInOrder(t *testing.T) {
	mem := &telemetry.Memory{}
	records, err := mustSimulator(t, environment.Attack).Run(50, NewSource(1), mem)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	logged := mem.Records()
	if len(logged) != len(records) {
		t.Fatalf("sink saw %d records, want %d", len(logged), len(records))
	}
	for i, fields := range logged {
		if telemetry.Int(fields, telemetry.FieldTime) != i {
			t.Fatalf("record %d out of order", i)
		}
		if telemetry.String(fields, telemetry.FieldAction) != string(records[i].Action) {
			t.Fatalf("record %d action mismatch", i)
		}
		if telemetry.Bool(fields, telemetry.FieldOverridden) != records[i].Decision.Overridden {
			t.Fatalf("record %d override mismatch", i)
		}
	}
}

func TestRunSinkFailureDoesNotStop(t *testing.T) {
	sink := &failingSink{}
	records, err := mustSimulator(t, environment.Nominal).Run(10, NewSource(1), sink)
	if err != nil {
		t.Fatalf("sink failure must not fail the run: %v", err)
	}
	if len(records) != 10 || sink.calls != 10 {
		t.Fatalf("records=%d calls=%d, want 10/10", len(records), sink.calls)
	}
}

func TestRunZeroAndNegativeHorizon(t *testing.T) {
	s := mustSimulator(t, environment.Nominal)
	records, err := s.Run(0, NewSource(1), nil)
	if err != nil || len(records) != 0 {
		t.Fatalf("horizon 0: records=%d err=%v", len(records), err)
	}
	if _, err := s.Run(-1, NewSource(1), nil); !errors.Is(err, config.ErrInvalid) {
		t.Fatalf("expected ErrInvalid for negative horizon, got %v", err)
	}
}

func TestNewSimulatorRejectsBadInput(t *testing.T) {
	if _, err := NewSimulator(config.Default(), "spoofed"); !errors.Is(err, config.ErrInvalid) {
		t.Fatalf("expected ErrInvalid for unknown scenario, got %v", err)
	}
	cfg := config.Default()
	cfg.Belief.FusionWeight = 1.5
	if _, err := NewSimulator(cfg, environment.Nominal); !errors.Is(err, config.ErrInvalid) {
		t.Fatalf("expected ErrInvalid for bad fusion weight, got %v", err)
	}
}

func TestSummarize(t *testing.T) {
	records, err := mustSimulator(t, environment.Attack).Run(50, NewSource(5), nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	s := Summarize(records)

	if s.Scenario != environment.Attack || s.Steps != 50 {
		t.Fatalf("unexpected header: %+v", s)
	}
	if s.Overrides != 11 || s.FirstOverride != 20 {
		t.Fatalf("expected 11 overrides from t=20, got %d from t=%d", s.Overrides, s.FirstOverride)
	}
	total := 0
	for _, n := range s.Actions {
		total += n
	}
	if total != s.Steps {
		t.Fatalf("action counts sum to %d, want %d", total, s.Steps)
	}
	if s.Actions[controller.PragmaticStop] < s.Overrides {
		t.Fatal("every override is a stop")
	}

	empty := Summarize(nil)
	if empty.Steps != 0 || empty.FirstOverride != -1 || empty.MeanVelocity != 0 {
		t.Fatalf("unexpected empty summary: %+v", empty)
	}
}

func TestCompareMatchesSequentialRuns(t *testing.T) {
	cfg := config.Default()
	sinks := map[environment.Scenario]*telemetry.Memory{}
	for _, sc := range environment.Scenarios() {
		sinks[sc] = &telemetry.Memory{}
	}

	results, err := Compare(context.Background(), cfg, 9, nil, func(sc environment.Scenario) (telemetry.Sink, error) {
		return sinks[sc], nil
	})
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, sc := range environment.Scenarios() {
		r := results[i]
		if r.Scenario != sc {
			t.Fatalf("result %d is %s, want %s", i, r.Scenario, sc)
		}
		want, err := mustSimulator(t, sc).Run(cfg.Horizon, NewSource(9), nil)
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		if diff := cmp.Diff(want, r.Records); diff != "" {
			t.Fatalf("%s: concurrent run differs from sequential (-want +got):\n%s", sc, diff)
		}
		if len(sinks[sc].Records()) != cfg.Horizon {
			t.Fatalf("%s: sink saw %d records", sc, len(sinks[sc].Records()))
		}
	}
	if results[2].Summary.Overrides == 0 || results[0].Summary.Overrides != 0 {
		t.Fatal("only the attack scenario should override")
	}
}

func TestCompareSinkError(t *testing.T) {
	_, err := Compare(context.Background(), config.Default(), 1, nil, func(sc environment.Scenario) (telemetry.Sink, error) {
		if sc == environment.Degraded {
			return nil, errors.New("no database")
		}
		return nil, nil
	})
	if err == nil {
		t.Fatal("expected sink construction error")
	}
}

func TestMovedTransitionKeepsModelInStep(t *testing.T) {
	cfg, err := config.Parse([]byte("environment:\n  transition: {start: 25, end: 40}\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	s, err := NewSimulator(cfg, environment.Nominal)
	if err != nil {
		t.Fatalf("NewSimulator: %v", err)
	}
	records, err := s.Run(cfg.Horizon, NewSource(11), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if sum := Summarize(records); sum.Anomalies != 0 {
		t.Fatalf("clean sensor flagged %d anomalies after moving the transition window", sum.Anomalies)
	}
}
