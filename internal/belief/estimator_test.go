package belief

import (
	"math"
	"testing"
)

func TestFusionBranchNearZeroError(t *testing.T) {
	e := NewEstimator(DefaultConfig())

	b := e.Update(0.02, 5)

	if b.AnomalyDetected {
		t.Fatal("small error should not be an anomaly")
	}
	// 0.6*0.02 + 0.4*0.0
	if math.Abs(b.Estimate-0.012) > 1e-9 {
		t.Errorf("estimate = %v, want 0.012", b.Estimate)
	}
	// 0.02*2.5 + 0.1
	if math.Abs(b.Uncertainty-0.15) > 1e-9 {
		t.Errorf("uncertainty = %v, want 0.15", b.Uncertainty)
	}
}

func TestFusionUncertaintyFloorAndCeiling(t *testing.T) {
	cfg := DefaultConfig()
	e := NewEstimator(cfg)

	if b := e.Update(0.0, 0); b.Uncertainty != cfg.UncertaintyFloor {
		t.Errorf("zero error uncertainty = %v, want floor %v", b.Uncertainty, cfg.UncertaintyFloor)
	}

	cfg.AnomalyThreshold = 0.5
	e = NewEstimator(cfg)
	// error 0.45 -> 0.45*2.5+0.1 = 1.225, capped at 0.9
	if b := e.Update(0.45, 0); b.Uncertainty != cfg.UncertaintyCeiling {
		t.Errorf("large error uncertainty = %v, want ceiling %v", b.Uncertainty, cfg.UncertaintyCeiling)
	}
}

func TestUncertaintyMonotoneInError(t *testing.T) {
	e := NewEstimator(DefaultConfig())
	prev := -1.0
	for _, r := range []float64{0.5, 0.55, 0.6, 0.65, 0.7, 0.75} {
		b := e.Update(r, 20)
		if b.AnomalyDetected {
			t.Fatalf("reading %v unexpectedly anomalous", r)
		}
		if b.Uncertainty < prev {
			t.Fatalf("uncertainty decreased: %v after %v", b.Uncertainty, prev)
		}
		prev = b.Uncertainty
	}
}

func TestAnomalyBranchTrustsModel(t *testing.T) {
	e := NewEstimator(DefaultConfig())

	// attack at t=25: reading forced to 0.0, model expects 0.5
	b := e.Update(0.0, 25)

	if !b.AnomalyDetected {
		t.Fatal("expected anomaly for prediction error 0.5")
	}
	if b.Estimate != 0.5 {
		t.Errorf("estimate = %v, want model value 0.5", b.Estimate)
	}
	if b.Uncertainty != 1.0 {
		t.Errorf("uncertainty = %v, want 1.0", b.Uncertainty)
	}
	if b.PredictionError != 0.5 {
		t.Errorf("prediction error = %v, want 0.5", b.PredictionError)
	}
}

func TestThresholdIsStrict(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AnomalyThreshold = 0.25
	e := NewEstimator(cfg)

	// error exactly 0.25 stays in the fusion branch
	if b := e.Update(0.75, 20); b.AnomalyDetected {
		t.Fatal("error equal to threshold must not be an anomaly")
	}
	if b := e.Update(0.76, 20); !b.AnomalyDetected {
		t.Fatal("error above threshold must be an anomaly")
	}
}

func TestDefensiveRuleForcesAnomaly(t *testing.T) {
	e := NewEstimator(DefaultConfig())
	for _, r := range []float64{math.NaN(), math.Inf(1), math.Inf(-1), 1e9, -3} {
		b := e.Update(r, 10)
		if !b.AnomalyDetected {
			t.Errorf("reading %v: expected anomaly", r)
		}
		if b.Estimate != e.Expected(10) {
			t.Errorf("reading %v: estimate %v, want model value", r, b.Estimate)
		}
		if math.IsNaN(b.Estimate) || math.IsNaN(b.Uncertainty) {
			t.Errorf("reading %v: NaN leaked into belief", r)
		}
	}
}

func TestBeliefAlwaysInUnitInterval(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AnomalyThreshold = 10 // let wild readings through the fusion branch
	cfg.SaneMin, cfg.SaneMax = -100, 100
	e := NewEstimator(cfg)

	readings := []float64{-50, -1.5, -0.2, 0, 0.3, 1, 1.7, 3, 42}
	for _, r := range readings {
		for step := 0; step < 50; step++ {
			b := e.Update(r, step)
			if b.Estimate < 0 || b.Estimate > 1 {
				t.Fatalf("reading %v t=%d: estimate %v outside [0,1]", r, step, b.Estimate)
			}
			if b.Uncertainty < 0 || b.Uncertainty > 1 {
				t.Fatalf("reading %v t=%d: uncertainty %v outside [0,1]", r, step, b.Uncertainty)
			}
		}
	}
}

func TestExpectedFollowsOwnTimeline(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Transition.Start, cfg.Transition.End = 5, 6
	e := NewEstimator(cfg)

	want := map[int]float64{4: 0.0, 5: 0.5, 6: 0.5, 7: 1.0}
	for step, v := range want {
		if got := e.Expected(step); got != v {
			t.Errorf("Expected(%d) = %v, want %v", step, got, v)
		}
	}
}
