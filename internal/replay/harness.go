package replay

import (
	"encoding/json"
	"fmt"

	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/config"
	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/environment"
	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/eval"
	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/sim"
	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/store"
)

// #region types

// ReplayResult compares one replayed step against its reference.
type ReplayResult struct {
	T        int
	Expected string
	Action   string
	Velocity float64
	Reason   string
	Match    bool
}

// ReplaySummary provides aggregate stats from a replay run.
type ReplaySummary struct {
	TotalSteps int
	Checked    int
	Matches    int
	Diverged   int
	Run        sim.Summary
	Eval       eval.EvalResult
}

// Report is the full outcome of replaying a fixture or stored run.
type Report struct {
	Results []ReplayResult
	Records []sim.ControlRecord
	Summary ReplaySummary
}

// #endregion types

// #region replay

// Replay re-runs a fixture and checks every pinned step.
func Replay(f *Fixture) (Report, error) {
	scenario, err := f.ToScenario()
	if err != nil {
		return Report{}, fmt.Errorf("fixture scenario: %w", err)
	}
	cfg, err := f.ToConfig()
	if err != nil {
		return Report{}, fmt.Errorf("fixture config: %w", err)
	}
	records, err := rerun(cfg, scenario, f.Seed)
	if err != nil {
		return Report{}, err
	}

	byT := make(map[int]sim.ControlRecord, len(records))
	for _, r := range records {
		byT[r.T] = r
	}

	results := make([]ReplayResult, 0, len(f.ExpectedResults))
	for _, exp := range f.ExpectedResults {
		rec, ok := byT[exp.T]
		if !ok {
			results = append(results, ReplayResult{
				T:        exp.T,
				Expected: exp.Action,
				Action:   "missing",
				Reason:   fmt.Sprintf("step %d beyond horizon %d", exp.T, cfg.Horizon),
			})
			continue
		}
		match := string(rec.Action) == exp.Action
		if exp.Velocity != nil && *exp.Velocity != rec.Velocity {
			match = false
		}
		results = append(results, ReplayResult{
			T:        exp.T,
			Expected: exp.Action,
			Action:   string(rec.Action),
			Velocity: rec.Velocity,
			Reason:   rec.Decision.Reason,
			Match:    match,
		})
	}

	evalResult := eval.NewEvalHarness(f.ToEvalConfig()).Run(records)
	return Report{
		Results: results,
		Records: records,
		Summary: summarize(results, records, evalResult),
	}, nil
}

// ReplayStored re-runs a stored run from its scenario, seed and config
// snapshot and compares every step with the stored records.
func ReplayStored(run store.Run, stored []store.Record) (Report, error) {
	scenario, err := environment.ParseScenario(run.Scenario)
	if err != nil {
		return Report{}, fmt.Errorf("run %s scenario: %w", run.RunID, err)
	}
	cfg, err := config.Parse([]byte(run.ConfigJSON))
	if err != nil {
		return Report{}, fmt.Errorf("run %s config: %w", run.RunID, err)
	}
	cfg.Horizon = run.Horizon

	records, err := rerun(cfg, scenario, run.Seed)
	if err != nil {
		return Report{}, err
	}

	results := CompareStored(stored, records)
	evalResult := eval.NewEvalHarness(eval.DefaultEvalConfig()).Run(records)
	return Report{
		Results: results,
		Records: records,
		Summary: summarize(results, records, evalResult),
	}, nil
}

// CompareStored lines stored records up with replayed ones by step.
func CompareStored(stored []store.Record, replayed []sim.ControlRecord) []ReplayResult {
	byT := make(map[int]sim.ControlRecord, len(replayed))
	for _, r := range replayed {
		byT[r.T] = r
	}
	results := make([]ReplayResult, 0, len(stored))
	for _, s := range stored {
		rec, ok := byT[s.T]
		if !ok {
			results = append(results, ReplayResult{T: s.T, Expected: s.Action, Action: "missing"})
			continue
		}
		results = append(results, ReplayResult{
			T:        s.T,
			Expected: s.Action,
			Action:   string(rec.Action),
			Velocity: rec.Velocity,
			Reason:   rec.Decision.Reason,
			Match:    s.Action == string(rec.Action) && s.Velocity == rec.Velocity,
		})
	}
	return results
}

func rerun(cfg config.Config, scenario environment.Scenario, seed uint64) ([]sim.ControlRecord, error) {
	s, err := sim.NewSimulator(cfg, scenario)
	if err != nil {
		return nil, err
	}
	return s.Run(cfg.Horizon, sim.NewSource(seed), nil)
}

func summarize(results []ReplayResult, records []sim.ControlRecord, evalResult eval.EvalResult) ReplaySummary {
	s := ReplaySummary{
		TotalSteps: len(records),
		Checked:    len(results),
		Run:        sim.Summarize(records),
		Eval:       evalResult,
	}
	for _, r := range results {
		if r.Match {
			s.Matches++
		} else {
			s.Diverged++
		}
	}
	return s
}

// #endregion replay

// #region export

// FixtureFromRun builds a fixture pinning every stored step of a run.
func FixtureFromRun(run store.Run, records []store.Record) Fixture {
	expected := make([]FixtureExpectedResult, len(records))
	for i, r := range records {
		v := r.Velocity
		expected[i] = FixtureExpectedResult{T: r.T, Action: r.Action, Velocity: &v}
	}
	var cfg json.RawMessage
	if run.ConfigJSON != "" {
		cfg = json.RawMessage(run.ConfigJSON)
	}
	return Fixture{
		Description:     fmt.Sprintf("Stored run %s: %s scenario, seed %d, %d steps", run.RunID, run.Scenario, run.Seed, len(records)),
		Scenario:        run.Scenario,
		Seed:            run.Seed,
		Horizon:         run.Horizon,
		Config:          cfg,
		ExpectedResults: expected,
	}
}

// #endregion export
