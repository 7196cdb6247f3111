package sim

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/config"
	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/environment"
	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/telemetry"
)

// #region compare

// Result is the outcome of one scenario in a comparison.
type Result struct {
	Scenario environment.Scenario
	Records  []ControlRecord
	Summary  Summary
}

// SinkFunc returns the sink for one scenario. It may return nil.
type SinkFunc func(environment.Scenario) (telemetry.Sink, error)

// Compare runs every scenario with the same seed, one goroutine per scenario.
// Each run owns its simulator and random source, so runs share a noise stream
// but no state. Results come back in the order of scenarios.
func Compare(ctx context.Context, cfg config.Config, seed uint64, scenarios []environment.Scenario, sinkFor SinkFunc) ([]Result, error) {
	if len(scenarios) == 0 {
		scenarios = environment.Scenarios()
	}

	// Validate everything before any run starts.
	sims := make([]*Simulator, len(scenarios))
	for i, sc := range scenarios {
		s, err := NewSimulator(cfg, sc)
		if err != nil {
			return nil, err
		}
		sims[i] = s
	}

	results := make([]Result, len(scenarios))
	g, gCtx := errgroup.WithContext(ctx)
	for i, s := range sims {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			var sink telemetry.Sink
			if sinkFor != nil {
				var err error
				if sink, err = sinkFor(s.Scenario()); err != nil {
					return fmt.Errorf("sink for %s: %w", s.Scenario(), err)
				}
			}
			records, err := s.Run(cfg.Horizon, NewSource(seed), sink)
			if err != nil {
				return fmt.Errorf("run %s: %w", s.Scenario(), err)
			}
			results[i] = Result{Scenario: s.Scenario(), Records: records, Summary: Summarize(records)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// #endregion compare
