package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/environment"
	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/eval"
	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/format"
	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/logging"
	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/sim"
	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/store"
	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/telemetry"
)

var compareFlags struct {
	seed      uint64
	horizon   int
	config    string
	db        string
	format    string
	scenarios []string
}

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Run every scenario with the same seed and compare outcomes",
	RunE:  runCompare,
}

func init() {
	f := compareCmd.Flags()
	f.Uint64Var(&compareFlags.seed, "seed", 42, "Seed shared by every scenario")
	f.IntVar(&compareFlags.horizon, "horizon", 0, "Number of steps (overrides the config file)")
	f.StringVar(&compareFlags.config, "config", "", "YAML or JSON config file (defaults when empty)")
	f.StringVar(&compareFlags.db, "db", envOr("INTERLOCK_DB", ""), "SQLite file to record each run in")
	f.StringVar(&compareFlags.format, "format", "ascii", "Table format: ascii or markdown")
	f.StringSliceVar(&compareFlags.scenarios, "scenario", nil, "Scenarios to run (default: all)")
}

func runCompare(cmd *cobra.Command, _ []string) error {
	log := logging.New("compare")
	out := cmd.OutOrStdout()

	cfg, err := loadConfig(cmd, compareFlags.config, compareFlags.horizon)
	if err != nil {
		return err
	}
	var scenarios []environment.Scenario
	for _, name := range compareFlags.scenarios {
		sc, err := environment.ParseScenario(name)
		if err != nil {
			return err
		}
		scenarios = append(scenarios, sc)
	}

	var sinkFor sim.SinkFunc
	if compareFlags.db != "" {
		st, err := store.NewStore(compareFlags.db)
		if err != nil {
			return err
		}
		defer st.Close()
		sinkFor = func(sc environment.Scenario) (telemetry.Sink, error) {
			run, err := createRun(st, cfg, sc, compareFlags.seed)
			if err != nil {
				return nil, err
			}
			log.Info("recording run", "scenario", string(sc), "run_id", run.RunID)
			return telemetry.NewStoreSink(st, run.RunID), nil
		}
	}

	results, err := sim.Compare(cmd.Context(), cfg, compareFlags.seed, scenarios, sinkFor)
	if err != nil {
		return err
	}

	mode := format.ParseMode(compareFlags.format)
	summaries := make([]sim.Summary, len(results))
	harness := eval.NewEvalHarness(eval.DefaultEvalConfig())
	for i, r := range results {
		summaries[i] = r.Summary
	}
	fmt.Fprintln(out, format.SummaryTable(summaries, mode))
	for _, r := range results {
		fmt.Fprintf(out, "%s\n", r.Scenario)
		fmt.Fprintln(out, format.EvalTable(harness.Run(r.Records), mode))
	}
	return nil
}
