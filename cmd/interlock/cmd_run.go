package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/environment"
	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/eval"
	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/format"
	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/logging"
	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/sim"
	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/store"
	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/telemetry"
)

var runFlags struct {
	scenario  string
	seed      uint64
	horizon   int
	config    string
	db        string
	collector string
	jsonl     string
	format    string
	table     bool
	quiet     bool
	strict    bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one scenario and print every control step",
	RunE:  runRun,
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runFlags.scenario, "scenario", string(environment.Attack), "Scenario: nominal, degraded or attack")
	f.Uint64Var(&runFlags.seed, "seed", 42, "Seed of the sensor noise source")
	f.IntVar(&runFlags.horizon, "horizon", 0, "Number of steps (overrides the config file)")
	f.StringVar(&runFlags.config, "config", "", "YAML or JSON config file (defaults when empty)")
	f.StringVar(&runFlags.db, "db", envOr("INTERLOCK_DB", ""), "SQLite file to record the run in")
	f.StringVar(&runFlags.collector, "collector", envOr("INTERLOCK_COLLECTOR_ADDR", ""), "gRPC collector address to stream records to")
	f.StringVar(&runFlags.jsonl, "jsonl", "", "Write records as JSON lines to this file (- for stdout, report goes to stderr)")
	f.StringVar(&runFlags.format, "format", "ascii", "Table format: ascii or markdown")
	f.BoolVar(&runFlags.table, "table", false, "Print a step table instead of one line per step")
	f.BoolVarP(&runFlags.quiet, "quiet", "q", false, "Only print the summary")
	f.BoolVar(&runFlags.strict, "strict", false, "Exit non-zero when the safety evaluation fails")
}

func runRun(cmd *cobra.Command, _ []string) error {
	log := logging.New("run")
	out := cmd.OutOrStdout()
	if runFlags.jsonl == "-" {
		// stdout carries the record stream; the report moves to stderr.
		out = cmd.ErrOrStderr()
	}

	cfg, err := loadConfig(cmd, runFlags.config, runFlags.horizon)
	if err != nil {
		return err
	}
	scenario, err := environment.ParseScenario(runFlags.scenario)
	if err != nil {
		return err
	}
	simulator, err := sim.NewSimulator(cfg, scenario)
	if err != nil {
		return err
	}

	var sinks telemetry.Multi
	runID := ""

	if runFlags.db != "" {
		st, err := store.NewStore(runFlags.db)
		if err != nil {
			return err
		}
		defer st.Close()
		run, err := createRun(st, cfg, scenario, runFlags.seed)
		if err != nil {
			return err
		}
		runID = run.RunID
		sinks = append(sinks, telemetry.NewStoreSink(st, runID))
		log.Info("recording run", "run_id", runID, "db", runFlags.db)
	}

	if runFlags.jsonl != "" {
		var w io.Writer = cmd.OutOrStdout()
		if runFlags.jsonl != "-" {
			file, err := os.Create(runFlags.jsonl)
			if err != nil {
				return fmt.Errorf("create %s: %w", runFlags.jsonl, err)
			}
			defer file.Close()
			w = file
		}
		sinks = append(sinks, telemetry.NewJSONLines(w))
	}

	if runFlags.collector != "" {
		gcfg := telemetry.DefaultGRPCSinkConfig()
		if gcfg.Labels, err = runLabels(cfg, scenario, runFlags.seed, runID); err != nil {
			return err
		}
		gs, err := telemetry.NewGRPCSink(runFlags.collector, gcfg)
		if err != nil {
			return err
		}
		sinks = append(sinks, gs)
		defer func() {
			gs.Close()
			sent, dropped, failed := gs.Stats()
			log.Info("collector stream closed", "sent", sent, "dropped", dropped, "failed", failed)
		}()
	}

	records, err := simulator.Run(cfg.Horizon, sim.NewSource(runFlags.seed), sinks)
	if err != nil {
		return err
	}

	mode := format.ParseMode(runFlags.format)
	switch {
	case runFlags.quiet:
	case runFlags.table:
		fmt.Fprintln(out, format.StepTable(records, mode))
	default:
		for _, r := range records {
			fmt.Fprintln(out, format.StepLine(r))
		}
	}

	result := eval.NewEvalHarness(eval.DefaultEvalConfig()).Run(records)
	fmt.Fprintln(out)
	fmt.Fprintln(out, format.SummaryTable([]sim.Summary{sim.Summarize(records)}, mode))
	fmt.Fprintln(out, format.EvalTable(result, mode))
	if runID != "" {
		fmt.Fprintf(out, "run_id: %s\n", runID)
	}

	if runFlags.strict && !result.Passed {
		return fmt.Errorf("safety evaluation failed: %s", result.Reason)
	}
	return nil
}
