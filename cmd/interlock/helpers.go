package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/config"
	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/environment"
	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/store"
	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/telemetry"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// loadConfig reads path (defaults when empty) and applies a --horizon flag
// when the user set one.
func loadConfig(cmd *cobra.Command, path string, horizon int) (config.Config, error) {
	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return config.Config{}, err
		}
	}
	if cmd.Flags().Changed("horizon") {
		cfg.Horizon = horizon
	}
	return cfg, cfg.Validate()
}

// createRun records a run header so its steps can be appended and replayed.
func createRun(st *store.Store, cfg config.Config, scenario environment.Scenario, seed uint64) (store.Run, error) {
	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return store.Run{}, fmt.Errorf("marshal config: %w", err)
	}
	return st.CreateRun(store.Run{
		Scenario:   string(scenario),
		Seed:       seed,
		Horizon:    cfg.Horizon,
		ConfigJSON: string(cfgJSON),
	})
}

// #region run-labels

// Labels a streaming sender attaches to every record so the collector can
// store a run it is able to replay.
const (
	labelRunID    = "run_id"
	labelScenario = "scenario"
	labelSeed     = "seed"    // decimal string; float64 loses seeds above 2^53
	labelHorizon  = "horizon" // number
	labelConfig   = "config"  // JSON config snapshot
)

// runLabels describes a run for the collector.
func runLabels(cfg config.Config, scenario environment.Scenario, seed uint64, runID string) (map[string]any, error) {
	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	labels := map[string]any{
		labelScenario: string(scenario),
		labelSeed:     strconv.FormatUint(seed, 10),
		labelHorizon:  float64(cfg.Horizon),
		labelConfig:   string(cfgJSON),
	}
	if runID != "" {
		labels[labelRunID] = runID
	}
	return labels, nil
}

// runFromLabels rebuilds a run header from a labelled record. Senders that
// omit horizon or config get the defaults.
func runFromLabels(fields map[string]any) store.Run {
	run := store.Run{
		Scenario:   telemetry.String(fields, labelScenario),
		Horizon:    config.DefaultHorizon,
		ConfigJSON: "{}",
	}
	if s := telemetry.String(fields, labelSeed); s != "" {
		run.Seed, _ = strconv.ParseUint(s, 10, 64)
	} else {
		run.Seed = uint64(telemetry.Float(fields, labelSeed))
	}
	if h := telemetry.Int(fields, labelHorizon); h > 0 {
		run.Horizon = h
	}
	if c := telemetry.String(fields, labelConfig); c != "" {
		run.ConfigJSON = c
	}
	return run
}

// #endregion run-labels
