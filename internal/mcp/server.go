// Package mcp exposes the simulator as MCP tools so an agent can run
// scenarios, compare them and browse recorded runs.
package mcp

import (
	"context"
	"fmt"
	"log/slog"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/config"
	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/controller"
	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/environment"
	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/eval"
	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/logging"
	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/sim"
	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/store"
)

// #region server

// Server wraps the MCP SDK server.
type Server struct {
	MCPServer *sdkmcp.Server

	config config.Config
	store  *store.Store // optional; list_runs is only registered when set
	log    *slog.Logger
}

// NewServer creates a server running scenarios with cfg. st may be nil.
func NewServer(cfg config.Config, st *store.Store, version string) *Server {
	s := &Server{
		MCPServer: sdkmcp.NewServer(&sdkmcp.Implementation{Name: "interlock", Version: version}, nil),
		config:    cfg,
		store:     st,
		log:       logging.New("mcp"),
	}
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "run_scenario",
		Description: "Run one scenario (nominal, degraded or attack) and return its summary and safety evaluation.",
	}, s.handleRunScenario)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "compare_scenarios",
		Description: "Run every scenario with the same seed and return one summary per scenario.",
	}, s.handleCompare)

	if s.store != nil {
		sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
			Name:        "list_runs",
			Description: "List recorded runs, most recent first.",
		}, s.handleListRuns)
	}
}

// #endregion server

// #region types

type runScenarioInput struct {
	Scenario     string `json:"scenario" jsonschema:"nominal, degraded or attack"`
	Seed         uint64 `json:"seed,omitempty" jsonschema:"seed of the sensor noise source (default 0)"`
	Horizon      int    `json:"horizon,omitempty" jsonschema:"number of steps (default from config, at most 10000)"`
	IncludeSteps bool   `json:"include_steps,omitempty" jsonschema:"return every control step"`
}

type stepOutput struct {
	T           int     `json:"t"`
	Real        float64 `json:"real"`
	Reading     float64 `json:"reading"`
	Estimate    float64 `json:"estimate"`
	Uncertainty float64 `json:"uncertainty"`
	Anomaly     bool    `json:"anomaly"`
	Overridden  bool    `json:"overridden"`
	Action      string  `json:"action"`
	Velocity    float64 `json:"velocity"`
}

type summaryOutput struct {
	Scenario      string  `json:"scenario"`
	Steps         int     `json:"steps"`
	Maintain      int     `json:"maintain"`
	Slow          int     `json:"epistemic_slow"`
	Stop          int     `json:"pragmatic_stop"`
	Anomalies     int     `json:"anomalies"`
	Overrides     int     `json:"overrides"`
	FirstOverride int     `json:"first_override"`
	MeanVelocity  float64 `json:"mean_velocity"`
	EvalPassed    bool    `json:"eval_passed"`
	EvalReason    string  `json:"eval_reason"`
}

type runScenarioOutput struct {
	Summary summaryOutput `json:"summary"`
	Steps   []stepOutput  `json:"steps,omitempty"`
}

type compareInput struct {
	Seed    uint64 `json:"seed,omitempty" jsonschema:"seed shared by every scenario (default 0)"`
	Horizon int    `json:"horizon,omitempty" jsonschema:"number of steps (default from config, at most 10000)"`
}

type compareOutput struct {
	Scenarios []summaryOutput `json:"scenarios"`
}

type listRunsInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum runs to return (default 20)"`
}

type runOutput struct {
	RunID     string `json:"run_id"`
	Scenario  string `json:"scenario"`
	Seed      uint64 `json:"seed"`
	Horizon   int    `json:"horizon"`
	Steps     int    `json:"steps"`
	Anomalies int    `json:"anomalies"`
	Stops     int    `json:"stops"`
	CreatedAt string `json:"created_at"`
}

type listRunsOutput struct {
	Runs []runOutput `json:"runs"`
}

// #endregion types

// #region handlers

func (s *Server) handleRunScenario(_ context.Context, _ *sdkmcp.CallToolRequest, in runScenarioInput) (*sdkmcp.CallToolResult, runScenarioOutput, error) {
	scenario, err := environment.ParseScenario(in.Scenario)
	if err != nil {
		return nil, runScenarioOutput{}, err
	}
	cfg, err := s.withHorizon(in.Horizon)
	if err != nil {
		return nil, runScenarioOutput{}, err
	}
	simulator, err := sim.NewSimulator(cfg, scenario)
	if err != nil {
		return nil, runScenarioOutput{}, err
	}
	records, err := simulator.Run(cfg.Horizon, sim.NewSource(in.Seed), nil)
	if err != nil {
		return nil, runScenarioOutput{}, err
	}
	s.log.Info("run_scenario", "scenario", string(scenario), "seed", in.Seed, "steps", len(records))

	out := runScenarioOutput{Summary: summarize(records)}
	if in.IncludeSteps {
		out.Steps = make([]stepOutput, len(records))
		for i, r := range records {
			out.Steps[i] = stepOutput{
				T:           r.T,
				Real:        r.LatentState,
				Reading:     r.Reading,
				Estimate:    r.Belief.Estimate,
				Uncertainty: r.Belief.Uncertainty,
				Anomaly:     r.Belief.AnomalyDetected,
				Overridden:  r.Decision.Overridden,
				Action:      string(r.Action),
				Velocity:    r.Velocity,
			}
		}
	}
	return nil, out, nil
}

func (s *Server) handleCompare(ctx context.Context, _ *sdkmcp.CallToolRequest, in compareInput) (*sdkmcp.CallToolResult, compareOutput, error) {
	cfg, err := s.withHorizon(in.Horizon)
	if err != nil {
		return nil, compareOutput{}, err
	}
	results, err := sim.Compare(ctx, cfg, in.Seed, nil, nil)
	if err != nil {
		return nil, compareOutput{}, err
	}
	out := compareOutput{Scenarios: make([]summaryOutput, len(results))}
	for i, r := range results {
		out.Scenarios[i] = summarize(r.Records)
	}
	return nil, out, nil
}

func (s *Server) handleListRuns(_ context.Context, _ *sdkmcp.CallToolRequest, in listRunsInput) (*sdkmcp.CallToolResult, listRunsOutput, error) {
	limit := in.Limit
	if limit <= 0 {
		limit = 20
	}
	runs, err := s.store.ListRuns(limit)
	if err != nil {
		return nil, listRunsOutput{}, fmt.Errorf("list runs: %w", err)
	}
	out := listRunsOutput{Runs: make([]runOutput, len(runs))}
	for i, r := range runs {
		out.Runs[i] = runOutput{
			RunID:     r.RunID,
			Scenario:  r.Scenario,
			Seed:      r.Seed,
			Horizon:   r.Horizon,
			Steps:     r.Steps,
			Anomalies: r.Anomalies,
			Stops:     r.Stops,
			CreatedAt: r.CreatedAt.Format("2006-01-02T15:04:05Z"),
		}
	}
	return nil, out, nil
}

// #endregion handlers

// #region helpers

// MaxHorizon bounds the steps an agent may request in one call.
const MaxHorizon = 10000

func (s *Server) withHorizon(h int) (config.Config, error) {
	cfg := s.config
	if h > MaxHorizon {
		return config.Config{}, fmt.Errorf("horizon %d exceeds the limit of %d steps", h, MaxHorizon)
	}
	if h > 0 {
		cfg.Horizon = h
	}
	return cfg, nil
}

func summarize(records []sim.ControlRecord) summaryOutput {
	sum := sim.Summarize(records)
	res := eval.NewEvalHarness(eval.DefaultEvalConfig()).Run(records)
	return summaryOutput{
		Scenario:      string(sum.Scenario),
		Steps:         sum.Steps,
		Maintain:      sum.Actions[controller.Maintain],
		Slow:          sum.Actions[controller.EpistemicSlow],
		Stop:          sum.Actions[controller.PragmaticStop],
		Anomalies:     sum.Anomalies,
		Overrides:     sum.Overrides,
		FirstOverride: sum.FirstOverride,
		MeanVelocity:  sum.MeanVelocity,
		EvalPassed:    res.Passed,
		EvalReason:    res.Reason,
	}
}

// #endregion helpers
