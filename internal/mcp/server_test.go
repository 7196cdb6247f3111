package mcp_test

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/config"
	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/mcp"
	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/store"
)

func connectInMemory(t *testing.T, ctx context.Context, srv *mcp.Server) *sdkmcp.ClientSession {
	t.Helper()
	t1, t2 := sdkmcp.NewInMemoryTransports()
	if _, err := srv.MCPServer.Connect(ctx, t1, nil); err != nil {
		t.Fatalf("server.Connect: %v", err)
	}
	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	session, err := client.Connect(ctx, t2, nil)
	if err != nil {
		t.Fatalf("client.Connect: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session
}

func callTool(t *testing.T, ctx context.Context, session *sdkmcp.ClientSession, name string, args map[string]any) map[string]any {
	t.Helper()
	res, err := session.CallTool(ctx, &sdkmcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	if res.IsError {
		t.Fatalf("CallTool(%s) returned error: %v", name, res.Content)
	}
	for _, c := range res.Content {
		if tc, ok := c.(*sdkmcp.TextContent); ok {
			result := make(map[string]any)
			if err := json.Unmarshal([]byte(tc.Text), &result); err != nil {
				t.Fatalf("unmarshal tool result: %v (text: %s)", err, tc.Text)
			}
			return result
		}
	}
	t.Fatalf("no text content in tool result")
	return nil
}

func TestRunScenarioAttack(t *testing.T) {
	ctx := context.Background()
	session := connectInMemory(t, ctx, mcp.NewServer(config.Default(), nil, "test"))

	out := callTool(t, ctx, session, "run_scenario", map[string]any{
		"scenario":      "attack",
		"seed":          42,
		"include_steps": true,
	})

	summary, ok := out["summary"].(map[string]any)
	if !ok {
		t.Fatalf("missing summary: %v", out)
	}
	if summary["overrides"].(float64) != 11 || summary["first_override"].(float64) != 20 {
		t.Fatalf("unexpected summary: %v", summary)
	}
	if summary["eval_passed"] != true {
		t.Fatalf("attack run should pass eval: %v", summary)
	}
	steps, ok := out["steps"].([]any)
	if !ok || len(steps) != 50 {
		t.Fatalf("expected 50 steps, got %v", out["steps"])
	}
	step25 := steps[25].(map[string]any)
	if step25["action"] != "pragmatic_stop" || step25["overridden"] != true {
		t.Fatalf("unexpected step 25: %v", step25)
	}
}

func TestRunScenarioRejectsUnknownScenario(t *testing.T) {
	ctx := context.Background()
	session := connectInMemory(t, ctx, mcp.NewServer(config.Default(), nil, "test"))

	res, err := session.CallTool(ctx, &sdkmcp.CallToolParams{
		Name:      "run_scenario",
		Arguments: map[string]any{"scenario": "jamming"},
	})
	if err == nil && !res.IsError {
		t.Fatal("expected an error for an unknown scenario")
	}
}

func TestHorizonIsCapped(t *testing.T) {
	ctx := context.Background()
	session := connectInMemory(t, ctx, mcp.NewServer(config.Default(), nil, "test"))

	calls := map[string]map[string]any{
		"run_scenario":      {"scenario": "nominal", "horizon": mcp.MaxHorizon + 1},
		"compare_scenarios": {"horizon": mcp.MaxHorizon + 1},
	}
	for tool, args := range calls {
		res, err := session.CallTool(ctx, &sdkmcp.CallToolParams{Name: tool, Arguments: args})
		if err == nil && !res.IsError {
			t.Fatalf("%s accepted a horizon above %d", tool, mcp.MaxHorizon)
		}
	}
}

func TestCompareScenarios(t *testing.T) {
	ctx := context.Background()
	session := connectInMemory(t, ctx, mcp.NewServer(config.Default(), nil, "test"))

	out := callTool(t, ctx, session, "compare_scenarios", map[string]any{"seed": 3, "horizon": 40})
	scenarios, ok := out["scenarios"].([]any)
	if !ok || len(scenarios) != 3 {
		t.Fatalf("expected 3 scenarios, got %v", out)
	}
	for i, want := range []string{"nominal", "degraded", "attack"} {
		s := scenarios[i].(map[string]any)
		if s["scenario"] != want || s["steps"].(float64) != 40 {
			t.Fatalf("scenario %d: %v", i, s)
		}
	}
}

func TestListRunsOnlyWithStore(t *testing.T) {
	ctx := context.Background()

	bare := connectInMemory(t, ctx, mcp.NewServer(config.Default(), nil, "test"))
	tools, err := bare.ListTools(ctx, nil)
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	for _, tool := range tools.Tools {
		if tool.Name == "list_runs" {
			t.Fatal("list_runs registered without a store")
		}
	}

	st, err := store.NewStore(filepath.Join(t.TempDir(), "mcp.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer st.Close()
	if _, err := st.CreateRun(store.Run{Scenario: "nominal", Seed: 1, Horizon: 50, ConfigJSON: "{}"}); err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	session := connectInMemory(t, ctx, mcp.NewServer(config.Default(), st, "test"))
	out := callTool(t, ctx, session, "list_runs", map[string]any{})
	runs, ok := out["runs"].([]any)
	if !ok || len(runs) != 1 {
		t.Fatalf("expected 1 run, got %v", out)
	}
	if runs[0].(map[string]any)["scenario"] != "nominal" {
		t.Fatalf("unexpected run: %v", runs[0])
	}
}
