package format_test

import (
	"strings"
	"testing"

	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/config"
	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/environment"
	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/eval"
	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/format"
	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/replay"
	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/sim"
	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/store"
)

func attackRecords(t *testing.T) []sim.ControlRecord {
	t.Helper()
	s, err := sim.NewSimulator(config.Default(), environment.Attack)
	if err != nil {
		t.Fatalf("NewSimulator: %v", err)
	}
	records, err := s.Run(50, sim.NewSource(42), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return records
}

func TestASCII_BasicTable(t *testing.T) {
	tb := format.NewTable(format.ASCII)
	tb.Header("scenario", "stops")
	tb.Row("attack", 11)
	out := tb.String()

	if !strings.Contains(strings.ToLower(out), "scenario") || !strings.Contains(out, "attack") {
		t.Errorf("missing content:\n%s", out)
	}
	if !strings.Contains(out, "───") {
		t.Errorf("expected box-drawing characters in ASCII output:\n%s", out)
	}
}

func TestMarkdown_WithFooter(t *testing.T) {
	tb := format.NewTable(format.ParseMode("markdown"))
	tb.Header("t", "action")
	tb.Row(0, "maintain")
	tb.Footer("total", 1)
	out := tb.String()

	if !strings.Contains(out, "| t") || !strings.Contains(out, "---") {
		t.Errorf("expected markdown table:\n%s", out)
	}
	if !strings.Contains(out, "total") {
		t.Errorf("expected footer:\n%s", out)
	}
}

func TestStepLine(t *testing.T) {
	records := attackRecords(t)

	got := format.StepLine(records[25])
	want := "[t=25] real=0.5 est=0.50 unc=1.00 attack=true action=pragmatic_stop v=0"
	if got != want {
		t.Fatalf("StepLine:\n got %q\nwant %q", got, want)
	}

	first := format.StepLine(records[0])
	if !strings.HasPrefix(first, "[t=0] real=0 ") || !strings.HasSuffix(first, "attack=false action=maintain v=10") {
		t.Fatalf("unexpected first line %q", first)
	}
}

func TestStepTableMarksOverrides(t *testing.T) {
	out := format.StepTable(attackRecords(t), format.ASCII)
	if !strings.Contains(out, "pragmatic_stop (override)") {
		t.Fatalf("override not labelled:\n%s", out)
	}
	if !strings.Contains(strings.ToLower(out), "efe maintain") {
		t.Fatalf("missing score header:\n%s", out)
	}
}

func TestSummaryTable(t *testing.T) {
	s := sim.Summarize(attackRecords(t))
	out := format.SummaryTable([]sim.Summary{s}, format.Markdown)

	if !strings.Contains(out, "attack") || !strings.Contains(out, "t=20") {
		t.Fatalf("summary missing scenario or first override:\n%s", out)
	}
}

func TestEvalAndReplayTables(t *testing.T) {
	res := eval.NewEvalHarness(eval.DefaultEvalConfig()).Run(attackRecords(t))
	out := format.EvalTable(res, format.ASCII)
	if !strings.Contains(out, eval.MetricDetection) || !strings.Contains(strings.ToLower(out), "all checks passed") {
		t.Fatalf("eval table:\n%s", out)
	}

	rt := format.ReplayTable([]replay.ReplayResult{
		{T: 1, Expected: "maintain", Action: "maintain", Match: true},
		{T: 2, Expected: "maintain", Action: "epistemic_slow"},
	}, format.ASCII)
	if !strings.Contains(rt, "DIFF") || !strings.Contains(strings.ToLower(rt), "1 diverge") {
		t.Fatalf("replay table:\n%s", rt)
	}
}

func TestRecordsTableClipsReason(t *testing.T) {
	long := strings.Repeat("override ", 10)
	out := format.RecordsTable([]store.Record{
		{T: 25, LatentState: 0.5, Action: "pragmatic_stop", Overridden: true, Anomaly: true, Reason: long},
	}, format.Markdown)

	if strings.Contains(out, long) {
		t.Fatalf("reason not clipped:\n%s", out)
	}
	if !strings.Contains(out, "…") || !strings.Contains(out, "pragmatic_stop (override)") {
		t.Fatalf("unexpected records table:\n%s", out)
	}
}
