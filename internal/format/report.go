package format

import (
	"fmt"
	"strings"

	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/controller"
	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/environment"
	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/eval"
	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/replay"
	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/sim"
	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/store"
)

// #region step

// StepLine renders one control step as a single console line.
func StepLine(r sim.ControlRecord) string {
	return fmt.Sprintf("[t=%d] real=%s est=%.2f unc=%.2f attack=%t action=%s v=%s",
		r.T, num(r.LatentState), r.Belief.Estimate, r.Belief.Uncertainty,
		r.Scenario == environment.Attack && r.Corrupted, r.Action, num(r.Velocity))
}

// StepTable renders every step of a run with its action scores.
func StepTable(records []sim.ControlRecord, m Mode) string {
	tb := NewTable(m)
	tb.Header("t", "real", "reading", "est", "unc", "anomaly", "EFE maintain", "EFE slow", "EFE stop", "action", "v")
	for _, r := range records {
		scores := []any{"-", "-", "-"}
		if !r.Decision.Overridden {
			scores = []any{
				fmt.Sprintf("%.3f", r.Decision.Scores.Maintain),
				fmt.Sprintf("%.3f", r.Decision.Scores.EpistemicSlow),
				fmt.Sprintf("%.3f", r.Decision.Scores.PragmaticStop),
			}
		}
		row := []any{r.T, num(r.LatentState), fmt.Sprintf("%.3f", r.Reading),
			fmt.Sprintf("%.2f", r.Belief.Estimate), fmt.Sprintf("%.2f", r.Belief.Uncertainty),
			mark(r.Belief.AnomalyDetected)}
		row = append(row, scores...)
		row = append(row, actionLabel(r.Action, r.Decision.Overridden), num(r.Velocity))
		tb.Row(row...)
	}
	tb.AlignRight(1)
	return tb.String()
}

// #endregion step

// #region summary

// SummaryTable renders one row per scenario.
func SummaryTable(summaries []sim.Summary, m Mode) string {
	tb := NewTable(m)
	tb.Header("scenario", "steps", "maintain", "slow", "stop", "anomalies", "overrides", "first override", "mean v")
	for _, s := range summaries {
		first := "-"
		if s.FirstOverride >= 0 {
			first = fmt.Sprintf("t=%d", s.FirstOverride)
		}
		tb.Row(string(s.Scenario), s.Steps,
			s.Actions[controller.Maintain], s.Actions[controller.EpistemicSlow], s.Actions[controller.PragmaticStop],
			s.Anomalies, s.Overrides, first, fmt.Sprintf("%.2f", s.MeanVelocity))
	}
	return tb.String()
}

// EvalTable renders eval metrics with a pass/fail footer.
func EvalTable(r eval.EvalResult, m Mode) string {
	tb := NewTable(m)
	tb.Header("metric", "value", "pass")
	for _, metric := range r.Metrics {
		tb.Row(metric.Name, num(metric.Value), mark(metric.Pass))
	}
	tb.Footer("result", r.Reason, mark(r.Passed))
	return tb.String()
}

// ReplayTable renders expected vs replayed actions.
func ReplayTable(results []replay.ReplayResult, m Mode) string {
	tb := NewTable(m)
	tb.Header("t", "expected", "replayed", "match")
	diverged := 0
	for _, r := range results {
		match := "OK"
		if !r.Match {
			match = "DIFF"
			diverged++
		}
		tb.Row(r.T, r.Expected, r.Action, match)
	}
	tb.Footer("total", len(results), fmt.Sprintf("%d diverge", diverged), "")
	return tb.String()
}

// RunsTable renders stored runs with their record counts.
func RunsTable(runs []store.RunWithCounts, m Mode) string {
	tb := NewTable(m)
	tb.Header("run", "scenario", "seed", "horizon", "steps", "anomalies", "stops", "created")
	for _, r := range runs {
		tb.Row(r.RunID, r.Scenario, r.Seed, r.Horizon, r.Steps, r.Anomalies, r.Stops,
			r.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return tb.String()
}

// RecordsTable renders stored records of one run.
func RecordsTable(records []store.Record, m Mode) string {
	tb := NewTable(m)
	tb.Header("t", "real", "reading", "est", "unc", "anomaly", "action", "v", "reason")
	tb.AlignRight(1)
	for _, r := range records {
		tb.Row(r.T, num(r.LatentState), fmt.Sprintf("%.3f", r.Reading),
			fmt.Sprintf("%.2f", r.Estimate), fmt.Sprintf("%.2f", r.Uncertainty),
			mark(r.Anomaly), actionLabel(controller.Action(r.Action), r.Overridden), num(r.Velocity),
			clip(r.Reason, 48))
	}
	return tb.String()
}

// #endregion summary

// #region helpers

func mark(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

// clip keeps at most n runes of s, ending clipped text with an ellipsis.
func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func actionLabel(a controller.Action, overridden bool) string {
	if overridden {
		return string(a) + " (override)"
	}
	return string(a)
}

// num prints whole numbers without a fraction: 0.5 stays 0.5, 10 prints as 10.
func num(v float64) string {
	s := fmt.Sprintf("%.3f", v)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

// #endregion helpers
