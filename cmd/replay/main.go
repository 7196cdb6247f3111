package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/format"
	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/replay"
	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/store"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to interlock runs DB (DB mode)")
	runID := flag.String("run", "", "run ID to replay in DB mode (default: latest run)")
	fixturePath := flag.String("fixture", "", "path to fixture JSON (fixture mode)")
	mode := flag.String("format", "ascii", "table format: ascii or markdown")
	flag.Parse()

	if (*dbPath == "" && *fixturePath == "") || (*dbPath != "" && *fixturePath != "") {
		fmt.Fprintln(os.Stderr, "usage: replay --db path/to/runs.db [--run id]")
		fmt.Fprintln(os.Stderr, "       replay --fixture path/to/fixture.json")
		os.Exit(2)
	}

	var exitCode int
	if *fixturePath != "" {
		exitCode = runFixtureMode(*fixturePath, format.ParseMode(*mode))
	} else {
		exitCode = runDBMode(*dbPath, *runID, format.ParseMode(*mode))
	}
	os.Exit(exitCode)
}

// #endregion main

// #region modes

func runDBMode(dbPath, runID string, mode format.Mode) int {
	st, err := store.NewStore(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		return 2
	}
	defer st.Close()

	var run store.Run
	if runID == "" {
		run, err = st.LatestRun()
	} else {
		run, err = st.GetRun(runID)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "find run: %v\n", err)
		return 2
	}

	stored, err := st.ListRecords(run.RunID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "list records: %v\n", err)
		return 2
	}
	if len(stored) == 0 {
		fmt.Fprintf(os.Stderr, "run %s has no records\n", run.RunID)
		return 2
	}

	report, err := replay.ReplayStored(run, stored)
	if err != nil {
		fmt.Fprintf(os.Stderr, "replay: %v\n", err)
		return 2
	}
	fmt.Printf("Run %s (%s, seed %d)\n", run.RunID, run.Scenario, run.Seed)
	return printReport(report, mode)
}

func runFixtureMode(path string, mode format.Mode) int {
	f, err := replay.LoadFixture(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load fixture: %v\n", err)
		return 2
	}
	report, err := replay.Replay(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "replay: %v\n", err)
		return 2
	}
	if f.Description != "" {
		fmt.Println(f.Description)
	}
	return printReport(report, mode)
}

// #endregion modes

// #region output

// printReport outputs the comparison table and returns the exit code.
func printReport(report replay.Report, mode format.Mode) int {
	fmt.Println(format.ReplayTable(report.Results, mode))
	fmt.Println(format.EvalTable(report.Summary.Eval, mode))

	s := report.Summary
	fmt.Printf("\nSummary: %d steps, %d checked, %d match, %d diverge\n", s.TotalSteps, s.Checked, s.Matches, s.Diverged)
	if s.Diverged > 0 {
		return 1
	}
	return 0
}

// #endregion output
