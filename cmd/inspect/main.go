package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/format"
	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/store"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to interlock runs DB")
	last := flag.Int("last", 20, "show N most recent runs")
	runID := flag.String("run", "", "show every record of one run")
	from := flag.Int("from", 0, "first step shown in run detail")
	to := flag.Int("to", -1, "last step shown in run detail (-1: all)")
	mode := flag.String("format", "ascii", "table format: ascii or markdown")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/runs.db [--last N] [--run id [--from t] [--to t]] [--json]")
		os.Exit(2)
	}

	st, err := store.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	m := format.ParseMode(*mode)
	if *runID != "" {
		err = runDetailMode(st, *runID, *from, *to, m, *jsonOut)
	} else {
		err = runListMode(st, *last, m, *jsonOut)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region list-mode

type listRow struct {
	RunID     string `json:"run_id"`
	Scenario  string `json:"scenario"`
	Seed      uint64 `json:"seed"`
	Horizon   int    `json:"horizon"`
	Steps     int    `json:"steps"`
	Anomalies int    `json:"anomalies"`
	Stops     int    `json:"stops"`
	CreatedAt string `json:"created_at"`
}

func runListMode(st *store.Store, last int, mode format.Mode, jsonOut bool) error {
	runs, err := st.ListRuns(last)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(os.Stderr, "no runs found")
		return nil
	}

	if jsonOut {
		rows := make([]listRow, len(runs))
		for i, r := range runs {
			rows[i] = listRow{
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
		return printJSON(rows)
	}
	fmt.Println(format.RunsTable(runs, mode))
	return nil
}

// #endregion list-mode

// #region detail-mode

type detailOutput struct {
	RunID     string          `json:"run_id"`
	Scenario  string          `json:"scenario"`
	Seed      uint64          `json:"seed"`
	Horizon   int             `json:"horizon"`
	CreatedAt string          `json:"created_at"`
	Config    json.RawMessage `json:"config,omitempty"`
	Records   []store.Record  `json:"records"`
}

func runDetailMode(st *store.Store, runID string, from, to int, mode format.Mode, jsonOut bool) error {
	run, err := st.GetRun(runID)
	if err != nil {
		return err
	}
	all, err := st.ListRecords(runID)
	if err != nil {
		return err
	}
	records := window(all, from, to)

	if jsonOut {
		out := detailOutput{
			RunID:     run.RunID,
			Scenario:  run.Scenario,
			Seed:      run.Seed,
			Horizon:   run.Horizon,
			CreatedAt: run.CreatedAt.Format("2006-01-02T15:04:05Z"),
			Records:   records,
		}
		if json.Valid([]byte(run.ConfigJSON)) {
			out.Config = json.RawMessage(run.ConfigJSON)
		}
		return printJSON(out)
	}

	fmt.Printf("Run:      %s\n", run.RunID)
	fmt.Printf("Scenario: %s\n", run.Scenario)
	fmt.Printf("Seed:     %d\n", run.Seed)
	fmt.Printf("Horizon:  %d\n", run.Horizon)
	fmt.Printf("Created:  %s\n", run.CreatedAt.Format("2006-01-02T15:04:05Z"))
	fmt.Printf("Steps:    %d of %d\n\n", len(records), len(all))
	fmt.Println(format.RecordsTable(records, mode))
	return nil
}

// window keeps records with from <= t <= to; a negative to means no upper bound.
func window(records []store.Record, from, to int) []store.Record {
	out := make([]store.Record, 0, len(records))
	for _, r := range records {
		if r.T < from || (to >= 0 && r.T > to) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// #endregion detail-mode

// #region output

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

// #endregion output
