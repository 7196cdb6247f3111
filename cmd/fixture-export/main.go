package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/replay"
	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/store"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to interlock runs DB")
	runID := flag.String("run", "", "run ID to export (default: latest run)")
	outPath := flag.String("out", "", "output fixture JSON path")
	flag.Parse()

	if *dbPath == "" || *outPath == "" {
		fmt.Fprintln(os.Stderr, "usage: fixture-export --db path/to/runs.db --out path/to/fixture.json [--run id]")
		os.Exit(2)
	}

	if err := run(*dbPath, *runID, *outPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region extract

func run(dbPath, runID, outPath string) error {
	st, err := store.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer st.Close()

	var r store.Run
	if runID == "" {
		r, err = st.LatestRun()
	} else {
		r, err = st.GetRun(runID)
	}
	if err != nil {
		return fmt.Errorf("find run: %w", err)
	}

	records, err := st.ListRecords(r.RunID)
	if err != nil {
		return fmt.Errorf("list records: %w", err)
	}
	if len(records) == 0 {
		return fmt.Errorf("run %s has no records", r.RunID)
	}

	fmt.Printf("Found %d records for run %s\n", len(records), r.RunID)
	return writeFixture(replay.FixtureFromRun(r, records), outPath)
}

// #endregion extract

// #region output

func writeFixture(fixture replay.Fixture, outPath string) error {
	data, err := json.MarshalIndent(fixture, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}

	if err := os.WriteFile(outPath, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", outPath, err)
	}

	fmt.Printf("Wrote fixture to %s (%d bytes, %d steps)\n", outPath, len(data), len(fixture.ExpectedResults))
	return nil
}

// #endregion output
