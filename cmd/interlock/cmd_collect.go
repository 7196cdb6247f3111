package main

import (
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/logging"
	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/store"
	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/telemetry"
)

var collectFlags struct {
	listen string
	db     string
	jsonl  string
}

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Serve the telemetry collector and store streamed control records",
	RunE:  runCollect,
}

func init() {
	f := collectCmd.Flags()
	f.StringVar(&collectFlags.listen, "listen", envOr("INTERLOCK_COLLECTOR_ADDR", "localhost:50071"), "Address to listen on")
	f.StringVar(&collectFlags.db, "db", envOr("INTERLOCK_DB", ""), "SQLite file to store received runs in")
	f.StringVar(&collectFlags.jsonl, "jsonl", "-", "Write received records as JSON lines to this file (- for stdout, empty to disable)")
}

func runCollect(cmd *cobra.Command, _ []string) error {
	log := logging.New("collect")

	var sinks telemetry.Multi
	if collectFlags.jsonl != "" {
		var w io.Writer = cmd.OutOrStdout()
		if collectFlags.jsonl != "-" {
			file, err := os.Create(collectFlags.jsonl)
			if err != nil {
				return fmt.Errorf("create %s: %w", collectFlags.jsonl, err)
			}
			defer file.Close()
			w = file
		}
		sinks = append(sinks, telemetry.NewJSONLines(w))
	}
	if collectFlags.db != "" {
		st, err := store.NewStore(collectFlags.db)
		if err != nil {
			return err
		}
		defer st.Close()
		sinks = append(sinks, newRunRouter(st))
	}

	lis, err := net.Listen("tcp", collectFlags.listen)
	if err != nil {
		return fmt.Errorf("listen %s: %w", collectFlags.listen, err)
	}
	srv := grpc.NewServer()
	telemetry.RegisterCollector(srv, telemetry.NewCollector(sinks))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		log.Info("shutting down collector")
		srv.GracefulStop()
	}()

	log.Info("collector listening", "addr", lis.Addr().String())
	if err := srv.Serve(lis); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// #region run-router

// runRouter stores streamed records, opening one local run per sender run.
// Senders are told apart by their run_id label, or by scenario and seed.
type runRouter struct {
	store *store.Store

	mu   sync.Mutex
	runs map[string]*telemetry.StoreSink
}

func newRunRouter(st *store.Store) *runRouter {
	return &runRouter{store: st, runs: make(map[string]*telemetry.StoreSink)}
}

func (r *runRouter) Log(fields map[string]any) error {
	header := runFromLabels(fields)
	key := telemetry.String(fields, labelRunID)
	if key == "" {
		key = fmt.Sprintf("%s/%d", header.Scenario, header.Seed)
	}

	r.mu.Lock()
	sink, ok := r.runs[key]
	if !ok {
		run, err := r.store.CreateRun(header)
		if err != nil {
			r.mu.Unlock()
			return err
		}
		sink = telemetry.NewStoreSink(r.store, run.RunID)
		r.runs[key] = sink
		logging.New("collect").Info("new run", "sender", key, "run_id", run.RunID)
	}
	r.mu.Unlock()

	return sink.Log(fields)
}

// #endregion run-router
