package main

import (
	"github.com/spf13/cobra"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/logging"
	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/mcp"
	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/store"
)

var serveFlags struct {
	config string
	db     string
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the simulator as MCP tools over stdio",
	Long: `Starts an MCP server over stdin/stdout exposing run_scenario and
compare_scenarios, plus list_runs when --db is set.`,
	RunE: runServe,
}

func init() {
	f := serveCmd.Flags()
	f.StringVar(&serveFlags.config, "config", "", "YAML or JSON config file (defaults when empty)")
	f.StringVar(&serveFlags.db, "db", envOr("INTERLOCK_DB", ""), "SQLite file whose runs list_runs reports")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd, serveFlags.config, 0)
	if err != nil {
		return err
	}

	var st *store.Store
	if serveFlags.db != "" {
		if st, err = store.NewStore(serveFlags.db); err != nil {
			return err
		}
		defer st.Close()
	}

	srv := mcp.NewServer(cfg, st, version)
	logging.New("mcp").Info("starting interlock MCP server over stdio")
	return srv.MCPServer.Run(cmd.Context(), &sdkmcp.StdioTransport{})
}
