// interlock runs the railway switch interlock simulation.
//
// Usage:
//
//	interlock run --scenario=attack [--seed=42] [--config=interlock.yaml] [--db=runs.db] [--collector=host:port]
//	interlock compare [--seed=42] [--db=runs.db] [--format=markdown]
//	interlock collect --listen=:50071 [--db=runs.db] [--jsonl=records.jsonl]
//	interlock serve [--db=runs.db]
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/switch-interlock/go-controller/internal/logging"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	logLevel  string
	logFormat string
}

var rootCmd = &cobra.Command{
	Use:   "interlock",
	Short: "Active-inference safety controller for a railway switch under sensor spoofing",
	Long: "interlock simulates a railway switch crossing, a belief estimator over a\n" +
		"possibly spoofed position sensor, and an expected-free-energy controller\n" +
		"with a hard stop override when an anomaly coincides with an attack.",
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		logging.Init(logging.ParseLevel(rootFlags.logLevel), rootFlags.logFormat, cmd.ErrOrStderr())
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rootFlags.logLevel, "log-level", envOr("INTERLOCK_LOG_LEVEL", "warn"), "Log level: debug, info, warn, error")
	pf.StringVar(&rootFlags.logFormat, "log-format", "text", "Log format: text or json")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(collectCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
