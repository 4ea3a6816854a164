package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "examgen",
	Short: "Practice exam question generator",
	Long: "examgen asks an LLM for single-answer multiple-choice practice questions " +
		"on a chosen exam subject, in the terminal, on the command line or over HTTP.",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runApp(cmd)
	},
}

// Execute runs the root command. Cancelling ctx stops any action in flight.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "Config file (default: ./examgen.yaml or $XDG_CONFIG_HOME/examgen/examgen.yaml)")
	pf.String("log-level", "", "Log level: debug, info, warn or error")
	pf.String("log-file", "", "Write logs to this file instead of stderr")
	pf.Bool("history", false, "Record every provider call in the local history database")
	pf.String("db", "", "Path to the history database (implies --history; overrides EXAMGEN_DB)")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(catalogCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(updateCmd)
}
