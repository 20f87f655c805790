package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "advimport",
	Short: "Import adventure folders and journals into a local document store",
	Long: `advimport reconciles an authoring tool's adventure exports (folders.json
and adv.json) into a SQLite document store. Re-running an import updates
what is already there instead of duplicating it, and cross-reference links
between journals are rewritten to the store's own ids.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to database file (overrides ADVIMPORT_DB_PATH)")
	rootCmd.PersistentFlags().String("as", "", "Actor recorded on writes (overrides ADVIMPORT_ACTOR)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error (overrides ADVIMPORT_LOG_LEVEL)")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Output format: table, json, ndjson, yaml, tsv")
}
