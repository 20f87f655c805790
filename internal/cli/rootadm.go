package cli

import (
	"github.com/spf13/cobra"
)

var rootAdmCmd = &cobra.Command{
	Use:   "advimportadm",
	Short: "Administrative CLI for the advimport database",
	Long: `advimportadm is the administrative companion to advimport. It handles
database lifecycle: creating the store and applying schema migrations.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// ExecuteAdmin runs the admin root command
func ExecuteAdmin() error {
	return rootAdmCmd.Execute()
}

func init() {
	rootAdmCmd.PersistentFlags().String("db", "", "Path to database file (overrides ADVIMPORT_DB_PATH)")
}
