package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/lherron/advimport/internal/cli/appctx"
	"github.com/spf13/cobra"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Print the actor recorded on writes",
	Long:  `Displays the actor name that imports record as created_by/updated_by, and where it was configured.`,
	RunE:  appctx.WithApp(appctx.Options{NeedsActor: true}, runWhoami),
}

var whoamiJSON bool

func init() {
	rootCmd.AddCommand(whoamiCmd)
	whoamiCmd.Flags().BoolVar(&whoamiJSON, "json", false, "Output as JSON")
}

func runWhoami(app *appctx.App, cmd *cobra.Command, args []string) error {
	source := "config default_actor"
	if os.Getenv("ADVIMPORT_ACTOR") != "" {
		source = "environment variable ADVIMPORT_ACTOR"
	}
	if f := cmd.Flag("as"); f != nil && f.Changed {
		source = "command-line flag --as"
	}

	if whoamiJSON {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(map[string]string{"actor": app.Actor, "source": source})
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", app.Actor, source)
	return nil
}
