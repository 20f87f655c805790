package cli

import (
	"bufio"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/lherron/advimport/internal/cli/appctx"
	"github.com/lherron/advimport/internal/importer"
	"github.com/lherron/advimport/internal/render"
	"github.com/lherron/advimport/internal/webhooks"
	"github.com/spf13/cobra"
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Run imports from trigger lines read on stdin",
	Long: `Shell reads lines from stdin. A line whose first word is the trigger
command (default /zobs, see ADVIMPORT_TRIGGER_COMMAND) runs an import of the
target named by its second word. Every other line is copied to stdout
unchanged, so shell can sit in a pipeline in front of another consumer.

A failed import is reported and the shell keeps reading.

Examples:
  echo "/zobs saltmarsh" | advimport shell
  tail -f chat.log | advimport shell --command /import
`,
	Args: cobra.NoArgs,
	RunE: appctx.WithApp(appctx.WithActor(), runShell),
}

var shellCommand string

func init() {
	rootCmd.AddCommand(shellCmd)

	shellCmd.Flags().StringVar(&shellCommand, "command", "", "Trigger command (overrides ADVIMPORT_TRIGGER_COMMAND)")
	shellCmd.Flags().StringVar(&runDir, "dir", "", "Imports directory (overrides ADVIMPORT_IMPORTS_DIR)")
	shellCmd.Flags().StringVar(&runURL, "url", "", "Base URL serving the imports layout (overrides ADVIMPORT_IMPORTS_URL)")
	shellCmd.Flags().BoolVar(&runDeferParents, "defer-parents", false, "Assign parents that appear later in the export after the forward pass")
}

func runShell(app *appctx.App, cmd *cobra.Command, args []string) error {
	command := app.Config.TriggerCommand
	if shellCommand != "" {
		command = shellCommand
	}

	stderr := cmd.ErrOrStderr()
	out := cmd.OutOrStdout()
	trigger := &importer.Trigger{
		Command:  command,
		Importer: newImporter(app, cmd, render.NewTerminal(stderr, "advimport: ")),
		OnReport: func(rep *importer.Report, err error) {
			webhooks.DispatchReport(app.Config.WebhookURLs, rep, err)
			s := rep.Summary()
			fmt.Fprintf(stderr, "%s: %d folders, %d journals, %d links resolved, %d unresolved, %d failed\n",
				displayTarget(s.Target), s.Folders, s.Journals, s.LinksResolved, s.LinksUnresolved, s.Failed)
		},
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for scanner.Scan() {
		if ctx.Err() != nil {
			break
		}
		line := scanner.Text()
		handled, err := trigger.Handle(ctx, line)
		if err != nil {
			app.Logger.Warn("import failed", "line", line, "error", err)
		}
		if !handled {
			fmt.Fprintln(out, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return exitError(1, fmt.Errorf("failed to read stdin: %w", err))
	}
	return nil
}

func displayTarget(target string) string {
	if target == "" {
		return "(no target)"
	}
	return target
}
