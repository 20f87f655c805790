package cli

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/lherron/advimport/internal/bulk"
	"github.com/lherron/advimport/internal/cli/appctx"
	"github.com/lherron/advimport/internal/importer"
	"github.com/lherron/advimport/internal/render"
	"github.com/lherron/advimport/internal/source"
	"github.com/lherron/advimport/internal/webhooks"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run [TARGET...]",
	Short: "Import adventure exports",
	Long: `Run imports the adventure export under TARGET. The folder export is read
from TARGET/folders.json and the journal export from TARGET/adv.json, both
relative to the imports directory (or imports URL when one is configured).

Folders are reconciled first, then journals, then every zlink cross-reference
in the touched journals is rewritten to the imported journal's id. Running
the same import again updates documents in place.

Several targets are imported one after another. A failed target stops the
batch unless --continue-on-error is set; a batch where some targets failed
exits with status 5.

Examples:
  advimport run saltmarsh                  # Import imports/saltmarsh
  advimport run saltmarsh --diff           # Also show link rewrite diffs
  advimport run saltmarsh -o json          # Full report as JSON
  advimport run saltmarsh --url http://localhost:8000/imports
  advimport run saltmarsh sunless tomb --continue-on-error
`,
	RunE: appctx.WithApp(appctx.WithActor(), runRun),
}

var (
	runDir          string
	runURL          string
	runDiff         bool
	runDeferParents bool
	runQuiet        bool
	runContinue     bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runDir, "dir", "", "Imports directory (overrides ADVIMPORT_IMPORTS_DIR)")
	runCmd.Flags().StringVar(&runURL, "url", "", "Base URL serving the imports layout (overrides ADVIMPORT_IMPORTS_URL)")
	runCmd.Flags().BoolVar(&runDiff, "diff", false, "Print a unified diff for every journal whose links were rewritten")
	runCmd.Flags().BoolVar(&runDeferParents, "defer-parents", false, "Assign parents that appear later in the export after the forward pass")
	runCmd.Flags().BoolVarP(&runQuiet, "quiet", "q", false, "Suppress the progress bar and notices")
	runCmd.Flags().BoolVar(&runContinue, "continue-on-error", false, "Keep importing the remaining targets after one fails")
}

func runRun(app *appctx.App, cmd *cobra.Command, args []string) error {
	r, err := newRenderer(app, cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if len(args) <= 1 {
		target := ""
		if len(args) == 1 {
			target = args[0]
		}
		return importTarget(ctx, app, cmd, r, target)
	}

	op := &bulk.Operation{ContinueOnError: runContinue}
	if !runQuiet {
		op.Log = cmd.ErrOrStderr()
	}
	result := op.Execute(ctx, args, func(ctx context.Context, target string) error {
		return importTarget(ctx, app, cmd, r, target)
	})
	if !runQuiet {
		result.PrintSummary(cmd.ErrOrStderr())
	}
	if code := result.ExitCode(); code != 0 {
		return exitError(code, fmt.Errorf("%d of %d imports did not complete", result.Failed+result.Skipped, result.TotalItems))
	}
	return nil
}

// importTarget runs one import and renders its report.
func importTarget(ctx context.Context, app *appctx.App, cmd *cobra.Command, r *render.Renderer, target string) error {
	var reporter importer.Reporter
	if !runQuiet {
		reporter = render.NewTerminal(cmd.ErrOrStderr(), "advimport: ")
	}

	im := newImporter(app, cmd, reporter)

	rep, runErr := im.Run(ctx, target)
	webhooks.DispatchReport(app.Config.WebhookURLs, rep, runErr)

	if err := renderReport(r, rep); err != nil {
		return err
	}
	if runDiff {
		if err := printRewriteDiffs(cmd, rep); err != nil {
			return err
		}
	}

	switch {
	case runErr == nil:
		return nil
	case errors.Is(runErr, importer.ErrNoTarget):
		return exitError(2, runErr)
	default:
		return exitError(1, runErr)
	}
}

// newImporter wires the store, export source, and reporter for one command.
func newImporter(app *appctx.App, cmd *cobra.Command, reporter importer.Reporter) *importer.Importer {
	dir := app.Config.ImportsDir
	if runDir != "" {
		dir = runDir
	}
	url := app.Config.ImportsURL
	if runURL != "" {
		url = runURL
	}
	opts := importer.Options{
		DeferParents: app.Config.DeferParents || runDeferParents,
	}
	return importer.New(app.Store.Documents(app.Actor), source.Open(dir, url), reporter, opts, app.Logger)
}

var reportHeaders = []string{"PHASE", "KIND", "INDEX", "EXTERNAL_ID", "NAME", "OUTCOME", "ID", "DETAIL"}

// renderReport writes the run report. Table and TSV show one row per entry,
// NDJSON one entry per line, and JSON/YAML the whole report.
func renderReport(r *render.Renderer, rep *importer.Report) error {
	items := make([]interface{}, 0, len(rep.Entries))
	rows := make([][]string, 0, len(rep.Entries))
	for _, e := range rep.Entries {
		items = append(items, e)
		rows = append(rows, []string{
			string(e.Phase),
			string(e.Kind),
			strconv.Itoa(e.Index),
			e.ExternalID,
			e.Name,
			string(e.Outcome),
			e.ID,
			e.Detail,
		})
	}
	return r.Render(rep, items, reportHeaders, rows)
}

func printRewriteDiffs(cmd *cobra.Command, rep *importer.Report) error {
	out := cmd.OutOrStdout()
	for _, rw := range rep.Rewrites {
		diff, err := render.UnifiedDiff(fmt.Sprintf("%s (%s)", rw.Name, rw.JournalID), rw.Before, rw.After)
		if err != nil {
			return fmt.Errorf("failed to diff journal %s: %w", rw.JournalID, err)
		}
		fmt.Fprint(out, diff)
	}
	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
