package cli

import (
	"fmt"
	"strconv"

	"github.com/lherron/advimport/internal/cli/appctx"
	"github.com/lherron/advimport/internal/markup"
	"github.com/spf13/cobra"
)

var catCmd = &cobra.Command{
	Use:   "cat <JOURNAL>",
	Short: "Print a journal's content",
	Long: `Print the stored content of a journal.

JOURNAL may be an external id, an internal uuid, or a friendly id (J-00001).
With --refs, list the cross-reference tokens still carrying an external id
instead, and whether each would resolve against the store now.

Examples:
  advimport cat SmuggledGoods
  advimport cat J-00004 --refs
`,
	Args: cobra.ExactArgs(1),
	RunE: appctx.WithApp(appctx.DefaultOptions(), runCat),
}

var catRefs bool

func init() {
	rootCmd.AddCommand(catCmd)

	catCmd.Flags().BoolVar(&catRefs, "refs", false, "List unrewritten cross-reference tokens")
}

// refRow is one pending cross-reference token.
type refRow struct {
	Offset     int    `json:"offset" yaml:"offset"`
	ExternalID string `json:"external_id" yaml:"external_id"`
	Resolvable bool   `json:"resolvable" yaml:"resolvable"`
	ID         string `json:"id,omitempty" yaml:"id,omitempty"`
}

func runCat(app *appctx.App, cmd *cobra.Command, args []string) error {
	journal, err := findJournal(app, args[0])
	if err != nil {
		return err
	}

	if !catRefs {
		fmt.Fprint(cmd.OutOrStdout(), journal.Content)
		if journal.Content != "" && journal.Content[len(journal.Content)-1] != '\n' {
			fmt.Fprintln(cmd.OutOrStdout())
		}
		return nil
	}

	r, err := newRenderer(app, cmd)
	if err != nil {
		return err
	}

	var lookupErr error
	_, refs := markup.Rewrite(journal.Content, func(externalID string) (string, bool) {
		target, err := app.Store.Journals.FindByExternalID(externalID)
		if err != nil {
			lookupErr = err
			return "", false
		}
		if target == nil {
			return "", false
		}
		return target.UUID, true
	})
	if lookupErr != nil {
		return lookupErr
	}

	out := make([]refRow, 0, len(refs))
	items := make([]interface{}, 0, len(refs))
	rows := make([][]string, 0, len(refs))
	for _, ref := range refs {
		row := refRow{Offset: ref.Offset, ExternalID: ref.ExternalID, Resolvable: ref.Resolved, ID: ref.ID}
		out = append(out, row)
		items = append(items, row)
		rows = append(rows, []string{strconv.Itoa(row.Offset), row.ExternalID, strconv.FormatBool(row.Resolvable), row.ID})
	}
	return r.Render(out, items, []string{"OFFSET", "EXTERNAL_ID", "RESOLVABLE", "ID"}, rows)
}
