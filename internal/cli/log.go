package cli

import (
	"fmt"
	"strconv"

	"github.com/lherron/advimport/internal/cli/appctx"
	"github.com/lherron/advimport/internal/cursor"
	"github.com/lherron/advimport/internal/events"
	"github.com/spf13/cobra"
)

var logCmd = &cobra.Command{
	Use:   "log <JOURNAL|FOLDER>",
	Short: "Show change history for a journal or folder",
	Long: `Show change history from the event log, newest first.

The argument is looked up as a journal first, then as a folder.

Examples:
  advimport log SmuggledGoods
  advimport log F-00001 --limit 5
  advimport log J-00002 -o ndjson
  advimport log J-00002 --limit 10 --cursor <cursor from previous page>

When more events remain, the cursor for the next page is printed to stderr.
`,
	Args: cobra.ExactArgs(1),
	RunE: appctx.WithApp(appctx.DefaultOptions(), runLog),
}

var (
	logLimit  int
	logCursor string
)

func init() {
	rootCmd.AddCommand(logCmd)

	logCmd.Flags().IntVar(&logLimit, "limit", 50, "Limit number of events")
	logCmd.Flags().StringVar(&logCursor, "cursor", "", "Continue from the cursor printed by a previous page")
}

func runLog(app *appctx.App, cmd *cobra.Command, args []string) error {
	r, err := newRenderer(app, cmd)
	if err != nil {
		return err
	}

	resourceUUID := ""
	if journal, jerr := findJournal(app, args[0]); jerr == nil {
		resourceUUID = journal.UUID
	} else if folder, ferr := findFolder(app, args[0]); ferr == nil {
		resourceUUID = folder.UUID
	} else {
		return exitError(3, fmt.Errorf("no journal or folder matches %s", args[0]))
	}

	if logLimit <= 0 {
		return exitError(2, fmt.Errorf("--limit must be positive"))
	}

	var where string
	var whereArgs []interface{}
	if logCursor != "" {
		c, err := cursor.Decode(logCursor)
		if err != nil {
			return exitError(2, err)
		}
		if err := c.For(resourceUUID); err != nil {
			return exitError(2, err)
		}
		where, whereArgs = c.BuildWhereClause()
	}

	// One extra row tells us whether another page exists.
	evts, err := events.NewWriter(app.DB.DB).Page(resourceUUID, where, whereArgs, logLimit+1)
	if err != nil {
		return fmt.Errorf("failed to query event log: %w", err)
	}
	if len(evts) > logLimit {
		evts = evts[:logLimit]
		next, err := cursor.New(resourceUUID, evts[len(evts)-1].ID)
		if err != nil {
			return err
		}
		encoded, err := next.Encode()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "next cursor: %s\n", encoded)
	}

	items := make([]interface{}, 0, len(evts))
	rows := make([][]string, 0, len(evts))
	for _, e := range evts {
		items = append(items, e)
		rows = append(rows, []string{
			strconv.FormatInt(e.ID, 10),
			e.EventType,
			deref(e.Actor),
			optionalInt(e.ETag),
			deref(e.Payload),
		})
	}
	return r.Render(evts, items, []string{"EVENT", "TYPE", "ACTOR", "ETAG", "PAYLOAD"}, rows)
}

func optionalInt(n *int64) string {
	if n == nil {
		return ""
	}
	return strconv.FormatInt(*n, 10)
}
