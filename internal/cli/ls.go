package cli

import (
	"github.com/lherron/advimport/internal/cli/appctx"
	"github.com/lherron/advimport/internal/domain"
	"github.com/spf13/cobra"
)

var lsCmd = &cobra.Command{
	Use:   "ls [FOLDER]",
	Short: "List folders and journals",
	Long: `List the root folders, or the subfolders and journals of FOLDER.

FOLDER may be an external id, an internal uuid, a friendly id (F-00001), or a
slug path such as saltmarsh/npcs.

Examples:
  advimport ls
  advimport ls saltmarsh
  advimport ls F-00003 -o json
`,
	Args: cobra.MaximumNArgs(1),
	RunE: appctx.WithApp(appctx.DefaultOptions(), runLs),
}

func init() {
	rootCmd.AddCommand(lsCmd)
}

// lsEntry is one listed folder or journal.
type lsEntry struct {
	Type       domain.Kind `json:"type" yaml:"type"`
	ID         string      `json:"id" yaml:"id"`
	Name       string      `json:"name" yaml:"name"`
	Slug       string      `json:"slug" yaml:"slug"`
	Path       string      `json:"path,omitempty" yaml:"path,omitempty"`
	ExternalID string      `json:"external_id,omitempty" yaml:"external_id,omitempty"`
	UUID       string      `json:"uuid" yaml:"uuid"`
	ETag       int64       `json:"etag" yaml:"etag"`
}

func runLs(app *appctx.App, cmd *cobra.Command, args []string) error {
	r, err := newRenderer(app, cmd)
	if err != nil {
		return err
	}

	entries, err := listEntries(app, args)
	if err != nil {
		return err
	}

	items := make([]interface{}, 0, len(entries))
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		items = append(items, e)
		rows = append(rows, []string{string(e.Type), e.ID, e.Name, e.Path, e.ExternalID, e.UUID})
	}
	return r.Render(entries, items, []string{"TYPE", "ID", "NAME", "PATH", "EXTERNAL_ID", "UUID"}, rows)
}

func listEntries(app *appctx.App, args []string) ([]lsEntry, error) {
	var parent *string
	if len(args) > 0 {
		folder, err := findFolder(app, args[0])
		if err != nil {
			return nil, err
		}
		parent = &folder.UUID
	}

	all, err := app.Store.Folders.List()
	if err != nil {
		return nil, err
	}
	byUUID := make(map[string]*domain.Folder, len(all))
	for i := range all {
		byUUID[all[i].UUID] = &all[i]
	}

	folders, err := app.Store.Folders.Children(parent)
	if err != nil {
		return nil, err
	}
	entries := make([]lsEntry, 0, len(folders))
	for i := range folders {
		f := &folders[i]
		entries = append(entries, lsEntry{
			Type:       domain.KindFolder,
			ID:         f.ID,
			Name:       f.Name,
			Slug:       f.Slug,
			Path:       folderPath(byUUID, f),
			ExternalID: deref(f.ExternalID),
			UUID:       f.UUID,
			ETag:       f.ETag,
		})
	}

	if parent == nil {
		return entries, nil
	}
	journals, err := app.Store.Journals.ListByFolder(*parent)
	if err != nil {
		return nil, err
	}
	for _, j := range journals {
		entries = append(entries, lsEntry{
			Type:       domain.KindJournal,
			ID:         j.ID,
			Name:       j.Name,
			Slug:       j.Slug,
			ExternalID: deref(j.ExternalID),
			UUID:       j.UUID,
			ETag:       j.ETag,
		})
	}
	return entries, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
