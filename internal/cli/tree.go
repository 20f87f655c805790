package cli

import (
	"fmt"
	"io"

	"github.com/lherron/advimport/internal/cli/appctx"
	"github.com/lherron/advimport/internal/domain"
	"github.com/lherron/advimport/internal/paths"
	"github.com/lherron/advimport/internal/render"
	"github.com/spf13/cobra"
)

var treeCmd = &cobra.Command{
	Use:   "tree [FOLDER]",
	Short: "Display folders and journals in a tree structure",
	Long: `Display the folder hierarchy with the journals each folder holds.

Examples:
  advimport tree                 # Show tree from root
  advimport tree saltmarsh       # Show tree under saltmarsh
  advimport tree -L 2            # Limit depth to 2 levels
  advimport tree -o json         # Output as JSON
`,
	Args: cobra.MaximumNArgs(1),
	RunE: appctx.WithApp(appctx.DefaultOptions(), runTree),
}

var (
	treeDepth   int
	treeFolders bool
)

func init() {
	rootCmd.AddCommand(treeCmd)

	treeCmd.Flags().IntVarP(&treeDepth, "level", "L", 0, "Maximum depth to display (0 = unlimited)")
	treeCmd.Flags().BoolVarP(&treeFolders, "dirs-only", "d", false, "List folders only")
}

type treeNode struct {
	Type     domain.Kind `json:"type" yaml:"type"`
	ID       string      `json:"id" yaml:"id"`
	Name     string      `json:"name" yaml:"name"`
	Slug     string      `json:"slug" yaml:"slug"`
	UUID     string      `json:"uuid" yaml:"uuid"`
	Children []*treeNode `json:"children,omitempty" yaml:"children,omitempty"`
}

func runTree(app *appctx.App, cmd *cobra.Command, args []string) error {
	rootLabel := "."
	var parent *string
	if len(args) > 0 {
		folder, err := findFolder(app, args[0])
		if err != nil {
			return err
		}
		parent = &folder.UUID
		rootLabel = folder.Name
	}

	children, err := buildTree(app, parent, 0)
	if err != nil {
		return err
	}

	format := render.FormatTable
	if f := cmd.Flag("output"); f != nil && f.Value.String() != "" {
		if format, err = render.ParseFormat(f.Value.String()); err != nil {
			return exitError(2, err)
		}
	}
	if format != render.FormatTable {
		r := render.NewRenderer(cmd.OutOrStdout(), render.Options{Format: format})
		items := make([]interface{}, 0, len(children))
		for _, c := range children {
			items = append(items, c)
		}
		return r.Render(map[string]interface{}{"path": rootLabel, "children": children}, items, nil, nil)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, rootLabel)
	printTree(out, children, "")
	return nil
}

func buildTree(app *appctx.App, parent *string, depth int) ([]*treeNode, error) {
	if treeDepth > 0 && depth >= treeDepth {
		return nil, nil
	}

	folders, err := app.Store.Folders.Children(parent)
	if err != nil {
		return nil, err
	}
	var nodes []*treeNode
	for _, f := range folders {
		node := &treeNode{Type: domain.KindFolder, ID: f.ID, Name: f.Name, Slug: f.Slug, UUID: f.UUID}
		if node.Children, err = buildTree(app, &f.UUID, depth+1); err != nil {
			return nil, err
		}
		nodes = append(nodes, node)
	}

	if parent == nil || treeFolders {
		return nodes, nil
	}
	journals, err := app.Store.Journals.ListByFolder(*parent)
	if err != nil {
		return nil, err
	}
	for _, j := range journals {
		nodes = append(nodes, &treeNode{Type: domain.KindJournal, ID: j.ID, Name: j.Name, Slug: j.Slug, UUID: j.UUID})
	}
	return nodes, nil
}

func printTree(out io.Writer, nodes []*treeNode, prefix string) {
	for i, node := range nodes {
		last := i == len(nodes)-1
		branch, indent := "├── ", "│   "
		if last {
			branch, indent = "└── ", "    "
		}
		label := node.Name
		if node.Type == domain.KindFolder {
			label += "/"
		}
		fmt.Fprintf(out, "%s%s%s  %s\n", prefix, branch, label, node.ID)
		printTree(out, node.Children, prefix+indent)
	}
}

// folderByPath walks a slug path such as "saltmarsh/npcs" from the root.
func folderByPath(folders []domain.Folder, path string) *domain.Folder {
	segments := paths.SplitPath(path)
	if len(segments) == 0 {
		return nil
	}
	var parent *string
	var found *domain.Folder
	for _, seg := range segments {
		if paths.ValidateSlug(seg) != nil {
			return nil
		}
		found = nil
		for i := range folders {
			f := &folders[i]
			if f.Slug == seg && sameParent(f.ParentUUID, parent) {
				found = f
				break
			}
		}
		if found == nil {
			return nil
		}
		parent = &found.UUID
	}
	return found
}

func sameParent(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// folderPath returns the slug path of folder from the root.
func folderPath(byUUID map[string]*domain.Folder, folder *domain.Folder) string {
	var segments []string
	for f, depth := folder, 0; f != nil && depth < 1000; depth++ {
		segments = append([]string{f.Slug}, segments...)
		if f.ParentUUID == nil {
			break
		}
		f = byUUID[*f.ParentUUID]
	}
	return paths.JoinPath(segments...)
}
