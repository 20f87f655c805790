package cli

import (
	"fmt"
	"io"

	"github.com/lherron/advimport/internal/config"
	"github.com/lherron/advimport/internal/db"
	"github.com/lherron/advimport/internal/render"
	"github.com/spf13/cobra"
)

var migrateAdmCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run any pending database migrations",
	Long: `Migrate applies the SQL migrations embedded in advimportadm that the
database has not seen yet, recording each one in schema_migrations.

advimport refuses to open a database with pending migrations, so run this
after creating a database with init or after upgrading the binaries.

Examples:
  advimportadm migrate                 # Apply pending migrations
  advimportadm migrate --dry-run       # List what would be applied
  advimportadm migrate --status --json # Every migration and whether it ran
`,
	RunE: runMigrateAdm,
}

var (
	migrateDryRun bool
	migrateStatus bool
	migrateJSON   bool
)

func init() {
	rootAdmCmd.AddCommand(migrateAdmCmd)

	migrateAdmCmd.Flags().BoolVar(&migrateDryRun, "dry-run", false, "Show which migrations would be applied without running them")
	migrateAdmCmd.Flags().BoolVar(&migrateStatus, "status", false, "Show current migration status")
	migrateAdmCmd.Flags().BoolVar(&migrateJSON, "json", false, "Output --status or --dry-run listings as JSON")
}

// migrationRow is one line of a migration listing.
type migrationRow struct {
	Name    string `json:"name"`
	Applied bool   `json:"applied"`
}

func runMigrateAdm(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return exitError(1, fmt.Errorf("failed to load config: %w", err))
	}
	if dbPath := cmd.Flag("db").Value.String(); dbPath != "" {
		cfg.DBPath = dbPath
	}
	if cfg.DBPath == "" {
		return exitError(2, fmt.Errorf("database path not specified (use --db flag or set ADVIMPORT_DB_PATH)"))
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return exitError(1, fmt.Errorf("failed to open database: %w", err))
	}
	defer database.Close()

	out := cmd.OutOrStdout()
	if migrateStatus || migrateDryRun {
		format := render.FormatTable
		if migrateJSON {
			format = render.FormatJSON
		}
		return listMigrations(render.NewRenderer(out, render.Options{Format: format}), database, migrateDryRun && !migrateStatus)
	}

	return applyMigrations(out, database)
}

func applyMigrations(out io.Writer, database *db.DB) error {
	applied, err := database.MigrateWithInfo()
	if err != nil {
		return exitError(1, fmt.Errorf("failed to run migrations: %w", err))
	}

	if len(applied) == 0 {
		fmt.Fprintln(out, "Database is up to date. No migrations to apply.")
		return nil
	}
	for _, m := range applied {
		fmt.Fprintf(out, "✓ Applied migration: %s\n", m)
	}
	fmt.Fprintf(out, "\nApplied %d migration(s).\n", len(applied))
	return nil
}

// listMigrations renders every known migration, or only the pending ones.
func listMigrations(r *render.Renderer, database *db.DB, pendingOnly bool) error {
	applied, pending, err := database.MigrationStatus()
	if err != nil {
		return exitError(1, fmt.Errorf("failed to get migration status: %w", err))
	}

	var list []migrationRow
	if !pendingOnly {
		for _, m := range applied {
			list = append(list, migrationRow{Name: m, Applied: true})
		}
	}
	for _, m := range pending {
		list = append(list, migrationRow{Name: m})
	}

	items := make([]interface{}, 0, len(list))
	rows := make([][]string, 0, len(list))
	for _, m := range list {
		items = append(items, m)
		state := "pending"
		if m.Applied {
			state = "applied"
		}
		rows = append(rows, []string{m.Name, state})
	}
	if list == nil {
		list = []migrationRow{}
	}
	return r.Render(list, items, []string{"MIGRATION", "STATE"}, rows)
}
