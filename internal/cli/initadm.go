package cli

import (
	"fmt"
	"os"

	"github.com/lherron/advimport/internal/config"
	"github.com/lherron/advimport/internal/db"
	"github.com/spf13/cobra"
)

var initAdmCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the advimport database and imports directory",
	Long: `Initialize creates the SQLite database, runs migrations, and creates the
imports directory that exports are read from.

Use --local to create the database at ./.advimport/advimport.db so that
commands run from this directory tree use it.`,
	RunE: runInitAdm,
}

var (
	initAdmImportsDir string
	initAdmLocal      bool
)

func init() {
	rootAdmCmd.AddCommand(initAdmCmd)

	initAdmCmd.Flags().StringVar(&initAdmImportsDir, "imports-dir", "", "Directory exports are read from")
	initAdmCmd.Flags().BoolVar(&initAdmLocal, "local", false, "Create a project-local database in the current directory")
}

func runInitAdm(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return exitError(1, fmt.Errorf("failed to load config: %w", err))
	}

	if initAdmLocal {
		cfg.DBPath = config.LocalDBPath
	}
	if dbPath := cmd.Flag("db").Value.String(); dbPath != "" {
		cfg.DBPath = dbPath
	}
	if initAdmImportsDir != "" {
		cfg.ImportsDir = initAdmImportsDir
	}

	dbExists := false
	if _, err := os.Stat(cfg.DBPath); err == nil {
		dbExists = true
	}

	// Open database (creates file if it doesn't exist)
	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return exitError(1, fmt.Errorf("failed to open database: %w", err))
	}
	defer database.Close()

	if err := database.Migrate(); err != nil {
		return exitError(1, fmt.Errorf("failed to run migrations: %w", err))
	}

	if err := os.MkdirAll(cfg.ImportsDir, 0755); err != nil {
		return exitError(1, fmt.Errorf("failed to create imports directory: %w", err))
	}

	out := cmd.OutOrStdout()
	if !dbExists {
		fmt.Fprintf(out, "✓ Initialized new database at %s\n", cfg.DBPath)
	} else {
		fmt.Fprintf(out, "✓ Database already initialized at %s\n", cfg.DBPath)
		fmt.Fprintf(out, "✓ Migrations applied\n")
	}
	fmt.Fprintf(out, "✓ Imports directory at %s\n", cfg.ImportsDir)

	return nil
}
