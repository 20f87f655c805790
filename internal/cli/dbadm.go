package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/lherron/advimport/internal/config"
	"github.com/lherron/advimport/internal/db"
	"github.com/spf13/cobra"
)

var dbAdmCmd = &cobra.Command{
	Use:   "db",
	Short: "Database lifecycle operations",
	Long:  `Commands for database snapshots and maintenance. These are administrative operations.`,
}

var dbSnapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Copy the database to a standalone file",
	Long: `Writes a consistent point-in-time copy of the SQLite database with VACUUM INTO.
The copy needs no WAL/SHM files and can be opened directly.

Take a snapshot before importing into a database you care about; an import
updates documents in place and cannot be rolled back otherwise.`,
	RunE: runDBSnapshot,
}

var (
	dbSnapshotOut  string
	dbSnapshotJSON bool
)

// snapshotManifest describes a snapshot and what it holds.
type snapshotManifest struct {
	Timestamp      string `json:"timestamp"`
	SourceDBPath   string `json:"source_db_path"`
	SnapshotDBPath string `json:"snapshot_db_path"`
	Migrations     int    `json:"migrations_applied"`
	Folders        int    `json:"folders"`
	Journals       int    `json:"journals"`
	Events         int    `json:"events"`
}

func init() {
	rootAdmCmd.AddCommand(dbAdmCmd)
	dbAdmCmd.AddCommand(dbSnapshotCmd)

	dbSnapshotCmd.Flags().StringVar(&dbSnapshotOut, "out", "", "Output path for snapshot database (required)")
	dbSnapshotCmd.Flags().BoolVar(&dbSnapshotJSON, "json", false, "Output JSON manifest")
	dbSnapshotCmd.MarkFlagRequired("out")
}

func runDBSnapshot(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if dbPath := cmd.Flag("db").Value.String(); dbPath != "" {
		cfg.DBPath = dbPath
	}

	manifest, err := snapshotDatabase(cfg.DBPath, dbSnapshotOut)
	if err != nil {
		return err
	}

	if dbSnapshotJSON {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(manifest)
	}
	printSnapshotManifest(cmd.OutOrStdout(), manifest)
	return nil
}

// snapshotDatabase copies the database at src to out, which must not exist.
func snapshotDatabase(src, out string) (*snapshotManifest, error) {
	if _, err := os.Stat(src); err != nil {
		return nil, fmt.Errorf("source database not found: %w", err)
	}
	if _, err := os.Stat(out); err == nil {
		return nil, fmt.Errorf("output file already exists: %s (remove it first or choose a different path)", out)
	}

	sourceDB, err := db.Open(src)
	if err != nil {
		return nil, fmt.Errorf("failed to open source database: %w", err)
	}
	defer sourceDB.Close()

	if _, err := sourceDB.Exec("VACUUM INTO ?", out); err != nil {
		os.Remove(out)
		return nil, fmt.Errorf("failed to create snapshot: %w", err)
	}

	manifest := &snapshotManifest{
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
		SourceDBPath:   src,
		SnapshotDBPath: out,
	}

	copyDB, err := db.Open(out)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer copyDB.Close()

	applied, _, err := copyDB.MigrationStatus()
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot migrations: %w", err)
	}
	manifest.Migrations = len(applied)
	counts := []struct {
		table string
		dest  *int
	}{
		{"folders", &manifest.Folders},
		{"journals", &manifest.Journals},
		{"event_log", &manifest.Events},
	}
	for _, c := range counts {
		if err := copyDB.QueryRow("SELECT COUNT(*) FROM " + c.table).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("failed to count %s in snapshot: %w", c.table, err)
		}
	}
	return manifest, nil
}

func printSnapshotManifest(w io.Writer, m *snapshotManifest) {
	fmt.Fprintf(w, "✓ Created snapshot: %s\n", m.SnapshotDBPath)
	fmt.Fprintf(w, "  Source: %s\n", m.SourceDBPath)
	fmt.Fprintf(w, "  Timestamp: %s\n", m.Timestamp)
	fmt.Fprintf(w, "  Contents: %d folders, %d journals, %d events (%d migrations applied)\n",
		m.Folders, m.Journals, m.Events, m.Migrations)
	fmt.Fprintf(w, "\nTo import into this snapshot instead:\n")
	fmt.Fprintf(w, "  export ADVIMPORT_DB_PATH=%s\n", m.SnapshotDBPath)
}
