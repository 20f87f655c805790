package cli

import (
	"fmt"
	"os"

	"github.com/lherron/advimport/internal/config"
	"github.com/lherron/advimport/internal/db"
	"github.com/lherron/advimport/internal/markup"
	"github.com/lherron/advimport/internal/render"
	"github.com/lherron/advimport/internal/store"
	"github.com/spf13/cobra"
)

var doctorAdmCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check database health and imported data",
	Long: `Performs health checks on the database file, schema, and imported data.

Data checks report folders whose parent is missing, sibling folders that
share a slug, and journals that still carry cross-reference tokens no import
has resolved.`,
	RunE: runDoctorAdm,
}

var (
	doctorAdmJSON    bool
	doctorAdmVerbose bool
)

type checkResultAdm struct {
	Name    string   `json:"name"`
	Status  string   `json:"status"` // "ok", "warning", "error"
	Message string   `json:"message,omitempty"`
	Details []string `json:"details,omitempty"`
}

type doctorReportAdm struct {
	DBPath        string           `json:"db_path"`
	Checks        []checkResultAdm `json:"checks"`
	Warnings      int              `json:"warnings"`
	Errors        int              `json:"errors"`
	OverallStatus string           `json:"overall_status"`
}

func init() {
	rootAdmCmd.AddCommand(doctorAdmCmd)
	doctorAdmCmd.Flags().BoolVar(&doctorAdmJSON, "json", false, "Output JSON")
	doctorAdmCmd.Flags().BoolVar(&doctorAdmVerbose, "verbose", false, "Verbose output")
}

func runDoctorAdm(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if dbPath := cmd.Flag("db").Value.String(); dbPath != "" {
		cfg.DBPath = dbPath
	}

	report := runDoctorChecks(cfg.DBPath)

	if doctorAdmJSON {
		r := render.NewRenderer(cmd.OutOrStdout(), render.Options{Format: render.FormatJSON})
		if err := r.RenderJSON(report); err != nil {
			return err
		}
	} else {
		printHumanReportAdm(cmd, report)
	}

	if report.Errors > 0 {
		return exitError(1, fmt.Errorf("doctor found %d error(s)", report.Errors))
	}
	return nil
}

// runDoctorChecks runs every check against the database at dbPath.
func runDoctorChecks(dbPath string) *doctorReportAdm {
	report := &doctorReportAdm{
		DBPath:        dbPath,
		Checks:        []checkResultAdm{},
		OverallStatus: "ok",
	}

	report.Checks = append(report.Checks, checkDatabaseFileAdm(dbPath)...)

	if report.Checks[0].Status == "ok" {
		database, err := db.Open(dbPath)
		if err == nil {
			defer database.Close()
			report.Checks = append(report.Checks, checkDatabasePragmasAdm(database)...)
			report.Checks = append(report.Checks, checkSchemaAdm(database)...)
			report.Checks = append(report.Checks, checkDataIntegrityAdm(database)...)
			report.Checks = append(report.Checks, checkCountsAdm(database)...)
		} else {
			report.Checks = append(report.Checks, checkResultAdm{
				Name:    "database_open",
				Status:  "error",
				Message: fmt.Sprintf("Failed to open database: %v", err),
			})
		}
	}

	for _, check := range report.Checks {
		if check.Status == "warning" {
			report.Warnings++
		} else if check.Status == "error" {
			report.Errors++
			report.OverallStatus = "error"
		}
	}
	if report.Warnings > 0 && report.OverallStatus == "ok" {
		report.OverallStatus = "warning"
	}
	return report
}

func checkDatabaseFileAdm(dbPath string) []checkResultAdm {
	var results []checkResultAdm

	info, err := os.Stat(dbPath)
	if err != nil {
		results = append(results, checkResultAdm{
			Name:    "db_file_exists",
			Status:  "error",
			Message: fmt.Sprintf("Database file not found: %s", dbPath),
			Details: []string{"Run 'advimportadm init' to create it"},
		})
		return results
	}

	results = append(results, checkResultAdm{
		Name:    "db_file_exists",
		Status:  "ok",
		Message: fmt.Sprintf("Database file: %s (%.1f MB)", dbPath, float64(info.Size())/(1024*1024)),
	})

	f, err := os.OpenFile(dbPath, os.O_RDWR, 0)
	if err != nil {
		results = append(results, checkResultAdm{
			Name:    "db_file_permissions",
			Status:  "error",
			Message: fmt.Sprintf("Database file not writable: %v", err),
		})
	} else {
		f.Close()
		results = append(results, checkResultAdm{
			Name:    "db_file_permissions",
			Status:  "ok",
			Message: "Database file is readable and writable",
		})
	}

	return results
}

func checkDatabasePragmasAdm(database *db.DB) []checkResultAdm {
	var results []checkResultAdm

	var journalMode string
	database.QueryRow("PRAGMA journal_mode").Scan(&journalMode)
	if journalMode == "wal" {
		results = append(results, checkResultAdm{Name: "wal_mode", Status: "ok", Message: "WAL mode enabled"})
	} else {
		results = append(results, checkResultAdm{
			Name:    "wal_mode",
			Status:  "warning",
			Message: fmt.Sprintf("WAL mode not enabled (current: %s)", journalMode),
		})
	}

	var foreignKeys int
	database.QueryRow("PRAGMA foreign_keys").Scan(&foreignKeys)
	if foreignKeys == 1 {
		results = append(results, checkResultAdm{Name: "foreign_keys", Status: "ok", Message: "Foreign keys enabled"})
	} else {
		results = append(results, checkResultAdm{
			Name:    "foreign_keys",
			Status:  "error",
			Message: "Foreign keys not enabled",
		})
	}

	var integrityCheck string
	database.QueryRow("PRAGMA integrity_check").Scan(&integrityCheck)
	if integrityCheck == "ok" {
		results = append(results, checkResultAdm{Name: "integrity_check", Status: "ok", Message: "Database integrity check passed"})
	} else {
		results = append(results, checkResultAdm{
			Name:    "integrity_check",
			Status:  "error",
			Message: fmt.Sprintf("Database integrity check failed: %s", integrityCheck),
			Details: []string{"Database may be corrupted", "Restore from backup recommended"},
		})
	}

	return results
}

func checkSchemaAdm(database *db.DB) []checkResultAdm {
	if err := database.RequiresMigrationError(); err != nil {
		return []checkResultAdm{{
			Name:    "schema_migrations",
			Status:  "error",
			Message: err.Error(),
		}}
	}

	requiredTables := []string{"folders", "journals", "event_log"}
	var missingTables []string
	for _, table := range requiredTables {
		var count int
		err := database.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		if err != nil || count == 0 {
			missingTables = append(missingTables, table)
		}
	}

	if len(missingTables) > 0 {
		return []checkResultAdm{{
			Name:    "schema_tables",
			Status:  "error",
			Message: fmt.Sprintf("Missing tables: %v", missingTables),
		}}
	}
	return []checkResultAdm{{
		Name:    "schema_tables",
		Status:  "ok",
		Message: fmt.Sprintf("All required tables present (%d/%d)", len(requiredTables), len(requiredTables)),
	}}
}

func checkDataIntegrityAdm(database *db.DB) []checkResultAdm {
	var results []checkResultAdm

	var orphanedFolders int
	database.QueryRow(`
		SELECT COUNT(*) FROM folders
		WHERE parent_uuid IS NOT NULL AND parent_uuid NOT IN (SELECT uuid FROM folders)
	`).Scan(&orphanedFolders)
	if orphanedFolders == 0 {
		results = append(results, checkResultAdm{Name: "orphaned_folders", Status: "ok", Message: "No orphaned folders"})
	} else {
		results = append(results, checkResultAdm{
			Name:    "orphaned_folders",
			Status:  "warning",
			Message: fmt.Sprintf("%d folders reference a missing parent", orphanedFolders),
		})
	}

	var duplicateSlugs int
	database.QueryRow(`
		SELECT COUNT(*) FROM (
			SELECT COALESCE(parent_uuid, ''), slug, COUNT(*) AS cnt
			FROM folders
			GROUP BY COALESCE(parent_uuid, ''), slug
			HAVING cnt > 1
		)
	`).Scan(&duplicateSlugs)
	if duplicateSlugs == 0 {
		results = append(results, checkResultAdm{Name: "duplicate_slugs", Status: "ok", Message: "No sibling folders share a slug"})
	} else {
		results = append(results, checkResultAdm{
			Name:    "duplicate_slugs",
			Status:  "warning",
			Message: fmt.Sprintf("%d slugs are shared by sibling folders", duplicateSlugs),
			Details: []string{"Slug paths such as 'advimport ls a/b' pick the first match"},
		})
	}

	journals, err := store.New(database).Journals.List()
	if err != nil {
		results = append(results, checkResultAdm{
			Name:    "pending_links",
			Status:  "error",
			Message: fmt.Sprintf("Failed to list journals: %v", err),
		})
		return results
	}
	var details []string
	pending := 0
	for _, j := range journals {
		refs := markup.Scan(j.Content)
		if len(refs) == 0 {
			continue
		}
		pending += len(refs)
		details = append(details, fmt.Sprintf("%s %s: %d token(s), first %s", j.ID, j.Name, len(refs), refs[0].ExternalID))
	}
	if pending == 0 {
		results = append(results, checkResultAdm{Name: "pending_links", Status: "ok", Message: "No unresolved cross-references"})
	} else {
		results = append(results, checkResultAdm{
			Name:    "pending_links",
			Status:  "warning",
			Message: fmt.Sprintf("%d unresolved cross-references in %d journals", pending, len(details)),
			Details: details,
		})
	}

	return results
}

func checkCountsAdm(database *db.DB) []checkResultAdm {
	var folders, journals, events int
	database.QueryRow("SELECT COUNT(*) FROM folders").Scan(&folders)
	database.QueryRow("SELECT COUNT(*) FROM journals").Scan(&journals)
	database.QueryRow("SELECT COUNT(*) FROM event_log").Scan(&events)

	var pageCount, pageSize int64
	database.QueryRow("PRAGMA page_count").Scan(&pageCount)
	database.QueryRow("PRAGMA page_size").Scan(&pageSize)

	return []checkResultAdm{
		{Name: "document_counts", Status: "ok", Message: fmt.Sprintf("%d folders, %d journals, %d events", folders, journals, events)},
		{Name: "database_size", Status: "ok", Message: fmt.Sprintf("Database size: %.1f MB (%d pages)", float64(pageCount*pageSize)/(1024*1024), pageCount)},
	}
}

func printHumanReportAdm(cmd *cobra.Command, report *doctorReportAdm) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "advimportadm doctor\n\n")
	fmt.Fprintf(out, "Database: %s\n\n", report.DBPath)

	categories := map[string][]checkResultAdm{}
	order := []string{"Database File", "Database Health", "Schema", "Imported Data", "Counts"}
	for _, check := range report.Checks {
		switch check.Name {
		case "db_file_exists", "db_file_permissions", "database_open":
			categories["Database File"] = append(categories["Database File"], check)
		case "wal_mode", "foreign_keys", "integrity_check":
			categories["Database Health"] = append(categories["Database Health"], check)
		case "schema_migrations", "schema_tables":
			categories["Schema"] = append(categories["Schema"], check)
		case "orphaned_folders", "duplicate_slugs", "pending_links":
			categories["Imported Data"] = append(categories["Imported Data"], check)
		default:
			categories["Counts"] = append(categories["Counts"], check)
		}
	}

	for _, category := range order {
		checks := categories[category]
		if len(checks) == 0 {
			continue
		}

		fmt.Fprintf(out, "%s\n", category)
		for _, check := range checks {
			icon := "✓"
			if check.Status == "warning" {
				icon = "⚠"
			} else if check.Status == "error" {
				icon = "✗"
			}
			fmt.Fprintf(out, "  %s %s\n", icon, check.Message)

			if doctorAdmVerbose {
				for _, detail := range check.Details {
					fmt.Fprintf(out, "      %s\n", detail)
				}
			}
		}
		fmt.Fprintln(out)
	}

	if report.Errors > 0 {
		fmt.Fprintf(out, "Summary: %d error(s), %d warning(s)\n", report.Errors, report.Warnings)
	} else if report.Warnings > 0 {
		fmt.Fprintf(out, "Summary: %d warning(s)\n", report.Warnings)
	} else {
		fmt.Fprintf(out, "Summary: All checks passed ✓\n")
	}
}
