package cli

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/lherron/advimport/internal/config"
	"github.com/lherron/advimport/internal/render"
	"github.com/lherron/advimport/internal/webhooks"
	"github.com/spf13/cobra"
)

var configAdmCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management and introspection",
	Long:  `Commands for inspecting and validating configuration. These are administrative operations.`,
}

var configDoctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Show effective configuration and validate settings",
	Long: `Displays the effective configuration values and their sources, and validates
that all settings are usable.`,
	RunE: runConfigDoctor,
}

var configDoctorJSON bool

type configValue struct {
	Key    string `json:"key"`
	Value  string `json:"value"`
	Source string `json:"source"`
	Valid  bool   `json:"valid"`
	Note   string `json:"note,omitempty"`
}

type configDoctorReport struct {
	Config   []configValue `json:"config"`
	Warnings []string      `json:"warnings"`
}

func init() {
	rootAdmCmd.AddCommand(configAdmCmd)
	configAdmCmd.AddCommand(configDoctorCmd)

	configDoctorCmd.Flags().BoolVar(&configDoctorJSON, "json", false, "Output as JSON")
}

func runConfigDoctor(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	dbFlag := cmd.Flag("db")
	if dbFlag != nil && dbFlag.Value.String() != "" {
		cfg.DBPath = dbFlag.Value.String()
	}

	report := diagnoseConfig(cfg, dbFlag != nil && dbFlag.Changed)

	if configDoctorJSON {
		r := render.NewRenderer(cmd.OutOrStdout(), render.Options{Format: render.FormatJSON})
		return r.RenderJSON(report)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Configuration Report")
	fmt.Fprintln(out, "====================")
	fmt.Fprintln(out)
	for _, v := range report.Config {
		fmt.Fprintf(out, "%s: %s\n", v.Key, v.Value)
		fmt.Fprintf(out, "    Source: %s\n", v.Source)
		if v.Valid {
			fmt.Fprintln(out, "    Status: ✓ Valid")
		} else {
			fmt.Fprintf(out, "    Status: ✗ %s\n", v.Note)
		}
	}
	fmt.Fprintln(out)

	if len(report.Warnings) > 0 {
		fmt.Fprintln(out, "Warnings:")
		for _, warning := range report.Warnings {
			fmt.Fprintf(out, "  ⚠  %s\n", warning)
		}
	} else {
		fmt.Fprintln(out, "✓ No warnings")
	}
	return nil
}

// diagnoseConfig validates each effective setting and names where it came from.
func diagnoseConfig(cfg *config.Config, dbFromFlag bool) *configDoctorReport {
	report := &configDoctorReport{Warnings: []string{}}
	add := func(v configValue) {
		report.Config = append(report.Config, v)
		if !v.Valid {
			report.Warnings = append(report.Warnings, fmt.Sprintf("%s: %s", v.Key, v.Note))
		}
	}

	dbSource := sourceOf("ADVIMPORT_DB_PATH")
	if os.Getenv("ADVIMPORT_DB_PATH_FILE") != "" {
		dbSource = "environment variable ADVIMPORT_DB_PATH_FILE"
	}
	if dbFromFlag {
		dbSource = "command-line flag --db"
	}
	dbValue := configValue{Key: "db_path", Value: cfg.DBPath, Source: dbSource, Valid: true}
	if _, err := os.Stat(cfg.DBPath); err != nil {
		dbValue.Valid = false
		dbValue.Note = "file does not exist - run 'advimportadm init' to create it"
	}
	add(dbValue)

	importsValue := configValue{Key: "imports_dir", Value: cfg.ImportsDir, Source: sourceOf("ADVIMPORT_IMPORTS_DIR"), Valid: true}
	if cfg.ImportsURL != "" {
		importsValue.Note = "unused while imports_url is set"
	} else if info, err := os.Stat(cfg.ImportsDir); err != nil || !info.IsDir() {
		importsValue.Valid = false
		importsValue.Note = "directory does not exist"
	}
	add(importsValue)

	urlValue := configValue{Key: "imports_url", Value: cfg.ImportsURL, Source: sourceOf("ADVIMPORT_IMPORTS_URL"), Valid: true}
	if cfg.ImportsURL != "" {
		if u, err := url.Parse(cfg.ImportsURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			urlValue.Valid = false
			urlValue.Note = "must be an absolute http or https URL"
		}
	}
	add(urlValue)

	triggerValue := configValue{Key: "trigger_command", Value: cfg.TriggerCommand, Source: sourceOf("ADVIMPORT_TRIGGER_COMMAND"), Valid: true}
	if cfg.TriggerCommand == "" || strings.ContainsAny(cfg.TriggerCommand, " \t") {
		triggerValue.Valid = false
		triggerValue.Note = "must be a single word"
	}
	add(triggerValue)

	actorValue := configValue{Key: "actor", Value: cfg.GetActor(), Source: sourceOf("ADVIMPORT_ACTOR"), Valid: true}
	if actorValue.Value == "" {
		actorValue.Valid = false
		actorValue.Note = "not configured - set ADVIMPORT_ACTOR or use --as"
	}
	add(actorValue)

	levelValue := configValue{Key: "log_level", Value: cfg.LogLevel, Source: sourceOf("ADVIMPORT_LOG_LEVEL"), Valid: true}
	if _, err := cfg.SlogLevel(); err != nil {
		levelValue.Valid = false
		levelValue.Note = err.Error()
	}
	add(levelValue)

	outputValue := configValue{Key: "output", Value: cfg.Output, Source: sourceOf("ADVIMPORT_OUTPUT"), Valid: true}
	if _, err := render.ParseFormat(cfg.Output); err != nil {
		outputValue.Valid = false
		outputValue.Note = err.Error()
	}
	add(outputValue)

	hooksValue := configValue{Key: "webhook_urls", Value: strings.Join(cfg.WebhookURLs, ","), Source: sourceOf("ADVIMPORT_WEBHOOK_URLS"), Valid: true}
	resolved := webhooks.ResolveWebhookTargets(cfg.WebhookURLs, webhooks.Payload{Target: "example"})
	if len(resolved) < len(cfg.WebhookURLs) {
		hooksValue.Valid = false
		hooksValue.Note = fmt.Sprintf("%d of %d URLs are invalid or duplicates", len(cfg.WebhookURLs)-len(resolved), len(cfg.WebhookURLs))
	}
	add(hooksValue)

	add(configValue{Key: "defer_parents", Value: strconv.FormatBool(cfg.DeferParents), Source: sourceOf("ADVIMPORT_DEFER_PARENTS"), Valid: true})

	return report
}

func sourceOf(envVar string) string {
	if os.Getenv(envVar) != "" {
		return "environment variable " + envVar
	}
	return "config file or default"
}
