package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// LocalDBPath is the project-local database location.
const LocalDBPath = ".advimport/advimport.db"

// Config represents the application configuration
type Config struct {
	DBPath         string   `yaml:"db_path"`
	ImportsDir     string   `yaml:"imports_dir"`
	ImportsURL     string   `yaml:"imports_url"`
	TriggerCommand string   `yaml:"trigger_command"`
	DefaultActor   string   `yaml:"default_actor"`
	LogLevel       string   `yaml:"log_level"`
	Output         string   `yaml:"output"`
	WebhookURLs    []string `yaml:"webhook_urls"`
	DeferParents   bool     `yaml:"defer_parents"`
}

// Load loads configuration from multiple sources with precedence:
// 1. Environment variables
// 2. ./.env.local (dotenv) - walks up parent directories to find it
// 3. ~/.config/advimport/config.yaml (YAML)
func Load() (*Config, error) {
	cfg := &Config{
		ImportsDir:     "imports",
		TriggerCommand: "/zobs",
		DefaultActor:   "importer",
		LogLevel:       "info",
		Output:         "table",
	}

	// Load .env.local if it exists (walking up parent directories)
	if envPath := findEnvLocal(); envPath != "" {
		_ = godotenv.Load(envPath)
	}

	// YAML config is optional; a missing file is not an error
	if err := loadYAMLConfig(cfg); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Override with environment variables
	if dbPath := getEnvOrFile("ADVIMPORT_DB_PATH", "ADVIMPORT_DB_PATH_FILE"); dbPath != "" {
		cfg.DBPath = dbPath
	}
	if importsDir := os.Getenv("ADVIMPORT_IMPORTS_DIR"); importsDir != "" {
		cfg.ImportsDir = importsDir
	}
	if importsURL := os.Getenv("ADVIMPORT_IMPORTS_URL"); importsURL != "" {
		cfg.ImportsURL = importsURL
	}
	if trigger := os.Getenv("ADVIMPORT_TRIGGER_COMMAND"); trigger != "" {
		cfg.TriggerCommand = trigger
	}
	if logLevel := os.Getenv("ADVIMPORT_LOG_LEVEL"); logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if output := os.Getenv("ADVIMPORT_OUTPUT"); output != "" {
		cfg.Output = output
	}
	if defaultActor := os.Getenv("ADVIMPORT_ACTOR"); defaultActor != "" {
		cfg.DefaultActor = defaultActor
	}
	if hooks := os.Getenv("ADVIMPORT_WEBHOOK_URLS"); hooks != "" {
		cfg.WebhookURLs = splitList(hooks)
	}
	if deferParents := os.Getenv("ADVIMPORT_DEFER_PARENTS"); deferParents != "" {
		v, err := strconv.ParseBool(deferParents)
		if err != nil {
			return nil, fmt.Errorf("invalid ADVIMPORT_DEFER_PARENTS %q: %w", deferParents, err)
		}
		cfg.DeferParents = v
	}

	if cfg.DBPath == "" {
		// Check for project-local database first
		if _, err := os.Stat(LocalDBPath); err == nil {
			cfg.DBPath = LocalDBPath
		} else {
			// Fall back to user-global database
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("failed to get home directory: %w", err)
			}
			cfg.DBPath = filepath.Join(homeDir, ".local", "share", "advimport", "advimport.db")
		}
	}

	return cfg, nil
}

// SlogLevel parses LogLevel for log/slog.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// loadYAMLConfig loads configuration from ~/.config/advimport/config.yaml
func loadYAMLConfig(cfg *Config) error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return err
	}

	configPath := filepath.Join(homeDir, ".config", "advimport", "config.yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

// getEnvOrFile gets an environment variable value, or reads it from a file
// if the _FILE variant is set
func getEnvOrFile(envVar, fileVar string) string {
	if val := os.Getenv(envVar); val != "" {
		return val
	}

	if filePath := os.Getenv(fileVar); filePath != "" {
		data, err := os.ReadFile(filePath)
		if err == nil {
			return strings.TrimSpace(string(data))
		}
	}

	return ""
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// findEnvLocal searches for .env.local starting from cwd and walking up
// parent directories. Stops at the user's home directory.
// Returns the path to .env.local if found, empty string otherwise.
func findEnvLocal() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		if _, err := os.Stat(".env.local"); err == nil {
			return ".env.local"
		}
		return ""
	}

	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	homeDir = filepath.Clean(homeDir)
	dir := filepath.Clean(cwd)

	for {
		envPath := filepath.Join(dir, ".env.local")
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}

		if dir == homeDir {
			break
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// GetActor returns the actor recorded on writes.
// Priority: ADVIMPORT_ACTOR > config.default_actor
func (c *Config) GetActor() string {
	if actor := os.Getenv("ADVIMPORT_ACTOR"); actor != "" {
		return actor
	}
	return c.DefaultActor
}
