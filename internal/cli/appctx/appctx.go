// Package appctx provides a shared bootstrap helper for CLI commands.
// It centralizes config loading, logger setup, database opening, and actor
// resolution to reduce boilerplate across commands.
package appctx

import (
	"fmt"
	"log/slog"

	"github.com/lherron/advimport/internal/config"
	"github.com/lherron/advimport/internal/db"
	"github.com/lherron/advimport/internal/store"
	"github.com/spf13/cobra"
)

// App holds the shared application context for commands.
type App struct {
	// Config is the loaded configuration
	Config *config.Config

	// Logger writes structured diagnostics to the command's stderr
	Logger *slog.Logger

	// DB is the opened database connection (nil if NeedsDB is false)
	DB *db.DB

	// Store wraps DB (nil if NeedsDB is false)
	Store *store.Store

	// Actor is the name recorded on writes (empty if NeedsActor is false)
	Actor string
}

// Close releases resources held by the App.
// Safe to call multiple times.
func (a *App) Close() {
	if a.DB != nil {
		a.DB.Close()
		a.DB = nil
		a.Store = nil
	}
}

// Options configures the bootstrap behavior.
type Options struct {
	// NeedsDB indicates whether to open the database.
	NeedsDB bool

	// NeedsActor indicates whether to resolve the current actor.
	NeedsActor bool
}

// DefaultOptions returns default options (DB required, no actor).
func DefaultOptions() Options {
	return Options{
		NeedsDB:    true,
		NeedsActor: false,
	}
}

// WithActor returns options that require both DB and actor.
func WithActor() Options {
	return Options{
		NeedsDB:    true,
		NeedsActor: true,
	}
}

// RunFunc is the signature for command run functions.
type RunFunc func(app *App, cmd *cobra.Command, args []string) error

// WithApp wraps a command's run function with shared bootstrap logic.
// The database is closed automatically when the wrapped function returns.
func WithApp(opts Options, fn RunFunc) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		app, err := Bootstrap(cmd, opts)
		if err != nil {
			return err
		}
		defer app.Close()

		return fn(app, cmd, args)
	}
}

// Bootstrap initializes the App according to the given options.
// Callers are responsible for calling App.Close() when done.
func Bootstrap(cmd *cobra.Command, opts Options) (*App, error) {
	app := &App{}

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	app.Config = cfg

	if dbPath := flagValue(cmd, "db"); dbPath != "" {
		app.Config.DBPath = dbPath
	}
	if level := flagValue(cmd, "log-level"); level != "" {
		app.Config.LogLevel = level
	}

	level, err := app.Config.SlogLevel()
	if err != nil {
		return nil, err
	}
	app.Logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	if opts.NeedsDB {
		database, err := db.Open(app.Config.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}

		if err := database.RequiresMigrationError(); err != nil {
			database.Close()
			return nil, err
		}

		app.DB = database
		app.Store = store.New(database)
	}

	if opts.NeedsActor {
		actor := resolveActor(app.Config, cmd)
		if actor == "" {
			app.Close()
			return nil, fmt.Errorf("no actor configured (set ADVIMPORT_ACTOR, default_actor, or use --as flag)")
		}
		app.Actor = actor
	}

	return app, nil
}

// resolveActor picks the actor from the --as flag, then env or config.
func resolveActor(cfg *config.Config, cmd *cobra.Command) string {
	if actor := flagValue(cmd, "as"); actor != "" {
		return actor
	}
	return cfg.GetActor()
}

func flagValue(cmd *cobra.Command, name string) string {
	if f := cmd.Flag(name); f != nil {
		return f.Value.String()
	}
	return ""
}
