package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lherron/advimport/internal/cli/appctx"
	"github.com/lherron/advimport/internal/domain"
	"github.com/lherron/advimport/internal/id"
	"github.com/lherron/advimport/internal/render"
	"github.com/spf13/cobra"
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }

func (e *ExitError) Unwrap() error { return e.Err }

// exitError returns an error that will cause the CLI to exit with the given code
func exitError(code int, err error) error {
	return &ExitError{Code: code, Err: err}
}

// ExitCode maps a command error to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return 1
}

// newRenderer builds a renderer from --output, falling back to the
// configured default.
func newRenderer(app *appctx.App, cmd *cobra.Command) (*render.Renderer, error) {
	name := app.Config.Output
	if f := cmd.Flag("output"); f != nil && f.Value.String() != "" {
		name = f.Value.String()
	}
	format, err := render.ParseFormat(name)
	if err != nil {
		return nil, exitError(2, err)
	}
	return render.NewRenderer(cmd.OutOrStdout(), render.Options{Format: format}), nil
}

// findJournal resolves a journal by friendly id (J-00001), internal uuid, or
// external id.
func findJournal(app *appctx.App, ref string) (*domain.Journal, error) {
	var journal *domain.Journal
	var err error
	switch {
	case id.IsFriendlyID(ref):
		journal, err = app.Store.Journals.GetByID(ref)
	case id.IsUUID(ref):
		journal, err = app.Store.Journals.GetByUUID(strings.ToLower(ref))
		if err != nil && strings.Contains(err.Error(), "not found") {
			journal, err = nil, nil
		}
	}
	if err != nil {
		return nil, err
	}
	if journal == nil {
		if journal, err = app.Store.Journals.FindByExternalID(ref); err != nil {
			return nil, err
		}
	}
	if journal == nil {
		return nil, exitError(3, fmt.Errorf("journal not found: %s", ref))
	}
	return journal, nil
}

// findFolder resolves a folder by friendly id (F-00001), internal uuid,
// external id, or slug path such as "saltmarsh/npcs".
func findFolder(app *appctx.App, ref string) (*domain.Folder, error) {
	var folder *domain.Folder
	var err error
	switch {
	case id.IsFriendlyID(ref):
		folder, err = app.Store.Folders.GetByID(ref)
	case id.IsUUID(ref):
		folder, err = app.Store.Folders.GetByUUID(strings.ToLower(ref))
		if err != nil && strings.Contains(err.Error(), "not found") {
			folder, err = nil, nil
		}
	}
	if err != nil {
		return nil, err
	}
	if folder == nil {
		if folder, err = app.Store.Folders.FindByExternalID(ref); err != nil {
			return nil, err
		}
	}
	if folder != nil {
		return folder, nil
	}

	folders, err := app.Store.Folders.List()
	if err != nil {
		return nil, err
	}
	if folder := folderByPath(folders, ref); folder != nil {
		return folder, nil
	}
	return nil, exitError(3, fmt.Errorf("folder not found: %s", ref))
}
