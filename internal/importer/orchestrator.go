package importer

import (
	"context"
	"fmt"
	"path"
)

// Paths returns the folder and journal export locations for target.
func Paths(target string) (folders, journals string) {
	return path.Join(target, FoldersFile), path.Join(target, JournalsFile)
}

// Run imports target. An unavailable folder export aborts the run. An
// unavailable journal export stops the journal phase but keeps the folders.
// The returned report is never nil.
func (im *Importer) Run(ctx context.Context, target string) (*Report, error) {
	im.mu.Lock()
	defer im.mu.Unlock()

	rep := NewReport(target)
	if target == "" {
		im.reporter.Error(ErrNoTarget.Error())
		return rep, ErrNoTarget
	}

	folderPath, journalPath := Paths(target)
	im.logger.Info("import started", "target", target, "defer_parents", im.opts.DeferParents)
	im.reporter.Notify(fmt.Sprintf("importing adventure %s", target))

	folders, err := im.ImportFolders(ctx, folderPath, rep)
	rep.FolderMap = folders
	if err != nil {
		rep.Aborted = true
		im.reporter.Done()
		im.logger.Error("import aborted", "target", target, "error", err)
		return rep, err
	}

	journals, touched, jerr := im.ImportJournals(ctx, journalPath, folders, rep)
	rep.JournalMap = journals
	if jerr == nil {
		im.RewriteLinks(journals, touched, rep)
	}

	im.reporter.Done()
	im.reporter.Notify(fmt.Sprintf("done importing adventure %s", target))

	s := rep.Summary()
	im.logger.Info("import finished",
		"target", target,
		"folders", s.Folders,
		"journals", s.Journals,
		"links_resolved", s.LinksResolved,
		"links_unresolved", s.LinksUnresolved,
		"failed", s.Failed,
	)
	return rep, jerr
}

// RunTrigger parses a trigger line such as "/zobs saltmarsh" and runs the
// named target.
func (im *Importer) RunTrigger(ctx context.Context, line string) (*Report, error) {
	target, err := ParseTarget(line)
	if err != nil {
		im.reporter.Error(err.Error())
		return NewReport(""), err
	}
	return im.Run(ctx, target)
}
