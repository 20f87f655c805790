// Package importer reconciles an authoring tool's folder and journal exports
// into the document store.
//
// A run has three phases. Folders are upserted by external id with parents
// resolved against the folders seen so far. Journals are then upserted into
// their resolved folders. Finally the cross-reference tokens in every touched
// journal are rewritten to internal ids, once all journals exist.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/lherron/advimport/internal/domain"
)

// Progress labels.
const (
	LabelFolders  = "Import folders"
	LabelJournals = "Import journals"
)

// Export file names within a target directory.
const (
	FoldersFile  = "folders.json"
	JournalsFile = "adv.json"
)

var (
	// ErrNoTarget is returned when a trigger names no import target.
	ErrNoTarget = errors.New("no adventure import folder provided")
	// ErrEmptyImport marks a journal export with no records. It is recorded
	// on the report, never returned.
	ErrEmptyImport = errors.New("journal export is empty")
)

// FileUnavailableError is returned when an export cannot be fetched or decoded.
type FileUnavailableError struct {
	Path string
	Err  error
}

func (e *FileUnavailableError) Error() string {
	return fmt.Sprintf("cannot open file: %s, %v", e.Path, e.Err)
}

func (e *FileUnavailableError) Unwrap() error { return e.Err }

// DocumentStore is the persistence the importer needs. FindByExternalID
// returns nil, nil when nothing carries the id.
type DocumentStore interface {
	FindByExternalID(kind domain.Kind, externalID string) (*domain.Document, error)
	Get(kind domain.Kind, id string) (*domain.Document, error)
	Create(kind domain.Kind, rec domain.Record) (*domain.Document, error)
	Update(kind domain.Kind, id string, fields domain.Fields) (*domain.Document, error)
	ListContents(folderID string) ([]domain.Document, error)
}

// Reporter receives progress and user-facing notifications.
type Reporter interface {
	Progress(label string, fraction float64)
	Done()
	Notify(msg string)
	Error(msg string)
}

// Source fetches an export file relative to the imports root.
type Source interface {
	Fetch(ctx context.Context, rel string) ([]byte, error)
}

// Options tunes a run.
type Options struct {
	// DeferParents assigns, after the forward pass, parents that were not
	// yet known when their child was processed.
	DeferParents bool
}

// Importer runs imports against one store. Runs are serialised.
type Importer struct {
	store    DocumentStore
	source   Source
	reporter Reporter
	opts     Options
	logger   *slog.Logger

	mu sync.Mutex
}

// New creates an Importer. A nil reporter discards notifications and a nil
// logger uses slog.Default.
func New(store DocumentStore, source Source, reporter Reporter, opts Options, logger *slog.Logger) *Importer {
	if reporter == nil {
		reporter = nopReporter{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{
		store:    store,
		source:   source,
		reporter: reporter,
		opts:     opts,
		logger:   logger,
	}
}

// fetch reads an export, wrapping failures as FileUnavailableError.
func (im *Importer) fetch(ctx context.Context, rel string) ([]byte, error) {
	data, err := im.source.Fetch(ctx, rel)
	if err != nil {
		return nil, &FileUnavailableError{Path: rel, Err: err}
	}
	return data, nil
}

func fraction(done, total int) float64 {
	if total <= 0 {
		return 1
	}
	return float64(done) / float64(total)
}

type nopReporter struct{}

func (nopReporter) Progress(string, float64) {}
func (nopReporter) Done()                    {}
func (nopReporter) Notify(string)            {}
func (nopReporter) Error(string)             {}
