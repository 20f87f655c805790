// Package store provides a persistence layer that abstracts database operations,
// automatically handling etag management, timestamps, and event logging.
package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/lherron/advimport/internal/db"
	"github.com/lherron/advimport/internal/domain"
	"github.com/lherron/advimport/internal/events"
	"github.com/lherron/advimport/internal/paths"
)

// Store is the root store that provides access to domain-specific stores.
type Store struct {
	db *db.DB

	// Domain-specific stores
	Folders  *FolderStore
	Journals *JournalStore
}

// New creates a new Store wrapping the given database connection.
func New(database *db.DB) *Store {
	s := &Store{db: database}
	s.Folders = &FolderStore{store: s}
	s.Journals = &JournalStore{store: s}
	return s
}

// DB returns the underlying database connection (for read-only queries).
func (s *Store) DB() *db.DB {
	return s.db
}

// withTx executes fn within a transaction. If fn returns nil, the transaction
// is committed; otherwise it is rolled back.
func (s *Store) withTx(fn func(tx *sql.Tx, ew *events.Writer) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	ew := events.NewWriter(s.db.DB)
	if err := fn(tx, ew); err != nil {
		return err
	}

	return tx.Commit()
}

// checkETag verifies etag matches if ifMatch > 0, returns ETagMismatchError on mismatch.
func checkETag(currentETag, ifMatch int64) error {
	if ifMatch > 0 && currentETag != ifMatch {
		return &domain.ETagMismatchError{Expected: ifMatch, Actual: currentETag}
	}
	return nil
}

// slugFor derives a stored slug from a display name. Names with no slug-able
// characters get an empty slug rather than failing the write.
func slugFor(name string) string {
	slug, err := paths.NormalizeSlug(name)
	if err != nil {
		return ""
	}
	return slug
}

// parseTime converts SQLite's string timestamps; malformed values yield the zero time.
func parseTime(s string) time.Time {
	t, err := domain.ValidateTimestamp(s)
	if err != nil {
		return time.Time{}
	}
	return t
}
