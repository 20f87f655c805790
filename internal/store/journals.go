package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lherron/advimport/internal/domain"
	"github.com/lherron/advimport/internal/events"
)

// JournalStore handles journal persistence operations.
type JournalStore struct {
	store *Store
}

// JournalCreateParams contains parameters for creating a new journal.
type JournalCreateParams struct {
	UUID       string // optional: force specific UUID instead of auto-generating
	ExternalID *string
	Name       string
	FolderUUID string
	Content    string
	Extra      string // JSON object, defaults to {}
}

var journalColumns = map[string]bool{
	"name":        true,
	"external_id": true,
	"content":     true,
	"extra":       true,
}

const journalSelect = `
	SELECT uuid, id, external_id, name, slug, folder_uuid, content, extra, etag,
		   created_at, updated_at, created_by, updated_by
	FROM journals`

// Create creates a new journal and logs a journal.created event.
func (js *JournalStore) Create(actor string, params JournalCreateParams) (*CreateResult, error) {
	var result *CreateResult

	if params.FolderUUID == "" {
		return nil, fmt.Errorf("journal %q has no folder", params.Name)
	}
	extra := params.Extra
	if extra == "" {
		extra = "{}"
	}
	journalUUID := params.UUID
	if journalUUID == "" {
		journalUUID = uuid.NewString()
	}

	err := js.store.withTx(func(tx *sql.Tx, ew *events.Writer) error {
		_, err := tx.Exec(`
			INSERT INTO journals (uuid, id, external_id, name, slug, folder_uuid, content, extra, created_by, updated_by)
			VALUES (?, '', ?, ?, ?, ?, ?, ?, ?, ?)
		`, journalUUID, params.ExternalID, params.Name, slugFor(params.Name), params.FolderUUID, params.Content, extra, actor, actor)
		if err != nil {
			return fmt.Errorf("failed to create journal: %w", err)
		}

		var id string
		var etag int64
		if err := tx.QueryRow("SELECT id, etag FROM journals WHERE uuid = ?", journalUUID).Scan(&id, &etag); err != nil {
			return fmt.Errorf("failed to get journal ID: %w", err)
		}

		payload := map[string]interface{}{
			"name":          params.Name,
			"folder_uuid":   params.FolderUUID,
			"content_bytes": len(params.Content),
		}
		if params.ExternalID != nil {
			payload["external_id"] = *params.ExternalID
		}
		if err := ew.Log(tx, actor, domain.KindJournal, journalUUID, "journal.created", &etag, payload); err != nil {
			return fmt.Errorf("failed to log event: %w", err)
		}

		result = &CreateResult{UUID: journalUUID, ID: id, ETag: etag}
		return nil
	})

	return result, err
}

// UpdateFields updates specified fields on a journal and logs a journal.updated event.
// Returns the new etag on success.
func (js *JournalStore) UpdateFields(actor, journalUUID string, fields map[string]interface{}, ifMatch int64) (int64, error) {
	var newETag int64

	err := js.store.withTx(func(tx *sql.Tx, ew *events.Writer) error {
		var currentETag int64
		err := tx.QueryRow("SELECT etag FROM journals WHERE uuid = ?", journalUUID).Scan(&currentETag)
		if err != nil {
			if err == sql.ErrNoRows {
				return fmt.Errorf("journal not found: %s", journalUUID)
			}
			return fmt.Errorf("failed to get current etag: %w", err)
		}

		if err := checkETag(currentETag, ifMatch); err != nil {
			return err
		}

		setClauses, args, err := buildSetClauses(journalColumns, fields)
		if err != nil {
			return err
		}
		setClauses = append(setClauses,
			"etag = etag + 1",
			"updated_by = ?",
			"updated_at = strftime('%Y-%m-%dT%H:%M:%SZ','now')",
		)
		args = append(args, actor, journalUUID)

		query := fmt.Sprintf("UPDATE journals SET %s WHERE uuid = ?", strings.Join(setClauses, ", "))
		if _, err := tx.Exec(query, args...); err != nil {
			return fmt.Errorf("failed to update journal: %w", err)
		}

		newETag = currentETag + 1
		if err := ew.Log(tx, actor, domain.KindJournal, journalUUID, "journal.updated", &newETag, eventPayload(fields)); err != nil {
			return fmt.Errorf("failed to log event: %w", err)
		}
		return nil
	})

	return newETag, err
}

// Move moves a journal to a different folder and logs a journal.moved event.
// Returns the new etag on success.
func (js *JournalStore) Move(actor, journalUUID, newFolderUUID string, ifMatch int64) (int64, error) {
	var newETag int64

	err := js.store.withTx(func(tx *sql.Tx, ew *events.Writer) error {
		var currentETag int64
		var oldFolderUUID string
		err := tx.QueryRow("SELECT etag, folder_uuid FROM journals WHERE uuid = ?", journalUUID).Scan(&currentETag, &oldFolderUUID)
		if err != nil {
			if err == sql.ErrNoRows {
				return fmt.Errorf("journal not found: %s", journalUUID)
			}
			return fmt.Errorf("failed to get journal: %w", err)
		}

		if err := checkETag(currentETag, ifMatch); err != nil {
			return err
		}

		_, err = tx.Exec(`
			UPDATE journals
			SET folder_uuid = ?,
				etag = etag + 1,
				updated_by = ?,
				updated_at = strftime('%Y-%m-%dT%H:%M:%SZ','now')
			WHERE uuid = ?
		`, newFolderUUID, actor, journalUUID)
		if err != nil {
			return fmt.Errorf("failed to move journal: %w", err)
		}

		payload := map[string]interface{}{
			"old_folder_uuid": oldFolderUUID,
			"new_folder_uuid": newFolderUUID,
		}
		newETag = currentETag + 1

		if err := ew.Log(tx, actor, domain.KindJournal, journalUUID, "journal.moved", &newETag, payload); err != nil {
			return fmt.Errorf("failed to log event: %w", err)
		}
		return nil
	})

	return newETag, err
}

// GetByUUID retrieves a journal by UUID.
func (js *JournalStore) GetByUUID(journalUUID string) (*domain.Journal, error) {
	journal, err := scanJournal(js.store.db.QueryRow(journalSelect+" WHERE uuid = ?", journalUUID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("journal not found: %s", journalUUID)
		}
		return nil, fmt.Errorf("failed to get journal: %w", err)
	}
	return journal, nil
}

// GetByID retrieves a journal by friendly ID (J-00001).
// Returns nil, nil when no journal carries that id.
func (js *JournalStore) GetByID(id string) (*domain.Journal, error) {
	journal, err := scanJournal(js.store.db.QueryRow(journalSelect+" WHERE id = ?", id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get journal: %w", err)
	}
	return journal, nil
}

// FindByExternalID finds a journal by its export external id.
// Returns nil, nil when no journal carries that id.
func (js *JournalStore) FindByExternalID(externalID string) (*domain.Journal, error) {
	journal, err := scanJournal(js.store.db.QueryRow(journalSelect+" WHERE external_id = ?", externalID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to lookup journal: %w", err)
	}
	return journal, nil
}

// ListByFolder returns the journals contained directly in a folder.
func (js *JournalStore) ListByFolder(folderUUID string) ([]domain.Journal, error) {
	return js.query(journalSelect+" WHERE folder_uuid = ? ORDER BY rowid", folderUUID)
}

// List returns all journals in creation order.
func (js *JournalStore) List() ([]domain.Journal, error) {
	return js.query(journalSelect + " ORDER BY rowid")
}

func (js *JournalStore) query(query string, args ...interface{}) ([]domain.Journal, error) {
	rows, err := js.store.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query journals: %w", err)
	}
	defer rows.Close()

	var journals []domain.Journal
	for rows.Next() {
		journal, err := scanJournal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan journal: %w", err)
		}
		journals = append(journals, *journal)
	}
	return journals, rows.Err()
}

func scanJournal(row rowScanner) (*domain.Journal, error) {
	journal := &domain.Journal{}
	var createdAt, updatedAt string
	err := row.Scan(
		&journal.UUID, &journal.ID, &journal.ExternalID, &journal.Name, &journal.Slug,
		&journal.FolderUUID, &journal.Content, &journal.Extra, &journal.ETag,
		&createdAt, &updatedAt, &journal.CreatedBy, &journal.UpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	journal.CreatedAt = parseTime(createdAt)
	journal.UpdatedAt = parseTime(updatedAt)
	return journal, nil
}
