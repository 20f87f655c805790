package store

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lherron/advimport/internal/domain"
	"github.com/lherron/advimport/internal/events"
)

// FolderStore handles folder persistence operations.
type FolderStore struct {
	store *Store
}

// FolderCreateParams contains parameters for creating a new folder.
type FolderCreateParams struct {
	ExternalID *string
	Name       string
	ParentUUID *string
	Extra      string // JSON object, defaults to {}
}

// CreateResult contains the result of a folder or journal creation.
type CreateResult struct {
	UUID string
	ID   string
	ETag int64
}

// folderColumns are the columns UpdateFields may set.
var folderColumns = map[string]bool{
	"name":        true,
	"external_id": true,
	"extra":       true,
}

const folderSelect = `
	SELECT uuid, id, external_id, name, slug, parent_uuid, extra, etag,
		   created_at, updated_at, created_by, updated_by
	FROM folders`

// Create creates a new folder and logs a folder.created event.
func (fs *FolderStore) Create(actor string, params FolderCreateParams) (*CreateResult, error) {
	var result *CreateResult

	extra := params.Extra
	if extra == "" {
		extra = "{}"
	}
	folderUUID := uuid.NewString()

	err := fs.store.withTx(func(tx *sql.Tx, ew *events.Writer) error {
		_, err := tx.Exec(`
			INSERT INTO folders (uuid, id, external_id, name, slug, parent_uuid, extra, created_by, updated_by)
			VALUES (?, '', ?, ?, ?, ?, ?, ?, ?)
		`, folderUUID, params.ExternalID, params.Name, slugFor(params.Name), params.ParentUUID, extra, actor, actor)
		if err != nil {
			return fmt.Errorf("failed to create folder: %w", err)
		}

		var id string
		var etag int64
		if err := tx.QueryRow("SELECT id, etag FROM folders WHERE uuid = ?", folderUUID).Scan(&id, &etag); err != nil {
			return fmt.Errorf("failed to get folder ID: %w", err)
		}

		payload := map[string]interface{}{
			"name": params.Name,
		}
		if params.ExternalID != nil {
			payload["external_id"] = *params.ExternalID
		}
		if params.ParentUUID != nil {
			payload["parent_uuid"] = *params.ParentUUID
		}
		if err := ew.Log(tx, actor, domain.KindFolder, folderUUID, "folder.created", &etag, payload); err != nil {
			return fmt.Errorf("failed to log event: %w", err)
		}

		result = &CreateResult{UUID: folderUUID, ID: id, ETag: etag}
		return nil
	})

	return result, err
}

// UpdateFields updates specified fields on a folder and logs a folder.updated event.
// Returns the new etag on success.
func (fs *FolderStore) UpdateFields(actor, folderUUID string, fields map[string]interface{}, ifMatch int64) (int64, error) {
	var newETag int64

	err := fs.store.withTx(func(tx *sql.Tx, ew *events.Writer) error {
		var currentETag int64
		err := tx.QueryRow("SELECT etag FROM folders WHERE uuid = ?", folderUUID).Scan(&currentETag)
		if err != nil {
			if err == sql.ErrNoRows {
				return fmt.Errorf("folder not found: %s", folderUUID)
			}
			return fmt.Errorf("failed to get current etag: %w", err)
		}

		if err := checkETag(currentETag, ifMatch); err != nil {
			return err
		}

		setClauses, args, err := buildSetClauses(folderColumns, fields)
		if err != nil {
			return err
		}
		setClauses = append(setClauses,
			"etag = etag + 1",
			"updated_by = ?",
			"updated_at = strftime('%Y-%m-%dT%H:%M:%SZ','now')",
		)
		args = append(args, actor, folderUUID)

		query := fmt.Sprintf("UPDATE folders SET %s WHERE uuid = ?", strings.Join(setClauses, ", "))
		if _, err := tx.Exec(query, args...); err != nil {
			return fmt.Errorf("failed to update folder: %w", err)
		}

		newETag = currentETag + 1
		if err := ew.Log(tx, actor, domain.KindFolder, folderUUID, "folder.updated", &newETag, eventPayload(fields)); err != nil {
			return fmt.Errorf("failed to log event: %w", err)
		}
		return nil
	})

	return newETag, err
}

// Move sets a folder's parent and logs a folder.moved event.
// A nil parent detaches the folder to the root. Returns the new etag on success.
func (fs *FolderStore) Move(actor, folderUUID string, newParentUUID *string, ifMatch int64) (int64, error) {
	var newETag int64

	err := fs.store.withTx(func(tx *sql.Tx, ew *events.Writer) error {
		var currentETag int64
		var oldParentUUID *string
		err := tx.QueryRow("SELECT etag, parent_uuid FROM folders WHERE uuid = ?", folderUUID).Scan(&currentETag, &oldParentUUID)
		if err != nil {
			if err == sql.ErrNoRows {
				return fmt.Errorf("folder not found: %s", folderUUID)
			}
			return fmt.Errorf("failed to get folder: %w", err)
		}

		if err := checkETag(currentETag, ifMatch); err != nil {
			return err
		}

		if newParentUUID != nil {
			if err := checkNoCycle(tx, folderUUID, *newParentUUID); err != nil {
				return err
			}
		}

		_, err = tx.Exec(`
			UPDATE folders
			SET parent_uuid = ?,
				etag = etag + 1,
				updated_by = ?,
				updated_at = strftime('%Y-%m-%dT%H:%M:%SZ','now')
			WHERE uuid = ?
		`, newParentUUID, actor, folderUUID)
		if err != nil {
			return fmt.Errorf("failed to move folder: %w", err)
		}

		payload := map[string]interface{}{}
		if oldParentUUID != nil {
			payload["old_parent_uuid"] = *oldParentUUID
		}
		if newParentUUID != nil {
			payload["new_parent_uuid"] = *newParentUUID
		}
		newETag = currentETag + 1

		if err := ew.Log(tx, actor, domain.KindFolder, folderUUID, "folder.moved", &newETag, payload); err != nil {
			return fmt.Errorf("failed to log event: %w", err)
		}
		return nil
	})

	return newETag, err
}

// checkNoCycle rejects a parent that is the folder itself or one of its descendants.
func checkNoCycle(tx *sql.Tx, folderUUID, parentUUID string) error {
	current := parentUUID
	for depth := 0; depth < 1000; depth++ {
		if current == folderUUID {
			return fmt.Errorf("cannot move folder %s under itself or a descendant", folderUUID)
		}
		var next *string
		err := tx.QueryRow("SELECT parent_uuid FROM folders WHERE uuid = ?", current).Scan(&next)
		if err != nil {
			if err == sql.ErrNoRows {
				return fmt.Errorf("parent folder not found: %s", parentUUID)
			}
			return fmt.Errorf("failed to walk folder ancestry: %w", err)
		}
		if next == nil {
			return nil
		}
		current = *next
	}
	return fmt.Errorf("folder ancestry too deep at %s", parentUUID)
}

// GetByUUID retrieves a folder by UUID.
func (fs *FolderStore) GetByUUID(folderUUID string) (*domain.Folder, error) {
	folder, err := scanFolder(fs.store.db.QueryRow(folderSelect+" WHERE uuid = ?", folderUUID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("folder not found: %s", folderUUID)
		}
		return nil, fmt.Errorf("failed to get folder: %w", err)
	}
	return folder, nil
}

// GetByID retrieves a folder by friendly ID (F-00001).
// Returns nil, nil when no folder carries that id.
func (fs *FolderStore) GetByID(id string) (*domain.Folder, error) {
	folder, err := scanFolder(fs.store.db.QueryRow(folderSelect+" WHERE id = ?", id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get folder: %w", err)
	}
	return folder, nil
}

// FindByExternalID finds a folder by its export external id.
// Returns nil, nil when no folder carries that id.
func (fs *FolderStore) FindByExternalID(externalID string) (*domain.Folder, error) {
	folder, err := scanFolder(fs.store.db.QueryRow(folderSelect+" WHERE external_id = ?", externalID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to lookup folder: %w", err)
	}
	return folder, nil
}

// List returns all folders in creation order.
func (fs *FolderStore) List() ([]domain.Folder, error) {
	return fs.query(folderSelect + " ORDER BY rowid")
}

// Children returns the direct children of a folder, or the root folders when
// parentUUID is nil.
func (fs *FolderStore) Children(parentUUID *string) ([]domain.Folder, error) {
	if parentUUID == nil {
		return fs.query(folderSelect + " WHERE parent_uuid IS NULL ORDER BY name")
	}
	return fs.query(folderSelect+" WHERE parent_uuid = ? ORDER BY name", *parentUUID)
}

func (fs *FolderStore) query(query string, args ...interface{}) ([]domain.Folder, error) {
	rows, err := fs.store.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query folders: %w", err)
	}
	defer rows.Close()

	var folders []domain.Folder
	for rows.Next() {
		folder, err := scanFolder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan folder: %w", err)
		}
		folders = append(folders, *folder)
	}
	return folders, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanFolder(row rowScanner) (*domain.Folder, error) {
	folder := &domain.Folder{}
	// Use string intermediates for time fields since SQLite stores times as strings
	var createdAt, updatedAt string
	err := row.Scan(
		&folder.UUID, &folder.ID, &folder.ExternalID, &folder.Name, &folder.Slug,
		&folder.ParentUUID, &folder.Extra, &folder.ETag,
		&createdAt, &updatedAt, &folder.CreatedBy, &folder.UpdatedBy,
	)
	if err != nil {
		return nil, err
	}
	folder.CreatedAt = parseTime(createdAt)
	folder.UpdatedAt = parseTime(updatedAt)
	return folder, nil
}

// buildSetClauses turns a column map into SET clauses in a stable order,
// rejecting columns outside allowed. Setting name also refreshes slug.
func buildSetClauses(allowed map[string]bool, fields map[string]interface{}) ([]string, []interface{}, error) {
	var setClauses []string
	var args []interface{}

	for _, key := range domain.Fields(fields).Keys() {
		if !allowed[key] {
			return nil, nil, fmt.Errorf("field %q cannot be updated", key)
		}
		setClauses = append(setClauses, fmt.Sprintf("%s = ?", key))
		args = append(args, fields[key])
		if key == "name" {
			if name, ok := fields[key].(string); ok {
				setClauses = append(setClauses, "slug = ?")
				args = append(args, slugFor(name))
			}
		}
	}
	return setClauses, args, nil
}

// eventPayload summarises changed fields without copying large content bodies.
func eventPayload(fields map[string]interface{}) map[string]interface{} {
	payload := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		if s, ok := v.(string); ok && k == "content" {
			payload[k+"_bytes"] = len(s)
			continue
		}
		payload[k] = v
	}
	return payload
}
