package store

import (
	"fmt"

	"github.com/lherron/advimport/internal/domain"
)

// Documents exposes folders and journals through the kind-agnostic
// create/find/update/list surface the importer consumes. Every write is
// attributed to actor.
type Documents struct {
	store *Store
	actor string
}

// Documents returns the importer-facing view of the store.
func (s *Store) Documents(actor string) *Documents {
	return &Documents{store: s, actor: actor}
}

// FindByExternalID returns the document carrying externalID, or nil when none does.
func (d *Documents) FindByExternalID(kind domain.Kind, externalID string) (*domain.Document, error) {
	switch kind {
	case domain.KindFolder:
		folder, err := d.store.Folders.FindByExternalID(externalID)
		if err != nil || folder == nil {
			return nil, err
		}
		return folder.Document()
	case domain.KindJournal:
		journal, err := d.store.Journals.FindByExternalID(externalID)
		if err != nil || journal == nil {
			return nil, err
		}
		return journal.Document()
	default:
		return nil, domain.ValidateKind(kind)
	}
}

// Get loads a document by internal id.
func (d *Documents) Get(kind domain.Kind, id string) (*domain.Document, error) {
	switch kind {
	case domain.KindFolder:
		folder, err := d.store.Folders.GetByUUID(id)
		if err != nil {
			return nil, err
		}
		return folder.Document()
	case domain.KindJournal:
		journal, err := d.store.Journals.GetByUUID(id)
		if err != nil {
			return nil, err
		}
		return journal.Document()
	default:
		return nil, domain.ValidateKind(kind)
	}
}

// Create inserts a new document from rec and returns it with its assigned id.
func (d *Documents) Create(kind domain.Kind, rec domain.Record) (*domain.Document, error) {
	extra, err := rec.Extra.Encode()
	if err != nil {
		return nil, fmt.Errorf("failed to encode extra fields: %w", err)
	}
	externalID := optional(rec.ExternalID)

	var id string
	switch kind {
	case domain.KindFolder:
		res, err := d.store.Folders.Create(d.actor, FolderCreateParams{
			ExternalID: externalID,
			Name:       rec.Name,
			ParentUUID: optional(rec.ParentID),
			Extra:      extra,
		})
		if err != nil {
			return nil, err
		}
		id = res.UUID
	case domain.KindJournal:
		res, err := d.store.Journals.Create(d.actor, JournalCreateParams{
			ExternalID: externalID,
			Name:       rec.Name,
			FolderUUID: rec.ParentID,
			Content:    rec.Content,
			Extra:      extra,
		})
		if err != nil {
			return nil, err
		}
		id = res.UUID
	default:
		return nil, domain.ValidateKind(kind)
	}

	return d.Get(kind, id)
}

// Update applies a partial update. A FieldParent change is applied as a move
// and skipped when the document already has that parent.
func (d *Documents) Update(kind domain.Kind, id string, fields domain.Fields) (*domain.Document, error) {
	if err := domain.ValidateKind(kind); err != nil {
		return nil, err
	}
	if err := domain.ValidateFields(kind, fields); err != nil {
		return nil, err
	}

	columns := map[string]interface{}{}
	for _, key := range fields.Keys() {
		switch key {
		case domain.FieldParent:
			continue
		case domain.FieldExtra:
			extra, ok := fields[key].(domain.Extra)
			if !ok {
				return nil, fmt.Errorf("field %q must be domain.Extra, got %T", key, fields[key])
			}
			encoded, err := extra.Encode()
			if err != nil {
				return nil, fmt.Errorf("failed to encode extra fields: %w", err)
			}
			columns["extra"] = encoded
		default:
			columns[key] = fields[key]
		}
	}

	if len(columns) > 0 {
		var err error
		if kind == domain.KindFolder {
			_, err = d.store.Folders.UpdateFields(d.actor, id, columns, 0)
		} else {
			_, err = d.store.Journals.UpdateFields(d.actor, id, columns, 0)
		}
		if err != nil {
			return nil, err
		}
	}

	doc, err := d.Get(kind, id)
	if err != nil {
		return nil, err
	}

	if raw, ok := fields[domain.FieldParent]; ok {
		parent, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("field %q must be a string, got %T", domain.FieldParent, raw)
		}
		if parent == doc.ParentID {
			return doc, nil
		}
		if kind == domain.KindFolder {
			_, err = d.store.Folders.Move(d.actor, id, optional(parent), 0)
		} else {
			if parent == "" {
				return nil, fmt.Errorf("journal %s cannot be detached from its folder", id)
			}
			_, err = d.store.Journals.Move(d.actor, id, parent, 0)
		}
		if err != nil {
			return nil, err
		}
		return d.Get(kind, id)
	}

	return doc, nil
}

// ListContents returns the journals held directly by a folder.
func (d *Documents) ListContents(folderID string) ([]domain.Document, error) {
	journals, err := d.store.Journals.ListByFolder(folderID)
	if err != nil {
		return nil, err
	}
	docs := make([]domain.Document, 0, len(journals))
	for i := range journals {
		doc, err := journals[i].Document()
		if err != nil {
			return nil, fmt.Errorf("journal %s: %w", journals[i].UUID, err)
		}
		docs = append(docs, *doc)
	}
	return docs, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
