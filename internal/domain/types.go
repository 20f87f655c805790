package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// Kind identifies the kind of imported document
type Kind string

const (
	KindFolder  Kind = "folder"
	KindJournal Kind = "journal"
)

// Partial update field names understood by the document store.
const (
	FieldName       = "name"
	FieldExternalID = "external_id"
	FieldParent     = "parent" // folder parent, or a journal's folder
	FieldContent    = "content"
	FieldExtra      = "extra"
)

// Extra is the open bag of pass-through export fields, copied verbatim.
type Extra map[string]json.RawMessage

// Folder represents an imported folder
type Folder struct {
	UUID       string    `json:"uuid" db:"uuid"`
	ID         string    `json:"id" db:"id"`
	ExternalID *string   `json:"external_id,omitempty" db:"external_id"`
	Name       string    `json:"name" db:"name"`
	Slug       string    `json:"slug" db:"slug"`
	ParentUUID *string   `json:"parent_uuid,omitempty" db:"parent_uuid"`
	Extra      string    `json:"extra" db:"extra"` // JSON
	ETag       int64     `json:"etag" db:"etag"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
	CreatedBy  string    `json:"created_by" db:"created_by"`
	UpdatedBy  string    `json:"updated_by" db:"updated_by"`
}

// Journal represents an imported journal entry
type Journal struct {
	UUID       string    `json:"uuid" db:"uuid"`
	ID         string    `json:"id" db:"id"`
	ExternalID *string   `json:"external_id,omitempty" db:"external_id"`
	Name       string    `json:"name" db:"name"`
	Slug       string    `json:"slug" db:"slug"`
	FolderUUID string    `json:"folder_uuid" db:"folder_uuid"`
	Content    string    `json:"content" db:"content"`
	Extra      string    `json:"extra" db:"extra"` // JSON
	ETag       int64     `json:"etag" db:"etag"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
	CreatedBy  string    `json:"created_by" db:"created_by"`
	UpdatedBy  string    `json:"updated_by" db:"updated_by"`
}

// Event represents an event in the event log
type Event struct {
	ID           int64     `json:"id" db:"id"`
	Timestamp    time.Time `json:"timestamp" db:"timestamp"`
	Actor        *string   `json:"actor,omitempty" db:"actor"`
	ResourceType string    `json:"resource_type" db:"resource_type"`
	ResourceUUID *string   `json:"resource_uuid,omitempty" db:"resource_uuid"`
	EventType    string    `json:"event_type" db:"event_type"`
	ETag         *int64    `json:"etag,omitempty" db:"etag"`
	Payload      *string   `json:"payload,omitempty" db:"payload"` // JSON
}

// Document is the kind-agnostic view of a stored folder or journal that the
// importer works with. ID is the store-assigned internal id.
type Document struct {
	Kind       Kind
	ID         string
	FriendlyID string
	ExternalID string
	Name       string
	ParentID   string // folder parent, or a journal's folder
	Content    string
	Extra      Extra
	ETag       int64
}

// Record is the input to a document create.
type Record struct {
	Name       string
	ExternalID string
	ParentID   string
	Content    string
	Extra      Extra
}

// Fields is a partial update keyed by the Field* constants.
type Fields map[string]any

// Keys returns the field names in sorted order.
func (f Fields) Keys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ParseExtra decodes the stored JSON bag. Empty input yields an empty bag.
func ParseExtra(s string) (Extra, error) {
	extra := Extra{}
	if s == "" {
		return extra, nil
	}
	if err := json.Unmarshal([]byte(s), &extra); err != nil {
		return nil, fmt.Errorf("invalid extra JSON: %w", err)
	}
	return extra, nil
}

// Encode serialises the bag for storage.
func (e Extra) Encode() (string, error) {
	if len(e) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(e)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Document converts the folder into the importer's view.
func (f *Folder) Document() (*Document, error) {
	extra, err := ParseExtra(f.Extra)
	if err != nil {
		return nil, err
	}
	doc := &Document{
		Kind:       KindFolder,
		ID:         f.UUID,
		FriendlyID: f.ID,
		Name:       f.Name,
		Extra:      extra,
		ETag:       f.ETag,
	}
	if f.ExternalID != nil {
		doc.ExternalID = *f.ExternalID
	}
	if f.ParentUUID != nil {
		doc.ParentID = *f.ParentUUID
	}
	return doc, nil
}

// Document converts the journal into the importer's view.
func (j *Journal) Document() (*Document, error) {
	extra, err := ParseExtra(j.Extra)
	if err != nil {
		return nil, err
	}
	doc := &Document{
		Kind:       KindJournal,
		ID:         j.UUID,
		FriendlyID: j.ID,
		Name:       j.Name,
		ParentID:   j.FolderUUID,
		Content:    j.Content,
		Extra:      extra,
		ETag:       j.ETag,
	}
	if j.ExternalID != nil {
		doc.ExternalID = *j.ExternalID
	}
	return doc, nil
}
