package importer

import (
	"context"
	"fmt"
	"io/fs"
	"maps"

	"github.com/lherron/advimport/internal/domain"
)

// memStore is an in-memory DocumentStore with error injection.
type memStore struct {
	docs  map[string]*domain.Document
	order []string
	next  int

	creates     int
	updates     int
	journalFind int

	failCreate map[string]error // keyed by external id
	failUpdate map[string]error // keyed by internal id
}

func newMemStore() *memStore {
	return &memStore{
		docs:       map[string]*domain.Document{},
		failCreate: map[string]error{},
		failUpdate: map[string]error{},
	}
}

func (m *memStore) FindByExternalID(kind domain.Kind, externalID string) (*domain.Document, error) {
	if kind == domain.KindJournal {
		m.journalFind++
	}
	for _, id := range m.order {
		doc := m.docs[id]
		if doc.Kind == kind && doc.ExternalID == externalID {
			return clone(doc), nil
		}
	}
	return nil, nil
}

func (m *memStore) Get(kind domain.Kind, id string) (*domain.Document, error) {
	doc, ok := m.docs[id]
	if !ok || doc.Kind != kind {
		return nil, fmt.Errorf("%s not found: %s", kind, id)
	}
	return clone(doc), nil
}

func (m *memStore) Create(kind domain.Kind, rec domain.Record) (*domain.Document, error) {
	if err := m.failCreate[rec.ExternalID]; err != nil {
		return nil, err
	}
	m.creates++
	m.next++
	doc := &domain.Document{
		Kind:       kind,
		ID:         fmt.Sprintf("%s-%d", kind, m.next),
		ExternalID: rec.ExternalID,
		Name:       rec.Name,
		ParentID:   rec.ParentID,
		Content:    rec.Content,
		Extra:      maps.Clone(rec.Extra),
		ETag:       1,
	}
	m.docs[doc.ID] = doc
	m.order = append(m.order, doc.ID)
	return clone(doc), nil
}

func (m *memStore) Update(kind domain.Kind, id string, fields domain.Fields) (*domain.Document, error) {
	if err := m.failUpdate[id]; err != nil {
		return nil, err
	}
	doc, ok := m.docs[id]
	if !ok || doc.Kind != kind {
		return nil, fmt.Errorf("%s not found: %s", kind, id)
	}
	if err := domain.ValidateFields(kind, fields); err != nil {
		return nil, err
	}
	m.updates++
	for k, v := range fields {
		switch k {
		case domain.FieldName:
			doc.Name = v.(string)
		case domain.FieldExternalID:
			doc.ExternalID = v.(string)
		case domain.FieldParent:
			doc.ParentID = v.(string)
		case domain.FieldContent:
			doc.Content = v.(string)
		case domain.FieldExtra:
			doc.Extra = maps.Clone(v.(domain.Extra))
		}
	}
	doc.ETag++
	return clone(doc), nil
}

func (m *memStore) ListContents(folderID string) ([]domain.Document, error) {
	var out []domain.Document
	for _, id := range m.order {
		doc := m.docs[id]
		if doc.Kind == domain.KindJournal && doc.ParentID == folderID {
			out = append(out, *clone(doc))
		}
	}
	return out, nil
}

func (m *memStore) count(kind domain.Kind) int {
	n := 0
	for _, doc := range m.docs {
		if doc.Kind == kind {
			n++
		}
	}
	return n
}

func (m *memStore) byExternalID(kind domain.Kind, ext string) *domain.Document {
	doc, _ := m.FindByExternalID(kind, ext)
	return doc
}

func clone(doc *domain.Document) *domain.Document {
	c := *doc
	c.Extra = maps.Clone(doc.Extra)
	return &c
}

// mapSource serves exports from memory.
type mapSource map[string]string

func (s mapSource) Fetch(ctx context.Context, rel string) ([]byte, error) {
	data, ok := s[rel]
	if !ok {
		return nil, fmt.Errorf("open %s: %w", rel, fs.ErrNotExist)
	}
	return []byte(data), nil
}
