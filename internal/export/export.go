// Package export decodes the folder and journal exports written by the
// authoring tool into typed records plus an opaque pass-through bag.
package export

import (
	"bytes"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/lherron/advimport/internal/domain"
)

// Top-level record keys.
const (
	KeyName             = "name"
	KeyExternalID       = "externalId"
	KeyParentExternalID = "parentExternalId"
	KeyFolderExternalID = "folderExternalId"
	KeyContent          = "content"
)

// Nested id locations used when the flat keys are absent.
const (
	nestedIDPath     = "flags.zdnd.id"
	nestedParentPath = "flags.zdnd.pid"
	nestedFolderPath = "flags.zdnd.folder"
)

// FolderRecord is one entry of folders.json.
type FolderRecord struct {
	Index            int
	Name             *string
	ExternalID       string
	ParentExternalID string
	Extra            domain.Extra
}

// Malformed reports whether the record lacks a name.
func (r FolderRecord) Malformed() bool { return r.Name == nil }

// JournalRecord is one entry of adv.json.
type JournalRecord struct {
	Index            int
	Name             *string
	ExternalID       string
	FolderExternalID string
	Content          string
	Extra            domain.Extra
}

// Malformed reports whether the record lacks a name.
func (r JournalRecord) Malformed() bool { return r.Name == nil }

// DecodeFolders parses a folder export. An empty document, null, {} or []
// yields no records and no error.
func DecodeFolders(data []byte) ([]FolderRecord, error) {
	elems, err := elements(data)
	if err != nil {
		return nil, err
	}

	records := make([]FolderRecord, 0, len(elems))
	for i, elem := range elems {
		records = append(records, FolderRecord{
			Index:            i,
			Name:             nameOf(elem),
			ExternalID:       lookup(elem, KeyExternalID, nestedIDPath),
			ParentExternalID: lookup(elem, KeyParentExternalID, nestedParentPath),
			Extra:            passthrough(elem, KeyName, KeyExternalID, KeyParentExternalID),
		})
	}
	return records, nil
}

// DecodeJournals parses a journal export. An empty document, null, {} or []
// yields no records and no error.
func DecodeJournals(data []byte) ([]JournalRecord, error) {
	elems, err := elements(data)
	if err != nil {
		return nil, err
	}

	records := make([]JournalRecord, 0, len(elems))
	for i, elem := range elems {
		records = append(records, JournalRecord{
			Index:            i,
			Name:             nameOf(elem),
			ExternalID:       lookup(elem, KeyExternalID, nestedIDPath),
			FolderExternalID: lookup(elem, KeyFolderExternalID, nestedFolderPath),
			Content:          elem.Get(KeyContent).String(),
			Extra:            passthrough(elem, KeyName, KeyExternalID, KeyFolderExternalID, KeyContent),
		})
	}
	return records, nil
}

func elements(data []byte) ([]gjson.Result, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("export is not valid JSON")
	}

	root := gjson.ParseBytes(data)
	switch {
	case root.IsArray():
		return root.Array(), nil
	case root.IsObject():
		if len(root.Map()) == 0 {
			return nil, nil
		}
		return nil, fmt.Errorf("export must be a JSON array of records, got an object")
	case root.Type == gjson.Null:
		return nil, nil
	default:
		return nil, fmt.Errorf("export must be a JSON array of records, got %s", root.Type)
	}
}

// nameOf returns nil unless the record carries a string name.
func nameOf(elem gjson.Result) *string {
	r := elem.Get(KeyName)
	if r.Type != gjson.String {
		return nil
	}
	name := r.String()
	return &name
}

// lookup reads the flat key, falling back to the nested path.
func lookup(elem gjson.Result, key, nested string) string {
	if r := elem.Get(key); r.Exists() && r.Type != gjson.Null {
		return r.String()
	}
	return elem.Get(nested).String()
}

// passthrough copies every key except the typed ones, keeping the raw JSON bytes.
func passthrough(elem gjson.Result, typed ...string) domain.Extra {
	extra := domain.Extra{}
	if !elem.IsObject() {
		return extra
	}
	skip := make(map[string]bool, len(typed))
	for _, k := range typed {
		skip[k] = true
	}
	elem.ForEach(func(key, value gjson.Result) bool {
		if !skip[key.String()] {
			extra[key.String()] = []byte(value.Raw)
		}
		return true
	})
	return extra
}
