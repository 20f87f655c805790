// Package cursor encodes opaque pagination cursors over the event log.
package cursor

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Cursor marks the last event a page returned for a resource. Pages run
// newest first, so the next page holds events with smaller ids.
type Cursor struct {
	ResourceUUID string `json:"resource_uuid"`
	LastID       int64  `json:"last_id"`
}

// New creates a cursor positioned after lastID.
func New(resourceUUID string, lastID int64) (*Cursor, error) {
	if resourceUUID == "" {
		return nil, fmt.Errorf("resource uuid required")
	}
	if lastID <= 0 {
		return nil, fmt.Errorf("last ID must be positive, got %d", lastID)
	}
	return &Cursor{ResourceUUID: resourceUUID, LastID: lastID}, nil
}

// Encode serializes the cursor to an opaque base64 string
func (c *Cursor) Encode() (string, error) {
	jsonData, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to marshal cursor: %w", err)
	}
	return base64.URLEncoding.EncodeToString(jsonData), nil
}

// Decode deserializes a cursor from an opaque base64 string
func Decode(encoded string) (*Cursor, error) {
	if encoded == "" {
		return nil, fmt.Errorf("empty cursor string")
	}

	jsonData, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor encoding: %w", err)
	}

	var c Cursor
	if err := json.Unmarshal(jsonData, &c); err != nil {
		return nil, fmt.Errorf("invalid cursor format: %w", err)
	}
	if c.ResourceUUID == "" {
		return nil, fmt.Errorf("cursor missing resource uuid")
	}
	if c.LastID <= 0 {
		return nil, fmt.Errorf("cursor missing last ID")
	}
	return &c, nil
}

// For checks that the cursor was issued for resourceUUID, so a cursor from
// one journal's history cannot page through another's.
func (c *Cursor) For(resourceUUID string) error {
	if c.ResourceUUID != resourceUUID {
		return fmt.Errorf("cursor belongs to a different resource")
	}
	return nil
}

// BuildWhereClause returns the condition selecting events after the cursor.
func (c *Cursor) BuildWhereClause() (string, []interface{}) {
	return "id < ?", []interface{}{c.LastID}
}
