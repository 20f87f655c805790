package domain

import (
	"fmt"
	"regexp"
	"time"
)

// UUIDv4Regex validates lowercase UUIDv4 format
var UUIDv4Regex = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)

// ValidateUUID validates a UUID v4 format (lowercase with hyphens)
func ValidateUUID(uuid string) error {
	if !UUIDv4Regex.MatchString(uuid) {
		return fmt.Errorf("invalid UUID: must be lowercase UUIDv4 format (e.g., 550e8400-e29b-41d4-a716-446655440000)")
	}
	return nil
}

// ValidateKind validates a document kind
func ValidateKind(kind Kind) error {
	switch kind {
	case KindFolder, KindJournal:
		return nil
	default:
		return fmt.Errorf("invalid kind %q: must be one of: folder, journal", kind)
	}
}

// ValidateFields rejects partial updates naming fields the kind does not have.
func ValidateFields(kind Kind, fields Fields) error {
	for _, key := range fields.Keys() {
		switch key {
		case FieldName, FieldExternalID, FieldParent, FieldExtra:
		case FieldContent:
			if kind != KindJournal {
				return fmt.Errorf("field %q is not valid for %s", key, kind)
			}
		default:
			return fmt.Errorf("unknown field %q for %s", key, kind)
		}
	}
	return nil
}

// ValidateTimestamp validates and parses an ISO8601 timestamp
func ValidateTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp format: expected ISO8601/RFC3339")
	}
	return t, nil
}

// ETagMismatchError is returned when an etag doesn't match
type ETagMismatchError struct {
	Expected int64
	Actual   int64
}

func (e *ETagMismatchError) Error() string {
	return fmt.Sprintf("etag mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// CheckETag validates an etag against the current value
func CheckETag(expected, actual int64) error {
	if expected != actual {
		return &ETagMismatchError{Expected: expected, Actual: actual}
	}
	return nil
}
