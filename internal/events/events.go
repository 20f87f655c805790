package events

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lherron/advimport/internal/domain"
)

// Writer handles writing events to the event log
type Writer struct {
	db *sql.DB
}

// NewWriter creates a new event writer
func NewWriter(db *sql.DB) *Writer {
	return &Writer{db: db}
}

// LogEvent writes an event to the event log
func (w *Writer) LogEvent(tx *sql.Tx, event *domain.Event) error {
	query := `
		INSERT INTO event_log (actor, resource_type, resource_uuid, event_type, etag, payload)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	executor := w.getExecutor(tx)
	_, err := executor.Exec(query, event.Actor, event.ResourceType, event.ResourceUUID, event.EventType, event.ETag, event.Payload)
	if err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}

	return nil
}

// Log marshals payload and writes a single event for a resource.
func (w *Writer) Log(tx *sql.Tx, actor string, kind domain.Kind, uuid, eventType string, etag *int64, payload map[string]interface{}) error {
	var payloadStr *string
	if payload != nil {
		payloadJSON, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal event payload: %w", err)
		}
		s := string(payloadJSON)
		payloadStr = &s
	}

	return w.LogEvent(tx, &domain.Event{
		Actor:        &actor,
		ResourceType: string(kind),
		ResourceUUID: &uuid,
		EventType:    eventType,
		ETag:         etag,
		Payload:      payloadStr,
	})
}

// Recent returns the most recent events for a resource, newest first.
func (w *Writer) Recent(resourceUUID string, limit int) ([]domain.Event, error) {
	return w.Page(resourceUUID, "", nil, limit)
}

// Page returns up to limit events for a resource, newest first. A non-empty
// where clause narrows the page, typically to events older than a cursor.
func (w *Writer) Page(resourceUUID, where string, whereArgs []interface{}, limit int) ([]domain.Event, error) {
	query := `
		SELECT id, actor, resource_type, resource_uuid, event_type, etag, payload
		FROM event_log WHERE resource_uuid = ?`
	args := []interface{}{resourceUUID}
	if where != "" {
		query += " AND " + where
		args = append(args, whereArgs...)
	}
	query += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := w.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var out []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.Actor, &e.ResourceType, &e.ResourceUUID, &e.EventType, &e.ETag, &e.Payload); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type executor interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
}

func (w *Writer) getExecutor(tx *sql.Tx) executor {
	if tx != nil {
		return tx
	}
	return w.db
}
