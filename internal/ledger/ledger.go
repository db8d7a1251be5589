// Package ledger provides an append-only history of device commands.
// It supports command deduplication and auditing; it is not entity
// storage, device/group/effect state lives elsewhere.
package ledger

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// EventType represents the type of event in the ledger
type EventType string

const (
	EventCommandDispatched EventType = "command_dispatched"
	EventCommandCompleted  EventType = "command_completed"
	EventCommandFailed     EventType = "command_failed"
	EventCommandRefused    EventType = "command_refused"
)

// Entry represents a single event in the ledger
type Entry struct {
	ID         int64
	EventType  EventType
	Timestamp  time.Time
	DeviceID   string
	Payload    map[string]any
	CommandKey string
}

// Ledger provides append-only command logging with deduplication
type Ledger struct {
	db *sql.DB
}

// New creates a new Ledger using the provided database connection
func New(db *sql.DB) *Ledger {
	return &Ledger{db: db}
}

// Append adds a new event to the ledger.
// For command_completed events, uses INSERT OR IGNORE so the unique
// partial index on command_key keeps only the first completion.
func (l *Ledger) Append(eventType EventType, deviceID, commandKey string, payload map[string]any) error {
	var payloadJSON []byte
	var err error

	if payload != nil {
		payloadJSON, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
	}

	now := time.Now().UTC().Unix()

	insertSQL := `INSERT INTO command_ledger (event_type, timestamp, device_id, payload, command_key) VALUES (?, ?, ?, ?, ?)`
	if eventType == EventCommandCompleted && commandKey != "" {
		insertSQL = `INSERT OR IGNORE INTO command_ledger (event_type, timestamp, device_id, payload, command_key) VALUES (?, ?, ?, ?, ?)`
	}

	_, err = l.db.Exec(insertSQL, string(eventType), now, deviceID, string(payloadJSON), commandKey)

	return err
}

// HasCompleted checks if a command with the given key has completed
func (l *Ledger) HasCompleted(commandKey string) bool {
	if commandKey == "" {
		return false // Empty key = no dedupe
	}

	var exists int
	err := l.db.QueryRow(`
		SELECT 1 FROM command_ledger
		WHERE command_key = ? AND event_type = ?
		LIMIT 1
	`, commandKey, string(EventCommandCompleted)).Scan(&exists)

	return err == nil && exists == 1
}

// GetByType returns entries filtered by event type
func (l *Ledger) GetByType(eventType EventType, limit int) ([]*Entry, error) {
	rows, err := l.db.Query(`
		SELECT id, event_type, timestamp, device_id, payload, command_key
		FROM command_ledger
		WHERE event_type = ?
		ORDER BY timestamp DESC
		LIMIT ?
	`, string(eventType), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return l.scanEntries(rows)
}

// GetByDevice returns the most recent entries for one device
func (l *Ledger) GetByDevice(deviceID string, limit int) ([]*Entry, error) {
	rows, err := l.db.Query(`
		SELECT id, event_type, timestamp, device_id, payload, command_key
		FROM command_ledger
		WHERE device_id = ?
		ORDER BY timestamp DESC
		LIMIT ?
	`, deviceID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return l.scanEntries(rows)
}

// DeleteOlderThan removes entries older than the specified duration (retention policy)
func (l *Ledger) DeleteOlderThan(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention).Unix()
	result, err := l.db.Exec(`
		DELETE FROM command_ledger WHERE timestamp < ?
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (l *Ledger) scanEntries(rows *sql.Rows) ([]*Entry, error) {
	var entries []*Entry
	for rows.Next() {
		var entry Entry
		var payloadStr sql.NullString
		var deviceID, commandKey sql.NullString
		var timestamp int64

		err := rows.Scan(
			&entry.ID, &entry.EventType, &timestamp, &deviceID, &payloadStr, &commandKey,
		)
		if err != nil {
			return nil, err
		}

		entry.Timestamp = time.Unix(timestamp, 0).UTC()
		if deviceID.Valid {
			entry.DeviceID = deviceID.String
		}
		if commandKey.Valid {
			entry.CommandKey = commandKey.String
		}

		if payloadStr.Valid && payloadStr.String != "" {
			entry.Payload = make(map[string]any)
			if err := json.Unmarshal([]byte(payloadStr.String), &entry.Payload); err != nil {
				return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
			}
		}

		entries = append(entries, &entry)
	}

	return entries, rows.Err()
}
