package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// SessionExportMessage asks the export worker to write a reviewed
// session to the audit book. It carries only the session id; the worker
// fetches the full session from the database.
type SessionExportMessage struct {
	MessageID string    `json:"message_id"`
	SessionID int64     `json:"session_id"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}

// NewSessionExportMessage creates an export message for a reviewed session
func NewSessionExportMessage(sessionID int64, status string) *SessionExportMessage {
	return &SessionExportMessage{
		MessageID: uuid.New().String(),
		SessionID: sessionID,
		Status:    status,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *SessionExportMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// SessionExportMessageFromJSON creates a message from JSON bytes
func SessionExportMessageFromJSON(data []byte) (*SessionExportMessage, error) {
	var msg SessionExportMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
