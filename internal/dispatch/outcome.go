package dispatch

import (
	"time"

	"github.com/dimitrije/nikode-engine/internal/models"
	"github.com/google/uuid"
)

type State string

const (
	StateIdle      State = "idle"
	StateSending   State = "sending"
	StateSuccess   State = "success"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

// Terminal reports whether the state ends a send.
func (s State) Terminal() bool {
	return s == StateSuccess || s == StateFailed || s == StateCancelled
}

// Error kinds raised by the engine itself. Proxy-classified kinds pass
// through unchanged.
const (
	ErrorKindURLValidation = "url_validation_error"
	ErrorKindConnection    = "connection_error"
	ErrorKindUnknown       = "unknown_error"
)

// Outcome is the single result of one send.
type Outcome struct {
	RequestID    uuid.UUID               `json:"request_id"`
	State        State                   `json:"state"`
	Status       int                     `json:"status,omitempty"`
	Headers      []models.ResponseHeader `json:"headers,omitempty"`
	Body         string                  `json:"body,omitempty"`
	TimeMs       float64                 `json:"time_ms,omitempty"`
	Size         int64                   `json:"size,omitempty"`
	IsBinary     bool                    `json:"is_binary,omitempty"`
	ErrorType    string                  `json:"error_type,omitempty"`
	ErrorTitle   string                  `json:"error_title,omitempty"`
	ErrorMessage string                  `json:"error_message,omitempty"`
	URL          string                  `json:"url,omitempty"`
}

func failed(kind, title, message string) Outcome {
	return Outcome{State: StateFailed, ErrorType: kind, ErrorTitle: title, ErrorMessage: message}
}

// Snapshot converts a successful outcome into the persisted response form.
func (o Outcome) Snapshot(receivedAt time.Time) *models.ResponseSnapshot {
	if o.State != StateSuccess {
		return nil
	}
	return &models.ResponseSnapshot{
		Status:     o.Status,
		Headers:    o.Headers,
		Body:       o.Body,
		TimeMs:     o.TimeMs,
		Size:       o.Size,
		IsBinary:   o.IsBinary,
		ReceivedAt: receivedAt,
	}
}
