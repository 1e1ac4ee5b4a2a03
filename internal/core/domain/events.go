package domain

import "time"

// EventType identifies events emitted to the view layer.
type EventType string

const (
	EventViewChanged    EventType = "view_changed"
	EventResults        EventType = "results"
	EventError          EventType = "error"
	EventDetailLoading  EventType = "detail_loading"
	EventDetailRendered EventType = "detail_rendered"
	EventDetailFailed   EventType = "detail_failed"
	EventAuthRequired   EventType = "auth_required"
)

// Event is a single notification for the view layer.
type Event struct {
	Type   EventType       `json:"type"`
	View   *ViewState      `json:"view,omitempty"`
	Result *SearchResult   `json:"result,omitempty"`
	Detail *DetailSnapshot `json:"detail,omitempty"`
	Error  *ErrorDetail    `json:"error,omitempty"`
	At     time.Time       `json:"at"`
}

// ErrorDetail carries the classified error of a failed operation.
type ErrorDetail struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// NewErrorEvent builds an error event from err.
func NewErrorEvent(err error) Event {
	return Event{
		Type:  EventError,
		Error: &ErrorDetail{Kind: KindOf(err), Message: err.Error()},
		At:    time.Now(),
	}
}

// DetailStatus is the lifecycle position of a detail session.
type DetailStatus string

const (
	DetailLoading  DetailStatus = "loading"
	DetailRendered DetailStatus = "rendered"
	DetailFailed   DetailStatus = "error"
	DetailClosed   DetailStatus = "closed"
)

// DetailSnapshot is a read-only view of a detail session.
type DetailSnapshot struct {
	SessionID string         `json:"session_id"`
	ObjectID  string         `json:"object_id"`
	Status    DetailStatus   `json:"status"`
	Content   *DetailContent `json:"content,omitempty"`
	Error     string         `json:"error,omitempty"`
	OpenedAt  time.Time      `json:"opened_at"`
}
