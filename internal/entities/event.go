package entities

import (
	"encoding/json"
	"time"
)

// EventType identifies which handler processes an event.
type EventType string

const (
	EventUserMessage     EventType = "user_message"
	EventOperatorMessage EventType = "operator_message"
)

// EventStatus is the processing state of an event row.
type EventStatus string

const (
	EventPending    EventStatus = "pending"
	EventProcessing EventStatus = "processing"
	EventCompleted  EventStatus = "completed"
	// EventFailed means the retry budget is exhausted.
	EventFailed EventStatus = "failed"
	// EventDeadLetter means processing can never succeed (unknown type,
	// unregistered handler) so no retry budget was spent.
	EventDeadLetter EventStatus = "dead_letter"
)

const (
	// LeaseTimeout is how long a processing lease is honored before the
	// event is considered abandoned and reclaimable.
	LeaseTimeout = 5 * time.Minute

	DefaultMaxRetries = 2
)

// Event is a durable unit of deferred work. Rows live in public.events so
// the dispatcher can schedule them before any tenant schema is resolved.
// Rows are never deleted; terminal statuses keep the audit trail.
type Event struct {
	ID                  int64           `json:"id"`
	EventType           EventType       `json:"event_type"`
	Payload             json.RawMessage `json:"payload"`
	Status              EventStatus     `json:"status"`
	RetryCount          int             `json:"retry_count"`
	MaxRetries          int             `json:"max_retries"`
	ProcessingID        *string         `json:"processing_id,omitempty"`
	ProcessingStartedAt *time.Time      `json:"processing_started_at,omitempty"`
	ProcessedAt         *time.Time      `json:"processed_at,omitempty"`
	NextRetryAt         *time.Time      `json:"next_retry_at,omitempty"`
	ErrorMessage        *string         `json:"error_message,omitempty"`
	ErrorTrace          *string         `json:"error_trace,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// BackoffDelay returns the wait before the given retry attempt:
// 2^retryCount minutes (2m, 4m, 8m, ...).
func BackoffDelay(retryCount int) time.Duration {
	return time.Duration(1<<uint(retryCount)) * time.Minute
}

// Terminal reports whether no further processing attempt will happen.
func (s EventStatus) Terminal() bool {
	return s == EventCompleted || s == EventFailed || s == EventDeadLetter
}

// LeaseExpired reports whether a processing lease is old enough to reclaim.
func (e *Event) LeaseExpired(now time.Time) bool {
	return e.Status == EventProcessing &&
		e.ProcessingStartedAt != nil &&
		now.Sub(*e.ProcessingStartedAt) > LeaseTimeout
}

// MessageEventPayload is the serialized payload shared by user_message and
// operator_message events. It carries everything the handler needs so
// processing never depends on request-scoped state existing later.
type MessageEventPayload struct {
	TenantID       int   `json:"tenant_id"`
	ConversationID int64 `json:"conversation_id"`
	MessageID      int64 `json:"message_id"`
}

// Valid checks the required payload fields.
func (p MessageEventPayload) Valid() bool {
	return p.TenantID != 0 && p.ConversationID != 0 && p.MessageID != 0
}
