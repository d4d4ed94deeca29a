// Package delivery implements the webhook delivery pipeline: dispatch
// queue, HTTP client, retry scheduling, durable delivery state, and the
// worker loop that drives them. Delivery is at-least-once; receivers
// de-duplicate on the event id.
package delivery

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/camayank/hookflow/internal/event"
)

// Status is the state of a delivery chain (and of each recorded attempt).
// Transitions only move forward: pending -> delivered|retrying|failed,
// retrying -> pending (next attempt) -> delivered|retrying|failed.
type Status string

const (
	StatusPending   Status = "pending"
	StatusDelivered Status = "delivered"
	StatusRetrying  Status = "retrying"
	StatusFailed    Status = "failed"
)

// Terminal reports whether no further transition can occur.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusFailed
}

// ErrorKind tags a failed attempt so retry decisions are data, not
// control flow.
type ErrorKind string

const (
	ErrorKindTimeout   ErrorKind = "TIMEOUT"
	ErrorKindTransport ErrorKind = "TRANSPORT"
)

// HTTPErrorKind returns the kind for a non-2xx response, e.g. HTTP_500.
func HTTPErrorKind(status int) ErrorKind {
	return ErrorKind(fmt.Sprintf("HTTP_%d", status))
}

// ErrEndpointInactive is recorded when a scheduled retry is cut short
// because the endpoint was paused or disabled in the meantime.
const ErrEndpointInactive = "endpoint no longer active"

// Delivery is one (event, endpoint) chain. One event fans out to N
// independent chains; chains never interact. The event payload is
// snapshotted so retries survive process restarts.
type Delivery struct {
	ID              uuid.UUID
	EventID         uuid.UUID
	EndpointID      uuid.UUID
	TenantID        string
	EventType       string
	EventOccurredAt time.Time
	Data            map[string]any
	Metadata        map[string]any
	Status          Status
	AttemptCount    int
	NextRetryAt     *time.Time
	LastError       string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	DeliveredAt     *time.Time
}

// NewDelivery starts a chain for the event/endpoint pair.
func NewDelivery(ev event.Event, endpointID uuid.UUID) *Delivery {
	return &Delivery{
		ID:              uuid.New(),
		EventID:         ev.ID,
		EndpointID:      endpointID,
		TenantID:        ev.TenantID,
		EventType:       ev.Type,
		EventOccurredAt: ev.OccurredAt,
		Data:            ev.Data,
		Metadata:        ev.Metadata,
		Status:          StatusPending,
	}
}

// Event rebuilds the immutable event from the chain's snapshot.
func (d *Delivery) Event() event.Event {
	return event.Event{
		ID:         d.EventID,
		Type:       d.EventType,
		OccurredAt: d.EventOccurredAt,
		TenantID:   d.TenantID,
		Data:       d.Data,
		Metadata:   d.Metadata,
	}
}

// Attempt is one HTTP attempt within a chain, append-only.
type Attempt struct {
	ID              uuid.UUID `json:"id"`
	DeliveryID      uuid.UUID `json:"delivery_id"`
	EventID         uuid.UUID `json:"event_id"`
	EventType       string    `json:"event_type"`
	AttemptNumber   int       `json:"attempt_number"`
	RequestBody     []byte    `json:"request_body,omitempty"` // exact signed bytes put on the wire
	ResponseStatus  int       `json:"response_status"`
	ResponseExcerpt string    `json:"response_excerpt,omitempty"`
	Status          Status    `json:"status"`
	ErrorMessage    string    `json:"error_message,omitempty"`
	DurationMS      int64     `json:"duration_ms"`
	CreatedAt       time.Time `json:"created_at"`
}

// AttemptResult is the classified outcome of a single network attempt.
type AttemptResult struct {
	Success         bool
	StatusCode      int
	Duration        time.Duration
	ErrorKind       ErrorKind
	ErrorMessage    string
	RequestBody     []byte
	ResponseExcerpt string
}
