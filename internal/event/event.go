package event

import (
	"time"

	"github.com/google/uuid"
)

// Event is an immutable domain event handed to the delivery pipeline.
// It is produced exactly once per triggering action and never mutated;
// every delivery attempt it spawns references it by ID.
type Event struct {
	ID         uuid.UUID      `json:"id"`
	Type       string         `json:"type"`
	OccurredAt time.Time      `json:"occurred_at"`
	TenantID   string         `json:"tenant_id"`
	Data       map[string]any `json:"data"`
	Metadata   map[string]any `json:"metadata"`
}

// New builds an event with a fresh UUID and the current UTC timestamp.
func New(eventType, tenantID string, data, metadata map[string]any) Event {
	return Event{
		ID:         uuid.New(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		TenantID:   tenantID,
		Data:       data,
		Metadata:   metadata,
	}
}
