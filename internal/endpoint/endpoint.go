// Package endpoint provides read-only access to registered webhook
// endpoints and event-type matching. Endpoint lifecycle (registration,
// validation, authorization) is owned by a separate subsystem; the
// delivery pipeline only reads active endpoints at dispatch time.
package endpoint

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusPaused   Status = "paused"
	StatusDisabled Status = "disabled"
)

type Endpoint struct {
	ID            uuid.UUID
	TenantID      string
	URL           string
	Secret        string
	EventFilter   []string // empty = all events; "*" = all events
	Status        Status
	MaxRetries    int           // additional attempts after the first
	RetryInterval time.Duration // base backoff interval
	CustomHeaders map[string]string
}

// Active reports whether the endpoint should receive deliveries.
func (e Endpoint) Active() bool {
	return e.Status == StatusActive
}

// Subscribed reports whether the endpoint's filter covers the event type.
func (e Endpoint) Subscribed(eventType string) bool {
	if len(e.EventFilter) == 0 {
		return true
	}
	if slices.Contains(e.EventFilter, "*") {
		return true
	}
	return slices.Contains(e.EventFilter, eventType)
}

// Registry is the read-only interface onto the registration subsystem.
type Registry interface {
	// ListActive returns all active endpoints for the tenant.
	ListActive(ctx context.Context, tenantID string) ([]Endpoint, error)

	// Get returns the endpoint by id, or nil if it does not exist.
	Get(ctx context.Context, id uuid.UUID) (*Endpoint, error)
}
