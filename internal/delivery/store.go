package delivery

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrTerminalState is returned when an update would demote a chain that
// already reached delivered or failed.
var ErrTerminalState = errors.New("delivery already in terminal state")

// Store is the durable source of truth for delivery state. Implementations
// must serialize concurrent writers per chain at the storage layer (row
// locking or equivalent), never with an in-process lock: multiple worker
// instances may run against the same store.
type Store interface {
	// CreateDelivery persists a new pending chain.
	CreateDelivery(ctx context.Context, d *Delivery) error

	// Record persists one attempt and the chain's new state in a single
	// transaction, together with the per-endpoint counter rollup. It must
	// never demote a terminal chain.
	Record(ctx context.Context, d *Delivery, att Attempt) error

	// ClaimDue atomically claims chains whose retry is due, moving them to
	// pending so no other worker instance can double-send them.
	ClaimDue(ctx context.Context, now time.Time, limit int) ([]Delivery, error)

	// MarkFailed terminates a chain without an attempt (e.g. the endpoint
	// was deactivated between attempts).
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error

	// MarkPending re-enqueues a chain for manual retry, preserving its
	// attempt count. Returns false if the chain is missing or delivered.
	MarkPending(ctx context.Context, id uuid.UUID) (bool, error)

	// Recover reschedules chains orphaned in-flight by a crashed worker
	// and reports how many retrying chains are waiting in the store.
	Recover(ctx context.Context, staleAfter time.Duration) (restored, retrying int, err error)

	// History lists recorded attempts for an endpoint, newest first.
	History(ctx context.Context, endpointID uuid.UUID, limit, offset int) ([]Attempt, error)

	// Get returns a chain by id, or nil if it does not exist.
	Get(ctx context.Context, id uuid.UUID) (*Delivery, error)

	// Stats returns the rolled-up counters for an endpoint.
	Stats(ctx context.Context, endpointID uuid.UUID) (EndpointStats, error)
}

// EndpointStats are cumulative per-endpoint delivery counters, updated
// transactionally with every recorded attempt.
type EndpointStats struct {
	EndpointID    uuid.UUID  `json:"endpoint_id"`
	TotalAttempts int64      `json:"total_attempts"`
	SuccessCount  int64      `json:"success_count"`
	FailureCount  int64      `json:"failure_count"`
	LastAttemptAt *time.Time `json:"last_attempt_at,omitempty"`
	LastSuccessAt *time.Time `json:"last_success_at,omitempty"`
	LastFailureAt *time.Time `json:"last_failure_at,omitempty"`
}
