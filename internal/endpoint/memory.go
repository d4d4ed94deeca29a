package endpoint

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryRegistry is an in-memory Registry used by tests and local runs.
// Production wiring uses PGRegistry; durable state never lives here.
type MemoryRegistry struct {
	mu        sync.RWMutex
	endpoints map[uuid.UUID]Endpoint
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{endpoints: make(map[uuid.UUID]Endpoint)}
}

// Put inserts or replaces an endpoint.
func (r *MemoryRegistry) Put(ep Endpoint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.endpoints[ep.ID] = ep
}

// SetStatus flips an endpoint's status, simulating the registration
// subsystem pausing or disabling it mid-flight.
func (r *MemoryRegistry) SetStatus(id uuid.UUID, status Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ep, ok := r.endpoints[id]; ok {
		ep.Status = status
		r.endpoints[id] = ep
	}
}

func (r *MemoryRegistry) ListActive(_ context.Context, tenantID string) ([]Endpoint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Endpoint
	for _, ep := range r.endpoints {
		if ep.TenantID == tenantID && ep.Active() {
			out = append(out, ep)
		}
	}
	return out, nil
}

func (r *MemoryRegistry) Get(_ context.Context, id uuid.UUID) (*Endpoint, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ep, ok := r.endpoints[id]
	if !ok {
		return nil, nil
	}
	return &ep, nil
}
