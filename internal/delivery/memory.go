package delivery

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store used by tests. It mirrors the
// Postgres implementation's semantics, including terminal-state
// protection and atomic claiming. Production wiring never uses it:
// crash recovery depends on durable state.
type MemoryStore struct {
	mu         sync.Mutex
	deliveries map[uuid.UUID]*Delivery
	attempts   map[uuid.UUID][]Attempt
	stats      map[uuid.UUID]*EndpointStats
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		deliveries: make(map[uuid.UUID]*Delivery),
		attempts:   make(map[uuid.UUID][]Attempt),
		stats:      make(map[uuid.UUID]*EndpointStats),
	}
}

func (s *MemoryStore) CreateDelivery(_ context.Context, d *Delivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	d.CreatedAt = now
	d.UpdatedAt = now
	cp := *d
	s.deliveries[d.ID] = &cp
	return nil
}

func (s *MemoryStore) Record(_ context.Context, d *Delivery, att Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.deliveries[d.ID]
	if !ok || cur.Status.Terminal() {
		return ErrTerminalState
	}

	now := time.Now().UTC()
	cp := *d
	cp.UpdatedAt = now
	s.deliveries[d.ID] = &cp

	if att.ID == uuid.Nil {
		att.ID = uuid.New()
	}
	att.DeliveryID = d.ID
	att.EventID = d.EventID
	att.EventType = d.EventType
	att.CreatedAt = now
	s.attempts[d.EndpointID] = append(s.attempts[d.EndpointID], att)

	st := s.stats[d.EndpointID]
	if st == nil {
		st = &EndpointStats{EndpointID: d.EndpointID}
		s.stats[d.EndpointID] = st
	}
	st.TotalAttempts++
	st.LastAttemptAt = &now
	if att.Status == StatusDelivered {
		st.SuccessCount++
		st.LastSuccessAt = &now
	} else {
		st.FailureCount++
		st.LastFailureAt = &now
	}
	return nil
}

func (s *MemoryStore) ClaimDue(_ context.Context, now time.Time, limit int) ([]Delivery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []*Delivery
	for _, d := range s.deliveries {
		if d.Status.Terminal() || d.NextRetryAt == nil {
			continue
		}
		if !d.NextRetryAt.After(now) {
			due = append(due, d)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].NextRetryAt.Before(*due[j].NextRetryAt) })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}

	out := make([]Delivery, 0, len(due))
	for _, d := range due {
		d.Status = StatusPending
		d.NextRetryAt = nil
		d.UpdatedAt = time.Now().UTC()
		out = append(out, *d)
	}
	return out, nil
}

func (s *MemoryStore) MarkFailed(_ context.Context, id uuid.UUID, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.deliveries[id]
	if !ok || d.Status.Terminal() {
		return ErrTerminalState
	}
	d.Status = StatusFailed
	d.NextRetryAt = nil
	d.LastError = reason
	d.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) MarkPending(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.deliveries[id]
	if !ok || d.Status == StatusDelivered {
		return false, nil
	}
	now := time.Now().UTC()
	d.Status = StatusPending
	d.NextRetryAt = &now
	d.LastError = ""
	d.UpdatedAt = now
	return true, nil
}

func (s *MemoryStore) Recover(_ context.Context, staleAfter time.Duration) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().UTC().Add(-staleAfter)
	restored, retrying := 0, 0
	for _, d := range s.deliveries {
		if d.Status == StatusPending && d.NextRetryAt == nil && d.UpdatedAt.Before(cutoff) {
			now := time.Now().UTC()
			d.Status = StatusRetrying
			d.NextRetryAt = &now
			d.UpdatedAt = now
			restored++
		}
		if d.Status == StatusRetrying {
			retrying++
		}
	}
	return restored, retrying, nil
}

func (s *MemoryStore) History(_ context.Context, endpointID uuid.UUID, limit, offset int) ([]Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	atts := append([]Attempt(nil), s.attempts[endpointID]...)
	sort.Slice(atts, func(i, j int) bool { return atts[i].CreatedAt.After(atts[j].CreatedAt) })

	if offset >= len(atts) {
		return nil, nil
	}
	atts = atts[offset:]
	if limit > 0 && len(atts) > limit {
		atts = atts[:limit]
	}
	return atts, nil
}

func (s *MemoryStore) Get(_ context.Context, id uuid.UUID) (*Delivery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.deliveries[id]
	if !ok {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

func (s *MemoryStore) Stats(_ context.Context, endpointID uuid.UUID) (EndpointStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st := s.stats[endpointID]; st != nil {
		return *st, nil
	}
	return EndpointStats{EndpointID: endpointID}, nil
}
