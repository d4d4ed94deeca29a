package endpoint

import (
	"context"

	"github.com/camayank/hookflow/internal/event"
)

// Matcher resolves the set of endpoints an event fans out to.
// It holds no mutable state and is safe for concurrent use.
type Matcher struct {
	reg Registry
}

func NewMatcher(reg Registry) *Matcher {
	return &Matcher{reg: reg}
}

// Match returns the active endpoints of the event's tenant whose filter
// covers the event type. An empty result is a valid outcome, not an error.
func (m *Matcher) Match(ctx context.Context, ev event.Event) ([]Endpoint, error) {
	eps, err := m.reg.ListActive(ctx, ev.TenantID)
	if err != nil {
		return nil, err
	}

	matched := make([]Endpoint, 0, len(eps))
	for _, ep := range eps {
		if ep.Subscribed(ev.Type) {
			matched = append(matched, ep)
		}
	}
	return matched, nil
}
