package memory

import (
	"context"
	"sync"

	domain "github.com/bryanwahyu/docgate/internal/domain/analytics"
)

// AnalyticsRepository keeps usage events in memory for deployments that run
// without a database. Events are stored in append order.
type AnalyticsRepository struct {
	mu     sync.RWMutex
	events []*domain.Event
}

func NewAnalyticsRepository() *AnalyticsRepository {
	return &AnalyticsRepository{}
}

func (r *AnalyticsRepository) Save(ctx context.Context, e *domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *e
	r.events = append(r.events, &cp)
	return nil
}

// Recent returns the newest events for a scope, newest first.
func (r *AnalyticsRepository) Recent(ctx context.Context, tenant, persona string, limit int) ([]*domain.Event, error) {
	if limit <= 0 {
		limit = 20
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.Event
	for i := len(r.events) - 1; i >= 0 && len(out) < limit; i-- {
		e := r.events[i]
		if e.Tenant == tenant && e.Persona == persona {
			out = append(out, e)
		}
	}
	return out, nil
}
