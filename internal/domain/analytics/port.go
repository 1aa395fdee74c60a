package analytics

import "context"

// Repository persists and queries usage events.
type Repository interface {
	Save(ctx context.Context, e *Event) error
	// Recent returns the newest events for a scope, newest first.
	Recent(ctx context.Context, tenant, persona string, limit int) ([]*Event, error)
}
