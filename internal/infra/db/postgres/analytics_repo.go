package postgres

import (
	"context"
	"database/sql"
	"strings"
	"time"

	domain "github.com/bryanwahyu/docgate/internal/domain/analytics"
)

type AnalyticsRepository struct {
	db *sql.DB
}

func NewAnalyticsRepository(db *sql.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

// Save inserts or updates a usage event
func (r *AnalyticsRepository) Save(ctx context.Context, e *domain.Event) error {
	const q = `
INSERT INTO usage_events
  (id, tenant_id, persona, ai_type, duration_ms, success, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (id) DO UPDATE SET
  ai_type=EXCLUDED.ai_type,
  duration_ms=EXCLUDED.duration_ms,
  success=EXCLUDED.success;
`
	tenant := stringOrDash(e.Tenant)
	persona := stringOrDash(e.Persona)
	aiType := stringOrDash(e.AIType)
	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := r.db.ExecContext(ctx, q, e.ID, tenant, persona, aiType, e.DurationMS, e.Success, createdAt)
	return err
}

// Recent returns the newest events for a scope ordered by created_at desc
func (r *AnalyticsRepository) Recent(ctx context.Context, tenant, persona string, limit int) ([]*domain.Event, error) {
	if limit <= 0 {
		limit = 20
	}

	const q = `
SELECT id, tenant_id, persona, ai_type, duration_ms, success, created_at
FROM usage_events
WHERE tenant_id=$1 AND persona=$2
ORDER BY created_at DESC, id DESC
LIMIT $3;
`
	rows, err := r.db.QueryContext(ctx, q, tenant, persona, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.Tenant, &e.Persona, &e.AIType, &e.DurationMS, &e.Success, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

// stringOrDash returns "-" when the input is empty/whitespace
func stringOrDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
