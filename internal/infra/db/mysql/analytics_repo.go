package mysql

import (
	"context"
	"database/sql"
	"time"

	domain "github.com/bryanwahyu/docgate/internal/domain/analytics"
)

type AnalyticsRepository struct {
	db *sql.DB
}

func NewAnalyticsRepository(db *sql.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

// Save appends one usage event
func (r *AnalyticsRepository) Save(ctx context.Context, e *domain.Event) error {
	const q = `
INSERT INTO usage_events
  (id, tenant_id, persona, ai_type, duration_ms, success, created_at)
VALUES (?,?,?,?,?,?,?)
ON DUPLICATE KEY UPDATE
  ai_type=VALUES(ai_type), duration_ms=VALUES(duration_ms), success=VALUES(success);
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
WHERE tenant_id=? AND persona=?
ORDER BY created_at DESC, id DESC
LIMIT ?;
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
