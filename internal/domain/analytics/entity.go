package analytics

import "time"

// Event is one usage record appended by the dashboard or by the chat flow.
type Event struct {
	ID         string    `json:"id"`
	Tenant     string    `json:"tenant"`
	Persona    string    `json:"persona"`
	AIType     string    `json:"ai_type"`
	DurationMS int64     `json:"duration_ms"`
	Success    bool      `json:"success"`
	CreatedAt  time.Time `json:"created_at"`
}
