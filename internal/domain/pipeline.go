package domain

import "time"

// Pipeline states.
const (
	PipelineIdle      = "idle"
	PipelineRunning   = "running"
	PipelineSuccess   = "success"
	PipelineFailed    = "failed"
	PipelineCancelled = "cancelled"
)

// Pipeline is CI/CD metadata. No build executor sits behind it.
type Pipeline struct {
	ID            string     `json:"id"`
	UserID        string     `json:"user_id"`
	Name          string     `json:"name"`
	RepositoryURL string     `json:"repository_url"`
	Branch        string     `json:"branch"`
	Status        string     `json:"status"`
	LastRunAt     *time.Time `json:"last_run_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Build is a fixture build-history row for a pipeline.
type Build struct {
	ID         string        `json:"id"`
	PipelineID string        `json:"pipeline_id"`
	Number     int           `json:"number"`
	Commit     string        `json:"commit"`
	Message    string        `json:"message"`
	Author     string        `json:"author"`
	Status     string        `json:"status"`
	Duration   time.Duration `json:"duration"`
	StartedAt  time.Time     `json:"started_at"`
}
