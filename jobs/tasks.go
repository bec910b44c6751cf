package jobs

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/prakerin/prakerin/internal/rbac"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskIntegrityScan scans for accounts the authorization layer would reject
	// as incomplete.
	TaskIntegrityScan = "rbac:integrity_scan"
	// TaskActivityLog persists one RBAC activity log entry.
	TaskActivityLog = "rbac:activity_log"
)

// IntegrityScanPayload configures one integrity scan run.
type IntegrityScanPayload struct {
	// Limit caps the number of faults logged individually; zero logs all.
	Limit int `json:"limit"`
}

// ActivityLogPayload is the queued form of rbac.ActivityLog.
type ActivityLogPayload struct {
	UserID     uuid.UUID      `json:"user_id"`
	Action     string         `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// NewIntegrityScanTask constructs an Asynq task.
func NewIntegrityScanTask(limit int) (*asynq.Task, error) {
	data, err := json.Marshal(IntegrityScanPayload{Limit: limit})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskIntegrityScan, data), nil
}

// NewActivityLogTask constructs an Asynq task carrying entry.
func NewActivityLogTask(entry rbac.ActivityLog) (*asynq.Task, error) {
	data, err := json.Marshal(ActivityLogPayload{
		UserID:     entry.UserID,
		Action:     entry.Action,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		Metadata:   entry.Metadata,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskActivityLog, data, asynq.MaxRetry(5)), nil
}

func (p ActivityLogPayload) entry() rbac.ActivityLog {
	return rbac.ActivityLog{
		UserID:     p.UserID,
		Action:     p.Action,
		EntityType: p.EntityType,
		EntityID:   p.EntityID,
		Metadata:   p.Metadata,
	}
}
