package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAuditRetention prunes audit logs past the retention window.
	TaskAuditRetention = "audit:retention"
	// TaskAccessWarmup pre-populates the access cache for every role.
	TaskAccessWarmup = "acl:warmup"
)

// AuditRetentionPayload configures one retention run. RetentionHours of zero
// means use the configured default.
type AuditRetentionPayload struct {
	RetentionHours int `json:"retentionHours"`
}

// NewAuditRetentionTask constructs an Asynq task.
func NewAuditRetentionTask(payload AuditRetentionPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAuditRetention, data), nil
}

// AccessWarmupPayload configures one warmup run.
type AccessWarmupPayload struct {
	Concurrency int `json:"concurrency"`
}

// NewAccessWarmupTask constructs an Asynq task.
func NewAccessWarmupTask(payload AccessWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAccessWarmup, data), nil
}
