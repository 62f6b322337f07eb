package jobs

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskSettingsWarmup preloads the branch setting chains of every leaf category.
	TaskSettingsWarmup = "settings:warmup"
	// TaskSettingsInvalidate drops every cached branch setting chain.
	TaskSettingsInvalidate = "settings:invalidate"
)

// SettingsWarmupPayload scopes a warm-up run.
type SettingsWarmupPayload struct {
	RootCode string `json:"root_code"`
	// BranchID limits the run to one branch when non-zero.
	BranchID int64 `json:"branch_id,omitempty"`
}

// SettingsInvalidatePayload records who asked for an invalidation.
type SettingsInvalidatePayload struct {
	Reason      string    `json:"reason"`
	RequestedAt time.Time `json:"requested_at"`
}

// NewSettingsWarmupTask constructs a warm-up task.
func NewSettingsWarmupTask(payload SettingsWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSettingsWarmup, data), nil
}

// NewSettingsInvalidateTask constructs an invalidation task with a unique task id.
func NewSettingsInvalidateTask(payload SettingsInvalidatePayload) (*asynq.Task, error) {
	if payload.RequestedAt.IsZero() {
		payload.RequestedAt = time.Now().UTC()
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSettingsInvalidate, data, asynq.TaskID(uuid.NewString()), asynq.MaxRetry(5)), nil
}
