// Package jobs defines background tasks processed by the asynq worker.
package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskWorkflowIntegrity is the task type for the workflow integrity scan.
	TaskWorkflowIntegrity = "workflow:integrity"
)

// WorkflowIntegrityPayload scopes the integrity scan.
type WorkflowIntegrityPayload struct {
	// MaxRuns caps how many runs a single scan inspects; 0 means no cap.
	MaxRuns int `json:"max_runs"`
}

// NewWorkflowIntegrityTask constructs an Asynq task for the integrity scan.
func NewWorkflowIntegrityTask(payload WorkflowIntegrityPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskWorkflowIntegrity, data), nil
}
