package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskCacheMaintenance = "cache:maintenance"

// QueueMaintenance is the queue maintenance tasks run on
const QueueMaintenance = "maintenance"

type CacheMaintenancePayload struct {
	// Source names who asked for the run, e.g. "scheduler" or "cachectl"
	Source string `json:"source,omitempty"`
}

// NewCacheMaintenanceTask builds a maintenance task on QueueMaintenance
func NewCacheMaintenanceTask(source string, opts ...asynq.Option) (*asynq.Task, error) {
	payload, err := json.Marshal(CacheMaintenancePayload{Source: source})
	if err != nil {
		return nil, err
	}
	opts = append([]asynq.Option{asynq.Queue(QueueMaintenance)}, opts...)
	return asynq.NewTask(TaskCacheMaintenance, payload, opts...), nil
}
