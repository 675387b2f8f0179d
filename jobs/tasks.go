package jobs

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskInventoryWarmup reloads the source tables into the snapshot cache.
	TaskInventoryWarmup = "inventory:snapshot_warmup"
	// TaskInventoryAlertScan reconciles the snapshot and reports stock and
	// payment alerts.
	TaskInventoryAlertScan = "inventory:alert_scan"
)

// WarmupPayload describes a cache warmup request.
type WarmupPayload struct {
	Reason string `json:"reason,omitempty"`
}

// AlertScanPayload overrides the scan options. Zero values keep the service
// defaults.
type AlertScanPayload struct {
	LowStockThreshold *int64 `json:"low_stock_threshold,omitempty"`
	AsOf              string `json:"as_of,omitempty"`
}

// NewInventoryWarmupTask constructs a warmup task.
func NewInventoryWarmupTask(reason string) (*asynq.Task, error) {
	data, err := json.Marshal(WarmupPayload{Reason: reason})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskInventoryWarmup, data), nil
}

// NewAlertScanTask constructs an alert scan task.
func NewAlertScanTask(payload AlertScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskInventoryAlertScan, data), nil
}

var taskBuilders = map[string]func() (*asynq.Task, error){
	TaskInventoryWarmup: func() (*asynq.Task, error) {
		return NewInventoryWarmupTask("manual")
	},
	TaskInventoryAlertScan: func() (*asynq.Task, error) {
		return NewAlertScanTask(AlertScanPayload{})
	},
}

// TaskTypes lists the task types that can be triggered by name.
func TaskTypes() []string {
	out := make([]string, 0, len(taskBuilders))
	for name := range taskBuilders {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// NewTaskByName builds a task with default payload for a registered type.
func NewTaskByName(name string) (*asynq.Task, error) {
	build, ok := taskBuilders[name]
	if !ok {
		return nil, fmt.Errorf("jobs: unknown task %q", name)
	}
	return build()
}
