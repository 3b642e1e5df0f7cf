// Package queue defines the background tasks of the ledger and their asynq
// client and handlers.
package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// Task types.
const (
	TypeScanAlerts       = "stock:scan_alerts"
	TypeWriteOffExpired  = "stock:write_off_expired"
	QueueDefault         = "default"
	QueueLow             = "low"
	scanAlertsUniqueness = time.Minute
)

// Trigger says why a task was enqueued.
type Trigger string

const (
	TriggerSchedule Trigger = "schedule"
	TriggerSale     Trigger = "sale"
	TriggerManual   Trigger = "manual"
)

// Payload is shared by the stock tasks.
type Payload struct {
	Trigger     Trigger   `json:"trigger"`
	RequestedAt time.Time `json:"requestedAt"`
}

func newTask(taskType string, trigger Trigger, opts ...asynq.Option) (*asynq.Task, error) {
	b, err := json.Marshal(Payload{Trigger: trigger, RequestedAt: time.Now().UTC()})
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", taskType, err)
	}
	return asynq.NewTask(taskType, b, opts...), nil
}

// NewScanAlertsTask builds a stock:scan_alerts task. Scans requested within a
// minute of each other collapse into one.
func NewScanAlertsTask(trigger Trigger) (*asynq.Task, error) {
	return newTask(TypeScanAlerts, trigger,
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(3),
		asynq.Unique(scanAlertsUniqueness),
	)
}

// NewWriteOffExpiredTask builds a stock:write_off_expired task.
func NewWriteOffExpiredTask(trigger Trigger) (*asynq.Task, error) {
	return newTask(TypeWriteOffExpired, trigger,
		asynq.Queue(QueueLow),
		asynq.MaxRetry(5),
		asynq.Timeout(10*time.Minute),
	)
}

// ParsePayload decodes a task payload. An empty payload is a manual trigger.
func ParsePayload(t *asynq.Task) (Payload, error) {
	var p Payload
	if len(t.Payload()) == 0 {
		return Payload{Trigger: TriggerManual}, nil
	}
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return Payload{}, fmt.Errorf("decode %s payload: %v: %w", t.Type(), err, asynq.SkipRetry)
	}
	return p, nil
}
