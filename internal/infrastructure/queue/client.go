package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"

	"pharmledger/internal/config"
	"pharmledger/pkg/logger"
)

// RedisOpt builds the asynq connection from the Redis configuration.
func RedisOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

// Client enqueues stock tasks.
type Client struct {
	client *asynq.Client
}

// NewClient creates a task client.
func NewClient(opt asynq.RedisConnOpt) *Client {
	return &Client{client: asynq.NewClient(opt)}
}

// Close releases the Redis connection.
func (c *Client) Close() error {
	return c.client.Close()
}

// EnqueueScanAlerts schedules an alert scan. A scan already pending is not an error.
func (c *Client) EnqueueScanAlerts(ctx context.Context, trigger Trigger) error {
	task, err := NewScanAlertsTask(trigger)
	if err != nil {
		return err
	}
	return c.enqueue(ctx, task)
}

// EnqueueWriteOffExpired schedules an expired stock write-off.
func (c *Client) EnqueueWriteOffExpired(ctx context.Context, trigger Trigger) error {
	task, err := NewWriteOffExpiredTask(trigger)
	if err != nil {
		return err
	}
	return c.enqueue(ctx, task)
}

func (c *Client) enqueue(ctx context.Context, task *asynq.Task) error {
	info, err := c.client.EnqueueContext(ctx, task)
	if errors.Is(err, asynq.ErrDuplicateTask) {
		logger.Debug(ctx, "task already pending", "type", task.Type())
		return nil
	}
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", task.Type(), err)
	}
	logger.Debug(ctx, "task enqueued", "type", task.Type(), "id", info.ID, "queue", info.Queue)
	return nil
}

// ScheduleScan queues the alert scan that follows a sale.
func (c *Client) ScheduleScan(ctx context.Context) error {
	return c.EnqueueScanAlerts(ctx, TriggerSale)
}

// EnqueueManualScan queues an alert scan requested through the API.
func (c *Client) EnqueueManualScan(ctx context.Context) error {
	return c.EnqueueScanAlerts(ctx, TriggerManual)
}
