package sync

import (
	"context"
	"fmt"
	"time"

	"dinescout_backend/platform/config"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Client enqueues claims-sync events and commands. Upstream services embed
// it to publish lifecycle events; tooling uses the command methods and polls
// the reply store with the returned command ID.
type Client struct {
	client    *asynq.Client
	queue     string
	maxRetry  int
	retention time.Duration
}

// NewClient creates a Client from worker config.
func NewClient(cfg config.WorkerConfig) (*Client, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetQueueName()
	if queue == "" {
		queue = "default"
	}

	maxRetry := cfg.GetMaxRetry()
	if maxRetry < 1 {
		maxRetry = 10
	}

	return &Client{
		client:    asynq.NewClient(opt),
		queue:     queue,
		maxRetry:  maxRetry,
		retention: 24 * time.Hour,
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// =============================================================================
// Events
// =============================================================================

func (c *Client) PublishUserCreated(ctx context.Context, payload UserCreatedPayload) error {
	return c.publish(ctx, TaskUserCreated, payload)
}

func (c *Client) PublishUserDeleted(ctx context.Context, payload UserDeletedPayload) error {
	return c.publish(ctx, TaskUserDeleted, payload)
}

func (c *Client) PublishBusinessActivated(ctx context.Context, payload BusinessActivatedPayload) error {
	return c.publish(ctx, TaskBusinessActivated, payload)
}

func (c *Client) PublishBusinessDeactivated(ctx context.Context, payload BusinessDeactivatedPayload) error {
	return c.publish(ctx, TaskBusinessDeactivated, payload)
}

func (c *Client) PublishRoleChanged(ctx context.Context, payload RoleChangedPayload) error {
	return c.publish(ctx, TaskRoleChanged, payload)
}

func (c *Client) publish(ctx context.Context, taskType string, payload interface{}) error {
	task, err := NewTask(taskType, payload)
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task,
		asynq.Queue(c.queue),
		asynq.MaxRetry(c.maxRetry),
	)
	return err
}

// =============================================================================
// Commands
// =============================================================================

// SendCommand enqueues a command task and returns the command ID to poll the
// reply store with. The payload's CommandID field must already carry the
// same ID; mint it with NewCommandID.
func (c *Client) SendCommand(ctx context.Context, taskType, commandID string, payload interface{}) (string, error) {
	task, err := NewTask(taskType, payload)
	if err != nil {
		return "", err
	}

	// Retention keeps the completed task (and its result writer output)
	// visible to queue tooling for a while after completion.
	_, err = c.client.EnqueueContext(ctx, task,
		asynq.Queue(c.queue),
		asynq.MaxRetry(c.maxRetry),
		asynq.Retention(c.retention),
	)
	if err != nil {
		return "", err
	}
	return commandID, nil
}

// NewCommandID mints a fresh command ID for reply correlation.
func NewCommandID() string {
	return uuid.NewString()
}
