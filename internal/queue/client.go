package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/nikhilbhutani/clinicfeedback/internal/config"
)

// ErrAlreadyQueued is returned when an identical task is still waiting.
var ErrAlreadyQueued = errors.New("task already queued")

type Client struct {
	client *asynq.Client
}

func NewClient(cfg config.RedisConfig) *Client {
	return &Client{
		client: asynq.NewClient(RedisOpt(cfg)),
	}
}

// RedisOpt is the asynq connection for cfg, shared by client and server.
func RedisOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}

func (c *Client) Close() error {
	return c.client.Close()
}

// EnqueueInsightsRefresh schedules a cache warm-up for the given comments.
// Repeated requests within five minutes collapse into one task.
func (c *Client) EnqueueInsightsRefresh(reviews []string) error {
	payload := InsightsRefreshPayload{Reviews: reviews}
	return c.enqueue(TypeInsightsRefresh, payload,
		asynq.MaxRetry(3),
		asynq.Timeout(2*time.Minute),
		asynq.Unique(5*time.Minute),
	)
}

func (c *Client) enqueue(taskType string, payload any, opts ...asynq.Option) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	task := asynq.NewTask(taskType, data)
	_, err = c.client.Enqueue(task, opts...)
	if errors.Is(err, asynq.ErrDuplicateTask) {
		return fmt.Errorf("enqueue %s: %w", taskType, ErrAlreadyQueued)
	}
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", taskType, err)
	}
	return nil
}
