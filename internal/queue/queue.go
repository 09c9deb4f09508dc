package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
)

// TypeRenderReel is the asynq task type for a full reel-rendering job.
const TypeRenderReel = "reel:render"

// RenderPayload identifies the job directory the worker should consume.
type RenderPayload struct {
	JobID string `json:"job_id"`
}

// ParseRedisOpt turns a redis:// URL into asynq connection options, so the
// queue and the status tracker share a single REDIS_URL setting.
func ParseRedisOpt(redisURL string) (asynq.RedisClientOpt, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	return asynq.RedisClientOpt{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}, nil
}

// Queue is the producer side of the task boundary: it turns an admitted job
// into a queued unit of work.
type Queue struct {
	client *asynq.Client
}

func New(redisURL string) (*Queue, error) {
	opt, err := ParseRedisOpt(redisURL)
	if err != nil {
		return nil, err
	}
	return &Queue{client: asynq.NewClient(opt)}, nil
}

func (q *Queue) Close() error {
	return q.client.Close()
}

// EnqueueRender submits a rendering job. Retry and visibility are the
// queue's responsibility: up to 3 retries, a 20 minute per-attempt timeout
// (renders are slow), and the task result retained for a day.
func (q *Queue) EnqueueRender(ctx context.Context, jobID string) error {
	payload, err := json.Marshal(RenderPayload{JobID: jobID})
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	task := asynq.NewTask(TypeRenderReel, payload,
		asynq.MaxRetry(3),
		asynq.Timeout(20*time.Minute),
		asynq.Retention(24*time.Hour),
	)

	info, err := q.client.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("failed to enqueue: %w", err)
	}

	log.Printf("[Queue] Enqueued render job %s (task %s)", jobID, info.ID)
	return nil
}
