package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bobarin/reelworks/internal/models"
	"github.com/go-redis/redis/v8"
)

const (
	statusKeyPrefix = "reel:status:"
	eventsKeyPrefix = "reel:events:"
	statusRetention = 24 * time.Hour
)

// Reporter receives ordered progress milestones for one job. Implementations
// must tolerate being called from the middle of a failing pipeline; a
// reporting error never changes a job's outcome.
type Reporter interface {
	Report(ctx context.Context, jobID string, update models.ProgressUpdate)
}

// Nop discards all updates. Used by callers that do not track progress.
type Nop struct{}

func (Nop) Report(context.Context, string, models.ProgressUpdate) {}

// Tracker is the Redis-backed status channel: the latest update for a job is
// stored under a keyed entry with a TTL, and every update is also published
// on a per-job channel for live subscribers.
type Tracker struct {
	client *redis.Client
}

var _ Reporter = (*Tracker)(nil)

// NewTracker connects to Redis and verifies the connection.
func NewTracker(redisURL string) (*Tracker, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Tracker{client: client}, nil
}

func (t *Tracker) Close() error {
	return t.client.Close()
}

// Report stores the update as the job's current status and publishes it to
// live subscribers. Failures are swallowed: the status channel is advisory
// and must never fail a job.
func (t *Tracker) Report(ctx context.Context, jobID string, update models.ProgressUpdate) {
	if update.UpdatedAt.IsZero() {
		update.UpdatedAt = time.Now()
	}

	data, err := json.Marshal(update)
	if err != nil {
		return
	}

	t.client.Set(ctx, statusKeyPrefix+jobID, data, statusRetention)
	t.client.Publish(ctx, eventsKeyPrefix+jobID, data)
}

// Status returns the latest update for a job, or redis.Nil when the job is
// unknown (never reported, or expired).
func (t *Tracker) Status(ctx context.Context, jobID string) (*models.ProgressUpdate, error) {
	data, err := t.client.Get(ctx, statusKeyPrefix+jobID).Bytes()
	if err != nil {
		return nil, err
	}

	var update models.ProgressUpdate
	if err := json.Unmarshal(data, &update); err != nil {
		return nil, fmt.Errorf("failed to unmarshal status: %w", err)
	}
	return &update, nil
}

// IsUnknown reports whether err means "no status recorded for that job".
func IsUnknown(err error) bool {
	return err == redis.Nil
}

// Subscribe returns a pub/sub subscription carrying JSON-encoded
// ProgressUpdates for the job. The caller owns closing it.
func (t *Tracker) Subscribe(ctx context.Context, jobID string) *redis.PubSub {
	return t.client.Subscribe(ctx, eventsKeyPrefix+jobID)
}
