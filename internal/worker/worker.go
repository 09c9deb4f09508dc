package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/bobarin/reelworks/internal/models"
	"github.com/bobarin/reelworks/internal/moderation"
	"github.com/bobarin/reelworks/internal/pipeline"
	"github.com/bobarin/reelworks/internal/progress"
	"github.com/bobarin/reelworks/internal/queue"
	"github.com/hibiken/asynq"
)

// Worker is the consumer side of the task boundary: it pulls render tasks
// from the queue and runs them through the orchestrator, reporting progress
// and terminal state on the status channel. Each task runs single-threaded
// end to end; concurrency exists only across tasks.
type Worker struct {
	srv     *asynq.Server
	mux     *asynq.ServeMux
	orch    *pipeline.Orchestrator
	tracker *progress.Tracker
}

func New(redisURL string, concurrency int, orch *pipeline.Orchestrator, tracker *progress.Tracker) (*Worker, error) {
	opt, err := queue.ParseRedisOpt(redisURL)
	if err != nil {
		return nil, err
	}

	srv := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			"default": 1,
		},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			log.Printf("[Worker] Task %s failed: %v", task.Type(), err)
		}),
	})

	w := &Worker{
		srv:     srv,
		mux:     asynq.NewServeMux(),
		orch:    orch,
		tracker: tracker,
	}
	w.mux.HandleFunc(queue.TypeRenderReel, w.handleRenderReel)

	return w, nil
}

// Run starts the consumer and blocks until ctx is cancelled. In-flight
// renders are given a chance to finish during shutdown; anything cut off
// is re-delivered by the queue and regenerated cleanly on retry.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.srv.Start(w.mux); err != nil {
		return fmt.Errorf("failed to start worker: %w", err)
	}

	<-ctx.Done()
	log.Println("[Worker] Shutting down...")
	w.srv.Shutdown()
	return nil
}

// handleRenderReel processes one queued job. Returned errors make asynq
// retry the task, except those wrapped with asynq.SkipRetry: a malformed
// payload or a moderation rejection will fail identically every attempt.
func (w *Worker) handleRenderReel(ctx context.Context, t *asynq.Task) error {
	var payload queue.RenderPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	jobID := payload.JobID
	log.Printf("[Worker] Processing render task for job %s", jobID)

	outcome, err := w.orch.Process(ctx, jobID, w.tracker)
	if err != nil {
		w.tracker.Report(ctx, jobID, models.ProgressUpdate{
			State:    models.JobStatusFailed,
			Message:  err.Error(),
			Progress: models.ProgressFailed,
		})

		var rejection *moderation.Rejection
		if errors.As(err, &rejection) {
			return fmt.Errorf("job %s rejected (%s): %w", jobID, rejection.Reason, asynq.SkipRetry)
		}
		return fmt.Errorf("job %s failed: %w", jobID, err)
	}

	w.tracker.Report(ctx, jobID, models.ProgressUpdate{
		State:    models.JobStatusSucceeded,
		Message:  "Complete",
		Progress: models.ProgressComplete,
	})

	log.Printf("[Worker] Job %s complete (video: %s)", jobID, outcome.VideoPath)
	return nil
}
