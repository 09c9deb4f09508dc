package pipeline

import (
	"context"
	"fmt"
	"log"

	"github.com/bobarin/reelworks/internal/compose"
	"github.com/bobarin/reelworks/internal/jobdir"
	"github.com/bobarin/reelworks/internal/models"
	"github.com/bobarin/reelworks/internal/moderation"
	"github.com/bobarin/reelworks/internal/progress"
	"github.com/bobarin/reelworks/internal/services"
	"github.com/bobarin/reelworks/internal/storage"
)

// Stage names the step of the pipeline a failure happened in.
type Stage string

const (
	StageAudio       Stage = "audio"
	StageComposition Stage = "composition"
	StageThumbnail   Stage = "thumbnail"
	StageCleanup     Stage = "cleanup"
)

// StageError is the failure type surfaced by the orchestrator. It carries
// the stage so callers can distinguish a moderation rejection from a render
// failure without parsing messages.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Renderer is the external media tool boundary the orchestrator drives.
// *services.FFmpegService is the real implementation; tests substitute fakes.
type Renderer interface {
	Render(ctx context.Context, args []string) error
	ExtractThumbnail(ctx context.Context, videoPath, thumbnailPath string) error
	MediaDuration(ctx context.Context, path string) (int, error)
}

// Publisher mirrors finished artifacts to remote storage. Optional.
type Publisher interface {
	Publish(ctx context.Context, jobID, videoPath, thumbnailPath string) error
}

var _ Renderer = (*services.FFmpegService)(nil)
var _ Publisher = (*storage.Publisher)(nil)

// Orchestrator runs one job through audio synthesis, composition, and
// thumbnail extraction. It is safe for concurrent use: all per-job state
// lives in the job directory, which each running job owns exclusively.
type Orchestrator struct {
	jobs      *jobdir.Store
	artifacts *storage.Store
	moderator *moderation.Moderator
	tts       services.TTSService
	renderer  Renderer
	publisher Publisher // nil = no remote mirror
}

func New(
	jobs *jobdir.Store,
	artifacts *storage.Store,
	moderator *moderation.Moderator,
	tts services.TTSService,
	renderer Renderer,
	publisher Publisher,
) *Orchestrator {
	return &Orchestrator{
		jobs:      jobs,
		artifacts: artifacts,
		moderator: moderator,
		tts:       tts,
		renderer:  renderer,
		publisher: publisher,
	}
}

// Process runs the full pipeline for one job and returns its outcome.
// The job directory is removed before returning, success or failure; a
// cleanup failure is logged and never changes the already-determined result.
// rep may be nil. Failures are always *StageError values.
//
// The same job id may be processed again later (a retried queue task):
// every stage regenerates its artifact under a fixed name with overwrite
// semantics, so a re-run converges to the same result.
func (o *Orchestrator) Process(ctx context.Context, jobID string, rep progress.Reporter) (*models.Outcome, error) {
	if rep == nil {
		rep = progress.Nop{}
	}

	log.Printf("[Pipeline] Processing job %s", jobID)

	defer func() {
		if err := o.jobs.Remove(jobID); err != nil {
			log.Printf("[Pipeline] WARNING: could not clean up directory for %s: %v", jobID, err)
		} else {
			log.Printf("[Pipeline] Cleaned up job directory for %s", jobID)
		}
	}()

	// Stage 1: narration audio. Skipped outright when there is no script;
	// a silent reel is a valid job, not a failure.
	rep.Report(ctx, jobID, models.ProgressUpdate{
		State:    models.JobStatusRunning,
		Message:  "Generating audio...",
		Progress: models.ProgressAudio,
	})

	if err := o.synthesizeNarration(ctx, jobID); err != nil {
		return nil, &StageError{Stage: StageAudio, Err: err}
	}

	// Stage 2: composition. Track presence is decided by what actually
	// exists on disk at this point, not by what the job declared.
	rep.Report(ctx, jobID, models.ProgressUpdate{
		State:    models.JobStatusRunning,
		Message:  "Creating video...",
		Progress: models.ProgressComposing,
	})

	musicPath := o.jobs.MusicPath(jobID)
	plan := compose.NewPlan(o.jobs.HasAudio(jobID), musicPath != "")

	videoPath := o.artifacts.VideoPath(jobID)
	args := plan.CommandArgs(o.jobs.ManifestPath(jobID), o.jobs.AudioPath(jobID), musicPath, videoPath)

	if err := o.renderer.Render(ctx, args); err != nil {
		return nil, &StageError{Stage: StageComposition, Err: err}
	}
	log.Printf("[Pipeline] Reel created for %s (audio mode: %s)", jobID, plan.Mode)

	// Stage 3: thumbnail. Non-fatal: a reel without a thumbnail is a
	// degraded success, not a failed job.
	rep.Report(ctx, jobID, models.ProgressUpdate{
		State:    models.JobStatusRunning,
		Message:  "Generating thumbnail...",
		Progress: models.ProgressThumbnail,
	})

	thumbnailPath := o.artifacts.ThumbnailPath(jobID)
	if err := o.renderer.ExtractThumbnail(ctx, videoPath, thumbnailPath); err != nil {
		log.Printf("[Pipeline] WARNING: thumbnail extraction failed for %s: %v", jobID, err)
		thumbnailPath = ""
	}

	outcome := &models.Outcome{
		JobID:         jobID,
		VideoPath:     videoPath,
		ThumbnailPath: thumbnailPath,
	}

	// Duration probe is informational only.
	if ms, err := o.renderer.MediaDuration(ctx, videoPath); err != nil {
		log.Printf("[Pipeline] WARNING: duration probe failed for %s: %v", jobID, err)
	} else {
		outcome.DurationMs = ms
	}

	// Mirror to remote storage when configured. The local artifacts are
	// already in place and servable, so a publish failure only degrades.
	if o.publisher != nil {
		if err := o.publisher.Publish(ctx, jobID, videoPath, thumbnailPath); err != nil {
			log.Printf("[Pipeline] WARNING: publish failed for %s: %v", jobID, err)
		}
	}

	log.Printf("[Pipeline] Finished job %s", jobID)
	return outcome, nil
}

// synthesizeNarration produces audio.mp3 in the job directory, or does
// nothing when the job has no narration text.
func (o *Orchestrator) synthesizeNarration(ctx context.Context, jobID string) error {
	text := o.jobs.NarrationText(jobID)
	if text == "" {
		log.Printf("[Pipeline] No narration text for %s, skipping audio generation", jobID)
		return nil
	}

	if err := o.moderator.Check(text); err != nil {
		return err
	}

	voiceID := o.jobs.VoiceID(jobID)
	log.Printf("[Pipeline] Generating audio for %s (textLen=%d)", jobID, len(text))

	return o.tts.Synthesize(ctx, text, voiceID, o.jobs.AudioPath(jobID))
}
