package models

import "time"

// Enums
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
)

// Progress values reported at each pipeline milestone. The numbers are
// coarse on purpose: rendering time dominates and is unknowable upfront.
const (
	ProgressAudio     = 30
	ProgressComposing = 60
	ProgressThumbnail = 90
	ProgressComplete  = 100
	ProgressFailed    = -1
)

// MediaSegment is one visual entry of a job's manifest: a file already
// deposited in the job directory plus how long it stays on screen.
type MediaSegment struct {
	Filename        string  `json:"filename"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// ProgressUpdate is what the status channel carries for one job.
// Progress is 0–100, or -1 for a terminal failure.
type ProgressUpdate struct {
	State     JobStatus `json:"state"`
	Message   string    `json:"message"`
	Progress  int       `json:"progress"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Terminal reports whether no further updates will follow.
func (u ProgressUpdate) Terminal() bool {
	return u.State == JobStatusSucceeded || u.State == JobStatusFailed
}

// Outcome is the result of a successful pipeline run. It is returned to the
// synchronous caller or summarized on the status channel, never persisted.
type Outcome struct {
	JobID         string `json:"job_id"`
	VideoPath     string `json:"video_path"`
	ThumbnailPath string `json:"thumbnail_path,omitempty"` // empty = degraded success, no thumbnail
	DurationMs    int    `json:"duration_ms,omitempty"`    // 0 when the probe failed
}

// API payloads

type CreateReelResponse struct {
	Success      bool      `json:"success"`
	JobID        string    `json:"job_id"`
	Status       JobStatus `json:"status"`
	Message      string    `json:"message,omitempty"`
	VideoURL     string    `json:"video_url,omitempty"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	DurationMs   int       `json:"duration_ms,omitempty"`
}

type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
