package api

import (
	"encoding/json"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bobarin/reelworks/internal/jobdir"
	"github.com/bobarin/reelworks/internal/models"
	"github.com/bobarin/reelworks/internal/pipeline"
	"github.com/bobarin/reelworks/internal/progress"
	"github.com/bobarin/reelworks/internal/queue"
	"github.com/bobarin/reelworks/internal/storage"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// maxUploadBytes caps one create request's multipart body.
const maxUploadBytes = 256 << 20

// allowedExtensions is the set of media types the producer accepts.
var allowedExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true,
	".mp4": true, ".mov": true,
	".mp3": true, ".wav": true, ".aac": true,
}

func allowedFile(name string) bool {
	return allowedExtensions[strings.ToLower(filepath.Ext(name))]
}

type Handler struct {
	jobs      *jobdir.Store
	artifacts *storage.Store
	orch      *pipeline.Orchestrator
	tracker   *progress.Tracker
	queue     *queue.Queue // nil = synchronous mode, render in-request
}

func NewHandler(jobs *jobdir.Store, artifacts *storage.Store, orch *pipeline.Orchestrator, tracker *progress.Tracker, q *queue.Queue) *Handler {
	return &Handler{
		jobs:      jobs,
		artifacts: artifacts,
		orch:      orch,
		tracker:   tracker,
		queue:     q,
	}
}

// CreateReel handles POST /v1/reels (multipart form).
// Fields: uuid (optional job id), text (narration), voice (voice id),
// files (+ parallel durations), music. This is the producer side of the
// pipeline: it validates the request and deposits a finished job directory,
// then either enqueues the job or renders it in-request.
func (h *Handler) CreateReel(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}

	jobID := r.FormValue("uuid")
	if jobID == "" {
		jobID = uuid.NewString()
	}
	if err := jobdir.ValidateJobID(jobID); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid or missing job ID")
		return
	}

	if _, err := h.jobs.Create(jobID); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to create job directory")
		return
	}

	// Pair each uploaded file with its display duration, skipping anything
	// with a disallowed extension. Stored names are server-generated so the
	// manifest never contains user-controlled paths.
	files := r.MultipartForm.File["files"]
	durations := r.MultipartForm.Value["durations"]

	var segments []models.MediaSegment
	for i, fh := range files {
		if fh.Filename == "" || !allowedFile(fh.Filename) {
			continue
		}

		name := strings.ReplaceAll(uuid.NewString(), "-", "") + strings.ToLower(filepath.Ext(fh.Filename))

		src, err := fh.Open()
		if err != nil {
			respondError(w, http.StatusBadRequest, "Failed to read uploaded file")
			return
		}
		saveErr := h.jobs.SaveFile(jobID, name, src)
		src.Close()
		if saveErr != nil {
			respondError(w, http.StatusInternalServerError, "Failed to save uploaded file")
			return
		}

		duration := 3.0
		if i < len(durations) {
			if d, err := strconv.ParseFloat(durations[i], 64); err == nil && d > 0 {
				duration = d
			}
		}

		segments = append(segments, models.MediaSegment{Filename: name, DurationSeconds: duration})
	}

	if len(segments) == 0 {
		h.jobs.Remove(jobID)
		respondError(w, http.StatusBadRequest, "No valid files uploaded. Please upload images or videos.")
		return
	}

	// Optional background music, stored under the fixed base name the
	// pipeline globs for.
	if musicFiles := r.MultipartForm.File["music"]; len(musicFiles) > 0 {
		fh := musicFiles[0]
		if fh.Filename != "" && allowedFile(fh.Filename) {
			src, err := fh.Open()
			if err == nil {
				if err := h.jobs.SaveFile(jobID, jobdir.MusicFileName(fh.Filename), src); err != nil {
					log.Printf("[API] Failed to save music for job %s: %v", jobID, err)
				}
				src.Close()
			}
		}
	}

	if text := r.FormValue("text"); text != "" {
		if err := h.jobs.WriteNarration(jobID, text); err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to save narration text")
			return
		}
	}
	if voice := r.FormValue("voice"); voice != "" {
		if err := h.jobs.WriteVoiceID(jobID, voice); err != nil {
			respondError(w, http.StatusInternalServerError, "Failed to save voice id")
			return
		}
	}

	if err := h.jobs.WriteManifest(jobID, segments); err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to write manifest")
		return
	}

	// Async mode: hand the job to the queue and return immediately.
	if h.queue != nil {
		h.tracker.Report(r.Context(), jobID, models.ProgressUpdate{
			State:    models.JobStatusQueued,
			Message:  "Queued",
			Progress: 0,
		})

		if err := h.queue.EnqueueRender(r.Context(), jobID); err != nil {
			log.Printf("[API] Failed to enqueue job %s: %v", jobID, err)
			respondError(w, http.StatusInternalServerError, "Failed to enqueue job")
			return
		}

		respondJSON(w, http.StatusAccepted, models.CreateReelResponse{
			Success: true,
			JobID:   jobID,
			Status:  models.JobStatusQueued,
			Message: "Reel queued for rendering.",
		})
		return
	}

	// Synchronous mode: the caller blocks for the full render.
	outcome, err := h.orch.Process(r.Context(), jobID, h.tracker)
	if err != nil {
		h.tracker.Report(r.Context(), jobID, models.ProgressUpdate{
			State:    models.JobStatusFailed,
			Message:  err.Error(),
			Progress: models.ProgressFailed,
		})
		log.Printf("[API] Video generation failed for job %s: %v", jobID, err)
		respondError(w, http.StatusInternalServerError, "Video generation failed: "+err.Error())
		return
	}

	h.tracker.Report(r.Context(), jobID, models.ProgressUpdate{
		State:    models.JobStatusSucceeded,
		Message:  "Complete",
		Progress: models.ProgressComplete,
	})

	resp := models.CreateReelResponse{
		Success:    true,
		JobID:      jobID,
		Status:     models.JobStatusSucceeded,
		Message:    "Reel created successfully!",
		VideoURL:   h.artifacts.VideoURL(jobID),
		DurationMs: outcome.DurationMs,
	}
	if outcome.ThumbnailPath != "" {
		resp.ThumbnailURL = h.artifacts.ThumbnailURL(jobID)
	}
	respondJSON(w, http.StatusOK, resp)
}

// GetReelStatus handles GET /v1/reels/{id}/status
func (h *Handler) GetReelStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "id")
	if err := jobdir.ValidateJobID(jobID); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid job ID")
		return
	}

	update, err := h.tracker.Status(r.Context(), jobID)
	if err != nil {
		if progress.IsUnknown(err) {
			respondError(w, http.StatusNotFound, "Unknown job")
			return
		}
		respondError(w, http.StatusInternalServerError, "Failed to read job status")
		return
	}

	respondJSON(w, http.StatusOK, update)
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, models.ErrorResponse{Success: false, Message: message})
}
