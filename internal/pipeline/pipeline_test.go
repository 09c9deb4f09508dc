package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bobarin/reelworks/internal/jobdir"
	"github.com/bobarin/reelworks/internal/models"
	"github.com/bobarin/reelworks/internal/moderation"
	"github.com/bobarin/reelworks/internal/progress"
	"github.com/bobarin/reelworks/internal/services"
	"github.com/bobarin/reelworks/internal/storage"
)

// fakeTTS records synthesis calls and writes a stub artifact unless told
// to fail. A failing fake leaves nothing behind, matching the adapter
// contract.
type fakeTTS struct {
	err       error
	calls     int
	lastText  string
	lastVoice string
}

func (f *fakeTTS) Synthesize(ctx context.Context, text, voiceID, destPath string) error {
	f.calls++
	f.lastText = text
	f.lastVoice = voiceID
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(destPath, []byte("stub-audio"), 0644)
}

// fakeRenderer stands in for ffmpeg: a successful render writes the output
// path (the last argument), a successful thumbnail writes its target.
type fakeRenderer struct {
	renderErr  error
	thumbErr   error
	durationMs int

	renderCalls [][]string
	thumbCalls  int
}

func (f *fakeRenderer) Render(ctx context.Context, args []string) error {
	f.renderCalls = append(f.renderCalls, args)
	if f.renderErr != nil {
		return f.renderErr
	}
	return os.WriteFile(args[len(args)-1], []byte("stub-video"), 0644)
}

func (f *fakeRenderer) ExtractThumbnail(ctx context.Context, videoPath, thumbnailPath string) error {
	f.thumbCalls++
	if f.thumbErr != nil {
		return f.thumbErr
	}
	return os.WriteFile(thumbnailPath, []byte("stub-jpeg"), 0644)
}

func (f *fakeRenderer) MediaDuration(ctx context.Context, path string) (int, error) {
	if f.durationMs == 0 {
		return 0, errors.New("no duration")
	}
	return f.durationMs, nil
}

// recordingReporter captures the milestone sequence.
type recordingReporter struct {
	updates []models.ProgressUpdate
}

func (r *recordingReporter) Report(ctx context.Context, jobID string, u models.ProgressUpdate) {
	r.updates = append(r.updates, u)
}

type testEnv struct {
	jobs     *jobdir.Store
	store    *storage.Store
	tts      *fakeTTS
	renderer *fakeRenderer
	orch     *Orchestrator
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	jobs, err := jobdir.New(t.TempDir())
	if err != nil {
		t.Fatalf("jobdir: %v", err)
	}
	root := t.TempDir()
	store, err := storage.New(filepath.Join(root, "reels"), filepath.Join(root, "thumbnails"))
	if err != nil {
		t.Fatalf("storage: %v", err)
	}

	tts := &fakeTTS{}
	renderer := &fakeRenderer{durationMs: 10000}
	orch := New(jobs, store, moderation.New(), tts, renderer, nil)

	return &testEnv{jobs: jobs, store: store, tts: tts, renderer: renderer, orch: orch}
}

// seedJob deposits a minimal admitted job directory: three image segments
// plus whatever narration/voice/music the scenario needs.
func (e *testEnv) seedJob(t *testing.T, jobID, narration, voiceID string, withMusic bool) {
	t.Helper()

	dir, err := e.jobs.Create(jobID)
	if err != nil {
		t.Fatalf("create job: %v", err)
	}

	segments := []models.MediaSegment{
		{Filename: "a.jpg", DurationSeconds: 3},
		{Filename: "b.jpg", DurationSeconds: 3},
		{Filename: "c.jpg", DurationSeconds: 4},
	}
	for _, seg := range segments {
		if err := os.WriteFile(filepath.Join(dir, seg.Filename), []byte("img"), 0644); err != nil {
			t.Fatalf("write segment: %v", err)
		}
	}
	if err := e.jobs.WriteManifest(jobID, segments); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	if narration != "" {
		if err := e.jobs.WriteNarration(jobID, narration); err != nil {
			t.Fatalf("write narration: %v", err)
		}
	}
	if voiceID != "" {
		if err := e.jobs.WriteVoiceID(jobID, voiceID); err != nil {
			t.Fatalf("write voice: %v", err)
		}
	}
	if withMusic {
		if err := os.WriteFile(filepath.Join(dir, "music.mp3"), []byte("riff"), 0644); err != nil {
			t.Fatalf("write music: %v", err)
		}
	}
}

func TestProcessSilentReel(t *testing.T) {
	e := newTestEnv(t)
	e.seedJob(t, "job1", "", "", false)

	outcome, err := e.orch.Process(context.Background(), "job1", nil)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if e.tts.calls != 0 {
		t.Errorf("expected no synthesis for empty narration, got %d calls", e.tts.calls)
	}
	if _, err := os.Stat(outcome.VideoPath); err != nil {
		t.Errorf("video artifact missing: %v", err)
	}
	if outcome.DurationMs != 10000 {
		t.Errorf("duration = %d, want 10000", outcome.DurationMs)
	}
	if e.jobs.Exists("job1") {
		t.Error("job directory not cleaned up after success")
	}

	// Silent job renders with video-only mapping
	args := e.renderer.renderCalls[0]
	joined := ""
	for _, a := range args {
		joined += a + " "
	}
	if want := "-map 0:v -c:v"; !strings.Contains(joined, want) {
		t.Errorf("expected video-only map in %q", joined)
	}
	if strings.Contains(joined, "[aout]") {
		t.Errorf("unexpected audio map in silent render: %q", joined)
	}
}

func TestProcessNarrationAndMusic(t *testing.T) {
	e := newTestEnv(t)
	e.seedJob(t, "job2", "Hello world", "voice-123", true)

	outcome, err := e.orch.Process(context.Background(), "job2", nil)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if e.tts.calls != 1 {
		t.Fatalf("expected one synthesis call, got %d", e.tts.calls)
	}
	if e.tts.lastText != "Hello world" {
		t.Errorf("synthesized text = %q", e.tts.lastText)
	}
	if e.tts.lastVoice != "voice-123" {
		t.Errorf("voice = %q, want voice-123", e.tts.lastVoice)
	}

	args := e.renderer.renderCalls[0]
	joined := ""
	for _, a := range args {
		joined += a + " "
	}
	if !strings.Contains(joined, "amix=inputs=2:duration=first") {
		t.Errorf("expected mixed audio graph in %q", joined)
	}
	if _, err := os.Stat(outcome.ThumbnailPath); err != nil {
		t.Errorf("thumbnail artifact missing: %v", err)
	}
	if e.jobs.Exists("job2") {
		t.Error("job directory not cleaned up")
	}
}

func TestProcessModerationRejectionFailsAudioStage(t *testing.T) {
	e := newTestEnv(t)
	e.seedJob(t, "job3", "well that is complete bullshit", "", false)

	_, err := e.orch.Process(context.Background(), "job3", nil)
	if err == nil {
		t.Fatal("expected moderation failure")
	}

	var stageErr *StageError
	if !errors.As(err, &stageErr) || stageErr.Stage != StageAudio {
		t.Fatalf("expected audio stage error, got %v", err)
	}
	var rejection *moderation.Rejection
	if !errors.As(err, &rejection) {
		t.Fatalf("expected *moderation.Rejection in chain, got %v", err)
	}

	if len(e.renderer.renderCalls) != 0 {
		t.Error("render attempted after moderation rejection")
	}
	if e.jobs.Exists("job3") {
		t.Error("job directory not cleaned up after failure")
	}
}

func TestProcessSynthesisFailure(t *testing.T) {
	e := newTestEnv(t)
	e.tts.err = &services.SynthesisError{Cause: services.CauseProvider, Err: errors.New("quota exceeded")}
	e.seedJob(t, "job4", "Hello world", "", false)

	audioPath := e.jobs.AudioPath("job4")

	_, err := e.orch.Process(context.Background(), "job4", nil)
	if err == nil {
		t.Fatal("expected synthesis failure")
	}

	var stageErr *StageError
	if !errors.As(err, &stageErr) || stageErr.Stage != StageAudio {
		t.Fatalf("expected audio stage error, got %v", err)
	}
	var synthErr *services.SynthesisError
	if !errors.As(err, &synthErr) || synthErr.Cause != services.CauseProvider {
		t.Fatalf("expected provider-caused SynthesisError, got %v", err)
	}

	// No partial artifact: the audio file must not exist after the failure
	// (cleanup removes the whole directory, but the adapter must not have
	// produced it in the first place).
	if _, statErr := os.Stat(audioPath); !os.IsNotExist(statErr) {
		t.Errorf("partial audio artifact present: %v", statErr)
	}
	if len(e.renderer.renderCalls) != 0 {
		t.Error("render attempted after synthesis failure")
	}
	if e.jobs.Exists("job4") {
		t.Error("job directory not cleaned up after failure")
	}
}

func TestProcessRenderFailureIsFatal(t *testing.T) {
	e := newTestEnv(t)
	e.renderer.renderErr = errors.New("ffmpeg exit status 1\nffmpeg stderr:\nInvalid data found")
	e.seedJob(t, "job5", "", "", false)

	_, err := e.orch.Process(context.Background(), "job5", nil)
	if err == nil {
		t.Fatal("expected composition failure")
	}

	var stageErr *StageError
	if !errors.As(err, &stageErr) || stageErr.Stage != StageComposition {
		t.Fatalf("expected composition stage error, got %v", err)
	}
	if !strings.Contains(err.Error(), "Invalid data found") {
		t.Errorf("diagnostic output not carried in error: %v", err)
	}

	if e.renderer.thumbCalls != 0 {
		t.Error("thumbnail attempted after fatal render failure")
	}
	if e.jobs.Exists("job5") {
		t.Error("job directory not cleaned up after failure")
	}
}

func TestProcessThumbnailFailureDegrades(t *testing.T) {
	e := newTestEnv(t)
	e.renderer.thumbErr = errors.New("ffmpeg thumbnail failed")
	e.seedJob(t, "job6", "", "", false)

	outcome, err := e.orch.Process(context.Background(), "job6", nil)
	if err != nil {
		t.Fatalf("thumbnail failure must not fail the job: %v", err)
	}

	if _, err := os.Stat(outcome.VideoPath); err != nil {
		t.Errorf("video artifact missing: %v", err)
	}
	if outcome.ThumbnailPath != "" {
		t.Errorf("expected empty thumbnail path, got %q", outcome.ThumbnailPath)
	}
	if e.jobs.Exists("job6") {
		t.Error("job directory not cleaned up")
	}
}

func TestProcessReportsMilestonesInOrder(t *testing.T) {
	e := newTestEnv(t)
	e.seedJob(t, "job7", "Hello world", "", true)

	rep := &recordingReporter{}
	if _, err := e.orch.Process(context.Background(), "job7", rep); err != nil {
		t.Fatalf("Process: %v", err)
	}

	want := []struct {
		message  string
		progress int
	}{
		{"Generating audio...", models.ProgressAudio},
		{"Creating video...", models.ProgressComposing},
		{"Generating thumbnail...", models.ProgressThumbnail},
	}

	if len(rep.updates) != len(want) {
		t.Fatalf("got %d updates, want %d", len(rep.updates), len(want))
	}
	last := -1
	for i, w := range want {
		u := rep.updates[i]
		if u.Message != w.message || u.Progress != w.progress {
			t.Errorf("update %d = (%q, %d), want (%q, %d)", i, u.Message, u.Progress, w.message, w.progress)
		}
		if u.Progress <= last {
			t.Errorf("progress not monotonic at update %d", i)
		}
		last = u.Progress
	}
}

// A retried task re-runs every stage against fixed output names, so two
// passes over the same job id converge on equivalent artifacts.
func TestProcessIsIdempotentAcrossReruns(t *testing.T) {
	e := newTestEnv(t)

	var argsByRun [][]string
	for run := 0; run < 2; run++ {
		e.seedJob(t, "job8", "Hello world", "", true)

		outcome, err := e.orch.Process(context.Background(), "job8", nil)
		if err != nil {
			t.Fatalf("run %d: %v", run, err)
		}
		if outcome.VideoPath != e.store.VideoPath("job8") {
			t.Errorf("run %d: video path = %q", run, outcome.VideoPath)
		}
		argsByRun = append(argsByRun, e.renderer.renderCalls[run])
	}

	a, b := argsByRun[0], argsByRun[1]
	if len(a) != len(b) {
		t.Fatalf("render argv differs between runs: %d vs %d args", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("render arg %d differs: %q vs %q", i, a[i], b[i])
		}
	}
}

func TestProcessNilReporter(t *testing.T) {
	e := newTestEnv(t)
	e.seedJob(t, "job9", "", "", false)

	if _, err := e.orch.Process(context.Background(), "job9", progress.Nop{}); err != nil {
		t.Fatalf("Process with Nop reporter: %v", err)
	}
}
