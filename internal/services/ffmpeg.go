package services

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os/exec"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// FFmpegService
// Thin boundary around the ffmpeg/ffprobe binaries. The composition command
// itself is built by the compose package; this service only executes it and
// captures diagnostics. Renders block the calling goroutine for their full
// duration, which is fine because each job is process-isolated.
// ---------------------------------------------------------------------------

type FFmpegService struct {
	ffmpegBin  string
	ffprobeBin string
}

func NewFFmpegService(ffmpegBin, ffprobeBin string) *FFmpegService {
	if ffmpegBin == "" {
		ffmpegBin = "ffmpeg"
	}
	if ffprobeBin == "" {
		ffprobeBin = "ffprobe"
	}
	return &FFmpegService{ffmpegBin: ffmpegBin, ffprobeBin: ffprobeBin}
}

// Render runs ffmpeg with the given argv. On a nonzero exit the captured
// stderr is embedded verbatim in the returned error, since that is the only
// diagnostic ffmpeg produces.
func (s *FFmpegService) Render(ctx context.Context, args []string) error {
	log.Printf("[FFmpeg] Rendering: %s %s", s.ffmpegBin, strings.Join(args, " "))

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, s.ffmpegBin, args...)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg render failed: %w\nffmpeg stderr:\n%s", err, stderr.String())
	}
	return nil
}

// ExtractThumbnail grabs a single frame at the 1-second mark of the rendered
// video. No retries; the caller decides whether a missing thumbnail matters.
func (s *FFmpegService) ExtractThumbnail(ctx context.Context, videoPath, thumbnailPath string) error {
	args := []string{
		"-i", videoPath,
		"-ss", "00:00:01.000",
		"-vframes", "1",
		"-y",
		thumbnailPath,
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, s.ffmpegBin, args...)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg thumbnail failed: %w\nffmpeg stderr:\n%s", err, stderr.String())
	}

	log.Printf("[FFmpeg] Thumbnail created: %s", thumbnailPath)
	return nil
}

// MediaDuration returns the duration of a media file in milliseconds.
func (s *FFmpegService) MediaDuration(ctx context.Context, path string) (int, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}

	cmd := exec.CommandContext(ctx, s.ffprobeBin, args...)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w", err)
	}

	durationSec, err := strconv.ParseFloat(strings.TrimSpace(string(output)), 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse duration: %w", err)
	}

	return int(durationSec * 1000), nil
}
