package jobdir

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bobarin/reelworks/internal/models"
)

// Fixed file names inside a job directory. The upload handler writes them,
// the pipeline reads them. The synthesized narration is the only file
// produced after admission.
const (
	ManifestFile  = "input.txt"
	NarrationFile = "desc.txt"
	VoiceFile     = "voice.txt"
	AudioFile     = "audio.mp3"
	musicBaseName = "music"
)

// ValidateJobID rejects ids that could escape the uploads root. Enforced
// once at admission; the pipeline treats ids as already validated.
func ValidateJobID(id string) error {
	if id == "" {
		return fmt.Errorf("job id is empty")
	}
	if strings.Contains(id, "..") {
		return fmt.Errorf("job id contains parent directory sequence")
	}
	if strings.ContainsAny(id, "/\\") {
		return fmt.Errorf("job id contains path separator")
	}
	return nil
}

// Store manages per-job working directories under a single uploads root.
// One job id maps to exactly one directory; the pipeline owns it for the
// duration of the job and removes it at the end.
type Store struct {
	root string
}

func New(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create uploads root: %w", err)
	}
	return &Store{root: root}, nil
}

// Dir returns the working directory path for a job.
func (s *Store) Dir(jobID string) string {
	return filepath.Join(s.root, jobID)
}

// Create makes the job directory, returning its path.
func (s *Store) Create(jobID string) (string, error) {
	dir := s.Dir(jobID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create job directory: %w", err)
	}
	return dir, nil
}

// Exists reports whether the job directory is present on disk.
func (s *Store) Exists(jobID string) bool {
	info, err := os.Stat(s.Dir(jobID))
	return err == nil && info.IsDir()
}

// Remove deletes the job directory and everything in it.
func (s *Store) Remove(jobID string) error {
	return os.RemoveAll(s.Dir(jobID))
}

// SaveFile streams an uploaded file into the job directory under name.
func (s *Store) SaveFile(jobID, name string, r io.Reader) error {
	f, err := os.Create(filepath.Join(s.Dir(jobID), name))
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", name, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

// WriteManifest writes the ffmpeg concat manifest listing each segment and
// its display duration, in playback order.
func (s *Store) WriteManifest(jobID string, segments []models.MediaSegment) error {
	if len(segments) == 0 {
		return fmt.Errorf("no media segments")
	}

	var b strings.Builder
	for _, seg := range segments {
		fmt.Fprintf(&b, "file '%s'\nduration %g\n", seg.Filename, seg.DurationSeconds)
	}

	return os.WriteFile(s.ManifestPath(jobID), []byte(b.String()), 0644)
}

// WriteNarration stores the narration text for the audio stage.
func (s *Store) WriteNarration(jobID, text string) error {
	return os.WriteFile(filepath.Join(s.Dir(jobID), NarrationFile), []byte(text), 0644)
}

// WriteVoiceID stores the requested voice id.
func (s *Store) WriteVoiceID(jobID, voiceID string) error {
	return os.WriteFile(filepath.Join(s.Dir(jobID), VoiceFile), []byte(voiceID), 0644)
}

func (s *Store) ManifestPath(jobID string) string {
	return filepath.Join(s.Dir(jobID), ManifestFile)
}

func (s *Store) AudioPath(jobID string) string {
	return filepath.Join(s.Dir(jobID), AudioFile)
}

// HasAudio reports whether synthesized narration audio exists. The pipeline
// plans the composition from this existence check, not from declared intent.
func (s *Store) HasAudio(jobID string) bool {
	_, err := os.Stat(s.AudioPath(jobID))
	return err == nil
}

// NarrationText returns the trimmed narration text, or "" when the file is
// missing or empty. A missing script is a valid silent-reel job.
func (s *Store) NarrationText(jobID string) string {
	data, err := os.ReadFile(filepath.Join(s.Dir(jobID), NarrationFile))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// VoiceID returns the requested voice id, or "" when none was supplied.
func (s *Store) VoiceID(jobID string) string {
	data, err := os.ReadFile(filepath.Join(s.Dir(jobID), VoiceFile))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// MusicPath returns the background music file for the job ("music.<ext>",
// any extension), or "" when the job has no music.
func (s *Store) MusicPath(jobID string) string {
	matches, err := filepath.Glob(filepath.Join(s.Dir(jobID), musicBaseName+".*"))
	if err != nil || len(matches) == 0 {
		return ""
	}
	return matches[0]
}

// MusicFileName builds the fixed-base-name music file name from an upload's
// original extension.
func MusicFileName(originalName string) string {
	return musicBaseName + strings.ToLower(filepath.Ext(originalName))
}
