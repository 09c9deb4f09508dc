package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// Store is the public artifact store: rendered reels and thumbnails keyed by
// job id, written once per job and served world-readable. Artifacts are
// always written under fixed names so a retried job overwrites rather than
// accumulates.
type Store struct {
	reelsDir      string
	thumbnailsDir string
}

func New(reelsDir, thumbnailsDir string) (*Store, error) {
	for _, dir := range []string{reelsDir, thumbnailsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create artifact dir %s: %w", dir, err)
		}
	}
	return &Store{reelsDir: reelsDir, thumbnailsDir: thumbnailsDir}, nil
}

// VideoPath is where the rendered reel for a job lives.
func (s *Store) VideoPath(jobID string) string {
	return filepath.Join(s.reelsDir, jobID+".mp4")
}

// ThumbnailPath is where the extracted thumbnail for a job lives.
func (s *Store) ThumbnailPath(jobID string) string {
	return filepath.Join(s.thumbnailsDir, jobID+".jpg")
}

// VideoURL returns the public serving path for a job's reel.
func (s *Store) VideoURL(jobID string) string {
	return "/reels/" + jobID + ".mp4"
}

// ThumbnailURL returns the public serving path for a job's thumbnail.
func (s *Store) ThumbnailURL(jobID string) string {
	return "/thumbnails/" + jobID + ".jpg"
}

// ReelsDir exposes the reels directory for static file serving.
func (s *Store) ReelsDir() string { return s.reelsDir }

// ThumbnailsDir exposes the thumbnails directory for static file serving.
func (s *Store) ThumbnailsDir() string { return s.thumbnailsDir }
