package jobdir

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bobarin/reelworks/internal/models"
)

func TestValidateJobID(t *testing.T) {
	tests := []struct {
		id      string
		wantErr bool
	}{
		{"4f5a9b1c", false},
		{"ac9a7034-2bf9-11f0-b9c0-ad551e1c593a", false},
		{"", true},
		{"..", true},
		{"../etc", true},
		{"a/../b", true},
		{"jobs/123", true},
		{`jobs\123`, true},
	}

	for _, tt := range tests {
		err := ValidateJobID(tt.id)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateJobID(%q) error = %v, wantErr %v", tt.id, err, tt.wantErr)
		}
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return s
}

func TestWriteManifest(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Create("job1"); err != nil {
		t.Fatalf("create: %v", err)
	}

	segments := []models.MediaSegment{
		{Filename: "a.jpg", DurationSeconds: 3},
		{Filename: "b.jpg", DurationSeconds: 3},
		{Filename: "c.mp4", DurationSeconds: 4.5},
	}
	if err := s.WriteManifest("job1", segments); err != nil {
		t.Fatalf("write manifest: %v", err)
	}

	data, err := os.ReadFile(s.ManifestPath("job1"))
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}

	want := "file 'a.jpg'\nduration 3\nfile 'b.jpg'\nduration 3\nfile 'c.mp4'\nduration 4.5\n"
	if string(data) != want {
		t.Errorf("manifest = %q, want %q", data, want)
	}
}

func TestWriteManifestRejectsEmpty(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Create("job1"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.WriteManifest("job1", nil); err == nil {
		t.Fatal("expected error for empty segment list")
	}
}

func TestNarrationText(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Create("job1"); err != nil {
		t.Fatalf("create: %v", err)
	}

	// Missing file reads as empty, a valid silent-reel job
	if got := s.NarrationText("job1"); got != "" {
		t.Errorf("missing narration = %q, want empty", got)
	}

	if err := s.WriteNarration("job1", "  Hello world \n"); err != nil {
		t.Fatalf("write narration: %v", err)
	}
	if got := s.NarrationText("job1"); got != "Hello world" {
		t.Errorf("narration = %q, want %q", got, "Hello world")
	}
}

func TestMusicPath(t *testing.T) {
	s := newTestStore(t)
	dir, err := s.Create("job1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if got := s.MusicPath("job1"); got != "" {
		t.Errorf("music path = %q, want empty", got)
	}

	if err := os.WriteFile(filepath.Join(dir, "music.wav"), []byte("riff"), 0644); err != nil {
		t.Fatalf("write music: %v", err)
	}
	if got := s.MusicPath("job1"); got != filepath.Join(dir, "music.wav") {
		t.Errorf("music path = %q", got)
	}
}

func TestMusicFileName(t *testing.T) {
	if got := MusicFileName("My SONG.MP3"); got != "music.mp3" {
		t.Errorf("MusicFileName = %q, want music.mp3", got)
	}
}

func TestHasAudio(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Create("job1"); err != nil {
		t.Fatalf("create: %v", err)
	}

	if s.HasAudio("job1") {
		t.Error("expected no audio before synthesis")
	}
	if err := os.WriteFile(s.AudioPath("job1"), []byte("mp3"), 0644); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	if !s.HasAudio("job1") {
		t.Error("expected audio after write")
	}
}

func TestRemove(t *testing.T) {
	s := newTestStore(t)
	dir, err := s.Create("job1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "x.jpg"), []byte("img"), 0644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	if err := s.Remove("job1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if s.Exists("job1") {
		t.Error("job directory still exists after Remove")
	}
}
