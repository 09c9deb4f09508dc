package services

import (
	"context"
	"fmt"
)

// ---------------------------------------------------------------------------
// TTSService is the common interface for text-to-speech providers
// Both ElevenLabs and OpenAI implement this interface so the pipeline can
// use whichever is configured without knowing the underlying provider.
// ---------------------------------------------------------------------------

// TTSService is the interface that any TTS provider must implement.
type TTSService interface {
	// Synthesize converts text to speech and writes the finished audio
	// artifact to destPath. voiceID may be empty, in which case the
	// provider's default voice is used. On failure no file is left at
	// destPath, partial or otherwise.
	Synthesize(ctx context.Context, text, voiceID, destPath string) error
}

// SynthesisCause distinguishes provider-side failures (quota, bad voice id,
// network) from local write failures (disk full, permissions).
type SynthesisCause string

const (
	CauseProvider SynthesisCause = "provider"
	CauseIO       SynthesisCause = "io"
)

// SynthesisError is the single failure type reported by TTS providers.
// Retry policy belongs to the caller or the task queue, never here.
type SynthesisError struct {
	Cause SynthesisCause
	Err   error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("speech synthesis failed (%s): %v", e.Cause, e.Err)
}

func (e *SynthesisError) Unwrap() error {
	return e.Err
}
