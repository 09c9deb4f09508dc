package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"
)

// ---------------------------------------------------------------------------
// ElevenLabs Text-to-Speech Service
// Uses the ElevenLabs REST API to convert narration text into speech audio.
// Model: eleven_turbo_v2_5 (turbo, low latency), output mp3_22050_32
// (22.05kHz/32kbps is plenty for voiceover under a rendered reel).
// ---------------------------------------------------------------------------

const (
	elevenLabsBaseURL      = "https://api.elevenlabs.io"
	elevenLabsDefaultModel = "eleven_turbo_v2_5"
	elevenLabsDefaultVoice = "pNInz6obpgDQGcFmaJgB" // "Adam"
	elevenLabsOutputFormat = "mp3_22050_32"
)

// ElevenLabsService handles text-to-speech via the ElevenLabs API.
type ElevenLabsService struct {
	apiKey  string
	voiceID string
	modelID string
	baseURL string
	client  *http.Client
}

// Ensure ElevenLabsService implements TTSService at compile time.
var _ TTSService = (*ElevenLabsService)(nil)

// NewElevenLabsService creates an ElevenLabs TTS service. defaultVoiceID
// overrides the built-in default voice when non-empty.
func NewElevenLabsService(apiKey, defaultVoiceID string) *ElevenLabsService {
	if defaultVoiceID == "" {
		defaultVoiceID = elevenLabsDefaultVoice
	}
	return &ElevenLabsService{
		apiKey:  apiKey,
		voiceID: defaultVoiceID,
		modelID: elevenLabsDefaultModel,
		baseURL: elevenLabsBaseURL,
		client:  &http.Client{Timeout: 90 * time.Second},
	}
}

type elevenLabsRequest struct {
	Text          string                   `json:"text"`
	ModelID       string                   `json:"model_id"`
	VoiceSettings *elevenLabsVoiceSettings `json:"voice_settings,omitempty"`
}

type elevenLabsVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
	Speed           float64 `json:"speed"`
}

// Synthesize converts text to speech and writes the result to destPath.
// The audio is streamed to a temporary file and renamed into place once
// complete, so a failed request never leaves a truncated artifact behind.
func (s *ElevenLabsService) Synthesize(ctx context.Context, text, voiceID, destPath string) error {
	effectiveVoice := s.voiceID
	if voiceID != "" {
		effectiveVoice = voiceID
	}

	reqBody := elevenLabsRequest{
		Text:    text,
		ModelID: s.modelID,
		VoiceSettings: &elevenLabsVoiceSettings{
			Stability:       0.0,
			SimilarityBoost: 1.0,
			Style:           0.0,
			UseSpeakerBoost: true,
			Speed:           1.0,
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return &SynthesisError{Cause: CauseIO, Err: fmt.Errorf("failed to marshal request: %w", err)}
	}

	// POST /v1/text-to-speech/{voice_id}?output_format=mp3_22050_32
	url := fmt.Sprintf("%s/v1/text-to-speech/%s?output_format=%s",
		s.baseURL, effectiveVoice, elevenLabsOutputFormat)

	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonData))
	if err != nil {
		return &SynthesisError{Cause: CauseProvider, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", s.apiKey)

	log.Printf("[ElevenLabs] Generating speech (voiceID=%s, model=%s, textLen=%d)",
		effectiveVoice, s.modelID, len(text))

	resp, err := s.client.Do(req)
	if err != nil {
		return &SynthesisError{Cause: CauseProvider, Err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &SynthesisError{
			Cause: CauseProvider,
			Err:   fmt.Errorf("ElevenLabs returned status %d: %s", resp.StatusCode, string(body)),
		}
	}

	// The response body IS the audio file
	n, err := writeAudioFile(destPath, resp.Body)
	if err != nil {
		return err
	}

	log.Printf("[ElevenLabs] Speech saved to %s (%d bytes)", destPath, n)
	return nil
}

// writeAudioFile streams audio bytes to destPath via a temporary file and an
// atomic rename. Any failure removes the temporary file.
func writeAudioFile(destPath string, r io.Reader) (int64, error) {
	tmpPath := destPath + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return 0, &SynthesisError{Cause: CauseIO, Err: fmt.Errorf("failed to create %s: %w", tmpPath, err)}
	}

	n, err := io.Copy(f, r)
	if err != nil {
		f.Close()
		os.Remove(tmpPath)
		return 0, &SynthesisError{Cause: CauseIO, Err: fmt.Errorf("failed to write audio: %w", err)}
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return 0, &SynthesisError{Cause: CauseIO, Err: fmt.Errorf("failed to close audio file: %w", err)}
	}

	if n == 0 {
		os.Remove(tmpPath)
		return 0, &SynthesisError{Cause: CauseProvider, Err: fmt.Errorf("provider returned empty audio")}
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return 0, &SynthesisError{Cause: CauseIO, Err: fmt.Errorf("failed to finalize audio file: %w", err)}
	}

	return n, nil
}
