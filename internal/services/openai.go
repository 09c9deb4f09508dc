package services

import (
	"context"
	"fmt"
	"log"

	openai "github.com/sashabaranov/go-openai"
)

// ---------------------------------------------------------------------------
// OpenAI Text-to-Speech Service
// Fallback TTS provider used when no ElevenLabs key is configured.
// Model: tts-1 (low latency). Voice ids map to OpenAI's named voices;
// anything unrecognized falls back to "alloy".
// ---------------------------------------------------------------------------

// OpenAIService handles text-to-speech via the OpenAI speech API.
type OpenAIService struct {
	client *openai.Client
}

// Ensure OpenAIService implements TTSService at compile time.
var _ TTSService = (*OpenAIService)(nil)

func NewOpenAIService(apiKey string) *OpenAIService {
	return &OpenAIService{client: openai.NewClient(apiKey)}
}

// openaiVoices is the set of voices the speech endpoint accepts.
var openaiVoices = map[string]openai.SpeechVoice{
	"alloy":   openai.VoiceAlloy,
	"echo":    openai.VoiceEcho,
	"fable":   openai.VoiceFable,
	"onyx":    openai.VoiceOnyx,
	"nova":    openai.VoiceNova,
	"shimmer": openai.VoiceShimmer,
}

// Synthesize converts text to speech and writes the result to destPath,
// with the same atomic-finalize guarantee as the ElevenLabs provider.
func (s *OpenAIService) Synthesize(ctx context.Context, text, voiceID, destPath string) error {
	voice, ok := openaiVoices[voiceID]
	if !ok {
		voice = openai.VoiceAlloy
	}

	log.Printf("[OpenAI] Generating speech (voice=%s, textLen=%d)", voice, len(text))

	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.TTSModel1,
		Input:          text,
		Voice:          voice,
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return &SynthesisError{Cause: CauseProvider, Err: fmt.Errorf("OpenAI speech request failed: %w", err)}
	}
	defer resp.Close()

	n, err := writeAudioFile(destPath, resp)
	if err != nil {
		return err
	}

	log.Printf("[OpenAI] Speech saved to %s (%d bytes)", destPath, n)
	return nil
}
