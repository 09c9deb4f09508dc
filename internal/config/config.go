package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	APIPort            string
	BackendAPIKey      string // API key for authenticating requests (empty = no auth, dev mode)
	CorsAllowedOrigins string // Comma-separated allowed origins (empty = *, dev mode)

	// Worker
	WorkerEnabled     bool // When true, jobs are enqueued and processed by the asynq worker
	MaxConcurrentJobs int

	// Redis (task queue transport + progress channel)
	RedisURL string

	// ElevenLabs (preferred TTS provider)
	ElevenLabsKey     string
	ElevenLabsVoiceID string

	// OpenAI (fallback TTS provider, used when no ElevenLabs key is set)
	OpenAIKey string

	// Directories
	UploadsDir    string // Per-job working directories live here
	ReelsDir      string // Rendered videos, served at /reels/
	ThumbnailsDir string // Extracted thumbnails, served at /thumbnails/

	// FFmpeg
	FFmpegBin  string
	FFprobeBin string

	// Publisher (optional S3-compatible mirror of finished artifacts)
	PublishEnabled bool
	S3Endpoint     string
	S3AccessKey    string
	S3SecretKey    string
	S3Bucket       string
	S3UseSSL       bool
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	_ = godotenv.Load()

	cfg := &Config{
		APIPort:            getEnv("API_PORT", "8080"),
		BackendAPIKey:      getEnv("BACKEND_API_KEY", ""),
		CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", ""),
		WorkerEnabled:      getEnvBool("WORKER_ENABLED", true),
		MaxConcurrentJobs:  getEnvInt("MAX_CONCURRENT_JOBS", 5),
		RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		ElevenLabsKey:      getEnv("ELEVENLABS_API_KEY", ""),
		ElevenLabsVoiceID:  getEnv("ELEVENLABS_VOICE_ID", ""),
		OpenAIKey:          getEnv("OPENAI_API_KEY", ""),
		UploadsDir:         getEnv("UPLOADS_DIR", "user_uploads"),
		ReelsDir:           getEnv("REELS_DIR", "static/reels"),
		ThumbnailsDir:      getEnv("THUMBNAILS_DIR", "static/thumbnails"),
		FFmpegBin:          getEnv("FFMPEG_BIN", "ffmpeg"),
		FFprobeBin:         getEnv("FFPROBE_BIN", "ffprobe"),
		PublishEnabled:     getEnvBool("PUBLISH_ENABLED", false),
		S3Endpoint:         getEnv("S3_ENDPOINT", ""),
		S3AccessKey:        getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:        getEnv("S3_SECRET_KEY", ""),
		S3Bucket:           getEnv("S3_BUCKET", "reels"),
		S3UseSSL:           getEnvBool("S3_USE_SSL", false),
	}

	// At least one TTS provider must be configured
	if cfg.ElevenLabsKey == "" && cfg.OpenAIKey == "" {
		return nil, fmt.Errorf("either ELEVENLABS_API_KEY or OPENAI_API_KEY is required for TTS")
	}

	if cfg.PublishEnabled && (cfg.S3Endpoint == "" || cfg.S3AccessKey == "" || cfg.S3SecretKey == "") {
		return nil, fmt.Errorf("PUBLISH_ENABLED requires S3_ENDPOINT, S3_ACCESS_KEY and S3_SECRET_KEY")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		b, err := strconv.ParseBool(value)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		i, err := strconv.Atoi(value)
		if err == nil {
			return i
		}
	}
	return defaultValue
}
