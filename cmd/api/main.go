package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/bobarin/reelworks/internal/api"
	"github.com/bobarin/reelworks/internal/config"
	"github.com/bobarin/reelworks/internal/jobdir"
	"github.com/bobarin/reelworks/internal/moderation"
	"github.com/bobarin/reelworks/internal/pipeline"
	"github.com/bobarin/reelworks/internal/progress"
	"github.com/bobarin/reelworks/internal/queue"
	"github.com/bobarin/reelworks/internal/services"
	"github.com/bobarin/reelworks/internal/storage"
	"github.com/bobarin/reelworks/internal/worker"
	"golang.org/x/sync/errgroup"
)

func main() {
	log.Println("Starting Reelworks API...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Working and artifact directories
	jobs, err := jobdir.New(cfg.UploadsDir)
	if err != nil {
		log.Fatalf("Failed to init uploads dir: %v", err)
	}
	artifacts, err := storage.New(cfg.ReelsDir, cfg.ThumbnailsDir)
	if err != nil {
		log.Fatalf("Failed to init artifact dirs: %v", err)
	}

	// Status channel (Redis)
	tracker, err := progress.NewTracker(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer tracker.Close()
	log.Println("Connected to Redis status channel")

	// TTS provider: ElevenLabs preferred, OpenAI as fallback
	var ttsSvc services.TTSService
	if cfg.ElevenLabsKey != "" {
		ttsSvc = services.NewElevenLabsService(cfg.ElevenLabsKey, cfg.ElevenLabsVoiceID)
		log.Println("TTS provider: ElevenLabs (model: eleven_turbo_v2_5)")
	} else {
		ttsSvc = services.NewOpenAIService(cfg.OpenAIKey)
		log.Println("TTS provider: OpenAI (model: tts-1)")
	}

	// Optional artifact publisher (nil when disabled)
	var publisher pipeline.Publisher
	if cfg.PublishEnabled {
		p, err := storage.NewPublisher(cfg.S3Endpoint, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3UseSSL)
		if err != nil {
			log.Fatalf("Failed to init publisher: %v", err)
		}
		publisher = p
		log.Printf("Artifact publishing enabled (bucket: %s)", cfg.S3Bucket)
	}

	ffmpegSvc := services.NewFFmpegService(cfg.FFmpegBin, cfg.FFprobeBin)
	orch := pipeline.New(jobs, artifacts, moderation.New(), ttsSvc, ffmpegSvc, publisher)

	// Task queue producer, only in async mode. Without it the create
	// endpoint renders in-request.
	var q *queue.Queue
	if cfg.WorkerEnabled {
		q, err = queue.New(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Failed to connect to queue: %v", err)
		}
		defer q.Close()
		log.Println("Connected to task queue")
	} else {
		log.Println("Worker disabled, jobs render synchronously in-request")
	}

	handler := api.NewHandler(jobs, artifacts, orch, tracker, q)
	router := api.NewRouter(handler, api.RouterConfig{
		BackendAPIKey:      cfg.BackendAPIKey,
		CorsAllowedOrigins: cfg.CorsAllowedOrigins,
	})

	if cfg.BackendAPIKey != "" {
		log.Println("API key authentication enabled")
	} else {
		log.Println("WARNING: No BACKEND_API_KEY set, API is unprotected (dev mode)")
	}

	server := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	// HTTP server
	g.Go(func() error {
		log.Printf("API server listening on :%s", cfg.APIPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	// Shutdown the HTTP server when the context ends
	g.Go(func() error {
		<-gctx.Done()
		log.Println("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	// Task worker
	if cfg.WorkerEnabled {
		w, err := worker.New(cfg.RedisURL, cfg.MaxConcurrentJobs, orch, tracker)
		if err != nil {
			log.Fatalf("Failed to create worker: %v", err)
		}
		g.Go(func() error {
			log.Printf("Worker enabled, processing up to %d concurrent jobs", cfg.MaxConcurrentJobs)
			return w.Run(gctx)
		})
	}

	if err := g.Wait(); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server exited")
}
