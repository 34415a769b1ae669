// Command worker processes background transcript prefetch tasks queued by
// the discovery API.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/vidsage/video-intelligence-go/internal/cache"
	"github.com/vidsage/video-intelligence-go/internal/config"
	"github.com/vidsage/video-intelligence-go/internal/events"
	"github.com/vidsage/video-intelligence-go/internal/metrics"
	"github.com/vidsage/video-intelligence-go/internal/queue"
	"github.com/vidsage/video-intelligence-go/internal/transcript"
	"github.com/vidsage/video-intelligence-go/pkg/logger"
)

const (
	defaultConcurrency = 2
	memoryCacheEntries = 10000
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	level := parseLevel(cfg.Logging.Level)
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		log.Error("failed to initialize event logger", "error", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if cfg.Redis.URL == "" {
		log.Error("redis.url is required, the worker has no queue backend without it")
		os.Exit(1)
	}

	// The worker shares the extraction cache with the API server so prefetched
	// transcripts are served without re-extraction.
	store, err := cache.NewRedis(cfg.Redis.URL, log)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	var cacheStore cache.Cache = store
	if err := store.Ping(context.Background()); err != nil {
		log.Warn("redis unreachable, falling back to in-process cache", "error", err)
		cacheStore = cache.NewMemory(memoryCacheEntries)
	}

	m := metrics.New()

	extractor := transcript.NewExtractor(cfg.Transcript, cfg.Audio, transcript.ExtractorDeps{
		Cache:   cacheStore,
		Metrics: m,
		Logger:  log,
	})

	publisher, err := events.NewPublisher(cfg.RabbitMQ)
	if err != nil {
		log.Error("failed to connect to rabbitmq", "error", err)
		os.Exit(1)
	}
	defer publisher.Close()

	callbacks := queue.NewCallbackManager(log)
	callbacks.RegisterCallback(func(ctx context.Context, result *transcript.Result) error {
		return publisher.Publish(ctx, events.TypeTranscriptExtracted, map[string]interface{}{
			"video_id": result.VideoID,
			"method":   result.Method,
			"language": result.Language,
			"source":   "prefetch",
		})
	})

	prefetchHandler := queue.NewPrefetchHandler(extractor, callbacks, log)

	server, err := queue.NewServer(cfg.Redis.URL, defaultConcurrency, prefetchHandler, log)
	if err != nil {
		log.Error("failed to create queue server", "error", err)
		os.Exit(1)
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		log.Info("starting prefetch worker", "concurrency", defaultConcurrency)
		if err := server.Run(); err != nil {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		log.Error("worker error", "error", err)
		os.Exit(1)
	case sig := <-shutdown:
		log.Info("shutdown signal received", "signal", sig)
		server.Stop()
		log.Info("worker stopped gracefully")
	}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
