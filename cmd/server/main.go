// Command server runs the video intelligence HTTP API: transcript
// extraction, multi-language discovery and summary chat.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/vidsage/video-intelligence-go/internal/cache"
	"github.com/vidsage/video-intelligence-go/internal/chat"
	"github.com/vidsage/video-intelligence-go/internal/config"
	"github.com/vidsage/video-intelligence-go/internal/db"
	"github.com/vidsage/video-intelligence-go/internal/db/repository"
	"github.com/vidsage/video-intelligence-go/internal/discovery"
	"github.com/vidsage/video-intelligence-go/internal/events"
	"github.com/vidsage/video-intelligence-go/internal/handler"
	"github.com/vidsage/video-intelligence-go/internal/llm"
	"github.com/vidsage/video-intelligence-go/internal/metrics"
	"github.com/vidsage/video-intelligence-go/internal/middleware"
	"github.com/vidsage/video-intelligence-go/internal/queue"
	"github.com/vidsage/video-intelligence-go/internal/rating"
	"github.com/vidsage/video-intelligence-go/internal/transcript"
	"github.com/vidsage/video-intelligence-go/internal/websearch"
	"github.com/vidsage/video-intelligence-go/pkg/logger"
)

const memoryCacheEntries = 10000

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

	if cfg.Database.URL == "" {
		log.Error("database.url is required")
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		log.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close(pool)

	if err := db.VerifySchema(ctx, pool); err != nil {
		log.Error("schema verification failed", "error", err)
		os.Exit(1)
	}
	log.Info("database connection established", "max_conns", pool.Config().MaxConns)

	var store cache.Cache
	if cfg.Redis.URL != "" {
		redisCache, err := cache.NewRedis(cfg.Redis.URL, log)
		if err != nil {
			log.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer redisCache.Close()
		store = redisCache
		log.Info("using redis cache")
	} else {
		store = cache.NewMemory(memoryCacheEntries)
		log.Info("using in-process cache")
	}

	m := metrics.New()

	extractor := transcript.NewExtractor(cfg.Transcript, cfg.Audio, transcript.ExtractorDeps{
		Cache:   store,
		Metrics: m,
		Logger:  log,
	})

	llmClient := llm.New(cfg.LLM)
	searchClient := websearch.New(cfg.WebSearch)
	ratingClient := rating.New(cfg.Rating, store, log)

	orchestrator := discovery.NewOrchestrator(
		discovery.NewReformulator(llmClient, log),
		discovery.NewSearcher(cfg.Transcript.YtDlpPath, 0, log),
		discovery.NewScorer(ratingClient, cfg.Rating.MaxParallel),
		discovery.NewTrustedInjector(cfg.Rating, log),
		m,
		log,
	)

	publisher, err := events.NewPublisher(cfg.RabbitMQ)
	if err != nil {
		log.Error("failed to connect to rabbitmq", "error", err)
		os.Exit(1)
	}
	defer publisher.Close()

	// Prefetch queue is optional; without Redis discovery still works, it
	// just skips background transcript extraction.
	var prefetcher handler.Prefetcher
	if cfg.Redis.URL != "" {
		queueClient, err := queue.NewClient(cfg.Redis.URL, log)
		if err != nil {
			log.Warn("failed to initialize queue client, transcript prefetch disabled", "error", err)
		} else {
			defer queueClient.Close()
			prefetcher = queueClient
			log.Info("transcript prefetch queue enabled")
		}
	}

	chatService := chat.NewService(
		repository.NewSummaryRepository(pool),
		repository.NewChatMessageRepository(pool),
		repository.NewUsageRepository(pool),
		llmClient,
		searchClient,
		cfg.Plans,
		m,
		log,
	)

	auth := middleware.NewAPIKeyAuth(cfg.Server.APIKeys, log)
	if len(cfg.Server.APIKeys) == 0 {
		log.Warn("no API keys configured, API endpoints will reject all requests")
	}

	router := handler.NewRouter(handler.RouterConfig{
		Auth:       auth,
		Transcript: handler.NewTranscriptHandler(extractor, publisher, log),
		Discovery:  handler.NewDiscoveryHandler(orchestrator, prefetcher, publisher, log),
		Chat:       handler.NewChatHandler(chatService, publisher, log),
		Health:     handler.NewHealthHandler(pool, publisher, log),
		Metrics:    m,
		Logger:     log,
	})

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("server starting", "port", cfg.Server.Port)
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		log.Error("server error", "error", err)
		os.Exit(1)
	case sig := <-shutdown:
		log.Info("shutdown signal received", "signal", sig)

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
			if err := server.Close(); err != nil {
				log.Error("failed to close server", "error", err)
			}
			os.Exit(1)
		}

		log.Info("server stopped gracefully")
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
