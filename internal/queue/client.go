package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
)

const (
	prefetchMaxRetry = 3
	prefetchTimeout  = 10 * time.Minute
)

// Client enqueues transcript prefetch tasks.
type Client struct {
	asynqClient *asynq.Client
	logger      *slog.Logger
}

// NewClient creates a queue client from a Redis URL.
func NewClient(redisURL string, logger *slog.Logger) (*Client, error) {
	redisOpt, err := ParseRedisURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	return &Client{
		asynqClient: asynq.NewClient(redisOpt),
		logger:      logger,
	}, nil
}

// Close closes the client connection.
func (c *Client) Close() error {
	return c.asynqClient.Close()
}

// EnqueuePrefetch schedules a transcript prefetch for one video. The task ID
// is derived from the video ID so a video already queued is not queued twice.
func (c *Client) EnqueuePrefetch(ctx context.Context, videoID, source string, languages []string) error {
	payload, err := NewPrefetchTranscriptTask(videoID, source, languages)
	if err != nil {
		return fmt.Errorf("failed to create task payload: %w", err)
	}

	payloadBytes, err := payload.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	task := asynq.NewTask(TypePrefetchTranscript, payloadBytes)

	info, err := c.asynqClient.EnqueueContext(ctx, task,
		asynq.TaskID("prefetch:"+videoID),
		asynq.MaxRetry(prefetchMaxRetry),
		asynq.Timeout(prefetchTimeout),
		asynq.Queue(QueuePrefetch),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		c.logger.Debug("prefetch already queued", "video_id", videoID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	c.logger.Info("enqueued transcript prefetch",
		"video_id", videoID,
		"task_id", info.ID,
		"source", source,
	)

	return nil
}

// EnqueuePrefetchBatch schedules prefetches for a set of videos. Individual
// failures are logged and do not stop the batch.
func (c *Client) EnqueuePrefetchBatch(ctx context.Context, videoIDs []string, source string, languages []string) {
	for _, videoID := range videoIDs {
		if err := c.EnqueuePrefetch(ctx, videoID, source, languages); err != nil {
			c.logger.Warn("failed to enqueue prefetch",
				"video_id", videoID,
				"error", err,
			)
		}
	}
}
