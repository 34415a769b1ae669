package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vidsage/video-intelligence-go/internal/db"
)

// UsageRepository defines operations for the per-user quota counters.
type UsageRepository interface {
	// ChatMessagesToday returns the user's chat message count for today (UTC).
	ChatMessagesToday(ctx context.Context, userID string) (int, error)
	IncrementChatUsage(ctx context.Context, userID string) error
	// DecrementChatUsage rolls back one reserved message, used when a
	// question fails after its quota slot was claimed.
	DecrementChatUsage(ctx context.Context, userID string) error

	// WebSearchesThisMonth returns the user's fact-check search count for the
	// current calendar month.
	WebSearchesThisMonth(ctx context.Context, userID string) (int, error)
	IncrementWebSearchUsage(ctx context.Context, userID string) error
}

type usageRepository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewUsageRepository creates a new UsageRepository.
func NewUsageRepository(pool *pgxpool.Pool) UsageRepository {
	return &usageRepository{pool: pool, now: time.Now}
}

func (r *usageRepository) today() time.Time {
	return r.now().UTC().Truncate(24 * time.Hour)
}

func (r *usageRepository) month() string {
	return r.now().UTC().Format("2006-01")
}

// ChatMessagesToday returns the user's chat message count for today.
func (r *usageRepository) ChatMessagesToday(ctx context.Context, userID string) (int, error) {
	query := `SELECT message_count FROM chat_usage WHERE user_id = $1 AND day = $2`

	var count int
	err := r.pool.QueryRow(ctx, query, userID, r.today()).Scan(&count)
	if err == pgx.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, db.WrapError(err, "get chat usage")
	}

	return count, nil
}

// IncrementChatUsage bumps today's chat counter, creating the row on first
// use of the day.
func (r *usageRepository) IncrementChatUsage(ctx context.Context, userID string) error {
	query := `
		INSERT INTO chat_usage (user_id, day, message_count)
		VALUES ($1, $2, 1)
		ON CONFLICT (user_id, day)
		DO UPDATE SET message_count = chat_usage.message_count + 1
	`

	if _, err := r.pool.Exec(ctx, query, userID, r.today()); err != nil {
		return db.WrapError(err, "increment chat usage")
	}

	return nil
}

// DecrementChatUsage undoes one increment of today's chat counter. The count
// never goes below zero.
func (r *usageRepository) DecrementChatUsage(ctx context.Context, userID string) error {
	query := `
		UPDATE chat_usage
		SET message_count = GREATEST(message_count - 1, 0)
		WHERE user_id = $1 AND day = $2
	`

	if _, err := r.pool.Exec(ctx, query, userID, r.today()); err != nil {
		return db.WrapError(err, "decrement chat usage")
	}

	return nil
}

// WebSearchesThisMonth returns the user's search count for the current month.
func (r *usageRepository) WebSearchesThisMonth(ctx context.Context, userID string) (int, error) {
	query := `SELECT search_count FROM web_search_usage WHERE user_id = $1 AND month = $2`

	var count int
	err := r.pool.QueryRow(ctx, query, userID, r.month()).Scan(&count)
	if err == pgx.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, db.WrapError(err, "get web search usage")
	}

	return count, nil
}

// IncrementWebSearchUsage bumps this month's search counter.
func (r *usageRepository) IncrementWebSearchUsage(ctx context.Context, userID string) error {
	query := `
		INSERT INTO web_search_usage (user_id, month, search_count)
		VALUES ($1, $2, 1)
		ON CONFLICT (user_id, month)
		DO UPDATE SET search_count = web_search_usage.search_count + 1
	`

	if _, err := r.pool.Exec(ctx, query, userID, r.month()); err != nil {
		return db.WrapError(err, "increment web search usage")
	}

	return nil
}
