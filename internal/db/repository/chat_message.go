package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vidsage/video-intelligence-go/internal/db"
	"github.com/vidsage/video-intelligence-go/internal/db/models"
)

// ChatMessageRepository defines operations for persisting chat turns.
type ChatMessageRepository interface {
	CreateMessage(ctx context.Context, msg *models.ChatMessage) error
	// ListRecentMessages returns the last limit messages for a summary in
	// chronological order.
	ListRecentMessages(ctx context.Context, summaryID int64, limit int) ([]*models.ChatMessage, error)
	CountUserMessages(ctx context.Context, userID string, summaryID int64) (int, error)
}

type chatMessageRepository struct {
	pool *pgxpool.Pool
}

// NewChatMessageRepository creates a new ChatMessageRepository.
func NewChatMessageRepository(pool *pgxpool.Pool) ChatMessageRepository {
	return &chatMessageRepository{pool: pool}
}

// CreateMessage stores one chat turn and fills in its generated fields.
func (r *chatMessageRepository) CreateMessage(ctx context.Context, msg *models.ChatMessage) error {
	query := `
		INSERT INTO chat_messages
			(summary_id, user_id, role, content, enriched, enrichment_level, fact_checked, sources, model, critical)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at
	`

	err := r.pool.QueryRow(ctx, query,
		msg.SummaryID,
		msg.UserID,
		msg.Role,
		msg.Content,
		msg.Enriched,
		msg.EnrichmentLevel,
		msg.FactChecked,
		msg.Sources,
		msg.Model,
		msg.Critical,
	).Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		return db.WrapError(err, "create chat message")
	}

	return nil
}

// ListRecentMessages returns the trailing window of a summary's conversation
// in chronological order.
func (r *chatMessageRepository) ListRecentMessages(ctx context.Context, summaryID int64, limit int) ([]*models.ChatMessage, error) {
	query := `
		SELECT id, summary_id, user_id, role, content, enriched, enrichment_level, fact_checked, sources, model, critical, created_at
		FROM (
			SELECT id, summary_id, user_id, role, content, enriched, enrichment_level, fact_checked, sources, model, critical, created_at
			FROM chat_messages
			WHERE summary_id = $1
			ORDER BY id DESC
			LIMIT $2
		) recent
		ORDER BY id ASC
	`

	rows, err := r.pool.Query(ctx, query, summaryID, limit)
	if err != nil {
		return nil, db.WrapError(err, "list chat messages")
	}
	defer rows.Close()

	var messages []*models.ChatMessage
	for rows.Next() {
		var m models.ChatMessage
		err := rows.Scan(
			&m.ID,
			&m.SummaryID,
			&m.UserID,
			&m.Role,
			&m.Content,
			&m.Enriched,
			&m.EnrichmentLevel,
			&m.FactChecked,
			&m.Sources,
			&m.Model,
			&m.Critical,
			&m.CreatedAt,
		)
		if err != nil {
			return nil, db.WrapError(err, "scan chat message")
		}
		messages = append(messages, &m)
	}
	if err = rows.Err(); err != nil {
		return nil, db.WrapError(err, "iterate chat messages")
	}

	return messages, nil
}

// CountUserMessages counts the questions a user has asked on one summary.
func (r *chatMessageRepository) CountUserMessages(ctx context.Context, userID string, summaryID int64) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM chat_messages
		WHERE user_id = $1 AND summary_id = $2 AND role = $3
	`

	var count int
	if err := r.pool.QueryRow(ctx, query, userID, summaryID, models.ChatRoleUser).Scan(&count); err != nil {
		return 0, db.WrapError(err, "count user messages")
	}

	return count, nil
}
