package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vidsage/video-intelligence-go/internal/db"
	"github.com/vidsage/video-intelligence-go/internal/db/models"
)

// SummaryRepository defines operations for managing video summaries.
type SummaryRepository interface {
	CreateSummary(ctx context.Context, summary *models.Summary) error
	GetSummary(ctx context.Context, id int64) (*models.Summary, error)
	GetSummaryByVideo(ctx context.Context, userID, videoID string) (*models.Summary, error)
	ListSummaries(ctx context.Context, userID string, limit, offset int) ([]*models.Summary, int, error)
	DeleteSummary(ctx context.Context, id int64) error
}

type summaryRepository struct {
	pool *pgxpool.Pool
}

// NewSummaryRepository creates a new SummaryRepository.
func NewSummaryRepository(pool *pgxpool.Pool) SummaryRepository {
	return &summaryRepository{pool: pool}
}

// CreateSummary stores a new summary and fills in its generated fields.
func (r *summaryRepository) CreateSummary(ctx context.Context, summary *models.Summary) error {
	query := `
		INSERT INTO summaries (user_id, video_id, video_title, language, mode, summary_text, transcript_text)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		summary.UserID,
		summary.VideoID,
		summary.VideoTitle,
		summary.Language,
		summary.Mode,
		summary.SummaryText,
		summary.TranscriptText,
	).Scan(&summary.ID, &summary.CreatedAt, &summary.UpdatedAt)
	if err != nil {
		return db.WrapError(err, "create summary")
	}

	return nil
}

// GetSummary retrieves a summary by ID.
func (r *summaryRepository) GetSummary(ctx context.Context, id int64) (*models.Summary, error) {
	query := `
		SELECT id, user_id, video_id, video_title, language, mode, summary_text, transcript_text, created_at, updated_at
		FROM summaries
		WHERE id = $1
	`

	var s models.Summary
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&s.ID,
		&s.UserID,
		&s.VideoID,
		&s.VideoTitle,
		&s.Language,
		&s.Mode,
		&s.SummaryText,
		&s.TranscriptText,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, db.WrapError(err, "get summary")
	}

	return &s, nil
}

// GetSummaryByVideo retrieves a user's most recent summary for a video.
func (r *summaryRepository) GetSummaryByVideo(ctx context.Context, userID, videoID string) (*models.Summary, error) {
	query := `
		SELECT id, user_id, video_id, video_title, language, mode, summary_text, transcript_text, created_at, updated_at
		FROM summaries
		WHERE user_id = $1 AND video_id = $2
		ORDER BY created_at DESC
		LIMIT 1
	`

	var s models.Summary
	err := r.pool.QueryRow(ctx, query, userID, videoID).Scan(
		&s.ID,
		&s.UserID,
		&s.VideoID,
		&s.VideoTitle,
		&s.Language,
		&s.Mode,
		&s.SummaryText,
		&s.TranscriptText,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, db.WrapError(err, "get summary by video")
	}

	return &s, nil
}

// ListSummaries retrieves a paginated list of a user's summaries, newest
// first, along with the total count.
func (r *summaryRepository) ListSummaries(ctx context.Context, userID string, limit, offset int) ([]*models.Summary, int, error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM summaries WHERE user_id = $1`
	if err := r.pool.QueryRow(ctx, countQuery, userID).Scan(&total); err != nil {
		return nil, 0, db.WrapError(err, "count summaries")
	}

	query := `
		SELECT id, user_id, video_id, video_title, language, mode, summary_text, transcript_text, created_at, updated_at
		FROM summaries
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, 0, db.WrapError(err, "list summaries")
	}
	defer rows.Close()

	var summaries []*models.Summary
	for rows.Next() {
		var s models.Summary
		err := rows.Scan(
			&s.ID,
			&s.UserID,
			&s.VideoID,
			&s.VideoTitle,
			&s.Language,
			&s.Mode,
			&s.SummaryText,
			&s.TranscriptText,
			&s.CreatedAt,
			&s.UpdatedAt,
		)
		if err != nil {
			return nil, 0, db.WrapError(err, "scan summary")
		}
		summaries = append(summaries, &s)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, db.WrapError(err, "iterate summaries")
	}

	return summaries, total, nil
}

// DeleteSummary removes a summary and, via cascade, its chat messages.
func (r *summaryRepository) DeleteSummary(ctx context.Context, id int64) error {
	query := `DELETE FROM summaries WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return db.WrapError(err, "delete summary")
	}
	if result.RowsAffected() == 0 {
		return db.WrapError(db.ErrNotFound, "delete summary")
	}

	return nil
}
