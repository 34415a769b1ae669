package models

import "time"

// Summary is a processed video: its metadata, generated summary and the
// transcript the summary was built from. Chat sessions hang off a summary.
type Summary struct {
	ID             int64     `db:"id"`
	UserID         string    `db:"user_id"`
	VideoID        string    `db:"video_id"`
	VideoTitle     string    `db:"video_title"`
	Language       string    `db:"language"`
	Mode           string    `db:"mode"`
	SummaryText    string    `db:"summary_text"`
	TranscriptText string    `db:"transcript_text"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

// NewSummary creates a Summary owned by userID.
func NewSummary(userID, videoID, videoTitle, language, mode, summaryText, transcriptText string) *Summary {
	now := time.Now()
	return &Summary{
		UserID:         userID,
		VideoID:        videoID,
		VideoTitle:     videoTitle,
		Language:       language,
		Mode:           mode,
		SummaryText:    summaryText,
		TranscriptText: transcriptText,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}
