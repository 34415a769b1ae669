package models

import "time"

// Chat message roles as stored.
const (
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// ChatMessage is one turn of a conversation attached to a summary. Assistant
// messages carry enrichment metadata; user messages leave it zeroed.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type ChatMessage struct {
	ID        int64  `db:"id"`
	SummaryID int64  `db:"summary_id"`
	UserID    string `db:"user_id"`
	Role      string `db:"role"`
	Content   string `db:"content"`

	// Enrichment metadata, populated on assistant messages.
	Enriched        bool     `db:"enriched"`
	EnrichmentLevel string   `db:"enrichment_level"`
	FactChecked     bool     `db:"fact_checked"`
	Sources         []string `db:"sources"`
	Model           string   `db:"model"`
	Critical        bool     `db:"critical"`

	CreatedAt time.Time `db:"created_at"`
}
