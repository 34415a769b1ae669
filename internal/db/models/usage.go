package models

import "time"

// ChatUsage is one user's chat message count for one day.
type ChatUsage struct {
	UserID       string    `db:"user_id"`
	Day          time.Time `db:"day"`
	MessageCount int       `db:"message_count"`
}

// WebSearchUsage is one user's fact-check search count for one calendar
// month, keyed as "2026-08".
type WebSearchUsage struct {
	UserID      string `db:"user_id"`
	Month       string `db:"month"`
	SearchCount int    `db:"search_count"`
}
