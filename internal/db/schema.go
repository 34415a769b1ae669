package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// chatMessageColumns are the enrichment metadata columns the chat service
// writes on every assistant message. Older schemas silently dropped this
// metadata, so a missing column is a startup error rather than a runtime
// surprise.
var chatMessageColumns = []string{
	"enriched",
	"enrichment_level",
	"fact_checked",
	"sources",
	"model",
	"critical",
}

// VerifySchema checks that the chat_messages table carries all enrichment
// metadata columns. It returns an error naming the missing columns so the
// operator can run migrations before the service accepts traffic.
func VerifySchema(ctx context.Context, pool *pgxpool.Pool) error {
	query := `
		SELECT column_name
		FROM information_schema.columns
		WHERE table_name = 'chat_messages'
	`

	rows, err := pool.Query(ctx, query)
	if err != nil {
		return fmt.Errorf("inspect chat_messages schema: %w", err)
	}
	defer rows.Close()

	present := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return fmt.Errorf("scan column name: %w", err)
		}
		present[name] = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate columns: %w", err)
	}

	if len(present) == 0 {
		return fmt.Errorf("chat_messages table does not exist, run migrations first")
	}

	var missing []string
	for _, col := range chatMessageColumns {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("chat_messages is missing metadata columns [%s], run migrations first",
			strings.Join(missing, ", "))
	}

	return nil
}
