//go:build integration
// +build integration

package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidsage/video-intelligence-go/internal/db"
	"github.com/vidsage/video-intelligence-go/internal/db/models"
	"github.com/vidsage/video-intelligence-go/internal/db/testutil"
)

func newSummary(userID, videoID string) *models.Summary {
	return models.NewSummary(userID, videoID, "La loi de 1905 expliquée", "fr", "standard",
		"Résumé de la vidéo sur la séparation des Églises et de l'État.",
		"Transcription complète de la vidéo.")
}

func TestSummaryRepositoryIntegration(t *testing.T) {
	td := testutil.SetupTestDatabase(t)
	defer td.Cleanup(t)

	repo := NewSummaryRepository(td.Pool)
	ctx := context.Background()

	t.Run("create and get", func(t *testing.T) {
		td.TruncateTables(t)

		s := newSummary("user-1", "dQw4w9WgXcQ")
		require.NoError(t, repo.CreateSummary(ctx, s))
		require.NotZero(t, s.ID)
		require.False(t, s.CreatedAt.IsZero())

		got, err := repo.GetSummary(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, "user-1", got.UserID)
		assert.Equal(t, "dQw4w9WgXcQ", got.VideoID)
		assert.Equal(t, s.SummaryText, got.SummaryText)
	})

	t.Run("get missing summary", func(t *testing.T) {
		_, err := repo.GetSummary(ctx, 999999)
		assert.True(t, db.IsNotFound(err))
	})

	t.Run("get by video returns newest", func(t *testing.T) {
		td.TruncateTables(t)

		first := newSummary("user-1", "dQw4w9WgXcQ")
		require.NoError(t, repo.CreateSummary(ctx, first))
		second := newSummary("user-1", "dQw4w9WgXcQ")
		second.SummaryText = "Version mise à jour du résumé."
		require.NoError(t, repo.CreateSummary(ctx, second))

		got, err := repo.GetSummaryByVideo(ctx, "user-1", "dQw4w9WgXcQ")
		require.NoError(t, err)
		assert.Equal(t, second.ID, got.ID)
	})

	t.Run("list paginates per user", func(t *testing.T) {
		td.TruncateTables(t)

		for i := 0; i < 5; i++ {
			require.NoError(t, repo.CreateSummary(ctx, newSummary("user-1", fmt.Sprintf("video-%d", i))))
		}
		require.NoError(t, repo.CreateSummary(ctx, newSummary("user-2", "video-other")))

		summaries, total, err := repo.ListSummaries(ctx, "user-1", 2, 0)
		require.NoError(t, err)
		assert.Equal(t, 5, total)
		assert.Len(t, summaries, 2)
	})

	t.Run("delete cascades to chat messages", func(t *testing.T) {
		td.TruncateTables(t)

		s := newSummary("user-1", "dQw4w9WgXcQ")
		require.NoError(t, repo.CreateSummary(ctx, s))

		messages := NewChatMessageRepository(td.Pool)
		require.NoError(t, messages.CreateMessage(ctx, &models.ChatMessage{
			SummaryID: s.ID,
			UserID:    "user-1",
			Role:      models.ChatRoleUser,
			Content:   "De quand date la loi ?",
			Sources:   []string{},
		}))

		require.NoError(t, repo.DeleteSummary(ctx, s.ID))

		count, err := messages.CountUserMessages(ctx, "user-1", s.ID)
		require.NoError(t, err)
		assert.Zero(t, count)

		err = repo.DeleteSummary(ctx, s.ID)
		assert.True(t, db.IsNotFound(err))
	})
}

func TestChatMessageRepositoryIntegration(t *testing.T) {
	td := testutil.SetupTestDatabase(t)
	defer td.Cleanup(t)

	summaries := NewSummaryRepository(td.Pool)
	repo := NewChatMessageRepository(td.Pool)
	ctx := context.Background()

	seed := func(t *testing.T) int64 {
		t.Helper()
		td.TruncateTables(t)
		s := newSummary("user-1", "dQw4w9WgXcQ")
		require.NoError(t, summaries.CreateSummary(ctx, s))
		return s.ID
	}

	t.Run("create preserves metadata", func(t *testing.T) {
		summaryID := seed(t)

		msg := &models.ChatMessage{
			SummaryID:       summaryID,
			UserID:          "user-1",
			Role:            models.ChatRoleAssistant,
			Content:         "La loi date de 1905.",
			Enriched:        true,
			EnrichmentLevel: "full",
			FactChecked:     true,
			Sources:         []string{"https://example.org/loi-1905"},
			Model:           "gpt-4o",
			Critical:        true,
		}
		require.NoError(t, repo.CreateMessage(ctx, msg))
		require.NotZero(t, msg.ID)

		got, err := repo.ListRecentMessages(ctx, summaryID, 10)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.True(t, got[0].FactChecked)
		assert.Equal(t, []string{"https://example.org/loi-1905"}, got[0].Sources)
		assert.Equal(t, "gpt-4o", got[0].Model)
	})

	t.Run("recent window is chronological", func(t *testing.T) {
		summaryID := seed(t)

		for i := 0; i < 8; i++ {
			role := models.ChatRoleUser
			if i%2 == 1 {
				role = models.ChatRoleAssistant
			}
			require.NoError(t, repo.CreateMessage(ctx, &models.ChatMessage{
				SummaryID: summaryID,
				UserID:    "user-1",
				Role:      role,
				Content:   fmt.Sprintf("message %d", i),
				Sources:   []string{},
			}))
		}

		got, err := repo.ListRecentMessages(ctx, summaryID, 4)
		require.NoError(t, err)
		require.Len(t, got, 4)
		// The last 4 messages, oldest first.
		assert.Equal(t, "message 4", got[0].Content)
		assert.Equal(t, "message 7", got[3].Content)
	})

	t.Run("count only user turns", func(t *testing.T) {
		summaryID := seed(t)

		for _, role := range []string{models.ChatRoleUser, models.ChatRoleAssistant, models.ChatRoleUser} {
			require.NoError(t, repo.CreateMessage(ctx, &models.ChatMessage{
				SummaryID: summaryID,
				UserID:    "user-1",
				Role:      role,
				Content:   "x",
				Sources:   []string{},
			}))
		}

		count, err := repo.CountUserMessages(ctx, "user-1", summaryID)
		require.NoError(t, err)
		assert.Equal(t, 2, count)
	})
}

func TestUsageRepositoryIntegration(t *testing.T) {
	td := testutil.SetupTestDatabase(t)
	defer td.Cleanup(t)

	repo := NewUsageRepository(td.Pool)
	ctx := context.Background()

	t.Run("chat counter upserts", func(t *testing.T) {
		td.TruncateTables(t)

		count, err := repo.ChatMessagesToday(ctx, "user-1")
		require.NoError(t, err)
		assert.Zero(t, count)

		require.NoError(t, repo.IncrementChatUsage(ctx, "user-1"))
		require.NoError(t, repo.IncrementChatUsage(ctx, "user-1"))

		count, err = repo.ChatMessagesToday(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, 2, count)

		// Other users are untouched.
		count, err = repo.ChatMessagesToday(ctx, "user-2")
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("chat counter rollback floors at zero", func(t *testing.T) {
		td.TruncateTables(t)

		// Rolling back with no row for the day is a no-op.
		require.NoError(t, repo.DecrementChatUsage(ctx, "user-1"))

		require.NoError(t, repo.IncrementChatUsage(ctx, "user-1"))
		require.NoError(t, repo.DecrementChatUsage(ctx, "user-1"))
		require.NoError(t, repo.DecrementChatUsage(ctx, "user-1"))

		count, err := repo.ChatMessagesToday(ctx, "user-1")
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("web search counter upserts", func(t *testing.T) {
		td.TruncateTables(t)

		require.NoError(t, repo.IncrementWebSearchUsage(ctx, "user-1"))
		require.NoError(t, repo.IncrementWebSearchUsage(ctx, "user-1"))
		require.NoError(t, repo.IncrementWebSearchUsage(ctx, "user-1"))

		count, err := repo.WebSearchesThisMonth(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, 3, count)
	})
}
