package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearcherParsesDumpJSON(t *testing.T) {
	s := NewSearcher("yt-dlp", 5, slog.Default())
	s.run = func(_ context.Context, _ string, args ...string) ([]byte, error) {
		assert.Contains(t, args, "ytsearch5:climate change")
		lines := []string{
			`{"id":"vid00000001","title":"Climate explained","description":"desc","channel":"SciChan","channel_id":"UC1","duration":845.0,"view_count":120000,"like_count":4000,"upload_date":"20240115"}`,
			`not json`,
			`{"id":"vid00000002","title":"Other","uploader":"Solo Uploader","duration":301.2,"view_count":900,"upload_date":"bogus"}`,
			`{"title":"missing id"}`,
		}
		return []byte(strings.Join(lines, "\n")), nil
	}

	found, err := s.Search(context.Background(), "climate change", "en")
	require.NoError(t, err)
	require.Len(t, found, 2)

	first := found[0]
	assert.Equal(t, "vid00000001", first.VideoID)
	assert.Equal(t, "SciChan", first.ChannelName)
	assert.Equal(t, 845, first.DurationSec)
	assert.Equal(t, int64(120000), first.ViewCount)
	assert.Equal(t, "en", first.SearchLanguage)
	assert.Equal(t, 2024, first.UploadDate.Year())

	second := found[1]
	assert.Equal(t, "Solo Uploader", second.ChannelName, "uploader fills in when channel is empty")
	assert.True(t, second.UploadDate.IsZero(), "unparseable dates stay zero")
}

func TestSearcherSubprocessFailure(t *testing.T) {
	s := NewSearcher("yt-dlp", 5, slog.Default())
	s.run = func(_ context.Context, _ string, _ ...string) ([]byte, error) {
		return nil, fmt.Errorf("exit status 1")
	}

	_, err := s.Search(context.Background(), "q", "en")
	assert.Error(t, err)
}

func TestSearcherPartialOutputWithError(t *testing.T) {
	// yt-dlp exits non-zero when some results fail but still emits the
	// good ones; those are kept.
	s := NewSearcher("yt-dlp", 5, slog.Default())
	s.run = func(_ context.Context, _ string, _ ...string) ([]byte, error) {
		return []byte(`{"id":"vid00000003","title":"kept"}`), fmt.Errorf("exit status 1")
	}

	found, err := s.Search(context.Background(), "q", "en")
	require.NoError(t, err)
	assert.Len(t, found, 1)
}

func TestSearcherNoResults(t *testing.T) {
	s := NewSearcher("yt-dlp", 5, slog.Default())
	s.run = func(_ context.Context, _ string, _ ...string) ([]byte, error) {
		return []byte(""), nil
	}

	_, err := s.Search(context.Background(), "q", "en")
	assert.ErrorContains(t, err, "no candidates")
}
