package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidsage/video-intelligence-go/internal/discovery"
	"github.com/vidsage/video-intelligence-go/internal/events"
)

type stubDiscoverer struct {
	resp *discovery.Response
	err  error
}

func (s *stubDiscoverer) Discover(_ context.Context, _ discovery.Request) (*discovery.Response, error) {
	return s.resp, s.err
}

type stubPrefetcher struct {
	videoIDs  []string
	source    string
	languages []string
}

func (s *stubPrefetcher) EnqueuePrefetchBatch(_ context.Context, videoIDs []string, source string, languages []string) {
	s.videoIDs = videoIDs
	s.source = source
	s.languages = languages
}

func discoveryResponse(n int) *discovery.Response {
	resp := &discovery.Response{
		LanguagesSearched: []string{"fr", "en"},
		TotalSearched:     42,
	}
	ids := []string{"vid-1", "vid-2", "vid-3", "vid-4", "vid-5", "vid-6", "vid-7"}
	for i := 0; i < n; i++ {
		resp.Candidates = append(resp.Candidates, discovery.VideoCandidate{VideoID: ids[i]})
	}
	return resp
}

func newDiscoveryRouter(d Discoverer, p Prefetcher, pub events.Publisher) *gin.Engine {
	r := testEngine()
	h := NewDiscoveryHandler(d, p, pub, testLogger())
	r.POST("/discovery", h.Discover)
	return r
}

func TestDiscoverPrefetchesTopCandidates(t *testing.T) {
	prefetcher := &stubPrefetcher{}
	pub := &recordingPublisher{}
	router := newDiscoveryRouter(&stubDiscoverer{resp: discoveryResponse(7)}, prefetcher, pub)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/discovery",
		strings.NewReader(`{"query":"histoire de la revolution"}`))
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	// Only the top 5 candidates get a transcript queued.
	assert.Equal(t, []string{"vid-1", "vid-2", "vid-3", "vid-4", "vid-5"}, prefetcher.videoIDs)
	assert.Equal(t, "discovery", prefetcher.source)
	assert.Equal(t, []string{"fr", "en"}, prefetcher.languages)

	published := pub.published()
	require.Len(t, published, 1)
	assert.Equal(t, events.TypeDiscoveryCompleted, published[0].Type)
}

func TestDiscoverWithoutPrefetcher(t *testing.T) {
	router := newDiscoveryRouter(&stubDiscoverer{resp: discoveryResponse(3)}, nil, &recordingPublisher{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/discovery",
		strings.NewReader(`{"query":"quantum computing"}`))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDiscoverEmptyResultsSkipPrefetch(t *testing.T) {
	prefetcher := &stubPrefetcher{}
	router := newDiscoveryRouter(&stubDiscoverer{resp: discoveryResponse(0)}, prefetcher, &recordingPublisher{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/discovery",
		strings.NewReader(`{"query":"nothing matches this"}`))
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, prefetcher.videoIDs)
}

func TestDiscoverRejectsInvalidBody(t *testing.T) {
	router := newDiscoveryRouter(&stubDiscoverer{}, nil, &recordingPublisher{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/discovery", strings.NewReader(`not json`))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid_input")
}
