package queue

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vidsage/video-intelligence-go/internal/transcript"
)

func TestPrefetchPayloadRoundTrip(t *testing.T) {
	payload, err := NewPrefetchTranscriptTask("dQw4w9WgXcQ", "discovery", []string{"fr", "en"})
	require.NoError(t, err)
	assert.NotEmpty(t, payload.EnqueuedAt)

	data, err := payload.Marshal()
	require.NoError(t, err)

	got, err := UnmarshalPrefetchTranscriptPayload(data)
	require.NoError(t, err)
	assert.Equal(t, "dQw4w9WgXcQ", got.VideoID)
	assert.Equal(t, "discovery", got.Source)
	assert.Equal(t, []string{"fr", "en"}, got.Languages)
}

func TestPrefetchPayloadRequiresVideoID(t *testing.T) {
	_, err := NewPrefetchTranscriptTask("", "discovery", nil)
	assert.Error(t, err)
}

func TestCallbackManagerContinuesPastFailures(t *testing.T) {
	m := NewCallbackManager(slog.New(slog.NewTextHandler(io.Discard, nil)))

	var ran []string
	m.RegisterCallback(func(context.Context, *transcript.Result) error {
		ran = append(ran, "first")
		return errors.New("boom")
	})
	m.RegisterCallback(func(context.Context, *transcript.Result) error {
		ran = append(ran, "second")
		return nil
	})
	require.Equal(t, 2, m.CallbackCount())

	m.TriggerCallbacks(context.Background(), &transcript.Result{VideoID: "dQw4w9WgXcQ"})
	assert.Equal(t, []string{"first", "second"}, ran)
}
