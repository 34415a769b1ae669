// Package queue enqueues and processes background transcript prefetch jobs
// over asynq, so discovery results arrive with their transcripts warm.
package queue

import (
	"encoding/json"
	"fmt"
	"time"
)

// Task types.
const (
	TypePrefetchTranscript = "transcript:prefetch"
)

// Queue names.
const (
	QueuePrefetch = "prefetch"
)

// PrefetchTranscriptPayload is the payload for transcript prefetch tasks.
type PrefetchTranscriptPayload struct {
	VideoID    string   `json:"video_id"`
	Languages  []string `json:"languages,omitempty"`
	Source     string   `json:"source"`
	EnqueuedAt string   `json:"enqueued_at"`
}

// NewPrefetchTranscriptTask creates a prefetch task payload. Source names
// what triggered the prefetch (discovery, api, backfill).
func NewPrefetchTranscriptTask(videoID, source string, languages []string) (*PrefetchTranscriptPayload, error) {
	if videoID == "" {
		return nil, fmt.Errorf("video ID is required")
	}

	return &PrefetchTranscriptPayload{
		VideoID:    videoID,
		Languages:  languages,
		Source:     source,
		EnqueuedAt: time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// Marshal serializes the payload to JSON.
func (p *PrefetchTranscriptPayload) Marshal() ([]byte, error) {
	return json.Marshal(p)
}

// UnmarshalPrefetchTranscriptPayload deserializes a task payload.
func UnmarshalPrefetchTranscriptPayload(data []byte) (*PrefetchTranscriptPayload, error) {
	var payload PrefetchTranscriptPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return &payload, nil
}
