package transcript

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Segment is one caption cue with its offset into the video and how long it
// stays on screen. Duration is zero for sources that carry no cue end time.
type Segment struct {
	Start    time.Duration
	Duration time.Duration
	Text     string
}

// segmentJSON is the wire shape: offsets as float seconds.
type segmentJSON struct {
	Text     string  `json:"text"`
	StartSec float64 `json:"start_seconds"`
	DurSec   float64 `json:"duration_seconds"`
}

func (s Segment) MarshalJSON() ([]byte, error) {
	return json.Marshal(segmentJSON{
		Text:     s.Text,
		StartSec: s.Start.Seconds(),
		DurSec:   s.Duration.Seconds(),
	})
}

func (s *Segment) UnmarshalJSON(data []byte) error {
	var w segmentJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	s.Text = w.Text
	s.Start = time.Duration(w.StartSec * float64(time.Second))
	s.Duration = time.Duration(w.DurSec * float64(time.Second))
	return nil
}

// Result is the outcome of a successful extraction. Text is always the
// space-joined segment texts when segments are present.
type Result struct {
	VideoID    string    `json:"video_id"`
	Text       string    `json:"text"`
	Segments   []Segment `json:"segments,omitempty"`
	Language   string    `json:"language"`
	Method     Method    `json:"method"`
	Confidence float64   `json:"confidence"`
	IsAuto     bool      `json:"is_auto_generated"`
	Cached     bool      `json:"cached"`
	ExtractedAt time.Time `json:"extracted_at"`
	// ExtractionTimeMs is the wall-clock duration of the attempt chain that
	// originally produced this result.
	ExtractionTimeMs int64 `json:"extraction_time_ms"`
}

// NewResult builds a Result from segments, deriving Text and the confidence
// prior for the method.
func NewResult(videoID string, segments []Segment, language string, method Method, isAuto bool) *Result {
	texts := make([]string, 0, len(segments))
	for _, s := range segments {
		texts = append(texts, s.Text)
	}
	return &Result{
		VideoID:     videoID,
		Text:        strings.Join(texts, " "),
		Segments:    segments,
		Language:    language,
		Method:      method,
		Confidence:  Confidence(method),
		IsAuto:      isAuto,
		ExtractedAt: time.Now().UTC(),
	}
}

// NewTextResult builds a Result for a method that yields plain text with no
// cue timing, such as the speech-to-text providers.
func NewTextResult(videoID, text, language string, method Method) *Result {
	return &Result{
		VideoID:     videoID,
		Text:        strings.TrimSpace(text),
		Language:    language,
		Method:      method,
		Confidence:  Confidence(method),
		ExtractedAt: time.Now().UTC(),
	}
}

// timestampInterval is the minimum gap between inline timestamp markers.
const timestampInterval = 30 * time.Second

// TimestampedText renders the transcript with [MM:SS] markers inserted at
// most once per 30 seconds of video time. Falls back to plain text when no
// segment timing is available.
func (r *Result) TimestampedText() string {
	if len(r.Segments) == 0 {
		return r.Text
	}

	var b strings.Builder
	var lastMark time.Duration
	for i, s := range r.Segments {
		if i == 0 || s.Start-lastMark >= timestampInterval {
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString(formatOffset(s.Start))
			b.WriteString(" ")
			lastMark = s.Start
		} else {
			b.WriteString(" ")
		}
		b.WriteString(s.Text)
	}
	return b.String()
}

// formatOffset renders a video offset as [MM:SS], or [HH:MM:SS] past one
// hour.
func formatOffset(d time.Duration) string {
	total := int(d.Seconds())
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("[%02d:%02d:%02d]", h, m, s)
	}
	return fmt.Sprintf("[%02d:%02d]", m, s)
}
