package transcript

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	tagPattern        = regexp.MustCompile(`<[^>]*>`)
	annotationPattern = regexp.MustCompile(`\[[^\]]*\]|\([^)]*\)`)
	spacePattern      = regexp.MustCompile(`\s+`)

	vttTimePattern = regexp.MustCompile(`(?:(\d+):)?(\d{2}):(\d{2})[.,](\d{3})`)
)

// cleanCueText strips markup tags, bracketed annotations like [Music] or
// (applause), and collapses whitespace. Returns "" for cues that carry no
// spoken content.
func cleanCueText(raw string) string {
	text := tagPattern.ReplaceAllString(raw, "")
	text = annotationPattern.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, "&amp;", "&")
	text = strings.ReplaceAll(text, "&lt;", "<")
	text = strings.ReplaceAll(text, "&gt;", ">")
	text = strings.ReplaceAll(text, "&#39;", "'")
	text = strings.ReplaceAll(text, "&quot;", `"`)
	text = spacePattern.ReplaceAllString(text, " ")
	text = strings.TrimSpace(text)
	if len(text) < 2 {
		return ""
	}
	return text
}

func parseCueTime(s string) (time.Duration, bool) {
	m := vttTimePattern.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	hours := 0
	if m[1] != "" {
		hours, _ = strconv.Atoi(m[1])
	}
	mins, _ := strconv.Atoi(m[2])
	secs, _ := strconv.Atoi(m[3])
	millis, _ := strconv.Atoi(m[4])
	return time.Duration(hours)*time.Hour +
		time.Duration(mins)*time.Minute +
		time.Duration(secs)*time.Second +
		time.Duration(millis)*time.Millisecond, true
}

// ParseVTT parses WebVTT caption content into segments. Consecutive cues
// with identical text (the rolling-caption artifact of auto-generated subs)
// are collapsed into one segment.
func ParseVTT(content string) ([]Segment, error) {
	if !strings.Contains(content, "WEBVTT") && !strings.Contains(content, "-->") {
		return nil, fmt.Errorf("not a vtt document")
	}

	var segments []Segment
	var cueStart, cueDur time.Duration
	inCue := false

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.Contains(line, "-->") {
			parts := strings.SplitN(line, "-->", 2)
			start, ok := parseCueTime(parts[0])
			if !ok {
				inCue = false
				continue
			}
			cueStart = start
			cueDur = 0
			if end, ok := parseCueTime(parts[1]); ok && end > start {
				cueDur = end - start
			}
			inCue = true
			continue
		}
		if !inCue || strings.TrimSpace(line) == "" {
			inCue = inCue && strings.TrimSpace(line) != ""
			continue
		}
		text := cleanCueText(line)
		if text == "" {
			continue
		}
		if n := len(segments); n > 0 && segments[n-1].Text == text {
			continue
		}
		segments = append(segments, Segment{Start: cueStart, Duration: cueDur, Text: text})
	}

	if len(segments) == 0 {
		return nil, fmt.Errorf("no caption cues in vtt document")
	}
	return segments, nil
}

// ParseSRT parses SubRip caption content into segments.
func ParseSRT(content string) ([]Segment, error) {
	blocks := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n\n")
	var segments []Segment

	for _, block := range blocks {
		lines := strings.Split(strings.TrimSpace(block), "\n")
		if len(lines) < 2 {
			continue
		}
		// lines[0] is the cue index, lines[1] the timing line.
		timingIdx := -1
		for i, l := range lines {
			if strings.Contains(l, "-->") {
				timingIdx = i
				break
			}
		}
		if timingIdx < 0 || timingIdx == len(lines)-1 {
			continue
		}
		parts := strings.SplitN(lines[timingIdx], "-->", 2)
		start, ok := parseCueTime(parts[0])
		if !ok {
			continue
		}
		var dur time.Duration
		if end, ok := parseCueTime(parts[1]); ok && end > start {
			dur = end - start
		}
		text := cleanCueText(strings.Join(lines[timingIdx+1:], " "))
		if text == "" {
			continue
		}
		segments = append(segments, Segment{Start: start, Duration: dur, Text: text})
	}

	if len(segments) == 0 {
		return nil, fmt.Errorf("no caption cues in srt document")
	}
	return segments, nil
}

// json3 is the timedtext fmt=json3 payload shape.
type json3Doc struct {
	Events []struct {
		StartMs    int64 `json:"tStartMs"`
		DurationMs int64 `json:"dDurationMs"`
		Segs       []struct {
			UTF8 string `json:"utf8"`
		} `json:"segs"`
	} `json:"events"`
}

// ParseJSON3 parses the timedtext json3 format used by the caption endpoint
// and Innertube.
func ParseJSON3(content []byte) ([]Segment, error) {
	var doc json3Doc
	if err := json.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("decode json3 payload: %w", err)
	}

	var segments []Segment
	for _, ev := range doc.Events {
		var parts []string
		for _, seg := range ev.Segs {
			parts = append(parts, seg.UTF8)
		}
		text := cleanCueText(strings.Join(parts, ""))
		if text == "" {
			continue
		}
		segments = append(segments, Segment{
			Start:    time.Duration(ev.StartMs) * time.Millisecond,
			Duration: time.Duration(ev.DurationMs) * time.Millisecond,
			Text:     text,
		})
	}

	if len(segments) == 0 {
		return nil, fmt.Errorf("no caption cues in json3 payload")
	}
	return segments, nil
}

// xmlTimedText parses the legacy timedtext XML format
// (<text start="1.2" dur="3.4">...</text>) returned by some mirrors.
var xmlCuePattern = regexp.MustCompile(`(?s)<text start="([\d.]+)"(?:\s+dur="([\d.]+)")?[^>]*>(.*?)</text>`)

// ParseTimedTextXML parses the legacy XML caption format.
func ParseTimedTextXML(content string) ([]Segment, error) {
	matches := xmlCuePattern.FindAllStringSubmatch(content, -1)
	var segments []Segment
	for _, m := range matches {
		startSec, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		var dur time.Duration
		if m[2] != "" {
			if durSec, err := strconv.ParseFloat(m[2], 64); err == nil {
				dur = time.Duration(durSec * float64(time.Second))
			}
		}
		text := cleanCueText(m[3])
		if text == "" {
			continue
		}
		segments = append(segments, Segment{
			Start:    time.Duration(startSec * float64(time.Second)),
			Duration: dur,
			Text:     text,
		})
	}
	if len(segments) == 0 {
		return nil, fmt.Errorf("no caption cues in timedtext xml")
	}
	return segments, nil
}

// fallbackCueDuration is used when rendering segments that carry no cue end
// time and have no following cue to infer one from.
const fallbackCueDuration = 3 * time.Second

// RenderVTT renders segments back into a WebVTT document. Cues without a
// recorded duration extend to the next cue's start.
func RenderVTT(segments []Segment) string {
	var b strings.Builder
	b.WriteString("WEBVTT\n\n")
	for i, s := range segments {
		end := s.Start + s.Duration
		if s.Duration <= 0 {
			if i+1 < len(segments) && segments[i+1].Start > s.Start {
				end = segments[i+1].Start
			} else {
				end = s.Start + fallbackCueDuration
			}
		}
		b.WriteString(formatCueTime(s.Start))
		b.WriteString(" --> ")
		b.WriteString(formatCueTime(end))
		b.WriteString("\n")
		b.WriteString(s.Text)
		b.WriteString("\n\n")
	}
	return b.String()
}

// formatCueTime renders a cue offset as HH:MM:SS.mmm.
func formatCueTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := d.Milliseconds()
	return fmt.Sprintf("%02d:%02d:%02d.%03d",
		total/3600000, (total%3600000)/60000, (total%60000)/1000, total%1000)
}
