package transcript

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleVTT = `WEBVTT
Kind: captions
Language: en

00:00:01.000 --> 00:00:04.000
Hello and <c.colorE5E5E5>welcome</c> back

00:00:04.000 --> 00:00:07.500
[Music]

00:00:07.500 --> 00:00:10.000
today we talk about vaccines

00:00:10.000 --> 00:00:12.000
today we talk about vaccines
`

func TestParseVTT(t *testing.T) {
	segments, err := ParseVTT(sampleVTT)
	require.NoError(t, err)
	require.Len(t, segments, 2, "annotation-only cue dropped, duplicate collapsed")

	assert.Equal(t, time.Second, segments[0].Start)
	assert.Equal(t, 3*time.Second, segments[0].Duration)
	assert.Equal(t, "Hello and welcome back", segments[0].Text)
	assert.Equal(t, 7500*time.Millisecond, segments[1].Start)
	assert.Equal(t, 2500*time.Millisecond, segments[1].Duration)
	assert.Equal(t, "today we talk about vaccines", segments[1].Text)
}

func TestRenderVTTRoundTrip(t *testing.T) {
	segments, err := ParseVTT(sampleVTT)
	require.NoError(t, err)

	again, err := ParseVTT(RenderVTT(segments))
	require.NoError(t, err)
	assert.Equal(t, segments, again)
}

func TestRenderVTTInfersMissingDurations(t *testing.T) {
	rendered := RenderVTT([]Segment{
		{Start: 0, Text: "no end time"},
		{Start: 4 * time.Second, Text: "last cue"},
	})

	assert.Contains(t, rendered, "00:00:00.000 --> 00:00:04.000")
	assert.Contains(t, rendered, "00:00:04.000 --> 00:00:07.000")
}

func TestSegmentJSONUsesSeconds(t *testing.T) {
	data, err := json.Marshal(Segment{
		Start:    1500 * time.Millisecond,
		Duration: 3 * time.Second,
		Text:     "bonjour",
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"text":"bonjour","start_seconds":1.5,"duration_seconds":3}`, string(data))

	var back Segment
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, 1500*time.Millisecond, back.Start)
	assert.Equal(t, 3*time.Second, back.Duration)
}

func TestParseVTTRejectsNonVTT(t *testing.T) {
	_, err := ParseVTT("<html><body>blocked</body></html>")
	assert.Error(t, err)
}

func TestParseSRT(t *testing.T) {
	content := "1\r\n00:00:02,500 --> 00:00:05,000\r\nfirst line\r\nsecond line\r\n\r\n2\r\n00:01:00,000 --> 00:01:03,000\r\n(applause)\r\n\r\n3\r\n01:00:00,000 --> 01:00:02,000\r\npast the hour\r\n"

	segments, err := ParseSRT(content)
	require.NoError(t, err)
	require.Len(t, segments, 2)

	assert.Equal(t, 2500*time.Millisecond, segments[0].Start)
	assert.Equal(t, 2500*time.Millisecond, segments[0].Duration)
	assert.Equal(t, "first line second line", segments[0].Text)
	assert.Equal(t, time.Hour, segments[1].Start)
	assert.Equal(t, 2*time.Second, segments[1].Duration)
	assert.Equal(t, "past the hour", segments[1].Text)
}

func TestParseJSON3(t *testing.T) {
	payload := []byte(`{"events":[
		{"tStartMs":0,"dDurationMs":1500,"segs":[{"utf8":"so "},{"utf8":"today"}]},
		{"tStartMs":1500,"segs":[{"utf8":"\n"}]},
		{"tStartMs":3200,"dDurationMs":2300,"segs":[{"utf8":"we begin"}]}
	]}`)

	segments, err := ParseJSON3(payload)
	require.NoError(t, err)
	require.Len(t, segments, 2)

	assert.Equal(t, "so today", segments[0].Text)
	assert.Equal(t, 1500*time.Millisecond, segments[0].Duration)
	assert.Equal(t, 3200*time.Millisecond, segments[1].Start)
	assert.Equal(t, 2300*time.Millisecond, segments[1].Duration)
	assert.Equal(t, "we begin", segments[1].Text)
}

func TestParseJSON3Invalid(t *testing.T) {
	_, err := ParseJSON3([]byte("not json"))
	assert.Error(t, err)

	_, err = ParseJSON3([]byte(`{"events":[]}`))
	assert.Error(t, err)
}

func TestParseTimedTextXML(t *testing.T) {
	content := `<?xml version="1.0"?><transcript>` +
		`<text start="0.5" dur="2.1">bonjour &amp; bienvenue</text>` +
		`<text start="3.0" dur="1.0">[Musique]</text>` +
		`<text start="5.25" dur="2.0">on commence</text>` +
		`</transcript>`

	segments, err := ParseTimedTextXML(content)
	require.NoError(t, err)
	require.Len(t, segments, 2)

	assert.Equal(t, 500*time.Millisecond, segments[0].Start)
	assert.Equal(t, 2100*time.Millisecond, segments[0].Duration)
	assert.Equal(t, "bonjour & bienvenue", segments[0].Text)
	assert.Equal(t, 5250*time.Millisecond, segments[1].Start)
	assert.Equal(t, 2*time.Second, segments[1].Duration)
}

func TestResultTextMatchesSegments(t *testing.T) {
	segments := []Segment{
		{Start: 0, Text: "hello"},
		{Start: 31 * time.Second, Text: "world"},
	}
	r := NewResult("dQw4w9WgXcQ", segments, "en", MethodCaptionAPI, false)

	assert.Equal(t, "hello world", r.Text)
	assert.Equal(t, 0.95, r.Confidence)
}

func TestTimestampedText(t *testing.T) {
	segments := []Segment{
		{Start: 0, Text: "intro"},
		{Start: 10 * time.Second, Text: "still intro"},
		{Start: 45 * time.Second, Text: "first topic"},
		{Start: 2*time.Hour + 3*time.Minute + 4*time.Second, Text: "deep in"},
	}
	r := NewResult("dQw4w9WgXcQ", segments, "en", MethodInnertube, true)

	want := "[00:00] intro still intro\n[00:45] first topic\n[02:03:04] deep in"
	assert.Equal(t, want, r.TimestampedText())
}

func TestTimestampedTextNoSegments(t *testing.T) {
	r := NewTextResult("dQw4w9WgXcQ", "  plain speech to text  ", "en", MethodWhisper)
	assert.Equal(t, "plain speech to text", r.Text)
	assert.Equal(t, "plain speech to text", r.TimestampedText())
}
