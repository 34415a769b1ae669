// Package discovery implements the video discovery pipeline: query
// reformulation, parallel multi-language search, six-axis quality scoring,
// trusted-pick guarantee and diversity enforcement.
package discovery

import (
	"regexp"
	"time"
)

// AxisScores are the per-axis components of the final score, each in [0,1].
type AxisScores struct {
	Relevance       float64 `json:"relevance"`
	ExternalQuality float64 `json:"external_quality"`
	Academic        float64 `json:"academic"`
	Engagement      float64 `json:"engagement"`
	Freshness       float64 `json:"freshness"`
	Duration        float64 `json:"duration"`
}

// VideoCandidate is one search hit flowing through the scoring pipeline. It
// is never persisted; it lives for the duration of one discovery call.
type VideoCandidate struct {
	VideoID     string `json:"video_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	ChannelID   string `json:"channel_id"`
	ChannelName string `json:"channel_name"`

	DurationSec int       `json:"duration_seconds"`
	ViewCount   int64     `json:"view_count"`
	LikeCount   int64     `json:"like_count"`
	UploadDate  time.Time `json:"upload_date,omitzero"`

	SearchLanguage   string `json:"search_language"`
	DetectedLanguage string `json:"detected_language"`

	AxisScores           AxisScores `json:"axis_scores"`
	ClickbaitPenalty     float64    `json:"clickbait_penalty"`
	FinalScore           float64    `json:"final_score"`
	IsTrustedPick        bool       `json:"is_trusted_pick"`
	MatchedQueryTerms    []string   `json:"matched_query_terms"`
	DetectedSourcesCount int        `json:"detected_sources_count"`
}

// bucketLanguage is the language used for the diversity cap: the detected
// language when known, otherwise the language of the search that found it.
func (c *VideoCandidate) bucketLanguage() string {
	if c.DetectedLanguage != "" && c.DetectedLanguage != LangUnknown {
		return c.DetectedLanguage
	}
	return c.SearchLanguage
}

var sourcePatterns = []*regexp.Regexp{
	regexp.MustCompile(`https?://\S+`),
	regexp.MustCompile(`(?i)\bsources?\s*:`),
	regexp.MustCompile(`(?i)\b(?:étude|study|studie|estudio)\b`),
	regexp.MustCompile(`(?i)\bdoi\.org\b`),
	regexp.MustCompile(`(?i)\bréférences?\b|\breferences?\b`),
	regexp.MustCompile(`(?i)\bbibliograph`),
}

// countSources counts reference markers in a description, capped at 10.
func countSources(description string) int {
	count := 0
	for _, p := range sourcePatterns {
		count += len(p.FindAllStringIndex(description, -1))
		if count >= 10 {
			return 10
		}
	}
	return count
}
