package discovery

import (
	"context"
	"math"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/vidsage/video-intelligence-go/internal/rating"
)

// Axis weights of the final score.
const (
	weightRelevance       = 0.40
	weightExternalQuality = 0.20
	weightAcademic        = 0.15
	weightEngagement      = 0.10
	weightFreshness       = 0.08
	weightDuration        = 0.07
	weightClickbait       = 0.10
)

// trustedThreshold marks a candidate as a trusted pick.
const trustedThreshold = 0.55

// synonyms lets query tokens match across common phrasings.
var synonyms = map[string][]string{
	"covid":       {"coronavirus", "pandemic", "covid-19", "sars-cov-2"},
	"coronavirus": {"covid", "pandemic", "covid-19"},
	"pandemic":    {"covid", "coronavirus", "epidemic"},
	"ai":          {"artificial intelligence", "machine learning"},
	"climate":     {"warming", "climat", "carbon"},
	"crypto":      {"cryptocurrency", "bitcoin", "blockchain"},
	"vaccine":     {"vaccination", "vaccin", "immunization"},
}

var academicPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bsources?\b`),
	regexp.MustCompile(`(?i)\b(?:study|studies|étude|research|peer.reviewed)\b`),
	regexp.MustCompile(`(?i)\b(?:expert|professor|professeur|scientist|dr\.)\b`),
	regexp.MustCompile(`(?i)\b(?:documentary|documentaire|lecture|conférence)\b`),
	regexp.MustCompile(`(?i)\b(?:university|université|institute|journal)\b`),
}

var clickbaitPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)you won'?t believe`),
	regexp.MustCompile(`(?i)\bshocking\b|\bchoquant\b`),
	regexp.MustCompile(`(?i)\bgone wrong\b`),
	regexp.MustCompile(`(?i)\bsecret\b.{0,20}\b(?:revealed|exposed)\b`),
	regexp.MustCompile(`(?i)\b(?:insane|crazy|unbelievable|incroyable)\b`),
	regexp.MustCompile(`[!?]{2,}`),
	regexp.MustCompile(`(?:\p{So}){3,}`), // emoji runs
}

// isAllCaps flags shouting titles: at least 10 characters, at least one
// letter, and no lowercase anywhere.
func isAllCaps(title string) bool {
	if len(title) < 10 || strings.ToUpper(title) != title {
		return false
	}
	return strings.ContainsFunc(title, unicode.IsUpper)
}

// durationRange is the optimal window per duration_type, in seconds.
type durationRange struct{ min, max int }

var durationRanges = map[string]durationRange{
	"short":   {3 * 60, 10 * 60},
	"medium":  {10 * 60, 30 * 60},
	"long":    {30 * 60, 90 * 60},
	"default": {5 * 60, 60 * 60},
}

// Scorer computes the weighted quality score for candidate batches.
type Scorer struct {
	rating      rating.Client
	maxParallel int
	now         func() time.Time
}

func NewScorer(ratingClient rating.Client, maxParallel int) *Scorer {
	if maxParallel <= 0 {
		maxParallel = 10
	}
	return &Scorer{rating: ratingClient, maxParallel: maxParallel, now: time.Now}
}

// ScoreBatch scores all candidates in place. External-quality lookups run in
// parallel; the rest of the axes are pure computation.
func (s *Scorer) ScoreBatch(ctx context.Context, candidates []VideoCandidate, query, durationType string) {
	slots := make(chan struct{}, s.maxParallel)
	var wg sync.WaitGroup
	for i := range candidates {
		wg.Add(1)
		go func(c *VideoCandidate) {
			defer wg.Done()
			slots <- struct{}{}
			defer func() { <-slots }()
			s.score(ctx, c, query, durationType)
		}(&candidates[i])
	}
	wg.Wait()
}

func (s *Scorer) score(ctx context.Context, c *VideoCandidate, query, durationType string) {
	external := rating.Neutral
	if s.rating != nil {
		external = s.rating.Score(ctx, c.VideoID, c.ChannelName)
	}

	relevance, matched := relevanceScore(c, query)
	c.AxisScores = AxisScores{
		Relevance:       relevance,
		ExternalQuality: external,
		Academic:        academicScore(c),
		Engagement:      engagementScore(c.ViewCount, c.LikeCount),
		Freshness:       freshnessScore(s.now(), c.UploadDate),
		Duration:        durationScore(c.DurationSec, durationType),
	}
	c.MatchedQueryTerms = matched
	c.DetectedSourcesCount = countSources(c.Description)
	c.ClickbaitPenalty = clickbaitPenalty(c.Title)
	c.IsTrustedPick = external > trustedThreshold
	c.FinalScore = finalScore(c.AxisScores, c.ClickbaitPenalty)
}

func finalScore(a AxisScores, clickbait float64) float64 {
	weighted := weightRelevance*a.Relevance +
		weightExternalQuality*a.ExternalQuality +
		weightAcademic*a.Academic +
		weightEngagement*a.Engagement +
		weightFreshness*a.Freshness +
		weightDuration*a.Duration
	score := weighted*100 - weightClickbait*clickbait*100
	if score < 0 {
		score = 0
	}
	return score
}

// relevanceScore matches query tokens against title, description prefix and
// channel name with positional weights, returning the normalized score and
// the tokens found in the title.
func relevanceScore(c *VideoCandidate, query string) (float64, []string) {
	tokens := queryTokens(query)
	if len(tokens) == 0 {
		return 0, nil
	}

	title := strings.ToLower(c.Title)
	descPrefix := strings.ToLower(c.Description)
	if len(descPrefix) > 300 {
		descPrefix = descPrefix[:300]
	}
	channel := strings.ToLower(c.ChannelName)

	var total, got float64
	var matchedInTitle []string
	allInTitle := true
	for _, tok := range tokens {
		weight := float64(len(tok)) / 10
		total += weight

		switch {
		case matchesToken(title, tok):
			got += weight
			matchedInTitle = append(matchedInTitle, tok)
		case matchesToken(descPrefix, tok):
			got += weight * 0.5
			allInTitle = false
		case matchesToken(channel, tok):
			got += weight * 0.3
			allInTitle = false
		default:
			allInTitle = false
		}
	}

	score := got / total
	if allInTitle {
		score += 0.3
	}
	if score > 1 {
		score = 1
	}
	return score, matchedInTitle
}

func queryTokens(query string) []string {
	var tokens []string
	for _, tok := range strings.Fields(strings.ToLower(query)) {
		if len(tok) >= 2 {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

// matchesToken reports whether the text contains the token or any synonym.
func matchesToken(text, token string) bool {
	if strings.Contains(text, token) {
		return true
	}
	for _, syn := range synonyms[token] {
		if strings.Contains(text, syn) {
			return true
		}
	}
	return false
}

func academicScore(c *VideoCandidate) float64 {
	haystack := c.Title + " " + c.Description + " " + c.ChannelName
	score := 0.0
	for _, p := range academicPatterns {
		if p.MatchString(haystack) {
			score += 0.2
		}
	}
	if score > 1 {
		score = 1
	}
	return score
}

func engagementScore(views, likes int64) float64 {
	if views == 0 {
		return 0
	}
	viewScore := math.Log10(float64(views)+1) / 7
	if viewScore > 1 {
		viewScore = 1
	}
	if likes > 0 {
		likeScore := float64(likes) / float64(views) * 20
		if likeScore > 1 {
			likeScore = 1
		}
		return (viewScore + likeScore) / 2
	}
	return viewScore
}

func freshnessScore(now, uploaded time.Time) float64 {
	if uploaded.IsZero() {
		return 0.1
	}
	days := now.Sub(uploaded).Hours() / 24
	switch {
	case days <= 7:
		return 1.0
	case days <= 30:
		return 0.9
	case days <= 90:
		return 0.7
	case days <= 365:
		return 0.5
	case days <= 730:
		return 0.3
	default:
		return 0.1
	}
}

func durationScore(seconds int, durationType string) float64 {
	r, ok := durationRanges[durationType]
	if !ok {
		r = durationRanges["default"]
	}
	switch {
	case seconds <= 0:
		return 0
	case seconds < r.min:
		return float64(seconds) / float64(r.min)
	case seconds <= r.max:
		return 1.0
	default:
		score := 1 - float64(seconds-r.max)/float64(r.max)
		if score < 0 {
			return 0
		}
		return score
	}
}

func clickbaitPenalty(title string) float64 {
	penalty := 0.0
	if isAllCaps(title) {
		penalty += 0.15
	}
	for _, p := range clickbaitPatterns {
		if p.MatchString(title) {
			penalty += 0.15
		}
	}
	if penalty > 1 {
		penalty = 1
	}
	return penalty
}
