package discovery

import "strings"

// LangUnknown is reported when no language reaches the match floor.
const LangUnknown = "unknown"

// minLangMatches is the stopword-hit floor below which detection abstains.
const minLangMatches = 3

var stopwords = map[string][]string{
	"en": {"the", "and", "of", "to", "in", "is", "that", "for", "with", "how", "why", "what", "this", "are", "was", "you"},
	"fr": {"le", "la", "les", "des", "une", "est", "que", "qui", "pour", "dans", "avec", "sur", "pas", "nous", "vous", "cette"},
	"de": {"der", "die", "das", "und", "ist", "nicht", "mit", "für", "auf", "ein", "eine", "wie", "was", "sind", "wird", "dem"},
	"es": {"el", "los", "las", "una", "es", "que", "por", "para", "con", "del", "como", "más", "este", "esta", "son", "pero"},
	"it": {"il", "lo", "gli", "una", "che", "per", "con", "del", "della", "come", "più", "questo", "sono", "anche", "nel", "alla"},
	"pt": {"os", "as", "um", "uma", "que", "para", "com", "não", "como", "mais", "este", "esta", "são", "pelo", "pela", "dos"},
}

// DetectLanguage scores the candidate text against per-language stopword
// sets and returns the best language with at least three hits.
func DetectLanguage(text string) string {
	tokens := strings.Fields(strings.ToLower(text))
	if len(tokens) == 0 {
		return LangUnknown
	}

	present := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		present[strings.Trim(tok, ".,!?;:'\"()")]++
	}

	best := LangUnknown
	bestHits := 0
	for lang, words := range stopwords {
		hits := 0
		for _, w := range words {
			hits += present[w]
		}
		if hits > bestHits {
			best, bestHits = lang, hits
		}
	}
	if bestHits < minLangMatches {
		return LangUnknown
	}
	return best
}

// detectCandidateLanguage runs detection over the fields that carry prose.
func detectCandidateLanguage(c *VideoCandidate) string {
	prefix := c.Description
	if len(prefix) > 300 {
		prefix = prefix[:300]
	}
	return DetectLanguage(c.Title + " " + prefix + " " + c.ChannelName)
}
