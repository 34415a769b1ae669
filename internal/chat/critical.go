// Package chat implements the question-answering service over summaries:
// quota enforcement, fact-check enrichment and message persistence.
package chat

import (
	"regexp"
	"strings"
)

// Critical questions are those whose correct answer may have changed after
// the video was published; they trigger the fact-check decision table.

var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:today|yesterday|this (?:week|month|year))\b`),
	regexp.MustCompile(`(?i)\b(?:aujourd'hui|hier|cette (?:semaine|année)|ce mois)\b`),
	regexp.MustCompile(`\b20(?:2[4-9]|3\d)\b`),
}

var recentEventPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:recently|latest|just (?:announced|released|happened))\b`),
	regexp.MustCompile(`(?i)\b(?:elected|died|resigned|arrested|convicted|appointed)\b`),
	regexp.MustCompile(`(?i)\b(?:released|freed|jailed|imprisoned|sentenced)\b`),
	wholeWord("récemment", "dernièrement", "vient de"),
	wholeWord("élu", "décédé", "mort", "démissionné", "arrêté", "condamné", "nommé"),
	wholeWord("sorti", "sortie", "libéré", "libérée", "incarcéré", "emprisonné"),
}

// wholeWord builds a whole-word matcher for the given alternatives. RE2's \b
// is ASCII-only, so words starting or ending with accented letters need
// explicit boundaries; apostrophes bind to the next word in French elisions
// (c'est, qu'est-ce) and do not count as one.
func wholeWord(words ...string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)(?:^|[^\p{L}'’])(?:` + strings.Join(words, "|") + `)(?:[^\p{L}]|$)`)
}

var dynamicDataPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:price|cost|worth|stock|market cap)\b`),
	regexp.MustCompile(`(?i)\b(?:prix|coût|vaut|bourse)\b`),
	regexp.MustCompile(`(?i)\b(?:ranking|rank|record|current|latest) (?:number|figure|statistic|stat)s?\b`),
	regexp.MustCompile(`(?i)\bhow (?:much|many) .{0,30}\b(?:now|currently|today)\b`),
	regexp.MustCompile(`(?i)\bcombien .{0,30}\b(?:maintenant|actuellement|aujourd'hui)\b`),
}

// publicFigures seeds the known-name detection. Lowercase.
var publicFigures = []string{
	"macron", "le pen", "sarkozy", "mélenchon", "attal",
	"trump", "biden", "harris", "obama", "putin", "zelensky",
	"musk", "bezos", "zuckerberg", "altman",
	"pope", "le pape",
}

// factVerbPattern matches whole-word fact verbs, including hyphenated French
// inversions like "est-il" and "était-elle".
var factVerbPattern = wholeWord(
	"is", "was", "did", "has", "said", "still", "became",
	"est", "était", "a-t-il", "a-t-elle", "a dit", "toujours", "devenu", "devenue",
)

// IsCritical reports whether a question's answer plausibly depends on facts
// newer than the video.
func IsCritical(question string) bool {
	for _, p := range datePatterns {
		if p.MatchString(question) {
			return true
		}
	}
	for _, p := range recentEventPatterns {
		if p.MatchString(question) {
			return true
		}
	}
	for _, p := range dynamicDataPatterns {
		if p.MatchString(question) {
			return true
		}
	}
	return mentionsPublicFigureFact(question)
}

// mentionsPublicFigureFact requires both a known name and a fact verb, so
// "what does Macron think about X in the video" style questions still count
// while name-free opinions do not.
func mentionsPublicFigureFact(question string) bool {
	lower := strings.ToLower(question)

	hasFigure := false
	for _, name := range publicFigures {
		if strings.Contains(lower, name) {
			hasFigure = true
			break
		}
	}
	if !hasFigure {
		return false
	}
	return factVerbPattern.MatchString(lower)
}

// autoTriggerKeywords cause enrichment for higher plans even when the
// question is not critical.
var autoTriggerKeywords = []string{
	"verify", "vérifier", "true", "false", "vrai", "faux",
	"current", "recent", "today", "actuel", "récent",
	"source", "evidence", "preuve", "compare", "comparer",
	"statistic", "statistique",
}

// autoTriggerTokenFloor also triggers enrichment for long questions.
const autoTriggerTokenFloor = 15

// hasAutoTrigger reports whether the question carries verification intent.
func hasAutoTrigger(question string) bool {
	lower := strings.ToLower(question)
	for _, kw := range autoTriggerKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return len(strings.Fields(question)) > autoTriggerTokenFloor
}
