package chat

import (
	"regexp"
	"strings"
)

// EnrichmentLevel caps how many external sources an answer may cite.
type EnrichmentLevel string

const (
	LevelNone  EnrichmentLevel = "none"
	LevelLight EnrichmentLevel = "light"
	LevelFull  EnrichmentLevel = "full"
	LevelDeep  EnrichmentLevel = "deep"
)

// MaxSources returns the source budget for a level.
func (l EnrichmentLevel) MaxSources() int {
	switch l {
	case LevelLight:
		return 2
	case LevelFull:
		return 5
	case LevelDeep:
		return 8
	default:
		return 0
	}
}

// levelForPlan maps a subscription plan to its enrichment level.
func levelForPlan(plan string) EnrichmentLevel {
	switch plan {
	case "free":
		return LevelNone
	case "student", "starter":
		return LevelLight
	case "pro":
		return LevelFull
	case "expert", "team", "unlimited":
		return LevelDeep
	default:
		return LevelNone
	}
}

// premiumPlans may auto-enrich and route to the stronger model.
var premiumPlans = map[string]bool{
	"pro": true, "expert": true, "team": true, "unlimited": true,
}

var complexQuestionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:compare|versus|vs\.?|difference between|comparer|différence entre)\b`),
	regexp.MustCompile(`(?i)\b(?:why|how come|explain why|pourquoi|explique[rz]? pourquoi)\b`),
	regexp.MustCompile(`(?i)\b(?:step by step|étape par étape|walk me through)\b`),
	regexp.MustCompile(`(?i)\b(?:implication|consequence|trade.?off|paradox|conséquence)\b`),
	regexp.MustCompile(`(?i)\b(?:analyze|analyse[rz]?|critique|evaluate|évaluer)\b`),
}

// complexWordFloor routes long questions to the stronger model.
const complexWordFloor = 20

// isComplexQuestion gates the higher-tier model.
func isComplexQuestion(question string) bool {
	for _, p := range complexQuestionPatterns {
		if p.MatchString(question) {
			return true
		}
	}
	return len(strings.Fields(question)) > complexWordFloor
}

// Decision is the outcome of the enrichment decision table.
type Decision struct {
	Enrich     bool
	Level      EnrichmentLevel
	Disclaimer bool // critical question answered without fact-checking
	Critical   bool
	Model      string
}

// decideEnrichment applies the decision table over plan, explicit request
// and criticality. defaultModel/complexModel come from configuration.
func decideEnrichment(question, plan string, userRequested bool, defaultModel, complexModel string) Decision {
	level := levelForPlan(plan)
	critical := IsCritical(question)

	model := defaultModel
	if premiumPlans[plan] && isComplexQuestion(question) {
		model = complexModel
	}

	d := Decision{Level: level, Critical: critical, Model: model}

	switch {
	case userRequested && level != LevelNone:
		d.Enrich = true
	case critical && (plan == "pro" || plan == "expert" || plan == "team" || plan == "unlimited"):
		d.Enrich = true
		d.Level = LevelFull
		if d.Level.MaxSources() < levelForPlan(plan).MaxSources() {
			d.Level = levelForPlan(plan)
		}
	case critical && (plan == "starter" || plan == "student"):
		// Temporarily elevated so the answer is checked properly.
		d.Enrich = true
		d.Level = LevelFull
	case critical:
		// Free and unrecognized plans get the answer with a warning.
		d.Disclaimer = true
	case premiumPlans[plan] && hasAutoTrigger(question):
		d.Enrich = true
	}

	return d
}

// disclaimers by language, appended when a critical question goes
// unchecked.
var disclaimers = map[string]string{
	"en": "\n\n⚠️ This answer is based solely on the video content and may not reflect recent developments. Consider verifying time-sensitive facts from current sources.",
	"fr": "\n\n⚠️ Cette réponse est basée uniquement sur le contenu de la vidéo et peut ne pas refléter l'actualité récente. Pensez à vérifier les faits sensibles au temps auprès de sources à jour.",
}

// disclaimerFor returns the localized disclaimer paragraph.
func disclaimerFor(language string) string {
	if d, ok := disclaimers[language]; ok {
		return d
	}
	return disclaimers["en"]
}
