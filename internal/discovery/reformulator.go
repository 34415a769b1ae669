package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/vidsage/video-intelligence-go/internal/llm"
)

const maxVariants = 5

const reformulateSystemPrompt = `You expand a user's video search query into better search queries.
Produce up to 5 variants that favor academic, documentary and expert-interview
framing, in the same language as the input. Avoid sensational phrasing.
Respond with JSON only: {"queries": ["...", "..."]}`

// academicSuffixes drive the heuristic fallback per language.
var academicSuffixes = map[string][]string{
	"en": {"analysis", "documentary"},
	"fr": {"analyse", "documentaire"},
	"de": {"analyse", "dokumentation"},
	"es": {"análisis", "documental"},
	"it": {"analisi", "documentario"},
	"pt": {"análise", "documentário"},
}

// crossLanguageHints broaden a query toward the other primary language.
var crossLanguageHints = map[string]string{
	"fr": "english",
	"en": "français",
}

// staticTranslations short-circuits the LLM for common topics. Keyed by
// source language, then lowercase text, then target language.
var staticTranslations = map[string]map[string]map[string]string{
	"en": {
		"climate change": {"fr": "changement climatique", "de": "klimawandel", "es": "cambio climático"},
		"artificial intelligence": {"fr": "intelligence artificielle", "de": "künstliche intelligenz", "es": "inteligencia artificial"},
		"vaccines": {"fr": "vaccins", "de": "impfstoffe", "es": "vacunas"},
		"economy": {"fr": "économie", "de": "wirtschaft", "es": "economía"},
	},
	"fr": {
		"changement climatique": {"en": "climate change", "de": "klimawandel"},
		"intelligence artificielle": {"en": "artificial intelligence"},
		"vaccins": {"en": "vaccines"},
		"économie": {"en": "economy"},
	},
}

// Reformulator expands one query into search-optimized variants and
// translates queries across languages.
type Reformulator struct {
	llm    llm.Client
	logger *slog.Logger
}

func NewReformulator(client llm.Client, logger *slog.Logger) *Reformulator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reformulator{llm: client, logger: logger}
}

// Reformulate returns up to 5 variant queries in the query's language. The
// original query is always the first variant. LLM failures degrade to the
// heuristic expansion.
func (r *Reformulator) Reformulate(ctx context.Context, query, lang string) []string {
	variants, err := r.fromLLM(ctx, query)
	if err != nil {
		r.logger.Warn("query reformulation fell back to heuristics", "error", err)
		variants = r.heuristic(query, lang)
	}

	out := dedupQueries(append([]string{query}, variants...))
	if len(out) > maxVariants {
		out = out[:maxVariants]
	}
	return out
}

func (r *Reformulator) fromLLM(ctx context.Context, query string) ([]string, error) {
	content, err := r.llm.Complete(ctx, "", llm.SystemUser(reformulateSystemPrompt, query))
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Queries []string `json:"queries"`
	}
	if err := json.Unmarshal([]byte(stripFence(content)), &parsed); err != nil {
		return nil, fmt.Errorf("reformulation response was not valid JSON: %w", err)
	}
	if len(parsed.Queries) == 0 {
		return nil, fmt.Errorf("reformulation response had no queries")
	}
	return parsed.Queries, nil
}

// heuristic appends two academic suffixes and the cross-language hint.
func (r *Reformulator) heuristic(query, lang string) []string {
	suffixes, ok := academicSuffixes[lang]
	if !ok {
		suffixes = academicSuffixes["en"]
	}
	variants := make([]string, 0, len(suffixes)+1)
	for _, suffix := range suffixes {
		variants = append(variants, query+" "+suffix)
	}
	if hint, ok := crossLanguageHints[lang]; ok {
		variants = append(variants, query+" "+hint)
	}
	return variants
}

// Translate converts a query between languages, consulting the static table
// before spending an LLM call. Errors degrade to the untranslated text.
func (r *Reformulator) Translate(ctx context.Context, text, from, to string) string {
	if from == to {
		return text
	}
	if byText, ok := staticTranslations[from]; ok {
		if targets, ok := byText[strings.ToLower(strings.TrimSpace(text))]; ok {
			if translated, ok := targets[to]; ok {
				return translated
			}
		}
	}

	prompt := fmt.Sprintf("Translate this video search query from %s to %s. Respond with the translation only, no explanation:\n%s", from, to, text)
	translated, err := r.llm.Complete(ctx, "", []llm.Message{{Role: llm.RoleUser, Content: prompt}})
	if err != nil {
		r.logger.Warn("query translation failed, searching untranslated", "from", from, "to", to, "error", err)
		return text
	}
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(translated), `"`))
}

// stripFence removes a surrounding markdown code fence if the model added
// one despite the JSON-only instruction.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

func dedupQueries(queries []string) []string {
	seen := make(map[string]struct{}, len(queries))
	out := make([]string, 0, len(queries))
	for _, q := range queries {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		key := strings.ToLower(q)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, q)
	}
	return out
}
