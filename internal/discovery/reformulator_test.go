package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vidsage/video-intelligence-go/internal/llm"
)

// scriptedLLM answers every completion with a fixed response or error.
type scriptedLLM struct {
	response string
	err      error
	calls    int
}

func (s *scriptedLLM) Complete(_ context.Context, _ string, _ []llm.Message) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func (s *scriptedLLM) DefaultModel() string { return "default-model" }
func (s *scriptedLLM) ComplexModel() string { return "complex-model" }

func TestReformulateParsesLLMJSON(t *testing.T) {
	mock := &scriptedLLM{response: `{"queries":["climate change documentary","climate change expert interview","climate science lecture"]}`}
	r := NewReformulator(mock, slog.Default())

	variants := r.Reformulate(context.Background(), "climate change", "en")
	assert.Equal(t, []string{
		"climate change",
		"climate change documentary",
		"climate change expert interview",
		"climate science lecture",
	}, variants, "original query always leads")
}

func TestReformulateStripsCodeFence(t *testing.T) {
	mock := &scriptedLLM{response: "```json\n{\"queries\":[\"topic analysis\"]}\n```"}
	r := NewReformulator(mock, slog.Default())

	variants := r.Reformulate(context.Background(), "topic", "en")
	assert.Contains(t, variants, "topic analysis")
}

func TestReformulateCapsAtFive(t *testing.T) {
	mock := &scriptedLLM{response: `{"queries":["a1","a2","a3","a4","a5","a6","a7"]}`}
	r := NewReformulator(mock, slog.Default())

	variants := r.Reformulate(context.Background(), "q", "en")
	assert.Len(t, variants, 5)
}

func TestReformulateHeuristicFallbackOnError(t *testing.T) {
	mock := &scriptedLLM{err: fmt.Errorf("backend down")}
	r := NewReformulator(mock, slog.Default())

	variants := r.Reformulate(context.Background(), "les vaccins", "fr")
	assert.Equal(t, []string{
		"les vaccins",
		"les vaccins analyse",
		"les vaccins documentaire",
		"les vaccins english",
	}, variants)
}

func TestReformulateHeuristicFallbackOnBadJSON(t *testing.T) {
	mock := &scriptedLLM{response: "Sure! Here are some queries: 1. better query"}
	r := NewReformulator(mock, slog.Default())

	variants := r.Reformulate(context.Background(), "economy", "en")
	assert.Equal(t, []string{
		"economy",
		"economy analysis",
		"economy documentary",
		"economy français",
	}, variants, "prose output is rejected, heuristics take over")
}

func TestTranslateUsesStaticTableFirst(t *testing.T) {
	mock := &scriptedLLM{response: "should not be used"}
	r := NewReformulator(mock, slog.Default())

	got := r.Translate(context.Background(), "Climate Change", "en", "fr")
	assert.Equal(t, "changement climatique", got)
	assert.Zero(t, mock.calls, "static table hit must not invoke the LLM")
}

func TestTranslateFallsBackToLLM(t *testing.T) {
	mock := &scriptedLLM{response: `"der Aktienmarkt"`}
	r := NewReformulator(mock, slog.Default())

	got := r.Translate(context.Background(), "the stock market", "en", "de")
	assert.Equal(t, "der Aktienmarkt", got)
	assert.Equal(t, 1, mock.calls)
}

func TestTranslateDegradesToOriginalOnError(t *testing.T) {
	mock := &scriptedLLM{err: fmt.Errorf("backend down")}
	r := NewReformulator(mock, slog.Default())

	got := r.Translate(context.Background(), "obscure topic", "en", "it")
	assert.Equal(t, "obscure topic", got)
}

func TestTranslateSameLanguageIsIdentity(t *testing.T) {
	mock := &scriptedLLM{}
	r := NewReformulator(mock, slog.Default())

	assert.Equal(t, "x", r.Translate(context.Background(), "x", "en", "en"))
	assert.Zero(t, mock.calls)
}
