package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsCritical(t *testing.T) {
	tests := []struct {
		name     string
		question string
		want     bool
	}{
		{"explicit recent year", "What happened in 2025 with the project?", true},
		{"recent event verb", "Was he recently elected president?", true},
		{"dynamic data", "What is the price of bitcoin now?", true},
		{"public figure with fact verb", "Est-ce que Sarkozy est en prison ?", true},
		{"french inversion with release event", "Quand Nicolas Sarkozy est-il sorti de prison ?", true},
		{"french inversion with fact verb", "Où Macron était-il la semaine dernière ?", true},
		{"french recency", "Qu'est-ce qui a changé récemment ?", true},
		{"figure without fact verb", "sarkozy", false},
		{"timeless question", "How does photosynthesis work?", false},
		{"video content question", "What examples does the speaker give?", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsCritical(tt.question))
		})
	}
}

func TestLevelForPlan(t *testing.T) {
	assert.Equal(t, LevelNone, levelForPlan("free"))
	assert.Equal(t, LevelLight, levelForPlan("student"))
	assert.Equal(t, LevelLight, levelForPlan("starter"))
	assert.Equal(t, LevelFull, levelForPlan("pro"))
	assert.Equal(t, LevelDeep, levelForPlan("team"))
	assert.Equal(t, LevelNone, levelForPlan("unknown-plan"))

	assert.Equal(t, 0, LevelNone.MaxSources())
	assert.Equal(t, 2, LevelLight.MaxSources())
	assert.Equal(t, 5, LevelFull.MaxSources())
	assert.Equal(t, 8, LevelDeep.MaxSources())
}

func TestDecideEnrichment(t *testing.T) {
	const neutral = "What examples does the speaker give?"
	const critical = "Est-ce que Sarkozy est toujours en prison ?"

	t.Run("free plan critical gets disclaimer only", func(t *testing.T) {
		d := decideEnrichment(critical, "free", false, "small", "large")
		assert.False(t, d.Enrich)
		assert.True(t, d.Disclaimer)
		assert.True(t, d.Critical)
	})

	t.Run("inverted critical question gets disclaimer on free", func(t *testing.T) {
		d := decideEnrichment("Quand Nicolas Sarkozy est-il sorti de prison ?", "free", false, "small", "large")
		assert.False(t, d.Enrich)
		assert.True(t, d.Disclaimer)
		assert.True(t, d.Critical)
	})

	t.Run("unknown plan critical gets disclaimer", func(t *testing.T) {
		d := decideEnrichment(critical, "legacy", false, "small", "large")
		assert.False(t, d.Enrich)
		assert.True(t, d.Disclaimer)
	})

	t.Run("pro plan critical enriches", func(t *testing.T) {
		d := decideEnrichment(critical, "pro", false, "small", "large")
		assert.True(t, d.Enrich)
		assert.False(t, d.Disclaimer)
		assert.Equal(t, LevelFull, d.Level)
	})

	t.Run("deep plan keeps its level on critical", func(t *testing.T) {
		d := decideEnrichment(critical, "unlimited", false, "small", "large")
		assert.True(t, d.Enrich)
		assert.Equal(t, LevelDeep, d.Level)
	})

	t.Run("starter critical is elevated to full", func(t *testing.T) {
		d := decideEnrichment(critical, "starter", false, "small", "large")
		assert.True(t, d.Enrich)
		assert.Equal(t, LevelFull, d.Level)
	})

	t.Run("explicit request wins for paid plans", func(t *testing.T) {
		d := decideEnrichment(neutral, "student", true, "small", "large")
		assert.True(t, d.Enrich)
		assert.Equal(t, LevelLight, d.Level)
	})

	t.Run("explicit request ignored on free plan", func(t *testing.T) {
		d := decideEnrichment(neutral, "free", true, "small", "large")
		assert.False(t, d.Enrich)
	})

	t.Run("neutral question on pro does not enrich", func(t *testing.T) {
		d := decideEnrichment(neutral, "pro", false, "small", "large")
		assert.False(t, d.Enrich)
		assert.False(t, d.Disclaimer)
	})

	t.Run("auto trigger keyword enriches premium", func(t *testing.T) {
		d := decideEnrichment("Can you verify the statistic mentioned?", "pro", false, "small", "large")
		assert.True(t, d.Enrich)
	})

	t.Run("complex question routes premium to stronger model", func(t *testing.T) {
		d := decideEnrichment("Why does the speaker argue this approach fails?", "pro", false, "small", "large")
		assert.Equal(t, "large", d.Model)

		d = decideEnrichment("Why does the speaker argue this approach fails?", "free", false, "small", "large")
		assert.Equal(t, "small", d.Model)
	})

	t.Run("simple question keeps default model", func(t *testing.T) {
		d := decideEnrichment(neutral, "pro", false, "small", "large")
		assert.Equal(t, "small", d.Model)
	})
}

func TestDisclaimerFor(t *testing.T) {
	assert.Contains(t, disclaimerFor("fr"), "basée uniquement sur le contenu")
	assert.Contains(t, disclaimerFor("en"), "based solely on the video")
	assert.Equal(t, disclaimerFor("en"), disclaimerFor("de"))
}

func TestClassify(t *testing.T) {
	assert.Equal(t, classSummary, classify("Give me the main points of the talk"))
	assert.Equal(t, classDeepAnalysis, classify("Analyze the argument in depth"))
	assert.Equal(t, classYesNo, classify("Is the method reliable?"))
	assert.Equal(t, classFactual, classify("When was the study published?"))
	assert.Equal(t, classGeneric, classify("Tell me more about the second part"))
}

func TestCleanResponse(t *testing.T) {
	got := cleanResponse("Based on the video, the answer is yes.\n\nLet me know if you have any other questions.")
	assert.Equal(t, "The answer is yes.", got)

	got = cleanResponse("Plain answer with no boilerplate.")
	assert.Equal(t, "Plain answer with no boilerplate.", got)
}

func TestBuildMessagesHistoryWindow(t *testing.T) {
	history := make([]HistoryMessage, 10)
	for i := range history {
		history[i] = HistoryMessage{Role: "user", Content: "q"}
	}

	msgs := buildMessages(PromptInput{
		Question:   "final question",
		VideoTitle: "Some Video",
		Mode:       ModeStandard,
		History:    history,
	})

	// system + trailing window + question
	assert.Len(t, msgs, 1+historyWindow+1)
	assert.Equal(t, "final question", msgs[len(msgs)-1].Content)
}

func TestTranscriptTruncationByMode(t *testing.T) {
	long := make([]byte, 30_000)
	for i := range long {
		long[i] = 'a'
	}

	msgs := buildMessages(PromptInput{
		Question:   "q",
		Transcript: string(long),
		Mode:       ModeAccessible,
	})
	assert.Less(t, len(msgs[0].Content), 10_000)

	msgs = buildMessages(PromptInput{
		Question:   "q",
		Transcript: string(long),
		Mode:       ModeExpert,
	})
	assert.Greater(t, len(msgs[0].Content), 20_000)
}
