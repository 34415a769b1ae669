package chat

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/vidsage/video-intelligence-go/internal/llm"
)

// Mode adjusts the answer register and how much transcript feeds the prompt.
type Mode string

const (
	ModeAccessible Mode = "accessible"
	ModeStandard   Mode = "standard"
	ModeExpert     Mode = "expert"
)

// transcript budget per mode, in characters.
func (m Mode) transcriptBudget() int {
	switch m {
	case ModeAccessible:
		return 8_000
	case ModeExpert:
		return 25_000
	default:
		return 15_000
	}
}

func (m Mode) styleGuidelines() string {
	switch m {
	case ModeAccessible:
		return "Explain simply, avoid jargon, use short sentences and everyday comparisons."
	case ModeExpert:
		return "Assume domain familiarity. Be precise, cite specific claims from the video, do not oversimplify."
	default:
		return "Be clear and structured. Define technical terms briefly when they first appear."
	}
}

// summaryBudget caps the summary excerpt injected into the prompt.
const summaryBudget = 4_000

// historyWindow is how many prior messages feed the prompt.
const historyWindow = 6

// questionClass picks a response format guide.
type questionClass int

const (
	classGeneric questionClass = iota
	classFactual
	classYesNo
	classSummary
	classDeepAnalysis
)

var (
	yesNoPattern   = regexp.MustCompile(`(?i)^(?:is|are|was|were|does|do|did|can|could|will|would|has|have|est-ce|a-t-|peut-on)\b`)
	factualPattern = regexp.MustCompile(`(?i)^(?:who|what|when|where|which|how (?:many|much)|qui|quoi|quand|où|quel|combien)\b`)
	summaryPattern = regexp.MustCompile(`(?i)\b(?:summar|résum|tl;?dr|main points|points principaux|key takeaways)\b`)
	deepPattern    = regexp.MustCompile(`(?i)\b(?:analy[sz]e|critique|implications?|in depth|en profondeur|développe)\b`)
)

func classify(question string) questionClass {
	q := strings.TrimSpace(question)
	switch {
	case summaryPattern.MatchString(q):
		return classSummary
	case deepPattern.MatchString(q):
		return classDeepAnalysis
	case yesNoPattern.MatchString(q):
		return classYesNo
	case factualPattern.MatchString(q):
		return classFactual
	default:
		return classGeneric
	}
}

func (c questionClass) formatGuide() string {
	switch c {
	case classFactual:
		return "Answer with the specific fact first, then one or two sentences of context from the video."
	case classYesNo:
		return "Open with a direct yes/no/nuanced verdict, then justify it from the video."
	case classSummary:
		return "Answer as a short structured summary: a one-sentence headline, then 3-5 bullet points."
	case classDeepAnalysis:
		return "Answer as a structured analysis: the video's position, its supporting evidence, and its limits."
	default:
		return "Answer directly and concisely, grounded in the video content."
	}
}

// PromptInput carries everything the prompt builder needs.
type PromptInput struct {
	Question   string
	VideoTitle string
	Summary    string
	Transcript string
	Language   string
	Mode       Mode
	History    []HistoryMessage
}

// HistoryMessage is one prior chat turn.
type HistoryMessage struct {
	Role    string
	Content string
}

// buildMessages assembles the completion request: one system message with
// the video context, the trailing history window, and the question.
func buildMessages(in PromptInput) []llm.Message {
	var sys strings.Builder
	fmt.Fprintf(&sys, "You are answering questions about the video %q.\n", in.VideoTitle)
	fmt.Fprintf(&sys, "Respond in the language of the question (video language: %s).\n\n", in.Language)
	sys.WriteString("Style: " + in.Mode.styleGuidelines() + "\n")
	sys.WriteString("Format: " + classify(in.Question).formatGuide() + "\n\n")

	if in.Summary != "" {
		sys.WriteString("VIDEO SUMMARY:\n" + truncate(in.Summary, summaryBudget) + "\n\n")
	}
	if in.Transcript != "" {
		sys.WriteString("TRANSCRIPT:\n" + truncate(in.Transcript, in.Mode.transcriptBudget()) + "\n\n")
	}
	sys.WriteString("Ground every claim in the material above. If the video does not address the question, say so.")

	messages := []llm.Message{{Role: llm.RoleSystem, Content: sys.String()}}

	history := in.History
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	for _, h := range history {
		messages = append(messages, llm.Message{Role: h.Role, Content: h.Content})
	}

	return append(messages, llm.Message{Role: llm.RoleUser, Content: in.Question})
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "\n[...truncated]"
}

// cannedPhrases are preamble/closing boilerplate stripped from model output.
var cannedPhrases = []string{
	"Based on the video, ",
	"Based on the video content, ",
	"According to the video, ",
	"D'après la vidéo, ",
	"Selon la vidéo, ",
}

var cannedClosings = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\n*(?:let me know if you have any (?:other|more) questions\.?|feel free to ask (?:me )?anything else\.?|n'hésitez pas à poser d'autres questions\.?)\s*$`),
	regexp.MustCompile(`(?i)\n*i hope (?:this|that) helps!?\.?\s*$`),
}

// cleanResponse strips canned phrasing the prompt cannot fully suppress.
func cleanResponse(s string) string {
	s = strings.TrimSpace(s)
	for _, phrase := range cannedPhrases {
		if strings.HasPrefix(s, phrase) {
			s = strings.TrimSpace(strings.TrimPrefix(s, phrase))
			// Re-capitalize the now-leading word.
			if len(s) > 0 {
				s = strings.ToUpper(s[:1]) + s[1:]
			}
			break
		}
	}
	for _, p := range cannedClosings {
		s = p.ReplaceAllString(s, "")
	}
	return strings.TrimSpace(s)
}

// enrichmentSystemPrompt frames the fact-check search call.
const enrichmentSystemPrompt = "You fact-check and enrich an answer about a video using current web information. Be concise and only state verifiable facts with their sources."

// buildEnrichmentQuestion scopes the search call with compact video context.
func buildEnrichmentQuestion(question, videoTitle, summary string) string {
	return fmt.Sprintf("Video: %s\nContext: %s\n\nQuestion to verify and enrich: %s",
		videoTitle, truncate(summary, 1_500), question)
}
