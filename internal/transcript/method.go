// Package transcript implements the multi-method transcript extraction
// engine: three strictly ordered phases of heterogeneous sources with
// circuit breaking, instance health tracking and content-addressed caching.
package transcript

// Method identifies one extraction method.
type Method string

const (
	MethodCaptionAPI    Method = "caption_api"
	MethodInnertube     Method = "innertube"
	MethodWatchPage     Method = "watch_page"
	MethodInvidious     Method = "invidious"
	MethodPiped         Method = "piped"
	MethodPaidAPI       Method = "paid_api"
	MethodYtDlpSubs     Method = "ytdlp_subs"
	MethodYtDlpAutoSubs Method = "ytdlp_auto_subs"
	MethodGroqWhisper   Method = "low_latency_whisper"
	MethodWhisper       Method = "whisper"
	MethodStreaming     Method = "streaming_transcribe"
	MethodAsyncPoll     Method = "async_transcribe"
)

// confidence is the per-method prior carried into TranscriptResult.
var confidence = map[Method]float64{
	MethodCaptionAPI:    0.95,
	MethodInnertube:     0.93,
	MethodWatchPage:     0.90,
	MethodInvidious:     0.85,
	MethodPiped:         0.85,
	MethodPaidAPI:       0.90,
	MethodYtDlpSubs:     0.95,
	MethodYtDlpAutoSubs: 0.80,
	MethodGroqWhisper:   0.88,
	MethodWhisper:       0.90,
	MethodStreaming:     0.85,
	MethodAsyncPoll:     0.85,
}

// Confidence returns the prior for a method, defaulting to 0.5.
func Confidence(m Method) float64 {
	if c, ok := confidence[m]; ok {
		return c
	}
	return 0.5
}
