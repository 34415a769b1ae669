package transcript

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Transcriber converts a local audio file to text. The Phase 3 methods all
// satisfy this interface.
type Transcriber interface {
	Method() Method
	Transcribe(ctx context.Context, audioPath, language string) (string, error)
}

// whisperAPITranscriber covers the two OpenAI-compatible providers: Groq
// (low latency) and OpenAI itself. Both speak the /audio/transcriptions
// endpoint through the same client.
type whisperAPITranscriber struct {
	client *openai.Client
	model  string
	method Method
}

// NewGroqTranscriber builds the low-latency provider on Groq's
// OpenAI-compatible endpoint.
func NewGroqTranscriber(apiKey, baseURL string) Transcriber {
	if baseURL == "" {
		baseURL = "https://api.groq.com/openai/v1"
	}
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	return &whisperAPITranscriber{
		client: openai.NewClientWithConfig(cfg),
		model:  "whisper-large-v3",
		method: MethodGroqWhisper,
	}
}

// NewOpenAITranscriber builds the standard Whisper provider.
func NewOpenAITranscriber(apiKey string) Transcriber {
	return &whisperAPITranscriber{
		client: openai.NewClient(apiKey),
		model:  openai.Whisper1,
		method: MethodWhisper,
	}
}

func (t *whisperAPITranscriber) Method() Method { return t.method }

func (t *whisperAPITranscriber) Transcribe(ctx context.Context, audioPath, language string) (string, error) {
	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    t.model,
		FilePath: audioPath,
		Language: language,
	})
	if err != nil {
		return "", fmt.Errorf("transcription request: %w", err)
	}
	if resp.Text == "" {
		return "", fmt.Errorf("empty transcription response")
	}
	return resp.Text, nil
}

// DeepgramTranscriber streams the audio file body to the synchronous
// pre-recorded endpoint.
type DeepgramTranscriber struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

func NewDeepgramTranscriber(client *http.Client, apiKey, baseURL string) *DeepgramTranscriber {
	if baseURL == "" {
		baseURL = "https://api.deepgram.com"
	}
	return &DeepgramTranscriber{client: client, baseURL: baseURL, apiKey: apiKey}
}

func (t *DeepgramTranscriber) Method() Method { return MethodStreaming }

func (t *DeepgramTranscriber) Transcribe(ctx context.Context, audioPath, language string) (string, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return "", fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	url := t.baseURL + "/v1/listen?model=nova-2&smart_format=true"
	if language != "" {
		url += "&language=" + language
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, f)
	if err != nil {
		return "", fmt.Errorf("build listen request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+t.apiKey)
	req.Header.Set("Content-Type", "audio/mp4")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d from deepgram", resp.StatusCode)
	}

	var parsed struct {
		Results struct {
			Channels []struct {
				Alternatives []struct {
					Transcript string `json:"transcript"`
				} `json:"alternatives"`
			} `json:"channels"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode deepgram response: %w", err)
	}
	if len(parsed.Results.Channels) == 0 || len(parsed.Results.Channels[0].Alternatives) == 0 {
		return "", fmt.Errorf("no transcript in deepgram response")
	}
	text := parsed.Results.Channels[0].Alternatives[0].Transcript
	if text == "" {
		return "", fmt.Errorf("empty transcript from deepgram")
	}
	return text, nil
}

// AssemblyTranscriber uploads the audio, submits a transcription job and
// polls until completion. Slowest path; last in the rotation.
type AssemblyTranscriber struct {
	client       *http.Client
	baseURL      string
	apiKey       string
	pollInterval time.Duration
	pollTimeout  time.Duration
}

func NewAssemblyTranscriber(client *http.Client, apiKey, baseURL string, pollInterval, pollTimeout time.Duration) *AssemblyTranscriber {
	if baseURL == "" {
		baseURL = "https://api.assemblyai.com"
	}
	if pollInterval <= 0 {
		pollInterval = 3 * time.Second
	}
	if pollTimeout <= 0 {
		pollTimeout = 5 * time.Minute
	}
	return &AssemblyTranscriber{
		client:       client,
		baseURL:      baseURL,
		apiKey:       apiKey,
		pollInterval: pollInterval,
		pollTimeout:  pollTimeout,
	}
}

func (t *AssemblyTranscriber) Method() Method { return MethodAsyncPoll }

func (t *AssemblyTranscriber) Transcribe(ctx context.Context, audioPath, language string) (string, error) {
	uploadURL, err := t.upload(ctx, audioPath)
	if err != nil {
		return "", err
	}

	jobID, err := t.submit(ctx, uploadURL, language)
	if err != nil {
		return "", err
	}

	return t.poll(ctx, jobID)
}

func (t *AssemblyTranscriber) upload(ctx context.Context, audioPath string) (string, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return "", fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/v2/upload", f)
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Authorization", t.apiKey)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d uploading audio", resp.StatusCode)
	}

	var parsed struct {
		UploadURL string `json:"upload_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if parsed.UploadURL == "" {
		return "", fmt.Errorf("no upload url in response")
	}
	return parsed.UploadURL, nil
}

func (t *AssemblyTranscriber) submit(ctx context.Context, audioURL, language string) (string, error) {
	body := map[string]any{"audio_url": audioURL}
	if language != "" {
		body["language_code"] = language
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal transcript request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/v2/transcript", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build transcript request: %w", err)
	}
	req.Header.Set("Authorization", t.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d submitting transcript job", resp.StatusCode)
	}

	var parsed struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode job response: %w", err)
	}
	if parsed.ID == "" {
		return "", fmt.Errorf("no job id in response")
	}
	return parsed.ID, nil
}

func (t *AssemblyTranscriber) poll(ctx context.Context, jobID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.pollTimeout)
	defer cancel()

	ticker := time.NewTicker(t.pollInterval)
	defer ticker.Stop()

	for {
		status, text, err := t.check(ctx, jobID)
		if err != nil {
			return "", err
		}
		switch status {
		case "completed":
			if text == "" {
				return "", fmt.Errorf("empty transcript from job %s", jobID)
			}
			return text, nil
		case "error":
			return "", fmt.Errorf("transcript job %s failed", jobID)
		}

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("transcript job %s timed out: %w", jobID, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (t *AssemblyTranscriber) check(ctx context.Context, jobID string) (status, text string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"/v2/transcript/"+jobID, nil)
	if err != nil {
		return "", "", fmt.Errorf("build poll request: %w", err)
	}
	req.Header.Set("Authorization", t.apiKey)

	resp, err := t.client.Do(req)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("HTTP %d polling transcript job", resp.StatusCode)
	}

	var parsed struct {
		Status string `json:"status"`
		Text   string `json:"text"`
		Error  string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", "", fmt.Errorf("decode poll response: %w", err)
	}
	if parsed.Status == "error" && parsed.Error != "" {
		return "", "", fmt.Errorf("transcript job failed: %s", parsed.Error)
	}
	return parsed.Status, parsed.Text, nil
}
