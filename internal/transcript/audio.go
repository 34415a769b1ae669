package transcript

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/vidsage/video-intelligence-go/internal/resilience"
)

// AudioFetcher obtains an audio file for the speech-to-text phase. It first
// tries the Invidious adaptive formats (plain HTTPS, no throttling token),
// then falls back to yt-dlp audio extraction.
type AudioFetcher struct {
	client     *http.Client
	ytdlpPath  string
	ffmpegPath string
	workDir    string
	instances  []string
	health     *resilience.InstanceHealthRegistry
	maxBytes   int64
	bitrateKbs int

	run func(ctx context.Context, dir string, name string, args ...string) ([]byte, error)
}

func NewAudioFetcher(client *http.Client, ytdlpPath, ffmpegPath, workDir string, instances []string, health *resilience.InstanceHealthRegistry, maxBytes int64, bitrateKbs int) *AudioFetcher {
	if ytdlpPath == "" {
		ytdlpPath = "yt-dlp"
	}
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if workDir == "" {
		workDir = os.TempDir()
	}
	if maxBytes <= 0 {
		maxBytes = 25 << 20
	}
	if bitrateKbs <= 0 {
		bitrateKbs = 32
	}
	return &AudioFetcher{
		client:     client,
		ytdlpPath:  ytdlpPath,
		ffmpegPath: ffmpegPath,
		workDir:    workDir,
		instances:  instances,
		health:     health,
		maxBytes:   maxBytes,
		bitrateKbs: bitrateKbs,
		run:        runCommand,
	}
}

// Download fetches the audio track and guarantees the returned file is under
// the provider upload ceiling, re-encoding through ffmpeg when it is not.
// The caller owns cleanup.
func (f *AudioFetcher) Download(ctx context.Context, videoID string) (string, func(), error) {
	dir, err := os.MkdirTemp(f.workDir, "audio-"+videoID+"-*")
	if err != nil {
		return "", nil, fmt.Errorf("create work dir: %w", err)
	}
	cleanup := func() { os.RemoveAll(dir) }

	path, err := f.fromInvidious(ctx, dir, videoID)
	if err != nil {
		path, err = f.fromYtDlp(ctx, dir, videoID)
	}
	if err != nil {
		cleanup()
		return "", nil, err
	}

	path, err = f.ensureUploadable(ctx, dir, path)
	if err != nil {
		cleanup()
		return "", nil, err
	}
	return path, cleanup, nil
}

type invidiousFormat struct {
	URL     string `json:"url"`
	Type    string `json:"type"`
	Bitrate string `json:"bitrate"`
}

func (f *AudioFetcher) fromInvidious(ctx context.Context, dir, videoID string) (string, error) {
	var lastErr error
	for _, instance := range f.health.HealthyFirst(f.instances) {
		base := strings.TrimRight(instance, "/")

		body, err := fetchBody(ctx, f.client, base+"/api/v1/videos/"+videoID+"?fields=adaptiveFormats", nil)
		if err != nil {
			f.health.RecordFailure(instance)
			lastErr = err
			continue
		}
		var video struct {
			AdaptiveFormats []invidiousFormat `json:"adaptiveFormats"`
		}
		if err := json.Unmarshal(body, &video); err != nil {
			f.health.RecordFailure(instance)
			lastErr = fmt.Errorf("decode video response: %w", err)
			continue
		}

		url := pickAudioFormat(video.AdaptiveFormats)
		if url == "" {
			lastErr = fmt.Errorf("no audio format listed by %s", instance)
			continue
		}

		path := filepath.Join(dir, videoID+".m4a")
		if err := f.downloadTo(ctx, url, path); err != nil {
			f.health.RecordFailure(instance)
			lastErr = err
			continue
		}
		f.health.RecordSuccess(instance)
		return path, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no invidious instances configured")
	}
	return "", fmt.Errorf("invidious audio download failed: %w", lastErr)
}

// pickAudioFormat returns the lowest-bitrate audio stream; transcription
// does not benefit from fidelity and smaller files upload faster.
func pickAudioFormat(formats []invidiousFormat) string {
	best := ""
	bestBitrate := int64(-1)
	for _, format := range formats {
		if !strings.HasPrefix(format.Type, "audio/") {
			continue
		}
		var bitrate int64
		fmt.Sscanf(format.Bitrate, "%d", &bitrate)
		if bestBitrate < 0 || (bitrate > 0 && bitrate < bestBitrate) {
			best = format.URL
			bestBitrate = bitrate
		}
	}
	return best
}

func (f *AudioFetcher) downloadTo(ctx context.Context, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build download request: %w", err)
	}
	req.Header.Set("User-Agent", randomUserAgent())

	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d downloading audio", resp.StatusCode)
	}

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create audio file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("write audio file: %w", err)
	}
	return nil
}

func (f *AudioFetcher) fromYtDlp(ctx context.Context, dir, videoID string) (string, error) {
	args := []string{
		"-f", "bestaudio[filesize<50M]/bestaudio",
		"-x", "--audio-format", "m4a",
		"--output", videoID + ".%(ext)s",
		"--user-agent", randomUserAgent(),
		"--no-playlist",
		"--no-warnings",
		WatchURL(videoID),
	}
	out, err := f.run(ctx, dir, f.ytdlpPath, args...)
	if err != nil {
		return "", fmt.Errorf("yt-dlp audio extraction failed: %w: %s", err, truncateOutput(out))
	}

	path := filepath.Join(dir, videoID+".m4a")
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("yt-dlp produced no audio file: %w", err)
	}
	return path, nil
}

// ensureUploadable re-encodes to low-bitrate mono 16kHz when the file
// exceeds the provider upload ceiling.
func (f *AudioFetcher) ensureUploadable(ctx context.Context, dir, path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat audio file: %w", err)
	}
	if info.Size() <= f.maxBytes {
		return path, nil
	}

	reencoded := filepath.Join(dir, "compressed.m4a")
	args := []string{
		"-y", "-i", path,
		"-ac", "1",
		"-ar", "16000",
		"-b:a", fmt.Sprintf("%dk", f.bitrateKbs),
		"-vn",
		reencoded,
	}
	out, err := f.run(ctx, dir, f.ffmpegPath, args...)
	if err != nil {
		return "", fmt.Errorf("ffmpeg re-encode failed: %w: %s", err, truncateOutput(out))
	}

	info, err = os.Stat(reencoded)
	if err != nil {
		return "", fmt.Errorf("stat re-encoded file: %w", err)
	}
	if info.Size() > f.maxBytes {
		return "", fmt.Errorf("audio still exceeds %d bytes after re-encoding", f.maxBytes)
	}
	return reencoded, nil
}
