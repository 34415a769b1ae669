package transcript

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// YtDlpClient shells out to yt-dlp for subtitle download. It covers the two
// sequential methods of the second phase: uploaded subtitles and
// auto-generated subtitles.
type YtDlpClient struct {
	path    string
	workDir string

	// run executes the assembled command; swapped in tests.
	run func(ctx context.Context, dir string, name string, args ...string) ([]byte, error)
}

func NewYtDlpClient(path, workDir string) *YtDlpClient {
	if path == "" {
		path = "yt-dlp"
	}
	if workDir == "" {
		workDir = os.TempDir()
	}
	return &YtDlpClient{
		path:    path,
		workDir: workDir,
		run:     runCommand,
	}
}

func runCommand(ctx context.Context, dir string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	return cmd.CombinedOutput()
}

// FetchSubs downloads uploaded subtitles (method ytdlp_subs).
func (c *YtDlpClient) FetchSubs(ctx context.Context, videoID string, languages []string) (*Result, error) {
	return c.fetch(ctx, videoID, languages, false)
}

// FetchAutoSubs downloads auto-generated subtitles (method ytdlp_auto_subs).
func (c *YtDlpClient) FetchAutoSubs(ctx context.Context, videoID string, languages []string) (*Result, error) {
	return c.fetch(ctx, videoID, languages, true)
}

func (c *YtDlpClient) fetch(ctx context.Context, videoID string, languages []string, auto bool) (*Result, error) {
	dir, err := os.MkdirTemp(c.workDir, "subs-"+videoID+"-*")
	if err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	defer os.RemoveAll(dir)

	subFlag := "--write-subs"
	method := MethodYtDlpSubs
	if auto {
		subFlag = "--write-auto-subs"
		method = MethodYtDlpAutoSubs
	}

	langSpec := strings.Join(languages, ",")
	if langSpec == "" {
		langSpec = "en"
	}

	args := []string{
		"--skip-download",
		subFlag,
		"--sub-langs", langSpec,
		"--sub-format", "vtt/srt",
		"--output", "%(id)s.%(ext)s",
		// Spread fingerprints and avoid the most common bot checks.
		"--user-agent", randomUserAgent(),
		"--extractor-args", "youtube:player_client=android,web",
		"--sleep-requests", "1",
		"--no-playlist",
		"--no-warnings",
		WatchURL(videoID),
	}

	out, err := c.run(ctx, dir, c.path, args...)
	if err != nil {
		return nil, fmt.Errorf("yt-dlp failed: %w: %s", err, truncateOutput(out))
	}

	path, lang, err := findSubtitleFile(dir, videoID, languages)
	if err != nil {
		return nil, err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read subtitle file: %w", err)
	}

	var segments []Segment
	if strings.HasSuffix(path, ".srt") {
		segments, err = ParseSRT(string(content))
	} else {
		segments, err = ParseVTT(string(content))
	}
	if err != nil {
		return nil, err
	}

	return NewResult(videoID, segments, lang, method, auto), nil
}

// findSubtitleFile locates the downloaded track, preferring the configured
// language order. yt-dlp names files <id>.<lang>.<ext>.
func findSubtitleFile(dir, videoID string, languages []string) (string, string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", "", fmt.Errorf("scan work dir: %w", err)
	}

	type found struct {
		path string
		lang string
	}
	var candidates []found
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, videoID+".") {
			continue
		}
		if !strings.HasSuffix(name, ".vtt") && !strings.HasSuffix(name, ".srt") {
			continue
		}
		parts := strings.Split(name, ".")
		lang := ""
		if len(parts) >= 3 {
			lang = parts[1]
		}
		candidates = append(candidates, found{path: filepath.Join(dir, name), lang: lang})
	}
	if len(candidates) == 0 {
		return "", "", fmt.Errorf("no subtitle file produced by yt-dlp")
	}

	for _, lang := range languages {
		for _, c := range candidates {
			if strings.HasPrefix(c.lang, lang) {
				return c.path, c.lang, nil
			}
		}
	}
	return candidates[0].path, candidates[0].lang, nil
}

func truncateOutput(out []byte) string {
	s := strings.TrimSpace(string(out))
	if len(s) > 500 {
		s = s[:500] + "..."
	}
	return s
}
