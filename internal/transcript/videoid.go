package transcript

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

	urlPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?:youtube\.com|youtube-nocookie\.com)/watch\?(?:.*&)?v=([A-Za-z0-9_-]{11})`),
		regexp.MustCompile(`youtu\.be/([A-Za-z0-9_-]{11})`),
		regexp.MustCompile(`youtube\.com/shorts/([A-Za-z0-9_-]{11})`),
		regexp.MustCompile(`(?:youtube\.com|youtube-nocookie\.com)/embed/([A-Za-z0-9_-]{11})`),
		regexp.MustCompile(`youtube\.com/live/([A-Za-z0-9_-]{11})`),
		regexp.MustCompile(`youtube\.com/v/([A-Za-z0-9_-]{11})`),
	}
)

// ExtractVideoID resolves any recognized YouTube URL form, or a bare 11
// character ID, to the canonical video ID.
func ExtractVideoID(input string) (string, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", fmt.Errorf("empty video reference")
	}

	if videoIDPattern.MatchString(trimmed) {
		return trimmed, nil
	}

	for _, p := range urlPatterns {
		if m := p.FindStringSubmatch(trimmed); m != nil {
			return m[1], nil
		}
	}

	return "", fmt.Errorf("unrecognized video reference: %q", trimmed)
}

// WatchURL returns the canonical watch page URL for a video ID.
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}
